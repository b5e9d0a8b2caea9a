package settlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/brightlens-media/payouts-backend/pkg/enums"
	"github.com/brightlens-media/payouts-backend/pkg/logger"
	"github.com/brightlens-media/payouts-backend/pkg/metrics"
	stripeclient "github.com/brightlens-media/payouts-backend/pkg/stripe"
)

const (
	// IneligibleReason is recorded for recipients the provider is never
	// called for: missing destination account or transfers disabled.
	IneligibleReason = "transfer provider not enabled for this recipient"

	compensationReason = "settlement batch failed; reversing completed transfers"
)

// TransferProvider is the external payment rail surface the engine depends
// on. pkg/stripe satisfies it in production.
type TransferProvider interface {
	CreateTransfer(ctx context.Context, params stripeclient.TransferParams) (string, error)
	ReverseTransfer(ctx context.Context, params stripeclient.ReversalParams) (string, error)
}

// transferRequest is one recipient's pending transfer within a batch.
type transferRequest struct {
	RecipientID uuid.UUID
	Role        string
	AmountCents int64
	Percent     decimal.Decimal
	AccountID   *string
	Eligible    bool
}

// transferOutcome records one attempted transfer. TransferID is set only on
// success; Err carries the failure reason otherwise.
type transferOutcome struct {
	Request    transferRequest
	TransferID string
	Err        string
}

// executor issues the sequential transfer batch for one settlement run and
// compensates it when a later step fails.
type executor struct {
	provider TransferProvider
	logg     *logger.Logger
	metrics  *metrics.SettlementMetrics
}

func newExecutor(provider TransferProvider, logg *logger.Logger, m *metrics.SettlementMetrics) *executor {
	return &executor{provider: provider, logg: logg, metrics: m}
}

// execute runs the batch strictly in order and stops at the first failure.
// The returned succeeded slice is append-only and ordered, which is what
// compensate needs to reverse correctly.
func (e *executor) execute(ctx context.Context, orderID uuid.UUID, requests []transferRequest) (succeeded []transferOutcome, failed *transferOutcome) {
	for _, req := range requests {
		outcome := e.attempt(ctx, orderID, req)
		if outcome.Err != "" {
			e.metrics.IncTransfer("failure")
			return succeeded, &outcome
		}
		e.metrics.IncTransfer("success")
		succeeded = append(succeeded, outcome)
	}
	return succeeded, nil
}

func (e *executor) attempt(ctx context.Context, orderID uuid.UUID, req transferRequest) transferOutcome {
	outcome := transferOutcome{Request: req}

	if !req.Eligible || req.AccountID == nil {
		outcome.Err = fmt.Sprintf("%s: %s", req.Role, IneligibleReason)
		return outcome
	}

	transferID, err := e.provider.CreateTransfer(ctx, stripeclient.TransferParams{
		AmountCents:    req.AmountCents,
		DestinationID:  *req.AccountID,
		IdempotencyKey: TransferKey(orderID, req.RecipientID, req.Role),
		Metadata: map[string]string{
			"order_id":     orderID.String(),
			"recipient_id": req.RecipientID.String(),
			"role":         req.Role,
		},
	})
	if err != nil {
		outcome.Err = fmt.Sprintf("%s transfer failed: %s", req.Role, err.Error())
		return outcome
	}

	outcome.TransferID = transferID
	return outcome
}

// compensate reverses every transfer that succeeded before the batch failed,
// in the order they were issued. Reversal failures are not retried; each is
// logged as requiring manual intervention and accumulated into the returned
// error.
func (e *executor) compensate(ctx context.Context, orderID uuid.UUID, succeeded []transferOutcome) error {
	var combined error
	for _, outcome := range succeeded {
		_, err := e.provider.ReverseTransfer(ctx, stripeclient.ReversalParams{
			TransferID: outcome.TransferID,
			Reason:     compensationReason,
		})
		if err != nil {
			e.metrics.IncReversal("failure")
			if e.logg != nil {
				fields := e.logg.WithFields(ctx, map[string]any{
					"order_id":    orderID.String(),
					"transfer_id": outcome.TransferID,
					"role":        outcome.Request.Role,
				})
				e.logg.Error(fields, "transfer reversal failed; manual intervention required", err)
			}
			combined = multierr.Append(combined, fmt.Errorf("reverse %s transfer %s: %w", outcome.Request.Role, outcome.TransferID, err))
			continue
		}
		e.metrics.IncReversal("success")
	}
	return combined
}

// roleLabel keeps transfer idempotency keys and error strings on the wire
// format the rest of the platform expects.
func roleLabel(role enums.StaffRole) string {
	return string(role)
}
