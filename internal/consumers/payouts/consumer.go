package payouts

import (
	"context"
	"encoding/json"
	"errors"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightlens-media/payouts-backend/internal/settlement"
	pkgerrors "github.com/brightlens-media/payouts-backend/pkg/errors"
	"github.com/brightlens-media/payouts-backend/pkg/logger"
)

// OrderApprovedEvent is published by the order-approval workflow once a job
// passes quality review.
type OrderApprovedEvent struct {
	OrderID   uuid.UUID `json:"order_id" validate:"required"`
	ListingID uuid.UUID `json:"listing_id" validate:"required"`
}

// OrderRefundedEvent is published by the refund workflow.
type OrderRefundedEvent struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
	Reason  string    `json:"reason" validate:"required"`
}

// Consumer drives the settlement engine from the platform's payout events.
type Consumer struct {
	svc      settlement.Service
	approved *pubsub.Subscriber
	refunded *pubsub.Subscriber
	logg     *logger.Logger
	validate *validator.Validate
}

// NewConsumer constructs a consumer over the approved and refunded
// subscriptions.
func NewConsumer(svc settlement.Service, approved, refunded *pubsub.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if svc == nil {
		return nil, errors.New("settlement service is required")
	}
	if approved == nil {
		return nil, errors.New("order-approved subscription is required")
	}
	if refunded == nil {
		return nil, errors.New("order-refunded subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		svc:      svc,
		approved: approved,
		refunded: refunded,
		logg:     logg,
		validate: validator.New(),
	}, nil
}

// Run receives from both subscriptions until the context is canceled or
// either subscription errors.
func (c *Consumer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)

	go func() {
		errCh <- c.approved.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
			if c.processApproved(ctx, msg.ID, msg.Data).nack {
				msg.Nack()
				return
			}
			msg.Ack()
		})
	}()
	go func() {
		errCh <- c.refunded.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
			if c.processRefunded(ctx, msg.ID, msg.Data).nack {
				msg.Nack()
				return
			}
			msg.Ack()
		})
	}()

	err := <-errCh
	cancel()
	<-errCh
	return err
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) processApproved(ctx context.Context, messageID string, data []byte) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event":      "order_approved",
	})

	var event OrderApprovedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		c.logg.Error(logCtx, "failed to unmarshal order-approved payload", err)
		return processResult{ack: true}
	}
	if err := c.validate.Struct(event); err != nil {
		c.logg.Error(logCtx, "invalid order-approved payload", err)
		return processResult{ack: true}
	}

	logCtx = c.logg.WithOrderID(logCtx, event.OrderID.String())
	logCtx = c.logg.WithListingID(logCtx, event.ListingID.String())

	result, err := c.svc.ProcessJobPayouts(logCtx, event.OrderID, event.ListingID)
	if err != nil {
		c.logServiceError(logCtx, "settlement run could not start", err)
		return c.handleServiceError(err)
	}

	fields := c.logg.WithFields(logCtx, map[string]any{
		"success":         result.Success,
		"already_settled": result.AlreadySettled,
		"errors":          result.Errors,
	})
	if result.Success {
		c.logg.Info(fields, "settlement run succeeded")
	} else {
		c.logg.Warn(fields, "settlement run recorded a failure")
	}
	// Business failures are final and recorded on the lock; redelivery
	// would only replay the recorded outcome.
	return processResult{ack: true}
}

func (c *Consumer) processRefunded(ctx context.Context, messageID string, data []byte) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event":      "order_refunded",
	})

	var event OrderRefundedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		c.logg.Error(logCtx, "failed to unmarshal order-refunded payload", err)
		return processResult{ack: true}
	}
	if err := c.validate.Struct(event); err != nil {
		c.logg.Error(logCtx, "invalid order-refunded payload", err)
		return processResult{ack: true}
	}

	logCtx = c.logg.WithOrderID(logCtx, event.OrderID.String())

	result, err := c.svc.ReverseOrderPayouts(logCtx, event.OrderID, event.Reason)
	if err != nil {
		c.logServiceError(logCtx, "payout reversal could not start", err)
		return c.handleServiceError(err)
	}

	fields := c.logg.WithFields(logCtx, map[string]any{
		"success":        result.Success,
		"reversed_count": result.ReversedCount,
		"errors":         result.Errors,
	})
	if result.Success {
		c.logg.Info(fields, "payout reversal succeeded")
	} else {
		// Partial reversals are row-granular; a redelivery only retries
		// rows still in completed state.
		c.logg.Warn(fields, "payout reversal left rows behind")
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func (c *Consumer) logServiceError(ctx context.Context, msg string, err error) {
	dump := pkgerrors.Dump(err)
	fields := map[string]any{"error_chain": dump.Chain}
	if dump.PGCode != "" {
		fields["pg_code"] = dump.PGCode
		fields["pg_constraint"] = dump.PGConstraint
	}
	c.logg.Error(c.logg.WithFields(ctx, fields), msg, err)
}

func (c *Consumer) handleServiceError(err error) processResult {
	if isTransientError(err) {
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func isTransientError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, gorm.ErrInvalidTransaction) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
