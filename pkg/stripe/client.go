package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/brightlens-media/payouts-backend/pkg/config"
	pkgerrors "github.com/brightlens-media/payouts-backend/pkg/errors"
	"github.com/brightlens-media/payouts-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errLoggerRequired   = errors.New("stripe logger is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// Client wraps Stripe's connected-account transfer primitives with
// centralized logging, idempotency, and error mapping.
type Client struct {
	api         *stripe.Client
	environment string
	logger      *logger.Logger
}

// TransferParams describes one outbound transfer to a connected account.
// The idempotency key must be deterministic for the logical payment so that
// retried calls never duplicate the transfer at the provider.
type TransferParams struct {
	AmountCents    int64
	DestinationID  string
	IdempotencyKey string
	Metadata       map[string]string
}

// ReversalParams describes the reversal of a previously created transfer.
// A nil AmountCents reverses the full transfer.
type ReversalParams struct {
	TransferID  string
	AmountCents *int64
	Reason      string
}

// NewClient initializes the Stripe wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	c := &Client{
		api:         stripe.NewClient(apiKey),
		environment: env,
		logger:      logg,
	}

	logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	return c, nil
}

// Environment reports the normalized Stripe environment.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// CreateTransfer pushes funds to a connected account and returns the
// provider's transfer id.
func (c *Client) CreateTransfer(ctx context.Context, params TransferParams) (string, error) {
	if strings.TrimSpace(params.DestinationID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "transfer destination is required")
	}
	if params.AmountCents <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "transfer amount must be positive")
	}
	if strings.TrimSpace(params.IdempotencyKey) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "transfer idempotency key is required")
	}

	req := &stripe.TransferCreateParams{
		Amount:      stripe.Int64(params.AmountCents),
		Currency:    stripe.String(string(stripe.CurrencyUSD)),
		Destination: stripe.String(params.DestinationID),
	}
	req.IdempotencyKey = stripe.String(params.IdempotencyKey)
	for k, v := range params.Metadata {
		req.AddMetadata(k, v)
	}

	c.log(ctx, "request", "create_transfer", map[string]any{
		"destination_id":  params.DestinationID,
		"amount":          params.AmountCents,
		"idempotency_key": params.IdempotencyKey,
	})

	transfer, err := c.api.V1Transfers.Create(ctx, req)
	if err != nil {
		c.log(ctx, "error", "create_transfer", map[string]any{"error": err.Error()})
		return "", c.mapStripeError(err, "create transfer")
	}

	c.log(ctx, "response", "create_transfer", map[string]any{"transfer_id": transfer.ID})
	return transfer.ID, nil
}

// ReverseTransfer undoes a transfer and returns the reversal id.
func (c *Client) ReverseTransfer(ctx context.Context, params ReversalParams) (string, error) {
	if strings.TrimSpace(params.TransferID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "transfer id is required")
	}

	req := &stripe.TransferReversalCreateParams{
		ID: stripe.String(params.TransferID),
	}
	if params.AmountCents != nil {
		req.Amount = stripe.Int64(*params.AmountCents)
	}
	if params.Reason != "" {
		req.AddMetadata("reason", params.Reason)
	}

	c.log(ctx, "request", "reverse_transfer", map[string]any{
		"transfer_id": params.TransferID,
		"reason":      params.Reason,
	})

	reversal, err := c.api.V1TransferReversals.Create(ctx, req)
	if err != nil {
		c.log(ctx, "error", "reverse_transfer", map[string]any{"error": err.Error()})
		return "", c.mapStripeError(err, "reverse transfer")
	}

	c.log(ctx, "response", "reverse_transfer", map[string]any{"reversal_id": reversal.ID})
	return reversal.ID, nil
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("stripe %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("stripe %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"token", "secret", "email", "phone", "account_number"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func (c *Client) mapStripeError(err error, op string) error {
	if err == nil {
		return nil
	}
	var apiErr *stripe.Error
	if errors.As(err, &apiErr) {
		code := domainCodeForStripeError(apiErr)
		return pkgerrors.Wrap(code, err, fmt.Sprintf("stripe %s failed", op))
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("stripe %s failed", op))
}

func domainCodeForStripeError(apiErr *stripe.Error) pkgerrors.Code {
	if apiErr.Code == stripe.ErrorCodeIdempotencyKeyInUse {
		return pkgerrors.CodeIdempotency
	}
	switch apiErr.Type {
	case stripe.ErrorTypeInvalidRequest:
		return pkgerrors.CodeValidation
	case stripe.ErrorTypeCard:
		return pkgerrors.CodeStateConflict
	case stripe.ErrorTypeAPI:
		return pkgerrors.CodeDependency
	default:
		return pkgerrors.CodeDependency
	}
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}
