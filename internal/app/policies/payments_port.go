package policies

import (
	"context"
	"errors"
)

var (
	ErrInvalidSignature = errors.New("payments: webhook signature verification failed")
	// ErrMalformedEvent marks a payload that authenticated but could not be
	// decoded. Distinct from a forged signature so operators can tell an
	// attack from a contract drift with the processor.
	ErrMalformedEvent = errors.New("payments: webhook event payload malformed")
)

// Abstract webhook event types; processor adapters map their own vocabulary
// onto these. Unknown types pass through verbatim and are ignored upstream.
const (
	EventPaymentSucceeded = "payment_succeeded"
	EventPaymentFailed    = "payment_failed"
)

type Intent struct {
	ID           string
	ClientSecret string
	Status       string
}

type CreateIntentParams struct {
	AmountMinor int64
	FeeMinor    int64
	Currency    string
	CustomerRef string
	Metadata    map[string]string
}

type Refund struct {
	ID     string
	Status string
}

type CreateRefundParams struct {
	PaymentID   string
	AmountMinor int64 // 0 means full refund
	Reason      string
}

// WebhookEvent is the processor-neutral shape of an asynchronous
// payment notification.
type WebhookEvent struct {
	ID          string
	Type        string
	IntentID    string
	PaymentID   string
	AmountMinor int64
	Currency    string
	Metadata    map[string]string
}

// PaymentProcessor is the capability contract against the external
// payment provider.
type PaymentProcessor interface {
	CreateIntent(ctx context.Context, params CreateIntentParams) (Intent, error)
	CreateRefund(ctx context.Context, params CreateRefundParams) (Refund, error)
	// VerifyWebhook authenticates a raw payload against its signature header
	// and decodes it; ErrInvalidSignature when authentication fails.
	VerifyWebhook(payload []byte, signature string) (WebhookEvent, error)
}
