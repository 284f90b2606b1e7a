package stripeproc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"
	"github.com/stripe/stripe-go/v80/refund"
	"github.com/stripe/stripe-go/v80/webhook"

	"github.com/arad71/Vendor-saas-mvp/internal/app/policies"
)

// Processor adapts Stripe payment intents, refunds and webhook
// verification to the processor port.
type Processor struct {
	webhookSecret string
}

func NewProcessor(secretKey, webhookSecret string) *Processor {
	stripe.Key = secretKey
	return &Processor{webhookSecret: webhookSecret}
}

func (p *Processor) CreateIntent(ctx context.Context, params policies.CreateIntentParams) (policies.Intent, error) {
	piParams := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(params.AmountMinor),
		Currency: stripe.String(strings.ToLower(params.Currency)),
	}
	if params.FeeMinor > 0 {
		piParams.ApplicationFeeAmount = stripe.Int64(params.FeeMinor)
	}
	if params.CustomerRef != "" {
		piParams.Customer = stripe.String(params.CustomerRef)
	}
	for k, v := range params.Metadata {
		piParams.AddMetadata(k, v)
	}
	pi, err := paymentintent.New(piParams)
	if err != nil {
		return policies.Intent{}, fmt.Errorf("stripe: create intent: %w", err)
	}
	return policies.Intent{ID: pi.ID, ClientSecret: pi.ClientSecret, Status: string(pi.Status)}, nil
}

func (p *Processor) CreateRefund(ctx context.Context, params policies.CreateRefundParams) (policies.Refund, error) {
	refParams := &stripe.RefundParams{
		Params: stripe.Params{Context: ctx},
	}
	// Succeeded intents store the charge id; older records may carry the
	// intent id instead.
	if strings.HasPrefix(params.PaymentID, "pi_") {
		refParams.PaymentIntent = stripe.String(params.PaymentID)
	} else {
		refParams.Charge = stripe.String(params.PaymentID)
	}
	if params.AmountMinor > 0 {
		refParams.Amount = stripe.Int64(params.AmountMinor)
	}
	if params.Reason != "" {
		refParams.Reason = stripe.String(params.Reason)
	}
	ref, err := refund.New(refParams)
	if err != nil {
		return policies.Refund{}, fmt.Errorf("stripe: create refund: %w", err)
	}
	return policies.Refund{ID: ref.ID, Status: string(ref.Status)}, nil
}

func (p *Processor) VerifyWebhook(payload []byte, signature string) (policies.WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return policies.WebhookEvent{}, fmt.Errorf("%w: %v", policies.ErrInvalidSignature, err)
	}
	out := policies.WebhookEvent{ID: event.ID, Type: string(event.Type)}
	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return policies.WebhookEvent{}, fmt.Errorf("%w: decode payment intent: %v", policies.ErrMalformedEvent, err)
		}
		out.IntentID = pi.ID
		out.PaymentID = pi.ID
		if pi.LatestCharge != nil && pi.LatestCharge.ID != "" {
			out.PaymentID = pi.LatestCharge.ID
		}
		out.AmountMinor = pi.Amount
		out.Currency = string(pi.Currency)
		out.Metadata = pi.Metadata
		if event.Type == "payment_intent.succeeded" {
			out.Type = policies.EventPaymentSucceeded
		} else {
			out.Type = policies.EventPaymentFailed
		}
	}
	return out, nil
}

var _ policies.PaymentProcessor = (*Processor)(nil)
