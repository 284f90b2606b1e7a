package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/arad71/Vendor-saas-mvp/internal/app/policies"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/booking"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/shared/events"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/shared/money"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/transaction"
)

// ErrProcessor wraps any failure coming back from the external payment
// processor. Retrying is the caller's concern, not this service's.
var ErrProcessor = errors.New("payments: processor request failed")

// DefaultFeeBps is the platform fee rate: 5%, in basis points.
const DefaultFeeBps = 500

// Service bridges bookings and the transaction ledger to the external
// processor's intent/webhook model. It is the only writer of a booking's
// payment status.
type Service struct {
	bookings     booking.Repository
	transactions transaction.Repository
	processor    policies.PaymentProcessor
	publisher    policies.EventPublisher
	logger       *slog.Logger
	feeBps       int64
	currency     string
	clock        func() time.Time
}

func NewService(bookings booking.Repository, transactions transaction.Repository, processor policies.PaymentProcessor, publisher policies.EventPublisher, logger *slog.Logger, feeBps int64, currency string) *Service {
	if feeBps <= 0 {
		feeBps = DefaultFeeBps
	}
	if currency == "" {
		currency = "USD"
	}
	return &Service{
		bookings:     bookings,
		transactions: transactions,
		processor:    processor,
		publisher:    publisher,
		logger:       logger,
		feeBps:       feeBps,
		currency:     currency,
		clock:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the wall clock, for tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// PaymentRequest is the synchronous result of creating an intent: the
// client secret is the opaque confirmation token handed to the frontend.
type PaymentRequest struct {
	IntentID     string
	ClientSecret string
	Amount       money.Money
	Fee          money.Money
}

// CreatePaymentRequest creates an intent with the processor and stores its
// id on the booking. A zero amount falls back to the booking total.
// Calling twice creates two external intents; guarding on an existing
// non-terminal intent id is the controller's job.
func (s *Service) CreatePaymentRequest(ctx context.Context, bookingID booking.BookingID, amount money.Money, requesterID, customerRef string) (PaymentRequest, error) {
	b, err := s.bookings.ByID(ctx, bookingID)
	if err != nil {
		return PaymentRequest{}, err
	}
	if requesterID != string(b.VendorID) && requesterID != string(b.UserID) {
		return PaymentRequest{}, booking.ErrNotParticipant
	}
	if amount.IsZero() {
		amount = b.TotalAmount
	}
	if !amount.IsPositive() {
		return PaymentRequest{}, booking.ErrInvalidAmount
	}
	fee := amount.Fee(s.feeBps)
	intent, err := s.processor.CreateIntent(ctx, policies.CreateIntentParams{
		AmountMinor: amount.Amount,
		FeeMinor:    fee.Amount,
		Currency:    amount.Currency,
		CustomerRef: customerRef,
		Metadata: map[string]string{
			"booking_id":   string(b.ID),
			"vendor_id":    string(b.VendorID),
			"customer_ref": customerRef,
		},
	})
	if err != nil {
		return PaymentRequest{}, fmt.Errorf("%w: create intent: %v", ErrProcessor, err)
	}
	b.AttachIntent(intent.ID, s.clock())
	if err := s.bookings.Save(ctx, b); err != nil {
		return PaymentRequest{}, err
	}
	return PaymentRequest{IntentID: intent.ID, ClientSecret: intent.ClientSecret, Amount: amount, Fee: fee}, nil
}

// HandleWebhook verifies and applies an asynchronous processor event.
// A bad signature is the only error surfaced to the transport layer;
// once the payload is authentic the event is always acknowledged, and
// internal apply problems are logged instead of returned, so the
// processor does not retry-storm us.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.processor.VerifyWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, policies.ErrInvalidSignature) || errors.Is(err, policies.ErrMalformedEvent) {
			return err
		}
		return fmt.Errorf("%w: %v", policies.ErrMalformedEvent, err)
	}
	switch ev.Type {
	case policies.EventPaymentSucceeded:
		s.applySucceeded(ctx, ev)
	case policies.EventPaymentFailed:
		s.applyFailed(ctx, ev)
	default:
		s.log().Debug("ignoring webhook event", "type", ev.Type, "event_id", ev.ID)
	}
	return nil
}

func (s *Service) applySucceeded(ctx context.Context, ev policies.WebhookEvent) {
	log := s.log().With("event_id", ev.ID, "payment_id", ev.PaymentID)

	// Idempotent apply: re-delivery of the same external payment id must
	// not mint a second ledger entry.
	if _, err := s.transactions.ByExternalPaymentID(ctx, ev.PaymentID); err == nil {
		log.Info("duplicate payment event, already recorded")
		return
	} else if !errors.Is(err, transaction.ErrNotFound) {
		log.Error("ledger lookup failed", "error", err)
		return
	}

	bookingID := booking.BookingID(ev.Metadata["booking_id"])
	if bookingID == "" {
		log.Warn("payment event without booking metadata")
		return
	}
	b, err := s.bookings.ByID(ctx, bookingID)
	if err != nil {
		log.Warn("booking missing for payment event", "booking_id", bookingID, "error", err)
		return
	}

	now := s.clock()
	amount := b.TotalAmount
	if ev.AmountMinor > 0 {
		if m, err := money.New(ev.AmountMinor, nonEmpty(ev.Currency, s.currency)); err == nil {
			amount = m
		}
	}

	if err := b.MarkPaid(ev.PaymentID, now); err != nil {
		// A booking already settled by this same payment means an earlier
		// delivery marked it paid but the ledger append did not stick. The
		// append below is idempotent, so fall through and retry it.
		if !errors.Is(err, booking.ErrPaymentSettled) || b.PaymentID != ev.PaymentID {
			log.Info("payment success not applied", "booking_id", b.ID, "payment_status", b.PaymentStatus, "reason", err)
			return
		}
		log.Info("booking already paid, retrying ledger append", "booking_id", b.ID)
	} else if err := s.bookings.Save(ctx, b); err != nil {
		log.Error("booking save failed", "booking_id", b.ID, "error", err)
		return
	}

	tx, err := transaction.NewCompleted(transaction.TransactionID(uuid.NewString()), b.ID, b.VendorID, amount, s.feeBps, ev.PaymentID, now)
	if err != nil {
		log.Error("transaction build failed", "booking_id", b.ID, "error", err)
		return
	}
	if err := s.transactions.Append(ctx, tx); err != nil {
		if errors.Is(err, transaction.ErrDuplicate) {
			log.Info("transaction already recorded by concurrent delivery")
			return
		}
		log.Error("transaction append failed", "booking_id", b.ID, "error", err)
		return
	}
	s.publishEvents(ctx, b)
	log.Info("payment applied", "booking_id", b.ID, "amount", amount.Major())
}

func (s *Service) applyFailed(ctx context.Context, ev policies.WebhookEvent) {
	log := s.log().With("event_id", ev.ID)
	bookingID := booking.BookingID(ev.Metadata["booking_id"])
	if bookingID == "" {
		log.Warn("failure event without booking metadata")
		return
	}
	b, err := s.bookings.ByID(ctx, bookingID)
	if err != nil {
		log.Warn("booking missing for failure event", "booking_id", bookingID, "error", err)
		return
	}
	// A failure arriving after success or a refund is stale; the settled
	// state wins. A failed payment never cancels the booking itself.
	if err := b.MarkPaymentFailed(s.clock()); err != nil {
		log.Info("stale payment failure ignored", "booking_id", b.ID, "payment_status", b.PaymentStatus)
		return
	}
	if err := s.bookings.Save(ctx, b); err != nil {
		log.Error("booking save failed", "booking_id", b.ID, "error", err)
		return
	}
	s.publishEvents(ctx, b)
	log.Info("payment failure recorded", "booking_id", b.ID)
}

// Refund issues a full refund when amount is nil, otherwise a partial one.
// Only the vendor may refund, and only a paid booking.
func (s *Service) Refund(ctx context.Context, bookingID booking.BookingID, requesterID string, amount *money.Money, reason string) (*transaction.Transaction, error) {
	b, err := s.bookings.ByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if requesterID != string(b.VendorID) {
		return nil, booking.ErrNotOwner
	}
	if b.PaymentID == "" {
		return nil, booking.ErrNoPayment
	}
	if b.PaymentStatus != booking.PaymentPaid {
		return nil, booking.ErrNotPaid
	}

	refundAmount := b.TotalAmount
	partial := false
	requestedMinor := int64(0)
	if amount != nil {
		if !amount.IsPositive() || amount.Amount > b.TotalAmount.Amount {
			return nil, booking.ErrInvalidAmount
		}
		refundAmount = *amount
		partial = amount.Amount < b.TotalAmount.Amount
		requestedMinor = amount.Amount
	}

	ref, err := s.processor.CreateRefund(ctx, policies.CreateRefundParams{
		PaymentID:   b.PaymentID,
		AmountMinor: requestedMinor,
		Reason:      reason,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create refund: %v", ErrProcessor, err)
	}

	now := s.clock()
	if err := b.MarkRefunded(ref.ID, refundAmount, partial, now); err != nil {
		return nil, err
	}
	if err := s.bookings.Save(ctx, b); err != nil {
		return nil, err
	}

	tx, err := transaction.NewRefund(transaction.TransactionID(uuid.NewString()), b.ID, b.VendorID, refundAmount, ref.ID, now)
	if err != nil {
		return nil, err
	}
	if err := s.transactions.Append(ctx, tx); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, b)
	return tx, nil
}

func (s *Service) publishEvents(ctx context.Context, rec interface {
	PendingEvents() []events.DomainEvent
	ClearEvents()
}) {
	if s.publisher == nil {
		rec.ClearEvents()
		return
	}
	for _, ev := range rec.PendingEvents() {
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.log().Warn("event publish failed", "event", ev.EventName(), "aggregate_id", ev.AggregateID(), "error", err)
		}
	}
	rec.ClearEvents()
}

func (s *Service) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

func nonEmpty(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
