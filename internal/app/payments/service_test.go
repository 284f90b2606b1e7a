package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arad71/Vendor-saas-mvp/internal/app/policies"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/booking"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/shared/money"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/shared/timerange"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/transaction"
	"github.com/arad71/Vendor-saas-mvp/internal/infra/storage/memory"
)

var testNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

// fakeProcessor verifies payloads that are plain JSON WebhookEvents with
// the signature "valid"; anything else fails signature verification.
type fakeProcessor struct {
	intents      int
	refunds      int
	lastIntent   policies.CreateIntentParams
	lastRefund   policies.CreateRefundParams
	intentErr    error
	refundErr    error
	refundResult policies.Refund
}

func (p *fakeProcessor) CreateIntent(ctx context.Context, params policies.CreateIntentParams) (policies.Intent, error) {
	if p.intentErr != nil {
		return policies.Intent{}, p.intentErr
	}
	p.intents++
	p.lastIntent = params
	return policies.Intent{ID: fmt.Sprintf("pi_%d", p.intents), ClientSecret: "secret", Status: "requires_payment_method"}, nil
}

func (p *fakeProcessor) CreateRefund(ctx context.Context, params policies.CreateRefundParams) (policies.Refund, error) {
	if p.refundErr != nil {
		return policies.Refund{}, p.refundErr
	}
	p.refunds++
	p.lastRefund = params
	if p.refundResult.ID != "" {
		return p.refundResult, nil
	}
	return policies.Refund{ID: fmt.Sprintf("re_%d", p.refunds), Status: "succeeded"}, nil
}

func (p *fakeProcessor) VerifyWebhook(payload []byte, signature string) (policies.WebhookEvent, error) {
	if signature != "valid" {
		return policies.WebhookEvent{}, policies.ErrInvalidSignature
	}
	var ev policies.WebhookEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return policies.WebhookEvent{}, err
	}
	return ev, nil
}

// flakyLedger fails the first failures appends, then delegates.
type flakyLedger struct {
	transaction.Repository
	failures int
}

func (l *flakyLedger) Append(ctx context.Context, tx *transaction.Transaction) error {
	if l.failures > 0 {
		l.failures--
		return errors.New("ledger briefly unavailable")
	}
	return l.Repository.Append(ctx, tx)
}

type fixture struct {
	bookings     *memory.BookingRepository
	transactions *memory.TransactionRepository
	processor    *fakeProcessor
	service      *Service
	booking      *booking.Booking
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	bookings := memory.NewBookingRepository()
	transactions := memory.NewTransactionRepository()
	processor := &fakeProcessor{}
	svc := NewService(bookings, transactions, processor, nil, nil, 500, "USD").WithClock(func() time.Time { return testNow })

	slot, err := timerange.New(testNow.Add(24*time.Hour), testNow.Add(26*time.Hour))
	require.NoError(t, err)
	b, err := booking.New(booking.CreateParams{
		ID:            "bk-1",
		ListingID:     "ls-1",
		VendorID:      "vendor-1",
		UserID:        "user-1",
		CustomerName:  "Dana",
		CustomerEmail: "dana@example.com",
		Slot:          slot,
		TotalAmount:   money.Must(10000, "USD"),
		CreatedAt:     testNow,
	})
	require.NoError(t, err)
	require.NoError(t, bookings.Create(context.Background(), b))
	b.ClearEvents()

	return &fixture{bookings: bookings, transactions: transactions, processor: processor, service: svc, booking: b}
}

func (f *fixture) webhookPayload(t *testing.T, ev policies.WebhookEvent) []byte {
	t.Helper()
	body, err := json.Marshal(ev)
	require.NoError(t, err)
	return body
}

func successEvent(id, paymentID string, amount int64) policies.WebhookEvent {
	return policies.WebhookEvent{
		ID:          id,
		Type:        policies.EventPaymentSucceeded,
		PaymentID:   paymentID,
		AmountMinor: amount,
		Currency:    "USD",
		Metadata:    map[string]string{"booking_id": "bk-1"},
	}
}

func TestCreatePaymentRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to the booking total", func(t *testing.T) {
		f := newFixture(t)
		pr, err := f.service.CreatePaymentRequest(ctx, "bk-1", money.Zero("USD"), "user-1", "cus_1")
		require.NoError(t, err)
		assert.Equal(t, int64(10000), pr.Amount.Amount)
		assert.Equal(t, int64(500), pr.Fee.Amount)
		assert.Equal(t, "pi_1", pr.IntentID)
		assert.Equal(t, "bk-1", f.processor.lastIntent.Metadata["booking_id"])

		stored, err := f.bookings.ByID(ctx, "bk-1")
		require.NoError(t, err)
		assert.Equal(t, "pi_1", stored.PaymentIntentID)
	})

	t.Run("explicit amount wins", func(t *testing.T) {
		f := newFixture(t)
		pr, err := f.service.CreatePaymentRequest(ctx, "bk-1", money.Must(4000, "USD"), "vendor-1", "")
		require.NoError(t, err)
		assert.Equal(t, int64(4000), pr.Amount.Amount)
		assert.Equal(t, int64(200), pr.Fee.Amount)
	})

	t.Run("only participants may pay", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.CreatePaymentRequest(ctx, "bk-1", money.Zero("USD"), "stranger", "")
		assert.ErrorIs(t, err, booking.ErrNotParticipant)
	})

	t.Run("processor failure is wrapped", func(t *testing.T) {
		f := newFixture(t)
		f.processor.intentErr = errors.New("stripe is down")
		_, err := f.service.CreatePaymentRequest(ctx, "bk-1", money.Zero("USD"), "user-1", "")
		assert.ErrorIs(t, err, ErrProcessor)
	})
}

func TestHandleWebhook(t *testing.T) {
	ctx := context.Background()

	t.Run("bad signature surfaces", func(t *testing.T) {
		f := newFixture(t)
		err := f.service.HandleWebhook(ctx, []byte("{}"), "forged")
		assert.ErrorIs(t, err, policies.ErrInvalidSignature)
	})

	t.Run("success marks paid and appends one ledger entry", func(t *testing.T) {
		f := newFixture(t)
		payload := f.webhookPayload(t, successEvent("evt_1", "py_1", 10000))
		require.NoError(t, f.service.HandleWebhook(ctx, payload, "valid"))

		b, err := f.bookings.ByID(ctx, "bk-1")
		require.NoError(t, err)
		assert.Equal(t, booking.PaymentPaid, b.PaymentStatus)
		assert.Equal(t, "py_1", b.PaymentID)

		txs, err := f.transactions.ByVendor(ctx, "vendor-1")
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, transaction.StatusCompleted, txs[0].Status)
		assert.Equal(t, int64(10000), txs[0].Amount.Amount)
		assert.Equal(t, int64(500), txs[0].Fee.Amount)
		assert.Equal(t, int64(9500), txs[0].Net.Amount)
		assert.Equal(t, "py_1", txs[0].ExternalPaymentID)
	})

	t.Run("redelivery is idempotent", func(t *testing.T) {
		f := newFixture(t)
		payload := f.webhookPayload(t, successEvent("evt_1", "py_1", 10000))
		require.NoError(t, f.service.HandleWebhook(ctx, payload, "valid"))
		require.NoError(t, f.service.HandleWebhook(ctx, payload, "valid"))

		txs, err := f.transactions.ByVendor(ctx, "vendor-1")
		require.NoError(t, err)
		assert.Len(t, txs, 1)
	})

	t.Run("failure marks failed but keeps the booking", func(t *testing.T) {
		f := newFixture(t)
		payload := f.webhookPayload(t, policies.WebhookEvent{
			ID:       "evt_2",
			Type:     policies.EventPaymentFailed,
			Metadata: map[string]string{"booking_id": "bk-1"},
		})
		require.NoError(t, f.service.HandleWebhook(ctx, payload, "valid"))

		b, err := f.bookings.ByID(ctx, "bk-1")
		require.NoError(t, err)
		assert.Equal(t, booking.PaymentFailed, b.PaymentStatus)
		assert.Equal(t, booking.StatusPending, b.Status)
	})

	t.Run("late failure after success is ignored", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.service.HandleWebhook(ctx, f.webhookPayload(t, successEvent("evt_1", "py_1", 10000)), "valid"))
		failed := f.webhookPayload(t, policies.WebhookEvent{
			ID:       "evt_2",
			Type:     policies.EventPaymentFailed,
			Metadata: map[string]string{"booking_id": "bk-1"},
		})
		require.NoError(t, f.service.HandleWebhook(ctx, failed, "valid"))

		b, err := f.bookings.ByID(ctx, "bk-1")
		require.NoError(t, err)
		assert.Equal(t, booking.PaymentPaid, b.PaymentStatus)
	})

	t.Run("success after failure recovers", func(t *testing.T) {
		f := newFixture(t)
		failed := f.webhookPayload(t, policies.WebhookEvent{
			ID:       "evt_1",
			Type:     policies.EventPaymentFailed,
			Metadata: map[string]string{"booking_id": "bk-1"},
		})
		require.NoError(t, f.service.HandleWebhook(ctx, failed, "valid"))
		require.NoError(t, f.service.HandleWebhook(ctx, f.webhookPayload(t, successEvent("evt_2", "py_2", 10000)), "valid"))

		b, err := f.bookings.ByID(ctx, "bk-1")
		require.NoError(t, err)
		assert.Equal(t, booking.PaymentPaid, b.PaymentStatus)
	})

	t.Run("unknown booking is acknowledged without effect", func(t *testing.T) {
		f := newFixture(t)
		ev := successEvent("evt_1", "py_1", 10000)
		ev.Metadata["booking_id"] = "bk-missing"
		require.NoError(t, f.service.HandleWebhook(ctx, f.webhookPayload(t, ev), "valid"))

		txs, err := f.transactions.ByVendor(ctx, "vendor-1")
		require.NoError(t, err)
		assert.Empty(t, txs)
	})

	t.Run("lost ledger entry is recovered on redelivery", func(t *testing.T) {
		f := newFixture(t)
		ledger := &flakyLedger{Repository: f.transactions, failures: 1}
		svc := NewService(f.bookings, ledger, f.processor, nil, nil, 500, "USD").WithClock(func() time.Time { return testNow })

		// First delivery marks the booking paid but the append fails.
		payload := f.webhookPayload(t, successEvent("evt_1", "py_1", 10000))
		require.NoError(t, svc.HandleWebhook(ctx, payload, "valid"))

		b, err := f.bookings.ByID(ctx, "bk-1")
		require.NoError(t, err)
		assert.Equal(t, booking.PaymentPaid, b.PaymentStatus)
		txs, err := f.transactions.ByVendor(ctx, "vendor-1")
		require.NoError(t, err)
		assert.Empty(t, txs)

		// Redelivery of the same event must backfill exactly one entry.
		require.NoError(t, svc.HandleWebhook(ctx, payload, "valid"))
		txs, err = f.transactions.ByVendor(ctx, "vendor-1")
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, "py_1", txs[0].ExternalPaymentID)

		// A third delivery stays idempotent.
		require.NoError(t, svc.HandleWebhook(ctx, payload, "valid"))
		txs, err = f.transactions.ByVendor(ctx, "vendor-1")
		require.NoError(t, err)
		assert.Len(t, txs, 1)
	})

	t.Run("undecodable authentic payload is not a signature failure", func(t *testing.T) {
		f := newFixture(t)
		err := f.service.HandleWebhook(ctx, []byte("not json"), "valid")
		require.Error(t, err)
		assert.ErrorIs(t, err, policies.ErrMalformedEvent)
		assert.NotErrorIs(t, err, policies.ErrInvalidSignature)
	})

	t.Run("unrecognized event type is acknowledged", func(t *testing.T) {
		f := newFixture(t)
		payload := f.webhookPayload(t, policies.WebhookEvent{ID: "evt_9", Type: "charge.updated"})
		assert.NoError(t, f.service.HandleWebhook(ctx, payload, "valid"))
	})
}

func TestRefund(t *testing.T) {
	ctx := context.Background()

	paid := func(t *testing.T) *fixture {
		f := newFixture(t)
		require.NoError(t, f.service.HandleWebhook(ctx, f.webhookPayload(t, successEvent("evt_1", "py_1", 10000)), "valid"))
		return f
	}

	t.Run("full refund", func(t *testing.T) {
		f := paid(t)
		tx, err := f.service.Refund(ctx, "bk-1", "vendor-1", nil, "customer request")
		require.NoError(t, err)
		assert.Equal(t, transaction.StatusRefunded, tx.Status)
		assert.Equal(t, int64(10000), tx.Amount.Amount)
		assert.Equal(t, int64(0), tx.Fee.Amount)
		assert.Equal(t, int64(-10000), tx.Net.Amount)
		// Full refunds omit the amount so the processor refunds the balance.
		assert.Equal(t, int64(0), f.processor.lastRefund.AmountMinor)

		b, err := f.bookings.ByID(ctx, "bk-1")
		require.NoError(t, err)
		assert.Equal(t, booking.PaymentRefunded, b.PaymentStatus)
	})

	t.Run("partial refund", func(t *testing.T) {
		f := paid(t)
		amount := money.Must(2500, "USD")
		tx, err := f.service.Refund(ctx, "bk-1", "vendor-1", &amount, "")
		require.NoError(t, err)
		assert.Equal(t, int64(2500), tx.Amount.Amount)
		assert.Equal(t, int64(-2500), tx.Net.Amount)
		assert.Equal(t, int64(2500), f.processor.lastRefund.AmountMinor)

		b, err := f.bookings.ByID(ctx, "bk-1")
		require.NoError(t, err)
		assert.Equal(t, booking.PaymentPartiallyRefunded, b.PaymentStatus)
	})

	t.Run("only the vendor refunds", func(t *testing.T) {
		f := paid(t)
		_, err := f.service.Refund(ctx, "bk-1", "user-1", nil, "")
		assert.ErrorIs(t, err, booking.ErrNotOwner)
	})

	t.Run("unpaid booking cannot be refunded", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Refund(ctx, "bk-1", "vendor-1", nil, "")
		assert.ErrorIs(t, err, booking.ErrNoPayment)
	})

	t.Run("refund above the total is rejected", func(t *testing.T) {
		f := paid(t)
		amount := money.Must(10001, "USD")
		_, err := f.service.Refund(ctx, "bk-1", "vendor-1", &amount, "")
		assert.ErrorIs(t, err, booking.ErrInvalidAmount)
	})

	t.Run("double refund is rejected", func(t *testing.T) {
		f := paid(t)
		_, err := f.service.Refund(ctx, "bk-1", "vendor-1", nil, "")
		require.NoError(t, err)
		_, err = f.service.Refund(ctx, "bk-1", "vendor-1", nil, "")
		assert.ErrorIs(t, err, booking.ErrNotPaid)
	})

	t.Run("processor failure leaves state untouched", func(t *testing.T) {
		f := paid(t)
		f.processor.refundErr = errors.New("stripe is down")
		_, err := f.service.Refund(ctx, "bk-1", "vendor-1", nil, "")
		assert.ErrorIs(t, err, ErrProcessor)

		b, err := f.bookings.ByID(ctx, "bk-1")
		require.NoError(t, err)
		assert.Equal(t, booking.PaymentPaid, b.PaymentStatus)
	})
}
