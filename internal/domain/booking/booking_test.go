package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arad71/Vendor-saas-mvp/internal/domain/listing"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/shared/money"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/shared/timerange"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestBooking(t *testing.T) *Booking {
	t.Helper()
	slot, err := timerange.New(testNow.Add(24*time.Hour), testNow.Add(26*time.Hour))
	require.NoError(t, err)
	b, err := New(CreateParams{
		ID:            "bk-1",
		ListingID:     listing.ListingID("ls-1"),
		VendorID:      listing.VendorID("vendor-1"),
		UserID:        "user-1",
		CustomerName:  "Dana",
		CustomerEmail: "dana@example.com",
		Slot:          slot,
		TotalAmount:   money.Must(10000, "USD"),
		CreatedAt:     testNow,
	})
	require.NoError(t, err)
	return b
}

func TestNewValidates(t *testing.T) {
	b := newTestBooking(t)
	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, PaymentPending, b.PaymentStatus)
	assert.Len(t, b.PendingEvents(), 1)

	slot, _ := timerange.New(testNow, testNow.Add(time.Hour))

	_, err := New(CreateParams{ID: "x", UserID: "u", CustomerName: " ", CustomerEmail: "a@b.c", Slot: slot, TotalAmount: money.Must(1, "USD"), CreatedAt: testNow})
	assert.ErrorIs(t, err, ErrCustomerRequired)

	_, err = New(CreateParams{ID: "x", UserID: "u", CustomerName: "A", CustomerEmail: "a@b.c", Slot: slot, TotalAmount: money.Zero("USD"), CreatedAt: testNow})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestLifecycleTransitions(t *testing.T) {
	b := newTestBooking(t)

	require.NoError(t, b.TransitionTo(StatusConfirmed, testNow))
	assert.Equal(t, StatusConfirmed, b.Status)

	// Same-status transition is a no-op, not an error.
	require.NoError(t, b.TransitionTo(StatusConfirmed, testNow))

	require.NoError(t, b.TransitionTo(StatusCompleted, testNow))

	assert.ErrorIs(t, b.TransitionTo(StatusPending, testNow), ErrInvalidTransition)
	assert.ErrorIs(t, b.TransitionTo(StatusConfirmed, testNow), ErrInvalidTransition)
}

func TestSkippingConfirmationIsRejected(t *testing.T) {
	b := newTestBooking(t)
	assert.ErrorIs(t, b.TransitionTo(StatusCompleted, testNow), ErrInvalidTransition)
}

func TestCancel(t *testing.T) {
	t.Run("pending booking cancels", func(t *testing.T) {
		b := newTestBooking(t)
		require.NoError(t, b.Cancel("vendor-1", "double booked", testNow))
		assert.Equal(t, StatusCancelled, b.Status)
		assert.Equal(t, "vendor-1", b.CancelledBy)
		assert.Equal(t, "double booked", b.CancelReason)
	})

	t.Run("already cancelled", func(t *testing.T) {
		b := newTestBooking(t)
		require.NoError(t, b.Cancel("vendor-1", "", testNow))
		assert.ErrorIs(t, b.Cancel("vendor-1", "", testNow), ErrAlreadyCancelled)
	})

	t.Run("completed booking cannot cancel", func(t *testing.T) {
		b := newTestBooking(t)
		require.NoError(t, b.TransitionTo(StatusConfirmed, testNow))
		require.NoError(t, b.TransitionTo(StatusCompleted, testNow))
		assert.ErrorIs(t, b.Cancel("vendor-1", "", testNow), ErrInvalidTransition)
	})

	t.Run("past booking cannot cancel", func(t *testing.T) {
		b := newTestBooking(t)
		assert.ErrorIs(t, b.Cancel("vendor-1", "", b.Slot.Start.Add(time.Minute)), ErrPastBooking)
	})

	t.Run("cancellation keeps payment status", func(t *testing.T) {
		b := newTestBooking(t)
		require.NoError(t, b.MarkPaid("py_1", testNow))
		require.NoError(t, b.Cancel("user-1", "changed plans", testNow))
		assert.Equal(t, PaymentPaid, b.PaymentStatus)
	})
}

func TestPaymentStateMachine(t *testing.T) {
	t.Run("paid from pending", func(t *testing.T) {
		b := newTestBooking(t)
		require.NoError(t, b.MarkPaid("py_1", testNow))
		assert.Equal(t, PaymentPaid, b.PaymentStatus)
		assert.Equal(t, "py_1", b.PaymentID)
	})

	t.Run("paid after retryable failure", func(t *testing.T) {
		b := newTestBooking(t)
		require.NoError(t, b.MarkPaymentFailed(testNow))
		require.NoError(t, b.MarkPaid("py_2", testNow))
		assert.Equal(t, PaymentPaid, b.PaymentStatus)
	})

	t.Run("late failure loses to paid", func(t *testing.T) {
		b := newTestBooking(t)
		require.NoError(t, b.MarkPaid("py_1", testNow))
		assert.ErrorIs(t, b.MarkPaymentFailed(testNow), ErrPaymentSettled)
		assert.Equal(t, PaymentPaid, b.PaymentStatus)
	})

	t.Run("second success is settled", func(t *testing.T) {
		b := newTestBooking(t)
		require.NoError(t, b.MarkPaid("py_1", testNow))
		assert.ErrorIs(t, b.MarkPaid("py_1", testNow), ErrPaymentSettled)
	})

	t.Run("refund states are terminal", func(t *testing.T) {
		b := newTestBooking(t)
		require.NoError(t, b.MarkPaid("py_1", testNow))
		require.NoError(t, b.MarkRefunded("re_1", b.TotalAmount, false, testNow))
		assert.Equal(t, PaymentRefunded, b.PaymentStatus)
		assert.ErrorIs(t, b.MarkPaid("py_2", testNow), ErrPaymentSettled)
		assert.ErrorIs(t, b.MarkPaymentFailed(testNow), ErrPaymentSettled)
	})
}

func TestMarkRefunded(t *testing.T) {
	t.Run("requires a recorded payment", func(t *testing.T) {
		b := newTestBooking(t)
		assert.ErrorIs(t, b.MarkRefunded("re_1", b.TotalAmount, false, testNow), ErrNoPayment)
	})

	t.Run("partial refund", func(t *testing.T) {
		b := newTestBooking(t)
		require.NoError(t, b.MarkPaid("py_1", testNow))
		require.NoError(t, b.MarkRefunded("re_1", money.Must(2500, "USD"), true, testNow))
		assert.Equal(t, PaymentPartiallyRefunded, b.PaymentStatus)
		assert.Equal(t, "re_1", b.RefundID)

		events := b.PendingEvents()
		require.NotEmpty(t, events)
		refunded, ok := events[len(events)-1].(PaymentRefundedEvent)
		require.True(t, ok)
		assert.Equal(t, "payment.refunded", refunded.EventName())
		assert.True(t, refunded.Partial)
		assert.Equal(t, int64(2500), refunded.Amount.Amount)
	})
}

func TestPatch(t *testing.T) {
	t.Run("wants reschedule", func(t *testing.T) {
		start := testNow.Add(48 * time.Hour)
		assert.True(t, Patch{Start: &start}.WantsReschedule())
		assert.False(t, Patch{}.WantsReschedule())
	})

	t.Run("new slot merges with current", func(t *testing.T) {
		b := newTestBooking(t)
		end := b.Slot.End.Add(time.Hour)
		slot, err := Patch{End: &end}.NewSlot(b.Slot)
		require.NoError(t, err)
		assert.Equal(t, b.Slot.Start, slot.Start)
		assert.Equal(t, end, slot.End)
	})

	t.Run("apply rejects blank customer", func(t *testing.T) {
		b := newTestBooking(t)
		blank := "  "
		assert.ErrorIs(t, b.Apply(Patch{CustomerName: &blank}, testNow), ErrCustomerRequired)
	})

	t.Run("apply updates fields and status", func(t *testing.T) {
		b := newTestBooking(t)
		name := "Morgan"
		notes := "bring keys"
		confirmed := StatusConfirmed
		require.NoError(t, b.Apply(Patch{CustomerName: &name, Notes: &notes, Status: &confirmed}, testNow))
		assert.Equal(t, "Morgan", b.CustomerName)
		assert.Equal(t, "bring keys", b.Notes)
		assert.Equal(t, StatusConfirmed, b.Status)
	})
}
