package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arad71/Vendor-saas-mvp/internal/domain/booking"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/shared/money"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/shared/timerange"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/transaction"
)

var testNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func makeBooking(t *testing.T, id string, startHour, endHour int) *booking.Booking {
	t.Helper()
	slot, err := timerange.New(testNow.Add(time.Duration(startHour)*time.Hour), testNow.Add(time.Duration(endHour)*time.Hour))
	require.NoError(t, err)
	b, err := booking.New(booking.CreateParams{
		ID:            booking.BookingID(id),
		ListingID:     "ls-1",
		VendorID:      "vendor-1",
		UserID:        "user-1",
		CustomerName:  "Dana",
		CustomerEmail: "dana@example.com",
		Slot:          slot,
		TotalAmount:   money.Must(5000, "USD"),
		CreatedAt:     testNow,
	})
	require.NoError(t, err)
	return b
}

func TestBookingCreateRejectsOverlap(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository()

	require.NoError(t, repo.Create(ctx, makeBooking(t, "bk-1", 9, 11)))

	err := repo.Create(ctx, makeBooking(t, "bk-2", 10, 12))
	assert.ErrorIs(t, err, booking.ErrSlotConflict)

	// Half-open slots touching at the boundary coexist.
	assert.NoError(t, repo.Create(ctx, makeBooking(t, "bk-3", 11, 13)))
}

func TestBookingCreateIgnoresCancelled(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository()

	first := makeBooking(t, "bk-1", 9, 11)
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, first.Cancel("vendor-1", "", testNow))
	require.NoError(t, repo.Save(ctx, first))

	assert.NoError(t, repo.Create(ctx, makeBooking(t, "bk-2", 9, 11)))
}

func TestBookingVersioning(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository()

	b := makeBooking(t, "bk-1", 9, 11)
	require.NoError(t, repo.Create(ctx, b))
	assert.Equal(t, int64(1), b.Version)

	require.NoError(t, repo.Save(ctx, b))
	assert.Equal(t, int64(2), b.Version)

	stored, err := repo.ByID(ctx, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Version)
}

func TestBookingReadsCloneState(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository()

	b := makeBooking(t, "bk-1", 9, 11)
	require.NoError(t, repo.Create(ctx, b))

	read, err := repo.ByID(ctx, "bk-1")
	require.NoError(t, err)
	read.CustomerName = "Mutated"

	again, err := repo.ByID(ctx, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, "Dana", again.CustomerName)
}

func TestTransactionAppendIsIdempotentPerExternalID(t *testing.T) {
	ctx := context.Background()
	repo := NewTransactionRepository()

	tx, err := transaction.NewCompleted("tx-1", "bk-1", "vendor-1", money.Must(10000, "USD"), 500, "py_1", testNow)
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, tx))

	dup, err := transaction.NewCompleted("tx-2", "bk-1", "vendor-1", money.Must(10000, "USD"), 500, "py_1", testNow)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Append(ctx, dup), transaction.ErrDuplicate)

	found, err := repo.ByExternalPaymentID(ctx, "py_1")
	require.NoError(t, err)
	assert.Equal(t, transaction.TransactionID("tx-1"), found.ID)

	_, err = repo.ByExternalPaymentID(ctx, "py_missing")
	assert.ErrorIs(t, err, transaction.ErrNotFound)
}
