package transaction

import (
	"context"
	"errors"
	"time"

	"github.com/arad71/Vendor-saas-mvp/internal/domain/booking"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/listing"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/shared/money"
)

var (
	ErrNotFound  = errors.New("transaction: not found")
	ErrDuplicate = errors.New("transaction: external payment already recorded")
)

type TransactionID string

type Status string

const (
	StatusCompleted Status = "completed"
	StatusRefunded  Status = "refunded"
)

// Transaction is an immutable ledger entry: exactly one per successful
// payment, at most one per refund. Amount is always positive; a refunded
// entry carries Net = -Amount so sums over Net give money actually kept.
type Transaction struct {
	ID                TransactionID
	BookingID         booking.BookingID
	VendorID          listing.VendorID
	Amount            money.Money
	Fee               money.Money
	Net               money.Money
	ExternalPaymentID string
	Status            Status
	CreatedAt         time.Time
}

type Repository interface {
	// Append inserts a ledger entry; ErrDuplicate when an entry with the
	// same external payment id already exists.
	Append(ctx context.Context, tx *Transaction) error
	ByExternalPaymentID(ctx context.Context, externalID string) (*Transaction, error)
	ByVendor(ctx context.Context, vendorID listing.VendorID) ([]*Transaction, error)
	ByBooking(ctx context.Context, bookingID booking.BookingID) ([]*Transaction, error)
}

// NewCompleted records a successful payment, decomposing the amount into
// platform fee and vendor net at the given rate in basis points.
func NewCompleted(id TransactionID, bookingID booking.BookingID, vendorID listing.VendorID, amount money.Money, feeBps int64, externalPaymentID string, now time.Time) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, errors.New("transaction: amount must be positive")
	}
	if externalPaymentID == "" {
		return nil, errors.New("transaction: external payment id required")
	}
	fee, net := amount.SplitFee(feeBps)
	return &Transaction{
		ID:                id,
		BookingID:         bookingID,
		VendorID:          vendorID,
		Amount:            amount,
		Fee:               fee,
		Net:               net,
		ExternalPaymentID: externalPaymentID,
		Status:            StatusCompleted,
		CreatedAt:         now.UTC(),
	}, nil
}

// NewRefund records a refund outflow. Fee is zero and Net mirrors the
// refunded amount negatively.
func NewRefund(id TransactionID, bookingID booking.BookingID, vendorID listing.VendorID, amount money.Money, refundID string, now time.Time) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, errors.New("transaction: refund amount must be positive")
	}
	if refundID == "" {
		return nil, errors.New("transaction: refund id required")
	}
	return &Transaction{
		ID:                id,
		BookingID:         bookingID,
		VendorID:          vendorID,
		Amount:            amount,
		Fee:               money.Zero(amount.Currency),
		Net:               amount.Neg(),
		ExternalPaymentID: refundID,
		Status:            StatusRefunded,
		CreatedAt:         now.UTC(),
	}, nil
}
