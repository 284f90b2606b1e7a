package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/arad71/Vendor-saas-mvp/internal/domain/listing"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/shared/events"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/shared/money"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/shared/timerange"
)

var (
	ErrNotFound          = errors.New("booking: not found")
	ErrNotOwner          = errors.New("booking: only the listing vendor may do this")
	ErrNotParticipant    = errors.New("booking: requester is neither vendor nor customer")
	ErrSlotConflict      = errors.New("booking: time slot overlaps an existing booking")
	ErrAlreadyCancelled  = errors.New("booking: already cancelled")
	ErrPastBooking       = errors.New("booking: start time has already passed")
	ErrInvalidTransition = errors.New("booking: invalid status transition")
	ErrInvalidAmount     = errors.New("booking: total must be positive")
	ErrCustomerRequired  = errors.New("booking: customer name and email required")

	ErrPaymentSettled = errors.New("booking: payment already settled")
	ErrNoPayment      = errors.New("booking: no payment recorded")
	ErrNotPaid        = errors.New("booking: payment is not in paid state")
)

type BookingID string
type UserID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Active reports whether a booking in this status occupies its time slot.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "pending"
	PaymentPaid              PaymentStatus = "paid"
	PaymentFailed            PaymentStatus = "failed"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

// Booking is a reservation of a listing for a half-open time slot.
// Lifecycle status and payment status are independent state machines:
// the payment orchestrator is the only writer of PaymentStatus, and
// booking edits never reset it.
type Booking struct {
	ID            BookingID
	ListingID     listing.ListingID
	VendorID      listing.VendorID
	UserID        UserID
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Slot          timerange.Range
	Status        Status
	Notes         string
	TotalAmount   money.Money
	PaymentStatus PaymentStatus

	PaymentIntentID string
	PaymentID       string
	RefundID        string

	CancelledBy  string
	CancelledAt  time.Time
	CancelReason string

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	// Create persists a new booking and is the storage-level guard against
	// double booking: it returns ErrSlotConflict when a concurrent insert won
	// the same slot.
	Create(ctx context.Context, b *Booking) error
	Save(ctx context.Context, b *Booking) error
	// ActiveByListing returns bookings whose status still occupies a slot,
	// optionally excluding one booking id (used when rescheduling).
	ActiveByListing(ctx context.Context, listingID listing.ListingID, exclude BookingID) ([]*Booking, error)
	ByListing(ctx context.Context, listingID listing.ListingID) ([]*Booking, error)
	ByVendor(ctx context.Context, vendorID listing.VendorID) ([]*Booking, error)
}

type CreateParams struct {
	ID            BookingID
	ListingID     listing.ListingID
	VendorID      listing.VendorID
	UserID        UserID
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Slot          timerange.Range
	Notes         string
	TotalAmount   money.Money
	CreatedAt     time.Time
}

func New(params CreateParams) (*Booking, error) {
	if err := params.Slot.Validate(); err != nil {
		return nil, err
	}
	if params.UserID == "" {
		return nil, errors.New("booking: user id required")
	}
	if strings.TrimSpace(params.CustomerName) == "" || strings.TrimSpace(params.CustomerEmail) == "" {
		return nil, ErrCustomerRequired
	}
	if !params.TotalAmount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:            params.ID,
		ListingID:     params.ListingID,
		VendorID:      params.VendorID,
		UserID:        params.UserID,
		CustomerName:  strings.TrimSpace(params.CustomerName),
		CustomerEmail: strings.TrimSpace(params.CustomerEmail),
		CustomerPhone: strings.TrimSpace(params.CustomerPhone),
		Slot:          params.Slot,
		Notes:         params.Notes,
		TotalAmount:   params.TotalAmount,
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	b.Record(BookingCreated{BookingID: b.ID, ListingID: b.ListingID, VendorID: b.VendorID, UserID: b.UserID, Slot: b.Slot, Total: b.TotalAmount, At: now})
	return b, nil
}

// TransitionTo enforces the lifecycle state machine:
// pending -> confirmed -> completed, with cancellation handled by Cancel.
func (b *Booking) TransitionTo(next Status, now time.Time) error {
	switch {
	case next == b.Status:
		return nil
	case b.Status == StatusPending && next == StatusConfirmed:
	case b.Status == StatusConfirmed && next == StatusCompleted:
	default:
		return ErrInvalidTransition
	}
	b.Status = next
	b.UpdatedAt = now.UTC()
	return nil
}

func (b *Booking) Cancel(by, reason string, now time.Time) error {
	if b.Status == StatusCancelled {
		return ErrAlreadyCancelled
	}
	if b.Status == StatusCompleted {
		return ErrInvalidTransition
	}
	if b.Slot.Start.Before(now.UTC()) {
		return ErrPastBooking
	}
	b.Status = StatusCancelled
	b.CancelledBy = by
	b.CancelledAt = now.UTC()
	b.CancelReason = reason
	b.UpdatedAt = b.CancelledAt
	b.Record(BookingCancelled{BookingID: b.ID, ListingID: b.ListingID, CancelledBy: by, Reason: reason, At: b.UpdatedAt})
	return nil
}

// Patch enumerates the fields a vendor may edit. Time changes go through
// Reschedule after the caller re-checked availability.
type Patch struct {
	CustomerName  *string
	CustomerEmail *string
	CustomerPhone *string
	Notes         *string
	Start         *time.Time
	End           *time.Time
	Status        *Status
}

func (p Patch) WantsReschedule() bool {
	return p.Start != nil || p.End != nil
}

// NewSlot resolves the patched time range against the current slot.
func (p Patch) NewSlot(current timerange.Range) (timerange.Range, error) {
	start := current.Start
	end := current.End
	if p.Start != nil {
		start = *p.Start
	}
	if p.End != nil {
		end = *p.End
	}
	return timerange.New(start, end)
}

func (b *Booking) Apply(p Patch, now time.Time) error {
	if p.CustomerName != nil {
		if strings.TrimSpace(*p.CustomerName) == "" {
			return ErrCustomerRequired
		}
		b.CustomerName = strings.TrimSpace(*p.CustomerName)
	}
	if p.CustomerEmail != nil {
		if strings.TrimSpace(*p.CustomerEmail) == "" {
			return ErrCustomerRequired
		}
		b.CustomerEmail = strings.TrimSpace(*p.CustomerEmail)
	}
	if p.CustomerPhone != nil {
		b.CustomerPhone = strings.TrimSpace(*p.CustomerPhone)
	}
	if p.Notes != nil {
		b.Notes = *p.Notes
	}
	if p.Status != nil {
		if err := b.TransitionTo(*p.Status, now); err != nil {
			return err
		}
	}
	b.UpdatedAt = now.UTC()
	return nil
}

func (b *Booking) Reschedule(slot timerange.Range, now time.Time) error {
	if err := slot.Validate(); err != nil {
		return err
	}
	b.Slot = slot
	b.UpdatedAt = now.UTC()
	return nil
}

// AttachIntent records the external payment intent created for this booking.
func (b *Booking) AttachIntent(intentID string, now time.Time) {
	b.PaymentIntentID = intentID
	b.PaymentStatus = PaymentPending
	b.UpdatedAt = now.UTC()
}

// MarkPaid applies a successful payment notification. Refund states are
// terminal; a success arriving after one is reported as settled.
func (b *Booking) MarkPaid(paymentID string, now time.Time) error {
	switch b.PaymentStatus {
	case PaymentPending, PaymentFailed:
	default:
		return ErrPaymentSettled
	}
	b.PaymentStatus = PaymentPaid
	b.PaymentID = paymentID
	b.UpdatedAt = now.UTC()
	b.Record(PaymentSucceeded{BookingID: b.ID, VendorID: b.VendorID, PaymentID: paymentID, Amount: b.TotalAmount, At: b.UpdatedAt})
	return nil
}

// MarkPaymentFailed applies a failure notification. Paid and refund states
// win over a late failure: out-of-order webhook deliveries must not undo a
// settled payment.
func (b *Booking) MarkPaymentFailed(now time.Time) error {
	switch b.PaymentStatus {
	case PaymentPending, PaymentFailed:
	default:
		return ErrPaymentSettled
	}
	b.PaymentStatus = PaymentFailed
	b.UpdatedAt = now.UTC()
	b.Record(PaymentFailedEvent{BookingID: b.ID, VendorID: b.VendorID, At: b.UpdatedAt})
	return nil
}

func (b *Booking) MarkRefunded(refundID string, amount money.Money, partial bool, now time.Time) error {
	if b.PaymentID == "" {
		return ErrNoPayment
	}
	if b.PaymentStatus != PaymentPaid {
		return ErrNotPaid
	}
	if partial {
		b.PaymentStatus = PaymentPartiallyRefunded
	} else {
		b.PaymentStatus = PaymentRefunded
	}
	b.RefundID = refundID
	b.UpdatedAt = now.UTC()
	b.Record(PaymentRefundedEvent{BookingID: b.ID, VendorID: b.VendorID, RefundID: refundID, Amount: amount, Partial: partial, At: b.UpdatedAt})
	return nil
}
