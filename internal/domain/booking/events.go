package booking

import (
	"time"

	"github.com/arad71/Vendor-saas-mvp/internal/domain/listing"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/shared/money"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/shared/timerange"
)

type BookingCreated struct {
	BookingID BookingID
	ListingID listing.ListingID
	VendorID  listing.VendorID
	UserID    UserID
	Slot      timerange.Range
	Total     money.Money
	At        time.Time
}

func (e BookingCreated) EventName() string     { return "booking.created" }
func (e BookingCreated) AggregateID() string   { return string(e.BookingID) }
func (e BookingCreated) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID   BookingID
	ListingID   listing.ListingID
	CancelledBy string
	Reason      string
	At          time.Time
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

type PaymentSucceeded struct {
	BookingID BookingID
	VendorID  listing.VendorID
	PaymentID string
	Amount    money.Money
	At        time.Time
}

func (e PaymentSucceeded) EventName() string     { return "payment.succeeded" }
func (e PaymentSucceeded) AggregateID() string   { return string(e.BookingID) }
func (e PaymentSucceeded) OccurredAt() time.Time { return e.At }

type PaymentFailedEvent struct {
	BookingID BookingID
	VendorID  listing.VendorID
	At        time.Time
}

func (e PaymentFailedEvent) EventName() string     { return "payment.failed" }
func (e PaymentFailedEvent) AggregateID() string   { return string(e.BookingID) }
func (e PaymentFailedEvent) OccurredAt() time.Time { return e.At }

type PaymentRefundedEvent struct {
	BookingID BookingID
	VendorID  listing.VendorID
	RefundID  string
	Amount    money.Money
	Partial   bool
	At        time.Time
}

func (e PaymentRefundedEvent) EventName() string     { return "payment.refunded" }
func (e PaymentRefundedEvent) AggregateID() string   { return string(e.BookingID) }
func (e PaymentRefundedEvent) OccurredAt() time.Time { return e.At }
