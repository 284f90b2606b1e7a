package availability

import (
	"context"

	"github.com/arad71/Vendor-saas-mvp/internal/domain/booking"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/listing"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/shared/timerange"
)

// Engine answers whether a proposed slot conflicts with existing active
// bookings of a listing. Pure read; the storage layer repeats the check
// on insert to close the check-then-act window.
type Engine struct {
	bookings booking.Repository
}

func NewEngine(bookings booking.Repository) *Engine {
	return &Engine{bookings: bookings}
}

// IsAvailable reports whether slot is free on the listing. Bookings in
// pending or confirmed status occupy their slot; cancelled and completed
// ones do not. exclude skips one booking id so rescheduling a booking
// onto (part of) its own slot is not a self-conflict.
func (e *Engine) IsAvailable(ctx context.Context, listingID listing.ListingID, slot timerange.Range, exclude booking.BookingID) (bool, error) {
	if err := slot.Validate(); err != nil {
		return false, err
	}
	active, err := e.bookings.ActiveByListing(ctx, listingID, exclude)
	if err != nil {
		return false, err
	}
	for _, b := range active {
		if b.Slot.Overlaps(slot) {
			return false, nil
		}
	}
	return true, nil
}
