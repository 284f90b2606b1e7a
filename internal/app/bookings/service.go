package bookings

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/arad71/Vendor-saas-mvp/internal/app/availability"
	"github.com/arad71/Vendor-saas-mvp/internal/app/policies"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/booking"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/listing"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/shared/events"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/shared/timerange"
)

// Service owns the booking lifecycle: creation, vendor edits and
// cancellation. It never writes payment status.
type Service struct {
	listings     listing.Repository
	bookings     booking.Repository
	availability *availability.Engine
	publisher    policies.EventPublisher
	logger       *slog.Logger
	clock        func() time.Time
}

func NewService(listings listing.Repository, bookings booking.Repository, engine *availability.Engine, publisher policies.EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		listings:     listings,
		bookings:     bookings,
		availability: engine,
		publisher:    publisher,
		logger:       logger,
		clock:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the wall clock, for tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

type CreateParams struct {
	ListingID     listing.ListingID
	UserID        booking.UserID
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Start         time.Time
	End           time.Time
	Notes         string
}

// Create books a slot on an active listing. The total amount is a snapshot
// of the listing price at this moment and is never recomputed afterwards.
func (s *Service) Create(ctx context.Context, params CreateParams) (*booking.Booking, error) {
	l, err := s.listings.ByID(ctx, params.ListingID)
	if err != nil {
		return nil, err
	}
	if l.Status != listing.StatusActive {
		return nil, listing.ErrNotActive
	}
	slot, err := timerange.New(params.Start, params.End)
	if err != nil {
		return nil, err
	}
	free, err := s.availability.IsAvailable(ctx, l.ID, slot, "")
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, booking.ErrSlotConflict
	}
	b, err := booking.New(booking.CreateParams{
		ID:            booking.BookingID(uuid.NewString()),
		ListingID:     l.ID,
		VendorID:      l.VendorID,
		UserID:        params.UserID,
		CustomerName:  params.CustomerName,
		CustomerEmail: params.CustomerEmail,
		CustomerPhone: params.CustomerPhone,
		Slot:          slot,
		Notes:         params.Notes,
		TotalAmount:   l.Price,
		CreatedAt:     s.clock(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, b)
	return b, nil
}

func (s *Service) ByID(ctx context.Context, id booking.BookingID) (*booking.Booking, error) {
	return s.bookings.ByID(ctx, id)
}

func (s *Service) ByVendor(ctx context.Context, vendorID listing.VendorID) ([]*booking.Booking, error) {
	return s.bookings.ByVendor(ctx, vendorID)
}

// Update applies a vendor edit. Time changes revalidate the range and
// re-check availability excluding the booking's own id, so a no-op time
// edit still succeeds.
func (s *Service) Update(ctx context.Context, id booking.BookingID, patch booking.Patch, requesterID string) (*booking.Booking, error) {
	b, err := s.bookings.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if string(b.VendorID) != requesterID {
		return nil, booking.ErrNotOwner
	}
	now := s.clock()
	if patch.WantsReschedule() {
		slot, err := patch.NewSlot(b.Slot)
		if err != nil {
			return nil, err
		}
		free, err := s.availability.IsAvailable(ctx, b.ListingID, slot, b.ID)
		if err != nil {
			return nil, err
		}
		if !free {
			return nil, booking.ErrSlotConflict
		}
		if err := b.Reschedule(slot, now); err != nil {
			return nil, err
		}
	}
	if err := b.Apply(patch, now); err != nil {
		return nil, err
	}
	if err := s.bookings.Save(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Cancel is open to the vendor and the booking's customer. Past bookings
// cannot be cancelled; the check runs against wall-clock time at request
// time, there is no background sweep.
func (s *Service) Cancel(ctx context.Context, id booking.BookingID, requesterID, reason string) (*booking.Booking, error) {
	b, err := s.bookings.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if requesterID != string(b.VendorID) && requesterID != string(b.UserID) {
		return nil, booking.ErrNotParticipant
	}
	if err := b.Cancel(requesterID, reason, s.clock()); err != nil {
		return nil, err
	}
	if err := s.bookings.Save(ctx, b); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, b)
	return b, nil
}

// HasActiveBookings reports whether any booking of the listing is not
// cancelled. The listing service consults it before deleting a listing.
func (s *Service) HasActiveBookings(ctx context.Context, listingID listing.ListingID) (bool, error) {
	all, err := s.bookings.ByListing(ctx, listingID)
	if err != nil {
		return false, err
	}
	for _, b := range all {
		if b.Status != booking.StatusCancelled {
			return true, nil
		}
	}
	return false, nil
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
		if err := s.publisher.Publish(ctx, ev); err != nil && s.logger != nil {
			s.logger.Warn("event publish failed", "event", ev.EventName(), "aggregate_id", ev.AggregateID(), "error", err)
		}
	}
	rec.ClearEvents()
}
