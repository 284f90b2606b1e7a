package listings

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/arad71/Vendor-saas-mvp/internal/app/policies"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/listing"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/shared/money"
)

// BookingGuard is the pre-check consulted before a listing is deleted.
type BookingGuard interface {
	HasActiveBookings(ctx context.Context, listingID listing.ListingID) (bool, error)
}

type Service struct {
	listings listing.Repository
	guard    BookingGuard
	storage  policies.ObjectStorage
	logger   *slog.Logger
	clock    func() time.Time
}

func NewService(listings listing.Repository, guard BookingGuard, storage policies.ObjectStorage, logger *slog.Logger) *Service {
	return &Service{
		listings: listings,
		guard:    guard,
		storage:  storage,
		logger:   logger,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the wall clock, for tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

type CreateParams struct {
	VendorID    listing.VendorID
	Title       string
	Description string
	Price       money.Money
	Category    string
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*listing.Listing, error) {
	l, err := listing.New(listing.CreateParams{
		ID:          listing.ListingID(uuid.NewString()),
		VendorID:    params.VendorID,
		Title:       params.Title,
		Description: params.Description,
		Price:       params.Price,
		Category:    params.Category,
		CreatedAt:   s.clock(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.listings.Save(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) ByID(ctx context.Context, id listing.ListingID) (*listing.Listing, error) {
	return s.listings.ByID(ctx, id)
}

func (s *Service) ByVendor(ctx context.Context, vendorID listing.VendorID) ([]*listing.Listing, error) {
	return s.listings.ByVendor(ctx, vendorID)
}

func (s *Service) Update(ctx context.Context, id listing.ListingID, patch listing.Patch, requesterID string) (*listing.Listing, error) {
	l, err := s.owned(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}
	if err := l.Apply(patch, s.clock()); err != nil {
		return nil, err
	}
	if err := s.listings.Save(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) Activate(ctx context.Context, id listing.ListingID, requesterID string) (*listing.Listing, error) {
	return s.transition(ctx, id, requesterID, (*listing.Listing).Activate)
}

func (s *Service) Deactivate(ctx context.Context, id listing.ListingID, requesterID string) (*listing.Listing, error) {
	return s.transition(ctx, id, requesterID, (*listing.Listing).Deactivate)
}

// Delete removes a listing unless it still has non-cancelled bookings.
func (s *Service) Delete(ctx context.Context, id listing.ListingID, requesterID string) error {
	l, err := s.owned(ctx, id, requesterID)
	if err != nil {
		return err
	}
	busy, err := s.guard.HasActiveBookings(ctx, l.ID)
	if err != nil {
		return err
	}
	if busy {
		return listing.ErrHasActiveBookings
	}
	return s.listings.Delete(ctx, l.ID)
}

// UploadImage stores an image through the object storage port and records
// its public URL on the listing.
func (s *Service) UploadImage(ctx context.Context, id listing.ListingID, requesterID, filename string, reader io.Reader, contentType string) (*listing.Listing, error) {
	l, err := s.owned(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("listings/%s/%s-%s", l.ID, uuid.NewString(), path.Base(filename))
	url, err := s.storage.Upload(ctx, key, reader, contentType)
	if err != nil {
		return nil, err
	}
	l.AttachImage(url, s.clock())
	if err := s.listings.Save(ctx, l); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Info("listing image stored", "listing_id", l.ID, "url", url)
	}
	return l, nil
}

func (s *Service) owned(ctx context.Context, id listing.ListingID, requesterID string) (*listing.Listing, error) {
	l, err := s.listings.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !l.OwnedBy(requesterID) {
		return nil, listing.ErrNotOwner
	}
	return l, nil
}

func (s *Service) transition(ctx context.Context, id listing.ListingID, requesterID string, fn func(*listing.Listing, time.Time) error) (*listing.Listing, error) {
	l, err := s.owned(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}
	if err := fn(l, s.clock()); err != nil {
		return nil, err
	}
	if err := s.listings.Save(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}
