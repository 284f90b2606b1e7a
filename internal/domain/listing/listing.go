package listing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/arad71/Vendor-saas-mvp/internal/domain/shared/events"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/shared/money"
)

var (
	ErrNotFound          = errors.New("listing: not found")
	ErrNotOwner          = errors.New("listing: requester does not own this listing")
	ErrNotActive         = errors.New("listing: not active")
	ErrTitleRequired     = errors.New("listing: title is required")
	ErrNegativePrice     = errors.New("listing: price must not be negative")
	ErrInvalidStatus     = errors.New("listing: invalid status transition")
	ErrHasActiveBookings = errors.New("listing: has non-cancelled bookings")
)

type ListingID string
type VendorID string

type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Listing is a vendor's bookable offering. Only the owning vendor mutates it.
// Bookings snapshot Price at creation time, so later edits never reprice them.
type Listing struct {
	ID          ListingID
	VendorID    VendorID
	Title       string
	Description string
	Price       money.Money
	Category    string
	Status      Status
	Images      []string
	Documents   []string
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
	ByVendor(ctx context.Context, vendorID VendorID) ([]*Listing, error)
	Delete(ctx context.Context, id ListingID) error
}

type CreateParams struct {
	ID          ListingID
	VendorID    VendorID
	Title       string
	Description string
	Price       money.Money
	Category    string
	CreatedAt   time.Time
}

func New(params CreateParams) (*Listing, error) {
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if params.VendorID == "" {
		return nil, errors.New("listing: vendor id required")
	}
	if params.Price.Amount < 0 {
		return nil, ErrNegativePrice
	}
	now := params.CreatedAt.UTC()
	return &Listing{
		ID:          params.ID,
		VendorID:    params.VendorID,
		Title:       strings.TrimSpace(params.Title),
		Description: params.Description,
		Price:       params.Price,
		Category:    params.Category,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (l *Listing) OwnedBy(vendorID string) bool {
	return string(l.VendorID) == vendorID
}

func (l *Listing) Activate(now time.Time) error {
	if l.Status == StatusActive {
		return ErrInvalidStatus
	}
	l.Status = StatusActive
	l.UpdatedAt = now.UTC()
	return nil
}

func (l *Listing) Deactivate(now time.Time) error {
	if l.Status != StatusActive {
		return ErrInvalidStatus
	}
	l.Status = StatusInactive
	l.UpdatedAt = now.UTC()
	return nil
}

// Patch enumerates the mutable fields of a listing. Nil pointers leave the
// current value untouched.
type Patch struct {
	Title       *string
	Description *string
	Category    *string
	Price       *money.Money
}

func (l *Listing) Apply(p Patch, now time.Time) error {
	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return ErrTitleRequired
		}
		l.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		l.Description = *p.Description
	}
	if p.Category != nil {
		l.Category = *p.Category
	}
	if p.Price != nil {
		if p.Price.Amount < 0 {
			return ErrNegativePrice
		}
		l.Price = *p.Price
	}
	l.UpdatedAt = now.UTC()
	return nil
}

func (l *Listing) AttachImage(url string, now time.Time) {
	l.Images = append(l.Images, url)
	l.UpdatedAt = now.UTC()
}

func (l *Listing) AttachDocument(url string, now time.Time) {
	l.Documents = append(l.Documents, url)
	l.UpdatedAt = now.UTC()
}
