package memory

import (
	"context"
	"sort"
	"sync"

	domainbooking "github.com/arad71/Vendor-saas-mvp/internal/domain/booking"
	domainlisting "github.com/arad71/Vendor-saas-mvp/internal/domain/listing"
	domaintx "github.com/arad71/Vendor-saas-mvp/internal/domain/transaction"
)

// ListingRepository is an in-memory implementation for tests and demo runs.
type ListingRepository struct {
	mu    sync.RWMutex
	items map[domainlisting.ListingID]*domainlisting.Listing
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{items: make(map[domainlisting.ListingID]*domainlisting.Listing)}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlisting.ListingID) (*domainlisting.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.items[id]
	if !ok {
		return nil, domainlisting.ErrNotFound
	}
	clone := *l
	return &clone, nil
}

func (r *ListingRepository) Save(ctx context.Context, l *domainlisting.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l.Version++
	clone := *l
	r.items[l.ID] = &clone
	return nil
}

func (r *ListingRepository) ByVendor(ctx context.Context, vendorID domainlisting.VendorID) ([]*domainlisting.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainlisting.Listing
	for _, l := range r.items {
		if l.VendorID == vendorID {
			clone := *l
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *ListingRepository) Delete(ctx context.Context, id domainlisting.ListingID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return domainlisting.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

// BookingRepository keeps bookings in a map. Create runs the overlap check
// and the insert under one lock, so the check-then-act window the service
// layer accepts is closed here.
type BookingRepository struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]*domainbooking.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{items: make(map[domainbooking.BookingID]*domainbooking.Booking)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrNotFound
	}
	clone := *b
	return &clone, nil
}

func (r *BookingRepository) Create(ctx context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.ListingID != b.ListingID || existing.ID == b.ID {
			continue
		}
		if existing.Status.Active() && existing.Slot.Overlaps(b.Slot) {
			return domainbooking.ErrSlotConflict
		}
	}
	b.Version = 1
	clone := *b
	r.items[b.ID] = &clone
	return nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.Version++
	clone := *b
	r.items[b.ID] = &clone
	return nil
}

func (r *BookingRepository) ActiveByListing(ctx context.Context, listingID domainlisting.ListingID, exclude domainbooking.BookingID) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainbooking.Booking
	for _, b := range r.items {
		if b.ListingID != listingID || b.ID == exclude || !b.Status.Active() {
			continue
		}
		clone := *b
		out = append(out, &clone)
	}
	return out, nil
}

func (r *BookingRepository) ByListing(ctx context.Context, listingID domainlisting.ListingID) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainbooking.Booking
	for _, b := range r.items {
		if b.ListingID == listingID {
			clone := *b
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *BookingRepository) ByVendor(ctx context.Context, vendorID domainlisting.VendorID) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainbooking.Booking
	for _, b := range r.items {
		if b.VendorID == vendorID {
			clone := *b
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// TransactionRepository is an append-only slice guarded by a mutex, with a
// by-external-id index enforcing ledger idempotency.
type TransactionRepository struct {
	mu         sync.RWMutex
	entries    []*domaintx.Transaction
	byExternal map[string]*domaintx.Transaction
}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{byExternal: make(map[string]*domaintx.Transaction)}
}

func (r *TransactionRepository) Append(ctx context.Context, tx *domaintx.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byExternal[tx.ExternalPaymentID]; exists {
		return domaintx.ErrDuplicate
	}
	clone := *tx
	r.entries = append(r.entries, &clone)
	r.byExternal[tx.ExternalPaymentID] = &clone
	return nil
}

func (r *TransactionRepository) ByExternalPaymentID(ctx context.Context, externalID string) (*domaintx.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tx, ok := r.byExternal[externalID]
	if !ok {
		return nil, domaintx.ErrNotFound
	}
	clone := *tx
	return &clone, nil
}

func (r *TransactionRepository) ByVendor(ctx context.Context, vendorID domainlisting.VendorID) ([]*domaintx.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domaintx.Transaction
	for _, tx := range r.entries {
		if tx.VendorID == vendorID {
			clone := *tx
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *TransactionRepository) ByBooking(ctx context.Context, bookingID domainbooking.BookingID) ([]*domaintx.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domaintx.Transaction
	for _, tx := range r.entries {
		if tx.BookingID == bookingID {
			clone := *tx
			out = append(out, &clone)
		}
	}
	return out, nil
}
