package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "github.com/arad71/Vendor-saas-mvp/internal/domain/booking"
	domainlisting "github.com/arad71/Vendor-saas-mvp/internal/domain/listing"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/shared/money"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/shared/timerange"
)

const bookingsCollection = "bookings"

var activeStatuses = []string{
	string(domainbooking.StatusPending),
	string(domainbooking.StatusConfirmed),
}

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection(bookingsCollection)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// Create inserts a new booking and then re-verifies the slot against other
// active bookings of the listing. The application-level availability check
// is only an early rejection; this insert-then-verify pass is the actual
// guard against two concurrent creations winning the same slot. When an
// overlapping active booking with an earlier insert exists, the new
// document deletes itself and reports the conflict, so the earliest insert
// wins and exactly one of any racing pair survives.
func (r *BookingRepository) Create(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	doc.Version = 1
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return err
	}
	count, err := r.col.CountDocuments(ctx, conflictFilter(doc))
	if err == nil && count > 0 {
		_, _ = r.col.DeleteOne(ctx, bson.M{"_id": doc.ID})
		return domainbooking.ErrSlotConflict
	}
	if err != nil {
		_, _ = r.col.DeleteOne(ctx, bson.M{"_id": doc.ID})
		return err
	}
	b.Version = doc.Version
	return nil
}

// conflictFilter matches active bookings of the same listing that overlap
// the document's slot and rank before it. Ordering is by creation stamp
// with the document id as tie-break, so of two inserts sharing a
// millisecond exactly one sees the other as earlier and backs off.
func conflictFilter(doc bookingDocument) bson.M {
	return bson.M{
		"listing_id": doc.ListingID,
		"status":     bson.M{"$in": activeStatuses},
		"_id":        bson.M{"$ne": doc.ID},
		"start_ms":   bson.M{"$lt": doc.EndMS},
		"end_ms":     bson.M{"$gt": doc.StartMS},
		"$or": []bson.M{
			{"created_ms": bson.M{"$lt": doc.CreatedMS}},
			{"created_ms": doc.CreatedMS, "_id": bson.M{"$lt": doc.ID}},
		},
	}
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) ActiveByListing(ctx context.Context, listingID domainlisting.ListingID, exclude domainbooking.BookingID) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"listing_id": string(listingID),
		"status":     bson.M{"$in": activeStatuses},
	}
	if exclude != "" {
		filter["_id"] = bson.M{"$ne": string(exclude)}
	}
	return r.find(ctx, filter)
}

func (r *BookingRepository) ByListing(ctx context.Context, listingID domainlisting.ListingID) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"listing_id": string(listingID)})
}

func (r *BookingRepository) ByVendor(ctx context.Context, vendorID domainlisting.VendorID) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"vendor_id": string(vendorID)})
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M) ([]*domainbooking.Booking, error) {
	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainbooking.Booking
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

type bookingDocument struct {
	ID            string `bson:"_id"`
	ListingID     string `bson:"listing_id"`
	VendorID      string `bson:"vendor_id"`
	UserID        string `bson:"user_id"`
	CustomerName  string `bson:"customer_name"`
	CustomerEmail string `bson:"customer_email"`
	CustomerPhone string `bson:"customer_phone"`
	StartMS       int64  `bson:"start_ms"`
	EndMS         int64  `bson:"end_ms"`
	Status        string `bson:"status"`
	Notes         string `bson:"notes"`
	AmountCents   int64  `bson:"amount_cents"`
	Currency      string `bson:"currency"`
	PaymentStatus string `bson:"payment_status"`
	IntentID      string `bson:"stripe_payment_intent_id,omitempty"`
	PaymentID     string `bson:"stripe_payment_id,omitempty"`
	RefundID      string `bson:"refund_id,omitempty"`
	CancelledBy   string `bson:"cancelled_by,omitempty"`
	CancelledMS   int64  `bson:"cancelled_ms,omitempty"`
	CancelReason  string `bson:"cancel_reason,omitempty"`
	CreatedMS     int64  `bson:"created_ms"`
	UpdatedMS     int64  `bson:"updated_ms"`
	Version       int64  `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	doc := bookingDocument{
		ID:            string(b.ID),
		ListingID:     string(b.ListingID),
		VendorID:      string(b.VendorID),
		UserID:        string(b.UserID),
		CustomerName:  b.CustomerName,
		CustomerEmail: b.CustomerEmail,
		CustomerPhone: b.CustomerPhone,
		StartMS:       b.Slot.Start.UnixMilli(),
		EndMS:         b.Slot.End.UnixMilli(),
		Status:        string(b.Status),
		Notes:         b.Notes,
		AmountCents:   b.TotalAmount.Amount,
		Currency:      b.TotalAmount.Currency,
		PaymentStatus: string(b.PaymentStatus),
		IntentID:      b.PaymentIntentID,
		PaymentID:     b.PaymentID,
		RefundID:      b.RefundID,
		CancelledBy:   b.CancelledBy,
		CancelReason:  b.CancelReason,
		CreatedMS:     b.CreatedAt.UnixMilli(),
		UpdatedMS:     b.UpdatedAt.UnixMilli(),
		Version:       b.Version,
	}
	if !b.CancelledAt.IsZero() {
		doc.CancelledMS = b.CancelledAt.UnixMilli()
	}
	return doc
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	b := &domainbooking.Booking{
		ID:            domainbooking.BookingID(d.ID),
		ListingID:     domainlisting.ListingID(d.ListingID),
		VendorID:      domainlisting.VendorID(d.VendorID),
		UserID:        domainbooking.UserID(d.UserID),
		CustomerName:  d.CustomerName,
		CustomerEmail: d.CustomerEmail,
		CustomerPhone: d.CustomerPhone,
		Slot:          timerange.Range{Start: timestampToTime(d.StartMS), End: timestampToTime(d.EndMS)},
		Status:        domainbooking.Status(d.Status),
		Notes:         d.Notes,
		TotalAmount:   money.Money{Amount: d.AmountCents, Currency: d.Currency},
		PaymentStatus: domainbooking.PaymentStatus(d.PaymentStatus),
		CancelledBy:   d.CancelledBy,
		CancelReason:  d.CancelReason,
		CreatedAt:     timestampToTime(d.CreatedMS),
		UpdatedAt:     timestampToTime(d.UpdatedMS),
		Version:       d.Version,
	}
	b.PaymentIntentID = d.IntentID
	b.PaymentID = d.PaymentID
	b.RefundID = d.RefundID
	if d.CancelledMS != 0 {
		b.CancelledAt = timestampToTime(d.CancelledMS)
	}
	return b
}
