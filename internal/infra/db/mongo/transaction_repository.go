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
	domaintx "github.com/arad71/Vendor-saas-mvp/internal/domain/transaction"
)

const transactionsCollection = "transactions"

// TransactionRepository is append-only; entries are never updated. The
// unique index on external_payment_id turns duplicate webhook deliveries
// into ErrDuplicate instead of double ledger entries.
type TransactionRepository struct {
	col *mongo.Collection
}

func NewTransactionRepository(db *mongo.Database) *TransactionRepository {
	return &TransactionRepository{col: db.Collection(transactionsCollection)}
}

func (r *TransactionRepository) Append(ctx context.Context, tx *domaintx.Transaction) error {
	if _, err := r.col.InsertOne(ctx, newTransactionDocument(tx)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domaintx.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *TransactionRepository) ByExternalPaymentID(ctx context.Context, externalID string) (*domaintx.Transaction, error) {
	var doc transactionDocument
	if err := r.col.FindOne(ctx, bson.M{"external_payment_id": externalID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domaintx.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *TransactionRepository) ByVendor(ctx context.Context, vendorID domainlisting.VendorID) ([]*domaintx.Transaction, error) {
	return r.find(ctx, bson.M{"vendor_id": string(vendorID)})
}

func (r *TransactionRepository) ByBooking(ctx context.Context, bookingID domainbooking.BookingID) ([]*domaintx.Transaction, error) {
	return r.find(ctx, bson.M{"booking_id": string(bookingID)})
}

func (r *TransactionRepository) find(ctx context.Context, filter bson.M) ([]*domaintx.Transaction, error) {
	opts := options.Find().SetSort(bson.M{"created_ms": 1})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domaintx.Transaction
	for cur.Next(ctx) {
		var doc transactionDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

type transactionDocument struct {
	ID                string `bson:"_id"`
	BookingID         string `bson:"booking_id"`
	VendorID          string `bson:"vendor_id"`
	AmountCents       int64  `bson:"amount_cents"`
	FeeCents          int64  `bson:"fee_cents"`
	NetCents          int64  `bson:"net_cents"`
	Currency          string `bson:"currency"`
	ExternalPaymentID string `bson:"external_payment_id"`
	Status            string `bson:"status"`
	CreatedMS         int64  `bson:"created_ms"`
}

func newTransactionDocument(tx *domaintx.Transaction) transactionDocument {
	return transactionDocument{
		ID:                string(tx.ID),
		BookingID:         string(tx.BookingID),
		VendorID:          string(tx.VendorID),
		AmountCents:       tx.Amount.Amount,
		FeeCents:          tx.Fee.Amount,
		NetCents:          tx.Net.Amount,
		Currency:          tx.Amount.Currency,
		ExternalPaymentID: tx.ExternalPaymentID,
		Status:            string(tx.Status),
		CreatedMS:         tx.CreatedAt.UnixMilli(),
	}
}

func (d transactionDocument) toAggregate() *domaintx.Transaction {
	return &domaintx.Transaction{
		ID:                domaintx.TransactionID(d.ID),
		BookingID:         domainbooking.BookingID(d.BookingID),
		VendorID:          domainlisting.VendorID(d.VendorID),
		Amount:            money.Money{Amount: d.AmountCents, Currency: d.Currency},
		Fee:               money.Money{Amount: d.FeeCents, Currency: d.Currency},
		Net:               money.Money{Amount: d.NetCents, Currency: d.Currency},
		ExternalPaymentID: d.ExternalPaymentID,
		Status:            domaintx.Status(d.Status),
		CreatedAt:         timestampToTime(d.CreatedMS),
	}
}
