package metrics

import (
	"context"
	"time"

	"github.com/arad71/Vendor-saas-mvp/internal/domain/booking"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/listing"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/shared/money"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/transaction"
)

// Report is a read-time summary of a vendor's bookings and ledger.
// Revenue is gross over completed transactions; refunds are broken out
// separately and additionally netted into NetRevenue.
type Report struct {
	TotalBookings int                    `json:"total_bookings"`
	ByStatus      map[booking.Status]int `json:"by_status"`
	Upcoming      int                    `json:"upcoming"`
	Past          int                    `json:"past"`

	Revenue     money.Money `json:"revenue"`
	Refunds     money.Money `json:"refunds"`
	NetRevenue  money.Money `json:"net_revenue"`
	Payments    int         `json:"payments"`
	RefundCount int         `json:"refund_count"`
}

// Service derives vendor summaries by scanning bookings and transactions.
// It holds no state of its own.
type Service struct {
	bookings     booking.Repository
	transactions transaction.Repository
	currency     string
	clock        func() time.Time
}

func NewService(bookings booking.Repository, transactions transaction.Repository, currency string) *Service {
	if currency == "" {
		currency = "USD"
	}
	return &Service{
		bookings:     bookings,
		transactions: transactions,
		currency:     currency,
		clock:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the wall clock, for tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

func (s *Service) Report(ctx context.Context, vendorID listing.VendorID) (Report, error) {
	now := s.clock()
	report := Report{
		ByStatus:   map[booking.Status]int{},
		Revenue:    money.Zero(s.currency),
		Refunds:    money.Zero(s.currency),
		NetRevenue: money.Zero(s.currency),
	}

	bookings, err := s.bookings.ByVendor(ctx, vendorID)
	if err != nil {
		return Report{}, err
	}
	report.TotalBookings = len(bookings)
	for _, b := range bookings {
		report.ByStatus[b.Status]++
		// Upcoming vs past is computed against the clock at read time,
		// never stored.
		if b.Slot.Start.After(now) {
			report.Upcoming++
		} else {
			report.Past++
		}
	}

	txs, err := s.transactions.ByVendor(ctx, vendorID)
	if err != nil {
		return Report{}, err
	}
	for _, tx := range txs {
		switch tx.Status {
		case transaction.StatusCompleted:
			report.Payments++
			if report.Revenue, err = report.Revenue.Add(tx.Amount); err != nil {
				return Report{}, err
			}
		case transaction.StatusRefunded:
			report.RefundCount++
			if report.Refunds, err = report.Refunds.Add(tx.Amount); err != nil {
				return Report{}, err
			}
		}
		if report.NetRevenue, err = report.NetRevenue.Add(tx.Net); err != nil {
			return Report{}, err
		}
	}
	return report, nil
}
