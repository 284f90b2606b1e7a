package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidCurrency  = errors.New("money: invalid currency code")
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
	ErrInvalidAmount    = errors.New("money: malformed amount")
)

// Money keeps amounts in integer minor units (cents) to avoid floating
// point drift. Major-unit decimals only appear at the API boundary.
type Money struct {
	Amount   int64
	Currency string
}

// New constructs a Money value validating minimal invariants.
func New(amount int64, currency string) (Money, error) {
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	return Money{Amount: amount, Currency: strings.ToUpper(currency)}, nil
}

// Must creates Money and panics if validation fails; useful in tests and fixtures.
func Must(amount int64, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns the zero amount in the given currency, for accumulators.
func Zero(currency string) Money {
	return Money{Amount: 0, Currency: strings.ToUpper(currency)}
}

// ParseMajor reads a major-unit decimal such as "100.00" into minor units.
// At most two fraction digits are accepted.
func ParseMajor(value, currency string) (Money, error) {
	value = strings.TrimSpace(value)
	neg := strings.HasPrefix(value, "-")
	if neg {
		value = value[1:]
	}
	whole, frac, _ := strings.Cut(value, ".")
	if whole == "" {
		whole = "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	cents := int64(0)
	if frac != "" {
		if len(frac) > 2 {
			return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
		}
		for len(frac) < 2 {
			frac += "0"
		}
		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
		}
	}
	total := units*100 + cents
	if neg {
		total = -total
	}
	return New(total, currency)
}

// Major renders the amount as a major-unit decimal string, e.g. "12.34".
func (m Money) Major() string {
	amount := m.Amount
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}

// Add adds two money values ensuring currencies match.
func (m Money) Add(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

// Sub subtracts other from the receiver.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}, nil
}

// Neg returns the negated amount preserving currency.
func (m Money) Neg() Money {
	return Money{Amount: -m.Amount, Currency: m.Currency}
}

// Fee computes the platform fee at the given rate in basis points,
// rounded half-up to the nearest minor unit.
func (m Money) Fee(bps int64) Money {
	raw := m.Amount * bps
	fee := (raw + 5000) / 10000
	if raw < 0 {
		fee = -((-raw + 5000) / 10000)
	}
	return Money{Amount: fee, Currency: m.Currency}
}

// SplitFee decomposes the amount into (fee, net) at the given rate.
// fee + net == amount holds exactly for every amount.
func (m Money) SplitFee(bps int64) (Money, Money) {
	fee := m.Fee(bps)
	return fee, Money{Amount: m.Amount - fee.Amount, Currency: m.Currency}
}

// IsZero returns true if the amount equals zero.
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// IsPositive returns true for amounts strictly above zero.
func (m Money) IsPositive() bool {
	return m.Amount > 0
}

func (m Money) ensureSameCurrency(other Money) error {
	if m.Currency == "" || other.Currency == "" {
		return ErrInvalidCurrency
	}
	if m.Currency != other.Currency {
		return ErrCurrencyMismatch
	}
	return nil
}
