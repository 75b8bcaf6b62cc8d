package costbasis

import (
	"errors"

	"github.com/etnz/costbasis/date"
)

var (
	// ErrInsufficientLots marks a sale that could not be matched with prior purchases.
	ErrInsufficientLots = errors.New("insufficient lots to match the sale")
	// ErrUnresolvedTransfer marks transferred units whose origin was never found.
	ErrUnresolvedTransfer = errors.New("transferred units were never matched with a purchase")
	// ErrInvalidQuantity is returned for negative units.
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// GainTerm classifies a realized gain by holding period.
type GainTerm int

const (
	Unknown GainTerm = iota
	ShortTerm
	LongTerm
)

func (t GainTerm) String() string {
	switch t {
	case ShortTerm:
		return "short-term"
	case LongTerm:
		return "long-term"
	default:
		return "unknown"
	}
}

// SecuritySale is a realized sale of units that came from a single lot, or
// several lots after consolidation.
type SecuritySale struct {
	Security Security
	Account  *Account
	DateSold date.Date
	// DateAcquired is zero when the units come from lots acquired on various
	// dates, or when the sale could not be matched.
	DateAcquired     date.Date
	UnitsSold        Quantity
	SalePricePerUnit Money
	// CostBasis is the total cost of the units sold. Meaningless when Err is set.
	CostBasis Money
	Term      GainTerm
	// Err is set when the cost basis could not be determined.
	Err error
}

// HasCostBasis reports whether the cost basis of the sale is known.
func (s SecuritySale) HasCostBasis() bool { return s.Err == nil }

// IsVarious reports whether the units sold were acquired on various dates.
func (s SecuritySale) IsVarious() bool { return s.Err == nil && s.DateAcquired.IsZero() }

// Proceeds returns the total amount received for the units sold.
func (s SecuritySale) Proceeds() Money { return s.SalePricePerUnit.Mul(s.UnitsSold) }

// CostBasisPerUnit returns the average cost of the units sold.
func (s SecuritySale) CostBasisPerUnit() Money {
	if s.UnitsSold.IsZero() {
		return s.CostBasis
	}
	return s.CostBasis.Div(s.UnitsSold)
}

// Gain returns the realized gain, proceeds minus cost basis.
func (s SecuritySale) Gain() Money { return s.Proceeds().Sub(s.CostBasis) }

// DaysHeld returns the holding period in calendar days.
func (s SecuritySale) DaysHeld() int { return s.DateSold.DaysSince(s.DateAcquired) }
