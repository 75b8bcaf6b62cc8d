package costbasis

import (
	"cmp"
	"slices"

	"github.com/etnz/costbasis/date"
)

// ConsolidationMode selects which sales are merged together by Consolidate.
type ConsolidationMode int

const (
	// ByAcquisitionDate merges sales of lots acquired on the same day.
	ByAcquisitionDate ConsolidationMode = iota
	// BySaleDate merges sales made on the same day, whatever the
	// acquisition dates. Merged sales are acquired on "various" dates.
	BySaleDate
)

func (m ConsolidationMode) String() string {
	if m == BySaleDate {
		return "sale-date"
	}
	return "acquisition-date"
}

// key returns the date the mode consolidates on.
func (m ConsolidationMode) key(s SecuritySale) date.Date {
	if m == BySaleDate {
		return s.DateSold
	}
	return s.DateAcquired
}

// SortForConsolidation sorts sales by security, then by the date the mode
// consolidates on, then by sale price. The sort is stable.
func SortForConsolidation(sales []SecuritySale, mode ConsolidationMode) {
	slices.SortStableFunc(sales, func(a, b SecuritySale) int {
		if c := cmp.Compare(a.Security.Ticker, b.Security.Ticker); c != 0 {
			return c
		}
		if c := mode.key(a).Compare(mode.key(b)); c != 0 {
			return c
		}
		return a.SalePricePerUnit.Decimal().Cmp(b.SalePricePerUnit.Decimal())
	})
}

// Consolidate merges every sale into the one right before it when both have
// the same security, the same sale price per unit and the same date for the
// mode. Units and cost basis are summed. Sales are never reordered, only
// adjacent sales are merged: see SortForConsolidation.
//
// The input slice is left untouched. Consolidating a consolidated list is a
// no-op.
func Consolidate(sales []SecuritySale, mode ConsolidationMode) []SecuritySale {
	var out []SecuritySale
	for _, s := range sales {
		if n := len(out); n > 0 && mergeable(out[n-1], s, mode) {
			prev := &out[n-1]
			if mode == BySaleDate {
				prev.DateAcquired = date.Date{}
			}
			prev.UnitsSold = prev.UnitsSold.Add(s.UnitsSold)
			prev.CostBasis = prev.CostBasis.Add(s.CostBasis)
			if prev.Err == nil {
				prev.Err = s.Err
			}
			continue
		}
		out = append(out, s)
	}
	return out
}

func mergeable(prev, s SecuritySale, mode ConsolidationMode) bool {
	return prev.Security.Ticker == s.Security.Ticker &&
		prev.SalePricePerUnit.Decimal().Equal(s.SalePricePerUnit.Decimal()) &&
		mode.key(prev) == mode.key(s)
}
