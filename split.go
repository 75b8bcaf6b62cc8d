package costbasis

import (
	"errors"
	"fmt"
	"slices"

	"github.com/etnz/costbasis/date"
)

// ErrInvalidSplit is returned for a split whose numerator or denominator is not positive.
var ErrInvalidSplit = errors.New("invalid split ratio")

// cashInLieuPlaces is the precision of lot units after fractional shares were
// paid cash in lieu.
const cashInLieuPlaces = 6

// StockSplit changes the number of units of a security on a given date: each
// unit held before the split becomes Numerator/Denominator units after it
// (a 2:1 split doubles the position).
type StockSplit struct {
	Security    string // ticker
	Date        date.Date
	Numerator   int64
	Denominator int64
}

// Validate checks the split ratio.
func (s StockSplit) Validate() error {
	if s.Numerator <= 0 || s.Denominator <= 0 {
		return fmt.Errorf("%w %d:%d for %s on %s", ErrInvalidSplit, s.Numerator, s.Denominator, s.Security, s.Date)
	}
	return nil
}

func (s StockSplit) String() string {
	return fmt.Sprintf("%s %d:%d on %s", s.Security, s.Numerator, s.Denominator, s.Date)
}

// SplitTable holds the splits of every security, each list sorted by date.
type SplitTable struct {
	splits map[string][]StockSplit
}

// NewSplitTable returns an empty split table.
func NewSplitTable() *SplitTable {
	return &SplitTable{splits: make(map[string][]StockSplit)}
}

// Add inserts a split in the table. A split on the same date for the same
// security replaces the previous one.
func (t *SplitTable) Add(s StockSplit) error {
	if err := s.Validate(); err != nil {
		return err
	}
	list := t.splits[s.Security]
	i, found := slices.BinarySearchFunc(list, s.Date, func(x StockSplit, d date.Date) int { return x.Date.Compare(d) })
	if found {
		list[i] = s
		return nil
	}
	t.splits[s.Security] = slices.Insert(list, i, s)
	return nil
}

// Of returns the splits of a security in chronological order.
func (t *SplitTable) Of(ticker string) []StockSplit {
	if t == nil {
		return nil
	}
	return slices.Clone(t.splits[ticker])
}

// Len returns the number of splits in the table.
func (t *SplitTable) Len() int {
	if t == nil {
		return 0
	}
	n := 0
	for _, list := range t.splits {
		n += len(list)
	}
	return n
}

// cursor returns a cursor over all the splits of the table, restricted to
// the given securities when any is given.
func (t *SplitTable) cursor(tickers ...string) *splitCursor {
	var all []StockSplit
	if t != nil {
		if len(tickers) == 0 {
			for _, list := range t.splits {
				all = append(all, list...)
			}
		} else {
			for _, ticker := range tickers {
				all = append(all, t.splits[ticker]...)
			}
		}
	}
	// ticker is a tie breaker to keep the order deterministic.
	slices.SortStableFunc(all, func(a, b StockSplit) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		switch {
		case a.Security < b.Security:
			return -1
		case a.Security > b.Security:
			return 1
		}
		return 0
	})
	return &splitCursor{pending: all}
}

// splitCursor hands out the splits of a replay in chronological order, each
// exactly once. The set of pending splits only shrinks.
type splitCursor struct {
	pending []StockSplit
}

// due returns and consumes the splits effective on or before day.
func (c *splitCursor) due(day date.Date) []StockSplit {
	n := 0
	for n < len(c.pending) && !c.pending[n].Date.After(day) {
		n++
	}
	due := c.pending[:n]
	c.pending = c.pending[n:]
	return due
}

// remaining returns the number of splits not yet consumed.
func (c *splitCursor) remaining() int { return len(c.pending) }
