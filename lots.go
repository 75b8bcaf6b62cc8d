package costbasis

import (
	"github.com/etnz/costbasis/date"
)

// Lot represents a single purchase of a security, used for cost basis calculations.
type Lot struct {
	Security Security
	Date     date.Date // acquisition date
	// UnitsRemaining decreases as the lot is sold, and is rescaled by splits.
	UnitsRemaining Quantity
	CostPerUnit    Money
	OriginalCost   Money // total cost when the lot was bought
}

// CostBasis returns the cost basis of the units remaining in the lot.
func (l Lot) CostBasis() Money { return l.CostPerUnit.Mul(l.UnitsRemaining) }

// lotQueue is the FIFO queue of lots of a single security.
//
// Lots live in an arena and are never moved: consuming the oldest lot advances
// head instead of removing it.
type lotQueue struct {
	lots []Lot
	head int
}

// push appends a lot at the back of the queue.
func (q *lotQueue) push(l Lot) {
	if q.head == len(q.lots) {
		// everything before head is consumed, reuse the arena.
		q.lots, q.head = q.lots[:0], 0
	}
	q.lots = append(q.lots, l)
}

// front returns the oldest lot still holding units, or nil.
func (q *lotQueue) front() *Lot {
	if q.head >= len(q.lots) {
		return nil
	}
	return &q.lots[q.head]
}

// live returns the lots still holding units, oldest first.
// The slice aliases the arena: callers may rescale lots in place.
func (q *lotQueue) live() []Lot { return q.lots[q.head:] }

// empty reports whether the queue has no units left.
func (q *lotQueue) empty() bool { return q.head >= len(q.lots) }

// units returns the total number of units in the queue.
func (q *lotQueue) units() Quantity {
	var total Quantity
	for _, l := range q.live() {
		total = total.Add(l.UnitsRemaining)
	}
	return total
}

// prune drops the lots left without units, typically after cash in lieu.
func (q *lotQueue) prune() {
	kept := q.lots[:0]
	for _, l := range q.live() {
		if l.UnitsRemaining.IsPositive() {
			kept = append(kept, l)
		}
	}
	q.lots, q.head = kept, 0
}

// take consumes up to units from the front of the queue.
//
// visit is called for every lot touched with the number of units taken from
// it, before the lot is updated. It returns the units that could not be taken
// because the queue ran empty.
func (q *lotQueue) take(units Quantity, visit func(l Lot, taken Quantity)) Quantity {
	for units.IsPositive() {
		l := q.front()
		if l == nil {
			break
		}
		taken := l.UnitsRemaining.Min(units)
		if taken.IsPositive() {
			visit(*l, taken)
		}
		l.UnitsRemaining = l.UnitsRemaining.Sub(taken)
		units = units.Sub(taken)
		if !l.UnitsRemaining.IsPositive() {
			q.head++
		}
	}
	return units
}
