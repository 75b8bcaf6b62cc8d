package costbasis

import (
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/etnz/costbasis/date"
	"github.com/rs/zerolog"
)

// pendingSale is the part of a sale, or of an outgoing transfer, that could
// not be matched with lots when it was processed.
type pendingSale struct {
	security     Security
	date         date.Date
	units        Quantity // unresolved units, always positive
	pricePerUnit Money
	// to is the destination of a transfer, nil for a sale.
	to *AccountHoldings
}

// AccountHoldings holds the lots of every security of a single account, and
// the sales still waiting for lots.
//
// An AccountHoldings lives for one replay and must not be shared between
// goroutines.
type AccountHoldings struct {
	Account *Account

	queues     map[string]*lotQueue
	securities map[string]Security
	pending    []*pendingSale
	log        zerolog.Logger
}

// NewAccountHoldings returns empty holdings for account.
func NewAccountHoldings(account *Account) *AccountHoldings {
	return &AccountHoldings{
		Account:    account,
		queues:     make(map[string]*lotQueue),
		securities: make(map[string]Security),
		log:        zerolog.Nop(),
	}
}

// WithLogger sets the logger used to trace lot matching.
func (h *AccountHoldings) WithLogger(log zerolog.Logger) *AccountHoldings {
	h.log = log.With().Str("account", h.Account.String()).Logger()
	return h
}

func (h *AccountHoldings) queue(sec Security) *lotQueue {
	q, ok := h.queues[sec.Ticker]
	if !ok {
		q = new(lotQueue)
		h.queues[sec.Ticker] = q
		h.securities[sec.Ticker] = sec
	}
	return q
}

// Securities iterates over the securities ever held, in ticker order.
func (h *AccountHoldings) Securities() iter.Seq[Security] {
	return func(yield func(Security) bool) {
		for _, ticker := range slices.Sorted(maps.Keys(h.securities)) {
			if !yield(h.securities[ticker]) {
				return
			}
		}
	}
}

// Lots returns a copy of the lots of a security still holding units, oldest first.
func (h *AccountHoldings) Lots(ticker string) []Lot {
	q, ok := h.queues[ticker]
	if !ok {
		return nil
	}
	return slices.Clone(q.live())
}

// Units returns the number of units held for a security.
func (h *AccountHoldings) Units(ticker string) Quantity {
	q, ok := h.queues[ticker]
	if !ok {
		return Quantity{}
	}
	return q.units()
}

// HasPending reports whether some sales or transfers are still waiting for lots.
func (h *AccountHoldings) HasPending() bool { return len(h.pending) > 0 }

// Buy adds a lot of units bought on a given day for a total cost.
//
// The new lot immediately resolves sales and transfers of that security
// waiting for lots; the sales it completes are returned. Buying zero units
// does nothing.
func (h *AccountHoldings) Buy(sec Security, on date.Date, units Quantity, cost Money) ([]SecuritySale, error) {
	if units.IsNegative() {
		return nil, fmt.Errorf("buying %s %s on %s: %w", units, sec.Ticker, on, ErrInvalidQuantity)
	}
	if units.IsZero() {
		return nil, nil
	}
	q := h.queue(sec)
	q.push(Lot{
		Security:       sec,
		Date:           on,
		UnitsRemaining: units,
		CostPerUnit:    cost.Div(units),
		OriginalCost:   cost,
	})
	return h.resolvePending(sec.Ticker)
}

// resolvePending matches the pending sales and transfers of a security with
// the lots now available, oldest pending first.
func (h *AccountHoldings) resolvePending(ticker string) ([]SecuritySale, error) {
	if len(h.pending) == 0 {
		return nil, nil
	}
	q := h.queues[ticker]
	var sales []SecuritySale
	remaining := h.pending[:0]
	for _, p := range h.pending {
		if p.security.Ticker != ticker || q.empty() {
			remaining = append(remaining, p)
			continue
		}
		before := p.units
		var err error
		p.units = q.take(p.units, func(l Lot, taken Quantity) {
			if p.to == nil {
				sales = append(sales, h.sale(l, p.date, taken, p.pricePerUnit))
				return
			}
			if err != nil {
				return
			}
			var forwarded []SecuritySale
			forwarded, err = p.to.Buy(l.Security, l.Date, taken, l.CostPerUnit.Mul(taken))
			sales = append(sales, forwarded...)
		})
		if err != nil {
			return sales, err
		}
		h.log.Debug().
			Str("security", ticker).
			Stringer("sold", p.date).
			Stringer("resolved", before.Sub(p.units)).
			Stringer("unresolved", p.units).
			Bool("transfer", p.to != nil).
			Msg("pending sale resolved")
		if p.units.IsPositive() {
			remaining = append(remaining, p)
		}
	}
	clear(h.pending[len(remaining):])
	h.pending = remaining
	return sales, nil
}

// sale builds the sale of units taken from lot l.
func (h *AccountHoldings) sale(l Lot, on date.Date, units Quantity, pricePerUnit Money) SecuritySale {
	return SecuritySale{
		Security:         l.Security,
		Account:          h.Account,
		DateSold:         on,
		DateAcquired:     l.Date,
		UnitsSold:        units,
		SalePricePerUnit: pricePerUnit,
		CostBasis:        l.CostPerUnit.Mul(units),
	}
}

// Sell sells units of a security from the oldest lots first, and returns one
// sale per lot consumed.
//
// When the lots do not hold enough units, the shortfall is kept pending: a
// later Buy may still resolve it, otherwise Finalize reports it as a sale of
// unknown cost basis.
func (h *AccountHoldings) Sell(sec Security, on date.Date, units Quantity, proceeds Money) ([]SecuritySale, error) {
	if units.IsNegative() {
		return nil, fmt.Errorf("selling %s %s on %s: %w", units, sec.Ticker, on, ErrInvalidQuantity)
	}
	if units.IsZero() {
		return nil, nil
	}
	price := proceeds.Div(units)
	var sales []SecuritySale
	shortfall := h.queue(sec).take(units, func(l Lot, taken Quantity) {
		sales = append(sales, h.sale(l, on, taken, price))
	})
	if shortfall.IsPositive() {
		h.log.Debug().
			Str("security", sec.Ticker).
			Stringer("date", on).
			Stringer("units", shortfall).
			Msg("not enough lots, sale kept pending")
		h.pending = append(h.pending, &pendingSale{security: sec, date: on, units: shortfall, pricePerUnit: price})
	}
	return sales, nil
}

// Transfer moves units of a security to another account's holdings. The lots
// keep their acquisition date and cost basis so that the holding period
// survives the transfer.
//
// Units that cannot be matched yet stay pending until a Buy in this account
// brings the lots, which are then forwarded to the destination. The sales
// returned are the ones completed in the destination by the incoming lots.
func (h *AccountHoldings) Transfer(sec Security, on date.Date, units Quantity, pricePerUnit Money, to *AccountHoldings) ([]SecuritySale, error) {
	if units.IsNegative() {
		return nil, fmt.Errorf("transferring %s %s on %s: %w", units, sec.Ticker, on, ErrInvalidQuantity)
	}
	if units.IsZero() {
		return nil, nil
	}
	var moved []Lot
	shortfall := h.queue(sec).take(units, func(l Lot, taken Quantity) {
		l.UnitsRemaining = taken
		moved = append(moved, l)
	})
	var sales []SecuritySale
	for _, l := range moved {
		s, err := to.Buy(l.Security, l.Date, l.UnitsRemaining, l.CostBasis())
		sales = append(sales, s...)
		if err != nil {
			return sales, err
		}
	}
	if shortfall.IsPositive() {
		h.log.Debug().
			Str("security", sec.Ticker).
			Stringer("date", on).
			Stringer("units", shortfall).
			Str("to", to.Account.String()).
			Msg("transfer origin unknown yet, kept pending")
		h.pending = append(h.pending, &pendingSale{security: sec, date: on, units: shortfall, pricePerUnit: pricePerUnit, to: to})
	}
	return sales, nil
}

// ApplySplit rescales the lots and pending sales of the split security dated
// before the split. Total cost basis is left unchanged.
//
// For securities held in whole units, the fraction of a unit created by the
// split is considered paid cash in lieu: the lots are scaled down so that
// they add up to a whole number of units.
func (h *AccountHoldings) ApplySplit(split StockSplit) error {
	if err := split.Validate(); err != nil {
		return err
	}
	num, den := Q(split.Numerator), Q(split.Denominator)
	q, ok := h.queues[split.Security]
	if ok {
		lots := q.live()
		adjusted := false
		for i := range lots {
			l := &lots[i]
			if !l.Date.Before(split.Date) {
				continue
			}
			// multiply first: num/den may not terminate.
			l.UnitsRemaining = l.UnitsRemaining.Mul(num).Div(den)
			l.CostPerUnit = l.CostPerUnit.Mul(den).Div(num)
			adjusted = true
		}
		if adjusted && h.securities[split.Security].Type.HoldsWholeUnits() {
			h.cashInLieu(split, lots)
			q.prune()
		}
	}
	for _, p := range h.pending {
		if p.security.Ticker != split.Security || !p.date.Before(split.Date) {
			continue
		}
		p.units = p.units.Mul(num).Div(den)
		p.pricePerUnit = p.pricePerUnit.Mul(den).Div(num)
	}
	h.log.Debug().Stringer("split", split).Msg("split applied")
	return nil
}

// cashInLieu scales lots down to a whole number of units in total.
//
// The total is first rounded to cashInLieuPlaces, so that a split like 1:3
// of 3 units gives 1 unit and not 0.9999999999999999. The last lot absorbs
// the rounding of the others.
func (h *AccountHoldings) cashInLieu(split StockSplit, lots []Lot) {
	var total Quantity
	for _, l := range lots {
		total = total.Add(l.UnitsRemaining)
	}
	if total.IsZero() {
		return
	}
	whole := total.Round(cashInLieuPlaces).Floor()
	if whole.Equal(total) {
		return
	}
	factor := whole.Div(total)
	var rest Quantity
	for i := range lots[:len(lots)-1] {
		lots[i].UnitsRemaining = lots[i].UnitsRemaining.Mul(factor).Round(cashInLieuPlaces)
		rest = rest.Add(lots[i].UnitsRemaining)
	}
	lots[len(lots)-1].UnitsRemaining = whole.Sub(rest)
	h.log.Debug().
		Str("security", split.Security).
		Stringer("fraction", total.Sub(whole)).
		Msg("fractional units paid cash in lieu")
}

// Finalize reports every sale and transfer still pending as a sale of unknown
// cost basis, and clears them.
func (h *AccountHoldings) Finalize() []SecuritySale {
	var sales []SecuritySale
	for _, p := range h.pending {
		err := ErrInsufficientLots
		if p.to != nil {
			err = ErrUnresolvedTransfer
		}
		sales = append(sales, SecuritySale{
			Security:         p.security,
			Account:          h.Account,
			DateSold:         p.date,
			UnitsSold:        p.units,
			SalePricePerUnit: p.pricePerUnit,
			Term:             Unknown,
			Err:              err,
		})
	}
	h.pending = nil
	return sales
}
