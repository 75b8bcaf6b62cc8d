package costbasis

import (
	"iter"

	"github.com/etnz/costbasis/date"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TrendValue is the market value of an account at the start of a day.
type TrendValue struct {
	Date  date.Date
	Value Money
	// Source is the last transaction applied before the value was computed,
	// nil before the first one.
	Source *Transaction
	// Estimated is set when some security had no known price and was valued
	// at its cost basis.
	Estimated bool
}

// Valuator replays the transactions of a single account day by day to
// compute its market value over time.
type Valuator struct {
	Account *Account
	// Transactions of the account, sorted by date.
	Transactions []*Transaction
	Splits       *SplitTable
	Prices       *PriceCache
	// Until is the last day valued, today when zero.
	Until date.Date

	log zerolog.Logger
}

// NewValuator returns a valuator of account.
func NewValuator(account *Account, txs []*Transaction, splits *SplitTable, prices *PriceCache, opts ...Option) *Valuator {
	c := newConfig(opts)
	return &Valuator{Account: account, Transactions: txs, Splits: splits, Prices: prices, log: c.log}
}

// Trend iterates over the value of the account on every day from its first
// transaction to Until. The value of a day is computed before the
// transactions of that day.
//
// The price cache is read locked while the iteration is running.
func (v *Valuator) Trend() iter.Seq[TrendValue] {
	return func(yield func(TrendValue) bool) {
		if len(v.Transactions) == 0 {
			return
		}
		prices := v.Prices
		if prices == nil {
			prices = NewPriceCache()
		}
		prices.RLock()
		defer prices.RUnlock()

		until := v.Until
		if until.IsZero() {
			until = date.Today()
		}
		holdings := NewAccountHoldings(v.Account).WithLogger(v.log)
		outside := NewAccountHoldings(&Account{Name: "outside"})
		cursor := v.Splits.cursor()
		cash := v.Account.OpeningBalance.Decimal()
		var source *Transaction

		txs := v.Transactions
		for day := txs[0].Date; !day.After(until); day = day.Add(1) {
			for _, split := range cursor.due(day) {
				if err := holdings.ApplySplit(split); err != nil {
					v.log.Warn().Err(err).Msg("split ignored")
				}
			}
			value, estimated := v.value(holdings, prices, day)
			if !yield(TrendValue{
				Date:      day,
				Value:     M(value.Add(cash), v.Account.Currency),
				Source:    source,
				Estimated: estimated,
			}) {
				return
			}
			for len(txs) > 0 && !txs[0].Date.After(day) {
				tx := txs[0]
				txs = txs[1:]
				cash = cash.Add(tx.Amount.Decimal())
				v.apply(holdings, outside, prices, tx)
				source = tx
			}
		}
	}
}

// value returns the market value of the securities held on a day.
func (v *Valuator) value(h *AccountHoldings, prices *PriceCache, day date.Date) (decimal.Decimal, bool) {
	var total decimal.Decimal
	estimated := false
	for sec := range h.Securities() {
		units := h.Units(sec.Ticker)
		if units.IsZero() {
			continue
		}
		if price, ok := prices.Price(sec.Ticker, day); ok {
			total = total.Add(units.Decimal().Mul(price))
			continue
		}
		estimated = true
		for _, l := range h.Lots(sec.Ticker) {
			total = total.Add(l.CostBasis().Decimal())
		}
		v.log.Debug().Str("security", sec.Ticker).Stringer("date", day).Msg("no price, valued at cost basis")
	}
	return total, estimated
}

// apply processes a transaction. Sales are irrelevant to the value and are
// dropped.
func (v *Valuator) apply(h, outside *AccountHoldings, prices *PriceCache, tx *Transaction) {
	inv := tx.Investment
	if inv == nil {
		return
	}
	// any price known from the ledger, transfers included, fills the gaps.
	if !inv.UnitPrice.IsZero() {
		if prices.Backfill(inv.Security.Ticker, tx.Date, inv.UnitPrice.Decimal()) {
			v.log.Debug().Str("security", inv.Security.Ticker).Stringer("date", tx.Date).Stringer("price", inv.UnitPrice).Msg("price back-filled")
		}
	}
	var err error
	switch inv.Type {
	case Buy, Add, Reinvest:
		_, err = h.Buy(inv.Security, tx.Date, inv.Units, inv.Cost(tx.Amount))
	case Sell:
		_, err = h.Sell(inv.Security, tx.Date, inv.Units, inv.Proceeds(tx.Amount))
	case Remove:
		if tx.IsTransfer() {
			_, err = h.Transfer(inv.Security, tx.Date, inv.Units, inv.UnitPrice, outside)
		} else {
			_, err = h.Sell(inv.Security, tx.Date, inv.Units, inv.Proceeds(tx.Amount))
		}
	}
	if err != nil {
		v.log.Warn().Err(err).Stringer("transaction", tx).Msg("transaction ignored")
	}
}
