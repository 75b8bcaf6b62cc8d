package costbasis

import (
	"fmt"
	"iter"

	"github.com/etnz/costbasis/date"
)

// SeriesKind selects how a Series computes its points.
type SeriesKind int

const (
	// TransactionSeries is the running cash balance of an account, one point
	// per day with transactions.
	TransactionSeries SeriesKind = iota
	// BrokerageReplay is the daily market value of an account.
	BrokerageReplay
	// SecuritySeries is the closing price of a security.
	SecuritySeries
)

func (k SeriesKind) String() string {
	switch k {
	case TransactionSeries:
		return "transactions"
	case BrokerageReplay:
		return "brokerage"
	case SecuritySeries:
		return "security"
	default:
		return fmt.Sprintf("SeriesKind(%d)", int(k))
	}
}

// Series is a data series to plot over time. Only the fields of its kind are
// used.
type Series struct {
	Kind SeriesKind

	// TransactionSeries
	Account      *Account
	Transactions []*Transaction

	// BrokerageReplay
	Valuator *Valuator

	// SecuritySeries
	Security Security
	Prices   *PriceCache

	// Range restricts the points of every kind. The zero Range keeps them all.
	Range date.Range
}

// Points iterates over the points of the series in chronological order.
func (s Series) Points() iter.Seq[TrendValue] {
	var points iter.Seq[TrendValue]
	switch s.Kind {
	case TransactionSeries:
		points = s.balance()
	case BrokerageReplay:
		if s.Valuator == nil {
			return func(func(TrendValue) bool) {}
		}
		points = s.Valuator.Trend()
	case SecuritySeries:
		points = s.closes()
	default:
		return func(func(TrendValue) bool) {}
	}
	return func(yield func(TrendValue) bool) {
		for p := range points {
			if s.Range.Contains(p.Date) && !yield(p) {
				return
			}
		}
	}
}

// balance yields the cash balance at the end of each day with transactions.
func (s Series) balance() iter.Seq[TrendValue] {
	return func(yield func(TrendValue) bool) {
		var (
			balance  Money
			currency string
		)
		if s.Account != nil {
			balance = s.Account.OpeningBalance
			currency = s.Account.Currency
		}
		txs := s.Transactions
		for len(txs) > 0 {
			day := txs[0].Date
			var last *Transaction
			for len(txs) > 0 && txs[0].Date == day {
				balance = M(balance.Decimal().Add(txs[0].Amount.Decimal()), currency)
				last = txs[0]
				txs = txs[1:]
			}
			if !yield(TrendValue{Date: day, Value: balance, Source: last}) {
				return
			}
		}
	}
}

// closes yields the known closing prices of the security.
func (s Series) closes() iter.Seq[TrendValue] {
	return func(yield func(TrendValue) bool) {
		if s.Prices == nil {
			return
		}
		for day, price := range s.Prices.Closes(s.Security.Ticker, s.Range) {
			if !yield(TrendValue{Date: day, Value: M(price, s.Security.Currency)}) {
				return
			}
		}
	}
}
