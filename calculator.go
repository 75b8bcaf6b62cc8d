package costbasis

import (
	"errors"
	"fmt"

	"github.com/etnz/costbasis/date"
	"github.com/rs/zerolog"
)

// ErrUnsortedTransactions is returned when transactions are not in chronological order.
var ErrUnsortedTransactions = errors.New("transactions are not sorted by date")

// Options controls a capital gains report.
type Options struct {
	// Range restricts the report to sales made in that range. The zero Range
	// reports every sale.
	Range date.Range
	// IgnoreTaxDeferred excludes the sales of tax-deferred accounts.
	IgnoreTaxDeferred bool
	// ConsolidateOnDateSold merges the sales of a security made on the same day
	// at the same price, instead of those of lots acquired on the same day.
	ConsolidateOnDateSold bool
}

// Mode returns the consolidation mode selected by the options.
func (o Options) Mode() ConsolidationMode {
	if o.ConsolidateOnDateSold {
		return BySaleDate
	}
	return ByAcquisitionDate
}

// Calculator replays the transactions of several accounts and matches sales
// with purchases, first in first out.
type Calculator struct {
	splits *SplitTable
	log    zerolog.Logger
}

// Option configures a Calculator or a Valuator.
type Option func(*config)

type config struct {
	log zerolog.Logger
}

// WithLogger sets the logger. The default logger discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(c *config) { c.log = log }
}

func newConfig(opts []Option) config {
	c := config{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// NewCalculator returns a calculator applying the splits of a table. splits
// may be nil.
func NewCalculator(splits *SplitTable, opts ...Option) *Calculator {
	c := newConfig(opts)
	return &Calculator{splits: splits, log: c.log}
}

// replay is the state of a single run of the calculator.
type replay struct {
	c        *Calculator
	byID     map[string]*Transaction
	holdings map[*Account]*AccountHoldings
	accounts []*Account // in order of appearance
	// outside receives the lots transferred to accounts not replayed.
	outside *AccountHoldings
	sales   []SecuritySale
}

func (r *replay) holdingsOf(a *Account) *AccountHoldings {
	h, ok := r.holdings[a]
	if !ok {
		h = NewAccountHoldings(a).WithLogger(r.c.log)
		r.holdings[a] = h
		r.accounts = append(r.accounts, a)
	}
	return h
}

// counterpart returns the other side of a transfer, or nil when it is not
// part of the replay.
func (r *replay) counterpart(tx *Transaction) *Transaction {
	if !tx.IsTransfer() {
		return nil
	}
	return r.byID[tx.Transfer]
}

// Sales replays the transactions and returns every sale, in the order they
// were matched, followed by the sales that could not be matched at all.
//
// Transactions must be sorted by date. Splits are applied as the replay
// crosses their effective date.
func (c *Calculator) Sales(txs []*Transaction) ([]SecuritySale, error) {
	r := &replay{
		c:        c,
		byID:     make(map[string]*Transaction, len(txs)),
		holdings: make(map[*Account]*AccountHoldings),
		outside:  NewAccountHoldings(&Account{Name: "outside"}),
	}
	for i, tx := range txs {
		if i > 0 && tx.Date.Before(txs[i-1].Date) {
			return nil, fmt.Errorf("%w: %s after %s", ErrUnsortedTransactions, tx.Date, txs[i-1].Date)
		}
		if tx.ID != "" {
			r.byID[tx.ID] = tx
		}
	}

	cursor := c.splits.cursor()
	for _, tx := range txs {
		for _, split := range cursor.due(tx.Date) {
			for _, a := range r.accounts {
				if err := r.holdings[a].ApplySplit(split); err != nil {
					return nil, err
				}
			}
		}
		if err := r.apply(tx); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", tx, err)
		}
	}

	for _, a := range r.accounts {
		r.sales = append(r.sales, r.holdings[a].Finalize()...)
	}
	c.log.Debug().
		Int("transactions", len(txs)).
		Int("sales", len(r.sales)).
		Int("unapplied_splits", cursor.remaining()).
		Msg("replay done")
	return r.sales, nil
}

// apply processes a single transaction.
func (r *replay) apply(tx *Transaction) error {
	inv := tx.Investment
	if inv == nil {
		return nil
	}
	h := r.holdingsOf(tx.Account)
	var (
		sales []SecuritySale
		err   error
	)
	switch inv.Type {
	case Buy, Reinvest:
		sales, err = h.Buy(inv.Security, tx.Date, inv.Units, inv.Cost(tx.Amount))
	case Add:
		if other := r.counterpart(tx); other != nil && other.Investment != nil && other.Investment.Type == Remove {
			// the Remove side carries the lots.
			return nil
		}
		sales, err = h.Buy(inv.Security, tx.Date, inv.Units, inv.Cost(tx.Amount))
	case Sell:
		sales, err = h.Sell(inv.Security, tx.Date, inv.Units, inv.Proceeds(tx.Amount))
	case Remove:
		if !tx.IsTransfer() {
			sales, err = h.Sell(inv.Security, tx.Date, inv.Units, inv.Proceeds(tx.Amount))
			break
		}
		to := r.outside
		if other := r.counterpart(tx); other != nil {
			to = r.holdingsOf(other.Account)
		} else {
			r.c.log.Debug().Str("transfer", tx.Transfer).Stringer("transaction", tx).Msg("transfer counterpart not replayed, units leave the books")
		}
		price := inv.UnitPrice
		if price.IsZero() && !inv.Units.IsZero() {
			price = inv.Proceeds(tx.Amount).Div(inv.Units)
		}
		sales, err = h.Transfer(inv.Security, tx.Date, inv.Units, price, to)
		if to == r.outside {
			sales = nil
		}
	}
	r.sales = append(r.sales, sales...)
	return err
}

// CalculateGains replays the transactions and builds the capital gains report
// of the sales made in the options' range. Each list of the report is
// consolidated.
func (c *Calculator) CalculateGains(txs []*Transaction, opts Options) (*CapitalGainsReport, error) {
	sales, err := c.Sales(txs)
	if err != nil {
		return nil, err
	}
	inRange := sales[:0]
	for _, s := range sales {
		if opts.Range.Contains(s.DateSold) {
			inRange = append(inRange, s)
		}
	}
	report := Classify(inRange, opts.IgnoreTaxDeferred)
	mode := opts.Mode()
	for _, list := range []*[]SecuritySale{&report.Unknown, &report.ShortTerm, &report.LongTerm} {
		SortForConsolidation(*list, mode)
		*list = Consolidate(*list, mode)
	}
	c.log.Debug().
		Stringer("range", opts.Range).
		Stringer("mode", mode).
		Int("unknown", len(report.Unknown)).
		Int("short", len(report.ShortTerm)).
		Int("long", len(report.LongTerm)).
		Msg("capital gains computed")
	return report, nil
}

// CalculateGains is a shortcut for NewCalculator(splits).CalculateGains(txs, opts).
func CalculateGains(txs []*Transaction, splits *SplitTable, opts Options) (*CapitalGainsReport, error) {
	return NewCalculator(splits).CalculateGains(txs, opts)
}
