package costbasis

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/etnz/costbasis/date"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// PriceCache holds the daily closing prices of securities.
//
// A replay holds the read lock for its whole duration (see RLock) so that
// every day of the replay sees the same prices. Update and Set wait for the
// replays in progress. Backfill only adds missing prices and is allowed under
// the read lock.
type PriceCache struct {
	replay sync.RWMutex

	mu     sync.Mutex // protects prices
	prices map[string]*date.History[decimal.Decimal]
}

// NewPriceCache returns an empty cache.
func NewPriceCache() *PriceCache {
	return &PriceCache{prices: make(map[string]*date.History[decimal.Decimal])}
}

// RLock locks the cache for a replay. Do not call Update or Set before
// RUnlock from the same goroutine: it would deadlock.
func (c *PriceCache) RLock() { c.replay.RLock() }

// RUnlock ends a replay.
func (c *PriceCache) RUnlock() { c.replay.RUnlock() }

func (c *PriceCache) history(ticker string) *date.History[decimal.Decimal] {
	h, ok := c.prices[ticker]
	if !ok {
		h = new(date.History[decimal.Decimal])
		c.prices[ticker] = h
	}
	return h
}

// Price returns the closing price of a security on a day, or the last known
// one before that day.
func (c *PriceCache) Price(ticker string, day date.Date) (decimal.Decimal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.prices[ticker]
	if !ok {
		return decimal.Decimal{}, false
	}
	return h.ValueAsOf(day)
}

// Backfill records a price for a day without a price yet. It reports whether
// the price was recorded.
func (c *PriceCache) Backfill(ticker string, day date.Date, price decimal.Decimal) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.history(ticker)
	if _, exists := h.Get(day); exists {
		return false
	}
	h.Append(day, price)
	return true
}

// Set records a price, replacing any existing price that day.
func (c *PriceCache) Set(ticker string, day date.Date, price decimal.Decimal) {
	c.replay.Lock()
	defer c.replay.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history(ticker).Append(day, price)
}

// Update merges a price history into the cache. Downloaded prices replace
// existing ones, back-filled included.
func (c *PriceCache) Update(ticker string, prices *date.History[decimal.Decimal]) {
	c.replay.Lock()
	defer c.replay.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.history(ticker)
	for day, price := range prices.Values() {
		h.Append(day, price)
	}
}

// Tickers returns the securities having prices, sorted.
func (c *PriceCache) Tickers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Sorted(maps.Keys(c.prices))
}

// Len returns the number of prices of a security.
func (c *PriceCache) Len(ticker string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.prices[ticker]; ok {
		return h.Len()
	}
	return 0
}

// HistoryLoader loads the price history and splits of a security from a
// price source.
type HistoryLoader interface {
	LoadHistory(ctx context.Context, ticker string) (*date.History[decimal.Decimal], []StockSplit, error)
}

// DegradedError lists the securities whose history could not be loaded. The
// valuation still runs, falling back to cost basis for those securities.
type DegradedError struct {
	Failures map[string]error
}

func (e *DegradedError) Error() string {
	tickers := slices.Sorted(maps.Keys(e.Failures))
	msgs := make([]string, len(tickers))
	for i, t := range tickers {
		msgs[i] = fmt.Sprintf("%s: %v", t, e.Failures[t])
	}
	return fmt.Sprintf("price history unavailable for %d securities: %s", len(tickers), strings.Join(msgs, "; "))
}

// Unwrap returns the individual failures.
func (e *DegradedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, t := range slices.Sorted(maps.Keys(e.Failures)) {
		errs = append(errs, e.Failures[t])
	}
	return errs
}

// maxConcurrentLoads bounds the number of histories loaded at once.
const maxConcurrentLoads = 4

// PrepareHistory loads the price histories and splits of securities
// concurrently, and stores them in the cache and the split table. splits may
// be nil.
//
// A failing security does not stop the others: failures are returned as a
// *DegradedError. Only a cancelled context aborts the whole preparation.
func PrepareHistory(ctx context.Context, cache *PriceCache, splits *SplitTable, loader HistoryLoader, tickers []string, opts ...Option) error {
	log := newConfig(opts).log
	var (
		mu       sync.Mutex
		failures = make(map[string]error)
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)
	for _, ticker := range tickers {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			prices, ss, err := loader.LoadHistory(ctx, ticker)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				log.Warn().Err(err).Str("security", ticker).Msg("price history unavailable")
				mu.Lock()
				failures[ticker] = err
				mu.Unlock()
				return nil
			}
			if prices != nil {
				cache.Update(ticker, prices)
			}
			if splits != nil {
				mu.Lock()
				defer mu.Unlock()
				for _, s := range ss {
					if err := splits.Add(s); err != nil {
						log.Warn().Err(err).Str("security", ticker).Msg("invalid split ignored")
					}
				}
			}
			log.Debug().Str("security", ticker).Int("prices", cache.Len(ticker)).Int("splits", len(ss)).Msg("price history loaded")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if len(failures) > 0 {
		return &DegradedError{Failures: failures}
	}
	return nil
}

var _ zerolog.LogObjectMarshaler = (*DegradedError)(nil)

// MarshalZerologObject logs the failures by security.
func (e *DegradedError) MarshalZerologObject(ev *zerolog.Event) {
	for t, err := range e.Failures {
		ev.Str(t, err.Error())
	}
}

// Closes iterates over the prices of a security within a range, in
// chronological order. It works on a snapshot of the prices.
func (c *PriceCache) Closes(ticker string, r date.Range) iter.Seq2[date.Date, decimal.Decimal] {
	c.mu.Lock()
	var (
		days   []date.Date
		values []decimal.Decimal
	)
	if h, ok := c.prices[ticker]; ok {
		for day, price := range h.Values() {
			if r.Contains(day) {
				days = append(days, day)
				values = append(values, price)
			}
		}
	}
	c.mu.Unlock()
	return func(yield func(date.Date, decimal.Decimal) bool) {
		for i, day := range days {
			if !yield(day, values[i]) {
				return
			}
		}
	}
}
