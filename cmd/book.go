package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/eodhd"
	"github.com/etnz/costbasis/ledgerfile"
	"github.com/etnz/costbasis/pricedb"
)

// loadBook decodes the ledger file, the flag value when set or the
// configured one otherwise.
func (cfg *Config) loadBook(path string) (*ledgerfile.Book, error) {
	if path == "" {
		path = cfg.LedgerPath
	}
	book, err := ledgerfile.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading ledger %q: %w", path, err)
	}
	cfg.Log.Debug().Str("ledger", path).Int("transactions", len(book.Transactions)).Msg("ledger loaded")
	return book, nil
}

// openPriceDB opens the price database.
func (cfg *Config) openPriceDB() (*pricedb.Store, error) {
	return pricedb.Open(cfg.PriceDBPath, cfg.Log)
}

// eodhdClient returns a client of the EODHD API, or an error if no key is configured.
func (cfg *Config) eodhdClient(opts ...eodhd.Option) (*eodhd.Client, error) {
	if cfg.EODHDKey == "" {
		return nil, fmt.Errorf("EODHD API key is not set: use the %s environment variable", EnvAPIKey)
	}
	opts = append([]eodhd.Option{eodhd.WithLogger(cfg.Log)}, opts...)
	if cfg.CacheDir != "" {
		opts = append(opts, eodhd.WithDiskCache(cfg.CacheDir))
	}
	return eodhd.New(cfg.EODHDKey, opts...), nil
}

// loadPrices fills a price cache with the stored prices of the tickers, and
// adds the stored splits to the book. Missing prices only degrade the
// valuation, so they are logged and not returned.
func (cfg *Config) loadPrices(ctx context.Context, book *ledgerfile.Book, tickers []string) (*costbasis.PriceCache, error) {
	cache := costbasis.NewPriceCache()
	if _, err := os.Stat(cfg.PriceDBPath); errors.Is(err, os.ErrNotExist) && cfg.PriceDBPath != pricedb.Memory {
		cfg.Log.Warn().Str("db", cfg.PriceDBPath).Msg("no price database, values are estimated from cost basis")
		return cache, nil
	}
	db, err := cfg.openPriceDB()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	err = costbasis.PrepareHistory(ctx, cache, book.Splits, db, tickers, costbasis.WithLogger(cfg.Log))
	var degraded *costbasis.DegradedError
	if errors.As(err, &degraded) {
		cfg.Log.Warn().EmbedObject(degraded).Msg("some prices could not be loaded")
		return cache, nil
	}
	return cache, err
}
