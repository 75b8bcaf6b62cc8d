package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/date"
	"github.com/etnz/costbasis/eodhd"
	"github.com/etnz/costbasis/pricedb"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

type fetchCmd struct {
	cfg *Config

	// for tests.
	opts []eodhd.Option

	ledgerFile string
	exchange   string
	from       string
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "downloads prices and splits from EODHD" }
func (*fetchCmd) Usage() string {
	return `cgt fetch [-l <ledger>] [-exchange <code>] [-from <date>] [<ticker>...]

  Downloads the daily closing prices and the splits of securities from
  eodhd.com into the price database. Without tickers, every security of the
  ledger is fetched.

  Requires the EODHD_API_KEY environment variable, that can also be set in
  a .env file.
`
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ledgerFile, "l", "", "Ledger file. Defaults to "+EnvLedger+" or ledger.jsonl")
	f.StringVar(&c.exchange, "exchange", eodhd.DefaultExchange, "Exchange of tickers given without one")
	f.StringVar(&c.from, "from", "", "Fetch prices from this day only")
}

func (c *fetchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log := c.cfg.Log
	opts := append([]eodhd.Option{eodhd.WithExchange(c.exchange)}, c.opts...)
	if c.from != "" {
		from, err := date.Parse(c.from)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing -from: %v\n", err)
			return subcommands.ExitUsageError
		}
		opts = append(opts, eodhd.WithFrom(from))
	}
	client, err := c.cfg.eodhdClient(opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	tickers := f.Args()
	if len(tickers) == 0 {
		book, err := c.cfg.loadBook(c.ledgerFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		tickers = book.Tickers()
	}

	db, err := c.cfg.openPriceDB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening the price database: %v\n", err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	if err := fetch(ctx, client, db, tickers, c.cfg); err != nil {
		var degraded *costbasis.DegradedError
		if !errors.As(err, &degraded) {
			fmt.Fprintf(os.Stderr, "Error fetching prices: %v\n", err)
			return subcommands.ExitFailure
		}
		log.Warn().EmbedObject(degraded).Msg("some securities could not be fetched")
	}
	return subcommands.ExitSuccess
}

// fetch loads the histories of the tickers concurrently and stores them in
// the database. Failures of single securities are returned as a
// *costbasis.DegradedError once the others are stored.
func fetch(ctx context.Context, loader costbasis.HistoryLoader, db *pricedb.Store, tickers []string, cfg *Config) error {
	cache := costbasis.NewPriceCache()
	splits := costbasis.NewSplitTable()
	prepErr := costbasis.PrepareHistory(ctx, cache, splits, loader, tickers, costbasis.WithLogger(cfg.Log))
	var degraded *costbasis.DegradedError
	if prepErr != nil && !errors.As(prepErr, &degraded) {
		return prepErr
	}

	for _, ticker := range cache.Tickers() {
		h := new(date.History[decimal.Decimal])
		for day, price := range cache.Closes(ticker, date.Range{}) {
			h.Append(day, price)
		}
		if err := db.Put(ctx, ticker, h); err != nil {
			return err
		}
		if err := db.PutSplits(ctx, splits.Of(ticker)); err != nil {
			return err
		}
		cfg.Log.Info().Str("security", ticker).Int("prices", h.Len()).Int("splits", len(splits.Of(ticker))).Msg("fetched")
	}
	return prepErr
}
