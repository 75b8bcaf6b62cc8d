package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/date"
	"github.com/etnz/costbasis/renderer"
	"github.com/etnz/costbasis/txf"
	"github.com/google/subcommands"
)

// gainsCmd holds the flags for the 'gains' subcommand.
type gainsCmd struct {
	cfg *Config

	ledgerFile     string
	period         string
	start          string
	end            string
	consolidate    bool
	ignoreDeferred bool
	txfFile        string
	categoriesFile string
}

func (*gainsCmd) Name() string     { return "gains" }
func (*gainsCmd) Synopsis() string { return "realized capital gains report" }
func (*gainsCmd) Usage() string {
	return `cgt gains [-l <ledger>] [-period <period> | -s <date>] [-d <date>] [-consolidate-sold] [-ignore-deferred] [-txf <file>]

  Matches every sale of the ledger with its purchases, first in first out,
  and reports the gains of the sales made in the period, split into
  short-term and long-term gains.

  With -txf the report is also written in the Tax Exchange Format.
`
}

func (c *gainsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ledgerFile, "l", "", "Ledger file. Defaults to "+EnvLedger+" or ledger.jsonl")
	f.StringVar(&c.period, "period", date.Yearly.String(), "Predefined period (day, week, month, quarter, year, all)")
	f.StringVar(&c.start, "s", "", "Start date of the reporting period, replaces -period")
	f.StringVar(&c.end, "d", date.Today().String(), "End date of the reporting period")
	f.BoolVar(&c.consolidate, "consolidate-sold", false, "Merge sales made the same day at the same price, instead of sales of lots acquired the same day")
	f.BoolVar(&c.ignoreDeferred, "ignore-deferred", false, "Exclude the sales of tax-deferred accounts")
	f.StringVar(&c.txfFile, "txf", "", "Write the report to this TXF file")
	f.StringVar(&c.categoriesFile, "categories", "", "Tax categories file (tab separated code, term, name) replacing the default one")
}

func (c *gainsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log := c.cfg.Log
	r, err := parseRange(c.period, c.start, c.end)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing the reporting period: %v\n", err)
		return subcommands.ExitUsageError
	}

	book, err := c.cfg.loadBook(c.ledgerFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	opts := costbasis.Options{
		Range:                 r,
		IgnoreTaxDeferred:     c.ignoreDeferred,
		ConsolidateOnDateSold: c.consolidate,
	}
	report, err := costbasis.NewCalculator(book.Splits, costbasis.WithLogger(log)).CalculateGains(book.Transactions, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error calculating gains: %v\n", err)
		return subcommands.ExitFailure
	}
	if n := len(report.Unknown); n > 0 {
		log.Warn().Int("sales", n).Msg("some sales have no known cost basis")
	}

	if c.txfFile != "" {
		if err := c.writeTXF(report); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %q: %v\n", c.txfFile, err)
			return subcommands.ExitFailure
		}
		log.Info().Str("file", c.txfFile).Int("sales", report.Len()).Msg("TXF written")
	}

	printMarkdown(renderer.GainsMarkdown(report, r, opts.Mode()))
	return subcommands.ExitSuccess
}

func (c *gainsCmd) writeTXF(report *costbasis.CapitalGainsReport) error {
	categories, err := c.categories()
	if err != nil {
		return err
	}
	out, err := os.Create(c.txfFile)
	if err != nil {
		return err
	}
	if err := txf.Write(out, report, categories, date.Today()); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (c *gainsCmd) categories() (*txf.Categories, error) {
	if c.categoriesFile == "" {
		return txf.NewCategories()
	}
	f, err := os.Open(c.categoriesFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return txf.ParseCategories(f)
}
