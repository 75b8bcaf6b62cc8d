package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/date"
	"github.com/etnz/costbasis/renderer"
	"github.com/google/subcommands"
)

type trendCmd struct {
	cfg *Config

	ledgerFile string
	account    string
	security   string
	balance    bool
	period     string
	start      string
	until      string
}

func (*trendCmd) Name() string     { return "trend" }
func (*trendCmd) Synopsis() string { return "value of an account over time" }
func (*trendCmd) Usage() string {
	return `cgt trend [-l <ledger>] [-a <account> [-balance] | -security <ticker>] [-s <date>] [-d <date>] [-period <period>]

  Replays the transactions of an account day by day and reports its market
  value, one row per period. Prices come from the price database (see
  'cgt fetch'); securities without a price are valued at their cost basis.

  With -balance only the cash balance of the account is reported, and with
  -security the closing prices of a security.
`
}

func (c *trendCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ledgerFile, "l", "", "Ledger file. Defaults to "+EnvLedger+" or ledger.jsonl")
	f.StringVar(&c.account, "a", "", "Account to value. Defaults to the only account of the ledger")
	f.StringVar(&c.security, "security", "", "Report the closing prices of this security instead")
	f.BoolVar(&c.balance, "balance", false, "Report the cash balance of the account instead of its market value")
	f.StringVar(&c.period, "period", date.Monthly.String(), "One row per period (day, week, month, quarter, year)")
	f.StringVar(&c.start, "s", "", "First day reported")
	f.StringVar(&c.until, "d", date.Today().String(), "Last day reported")
}

func (c *trendCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	period, err := date.ParsePeriod(c.period)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing period: %v\n", err)
		return subcommands.ExitUsageError
	}
	r, err := parseRange("all", c.start, c.until)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing dates: %v\n", err)
		return subcommands.ExitUsageError
	}

	book, err := c.cfg.loadBook(c.ledgerFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	series := costbasis.Series{Range: r}
	var title string
	if c.security != "" {
		sec, ok := book.Securities[c.security]
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: unknown security %q\n", c.security)
			return subcommands.ExitFailure
		}
		prices, err := c.cfg.loadPrices(ctx, book, []string{sec.Ticker})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading prices: %v\n", err)
			return subcommands.ExitFailure
		}
		series.Kind = costbasis.SecuritySeries
		series.Security = sec
		series.Prices = prices
		title = "Closing prices of " + sec.String()
		printMarkdown(renderer.TrendMarkdown(title, series.Points(), period))
		return subcommands.ExitSuccess
	}

	account, err := c.selectAccount(book.Accounts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	txs := book.TransactionsOf(account)
	if c.balance {
		series.Kind = costbasis.TransactionSeries
		series.Account = account
		series.Transactions = txs
		title = "Cash balance of " + account.Name
	} else {
		// prices are loaded first, they may bring splits unknown to the ledger.
		prices, err := c.cfg.loadPrices(ctx, book, book.Tickers())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading prices: %v\n", err)
			return subcommands.ExitFailure
		}
		v := costbasis.NewValuator(account, txs, book.Splits, prices, costbasis.WithLogger(c.cfg.Log))
		v.Until = r.To
		series.Kind = costbasis.BrokerageReplay
		series.Valuator = v
		title = "Value of " + account.Name
	}
	printMarkdown(renderer.TrendMarkdown(title, series.Points(), period))
	return subcommands.ExitSuccess
}

// selectAccount returns the account named by the -a flag, or the only
// account of the ledger.
func (c *trendCmd) selectAccount(accounts []*costbasis.Account) (*costbasis.Account, error) {
	if c.account == "" {
		if len(accounts) != 1 {
			return nil, fmt.Errorf("the ledger has %d accounts, select one with -a", len(accounts))
		}
		return accounts[0], nil
	}
	for _, a := range accounts {
		if a.Name == c.account {
			return a, nil
		}
	}
	return nil, fmt.Errorf("unknown account %q", c.account)
}
