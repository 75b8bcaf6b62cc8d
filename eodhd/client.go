// Package eodhd loads daily prices and splits from the EOD Historical Data
// API (https://eodhd.com).
package eodhd

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/date"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultBaseURL is the root of the EODHD API.
const DefaultBaseURL = "https://eodhd.com/api"

// DefaultExchange is the exchange code appended to tickers without one.
const DefaultExchange = "US"

// Client queries the EODHD API. It implements costbasis.HistoryLoader.
type Client struct {
	apiKey   string
	baseURL  string
	exchange string
	from     date.Date
	cacheDir string
	client   *http.Client
	memo     *cache.Cache
	log      zerolog.Logger
}

var _ costbasis.HistoryLoader = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithBaseURL replaces the API root, mostly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient sets the http client used for every request.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.client = h }
}

// WithDiskCache keeps responses on disk in dir for the day. It wraps the
// transport of the http client, whatever the order of the options.
func WithDiskCache(dir string) Option {
	return func(c *Client) { c.cacheDir = dir }
}

// WithExchange sets the exchange code of tickers given without one.
func WithExchange(code string) Option {
	return func(c *Client) { c.exchange = code }
}

// WithFrom sets the first day of the histories loaded.
func WithFrom(d date.Date) Option {
	return func(c *Client) { c.from = d }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// memoTTL is how long responses are kept in memory.
const memoTTL = 10 * time.Minute

// New returns a client using the given API key.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:   apiKey,
		baseURL:  DefaultBaseURL,
		exchange: DefaultExchange,
		client:   new(http.Client),
		memo:     cache.New(memoTTL, 2*memoTTL),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cacheDir != "" {
		base := c.client.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		// the caller's client is left untouched.
		wrapped := *c.client
		wrapped.Transport = &diskCache{base: base, dir: c.cacheDir, log: &c.log}
		c.client = &wrapped
	}
	return c
}

// Symbol returns the EODHD symbol of a ticker, "SYMBOL.EXCHANGE".
func (c *Client) Symbol(ticker string) string {
	if strings.Contains(ticker, ".") {
		return ticker
	}
	return ticker + "." + c.exchange
}

// LoadHistory loads the daily closing prices and the splits of a security.
// Splits are returned with the ticker as given.
func (c *Client) LoadHistory(ctx context.Context, ticker string) (*date.History[decimal.Decimal], []costbasis.StockSplit, error) {
	to := date.Today()
	prices, err := c.fetchPrices(ctx, c.Symbol(ticker), c.from, to)
	if err != nil {
		return nil, nil, err
	}
	splits, err := c.fetchSplits(ctx, ticker, c.from, to)
	if err != nil {
		return nil, nil, err
	}
	c.log.Debug().Str("security", ticker).Int("prices", prices.Len()).Int("splits", len(splits)).Msg("history downloaded")
	return prices, splits, nil
}

// Latest returns the last traded price of a security.
func (c *Client) Latest(ctx context.Context, ticker string) (decimal.Decimal, error) {
	return c.fetchLatest(ctx, c.Symbol(ticker))
}
