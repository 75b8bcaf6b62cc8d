package eodhd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/date"
	"github.com/shopspring/decimal"
)

// This file contains functions to access the EODHD API.

// endpoint returns the address of an API endpoint for a symbol.
func (c *Client) endpoint(path, symbol string, from, to date.Date) string {
	q := url.Values{}
	q.Set("fmt", "json")
	q.Set("api_token", c.apiKey)
	if !from.IsZero() {
		q.Set("from", from.String())
	}
	if !to.IsZero() {
		q.Set("to", to.String())
	}
	return fmt.Sprintf("%s/%s/%s?%s", c.baseURL, path, url.PathEscape(symbol), q.Encode())
}

// fetchPrices returns the daily closing prices of a symbol.
func (c *Client) fetchPrices(ctx context.Context, symbol string, from, to date.Date) (*date.History[decimal.Decimal], error) {
	// https://eodhd.com/api/eod/MCD.US?api_token=demo&fmt=json
	// [
	//
	//	{
	//		"date": "2024-02-13",
	//		"open": 675.066,
	//		"high": 684.219,
	//		"low": 648.659,
	//		"close": 668.445,
	//		"adjusted_close": 67.705,
	//		"volume": 0
	//	  },
	//
	// "close" is the raw price, splits are applied by the replay.
	type Info struct {
		Date  date.Date       `json:"date"`
		Close decimal.Decimal `json:"close"`
	}

	content := make([]Info, 0)
	if err := c.jwget(ctx, c.endpoint("eod", symbol, from, to), &content); err != nil {
		return nil, err
	}
	prices := new(date.History[decimal.Decimal])
	for _, info := range content {
		prices.Append(info.Date, info.Close)
	}
	return prices, nil
}

// fetchSplits returns the split history of a security.
func (c *Client) fetchSplits(ctx context.Context, ticker string, from, to date.Date) ([]costbasis.StockSplit, error) {
	// [{"date":"2020-08-31","split":"4.000000/1.000000"}]
	type apiSplit struct {
		Date  date.Date `json:"date"`
		Split string    `json:"split"`
	}

	content := make([]apiSplit, 0)
	if err := c.jwget(ctx, c.endpoint("splits", c.Symbol(ticker), from, to), &content); err != nil {
		return nil, err
	}

	splits := make([]costbasis.StockSplit, 0, len(content))
	for _, s := range content {
		num, den, err := parseSplit(s.Split)
		if err != nil {
			return nil, err
		}
		splits = append(splits, costbasis.StockSplit{
			Security:    ticker,
			Date:        s.Date,
			Numerator:   num,
			Denominator: den,
		})
	}
	return splits, nil
}

// parseSplit parses a "4.000000/1.000000" ratio into a simplified fraction.
func parseSplit(ratio string) (num, den int64, err error) {
	parts := strings.Split(ratio, "/")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid split format from API: %q", ratio)
	}
	numDecimal, err := decimal.NewFromString(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid numerator in split %q: %w", ratio, err)
	}
	denDecimal, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid denominator in split %q: %w", ratio, err)
	}
	if !numDecimal.IsPositive() || !denDecimal.IsPositive() {
		return 0, 0, fmt.Errorf("%w %q", costbasis.ErrInvalidSplit, ratio)
	}
	num, den = simplifyDecimalRatio(numDecimal, denDecimal)
	return num, den, nil
}

// fetchLatest returns the last price of a symbol from the real-time endpoint.
func (c *Client) fetchLatest(ctx context.Context, symbol string) (decimal.Decimal, error) {
	// {"code":"MCD.US","timestamp":1707854400,"gmtoffset":0,"open":675.1,
	//  "high":684.2,"low":648.6,"close":668.4,"volume":0,"previousClose":670.1,"change":-1.7}
	addr := c.endpoint("real-time", symbol, date.Date{}, date.Date{})
	var jobj any
	if err := c.jwget(ctx, addr, &jobj); err != nil {
		return decimal.Decimal{}, err
	}
	path := "$.close"
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("error parsing %q: %q %w", symbol, path, err)
	}
	// jsonpath may return a list of one answer: keep the first one if any.
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	switch v := jval.(type) {
	case float64:
		return decimal.NewFromFloat(v), nil
	case json.Number:
		return decimal.NewFromString(v.String())
	default:
		// the API answers "NA" for unknown symbols.
		return decimal.Decimal{}, fmt.Errorf("no real-time price for %s: %v", symbol, jval)
	}
}
