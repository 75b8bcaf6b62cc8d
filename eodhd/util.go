package eodhd

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"

	"github.com/etnz/costbasis/date"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// diskCache implements a simple disk cache for HTTP responses. Entries
// expire at the end of the day.
type diskCache struct {
	base http.RoundTripper
	dir  string
	log  *zerolog.Logger
}

// RoundTrip implements the http.RoundTripper interface. It checks for a cached
// response on disk first. If a fresh cached response is not found, it proceeds
// with the actual HTTP request and caches the new response if it's successful.
func (c *diskCache) RoundTrip(req *http.Request) (resp *http.Response, err error) {
	// the key changes every day, so the cache expires every day.
	key := fmt.Sprintf("%s %s %s", date.Today(), req.Method, req.URL.String())
	key = fmt.Sprintf("eodhd-%x", sha1.Sum([]byte(key)))

	cachedResp, err := c.get(key, req)
	if err == nil { // Cache hit
		return cachedResp, nil
	}

	resp, err = c.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	c.log.Debug().Str("method", req.Method).Str("host", req.URL.Host).Str("path", req.URL.Path).Str("status", resp.Status).Msg("http")
	if resp.StatusCode >= 300 {
		return resp, nil
	}
	// otherwise attempt to store it in cache
	if err := c.put(key, resp); err != nil {
		c.log.Warn().Err(err).Msg("cache write error ignored")
	}
	return resp, nil
}

// get retrieves a cached response from disk
func (c *diskCache) get(key string, req *http.Request) (resp *http.Response, err error) {
	content, err := os.ReadFile(filepath.Join(c.dir, key))
	if err != nil {
		return nil, err
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewBuffer(content)), req)
}

// put stores a response to disk cache
func (c *diskCache) put(key string, resp *http.Response) (err error) {
	content, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, key), content, 0o644)
}

// jwget performs an HTTP GET request to the given address and unmarshals the
// JSON response body into the provided data structure. Bodies are memoized
// for a few minutes.
func (c *Client) jwget(ctx context.Context, addr string, data any) error {
	if body, ok := c.memo.Get(addr); ok {
		return json.Unmarshal(body.([]byte), data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cannot http GET %v%v: %v", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, data); err != nil {
		return fmt.Errorf("decoding %v: %w", req.URL.Path, err)
	}
	c.memo.SetDefault(addr, body)
	return nil
}

// simplifyDecimalRatio converts a ratio of decimals into a simplified integer fraction.
func simplifyDecimalRatio(numDecimal, denDecimal decimal.Decimal) (num, den int64) {
	// Scale both terms by the same power of ten to make them integers.
	exp := max(-numDecimal.Exponent(), -denDecimal.Exponent(), 0)
	multiplier := decimal.NewFromInt(10).Pow(decimal.NewFromInt32(exp))

	numInt := numDecimal.Mul(multiplier).BigInt()
	denInt := denDecimal.Mul(multiplier).BigInt()

	// Simplify the fraction by dividing by the greatest common divisor.
	commonDivisor := new(big.Int).GCD(nil, nil, numInt, denInt)

	num = new(big.Int).Div(numInt, commonDivisor).Int64()
	den = new(big.Int).Div(denInt, commonDivisor).Int64()
	return
}
