// Package pricedb keeps downloaded prices and splits in a SQLite database so
// that valuations do not depend on the network.
package pricedb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/date"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Memory is the path of a private in-memory database.
const Memory = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS prices (
	ticker TEXT NOT NULL,
	day    TEXT NOT NULL,
	close  TEXT NOT NULL,
	PRIMARY KEY (ticker, day)
);
CREATE TABLE IF NOT EXISTS splits (
	ticker      TEXT NOT NULL,
	day         TEXT NOT NULL,
	numerator   INTEGER NOT NULL,
	denominator INTEGER NOT NULL,
	PRIMARY KEY (ticker, day)
);`

// Store is a price database. It implements costbasis.HistoryLoader.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

var _ costbasis.HistoryLoader = (*Store)(nil)

// Open opens, and creates if needed, the database at path.
func Open(path string, log zerolog.Logger) (*Store, error) {
	dsn := path
	if path != Memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == Memory {
		// every connection would get its own database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Put stores the prices of a security, replacing existing prices the same days.
func (s *Store) Put(ctx context.Context, ticker string, prices *date.History[decimal.Decimal]) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO prices (ticker, day, close) VALUES (?, ?, ?)
		ON CONFLICT (ticker, day) DO UPDATE SET close = excluded.close`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	n := 0
	for day, price := range prices.Values() {
		if _, err := stmt.ExecContext(ctx, ticker, day.String(), price.String()); err != nil {
			return fmt.Errorf("storing %s price on %s: %w", ticker, day, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.log.Debug().Str("security", ticker).Int("prices", n).Msg("prices stored")
	return nil
}

// PutSplits stores splits, replacing existing splits of a security the same day.
func (s *Store) PutSplits(ctx context.Context, splits []costbasis.StockSplit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, split := range splits {
		if err := split.Validate(); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO splits (ticker, day, numerator, denominator) VALUES (?, ?, ?, ?)
			ON CONFLICT (ticker, day) DO UPDATE SET numerator = excluded.numerator, denominator = excluded.denominator`,
			split.Security, split.Date.String(), split.Numerator, split.Denominator)
		if err != nil {
			return fmt.Errorf("storing split %s: %w", split, err)
		}
	}
	return tx.Commit()
}

// LoadHistory returns the prices and splits stored for a security.
func (s *Store) LoadHistory(ctx context.Context, ticker string) (*date.History[decimal.Decimal], []costbasis.StockSplit, error) {
	prices, err := s.prices(ctx, ticker)
	if err != nil {
		return nil, nil, err
	}
	splits, err := s.splits(ctx, ticker)
	if err != nil {
		return nil, nil, err
	}
	return prices, splits, nil
}

func (s *Store) prices(ctx context.Context, ticker string) (*date.History[decimal.Decimal], error) {
	rows, err := s.db.QueryContext(ctx, `SELECT day, close FROM prices WHERE ticker = ? ORDER BY day`, ticker)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	prices := new(date.History[decimal.Decimal])
	for rows.Next() {
		var day, price string
		if err := rows.Scan(&day, &price); err != nil {
			return nil, err
		}
		d, err := date.Parse(day)
		if err != nil {
			return nil, err
		}
		p, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("invalid %s price on %s: %w", ticker, day, err)
		}
		prices.Append(d, p)
	}
	return prices, rows.Err()
}

func (s *Store) splits(ctx context.Context, ticker string) ([]costbasis.StockSplit, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT day, numerator, denominator FROM splits WHERE ticker = ? ORDER BY day`, ticker)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var splits []costbasis.StockSplit
	for rows.Next() {
		var day string
		split := costbasis.StockSplit{Security: ticker}
		if err := rows.Scan(&day, &split.Numerator, &split.Denominator); err != nil {
			return nil, err
		}
		if split.Date, err = date.Parse(day); err != nil {
			return nil, err
		}
		splits = append(splits, split)
	}
	return splits, rows.Err()
}

// LastDay returns the last day with a price for a security, or the zero date.
func (s *Store) LastDay(ctx context.Context, ticker string) (date.Date, error) {
	var day sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT MAX(day) FROM prices WHERE ticker = ?`, ticker).Scan(&day)
	if err != nil || !day.Valid {
		return date.Date{}, err
	}
	return date.Parse(day.String)
}

// Tickers returns the securities with prices, sorted.
func (s *Store) Tickers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT ticker FROM prices ORDER BY ticker`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}
