package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Environment variables read by LoadConfig.
const (
	EnvLedger   = "COSTBASIS_LEDGER"
	EnvPriceDB  = "COSTBASIS_PRICE_DB"
	EnvCacheDir = "COSTBASIS_CACHE_DIR"
	EnvAPIKey   = "EODHD_API_KEY"
	EnvLogLevel = "LOG_LEVEL"
)

// Config holds the settings shared by every subcommand.
type Config struct {
	LedgerPath  string
	PriceDBPath string
	// CacheDir keeps the day's API responses on disk, disabled when empty.
	CacheDir string
	EODHDKey string
	LogLevel string
	Log      zerolog.Logger
}

// LoadConfig reads the configuration from the environment, after loading
// the given .env files (".env" by default) if they exist. Variables already
// set in the environment take precedence over the files.
func LoadConfig(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	cfg := &Config{
		LedgerPath:  getEnv(EnvLedger, "ledger.jsonl"),
		PriceDBPath: getEnv(EnvPriceDB, "prices.db"),
		CacheDir:    getEnv(EnvCacheDir, ""),
		EODHDKey:    getEnv(EnvAPIKey, ""),
		LogLevel:    getEnv(EnvLogLevel, "info"),
	}
	log, err := newLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	cfg.Log = log
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// newLogger returns a console logger at the given level.
func newLogger(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid %s: %w", EnvLogLevel, err)
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}
