package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// databaseIDPattern accepts Notion database ids with or without dashes.
var databaseIDPattern = regexp.MustCompile(`^[0-9a-fA-F-]{32,36}$`)

type Config struct {
	// NotionToken is the opaque integration token; never interpreted here.
	NotionToken string `env:"NOTION_TOKEN"`
	// NotionDatabaseID names the database holding one row per (symbol, day).
	NotionDatabaseID string `env:"NOTION_DATABASE_ID"`
	// AlphaVantageKey is optional; empty disables the Alpha Vantage step.
	AlphaVantageKey string `env:"ALPHA_VANTAGE_KEY"`
	// AlphaVantageMaxRPM caps Alpha Vantage calls with a token bucket; the
	// free tier allows 5 requests a minute. 0 falls back to
	// AlphaVantageMinIntervalSec gating.
	AlphaVantageMaxRPM int `env:"ALPHA_VANTAGE_MAX_RPM" envDefault:"5"`
	// AlphaVantageMinIntervalSec enforces a minimum gap between Alpha
	// Vantage calls when AlphaVantageMaxRPM is 0.
	AlphaVantageMinIntervalSec int `env:"ALPHA_VANTAGE_MIN_INTERVAL_SEC"`
	// TickersFile lists one symbol per line; missing file uses the defaults.
	TickersFile string `env:"TICKERS_FILE" envDefault:"tickers.txt"`
	// RequestTimeoutSec is the per-call HTTP timeout.
	RequestTimeoutSec int `env:"REQUEST_TIMEOUT_SEC" envDefault:"10"`
}

// LoadDotenv pulls a .env file into the environment before parsing. Real
// environment variables always win. ENV_FILE points at an alternate file and
// NO_DOTENV=1 skips loading entirely.
func LoadDotenv() {
	if os.Getenv("NO_DOTENV") == "1" {
		return
	}
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	_ = godotenv.Load(path)
}

// Load parses and validates configuration from the environment. Validation
// failures are fatal to the caller before any network activity happens.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.NotionToken = strings.TrimSpace(cfg.NotionToken)
	cfg.NotionDatabaseID = strings.TrimSpace(cfg.NotionDatabaseID)
	cfg.AlphaVantageKey = strings.TrimSpace(cfg.AlphaVantageKey)

	if cfg.NotionToken == "" {
		return cfg, fmt.Errorf("NOTION_TOKEN missing")
	}
	if !databaseIDPattern.MatchString(cfg.NotionDatabaseID) {
		return cfg, fmt.Errorf("NOTION_DATABASE_ID missing or invalid")
	}
	if cfg.RequestTimeoutSec <= 0 {
		return cfg, fmt.Errorf("REQUEST_TIMEOUT_SEC must be positive, got %d", cfg.RequestTimeoutSec)
	}
	return cfg, nil
}
