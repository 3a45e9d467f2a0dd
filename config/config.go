// Package config reads the application settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Store kinds.
const (
	StoreJSONL  = "jsonl"
	StoreSQLite = "sqlite"
)

// Config holds application configuration.
type Config struct {
	LedgerPath         string // transaction log file
	Store              string // StoreJSONL or StoreSQLite
	ReportingCurrency  string
	FinnhubAPIKey      string
	ExchangeRateAPIKey string
	FinnhubBaseURL     string
	FinMindBaseURL     string
	YahooBaseURL       string
	ExchangeRateURL    string
	PriceTTL           time.Duration
	NameTTL            time.Duration
	RateTTL            time.Duration
	HTTPTimeout        time.Duration
	FetchConcurrency   int
	LogLevel           string
	LogPretty          bool
}

// Load reads an optional .env file in the working directory then the
// environment. Missing or invalid values get defaults.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		LedgerPath:         getEnv("HOLDINGS_LEDGER", "transactions.jsonl"),
		Store:              strings.ToLower(getEnv("HOLDINGS_STORE", StoreJSONL)),
		ReportingCurrency:  strings.ToUpper(getEnv("HOLDINGS_REPORTING_CURRENCY", "TWD")),
		FinnhubAPIKey:      getEnv("FINNHUB_API_KEY", ""),
		ExchangeRateAPIKey: getEnv("EXCHANGERATE_API_KEY", ""),
		FinnhubBaseURL:     getEnv("FINNHUB_BASE_URL", "https://finnhub.io/api/v1"),
		FinMindBaseURL:     getEnv("FINMIND_BASE_URL", "https://api.finmindtrade.com/api/v4"),
		YahooBaseURL:       getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
		ExchangeRateURL:    getEnv("EXCHANGERATE_BASE_URL", "https://v6.exchangerate-api.com/v6"),
		PriceTTL:           getEnvAsDuration("PRICE_TTL", 5*time.Minute),
		NameTTL:            getEnvAsDuration("NAME_TTL", 24*time.Hour),
		RateTTL:            getEnvAsDuration("RATE_TTL", time.Hour),
		HTTPTimeout:        getEnvAsDuration("HTTP_TIMEOUT", 10*time.Second),
		FetchConcurrency:   getEnvAsInt("FETCH_CONCURRENCY", 4),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogPretty:          getEnvAsBool("LOG_PRETTY", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	if c.LedgerPath == "" {
		return fmt.Errorf("HOLDINGS_LEDGER is required")
	}
	if c.Store != StoreJSONL && c.Store != StoreSQLite {
		return fmt.Errorf("HOLDINGS_STORE must be %q or %q, got %q", StoreJSONL, StoreSQLite, c.Store)
	}
	if len(c.ReportingCurrency) != 3 {
		return fmt.Errorf("HOLDINGS_REPORTING_CURRENCY must be an ISO currency code, got %q", c.ReportingCurrency)
	}
	if c.FetchConcurrency < 1 {
		return fmt.Errorf("FETCH_CONCURRENCY must be positive, got %d", c.FetchConcurrency)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Warn().Str("key", key).Str("value", value).Msg("invalid integer, using default")
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
		log.Warn().Str("key", key).Str("value", value).Msg("invalid boolean, using default")
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
		log.Warn().Str("key", key).Str("value", value).Msg("invalid duration, using default")
	}
	return defaultValue
}
