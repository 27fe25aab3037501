package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// PlaceholderPrivateKey is the value shipped in .env.example. A key that
// still equals it was never replaced by the operator.
const PlaceholderPrivateKey = "your_private_key_here"

// Error reports a missing or invalid configuration value. It is fatal at
// startup: the process must not enter the trading loop carrying one.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// Config holds the grid parameters for one process. Loaded once at startup
// and treated as immutable afterwards.
type Config struct {
	Symbol        string        // trading pair, e.g. "BTC-USD"
	Chain         string        // wallet chain for StandX signin, e.g. "bsc"
	UpperPrice    float64       // upper grid bound
	LowerPrice    float64       // lower grid bound
	PriceStep     float64       // distance between adjacent grid levels
	PriceSpread   float64       // distance of the first level from current price
	GridCount     int           // levels per side
	OrderQuantity float64       // quantity per grid order
	SleepInterval time.Duration // pause between reconciliation cycles
}

// Account is the single resolved credential for this process.
type Account struct {
	Index      string // two-digit account index, e.g. "01"
	PrivateKey string // wallet private key (hex)
}

// Load reads the grid configuration from environment variables.
// godotenv has already populated the environment when running locally.
func Load() (*Config, error) {
	cfg := &Config{
		Symbol:        "BTC-USD",
		Chain:         "bsc",
		GridCount:     5,
		SleepInterval: 10 * time.Second,
	}

	if v := strings.TrimSpace(os.Getenv("GRID_SYMBOL")); v != "" {
		cfg.Symbol = v
	}
	if v := strings.TrimSpace(os.Getenv("STANDX_CHAIN")); v != "" {
		cfg.Chain = v
	}

	var err error
	if cfg.UpperPrice, err = floatEnv("GRID_UPPER_PRICE"); err != nil {
		return nil, err
	}
	if cfg.LowerPrice, err = floatEnv("GRID_LOWER_PRICE"); err != nil {
		return nil, err
	}
	if cfg.PriceStep, err = floatEnv("GRID_PRICE_STEP"); err != nil {
		return nil, err
	}
	if cfg.PriceSpread, err = floatEnv("GRID_PRICE_SPREAD"); err != nil {
		return nil, err
	}
	if cfg.OrderQuantity, err = floatEnv("GRID_ORDER_QUANTITY"); err != nil {
		return nil, err
	}

	if v := strings.TrimSpace(os.Getenv("GRID_COUNT")); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil {
			return nil, &Error{Field: "GRID_COUNT", Reason: fmt.Sprintf("not an integer: %q", v)}
		}
		cfg.GridCount = n
	}
	if v := strings.TrimSpace(os.Getenv("GRID_SLEEP_INTERVAL")); v != "" {
		secs, convErr := strconv.ParseFloat(v, 64)
		if convErr != nil || secs <= 0 {
			return nil, &Error{Field: "GRID_SLEEP_INTERVAL", Reason: fmt.Sprintf("not a positive number of seconds: %q", v)}
		}
		cfg.SleepInterval = time.Duration(secs * float64(time.Second))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the grid bounds and sizes.
func (c *Config) Validate() error {
	if c.UpperPrice <= c.LowerPrice {
		return &Error{
			Field:  "GRID_UPPER_PRICE/GRID_LOWER_PRICE",
			Reason: fmt.Sprintf("upper price %.2f must be greater than lower price %.2f", c.UpperPrice, c.LowerPrice),
		}
	}
	if c.LowerPrice <= 0 {
		return &Error{Field: "GRID_LOWER_PRICE", Reason: "must be positive"}
	}
	if c.PriceStep <= 0 {
		return &Error{Field: "GRID_PRICE_STEP", Reason: "must be positive"}
	}
	if c.PriceSpread <= 0 {
		return &Error{Field: "GRID_PRICE_SPREAD", Reason: "must be positive"}
	}
	if c.OrderQuantity <= 0 {
		return &Error{Field: "GRID_ORDER_QUANTITY", Reason: "must be positive"}
	}
	if c.GridCount < 1 {
		return &Error{Field: "GRID_COUNT", Reason: "must be at least 1"}
	}
	if c.SleepInterval <= 0 {
		return &Error{Field: "GRID_SLEEP_INTERVAL", Reason: "must be positive"}
	}
	return nil
}

// ResolveAccount selects the credential for the given account index.
// A single-digit index is zero-padded ("1" -> "01"); the key is read from
// PRIVATE_KEY_<index>. Multiple accounts run as independent processes,
// each resolving exactly one key.
func ResolveAccount(index string) (*Account, error) {
	index = strings.TrimSpace(index)
	if index == "" {
		index = "01"
	}
	if len(index) == 1 {
		index = "0" + index
	}

	envKey := "PRIVATE_KEY_" + index
	key := strings.TrimSpace(os.Getenv(envKey))
	if key == "" {
		return nil, &Error{Field: envKey, Reason: "not set; add it to your environment or .env file"}
	}
	if key == PlaceholderPrivateKey {
		return nil, &Error{Field: envKey, Reason: "still the placeholder value; replace it with a real private key"}
	}

	return &Account{Index: index, PrivateKey: key}, nil
}

func floatEnv(name string) (float64, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return 0, &Error{Field: name, Reason: "not set"}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &Error{Field: name, Reason: fmt.Sprintf("not a number: %q", v)}
	}
	return f, nil
}
