// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults applied when the corresponding environment variable is unset.
const (
	DefaultListenAddr      = ":80"
	DefaultBlockRange      = 200
	DefaultRPCRateLimit    = 20
	DefaultRPCBurst        = 40
	DefaultHTTPRateLimit   = 10
	DefaultHTTPBurst       = 20
	DefaultRPCTimeout      = 30 * time.Second
	DefaultHeadRefreshSpec = "@every 15s"

	// USDC on Ethereum mainnet, the reference leg for USD quotes.
	DefaultUSDReferenceToken = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
)

// Config holds the runtime configuration for the service.
type Config struct {
	ListenAddr string

	// Ethereum node
	NodeURL      string
	RPCTimeout   time.Duration
	RPCRateLimit int
	RPCBurst     int

	// Dependencies
	RedisURL    string
	DatabaseURL string

	// Conversion parameters
	BlockRange        int
	USDReferenceToken string
	HeadRefreshSpec   string

	// HTTP rate limiting
	HTTPRateLimit int
	HTTPBurst     int
}

// Load reads configuration from a .env file (if present) and the
// environment. Missing optional values fall back to defaults.
func Load() Config {
	// Same behavior as load_dotenv: a missing file is not an error.
	_ = godotenv.Load()

	return Config{
		ListenAddr:        envOr("LISTEN_ADDR", DefaultListenAddr),
		NodeURL:           strings.TrimSpace(os.Getenv("NODE_URL")),
		RPCTimeout:        envDurationOr("RPC_TIMEOUT", DefaultRPCTimeout),
		RPCRateLimit:      envIntOr("RPC_RATE_LIMIT", DefaultRPCRateLimit),
		RPCBurst:          envIntOr("RPC_BURST", DefaultRPCBurst),
		RedisURL:          strings.TrimSpace(os.Getenv("REDIS_URL")),
		DatabaseURL:       strings.TrimSpace(os.Getenv("DATABASE_URL")),
		BlockRange:        envIntOr("BLOCK_RANGE", DefaultBlockRange),
		USDReferenceToken: strings.ToLower(envOr("USD_REFERENCE_TOKEN", DefaultUSDReferenceToken)),
		HeadRefreshSpec:   envOr("HEAD_REFRESH_CRON", DefaultHeadRefreshSpec),
		HTTPRateLimit:     envIntOr("HTTP_RATE_LIMIT", DefaultHTTPRateLimit),
		HTTPBurst:         envIntOr("HTTP_BURST", DefaultHTTPBurst),
	}
}

// Validate checks required fields.
func (c Config) Validate() error {
	if c.NodeURL == "" {
		return fmt.Errorf("NODE_URL is required")
	}
	if c.BlockRange <= 0 {
		return fmt.Errorf("BLOCK_RANGE must be positive, got %d", c.BlockRange)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
