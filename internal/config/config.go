// Package config loads watcher configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mr-tron/base58"

	"solana-transfer-watch/internal/classify"
	"solana-transfer-watch/internal/solana"
)

// Config is the full watcher configuration.
type Config struct {
	// WSEndpoint is the Solana WebSocket endpoint for logsSubscribe.
	WSEndpoint string
	// RPCEndpoint is the Solana HTTP JSON-RPC endpoint.
	RPCEndpoint string
	// TelegramToken is the bot credential.
	TelegramToken string
	// WatchedAddresses is the ordered list of monitored addresses.
	WatchedAddresses []string
	// Policy is the configured target-amount policy.
	Policy classify.AmountPolicy
	// NonceAware enables advance-nonce wrapper handling.
	NonceAware bool
	// MaxReconnects bounds consecutive reconnect attempts.
	MaxReconnects int
	// SubscriberDBPath is the SQLite path for the subscriber list; empty
	// keeps subscribers in memory only.
	SubscriberDBPath string
	// MetricsAddr is the Prometheus listen address; empty disables it.
	MetricsAddr string
	// LogLevel is the zerolog level name.
	LogLevel string
}

// Load reads configuration from the environment. A .env file in the
// working directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		WSEndpoint:       os.Getenv("WS_ENDPOINT"),
		RPCEndpoint:      os.Getenv("RPC_ENDPOINT"),
		TelegramToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		SubscriberDBPath: os.Getenv("SUBSCRIBER_DB_PATH"),
		MetricsAddr:      envOr("METRICS_ADDR", ":9090"),
		LogLevel:         envOr("LOG_LEVEL", "info"),
	}

	if cfg.WSEndpoint == "" {
		return nil, fmt.Errorf("WS_ENDPOINT is required")
	}
	if cfg.RPCEndpoint == "" {
		return nil, fmt.Errorf("RPC_ENDPOINT is required")
	}
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	addrs, err := parseAddresses(os.Getenv("WATCHED_ADDRESSES"))
	if err != nil {
		return nil, err
	}
	cfg.WatchedAddresses = addrs

	policy, err := parsePolicy()
	if err != nil {
		return nil, err
	}
	cfg.Policy = policy

	cfg.NonceAware, err = envBool("NONCE_AWARE", false)
	if err != nil {
		return nil, err
	}

	cfg.MaxReconnects, err = envInt("MAX_RECONNECT_ATTEMPTS", 10)
	if err != nil {
		return nil, err
	}
	if cfg.MaxReconnects < 1 {
		return nil, fmt.Errorf("MAX_RECONNECT_ATTEMPTS must be at least 1")
	}

	return cfg, nil
}

// parseAddresses validates a comma-separated base58 address list.
func parseAddresses(raw string) ([]string, error) {
	var addrs []string
	for _, part := range strings.Split(raw, ",") {
		addr := strings.TrimSpace(part)
		if addr == "" {
			continue
		}
		decoded, err := base58.Decode(addr)
		if err != nil {
			return nil, fmt.Errorf("WATCHED_ADDRESSES: %q is not base58: %w", addr, err)
		}
		if len(decoded) != 32 {
			return nil, fmt.Errorf("WATCHED_ADDRESSES: %q is not a 32-byte key", addr)
		}
		addrs = append(addrs, addr)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("WATCHED_ADDRESSES must list at least one address")
	}
	return addrs, nil
}

// parsePolicy builds the amount policy from AMOUNT_POLICY and its
// shape-specific variables. The two shapes are explicit configuration,
// never collapsed into one.
func parsePolicy() (classify.AmountPolicy, error) {
	switch shape := os.Getenv("AMOUNT_POLICY"); shape {
	case "interval":
		low, err := envSOL("AMOUNT_MIN_SOL")
		if err != nil {
			return nil, err
		}
		high, err := envSOL("AMOUNT_MAX_SOL")
		if err != nil {
			return nil, err
		}
		if low > high {
			return nil, fmt.Errorf("AMOUNT_MIN_SOL exceeds AMOUNT_MAX_SOL")
		}
		return classify.IntervalPolicy{Low: low, High: high}, nil

	case "targets":
		raw := os.Getenv("AMOUNT_TARGETS_SOL")
		if raw == "" {
			return nil, fmt.Errorf("AMOUNT_TARGETS_SOL is required for the targets policy")
		}
		var targets []uint64
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			lamports, err := solToLamports(part)
			if err != nil {
				return nil, fmt.Errorf("AMOUNT_TARGETS_SOL: %w", err)
			}
			targets = append(targets, lamports)
		}
		if len(targets) == 0 {
			return nil, fmt.Errorf("AMOUNT_TARGETS_SOL must list at least one target")
		}
		tolerance, err := envSOL("AMOUNT_TOLERANCE_SOL")
		if err != nil {
			return nil, err
		}
		return classify.TargetsPolicy{Targets: targets, Tolerance: tolerance}, nil

	case "":
		return nil, fmt.Errorf("AMOUNT_POLICY is required (interval or targets)")
	default:
		return nil, fmt.Errorf("AMOUNT_POLICY: unknown shape %q (want interval or targets)", shape)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envSOL(key string) (uint64, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	lamports, err := solToLamports(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return lamports, nil
}

func solToLamports(s string) (uint64, error) {
	sol, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse SOL amount %q: %w", s, err)
	}
	if sol < 0 {
		return 0, fmt.Errorf("SOL amount %q is negative", s)
	}
	return uint64(math.Round(sol * solana.LamportsPerSOL)), nil
}
