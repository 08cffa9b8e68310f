// Package config loads the service configuration from environment
// variables. Every value has a usable default so the service boots into the
// in-memory local mode with no environment at all.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full runtime configuration of the consultation service.
type Config struct {
	// Port the fiber app listens on.
	Port string
	// DatabaseURL is the Postgres DSN. Empty selects the in-memory store.
	DatabaseURL string
	// RedisAddr is the address of the advisory-lock Redis. Empty selects the
	// process-local locker.
	RedisAddr     string
	RedisPassword string

	// IdentitySecret signs and verifies the platform bearer tokens.
	IdentitySecret string

	// Video provider settings. An empty VideoAPIURL selects the in-memory
	// provider.
	VideoAPIURL      string
	VideoAPIKey      string
	VideoTokenSecret string
	JoinTokenTTL     time.Duration

	// Payment provider settings. An empty PaymentAPIURL selects the
	// in-memory provider.
	PaymentAPIURL string
	PaymentAPIKey string

	// FeeCurrency and FeeOverridesCents parameterize the specialty fee
	// schedule.
	FeeCurrency       string
	FeeOverridesCents map[string]int64
}

// Load reads the configuration from the environment.
func Load() *Config {
	return &Config{
		Port:              getEnv("APP_PORT", "8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		IdentitySecret:    getEnv("IDENTITY_TOKEN_SECRET", "dev-identity-secret"),
		VideoAPIURL:       os.Getenv("VIDEO_API_URL"),
		VideoAPIKey:       os.Getenv("VIDEO_API_KEY"),
		VideoTokenSecret:  getEnv("VIDEO_TOKEN_SECRET", "dev-video-token-secret"),
		JoinTokenTTL:      getEnvDuration("JOIN_TOKEN_TTL", 15*time.Minute),
		PaymentAPIURL:     os.Getenv("PAYMENT_API_URL"),
		PaymentAPIKey:     os.Getenv("PAYMENT_API_KEY"),
		FeeCurrency:       getEnv("FEE_CURRENCY", "USD"),
		FeeOverridesCents: parseFeeOverrides(os.Getenv("FEE_OVERRIDES_CENTS")),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// parseFeeOverrides parses "CARDIOLOGY=9900,PSYCHIATRY=8800" into a
// specialty -> cents map. Malformed entries are skipped; the fee schedule
// ignores unknown specialties on its own.
func parseFeeOverrides(raw string) map[string]int64 {
	if raw == "" {
		return nil
	}
	out := make(map[string]int64)
	for _, pair := range strings.Split(raw, ",") {
		name, amount, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		cents, err := strconv.ParseInt(strings.TrimSpace(amount), 10, 64)
		if err != nil {
			continue
		}
		out[strings.TrimSpace(name)] = cents
	}
	return out
}
