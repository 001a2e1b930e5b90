package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration for the worker binary. Business
// packages receive their dependencies explicitly; nothing reads the
// environment past startup.
type Config struct {
	OpsAddr string

	RedisURL    string
	PostgresDSN string

	// KafkaBrokers enables the best-effort audit sink when non-empty.
	KafkaBrokers []string
	AuditTopic   string

	WorkersPerTopic int
	MaxAttempts     int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	Visibility      time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		OpsAddr:         envOr("AGRIGATE_OPS_ADDR", ":9090"),
		RedisURL:        os.Getenv("AGRIGATE_REDIS_URL"),
		PostgresDSN:     os.Getenv("AGRIGATE_POSTGRES_DSN"),
		KafkaBrokers:    splitList(os.Getenv("AGRIGATE_KAFKA_BROKERS")),
		AuditTopic:      envOr("AGRIGATE_AUDIT_TOPIC", "audit-events"),
		WorkersPerTopic: envInt("AGRIGATE_WORKERS_PER_TOPIC", 2),
		MaxAttempts:     envInt("AGRIGATE_MAX_ATTEMPTS", 3),
		BaseDelay:       envDuration("AGRIGATE_BASE_DELAY", time.Second),
		MaxDelay:        envDuration("AGRIGATE_MAX_DELAY", time.Minute),
		Visibility:      envDuration("AGRIGATE_VISIBILITY", 30*time.Second),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
