// Package config builds typed configuration from environment variables so
// main stays lean. Provider credentials are explicit fields on the assessor
// config, never read from process-wide state inside the pipeline.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Postgres captures database connection configuration.
type Postgres struct {
	URL string
}

// Redis captures cache connection configuration. An empty URL disables the
// gate status cache.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures audit outbox publishing configuration. Empty Brokers
// disables the outbox publisher.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Assessor enumerates the external AI provider settings as an explicit
// object handed to the assessor at construction.
type Assessor struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// Auth captures JWT validation configuration for caller identity.
type Auth struct {
	JWTSigningKey string
	Issuer        string
	Audience      string
}

// GatePolicy captures the tunable decision thresholds and the override
// permission set.
type GatePolicy struct {
	BlockingLevel  string
	BlockingScore  int
	OverrideRoles  []string
	ForbiddenTerms []string
	StatusCacheTTL time.Duration
}

// Config aggregates all sections.
type Config struct {
	Server   Server
	Postgres Postgres
	Redis    Redis
	Kafka    Kafka
	Assessor Assessor
	Auth     Auth
	Gate     GatePolicy
}

// FromEnv builds a Config from environment variables, applying development
// defaults where safe to do so.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            getEnv("RISKGATE_ADDR", ":8080"),
			ShutdownTimeout: getDuration("RISKGATE_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: Postgres{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers: getList("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_AUDIT_TOPIC", "riskgate.audit"),
		},
		Assessor: Assessor{
			Provider: getEnv("AI_PROVIDER", "openrouter"),
			BaseURL:  getEnv("AI_BASE_URL", "https://openrouter.ai/api/v1"),
			APIKey:   os.Getenv("AI_API_KEY"),
			Model:    getEnv("AI_MODEL", "anthropic/claude-3.5-sonnet"),
			Timeout:  getDuration("AI_TIMEOUT", 60*time.Second),
		},
		Auth: Auth{
			// Default is for development only - override in production.
			JWTSigningKey: getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:        getEnv("JWT_ISSUER", "riskgate"),
			Audience:      getEnv("JWT_AUDIENCE", "riskgate-api"),
		},
		Gate: GatePolicy{
			BlockingLevel: getEnv("GATE_BLOCKING_LEVEL", "high"),
			BlockingScore: getInt("GATE_BLOCKING_SCORE", 80),
			OverrideRoles: getListDefault("GATE_OVERRIDE_ROLES",
				[]string{"admin", "ceo", "manager", "approver", "finance"}),
			// Empty means the precheck falls back to its built-in term list.
			ForbiddenTerms: getList("GATE_FORBIDDEN_TERMS"),
			StatusCacheTTL: getDuration("GATE_STATUS_CACHE_TTL", 5*time.Minute),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getListDefault(key string, fallback []string) []string {
	if list := getList(key); list != nil {
		return list
	}
	return fallback
}
