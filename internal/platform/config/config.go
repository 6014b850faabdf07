package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr string
}

// OIDC captures the provider engine configuration surface. All values are
// static after load; the provider factory consumes them once.
type OIDC struct {
	// Enabled gates the whole subsystem. When false the provider factory
	// fails fast and the routes answer 404.
	Enabled bool
	Issuer  string
	// InteractionBaseURL is where the browser is sent when a prompt is
	// required; the external UI renders /interaction/{uid} from it.
	InteractionBaseURL string
	SigningKey         string
	// ClientsFile points at the JSON client registry. Empty means the
	// built-in development registry.
	ClientsFile     string
	AccessTokenTTL  time.Duration
	IDTokenTTL      time.Duration
	AuthCodeTTL     time.Duration
	InteractionTTL  time.Duration
	GrantTTL        time.Duration
	ConsentAudience string
}

// RedisConfig controls the optional Redis-backed interaction session store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig controls the optional Postgres-backed grant/token/audit
// stores. Empty DSN selects the in-memory stores.
type PostgresConfig struct {
	DSN string
}

// KafkaConfig controls the optional audit event publisher.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Config aggregates every section consumed in cmd/server.
type Config struct {
	Server   Server
	OIDC     OIDC
	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig
}

// FromEnv builds the full configuration from environment variables so main
// stays lean. Defaults suit local development.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr: envOr("OIDCGATE_ADDR", ":8080"),
		},
		OIDC: OIDC{
			Enabled:            envBool("OIDC_ENABLED", true),
			Issuer:             envOr("OIDC_ISSUER", "http://localhost:8080"),
			InteractionBaseURL: envOr("OIDC_INTERACTION_BASE_URL", "http://localhost:8080/interaction"),
			SigningKey:         envOr("OIDC_SIGNING_KEY", "dev-secret-key-change-in-production"),
			ClientsFile:        os.Getenv("OIDC_CLIENTS_FILE"),
			AccessTokenTTL:     envDuration("OIDC_ACCESS_TOKEN_TTL", time.Hour),
			IDTokenTTL:         envDuration("OIDC_ID_TOKEN_TTL", time.Hour),
			AuthCodeTTL:        envDuration("OIDC_AUTH_CODE_TTL", 10*time.Minute),
			InteractionTTL:     envDuration("OIDC_INTERACTION_TTL", time.Hour),
			GrantTTL:           envDuration("OIDC_GRANT_TTL", 0),
			ConsentAudience:    envOr("OIDC_CONSENT_AUDIENCE", "oidcgate"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("POSTGRES_DSN"),
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			Topic:   envOr("KAFKA_AUDIT_TOPIC", "oidcgate.audit"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitNonEmpty(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
