package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// HTTP client
	HTTPTimeout time.Duration

	// Supabase (document store + auth)
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string

	// Resilience. Defaults make every external call a single plain attempt.
	MaxRetries            int
	InitialBackoff        time.Duration
	MaxConcurrency        int
	CircuitBreakerEnabled bool

	// Cache
	CacheTTL      time.Duration
	RolePromptTTL time.Duration

	// Observability
	OTLPEndpoint   string
	TracingEnabled bool

	// JWT / Auth
	JWTSecret    string
	JWTAccessTTL time.Duration

	// Cart storage: sqlite | redis | memory
	CartBackend    string
	CartSQLitePath string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	// Order events; empty brokers disables publishing
	KafkaBrokers    string
	KafkaOrderTopic string

	// Orders / catalog
	OrderLookupConcurrency int
	OrderStatusStrict      bool
	ProductListLimit       int
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),

		MaxRetries:            getEnvInt("MAX_RETRIES", 0),
		InitialBackoff:        getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency:        getEnvInt("MAX_CONCURRENCY", 0),
		CircuitBreakerEnabled: getEnvBool("CIRCUIT_BREAKER_ENABLED", false),

		CacheTTL:      getEnvDuration("CACHE_TTL", 30*time.Second),
		RolePromptTTL: getEnvPositiveDuration("ROLE_PROMPT_TTL", 5*time.Minute),

		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TracingEnabled: getEnvBool("TRACING_ENABLED", false),

		JWTSecret:    getEnv("JWT_SECRET", "storefront-default-dev-secret-change-me"),
		JWTAccessTTL: getEnvPositiveDuration("JWT_ACCESS_TTL", time.Hour),

		CartBackend:    getEnv("CART_BACKEND", "sqlite"),
		CartSQLitePath: getEnv("CART_SQLITE_PATH", "cart.db"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),

		KafkaBrokers:    getEnv("KAFKA_BROKERS", ""),
		KafkaOrderTopic: getEnv("KAFKA_ORDER_TOPIC", "storefront.orders"),

		OrderLookupConcurrency: getEnvInt("ORDER_LOOKUP_CONCURRENCY", 1),
		OrderStatusStrict:      getEnvBool("ORDER_STATUS_STRICT", false),
		ProductListLimit:       getEnvInt("PRODUCT_LIST_LIMIT", 50),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvPositiveDuration is getEnvDuration for lifetimes that cannot be zero:
// a non-positive value falls back too.
func getEnvPositiveDuration(key string, fallback time.Duration) time.Duration {
	if d := getEnvDuration(key, fallback); d > 0 {
		return d
	}
	return fallback
}
