package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Backends accepted by DATA_BACKEND
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

var validBackends = []string{BackendMemory, BackendSQLite, BackendPostgres, BackendMongo}

type Config struct {
	// HTTP Server
	Port           string
	AllowedOrigins []string
	RateLimit      int // POST requests per minute per client, 0 disables

	// Backend selection
	DataBackend string

	// Databases
	SQLiteDBPath  string
	PostgresURL   string
	MongoURI      string
	MongoDatabase string

	// AMQP (optional, carries unfinished compensations)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Auth
	AuthURL          string
	AuthAPIKey       string
	AuthStaticTokens string
	AuthCacheTTL     time.Duration

	// Ingestion
	ChunkSize            int
	MaxUploadBytes       int64
	StrictDates          bool
	CompensationAttempts int
	CompensationBackoff  time.Duration

	// Worker
	WorkerMaxAttempts int

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8081"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		RateLimit:      getEnvInt("RATE_LIMIT_PER_MINUTE", 30),

		DataBackend: getEnv("DATA_BACKEND", BackendMemory),

		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/finanzas.db"),
		PostgresURL:   getEnv("POSTGRES_URL", ""),
		MongoURI:      getEnv("MONGO_URI", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", "finanzas"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finanzas"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "compensations"),

		AuthURL:          getEnv("AUTH_URL", ""),
		AuthAPIKey:       getEnv("AUTH_API_KEY", ""),
		AuthStaticTokens: getEnv("AUTH_STATIC_TOKENS", ""),
		AuthCacheTTL:     getEnvDuration("AUTH_CACHE_TTL", time.Minute),

		ChunkSize:            getEnvInt("INGEST_CHUNK_SIZE", 1000),
		MaxUploadBytes:       int64(getEnvInt("MAX_UPLOAD_BYTES", 5<<20)),
		StrictDates:          getEnvBool("STRICT_DATES", true),
		CompensationAttempts: getEnvInt("COMPENSATION_ATTEMPTS", 3),
		CompensationBackoff:  getEnvDuration("COMPENSATION_BACKOFF", 200*time.Millisecond),

		WorkerMaxAttempts: getEnvInt("WORKER_MAX_ATTEMPTS", 5),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// AMQPEnabled reports whether unfinished compensations go to a queue
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Validate checks every setting and reports all problems at once
func (c *Config) Validate() error {
	return c.validate(true)
}

// ValidateOffline is Validate without the auth settings, for processes that
// never take HTTP callers (worker, CLI).
func (c *Config) ValidateOffline() error {
	return c.validate(false)
}

func (c *Config) validate(requireAuth bool) error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	case BackendPostgres:
		if c.PostgresURL == "" {
			errors = append(errors, "POSTGRES_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.PostgresURL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errors = append(errors, fmt.Sprintf("invalid POSTGRES_URL '%s': scheme must be 'postgres' or 'postgresql'", redact(c.PostgresURL)))
		}
	case BackendMongo:
		if c.MongoURI == "" {
			errors = append(errors, "MONGO_URI is required when using mongo backend")
		} else if !strings.HasPrefix(c.MongoURI, "mongodb://") && !strings.HasPrefix(c.MongoURI, "mongodb+srv://") {
			errors = append(errors, "invalid MONGO_URI: scheme must be 'mongodb' or 'mongodb+srv'")
		}
		if c.MongoDatabase == "" {
			errors = append(errors, "MONGO_DATABASE cannot be empty when using mongo backend")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if requireAuth && c.AuthURL == "" && c.AuthStaticTokens == "" {
		errors = append(errors, "either AUTH_URL or AUTH_STATIC_TOKENS must be provided")
	}
	if c.AuthURL != "" {
		if u, err := url.Parse(c.AuthURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid AUTH_URL '%s': must be an http(s) URL", c.AuthURL))
		}
	}
	if c.AuthCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid auth cache TTL %v: must not be negative", c.AuthCacheTTL))
	}

	if c.ChunkSize < 1 || c.ChunkSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid chunk size %d: must be between 1 and 1000", c.ChunkSize))
	}
	if c.MaxUploadBytes < 1 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %d: must be at least 1 byte", c.MaxUploadBytes))
	}
	if c.CompensationAttempts < 1 || c.CompensationAttempts > 10 {
		errors = append(errors, fmt.Sprintf("invalid compensation attempts %d: must be between 1 and 10", c.CompensationAttempts))
	}
	if c.CompensationBackoff < 0 || c.CompensationBackoff > 30*time.Second {
		errors = append(errors, fmt.Sprintf("invalid compensation backoff %v: must be between 0 and 30s", c.CompensationBackoff))
	}
	if c.WorkerMaxAttempts < 1 {
		errors = append(errors, fmt.Sprintf("invalid worker max attempts %d: must be at least 1", c.WorkerMaxAttempts))
	}
	if c.RateLimit < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimit))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// redact hides the password of a connection URL
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable>"
	}
	return u.Redacted()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
