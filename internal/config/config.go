package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds configuration for the metering gateway.
type Config struct {
	HTTPPort      string
	JWTSecret     []byte
	EncryptionKey string // base64, used for provider keys at rest
	Database      DatabaseConfig
	Cache         CacheConfig
	Redis         RedisConfig
	Proxy         ProxyConfig
	LogQueue      LogQueueConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// CacheConfig holds credential cache settings
type CacheConfig struct {
	CredentialCacheSize int
	CredentialCacheTTL  time.Duration
}

// RedisConfig holds Redis connection settings. An empty Address disables
// Redis; the log queue and spend tracker fall back to in-process variants.
type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ProxyConfig holds settings for the metering proxy path
type ProxyConfig struct {
	UpstreamTimeout       time.Duration // bound on one upstream provider call
	ResponsePreviewLength int           // max bytes of response body kept per log record
	StoreRequestBodies    bool          // persist raw request snapshots for debugging
}

// LogQueueConfig holds settings for the async usage-log pipeline
type LogQueueConfig struct {
	BatchSize    int
	BatchTimeout time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getEnvBool(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val == "true" || val == "1"
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getEnvString(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	encryptionKey := os.Getenv("ENCRYPTION_KEY")
	if encryptionKey == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}

	cfg := &Config{
		HTTPPort:      getEnvString("HTTP_PORT", "8080"),
		JWTSecret:     []byte(getEnvString("JWT_SECRET", "supersecretkey")),
		EncryptionKey: encryptionKey,
		Database: DatabaseConfig{
			URL:             dbURL,
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),
		},
		Cache: CacheConfig{
			CredentialCacheSize: getEnvInt("CACHE_CREDENTIAL_SIZE", 1000),
			CredentialCacheTTL:  getEnvDuration("CACHE_CREDENTIAL_TTL", 5*time.Minute),
		},
		Redis: RedisConfig{
			Address:      getEnvString("REDIS_ADDRESS", ""),
			Password:     getEnvString("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Proxy: ProxyConfig{
			UpstreamTimeout:       getEnvDuration("UPSTREAM_TIMEOUT", 120*time.Second),
			ResponsePreviewLength: getEnvInt("RESPONSE_PREVIEW_LENGTH", 500),
			StoreRequestBodies:    getEnvBool("STORE_REQUEST_BODIES", true),
		},
		LogQueue: LogQueueConfig{
			BatchSize:    getEnvInt("LOG_QUEUE_BATCH_SIZE", 100),
			BatchTimeout: getEnvDuration("LOG_QUEUE_BATCH_TIMEOUT", 5*time.Second),
			MaxRetries:   getEnvInt("LOG_QUEUE_MAX_RETRIES", 3),
			RetryBackoff: getEnvDuration("LOG_QUEUE_RETRY_BACKOFF", 1*time.Second),
		},
	}

	return cfg, nil
}
