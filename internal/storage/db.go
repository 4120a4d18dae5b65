package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/toreyjames/TokenMeter/internal/config"
)

// DB wraps the database connection together with the credential cache
// and the encryption service used for provider keys at rest.
type DB struct {
	conn       *sqlx.DB
	encryption *Encryption

	credentialCache *LRUCache
}

// NewDB connects to Postgres and configures the pool.
func NewDB(cfg *config.Config) (*DB, error) {
	conn, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	conn.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	conn.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

	encryption, err := NewEncryptionFromBase64(cfg.EncryptionKey)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize encryption: %w", err)
	}

	return &DB{
		conn:            conn,
		encryption:      encryption,
		credentialCache: NewLRUCache(cfg.Cache.CredentialCacheSize, cfg.Cache.CredentialCacheTTL),
	}, nil
}

// Close closes the database connection and clears the credential cache.
func (db *DB) Close() error {
	db.credentialCache.Clear()
	return db.conn.Close()
}

// Ping checks if the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Health verifies the database can serve a query.
func (db *DB) Health(ctx context.Context) error {
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var result int
	if err := db.conn.GetContext(ctx, &result, "SELECT 1"); err != nil {
		return fmt.Errorf("health check query failed: %w", err)
	}
	return nil
}

// Conn returns the underlying sqlx connection for queries not covered
// by the repositories.
func (db *DB) Conn() *sqlx.DB {
	return db.conn
}

// CredentialCache returns the shared credential cache.
func (db *DB) CredentialCache() *LRUCache {
	return db.credentialCache
}

// CleanupExpiredCacheEntries drops expired cache entries. Called
// periodically from the server loop.
func (db *DB) CleanupExpiredCacheEntries() int {
	return db.credentialCache.CleanupExpired()
}

// Repository factory methods

// NewCredentialRepository creates a credential repository.
func (db *DB) NewCredentialRepository() *CredentialRepository {
	return NewCredentialRepository(db)
}

// NewRequestLogRepository creates a request log repository.
func (db *DB) NewRequestLogRepository() *RequestLogRepository {
	return NewRequestLogRepository(db)
}

// NewAlertRepository creates an alert repository.
func (db *DB) NewAlertRepository() *AlertRepository {
	return NewAlertRepository(db)
}

// NewAccountRepository creates an account repository.
func (db *DB) NewAccountRepository() *AccountRepository {
	return NewAccountRepository(db)
}
