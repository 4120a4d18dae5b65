// Package queue buffers usage log records between the metering proxy and
// the database writer. Two backends are available: an in-memory
// channel-based queue for standalone deployments, and a Redis list-backed
// queue that survives restarts and supports distributed writers. Records
// that repeatedly fail to insert land in a dead letter queue for
// inspection instead of being dropped silently.
package queue

import (
	"context"
	"time"

	"github.com/toreyjames/TokenMeter/internal/models"
)

// Queue accepts usage records from the proxy hot path and hands them to
// the batch writer. Enqueue must be cheap; the proxy calls it after the
// response has already been sent to the client.
type Queue interface {
	// Enqueue adds a usage record to the queue.
	Enqueue(ctx context.Context, record *models.RequestLog) error

	// Dequeue retrieves up to maxItems records, blocking until at least
	// one is available or the context is cancelled.
	Dequeue(ctx context.Context, maxItems int) ([]*models.RequestLog, error)

	// DequeueWithTimeout retrieves up to maxItems records, returning an
	// empty slice if none arrive before the timeout.
	DequeueWithTimeout(ctx context.Context, maxItems int, timeout time.Duration) ([]*models.RequestLog, error)

	// Length returns the current queue depth.
	Length(ctx context.Context) (int, error)

	// Close shuts down the queue.
	Close() error
}

// DeadLetterQueue holds records that exhausted their insert retries.
type DeadLetterQueue interface {
	// Add stores a failed record together with the final error.
	Add(ctx context.Context, record *models.RequestLog, err error) error

	// List retrieves up to maxItems dead letter entries.
	List(ctx context.Context, maxItems int) ([]DeadLetterEntry, error)

	// Remove deletes an entry by ID.
	Remove(ctx context.Context, id string) error

	// Close shuts down the dead letter queue.
	Close() error
}

// DeadLetterEntry is a failed usage record with its failure context.
type DeadLetterEntry struct {
	ID        string             `json:"id"`
	Record    *models.RequestLog `json:"record"`
	Error     string             `json:"error"`
	Timestamp time.Time          `json:"timestamp"`
}

// Config holds queue tuning parameters shared by both backends.
type Config struct {
	// BatchSize is the maximum number of records per insert batch.
	BatchSize int

	// BatchTimeout is how long the writer waits before flushing a
	// partial batch.
	BatchTimeout time.Duration

	// MaxRetries is the number of insert attempts before a batch goes
	// to the dead letter queue.
	MaxRetries int

	// RetryBackoff is the initial backoff between insert attempts; it
	// doubles on each retry.
	RetryBackoff time.Duration

	// Name distinguishes queue keys when Redis is shared.
	Name string
}

// DefaultConfig returns the tuning used when nothing is configured.
func DefaultConfig(name string) *Config {
	return &Config{
		BatchSize:    100,
		BatchTimeout: 5 * time.Second,
		MaxRetries:   3,
		RetryBackoff: 1 * time.Second,
		Name:         name,
	}
}
