package queue

import (
	"context"
	"sync"
	"time"

	"github.com/toreyjames/TokenMeter/internal/models"
)

// MemoryQueue implements Queue with a buffered channel. Records do not
// survive a restart; this backend is for deployments without Redis.
type MemoryQueue struct {
	records chan *models.RequestLog
	mu      sync.RWMutex
	closed  bool
}

// NewMemoryQueue creates an in-memory queue sized for ten full batches.
func NewMemoryQueue(config *Config) *MemoryQueue {
	if config == nil {
		config = DefaultConfig("memory")
	}
	return &MemoryQueue{
		records: make(chan *models.RequestLog, config.BatchSize*10),
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, record *models.RequestLog) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.records <- record:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context, maxItems int) ([]*models.RequestLog, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return nil, ErrQueueClosed
	}

	var records []*models.RequestLog

	select {
	case record := <-q.records:
		records = append(records, record)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return q.drainInto(records, maxItems), nil
}

func (q *MemoryQueue) DequeueWithTimeout(ctx context.Context, maxItems int, timeout time.Duration) ([]*models.RequestLog, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return nil, ErrQueueClosed
	}

	var records []*models.RequestLog

	select {
	case record := <-q.records:
		records = append(records, record)
	case <-time.After(timeout):
		return records, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return q.drainInto(records, maxItems), nil
}

// drainInto collects further records without blocking, up to maxItems.
func (q *MemoryQueue) drainInto(records []*models.RequestLog, maxItems int) []*models.RequestLog {
	for len(records) < maxItems {
		select {
		case record := <-q.records:
			records = append(records, record)
		default:
			return records
		}
	}
	return records
}

func (q *MemoryQueue) Length(ctx context.Context) (int, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return 0, ErrQueueClosed
	}
	return len(q.records), nil
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	close(q.records)
	return nil
}

// MemoryDeadLetterQueue implements DeadLetterQueue in process memory.
type MemoryDeadLetterQueue struct {
	entries []DeadLetterEntry
	mu      sync.RWMutex
	closed  bool
}

// NewMemoryDeadLetterQueue creates an in-memory dead letter queue.
func NewMemoryDeadLetterQueue() *MemoryDeadLetterQueue {
	return &MemoryDeadLetterQueue{
		entries: make([]DeadLetterEntry, 0),
	}
}

func (q *MemoryDeadLetterQueue) Add(ctx context.Context, record *models.RequestLog, err error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	q.entries = append(q.entries, DeadLetterEntry{
		ID:        generateEntryID(),
		Record:    record,
		Error:     err.Error(),
		Timestamp: time.Now(),
	})
	return nil
}

func (q *MemoryDeadLetterQueue) List(ctx context.Context, maxItems int) ([]DeadLetterEntry, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return nil, ErrQueueClosed
	}

	if maxItems <= 0 || maxItems > len(q.entries) {
		maxItems = len(q.entries)
	}

	result := make([]DeadLetterEntry, maxItems)
	copy(result, q.entries[:maxItems])
	return result, nil
}

func (q *MemoryDeadLetterQueue) Remove(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	for i, entry := range q.entries {
		if entry.ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return nil
		}
	}
	return ErrEntryNotFound
}

func (q *MemoryDeadLetterQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.entries = nil
	return nil
}

// generateEntryID gives dead letter entries a sortable unique ID.
func generateEntryID() string {
	return time.Now().Format("20060102150405.000000")
}
