package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/toreyjames/TokenMeter/internal/models"
	"github.com/toreyjames/TokenMeter/internal/queue"
	"github.com/toreyjames/TokenMeter/internal/utils"
)

// requestLogInserter is the slice of RequestLogRepository the worker
// needs, kept narrow so tests can substitute a fake.
type requestLogInserter interface {
	Create(ctx context.Context, record *models.RequestLog) error
	CreateBatch(ctx context.Context, records []*models.RequestLog) error
}

// LogQueueWorker drains the usage log queue into Postgres in batches.
// The proxy enqueues and forgets; this worker owns durability, retries,
// and the dead letter queue.
type LogQueueWorker struct {
	queue       queue.Queue
	dlq         queue.DeadLetterQueue
	repo        requestLogInserter
	config      *queue.Config
	logger      *utils.Logger
	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewLogQueueWorker creates a new log queue worker
func NewLogQueueWorker(q queue.Queue, dlq queue.DeadLetterQueue, repo requestLogInserter, config *queue.Config) *LogQueueWorker {
	if config == nil {
		config = queue.DefaultConfig("usage")
	}

	return &LogQueueWorker{
		queue:       q,
		dlq:         dlq,
		repo:        repo,
		config:      config,
		logger:      utils.NewLogger("log-worker"),
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
}

// Start starts the worker goroutine
func (w *LogQueueWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop gracefully stops the worker after its current batch.
func (w *LogQueueWorker) Stop() error {
	close(w.stopChan)
	<-w.stoppedChan
	return nil
}

// Enqueue adds a usage record to the queue.
func (w *LogQueueWorker) Enqueue(ctx context.Context, record *models.RequestLog) error {
	return w.queue.Enqueue(ctx, record)
}

// QueueLength returns the current queue depth.
func (w *LogQueueWorker) QueueLength(ctx context.Context) (int, error) {
	return w.queue.Length(ctx)
}

func (w *LogQueueWorker) run(ctx context.Context) {
	defer close(w.stoppedChan)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Log worker stopping")
			return
		case <-ctx.Done():
			w.logger.Info("Log worker context cancelled")
			return
		default:
			w.processBatch(ctx)
		}
	}
}

// processBatch drains one batch from the queue and writes it out.
func (w *LogQueueWorker) processBatch(ctx context.Context) {
	records, err := w.queue.DequeueWithTimeout(ctx, w.config.BatchSize, w.config.BatchTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Error("Failed to dequeue usage records", "error", err)
		time.Sleep(1 * time.Second) // back off on error
		return
	}

	if len(records) == 0 {
		return
	}

	w.logger.Debug("Processing usage batch", "count", len(records))

	if err := w.repo.CreateBatch(ctx, records); err != nil {
		w.logger.Error("Batch insert failed, falling back to individual inserts", "error", err)
		for _, record := range records {
			if err := w.processRecord(ctx, record); err != nil {
				w.logger.Error("Failed to process usage record", "error", err)
			}
		}
	}
}

// processRecord inserts one record with retries, sending it to the dead
// letter queue when retries are exhausted.
func (w *LogQueueWorker) processRecord(ctx context.Context, record *models.RequestLog) error {
	var lastErr error
	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := w.config.RetryBackoff * time.Duration(1<<uint(attempt-1))
			w.logger.Debug("Retrying usage record", "attempt", attempt, "backoff", backoff)
			time.Sleep(backoff)
		}

		if err := w.repo.Create(ctx, record); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	if w.dlq != nil {
		if err := w.dlq.Add(ctx, record, lastErr); err != nil {
			w.logger.Error("Failed to add to dead letter queue", "error", err)
		} else {
			w.logger.Warn("Usage record moved to DLQ", "record_id", record.ID, "error", lastErr)
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// DeadLetterEntries returns entries from the dead letter queue.
func (w *LogQueueWorker) DeadLetterEntries(ctx context.Context, maxItems int) ([]queue.DeadLetterEntry, error) {
	if w.dlq == nil {
		return nil, fmt.Errorf("dead letter queue not configured")
	}
	return w.dlq.List(ctx, maxItems)
}

// RetryDeadLetterEntry re-enqueues a dead letter entry.
func (w *LogQueueWorker) RetryDeadLetterEntry(ctx context.Context, id string) error {
	if w.dlq == nil {
		return fmt.Errorf("dead letter queue not configured")
	}

	entries, err := w.dlq.List(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to list dead letter entries: %w", err)
	}

	for _, entry := range entries {
		if entry.ID != id {
			continue
		}
		if err := w.queue.Enqueue(ctx, entry.Record); err != nil {
			return fmt.Errorf("failed to re-enqueue record: %w", err)
		}
		if err := w.dlq.Remove(ctx, id); err != nil {
			return fmt.Errorf("failed to remove from dead letter queue: %w", err)
		}
		return nil
	}
	return queue.ErrEntryNotFound
}
