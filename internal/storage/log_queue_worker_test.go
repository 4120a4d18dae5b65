package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/toreyjames/TokenMeter/internal/models"
	"github.com/toreyjames/TokenMeter/internal/queue"
)

// fakeLogInserter simulates the request log repository, optionally
// failing the first N inserts.
type fakeLogInserter struct {
	mu       sync.Mutex
	records  []*models.RequestLog
	failures int
}

func (f *fakeLogInserter) Create(ctx context.Context, record *models.RequestLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failures > 0 {
		f.failures--
		return fmt.Errorf("simulated database error")
	}
	f.records = append(f.records, record)
	return nil
}

func (f *fakeLogInserter) CreateBatch(ctx context.Context, records []*models.RequestLog) error {
	f.mu.Lock()
	failing := f.failures > 0
	f.mu.Unlock()

	if failing {
		return fmt.Errorf("simulated batch failure")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, records...)
	return nil
}

func (f *fakeLogInserter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func workerTestConfig() *queue.Config {
	cfg := queue.DefaultConfig("test")
	cfg.BatchTimeout = 50 * time.Millisecond
	cfg.MaxRetries = 2
	cfg.RetryBackoff = 10 * time.Millisecond
	return cfg
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func workerTestRecord() *models.RequestLog {
	return &models.RequestLog{
		ID:           uuid.New(),
		CredentialID: uuid.New(),
		Provider:     "openai",
		Model:        "gpt-4o-mini",
		Endpoint:     "chat/completions",
		InputTokens:  10,
		OutputTokens: 5,
		CostCents:    1,
		StatusCode:   200,
	}
}

func TestLogQueueWorker_InsertsBatch(t *testing.T) {
	cfg := workerTestConfig()
	q := queue.NewMemoryQueue(cfg)
	inserter := &fakeLogInserter{}

	worker := NewLogQueueWorker(q, queue.NewMemoryDeadLetterQueue(), inserter, cfg)
	worker.Start(context.Background())
	defer worker.Stop()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := worker.Enqueue(ctx, workerTestRecord()); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	waitFor(t, 2*time.Second, func() bool { return inserter.count() == 5 })
}

func TestLogQueueWorker_RetriesThenSucceeds(t *testing.T) {
	cfg := workerTestConfig()
	q := queue.NewMemoryQueue(cfg)
	inserter := &fakeLogInserter{failures: 2}

	worker := NewLogQueueWorker(q, queue.NewMemoryDeadLetterQueue(), inserter, cfg)
	worker.Start(context.Background())
	defer worker.Stop()

	if err := worker.Enqueue(context.Background(), workerTestRecord()); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	// The batch insert fails, then the individual path burns both
	// remaining failures before the final retry lands the record.
	waitFor(t, 3*time.Second, func() bool { return inserter.count() == 1 })
}

func TestLogQueueWorker_ExhaustedRetriesGoToDLQ(t *testing.T) {
	cfg := workerTestConfig()
	q := queue.NewMemoryQueue(cfg)
	dlq := queue.NewMemoryDeadLetterQueue()
	inserter := &fakeLogInserter{failures: 100}

	worker := NewLogQueueWorker(q, dlq, inserter, cfg)
	worker.Start(context.Background())
	defer worker.Stop()

	record := workerTestRecord()
	if err := worker.Enqueue(context.Background(), record); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	waitFor(t, 3*time.Second, func() bool {
		entries, err := dlq.List(context.Background(), 10)
		return err == nil && len(entries) == 1
	})

	entries, err := dlq.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if entries[0].Record.ID != record.ID {
		t.Errorf("Expected record %s in DLQ, got %s", record.ID, entries[0].Record.ID)
	}
	if inserter.count() != 0 {
		t.Errorf("Expected no inserted records, got %d", inserter.count())
	}
}

func TestLogQueueWorker_StopIsClean(t *testing.T) {
	cfg := workerTestConfig()
	q := queue.NewMemoryQueue(cfg)
	worker := NewLogQueueWorker(q, queue.NewMemoryDeadLetterQueue(), &fakeLogInserter{}, cfg)

	worker.Start(context.Background())
	if err := worker.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestLogQueueWorker_RetryDeadLetterEntry(t *testing.T) {
	cfg := workerTestConfig()
	q := queue.NewMemoryQueue(cfg)
	dlq := queue.NewMemoryDeadLetterQueue()
	inserter := &fakeLogInserter{}

	// Worker not started; drive the DLQ directly.
	worker := NewLogQueueWorker(q, dlq, inserter, cfg)

	ctx := context.Background()
	record := workerTestRecord()
	if err := dlq.Add(ctx, record, fmt.Errorf("db down")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	entries, err := worker.DeadLetterEntries(ctx, 10)
	if err != nil {
		t.Fatalf("DeadLetterEntries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}

	if err := worker.RetryDeadLetterEntry(ctx, entries[0].ID); err != nil {
		t.Fatalf("RetryDeadLetterEntry failed: %v", err)
	}

	length, err := worker.QueueLength(ctx)
	if err != nil {
		t.Fatalf("QueueLength failed: %v", err)
	}
	if length != 1 {
		t.Errorf("Expected re-enqueued record, queue length %d", length)
	}

	entries, err = worker.DeadLetterEntries(ctx, 10)
	if err != nil {
		t.Fatalf("DeadLetterEntries failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty DLQ after retry, got %d entries", len(entries))
	}

	if err := worker.RetryDeadLetterEntry(ctx, "missing"); err != queue.ErrEntryNotFound {
		t.Errorf("Expected ErrEntryNotFound, got %v", err)
	}
}
