package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/toreyjames/TokenMeter/internal/models"
)

func testRecord(model string) *models.RequestLog {
	return &models.RequestLog{
		ID:           uuid.New(),
		CredentialID: uuid.New(),
		Provider:     "openai",
		Model:        model,
		Endpoint:     "chat/completions",
		InputTokens:  100,
		OutputTokens: 50,
		CostCents:    3,
		LatencyMs:    420,
		StatusCode:   200,
		CreatedAt:    time.Now(),
	}
}

func TestMemoryQueue_EnqueueDequeue(t *testing.T) {
	q := NewMemoryQueue(DefaultConfig("test"))
	defer q.Close()

	ctx := context.Background()

	record := testRecord("gpt-4o-mini")
	if err := q.Enqueue(ctx, record); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	records, err := q.Dequeue(ctx, 1)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}

	if records[0].ID != record.ID {
		t.Errorf("Expected record %s, got %s", record.ID, records[0].ID)
	}
}

func TestMemoryQueue_BatchDequeue(t *testing.T) {
	config := DefaultConfig("test")
	config.BatchSize = 5
	q := NewMemoryQueue(config)
	defer q.Close()

	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := q.Enqueue(ctx, testRecord("gpt-4o")); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	records, err := q.Dequeue(ctx, 5)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if len(records) != 5 {
		t.Errorf("Expected 5 records, got %d", len(records))
	}

	records, err = q.Dequeue(ctx, 10)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if len(records) != 5 {
		t.Errorf("Expected 5 remaining records, got %d", len(records))
	}
}

func TestMemoryQueue_DequeueWithTimeout(t *testing.T) {
	q := NewMemoryQueue(DefaultConfig("test"))
	defer q.Close()

	ctx := context.Background()

	start := time.Now()
	records, err := q.DequeueWithTimeout(ctx, 1, 100*time.Millisecond)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("DequeueWithTimeout failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected 0 records, got %d", len(records))
	}
	if elapsed < 100*time.Millisecond {
		t.Errorf("Expected timeout, but returned early: %v", elapsed)
	}

	if err := q.Enqueue(ctx, testRecord("gpt-4o")); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	records, err = q.DequeueWithTimeout(ctx, 1, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("DequeueWithTimeout failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("Expected 1 record, got %d", len(records))
	}
}

func TestMemoryQueue_Length(t *testing.T) {
	q := NewMemoryQueue(DefaultConfig("test"))
	defer q.Close()

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := q.Enqueue(ctx, testRecord("gpt-4o")); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	length, err := q.Length(ctx)
	if err != nil {
		t.Fatalf("Length failed: %v", err)
	}
	if length != 3 {
		t.Errorf("Expected length 3, got %d", length)
	}
}

func TestMemoryQueue_Closed(t *testing.T) {
	q := NewMemoryQueue(DefaultConfig("test"))
	q.Close()

	ctx := context.Background()

	if err := q.Enqueue(ctx, testRecord("gpt-4o")); err != ErrQueueClosed {
		t.Errorf("Expected ErrQueueClosed, got %v", err)
	}
	if _, err := q.Length(ctx); err != ErrQueueClosed {
		t.Errorf("Expected ErrQueueClosed, got %v", err)
	}

	// Closing again is a no-op
	if err := q.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}
}

func TestMemoryDeadLetterQueue(t *testing.T) {
	dlq := NewMemoryDeadLetterQueue()
	defer dlq.Close()

	ctx := context.Background()

	record := testRecord("gpt-4o")
	if err := dlq.Add(ctx, record, errors.New("insert failed")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	entries, err := dlq.List(ctx, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].Record.ID != record.ID {
		t.Errorf("Expected record %s, got %s", record.ID, entries[0].Record.ID)
	}
	if entries[0].Error != "insert failed" {
		t.Errorf("Expected error message preserved, got %q", entries[0].Error)
	}

	if err := dlq.Remove(ctx, entries[0].ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	entries, err = dlq.List(ctx, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty dead letter queue, got %d entries", len(entries))
	}

	if err := dlq.Remove(ctx, "missing"); err != ErrEntryNotFound {
		t.Errorf("Expected ErrEntryNotFound, got %v", err)
	}
}
