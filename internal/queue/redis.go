package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/toreyjames/TokenMeter/internal/models"
)

// RedisQueue implements Queue on a Redis list. Records are pushed to the
// tail and popped from the head, so usage logs are written in arrival
// order even across multiple writer processes.
type RedisQueue struct {
	client *redis.Client
	qKey   string
}

// NewRedisQueue creates a Redis-backed queue on an existing client.
func NewRedisQueue(client *redis.Client, config *Config) (*RedisQueue, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if config == nil {
		config = DefaultConfig("usage")
	}
	return &RedisQueue{
		client: client,
		qKey:   fmt.Sprintf("queue:%s", config.Name),
	}, nil
}

func (q *RedisQueue) Enqueue(ctx context.Context, record *models.RequestLog) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	if err := q.client.RPush(ctx, q.qKey, data).Err(); err != nil {
		return fmt.Errorf("failed to push to Redis: %w", err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context, maxItems int) ([]*models.RequestLog, error) {
	result, err := q.client.BLPop(ctx, 0, q.qKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to pop from Redis: %w", err)
	}

	// result[0] is the key, result[1] is the value
	records, err := decodeRecords(nil, result[1])
	if err != nil {
		return nil, err
	}
	return q.drainInto(ctx, records, maxItems), nil
}

func (q *RedisQueue) DequeueWithTimeout(ctx context.Context, maxItems int, timeout time.Duration) ([]*models.RequestLog, error) {
	result, err := q.client.BLPop(ctx, timeout, q.qKey).Result()
	if err == redis.Nil {
		return []*models.RequestLog{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop from Redis: %w", err)
	}

	records, err := decodeRecords(nil, result[1])
	if err != nil {
		return nil, err
	}
	return q.drainInto(ctx, records, maxItems), nil
}

// drainInto pops further records without blocking, up to maxItems.
// Records that fail to decode are skipped rather than wedging the writer.
func (q *RedisQueue) drainInto(ctx context.Context, records []*models.RequestLog, maxItems int) []*models.RequestLog {
	for len(records) < maxItems {
		result, err := q.client.LPop(ctx, q.qKey).Result()
		if err != nil {
			return records
		}
		records, _ = decodeRecords(records, result)
	}
	return records
}

func decodeRecords(records []*models.RequestLog, data string) ([]*models.RequestLog, error) {
	var record models.RequestLog
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return records, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return append(records, &record), nil
}

func (q *RedisQueue) Length(ctx context.Context) (int, error) {
	length, err := q.client.LLen(ctx, q.qKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue length: %w", err)
	}
	return int(length), nil
}

// Close is a no-op; the shared Redis client is owned by the caller.
func (q *RedisQueue) Close() error {
	return nil
}

// RedisDeadLetterQueue implements DeadLetterQueue on a Redis hash keyed
// by entry ID.
type RedisDeadLetterQueue struct {
	client *redis.Client
	dlKey  string
}

// NewRedisDeadLetterQueue creates a Redis-backed dead letter queue on an
// existing client.
func NewRedisDeadLetterQueue(client *redis.Client, config *Config) (*RedisDeadLetterQueue, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if config == nil {
		config = DefaultConfig("usage")
	}
	return &RedisDeadLetterQueue{
		client: client,
		dlKey:  fmt.Sprintf("dlq:%s", config.Name),
	}, nil
}

func (q *RedisDeadLetterQueue) Add(ctx context.Context, record *models.RequestLog, cause error) error {
	entry := DeadLetterEntry{
		ID:        generateEntryID(),
		Record:    record,
		Error:     cause.Error(),
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter entry: %w", err)
	}

	if err := q.client.HSet(ctx, q.dlKey, entry.ID, data).Err(); err != nil {
		return fmt.Errorf("failed to add to dead letter queue: %w", err)
	}
	return nil
}

func (q *RedisDeadLetterQueue) List(ctx context.Context, maxItems int) ([]DeadLetterEntry, error) {
	results, err := q.client.HGetAll(ctx, q.dlKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list dead letter entries: %w", err)
	}

	entries := make([]DeadLetterEntry, 0, len(results))
	for _, data := range results {
		var entry DeadLetterEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			continue // skip malformed entries
		}
		entries = append(entries, entry)

		if maxItems > 0 && len(entries) >= maxItems {
			break
		}
	}
	return entries, nil
}

func (q *RedisDeadLetterQueue) Remove(ctx context.Context, id string) error {
	if err := q.client.HDel(ctx, q.dlKey, id).Err(); err != nil {
		return fmt.Errorf("failed to remove from dead letter queue: %w", err)
	}
	return nil
}

func (q *RedisDeadLetterQueue) Close() error {
	return nil
}
