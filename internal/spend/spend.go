// Package spend keeps low-latency running totals of metered cost per
// credential. The totals live in Redis keyed by calendar month; the
// request log in Postgres remains the source of truth, these counters
// exist so dashboards and alert checks do not have to aggregate the log
// on every read.
package spend

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Tracker accumulates metered cost per credential.
type Tracker interface {
	// AddUsage adds cost in cents to the credential's running total for
	// the current month.
	AddUsage(ctx context.Context, credentialID string, costCents int) error

	// MonthlySpending returns the credential's accumulated cost in cents
	// for the current month.
	MonthlySpending(ctx context.Context, credentialID string) (int, error)
}

// NoopTracker discards usage. Used when Redis is not configured.
type NoopTracker struct{}

func NewNoopTracker() *NoopTracker {
	return &NoopTracker{}
}

func (t *NoopTracker) AddUsage(ctx context.Context, credentialID string, costCents int) error {
	return nil
}

func (t *NoopTracker) MonthlySpending(ctx context.Context, credentialID string) (int, error) {
	return 0, nil
}

// RedisTracker keeps monthly totals in Redis.
type RedisTracker struct {
	redis *redis.Client
}

// NewRedisTracker creates a tracker on an existing Redis client.
func NewRedisTracker(client *redis.Client) *RedisTracker {
	return &RedisTracker{redis: client}
}

// addUsageScript increments the monthly counter and refreshes its TTL in
// one round trip. Counters are integers in cents, so INCRBY is exact.
var addUsageScript = redis.NewScript(`
	local key = KEYS[1]
	local cents = tonumber(ARGV[1])
	local ttl = tonumber(ARGV[2])

	local total = redis.call('INCRBY', key, cents)
	redis.call('EXPIRE', key, ttl)
	return total
`)

// Counters are kept for two months so the previous month stays readable
// briefly after rollover.
const spendTTLSeconds = 60 * 24 * 60 * 60

func (t *RedisTracker) AddUsage(ctx context.Context, credentialID string, costCents int) error {
	now := time.Now()
	key := monthlyKey(credentialID, now.Year(), int(now.Month()))

	_, err := addUsageScript.Run(ctx, t.redis, []string{key}, costCents, spendTTLSeconds).Result()
	if err != nil {
		return fmt.Errorf("failed to add usage: %w", err)
	}
	return nil
}

func (t *RedisTracker) MonthlySpending(ctx context.Context, credentialID string) (int, error) {
	now := time.Now()
	return t.spendingFor(ctx, credentialID, now.Year(), int(now.Month()))
}

// SpendingFor returns the accumulated cost in cents for a specific month.
func (t *RedisTracker) SpendingFor(ctx context.Context, credentialID string, year, month int) (int, error) {
	return t.spendingFor(ctx, credentialID, year, month)
}

func (t *RedisTracker) spendingFor(ctx context.Context, credentialID string, year, month int) (int, error) {
	val, err := t.redis.Get(ctx, monthlyKey(credentialID, year, month)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get monthly spending: %w", err)
	}
	return val, nil
}

func monthlyKey(credentialID string, year, month int) string {
	return fmt.Sprintf("cost:%s:%d:%02d", credentialID, year, month)
}
