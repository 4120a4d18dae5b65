package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/toreyjames/TokenMeter/internal/models"
)

// RequestLogRepository handles the append-only usage log. Records are
// inserted by the queue worker and read by the dashboard; there are no
// update or delete operations.
type RequestLogRepository struct {
	db *DB
}

// NewRequestLogRepository creates a new request log repository
func NewRequestLogRepository(db *DB) *RequestLogRepository {
	return &RequestLogRepository{
		db: db,
	}
}

// Create inserts a single usage record.
func (r *RequestLogRepository) Create(ctx context.Context, record *models.RequestLog) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO request_logs (
			id, credential_id, provider, model, endpoint,
			input_tokens, output_tokens, cost_cents, latency_ms, status_code,
			request_body, response_preview, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.conn.ExecContext(
		ctx, query,
		record.ID, record.CredentialID, record.Provider, record.Model, record.Endpoint,
		record.InputTokens, record.OutputTokens, record.CostCents, record.LatencyMs, record.StatusCode,
		record.RequestBody, record.ResponsePreview, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create request log: %w", err)
	}
	return nil
}

// CreateBatch inserts records in one transaction. Used by the queue
// worker so a batch either lands whole or retries whole.
func (r *RequestLogRepository) CreateBatch(ctx context.Context, records []*models.RequestLog) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO request_logs (
			id, credential_id, provider, model, endpoint,
			input_tokens, output_tokens, cost_cents, latency_ms, status_code,
			request_body, response_preview, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	for _, record := range records {
		if record.ID == uuid.Nil {
			record.ID = uuid.New()
		}
		if record.CreatedAt.IsZero() {
			record.CreatedAt = time.Now()
		}

		_, err := tx.ExecContext(
			ctx, query,
			record.ID, record.CredentialID, record.Provider, record.Model, record.Endpoint,
			record.InputTokens, record.OutputTokens, record.CostCents, record.LatencyMs, record.StatusCode,
			record.RequestBody, record.ResponsePreview, record.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert request log: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LogFilter narrows a log listing. Zero values mean "no filter".
// Model matches as a case-insensitive substring.
type LogFilter struct {
	CredentialID *uuid.UUID
	Provider     string
	Model        string
	Since        time.Time
	Limit        int
	Offset       int
}

// ListByAccount retrieves usage records for all of an account's
// credentials, newest first.
func (r *RequestLogRepository) ListByAccount(ctx context.Context, accountID string, filter LogFilter) ([]*models.RequestLog, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT l.id, l.credential_id, l.provider, l.model, l.endpoint,
		       l.input_tokens, l.output_tokens, l.cost_cents, l.latency_ms, l.status_code,
		       l.request_body, l.response_preview, l.created_at
		FROM request_logs l
		JOIN credentials c ON c.id = l.credential_id
		WHERE c.account_id = $1
	`)

	args := []interface{}{accountID}
	if filter.CredentialID != nil {
		args = append(args, *filter.CredentialID)
		fmt.Fprintf(&sb, " AND l.credential_id = $%d", len(args))
	}
	if filter.Provider != "" {
		args = append(args, filter.Provider)
		fmt.Fprintf(&sb, " AND l.provider = $%d", len(args))
	}
	if filter.Model != "" {
		args = append(args, filter.Model)
		fmt.Fprintf(&sb, " AND l.model ILIKE '%%' || $%d || '%%'", len(args))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		fmt.Fprintf(&sb, " AND l.created_at >= $%d", len(args))
	}

	sb.WriteString(" ORDER BY l.created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)
	fmt.Fprintf(&sb, " LIMIT $%d", len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	var records []*models.RequestLog
	if err := r.db.conn.SelectContext(ctx, &records, sb.String(), args...); err != nil {
		return nil, fmt.Errorf("failed to list request logs: %w", err)
	}
	return records, nil
}

// UsageTotals are the headline numbers for a period.
type UsageTotals struct {
	Requests     int `db:"requests"`
	InputTokens  int `db:"input_tokens"`
	OutputTokens int `db:"output_tokens"`
	CostCents    int `db:"cost_cents"`
}

// DailyUsage is one day's aggregated spend.
type DailyUsage struct {
	Day       time.Time `db:"day"`
	Requests  int       `db:"requests"`
	CostCents int       `db:"cost_cents"`
}

// GroupUsage is spend aggregated by model or by provider.
type GroupUsage struct {
	Key          string `db:"key"`
	Requests     int    `db:"requests"`
	InputTokens  int    `db:"input_tokens"`
	OutputTokens int    `db:"output_tokens"`
	CostCents    int    `db:"cost_cents"`
}

// Totals aggregates an account's usage since a point in time.
func (r *RequestLogRepository) Totals(ctx context.Context, accountID string, since time.Time) (*UsageTotals, error) {
	query := `
		SELECT COUNT(*) AS requests,
		       COALESCE(SUM(l.input_tokens), 0) AS input_tokens,
		       COALESCE(SUM(l.output_tokens), 0) AS output_tokens,
		       COALESCE(SUM(l.cost_cents), 0) AS cost_cents
		FROM request_logs l
		JOIN credentials c ON c.id = l.credential_id
		WHERE c.account_id = $1 AND l.created_at >= $2
	`

	var totals UsageTotals
	if err := r.db.conn.GetContext(ctx, &totals, query, accountID, since); err != nil {
		return nil, fmt.Errorf("failed to aggregate usage totals: %w", err)
	}
	return &totals, nil
}

// DailyBreakdown aggregates an account's spend per day since a point in
// time, oldest day first.
func (r *RequestLogRepository) DailyBreakdown(ctx context.Context, accountID string, since time.Time) ([]DailyUsage, error) {
	query := `
		SELECT date_trunc('day', l.created_at) AS day,
		       COUNT(*) AS requests,
		       COALESCE(SUM(l.cost_cents), 0) AS cost_cents
		FROM request_logs l
		JOIN credentials c ON c.id = l.credential_id
		WHERE c.account_id = $1 AND l.created_at >= $2
		GROUP BY day
		ORDER BY day
	`

	var days []DailyUsage
	if err := r.db.conn.SelectContext(ctx, &days, query, accountID, since); err != nil {
		return nil, fmt.Errorf("failed to aggregate daily usage: %w", err)
	}
	return days, nil
}

// BreakdownByModel aggregates an account's spend per model, most
// expensive first.
func (r *RequestLogRepository) BreakdownByModel(ctx context.Context, accountID string, since time.Time) ([]GroupUsage, error) {
	return r.breakdownBy(ctx, "l.model", accountID, since)
}

// BreakdownByProvider aggregates an account's spend per provider, most
// expensive first.
func (r *RequestLogRepository) BreakdownByProvider(ctx context.Context, accountID string, since time.Time) ([]GroupUsage, error) {
	return r.breakdownBy(ctx, "l.provider", accountID, since)
}

func (r *RequestLogRepository) breakdownBy(ctx context.Context, column, accountID string, since time.Time) ([]GroupUsage, error) {
	query := fmt.Sprintf(`
		SELECT %s AS key,
		       COUNT(*) AS requests,
		       COALESCE(SUM(l.input_tokens), 0) AS input_tokens,
		       COALESCE(SUM(l.output_tokens), 0) AS output_tokens,
		       COALESCE(SUM(l.cost_cents), 0) AS cost_cents
		FROM request_logs l
		JOIN credentials c ON c.id = l.credential_id
		WHERE c.account_id = $1 AND l.created_at >= $2
		GROUP BY key
		ORDER BY cost_cents DESC
	`, column)

	var groups []GroupUsage
	if err := r.db.conn.SelectContext(ctx, &groups, query, accountID, since); err != nil {
		return nil, fmt.Errorf("failed to aggregate usage by %s: %w", column, err)
	}
	return groups, nil
}

// SpendSince sums cost for one credential since a point in time, with an
// optional provider filter. Used by alert evaluation.
func (r *RequestLogRepository) SpendSince(ctx context.Context, accountID string, provider string, since time.Time) (int, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT COALESCE(SUM(l.cost_cents), 0)
		FROM request_logs l
		JOIN credentials c ON c.id = l.credential_id
		WHERE c.account_id = $1 AND l.created_at >= $2
	`)

	args := []interface{}{accountID, since}
	if provider != "" {
		args = append(args, provider)
		fmt.Fprintf(&sb, " AND l.provider = $%d", len(args))
	}

	var cents int
	if err := r.db.conn.GetContext(ctx, &cents, sb.String(), args...); err != nil {
		return 0, fmt.Errorf("failed to sum spend: %w", err)
	}
	return cents, nil
}
