package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/toreyjames/TokenMeter/internal/models"
)

// AlertRepository handles budget alert database operations
type AlertRepository struct {
	db *DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *DB) *AlertRepository {
	return &AlertRepository{
		db: db,
	}
}

// Create inserts a new alert.
func (r *AlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}

	query := `
		INSERT INTO alerts (id, account_id, provider, threshold_cents, period, email, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	err := r.db.conn.QueryRowContext(
		ctx, query,
		alert.ID, alert.AccountID, alert.Provider, alert.ThresholdCents,
		alert.Period, alert.Email, alert.Enabled,
	).Scan(&alert.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

// GetByID retrieves an alert by ID, scoped to an account.
func (r *AlertRepository) GetByID(ctx context.Context, accountID string, id uuid.UUID) (*models.Alert, error) {
	var alert models.Alert
	query := `
		SELECT id, account_id, provider, threshold_cents, period, email, enabled, last_triggered_at, created_at
		FROM alerts
		WHERE id = $1 AND account_id = $2
	`

	err := r.db.conn.GetContext(ctx, &alert, query, id, accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return &alert, nil
}

// ListByAccount retrieves all alerts belonging to an account.
func (r *AlertRepository) ListByAccount(ctx context.Context, accountID string) ([]*models.Alert, error) {
	query := `
		SELECT id, account_id, provider, threshold_cents, period, email, enabled, last_triggered_at, created_at
		FROM alerts
		WHERE account_id = $1
		ORDER BY created_at DESC
	`

	var alerts []*models.Alert
	if err := r.db.conn.SelectContext(ctx, &alerts, query, accountID); err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}

// Update rewrites an alert's mutable fields.
func (r *AlertRepository) Update(ctx context.Context, alert *models.Alert) error {
	query := `
		UPDATE alerts
		SET provider = $3, threshold_cents = $4, period = $5, email = $6, enabled = $7
		WHERE id = $1 AND account_id = $2
	`

	result, err := r.db.conn.ExecContext(
		ctx, query,
		alert.ID, alert.AccountID, alert.Provider, alert.ThresholdCents,
		alert.Period, alert.Email, alert.Enabled,
	)
	if err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// MarkTriggered records that the alert fired, for cooldown bookkeeping.
func (r *AlertRepository) MarkTriggered(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE alerts SET last_triggered_at = NOW() WHERE id = $1`

	result, err := r.db.conn.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark alert triggered: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// Delete removes an alert, scoped to an account.
func (r *AlertRepository) Delete(ctx context.Context, accountID string, id uuid.UUID) error {
	query := `DELETE FROM alerts WHERE id = $1 AND account_id = $2`

	result, err := r.db.conn.ExecContext(ctx, query, id, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrAlertNotFound
	}
	return nil
}
