package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/toreyjames/TokenMeter/internal/models"
)

// AccountRepository handles dashboard account database operations
type AccountRepository struct {
	db *DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{
		db: db,
	}
}

// Create inserts a new account.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}

	query := `
		INSERT INTO accounts (id, email, password_hash, enabled)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := r.db.conn.QueryRowContext(
		ctx, query,
		account.ID, account.Email, account.PasswordHash, account.Enabled,
	).Scan(&account.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetByEmail retrieves an account by email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	query := `
		SELECT id, email, password_hash, enabled, last_login_at, created_at
		FROM accounts
		WHERE email = $1
	`

	err := r.db.conn.GetContext(ctx, &account, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	query := `
		SELECT id, email, password_hash, enabled, last_login_at, created_at
		FROM accounts
		WHERE id = $1
	`

	err := r.db.conn.GetContext(ctx, &account, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// UpdateLastLogin records a successful login.
func (r *AccountRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE accounts SET last_login_at = NOW() WHERE id = $1`

	result, err := r.db.conn.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrAccountNotFound
	}
	return nil
}
