package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/toreyjames/TokenMeter/internal/models"
)

// CredentialRepository handles proxy credential database operations.
// Provider keys are encrypted before they hit a row and decrypted on the
// way out, so callers only ever see plaintext.
type CredentialRepository struct {
	db *DB
}

// NewCredentialRepository creates a new credential repository
func NewCredentialRepository(db *DB) *CredentialRepository {
	return &CredentialRepository{
		db: db,
	}
}

const credentialColumns = `
	id, account_id, name, key_hash, key_prefix,
	openai_key, anthropic_key, gemini_key, grok_key, mistral_key, groq_key,
	created_at, last_used_at
`

// Create inserts a new credential. The caller supplies plaintext
// provider keys; they are encrypted here.
func (r *CredentialRepository) Create(ctx context.Context, cred *models.Credential) error {
	if cred.ID == uuid.Nil {
		cred.ID = uuid.New()
	}

	row := *cred
	if err := r.encryptKeys(&row); err != nil {
		return err
	}

	query := `
		INSERT INTO credentials (
			id, account_id, name, key_hash, key_prefix,
			openai_key, anthropic_key, gemini_key, grok_key, mistral_key, groq_key
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`

	err := r.db.conn.QueryRowContext(
		ctx, query,
		row.ID, row.AccountID, row.Name, row.KeyHash, row.KeyPrefix,
		row.OpenAIKey, row.AnthropicKey, row.GeminiKey, row.GrokKey, row.MistralKey, row.GroqKey,
	).Scan(&cred.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create credential: %w", err)
	}
	return nil
}

// GetByHash retrieves a credential by the SHA-256 hex of its secret.
// This is the proxy hot path lookup.
func (r *CredentialRepository) GetByHash(ctx context.Context, keyHash string) (*models.Credential, error) {
	var cred models.Credential
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE key_hash = $1`

	err := r.db.conn.GetContext(ctx, &cred, query, keyHash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	if err := r.decryptKeys(&cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

// GetByID retrieves a credential by ID, scoped to an account.
func (r *CredentialRepository) GetByID(ctx context.Context, accountID string, id uuid.UUID) (*models.Credential, error) {
	var cred models.Credential
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE id = $1 AND account_id = $2`

	err := r.db.conn.GetContext(ctx, &cred, query, id, accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	if err := r.decryptKeys(&cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

// ListByAccount retrieves all credentials belonging to an account,
// newest first.
func (r *CredentialRepository) ListByAccount(ctx context.Context, accountID string) ([]*models.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE account_id = $1 ORDER BY created_at DESC`

	var creds []*models.Credential
	if err := r.db.conn.SelectContext(ctx, &creds, query, accountID); err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}

	for _, cred := range creds {
		if err := r.decryptKeys(cred); err != nil {
			return nil, err
		}
	}
	return creds, nil
}

// TouchLastUsed records that the credential was just used. Failures are
// the caller's to ignore; metering never blocks on this.
func (r *CredentialRepository) TouchLastUsed(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE credentials SET last_used_at = NOW() WHERE id = $1`

	result, err := r.db.conn.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to touch credential: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrCredentialNotFound
	}
	return nil
}

// Delete removes a credential, scoped to an account so one account can
// never delete another's connection.
func (r *CredentialRepository) Delete(ctx context.Context, accountID string, id uuid.UUID) error {
	query := `DELETE FROM credentials WHERE id = $1 AND account_id = $2`

	result, err := r.db.conn.ExecContext(ctx, query, id, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrCredentialNotFound
	}

	r.db.credentialCache.Clear()
	return nil
}

func (r *CredentialRepository) encryptKeys(cred *models.Credential) error {
	for _, provider := range models.ProviderIDs {
		plaintext := cred.KeyFor(provider)
		if plaintext == "" {
			continue
		}
		encrypted, err := r.db.encryption.EncryptString(plaintext)
		if err != nil {
			return fmt.Errorf("failed to encrypt %s key: %w", provider, err)
		}
		cred.SetKeyFor(provider, encrypted)
	}
	return nil
}

func (r *CredentialRepository) decryptKeys(cred *models.Credential) error {
	for _, provider := range models.ProviderIDs {
		encrypted := cred.KeyFor(provider)
		if encrypted == "" {
			continue
		}
		plaintext, err := r.db.encryption.DecryptString(encrypted)
		if err != nil {
			return fmt.Errorf("failed to decrypt %s key: %w", provider, err)
		}
		cred.SetKeyFor(provider, plaintext)
	}
	return nil
}
