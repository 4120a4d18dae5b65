package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is a dashboard user able to manage credentials and alerts.
// Passwords are bcrypt hashed. The metering path never touches accounts;
// it authenticates by proxy secret only.
type Account struct {
	ID           uuid.UUID  `db:"id"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"` // bcrypt
	Enabled      bool       `db:"enabled"`
	LastLoginAt  *time.Time `db:"last_login_at"`
	CreatedAt    time.Time  `db:"created_at"`
}
