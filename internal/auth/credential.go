package auth

import (
	"context"
	"errors"

	"github.com/toreyjames/TokenMeter/internal/models"
)

// ErrKeyNotFound is returned for malformed, unknown, and revoked proxy
// secrets alike.
var ErrKeyNotFound = errors.New("credential not found")

// CredentialStore resolves a presented proxy secret into the stored
// credential, including the full decrypted upstream key set. A hit is
// expected to best-effort touch the credential's last-used timestamp
// without blocking the caller.
type CredentialStore interface {
	Lookup(ctx context.Context, presentedSecret string) (*models.Credential, error)
}

// InMemoryCredentialStore is a hash-keyed store for tests and early
// local runs.
type InMemoryCredentialStore struct {
	creds map[string]*models.Credential // key hash -> credential
}

func NewInMemoryCredentialStore() *InMemoryCredentialStore {
	return &InMemoryCredentialStore{
		creds: make(map[string]*models.Credential),
	}
}

// Add stores a credential under the hash of rawSecret.
func (s *InMemoryCredentialStore) Add(rawSecret string, cred *models.Credential) {
	s.creds[HashSecret(rawSecret)] = cred
}

func (s *InMemoryCredentialStore) Lookup(ctx context.Context, presentedSecret string) (*models.Credential, error) {
	if !HasSecretFormat(presentedSecret) {
		return nil, ErrKeyNotFound
	}
	cred, ok := s.creds[HashSecret(presentedSecret)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return cred, nil
}
