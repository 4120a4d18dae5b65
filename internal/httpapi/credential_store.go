package httpapi

import (
	"context"
	"errors"
	"time"

	"github.com/toreyjames/TokenMeter/internal/auth"
	"github.com/toreyjames/TokenMeter/internal/models"
	"github.com/toreyjames/TokenMeter/internal/storage"
	"github.com/toreyjames/TokenMeter/internal/utils"
)

// DatabaseCredentialStore resolves proxy secrets against Postgres with
// an LRU cache in front. Implements auth.CredentialStore.
type DatabaseCredentialStore struct {
	repo   *storage.CredentialRepository
	cache  *storage.LRUCache
	logger *utils.Logger
}

// NewDatabaseCredentialStore creates a credential store backed by the
// credential repository and the shared credential cache.
func NewDatabaseCredentialStore(repo *storage.CredentialRepository, cache *storage.LRUCache) *DatabaseCredentialStore {
	return &DatabaseCredentialStore{
		repo:   repo,
		cache:  cache,
		logger: utils.NewLogger("credential-store"),
	}
}

// Lookup resolves a presented proxy secret. Malformed and unknown
// secrets both come back as auth.ErrKeyNotFound. A hit touches the
// credential's last-used timestamp in the background.
func (s *DatabaseCredentialStore) Lookup(ctx context.Context, presentedSecret string) (*models.Credential, error) {
	if !auth.HasSecretFormat(presentedSecret) {
		return nil, auth.ErrKeyNotFound
	}

	keyHash := auth.HashSecret(presentedSecret)

	if cached, ok := s.cache.Get(keyHash); ok {
		cred := cached.(*models.Credential)
		s.touchAsync(cred)
		return cred, nil
	}

	cred, err := s.repo.GetByHash(ctx, keyHash)
	if err != nil {
		if errors.Is(err, storage.ErrCredentialNotFound) {
			return nil, auth.ErrKeyNotFound
		}
		return nil, err
	}

	s.cache.Set(keyHash, cred)
	s.touchAsync(cred)
	return cred, nil
}

// touchAsync updates last_used_at without blocking the request path.
func (s *DatabaseCredentialStore) touchAsync(cred *models.Credential) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.repo.TouchLastUsed(ctx, cred.ID); err != nil {
			s.logger.Debug("Failed to touch credential", "credential_id", cred.ID, "error", err)
		}
	}()
}
