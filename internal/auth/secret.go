package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/toreyjames/TokenMeter/internal/utils"
)

// SecretPrefix marks every issued proxy secret. Header values carrying
// this prefix are treated as proxy secrets during header resolution.
const SecretPrefix = "tm_"

// displayPrefixLen is how much of the raw secret is kept for display,
// prefix included ("tm_" plus the first 8 encoded characters).
const displayPrefixLen = 11

// secretEntropyBytes is the random payload size of a proxy secret.
const secretEntropyBytes = 32

// GenerateSecret mints a new proxy secret. It returns the raw secret
// (shown to the caller exactly once), its SHA-256 hex hash for storage,
// and a short display prefix. The raw secret is never persisted.
func GenerateSecret() (raw, hash, prefix string, err error) {
	buf := make([]byte, secretEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", "", fmt.Errorf("failed to generate secret: %w", err)
	}

	raw = SecretPrefix + base64.RawURLEncoding.EncodeToString(buf)
	hash = HashSecret(raw)
	prefix = raw[:displayPrefixLen] + "..."
	return raw, hash, prefix, nil
}

// HashSecret returns the storage form of a raw proxy secret.
func HashSecret(raw string) string {
	return utils.HashString(raw)
}

// HasSecretFormat reports whether s looks like an issued proxy secret.
// This is a cheap shape check, not a validity check; lookups for
// malformed and unknown secrets are both answered with ErrKeyNotFound
// so callers cannot tell the two apart.
func HasSecretFormat(s string) bool {
	return strings.HasPrefix(s, SecretPrefix)
}
