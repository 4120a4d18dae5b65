package models

import (
	"time"

	"github.com/google/uuid"
)

// Credential is a user-created "connection": one issued proxy secret
// mapped to a set of upstream provider API keys. Only the SHA-256 hash
// and a short display prefix of the secret are ever stored.
type Credential struct {
	ID        uuid.UUID `db:"id"`
	AccountID string    `db:"account_id"`
	Name      string    `db:"name"`
	KeyHash   string    `db:"key_hash"`   // SHA-256 hex of the raw secret
	KeyPrefix string    `db:"key_prefix"` // "tm_abcdefgh..." for display

	// Upstream provider keys. NULL means the provider is not configured
	// on this connection. Encrypted at rest by the repository.
	OpenAIKey    *string `db:"openai_key"`
	AnthropicKey *string `db:"anthropic_key"`
	GeminiKey    *string `db:"gemini_key"`
	GrokKey      *string `db:"grok_key"`
	MistralKey   *string `db:"mistral_key"`
	GroqKey      *string `db:"groq_key"`

	CreatedAt  time.Time  `db:"created_at"`
	LastUsedAt *time.Time `db:"last_used_at"`
}

// KeyFor returns the upstream key configured for a provider, or "" if
// the provider is not configured on this credential.
func (c *Credential) KeyFor(provider string) string {
	var key *string
	switch provider {
	case ProviderOpenAI:
		key = c.OpenAIKey
	case ProviderAnthropic:
		key = c.AnthropicKey
	case ProviderGemini:
		key = c.GeminiKey
	case ProviderGrok:
		key = c.GrokKey
	case ProviderMistral:
		key = c.MistralKey
	case ProviderGroq:
		key = c.GroqKey
	}
	if key == nil {
		return ""
	}
	return *key
}

// SetKeyFor sets the upstream key for a provider. Unknown providers are
// ignored.
func (c *Credential) SetKeyFor(provider, key string) {
	v := &key
	switch provider {
	case ProviderOpenAI:
		c.OpenAIKey = v
	case ProviderAnthropic:
		c.AnthropicKey = v
	case ProviderGemini:
		c.GeminiKey = v
	case ProviderGrok:
		c.GrokKey = v
	case ProviderMistral:
		c.MistralKey = v
	case ProviderGroq:
		c.GroqKey = v
	}
}

// ConfiguredProviders lists the providers this credential can reach.
func (c *Credential) ConfiguredProviders() []string {
	var out []string
	for _, p := range ProviderIDs {
		if c.KeyFor(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// HasAnyProviderKey reports whether at least one upstream key is set.
// Issuing a credential without any upstream key is a validation error.
func (c *Credential) HasAnyProviderKey() bool {
	return len(c.ConfiguredProviders()) > 0
}
