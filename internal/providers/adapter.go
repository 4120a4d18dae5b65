package providers

import (
	"context"
	"net/http"

	"github.com/toreyjames/TokenMeter/internal/models"
)

// Usage holds the token counts extracted from an upstream response.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Adapter is implemented by each concrete upstream provider (OpenAI,
// Anthropic, Gemini, ...). Adapters translate a proxied request into the
// provider's wire format and pull usage back out of the response; they do
// not interpret payloads beyond that.
type Adapter interface {
	// ID returns the provider identifier (openai, anthropic, ...)
	ID() string

	// BuildRequest builds the upstream HTTP request for the given path
	// suffix and body, authenticated with the account's upstream key.
	// Inbound headers are consulted for provider-specific pass-through
	// (e.g. anthropic-version) but auth headers are never forwarded.
	BuildRequest(ctx context.Context, method, path string, body []byte, upstreamKey string, inbound http.Header) (*http.Request, error)

	// ExtractUsage parses token usage from an upstream response body.
	// Bodies without a usage block yield zero counts, never an error.
	ExtractUsage(respBody []byte) Usage

	// ExtractModel determines the model name from the request body or,
	// for path-addressed providers, from the path. Returns "unknown"
	// when no model can be determined.
	ExtractModel(reqBody []byte, path string) string
}

// ForProvider returns the adapter for a provider identifier, or false
// when the identifier is not a known provider.
func ForProvider(provider string) (Adapter, bool) {
	a, ok := registry[provider]
	return a, ok
}

var registry = map[string]Adapter{
	models.ProviderOpenAI:    NewOpenAICompatAdapter(models.ProviderOpenAI, "https://api.openai.com/v1"),
	models.ProviderGrok:      NewOpenAICompatAdapter(models.ProviderGrok, "https://api.x.ai/v1"),
	models.ProviderMistral:   NewOpenAICompatAdapter(models.ProviderMistral, "https://api.mistral.ai/v1"),
	models.ProviderGroq:      NewOpenAICompatAdapter(models.ProviderGroq, "https://api.groq.com/openai/v1"),
	models.ProviderAnthropic: NewAnthropicAdapter(anthropicBaseURL),
	models.ProviderGemini:    NewGeminiAdapter(geminiBaseURL),
}

// unknownModel is logged and priced as unpriceable when a request carries
// no recognizable model name.
const unknownModel = "unknown"
