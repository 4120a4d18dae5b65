package providers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForProvider(t *testing.T) {
	for _, id := range []string{"openai", "anthropic", "gemini", "grok", "mistral", "groq"} {
		a, ok := ForProvider(id)
		require.True(t, ok, "missing adapter for %s", id)
		assert.Equal(t, id, a.ID())
	}

	_, ok := ForProvider("bedrock")
	assert.False(t, ok)
}

func TestOpenAICompatBuildRequest(t *testing.T) {
	tests := []struct {
		provider string
		wantURL  string
	}{
		{"openai", "https://api.openai.com/v1/chat/completions"},
		{"grok", "https://api.x.ai/v1/chat/completions"},
		{"mistral", "https://api.mistral.ai/v1/chat/completions"},
		{"groq", "https://api.groq.com/openai/v1/chat/completions"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			a, _ := ForProvider(tt.provider)
			req, err := a.BuildRequest(context.Background(), http.MethodPost,
				"chat/completions", []byte(`{"model":"x"}`), "sk-upstream", http.Header{})
			require.NoError(t, err)

			assert.Equal(t, tt.wantURL, req.URL.String())
			assert.Equal(t, "Bearer sk-upstream", req.Header.Get("Authorization"))
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		})
	}
}

func TestOpenAICompatExtractUsage(t *testing.T) {
	a, _ := ForProvider("openai")

	usage := a.ExtractUsage([]byte(`{"usage":{"prompt_tokens":120,"completion_tokens":45}}`))
	assert.Equal(t, Usage{InputTokens: 120, OutputTokens: 45}, usage)

	// No usage block and invalid JSON both degrade to zeros.
	assert.Equal(t, Usage{}, a.ExtractUsage([]byte(`{"choices":[]}`)))
	assert.Equal(t, Usage{}, a.ExtractUsage([]byte(`not json`)))
}

func TestAnthropicBuildRequest(t *testing.T) {
	a, _ := ForProvider("anthropic")

	req, err := a.BuildRequest(context.Background(), http.MethodPost,
		"messages", []byte(`{}`), "sk-ant-upstream", http.Header{})
	require.NoError(t, err)

	assert.Equal(t, "https://api.anthropic.com/v1/messages", req.URL.String())
	assert.Equal(t, "sk-ant-upstream", req.Header.Get("x-api-key"))
	assert.Equal(t, "2023-06-01", req.Header.Get("anthropic-version"))
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestAnthropicVersionPassThrough(t *testing.T) {
	a, _ := ForProvider("anthropic")

	inbound := http.Header{}
	inbound.Set("anthropic-version", "2024-10-22")
	req, err := a.BuildRequest(context.Background(), http.MethodPost,
		"messages", []byte(`{}`), "sk-ant-upstream", inbound)
	require.NoError(t, err)

	assert.Equal(t, "2024-10-22", req.Header.Get("anthropic-version"))
}

func TestAnthropicExtractUsage(t *testing.T) {
	a, _ := ForProvider("anthropic")

	usage := a.ExtractUsage([]byte(`{"usage":{"input_tokens":300,"output_tokens":12}}`))
	assert.Equal(t, Usage{InputTokens: 300, OutputTokens: 12}, usage)

	assert.Equal(t, Usage{}, a.ExtractUsage([]byte(`{"content":[]}`)))
}

func TestGeminiBuildRequest(t *testing.T) {
	a, _ := ForProvider("gemini")

	req, err := a.BuildRequest(context.Background(), http.MethodPost,
		"models/gemini-1.5-flash:generateContent", []byte(`{}`), "AIza-upstream", http.Header{})
	require.NoError(t, err)

	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent",
		req.URL.Scheme+"://"+req.URL.Host+req.URL.Path)
	assert.Equal(t, "AIza-upstream", req.URL.Query().Get("key"))
	assert.Empty(t, req.Header.Get("Authorization"))
	assert.Empty(t, req.Header.Get("x-api-key"))
}

func TestBuildRequestForwardsQueryParams(t *testing.T) {
	a, _ := ForProvider("openai")
	req, err := a.BuildRequest(context.Background(), http.MethodGet,
		"models?limit=5", nil, "sk-upstream", http.Header{})
	require.NoError(t, err)
	assert.Equal(t, "/v1/models", req.URL.Path)
	assert.Equal(t, "5", req.URL.Query().Get("limit"))
}

func TestGeminiBuildRequestMergesQueryWithKey(t *testing.T) {
	a, _ := ForProvider("gemini")
	req, err := a.BuildRequest(context.Background(), http.MethodPost,
		"models/gemini-1.5-flash:streamGenerateContent?alt=sse", []byte(`{}`), "AIza-upstream", http.Header{})
	require.NoError(t, err)

	q := req.URL.Query()
	assert.Equal(t, "sse", q.Get("alt"))
	assert.Equal(t, "AIza-upstream", q.Get("key"))
}

func TestGeminiExtractUsage(t *testing.T) {
	a, _ := ForProvider("gemini")

	usage := a.ExtractUsage([]byte(`{"usageMetadata":{"promptTokenCount":88,"candidatesTokenCount":17}}`))
	assert.Equal(t, Usage{InputTokens: 88, OutputTokens: 17}, usage)

	assert.Equal(t, Usage{}, a.ExtractUsage([]byte(`{"candidates":[]}`)))
}

func TestExtractModel(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		reqBody  string
		path     string
		want     string
	}{
		{
			name:     "openai model from body",
			provider: "openai",
			reqBody:  `{"model":"gpt-4o-mini","messages":[]}`,
			path:     "chat/completions",
			want:     "gpt-4o-mini",
		},
		{
			name:     "anthropic model from body",
			provider: "anthropic",
			reqBody:  `{"model":"claude-3-5-sonnet-20241022"}`,
			path:     "messages",
			want:     "claude-3-5-sonnet-20241022",
		},
		{
			name:     "missing model falls back to unknown",
			provider: "openai",
			reqBody:  `{"messages":[]}`,
			path:     "chat/completions",
			want:     "unknown",
		},
		{
			name:     "invalid body falls back to unknown",
			provider: "mistral",
			reqBody:  `not json`,
			path:     "chat/completions",
			want:     "unknown",
		},
		{
			name:     "gemini model from path",
			provider: "gemini",
			reqBody:  `{}`,
			path:     "models/gemini-1.5-pro:streamGenerateContent",
			want:     "gemini-1.5-pro",
		},
		{
			name:     "gemini path without model",
			provider: "gemini",
			reqBody:  `{}`,
			path:     "tunedModels",
			want:     "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, ok := ForProvider(tt.provider)
			require.True(t, ok)
			assert.Equal(t, tt.want, a.ExtractModel([]byte(tt.reqBody), tt.path))
		})
	}
}
