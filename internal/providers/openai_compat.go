package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// openAICompatAdapter serves every provider that speaks the OpenAI wire
// format: OpenAI itself plus Grok, Mistral and Groq. They differ only in
// base URL; auth is a bearer token and usage lives under
// usage.prompt_tokens / usage.completion_tokens.
type openAICompatAdapter struct {
	id      string
	baseURL string
}

// NewOpenAICompatAdapter creates an adapter for an OpenAI-compatible
// provider rooted at baseURL. Tests use this to point at local servers.
func NewOpenAICompatAdapter(id, baseURL string) Adapter {
	return &openAICompatAdapter{id: id, baseURL: baseURL}
}

func (a *openAICompatAdapter) ID() string {
	return a.id
}

func (a *openAICompatAdapter) BuildRequest(ctx context.Context, method, path string, body []byte, upstreamKey string, inbound http.Header) (*http.Request, error) {
	url := a.baseURL + "/" + strings.TrimPrefix(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+upstreamKey)
	return req, nil
}

func (a *openAICompatAdapter) ExtractUsage(respBody []byte) Usage {
	var response struct {
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return Usage{}
	}
	return Usage{
		InputTokens:  response.Usage.PromptTokens,
		OutputTokens: response.Usage.CompletionTokens,
	}
}

func (a *openAICompatAdapter) ExtractModel(reqBody []byte, path string) string {
	return modelFromBody(reqBody)
}

// modelFromBody reads the "model" field common to OpenAI-style and
// Anthropic request payloads.
func modelFromBody(reqBody []byte) string {
	var request struct {
		Model string `json:"model"`
	}
	if err := json.Unmarshal(reqBody, &request); err != nil || request.Model == "" {
		return unknownModel
	}
	return request.Model
}
