package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	anthropicBaseURL        = "https://api.anthropic.com/v1"
	anthropicDefaultVersion = "2023-06-01"
)

// anthropicAdapter speaks the Anthropic Messages API: x-api-key auth, a
// mandatory anthropic-version header, and usage under usage.input_tokens
// and usage.output_tokens.
type anthropicAdapter struct {
	baseURL string
}

// NewAnthropicAdapter creates an Anthropic adapter rooted at baseURL.
func NewAnthropicAdapter(baseURL string) Adapter {
	return &anthropicAdapter{baseURL: baseURL}
}

func (a *anthropicAdapter) ID() string {
	return "anthropic"
}

func (a *anthropicAdapter) BuildRequest(ctx context.Context, method, path string, body []byte, upstreamKey string, inbound http.Header) (*http.Request, error) {
	url := a.baseURL + "/" + strings.TrimPrefix(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", upstreamKey)

	// Callers may pin a specific API version; otherwise use the stable one.
	version := inbound.Get("anthropic-version")
	if version == "" {
		version = anthropicDefaultVersion
	}
	req.Header.Set("anthropic-version", version)
	return req, nil
}

func (a *anthropicAdapter) ExtractUsage(respBody []byte) Usage {
	var response struct {
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return Usage{}
	}
	return Usage{
		InputTokens:  response.Usage.InputTokens,
		OutputTokens: response.Usage.OutputTokens,
	}
}

func (a *anthropicAdapter) ExtractModel(reqBody []byte, path string) string {
	return modelFromBody(reqBody)
}
