package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// geminiPathModel pulls the model name out of Gemini's path-addressed
// endpoints, e.g. models/gemini-1.5-flash:generateContent.
var geminiPathModel = regexp.MustCompile(`models/([^/:]+)`)

// geminiAdapter speaks the Google Generative Language API. The key goes
// in a query parameter rather than a header, the model is addressed in
// the path, and usage comes back as usageMetadata.
type geminiAdapter struct {
	baseURL string
}

// NewGeminiAdapter creates a Gemini adapter rooted at baseURL.
func NewGeminiAdapter(baseURL string) Adapter {
	return &geminiAdapter{baseURL: baseURL}
}

func (a *geminiAdapter) ID() string {
	return "gemini"
}

func (a *geminiAdapter) BuildRequest(ctx context.Context, method, path string, body []byte, upstreamKey string, inbound http.Header) (*http.Request, error) {
	target := a.baseURL + "/" + strings.TrimPrefix(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	// Keep caller query parameters (alt=sse and friends) alongside the
	// injected key.
	q := req.URL.Query()
	q.Set("key", upstreamKey)
	req.URL.RawQuery = q.Encode()
	return req, nil
}

func (a *geminiAdapter) ExtractUsage(respBody []byte) Usage {
	var response struct {
		UsageMetadata struct {
			PromptTokenCount     int `json:"promptTokenCount"`
			CandidatesTokenCount int `json:"candidatesTokenCount"`
		} `json:"usageMetadata"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return Usage{}
	}
	return Usage{
		InputTokens:  response.UsageMetadata.PromptTokenCount,
		OutputTokens: response.UsageMetadata.CandidatesTokenCount,
	}
}

func (a *geminiAdapter) ExtractModel(reqBody []byte, path string) string {
	if m := geminiPathModel.FindStringSubmatch(path); m != nil {
		return m[1]
	}
	return unknownModel
}
