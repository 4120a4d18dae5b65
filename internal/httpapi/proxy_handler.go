package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/toreyjames/TokenMeter/internal/auth"
	"github.com/toreyjames/TokenMeter/internal/config"
	"github.com/toreyjames/TokenMeter/internal/models"
	"github.com/toreyjames/TokenMeter/internal/pricing"
	"github.com/toreyjames/TokenMeter/internal/providers"
	"github.com/toreyjames/TokenMeter/internal/spend"
	"github.com/toreyjames/TokenMeter/internal/utils"
)

// Cost attribution headers added to every metered response.
const (
	headerCostCents    = "X-TokenMeter-Cost-Cents"
	headerInputTokens  = "X-TokenMeter-Input-Tokens"
	headerOutputTokens = "X-TokenMeter-Output-Tokens"
	headerLatencyMs    = "X-TokenMeter-Latency-Ms"
)

// headerProxyKey is the dedicated proxy secret header, checked first
// during secret resolution.
const headerProxyKey = "X-TokenMeter-Key"

// maxRequestBodyBytes bounds how much of a proxied request the gateway
// will buffer.
const maxRequestBodyBytes = 10 << 20 // 10 MiB

// logEnqueuer is the slice of the log queue worker the proxy needs.
type logEnqueuer interface {
	Enqueue(ctx context.Context, record *models.RequestLog) error
}

// ProxyHandler is the metering proxy: it authenticates the proxy secret,
// forwards the request to the upstream provider with the stored key, and
// attributes cost to the response on the way back.
type ProxyHandler struct {
	credentials auth.CredentialStore
	logWorker   logEnqueuer
	spend       spend.Tracker
	adapterFor  func(provider string) (providers.Adapter, bool)
	client      *http.Client
	cfg         config.ProxyConfig
	logger      *utils.Logger
}

// NewProxyHandler creates the metering proxy handler.
func NewProxyHandler(credentials auth.CredentialStore, logWorker logEnqueuer, tracker spend.Tracker, cfg config.ProxyConfig) *ProxyHandler {
	return &ProxyHandler{
		credentials: credentials,
		logWorker:   logWorker,
		spend:       tracker,
		adapterFor:  providers.ForProvider,
		cfg:         cfg,
		client: &http.Client{
			// No client-level timeout; each request carries a context
			// deadline so timeouts classify as such.
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: utils.NewLogger("proxy"),
	}
}

// ServeHTTP handles /api/v1/{provider}/{path...}.
//
// Flow:
//  1. Resolve the proxy secret from headers
//  2. Look up the credential by secret hash
//  3. Check the provider is known and configured on the credential
//  4. Forward to the upstream provider with the stored key
//  5. Extract usage, price it, attach cost headers
//  6. Enqueue the usage record and return the upstream response
func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	provider := r.PathValue("provider")
	path := r.PathValue("path")

	secret, ok := resolveProxySecret(r.Header)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing API key")
		return
	}

	cred, err := h.credentials.Lookup(r.Context(), secret)
	if err != nil {
		if errors.Is(err, auth.ErrKeyNotFound) {
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid API key")
		} else {
			h.logger.Error("Credential lookup failed", "error", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal error")
		}
		return
	}

	adapter, known := h.adapterFor(provider)
	if !known {
		utils.RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("Unknown provider: %s", provider))
		return
	}

	upstreamKey := cred.KeyFor(provider)
	if upstreamKey == "" {
		// Refused before any upstream contact.
		utils.RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("No %s API key configured for this connection", provider))
		return
	}

	reqBody, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.UpstreamTimeout)
	defer cancel()

	// Caller query parameters travel with the path; model extraction
	// and the logged endpoint use the bare path.
	upstreamPath := path
	if r.URL.RawQuery != "" {
		upstreamPath = path + "?" + r.URL.RawQuery
	}

	upstreamReq, err := adapter.BuildRequest(ctx, r.Method, upstreamPath, reqBody, upstreamKey, r.Header)
	if err != nil {
		h.logger.Error("Failed to build upstream request", "provider", provider, "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	resp, err := h.client.Do(upstreamReq)
	if err != nil {
		// The upstream error may embed the URL; never echo it back.
		status := http.StatusBadGateway
		message := "Upstream request failed"
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
			message = "Upstream request timed out"
		} else {
			h.logger.Error("Upstream request failed", "provider", provider, "error", err)
		}
		// No response means no usage, but the attempt still lands in
		// the log with its latency.
		model := adapter.ExtractModel(reqBody, path)
		utils.RespondWithError(w, status, message)
		go h.recordUsage(cred, provider, model, path, r.Method, reqBody, nil, providers.Usage{}, 0, time.Since(start), status)
		return
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		h.logger.Error("Failed to read upstream response", "provider", provider, "error", err)
		utils.RespondWithError(w, http.StatusBadGateway, "Upstream request failed")
		return
	}

	latency := time.Since(start)

	// Responses without a usage block meter as zero, never fail.
	usage := adapter.ExtractUsage(respBody)
	model := adapter.ExtractModel(reqBody, path)
	costCents, _ := pricing.CostCents(provider, model, usage.InputTokens, usage.OutputTokens)

	w.Header().Set(headerCostCents, strconv.Itoa(costCents))
	w.Header().Set(headerInputTokens, strconv.Itoa(usage.InputTokens))
	w.Header().Set(headerOutputTokens, strconv.Itoa(usage.OutputTokens))
	w.Header().Set(headerLatencyMs, strconv.FormatInt(latency.Milliseconds(), 10))
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(respBody)

	// Off the response path. A slow or wedged log backend must never
	// hold up the caller.
	go h.recordUsage(cred, provider, model, path, r.Method, reqBody, respBody, usage, costCents, latency, resp.StatusCode)
}

// recordUsage builds the usage record and hands it off. Runs detached
// from the request goroutine with its own deadline; metering failures
// never affect the response the client already earned.
func (h *ProxyHandler) recordUsage(
	cred *models.Credential,
	provider, model, path, method string,
	reqBody, respBody []byte,
	usage providers.Usage,
	costCents int,
	latency time.Duration,
	statusCode int,
) {
	record := &models.RequestLog{
		CredentialID: cred.ID,
		Provider:     provider,
		Model:        model,
		Endpoint:     path,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		CostCents:    costCents,
		LatencyMs:    int(latency.Milliseconds()),
		StatusCode:   statusCode,
		CreatedAt:    time.Now(),
	}

	if len(respBody) > 0 {
		preview := string(respBody)
		if len(preview) > h.cfg.ResponsePreviewLength {
			preview = preview[:h.cfg.ResponsePreviewLength]
		}
		record.ResponsePreview = &preview
	}

	if h.cfg.StoreRequestBodies && method == http.MethodPost {
		record.RequestBody = models.JSONBFromRaw(reqBody)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.logWorker.Enqueue(ctx, record); err != nil {
		h.logger.Error("Failed to enqueue usage record", "credential_id", cred.ID, "error", err)
	}

	if costCents > 0 {
		if err := h.spend.AddUsage(ctx, cred.ID.String(), costCents); err != nil {
			h.logger.Error("Failed to track spend", "credential_id", cred.ID, "error", err)
		}
	}
}

// resolveProxySecret finds the proxy secret among the supported headers,
// in priority order: the dedicated header, then a Bearer token, then
// X-Api-Key. Bearer and X-Api-Key values are only treated as proxy
// secrets when they carry the issued prefix, so clients can keep their
// SDK's native auth header wired to the gateway.
func resolveProxySecret(header http.Header) (string, bool) {
	if v := header.Get(headerProxyKey); v != "" {
		return v, true
	}

	if v := header.Get("Authorization"); v != "" {
		token := strings.TrimPrefix(v, "Bearer ")
		if auth.HasSecretFormat(token) {
			return token, true
		}
	}

	if v := header.Get("X-Api-Key"); auth.HasSecretFormat(v) {
		return v, true
	}

	return "", false
}
