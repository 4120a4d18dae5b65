package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/toreyjames/TokenMeter/internal/auth"
	"github.com/toreyjames/TokenMeter/internal/middleware"
	"github.com/toreyjames/TokenMeter/internal/models"
	"github.com/toreyjames/TokenMeter/internal/providers"
	"github.com/toreyjames/TokenMeter/internal/storage"
	"github.com/toreyjames/TokenMeter/internal/utils"
)

// KeysHandler manages proxy credentials: issuing, listing, revoking,
// and validating upstream provider keys before they are saved.
type KeysHandler struct {
	repo       *storage.CredentialRepository
	adapterFor func(provider string) (providers.Adapter, bool)
	client     *http.Client
	logger     *utils.Logger
}

// NewKeysHandler creates a keys handler.
func NewKeysHandler(repo *storage.CredentialRepository) *KeysHandler {
	return &KeysHandler{
		repo:       repo,
		adapterFor: providers.ForProvider,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     utils.NewLogger("keys-api"),
	}
}

// credentialView is the safe listing shape: display prefix and provider
// flags only, never hashes or upstream keys.
type credentialView struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	KeyPrefix           string     `json:"key_prefix"`
	ConfiguredProviders []string   `json:"configured_providers"`
	CreatedAt           time.Time  `json:"created_at"`
	LastUsedAt          *time.Time `json:"last_used_at,omitempty"`
}

func viewOf(cred *models.Credential) credentialView {
	return credentialView{
		ID:                  cred.ID.String(),
		Name:                cred.Name,
		KeyPrefix:           cred.KeyPrefix,
		ConfiguredProviders: cred.ConfiguredProviders(),
		CreatedAt:           cred.CreatedAt,
		LastUsedAt:          cred.LastUsedAt,
	}
}

// List handles GET /api/keys.
func (h *KeysHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing session")
		return
	}

	creds, err := h.repo.ListByAccount(r.Context(), accountID)
	if err != nil {
		h.logger.Error("Failed to list credentials", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	views := make([]credentialView, 0, len(creds))
	for _, cred := range creds {
		views = append(views, viewOf(cred))
	}
	utils.RespondWithJSON(w, http.StatusOK, views)
}

// createKeyRequest carries one optional upstream key per provider.
type createKeyRequest struct {
	Name         string `json:"name"`
	OpenAIKey    string `json:"openai_key"`
	AnthropicKey string `json:"anthropic_key"`
	GeminiKey    string `json:"gemini_key"`
	GrokKey      string `json:"grok_key"`
	MistralKey   string `json:"mistral_key"`
	GroqKey      string `json:"groq_key"`
}

func (req *createKeyRequest) providerKeys() map[string]string {
	keys := map[string]string{
		models.ProviderOpenAI:    req.OpenAIKey,
		models.ProviderAnthropic: req.AnthropicKey,
		models.ProviderGemini:    req.GeminiKey,
		models.ProviderGrok:      req.GrokKey,
		models.ProviderMistral:   req.MistralKey,
		models.ProviderGroq:      req.GroqKey,
	}
	for provider, key := range keys {
		if strings.TrimSpace(key) == "" {
			delete(keys, provider)
		}
	}
	return keys
}

// createKeyResponse includes the raw secret. This is the only time it is
// ever returned; afterwards only the display prefix exists.
type createKeyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	KeyPrefix string    `json:"key_prefix"`
	CreatedAt time.Time `json:"created_at"`
}

// Create handles POST /api/keys.
func (h *KeysHandler) Create(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing session")
		return
	}

	var req createKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Name is required")
		return
	}

	keys := req.providerKeys()
	if len(keys) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "At least one provider API key is required")
		return
	}

	raw, hash, prefix, err := auth.GenerateSecret()
	if err != nil {
		h.logger.Error("Failed to generate secret", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	cred := &models.Credential{
		AccountID: accountID,
		Name:      strings.TrimSpace(req.Name),
		KeyHash:   hash,
		KeyPrefix: prefix,
	}
	for provider, key := range keys {
		cred.SetKeyFor(provider, key)
	}

	if err := h.repo.Create(r.Context(), cred); err != nil {
		h.logger.Error("Failed to create credential", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, createKeyResponse{
		ID:        cred.ID.String(),
		Name:      cred.Name,
		Key:       raw,
		KeyPrefix: cred.KeyPrefix,
		CreatedAt: cred.CreatedAt,
	})
}

// Delete handles DELETE /api/keys/{id}.
func (h *KeysHandler) Delete(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing session")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid credential id")
		return
	}

	if err := h.repo.Delete(r.Context(), accountID, id); err != nil {
		if errors.Is(err, storage.ErrCredentialNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Credential not found")
		} else {
			h.logger.Error("Failed to delete credential", "error", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal error")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type testKeyRequest struct {
	Provider string `json:"provider"`
	Key      string `json:"key"`
}

type testKeyResponse struct {
	Valid  bool   `json:"valid"`
	Status int    `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// TestKey handles POST /api/keys/test. It calls the provider's model
// listing endpoint with the submitted key so a bad key is caught before
// it is saved into a credential.
func (h *KeysHandler) TestKey(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetAccountID(r.Context()); !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing session")
		return
	}

	var req testKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Key) == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "A provider key is required")
		return
	}
	adapter, known := h.adapterFor(req.Provider)
	if !known {
		utils.RespondWithError(w, http.StatusBadRequest, "Unknown provider")
		return
	}

	upstream, err := adapter.BuildRequest(r.Context(), http.MethodGet, "models", nil, req.Key, http.Header{})
	if err != nil {
		h.logger.Error("Failed to build validation request", "provider", req.Provider, "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	resp, err := h.client.Do(upstream)
	if err != nil {
		utils.RespondWithJSON(w, http.StatusOK, testKeyResponse{
			Valid: false,
			Error: "Provider unreachable",
		})
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	result := testKeyResponse{Status: resp.StatusCode}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		result.Valid = true
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		result.Error = "Key rejected by provider"
	default:
		result.Error = "Unexpected provider response"
	}
	utils.RespondWithJSON(w, http.StatusOK, result)
}
