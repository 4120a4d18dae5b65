package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/toreyjames/TokenMeter/internal/auth"
	"github.com/toreyjames/TokenMeter/internal/storage"
	"github.com/toreyjames/TokenMeter/internal/utils"
)

// AuthHandler authenticates dashboard users and issues session tokens.
type AuthHandler struct {
	accounts  *storage.AccountRepository
	jwtSecret []byte
	logger    *utils.Logger
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(accounts *storage.AccountRepository, jwtSecret []byte) *AuthHandler {
	return &AuthHandler{
		accounts:  accounts,
		jwtSecret: jwtSecret,
		logger:    utils.NewLogger("auth-api"),
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// Login handles POST /api/auth/login. Failed lookups and bad passwords
// return the same message so the endpoint does not confirm which emails
// exist.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	account, err := h.accounts.GetByEmail(r.Context(), email)
	if err != nil {
		if !errors.Is(err, storage.ErrAccountNotFound) {
			h.logger.Error("Failed to load account", "error", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal error")
			return
		}
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if !account.Enabled {
		utils.RespondWithError(w, http.StatusForbidden, "Account is disabled")
		return
	}

	token, expiresAt, err := auth.GenerateSessionToken(account.ID.String(), h.jwtSecret)
	if err != nil {
		h.logger.Error("Failed to issue session token", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	if err := h.accounts.UpdateLastLogin(r.Context(), account.ID); err != nil {
		h.logger.Warn("Failed to record last login", "account", account.ID, "error", err)
	}

	utils.RespondWithJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expiresAt})
}
