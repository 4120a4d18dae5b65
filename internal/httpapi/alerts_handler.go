package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/toreyjames/TokenMeter/internal/middleware"
	"github.com/toreyjames/TokenMeter/internal/models"
	"github.com/toreyjames/TokenMeter/internal/storage"
	"github.com/toreyjames/TokenMeter/internal/utils"
)

// alertStore is the alert repository surface the handler depends on.
type alertStore interface {
	Create(ctx context.Context, alert *models.Alert) error
	GetByID(ctx context.Context, accountID string, id uuid.UUID) (*models.Alert, error)
	ListByAccount(ctx context.Context, accountID string) ([]*models.Alert, error)
	Update(ctx context.Context, alert *models.Alert) error
	Delete(ctx context.Context, accountID string, id uuid.UUID) error
}

// periodSpendSummer sums logged cost for an account since a point in
// time, optionally filtered by provider.
type periodSpendSummer interface {
	SpendSince(ctx context.Context, accountID string, provider string, since time.Time) (int, error)
}

// AlertsHandler manages budget alert configurations.
type AlertsHandler struct {
	repo   alertStore
	logs   periodSpendSummer
	logger *utils.Logger
	now    func() time.Time
}

// NewAlertsHandler creates an alerts handler.
func NewAlertsHandler(repo alertStore, logs periodSpendSummer) *AlertsHandler {
	return &AlertsHandler{
		repo:   repo,
		logs:   logs,
		logger: utils.NewLogger("alerts-api"),
		now:    time.Now,
	}
}

// alertView pairs an alert with the spend accumulated in its current
// period, so the dashboard can show progress toward the threshold.
type alertView struct {
	*models.Alert
	CurrentSpendCents int `json:"current_spend_cents"`
}

// periodStart returns the UTC start of the alert period containing now.
func periodStart(now time.Time, period string) time.Time {
	now = now.UTC()
	switch period {
	case models.AlertPeriodDaily:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	case models.AlertPeriodWeekly:
		daysSinceMonday := (int(now.Weekday()) + 6) % 7
		monday := now.AddDate(0, 0, -daysSinceMonday)
		return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
}

// List handles GET /api/alerts.
func (h *AlertsHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing session")
		return
	}

	alerts, err := h.repo.ListByAccount(r.Context(), accountID)
	if err != nil {
		h.logger.Error("Failed to list alerts", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	views := make([]alertView, 0, len(alerts))
	for _, alert := range alerts {
		provider := ""
		if alert.Provider != nil {
			provider = *alert.Provider
		}
		cents, err := h.logs.SpendSince(r.Context(), accountID, provider, periodStart(h.now(), alert.Period))
		if err != nil {
			h.logger.Error("Failed to sum alert spend", "alert_id", alert.ID, "error", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal error")
			return
		}
		views = append(views, alertView{Alert: alert, CurrentSpendCents: cents})
	}
	utils.RespondWithJSON(w, http.StatusOK, views)
}

type alertRequest struct {
	Provider       *string `json:"provider"`
	ThresholdCents *int    `json:"threshold_cents"`
	Period         *string `json:"period"`
	Email          *string `json:"email"`
	Enabled        *bool   `json:"enabled"`
}

// Create handles POST /api/alerts.
func (h *AlertsHandler) Create(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing session")
		return
	}

	var req alertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if req.ThresholdCents == nil || *req.ThresholdCents <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "threshold_cents must be a positive integer")
		return
	}
	if req.Period == nil || !models.ValidPeriod(*req.Period) {
		utils.RespondWithError(w, http.StatusBadRequest, "period must be one of daily, weekly, monthly")
		return
	}
	if req.Email == nil || !strings.Contains(*req.Email, "@") {
		utils.RespondWithError(w, http.StatusBadRequest, "A valid email is required")
		return
	}
	if req.Provider != nil && !models.KnownProvider(*req.Provider) {
		utils.RespondWithError(w, http.StatusBadRequest, "Unknown provider")
		return
	}

	alert := &models.Alert{
		AccountID:      accountID,
		Provider:       req.Provider,
		ThresholdCents: *req.ThresholdCents,
		Period:         *req.Period,
		Email:          *req.Email,
		Enabled:        true,
	}
	if req.Enabled != nil {
		alert.Enabled = *req.Enabled
	}

	if err := h.repo.Create(r.Context(), alert); err != nil {
		h.logger.Error("Failed to create alert", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, alert)
}

// Update handles PATCH /api/alerts/{id}. Only the fields present in the
// request body change.
func (h *AlertsHandler) Update(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing session")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid alert id")
		return
	}

	var req alertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	alert, err := h.repo.GetByID(r.Context(), accountID, id)
	if err != nil {
		if errors.Is(err, storage.ErrAlertNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Alert not found")
		} else {
			h.logger.Error("Failed to load alert", "error", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal error")
		}
		return
	}

	if req.ThresholdCents != nil {
		if *req.ThresholdCents <= 0 {
			utils.RespondWithError(w, http.StatusBadRequest, "threshold_cents must be a positive integer")
			return
		}
		alert.ThresholdCents = *req.ThresholdCents
	}
	if req.Period != nil {
		if !models.ValidPeriod(*req.Period) {
			utils.RespondWithError(w, http.StatusBadRequest, "period must be one of daily, weekly, monthly")
			return
		}
		alert.Period = *req.Period
	}
	if req.Email != nil {
		if !strings.Contains(*req.Email, "@") {
			utils.RespondWithError(w, http.StatusBadRequest, "A valid email is required")
			return
		}
		alert.Email = *req.Email
	}
	if req.Provider != nil {
		if *req.Provider == "" {
			alert.Provider = nil
		} else if !models.KnownProvider(*req.Provider) {
			utils.RespondWithError(w, http.StatusBadRequest, "Unknown provider")
			return
		} else {
			alert.Provider = req.Provider
		}
	}
	if req.Enabled != nil {
		alert.Enabled = *req.Enabled
	}

	if err := h.repo.Update(r.Context(), alert); err != nil {
		if errors.Is(err, storage.ErrAlertNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Alert not found")
		} else {
			h.logger.Error("Failed to update alert", "error", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal error")
		}
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, alert)
}

// Delete handles DELETE /api/alerts/{id}.
func (h *AlertsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing session")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid alert id")
		return
	}

	if err := h.repo.Delete(r.Context(), accountID, id); err != nil {
		if errors.Is(err, storage.ErrAlertNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Alert not found")
		} else {
			h.logger.Error("Failed to delete alert", "error", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal error")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
