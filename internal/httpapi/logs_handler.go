package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/toreyjames/TokenMeter/internal/middleware"
	"github.com/toreyjames/TokenMeter/internal/storage"
	"github.com/toreyjames/TokenMeter/internal/utils"
)

// LogsHandler serves the usage log listing for the dashboard.
type LogsHandler struct {
	repo   *storage.RequestLogRepository
	logger *utils.Logger
}

// NewLogsHandler creates a logs handler.
func NewLogsHandler(repo *storage.RequestLogRepository) *LogsHandler {
	return &LogsHandler{
		repo:   repo,
		logger: utils.NewLogger("logs-api"),
	}
}

// List handles GET /api/logs. Supported query parameters: provider,
// model, credential_id, since (RFC 3339), limit, offset.
func (h *LogsHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing session")
		return
	}

	q := r.URL.Query()
	filter := storage.LogFilter{
		Provider: q.Get("provider"),
		Model:    q.Get("model"),
	}

	if raw := q.Get("credential_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid credential_id")
			return
		}
		filter.CredentialID = &id
	}

	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid since timestamp, expected RFC 3339")
			return
		}
		filter.Since = since
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		filter.Limit = limit
	}

	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid offset")
			return
		}
		filter.Offset = offset
	}

	records, err := h.repo.ListByAccount(r.Context(), accountID, filter)
	if err != nil {
		h.logger.Error("Failed to list request logs", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, records)
}
