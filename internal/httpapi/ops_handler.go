package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/toreyjames/TokenMeter/internal/middleware"
	"github.com/toreyjames/TokenMeter/internal/models"
	"github.com/toreyjames/TokenMeter/internal/queue"
	"github.com/toreyjames/TokenMeter/internal/spend"
	"github.com/toreyjames/TokenMeter/internal/storage"
	"github.com/toreyjames/TokenMeter/internal/utils"
)

// credentialGetter is the slice of the credential repository the ops
// handler needs for ownership checks.
type credentialGetter interface {
	GetByID(ctx context.Context, accountID string, id uuid.UUID) (*models.Credential, error)
}

// OpsHandler exposes the operational readouts of the log pipeline and
// the spend counters: queue depth, dead-lettered records, per-credential
// monthly spend.
type OpsHandler struct {
	worker *storage.LogQueueWorker
	creds  credentialGetter
	spend  spend.Tracker
	logger *utils.Logger
}

// NewOpsHandler creates an ops handler.
func NewOpsHandler(worker *storage.LogQueueWorker, creds credentialGetter, tracker spend.Tracker) *OpsHandler {
	return &OpsHandler{
		worker: worker,
		creds:  creds,
		spend:  tracker,
		logger: utils.NewLogger("ops-api"),
	}
}

type queueStatusResponse struct {
	Length      int                     `json:"length"`
	DeadLetters []queue.DeadLetterEntry `json:"dead_letters"`
}

// QueueStatus handles GET /api/ops/queue.
func (h *OpsHandler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetAccountID(r.Context()); !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing session")
		return
	}

	length, err := h.worker.QueueLength(r.Context())
	if err != nil {
		h.logger.Error("Failed to read queue length", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	entries, err := h.worker.DeadLetterEntries(r.Context(), 100)
	if err != nil {
		h.logger.Error("Failed to list dead letters", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	if entries == nil {
		entries = []queue.DeadLetterEntry{}
	}

	utils.RespondWithJSON(w, http.StatusOK, queueStatusResponse{
		Length:      length,
		DeadLetters: entries,
	})
}

// RetryDeadLetter handles POST /api/ops/queue/dlq/{id}/retry.
func (h *OpsHandler) RetryDeadLetter(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetAccountID(r.Context()); !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing session")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Missing entry id")
		return
	}

	if err := h.worker.RetryDeadLetterEntry(r.Context(), id); err != nil {
		if errors.Is(err, queue.ErrEntryNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Dead letter entry not found")
		} else {
			h.logger.Error("Failed to retry dead letter", "id", id, "error", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal error")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// spendHistory is implemented by trackers that can answer for months
// other than the current one.
type spendHistory interface {
	SpendingFor(ctx context.Context, credentialID string, year, month int) (int, error)
}

type spendResponse struct {
	CredentialID string `json:"credential_id"`
	Year         int    `json:"year,omitempty"`
	Month        int    `json:"month,omitempty"`
	CostCents    int    `json:"cost_cents"`
}

// Spend handles GET /api/ops/spend/{credential_id}. Optional year and
// month query parameters select a past month; default is the current
// month's running total.
func (h *OpsHandler) Spend(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing session")
		return
	}

	id, err := uuid.Parse(r.PathValue("credential_id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid credential id")
		return
	}

	// Spend counters are keyed by credential id alone; the ownership
	// check keeps one account from reading another's totals.
	if _, err := h.creds.GetByID(r.Context(), accountID, id); err != nil {
		if errors.Is(err, storage.ErrCredentialNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Credential not found")
		} else {
			h.logger.Error("Failed to load credential", "error", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal error")
		}
		return
	}

	resp := spendResponse{CredentialID: id.String()}

	q := r.URL.Query()
	if q.Get("year") != "" || q.Get("month") != "" {
		year, errY := strconv.Atoi(q.Get("year"))
		month, errM := strconv.Atoi(q.Get("month"))
		if errY != nil || errM != nil || month < 1 || month > 12 {
			utils.RespondWithError(w, http.StatusBadRequest, "year and month must both be given as integers, month 1-12")
			return
		}
		history, ok := h.spend.(spendHistory)
		if !ok {
			utils.RespondWithError(w, http.StatusNotImplemented, "Historical spend requires the Redis tracker")
			return
		}
		cents, err := history.SpendingFor(r.Context(), id.String(), year, month)
		if err != nil {
			h.logger.Error("Failed to read spend", "credential_id", id, "error", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal error")
			return
		}
		resp.Year, resp.Month, resp.CostCents = year, month, cents
		utils.RespondWithJSON(w, http.StatusOK, resp)
		return
	}

	cents, err := h.spend.MonthlySpending(r.Context(), id.String())
	if err != nil {
		h.logger.Error("Failed to read spend", "credential_id", id, "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	resp.CostCents = cents
	utils.RespondWithJSON(w, http.StatusOK, resp)
}
