package httpapi

import (
	"net/http"
	"time"

	"github.com/toreyjames/TokenMeter/internal/middleware"
	"github.com/toreyjames/TokenMeter/internal/pricing"
	"github.com/toreyjames/TokenMeter/internal/storage"
	"github.com/toreyjames/TokenMeter/internal/utils"
)

// StatsHandler serves aggregated spend for the dashboard charts.
type StatsHandler struct {
	repo   *storage.RequestLogRepository
	logger *utils.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewStatsHandler creates a stats handler.
func NewStatsHandler(repo *storage.RequestLogRepository) *StatsHandler {
	return &StatsHandler{
		repo:   repo,
		logger: utils.NewLogger("stats-api"),
		now:    time.Now,
	}
}

// statsPeriods maps the period query parameter to a lookback window.
var statsPeriods = map[string]time.Duration{
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"90d": 90 * 24 * time.Hour,
}

// modelStat is a per-model row, annotated with a cheaper alternative
// when the price table knows one.
type modelStat struct {
	Model          string `json:"model"`
	Requests       int    `json:"requests"`
	InputTokens    int    `json:"input_tokens"`
	OutputTokens   int    `json:"output_tokens"`
	CostCents      int    `json:"cost_cents"`
	CheaperModel   string `json:"cheaper_model,omitempty"`
	SavingsPercent int    `json:"savings_percent,omitempty"`
}

type providerStat struct {
	Provider     string `json:"provider"`
	Requests     int    `json:"requests"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	CostCents    int    `json:"cost_cents"`
}

type dailyStat struct {
	Day       string `json:"day"`
	Requests  int    `json:"requests"`
	CostCents int    `json:"cost_cents"`
}

type statsResponse struct {
	Period       string         `json:"period"`
	Requests     int            `json:"requests"`
	InputTokens  int            `json:"input_tokens"`
	OutputTokens int            `json:"output_tokens"`
	CostCents    int            `json:"cost_cents"`
	Daily        []dailyStat    `json:"daily"`
	ByModel      []modelStat    `json:"by_model"`
	ByProvider   []providerStat `json:"by_provider"`
}

// Get handles GET /api/stats?period=30d.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing session")
		return
	}

	period := r.URL.Query().Get("period")
	if period == "" {
		period = "30d"
	}
	window, ok := statsPeriods[period]
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid period, expected one of 24h, 7d, 30d, 90d")
		return
	}
	since := h.now().Add(-window)

	ctx := r.Context()
	totals, err := h.repo.Totals(ctx, accountID, since)
	if err != nil {
		h.logger.Error("Failed to aggregate totals", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	daily, err := h.repo.DailyBreakdown(ctx, accountID, since)
	if err != nil {
		h.logger.Error("Failed to aggregate daily breakdown", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	byModel, err := h.repo.BreakdownByModel(ctx, accountID, since)
	if err != nil {
		h.logger.Error("Failed to aggregate model breakdown", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	byProvider, err := h.repo.BreakdownByProvider(ctx, accountID, since)
	if err != nil {
		h.logger.Error("Failed to aggregate provider breakdown", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	resp := statsResponse{
		Period:       period,
		Requests:     totals.Requests,
		InputTokens:  totals.InputTokens,
		OutputTokens: totals.OutputTokens,
		CostCents:    totals.CostCents,
		Daily:        make([]dailyStat, 0, len(daily)),
		ByModel:      make([]modelStat, 0, len(byModel)),
		ByProvider:   make([]providerStat, 0, len(byProvider)),
	}
	for _, d := range daily {
		resp.Daily = append(resp.Daily, dailyStat{
			Day:       d.Day.Format("2006-01-02"),
			Requests:  d.Requests,
			CostCents: d.CostCents,
		})
	}
	for _, m := range byModel {
		stat := modelStat{
			Model:        m.Key,
			Requests:     m.Requests,
			InputTokens:  m.InputTokens,
			OutputTokens: m.OutputTokens,
			CostCents:    m.CostCents,
		}
		if s, ok := pricing.SuggestCheaperModel("", m.Key); ok {
			stat.CheaperModel = s.Model
			stat.SavingsPercent = s.SavingsPercent
		}
		resp.ByModel = append(resp.ByModel, stat)
	}
	for _, p := range byProvider {
		resp.ByProvider = append(resp.ByProvider, providerStat{
			Provider:     p.Key,
			Requests:     p.Requests,
			InputTokens:  p.InputTokens,
			OutputTokens: p.OutputTokens,
			CostCents:    p.CostCents,
		})
	}

	utils.RespondWithJSON(w, http.StatusOK, resp)
}
