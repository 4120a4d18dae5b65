package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toreyjames/TokenMeter/internal/middleware"
	"github.com/toreyjames/TokenMeter/internal/models"
	"github.com/toreyjames/TokenMeter/internal/providers"
	"github.com/toreyjames/TokenMeter/internal/storage"
)

// withAccount attaches an authenticated account id the way the session
// middleware would.
func withAccount(req *http.Request, accountID string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.AccountIDKey, accountID)
	return req.WithContext(ctx)
}

func TestKeysCreateValidation(t *testing.T) {
	h := NewKeysHandler(nil)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantMsg  string
	}{
		{
			name:     "invalid json",
			body:     "{not json",
			wantCode: http.StatusBadRequest,
			wantMsg:  "Invalid JSON body",
		},
		{
			name:     "missing name",
			body:     `{"openai_key":"sk-x"}`,
			wantCode: http.StatusBadRequest,
			wantMsg:  "Name is required",
		},
		{
			name:     "whitespace name",
			body:     `{"name":"   ","openai_key":"sk-x"}`,
			wantCode: http.StatusBadRequest,
			wantMsg:  "Name is required",
		},
		{
			name:     "no provider keys",
			body:     `{"name":"prod"}`,
			wantCode: http.StatusBadRequest,
			wantMsg:  "At least one provider API key is required",
		},
		{
			name:     "blank provider keys do not count",
			body:     `{"name":"prod","openai_key":"  ","gemini_key":""}`,
			wantCode: http.StatusBadRequest,
			wantMsg:  "At least one provider API key is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withAccount(httptest.NewRequest(http.MethodPost, "/api/keys", strings.NewReader(tt.body)), "acct-1")
			rr := httptest.NewRecorder()
			h.Create(rr, req)
			assert.Equal(t, tt.wantCode, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantMsg)
		})
	}
}

func TestKeysRequireSession(t *testing.T) {
	h := NewKeysHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/keys", nil)
	rr := httptest.NewRecorder()
	h.List(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/keys", strings.NewReader(`{"name":"x","openai_key":"sk-x"}`))
	rr = httptest.NewRecorder()
	h.Create(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestKeysDeleteRejectsBadID(t *testing.T) {
	h := NewKeysHandler(nil)

	req := withAccount(httptest.NewRequest(http.MethodDelete, "/api/keys/not-a-uuid", nil), "acct-1")
	req.SetPathValue("id", "not-a-uuid")
	rr := httptest.NewRecorder()
	h.Delete(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid credential id")
}

func TestAlertsCreateValidation(t *testing.T) {
	h := NewAlertsHandler(nil, nil)

	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{
			name:    "missing threshold",
			body:    `{"period":"daily","email":"a@b.com"}`,
			wantMsg: "threshold_cents",
		},
		{
			name:    "negative threshold",
			body:    `{"threshold_cents":-5,"period":"daily","email":"a@b.com"}`,
			wantMsg: "threshold_cents",
		},
		{
			name:    "bad period",
			body:    `{"threshold_cents":1000,"period":"hourly","email":"a@b.com"}`,
			wantMsg: "period must be one of",
		},
		{
			name:    "bad email",
			body:    `{"threshold_cents":1000,"period":"daily","email":"nope"}`,
			wantMsg: "valid email",
		},
		{
			name:    "unknown provider",
			body:    `{"threshold_cents":1000,"period":"daily","email":"a@b.com","provider":"bedrock"}`,
			wantMsg: "Unknown provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withAccount(httptest.NewRequest(http.MethodPost, "/api/alerts", strings.NewReader(tt.body)), "acct-1")
			rr := httptest.NewRecorder()
			h.Create(rr, req)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantMsg)
		})
	}
}

func TestLogsListValidation(t *testing.T) {
	h := NewLogsHandler(nil)

	tests := []struct {
		name    string
		query   string
		wantMsg string
	}{
		{name: "bad credential id", query: "credential_id=nope", wantMsg: "Invalid credential_id"},
		{name: "bad since", query: "since=yesterday", wantMsg: "Invalid since"},
		{name: "bad limit", query: "limit=lots", wantMsg: "Invalid limit"},
		{name: "negative offset", query: "offset=-1", wantMsg: "Invalid offset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withAccount(httptest.NewRequest(http.MethodGet, "/api/logs?"+tt.query, nil), "acct-1")
			rr := httptest.NewRecorder()
			h.List(rr, req)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantMsg)
		})
	}
}

func TestStatsRejectsUnknownPeriod(t *testing.T) {
	h := NewStatsHandler(nil)

	req := withAccount(httptest.NewRequest(http.MethodGet, "/api/stats?period=1y", nil), "acct-1")
	rr := httptest.NewRecorder()
	h.Get(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid period")
}

func TestLoginValidation(t *testing.T) {
	h := NewAuthHandler(nil, []byte("secret"))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader("{bad"))
	rr := httptest.NewRecorder()
	h.Login(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"","password":"x"}`))
	rr = httptest.NewRecorder()
	h.Login(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Email and password are required")
}

type fakeAlertStore struct {
	alerts []*models.Alert
}

func (f *fakeAlertStore) Create(_ context.Context, alert *models.Alert) error { return nil }

func (f *fakeAlertStore) GetByID(_ context.Context, accountID string, id uuid.UUID) (*models.Alert, error) {
	for _, a := range f.alerts {
		if a.AccountID == accountID && a.ID == id {
			return a, nil
		}
	}
	return nil, storage.ErrAlertNotFound
}

func (f *fakeAlertStore) ListByAccount(_ context.Context, accountID string) ([]*models.Alert, error) {
	var out []*models.Alert
	for _, a := range f.alerts {
		if a.AccountID == accountID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAlertStore) Update(_ context.Context, alert *models.Alert) error { return nil }

func (f *fakeAlertStore) Delete(_ context.Context, accountID string, id uuid.UUID) error { return nil }

// fakeSpendSummer records the windows it was asked about.
type fakeSpendSummer struct {
	cents  int
	sinces map[string]time.Time
}

func (f *fakeSpendSummer) SpendSince(_ context.Context, accountID, provider string, since time.Time) (int, error) {
	if f.sinces == nil {
		f.sinces = make(map[string]time.Time)
	}
	f.sinces[provider] = since
	return f.cents, nil
}

func TestAlertsListIncludesCurrentSpend(t *testing.T) {
	openai := "openai"
	store := &fakeAlertStore{alerts: []*models.Alert{
		{ID: uuid.New(), AccountID: "acct-1", ThresholdCents: 5000, Period: models.AlertPeriodMonthly, Email: "a@b.co"},
		{ID: uuid.New(), AccountID: "acct-1", Provider: &openai, ThresholdCents: 1000, Period: models.AlertPeriodDaily, Email: "a@b.co"},
	}}
	summer := &fakeSpendSummer{cents: 321}

	h := NewAlertsHandler(store, summer)
	h.now = func() time.Time { return time.Date(2026, time.September, 1, 15, 30, 0, 0, time.UTC) }

	req := withAccount(httptest.NewRequest(http.MethodGet, "/api/alerts", nil), "acct-1")
	rr := httptest.NewRecorder()
	h.List(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var views []struct {
		ThresholdCents    int    `json:"threshold_cents"`
		Provider          string `json:"provider"`
		CurrentSpendCents int    `json:"current_spend_cents"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &views))
	require.Len(t, views, 2)
	assert.Equal(t, 321, views[0].CurrentSpendCents)
	assert.Equal(t, 321, views[1].CurrentSpendCents)

	// The monthly alert sums from the first of the month, the daily one
	// from midnight; the provider filter travels through.
	assert.Equal(t, time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC), summer.sinces[""])
	assert.Equal(t, time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC), summer.sinces["openai"])
}

func TestAlertPeriodStart(t *testing.T) {
	// A Thursday afternoon.
	now := time.Date(2026, time.September, 3, 14, 45, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, time.September, 3, 0, 0, 0, 0, time.UTC), periodStart(now, models.AlertPeriodDaily))
	assert.Equal(t, time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC), periodStart(now, models.AlertPeriodWeekly))
	assert.Equal(t, time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC), periodStart(now, models.AlertPeriodMonthly))
}

func TestKeysTestValidatesUpstreamKey(t *testing.T) {
	var gotAuth string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if gotAuth == "Bearer sk-good" {
			w.Write([]byte(`{"data":[]}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer upstream.Close()

	h := NewKeysHandler(nil)
	h.adapterFor = func(provider string) (providers.Adapter, bool) {
		if provider != "openai" {
			return nil, false
		}
		return providers.NewOpenAICompatAdapter("openai", upstream.URL), true
	}

	call := func(body string) (int, testKeyResponse) {
		req := withAccount(httptest.NewRequest(http.MethodPost, "/api/keys/test", strings.NewReader(body)), "acct-1")
		rr := httptest.NewRecorder()
		h.TestKey(rr, req)
		var resp testKeyResponse
		if rr.Code == http.StatusOK {
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		}
		return rr.Code, resp
	}

	code, resp := call(`{"provider":"openai","key":"sk-good"}`)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Valid)
	assert.Equal(t, "Bearer sk-good", gotAuth)

	code, resp = call(`{"provider":"openai","key":"sk-bad"}`)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, resp.Valid)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)

	code, _ = call(`{"provider":"nope","key":"sk-x"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call(`{"provider":"openai","key":"  "}`)
	assert.Equal(t, http.StatusBadRequest, code)
}
