package utils

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestRespondWithError(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithError(w, 401, "invalid key")

	if w.Code != 401 {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if resp.Error != "invalid key" {
		t.Errorf("error = %q, want %q", resp.Error, "invalid key")
	}
}

func TestRespondWithJSON(t *testing.T) {
	w := httptest.NewRecorder()
	if err := RespondWithJSON(w, 201, map[string]int{"n": 1}); err != nil {
		t.Fatalf("RespondWithJSON() error = %v", err)
	}
	if w.Code != 201 {
		t.Errorf("status = %d, want 201", w.Code)
	}
	if got := w.Body.String(); got != `{"n":1}` {
		t.Errorf("body = %q", got)
	}
}

func TestRespondWithJSONUnencodablePayload(t *testing.T) {
	w := httptest.NewRecorder()
	if err := RespondWithJSON(w, 200, map[string]any{"f": func() {}}); err == nil {
		t.Fatal("expected encoding error")
	}
	if w.Code != 500 {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct == "application/json" {
		t.Errorf("Content-Type = %q, JSON header must not be set on encode failure", ct)
	}
}
