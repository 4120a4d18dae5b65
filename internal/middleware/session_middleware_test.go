package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toreyjames/TokenMeter/internal/auth"
)

var testJWTSecret = []byte("test-session-secret")

func sessionTestHandler(t *testing.T) (http.Handler, *string) {
	t.Helper()

	var seenAccountID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetAccountID(r.Context())
		require.True(t, ok)
		seenAccountID = id
		w.WriteHeader(http.StatusOK)
	})
	return SessionMiddleware(testJWTSecret)(inner), &seenAccountID
}

func TestSessionMiddleware_ValidToken(t *testing.T) {
	handler, seenAccountID := sessionTestHandler(t)

	token, _, err := auth.GenerateSessionToken("acct-42", testJWTSecret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/keys", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acct-42", *seenAccountID)
}

func TestSessionMiddleware_MissingToken(t *testing.T) {
	handler, _ := sessionTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/keys", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionMiddleware_InvalidToken(t *testing.T) {
	handler, _ := sessionTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/keys", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionMiddleware_WrongSecret(t *testing.T) {
	handler, _ := sessionTestHandler(t)

	token, _, err := auth.GenerateSessionToken("acct-42", []byte("other-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/keys", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
