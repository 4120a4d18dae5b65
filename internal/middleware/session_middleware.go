package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/toreyjames/TokenMeter/internal/auth"
	"github.com/toreyjames/TokenMeter/internal/utils"
)

// ContextKey is the type for values stored in the request context
type ContextKey string

// AccountIDKey holds the authenticated account id
const AccountIDKey ContextKey = "accountID"

// SessionMiddleware validates dashboard session tokens. It guards the
// management API only; the metering path authenticates by proxy secret
// and never passes through here.
func SessionMiddleware(jwtSecret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := r.Header.Get("Authorization")
			if tokenString == "" {
				utils.RespondWithError(w, http.StatusUnauthorized, "Missing authentication token")
				return
			}
			tokenString = strings.TrimPrefix(tokenString, "Bearer ")

			accountID, err := auth.ValidateSessionToken(tokenString, jwtSecret)
			if err != nil {
				utils.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), AccountIDKey, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAccountID retrieves the authenticated account id from the request
// context.
func GetAccountID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(AccountIDKey).(string)
	return id, ok
}
