package utils

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the JSON envelope every non-2xx API response carries.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RespondWithError writes message inside the standard error envelope.
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}

// RespondWithJSON writes payload as a JSON response with the given
// status code. The payload is marshalled before any header goes out, so
// an encoding failure can still become a clean 500 instead of a
// half-written body.
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
	return nil
}
