package models

import (
	"time"

	"github.com/google/uuid"
)

// RequestLog is one immutable audit record of a proxied request.
// Rows are append-only; nothing mutates them after creation. Deleting a
// credential intentionally leaves its logs behind for historical
// reporting.
type RequestLog struct {
	ID           uuid.UUID `db:"id" json:"id"`
	CredentialID uuid.UUID `db:"credential_id" json:"credential_id"`

	Provider string `db:"provider" json:"provider"`
	Model    string `db:"model" json:"model"` // provider-native string, may be unpriced
	Endpoint string `db:"endpoint" json:"endpoint"`

	InputTokens  int `db:"input_tokens" json:"input_tokens"`
	OutputTokens int `db:"output_tokens" json:"output_tokens"`

	// Integer cents; avoids floating point drift when aggregated.
	CostCents int `db:"cost_cents" json:"cost_cents"`

	LatencyMs  int `db:"latency_ms" json:"latency_ms"`
	StatusCode int `db:"status_code" json:"status_code"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// Optional debugging payloads.
	RequestBody     JSONB   `db:"request_body" json:"request_body,omitempty"`
	ResponsePreview *string `db:"response_preview" json:"response_preview,omitempty"`
}
