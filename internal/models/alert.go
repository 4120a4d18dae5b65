package models

import (
	"time"

	"github.com/google/uuid"
)

// Alert periods supported by the external evaluator.
const (
	AlertPeriodDaily   = "daily"
	AlertPeriodWeekly  = "weekly"
	AlertPeriodMonthly = "monthly"
)

// Alert is a budget alert configuration. The API reports current-period
// spend alongside each alert; email notification on threshold crossing
// happens in an external collaborator.
type Alert struct {
	ID        uuid.UUID `db:"id" json:"id"`
	AccountID string    `db:"account_id" json:"account_id"`

	// NULL provider means the alert covers all providers.
	Provider        *string    `db:"provider" json:"provider,omitempty"`
	ThresholdCents  int        `db:"threshold_cents" json:"threshold_cents"`
	Period          string     `db:"period" json:"period"`
	Email           string     `db:"email" json:"email"`
	Enabled         bool       `db:"enabled" json:"enabled"`
	LastTriggeredAt *time.Time `db:"last_triggered_at" json:"last_triggered_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ValidPeriod reports whether p is a supported alert period.
func ValidPeriod(p string) bool {
	switch p {
	case AlertPeriodDaily, AlertPeriodWeekly, AlertPeriodMonthly:
		return true
	}
	return false
}
