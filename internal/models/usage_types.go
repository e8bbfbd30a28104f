package models

import "time"

// UsageRecord is the model for the append-only 'usage_logs' table.
// One row is written per successful credit deduction.
type UsageRecord struct {
	ID          string    `json:"id" db:"id"`
	AccountID   string    `json:"accountId" db:"account_id"`
	Operation   string    `json:"operation" db:"operation"` // OPERATION or OPERATION_MODEL
	CreditsUsed int64     `json:"creditsUsed" db:"credits_used"`
	Model       string    `json:"model" db:"model"`
	Success     bool      `json:"success" db:"success"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}
