package models

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the outcome recorded in an automation log entry
type RunStatus string

const (
	RunStarted RunStatus = "started"
	RunSuccess RunStatus = "success"
	RunError   RunStatus = "error"
)

// AutomationLog is an append-only audit record of a function run
type AutomationLog struct {
	ID                uuid.UUID `db:"id" json:"id"`
	FunctionName      string    `db:"function_name" json:"function_name"`
	Status            RunStatus `db:"status" json:"status"`
	Message           *string   `db:"message" json:"message"`
	MatchesProcessed  *int      `db:"matches_processed" json:"matches_processed"`
	AnalysesGenerated *int      `db:"analyses_generated" json:"analyses_generated"`
	ErrorDetails      *string   `db:"error_details" json:"error_details"`
	ExecutionTimeMS   *int64    `db:"execution_time_ms" json:"execution_time_ms"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}
