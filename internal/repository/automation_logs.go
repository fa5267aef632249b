package repository

import (
	"context"
	"fmt"
	"time"

	"matchpredict/ingestion/internal/models"

	"github.com/google/uuid"
)

// AutomationLogRepository appends and reads the run audit trail
type AutomationLogRepository struct {
	db *Database
}

// Append inserts one log entry. Entries are never updated.
func (r *AutomationLogRepository) Append(ctx context.Context, entry *models.AutomationLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	start := time.Now()
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO automation_logs (
			id, function_name, status, message,
			matches_processed, analyses_generated, error_details, execution_time_ms,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.FunctionName, string(entry.Status), entry.Message,
		entry.MatchesProcessed, entry.AnalysesGenerated, entry.ErrorDetails, entry.ExecutionTimeMS,
		entry.CreatedAt,
	)
	observe("insert", "automation_logs", start, err)
	if err != nil {
		return fmt.Errorf("failed to append automation log: %w", err)
	}

	return nil
}

// ListRecent returns up to limit entries, newest first
func (r *AutomationLogRepository) ListRecent(ctx context.Context, limit int) ([]*models.AutomationLog, error) {
	start := time.Now()

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, function_name, status, message,
			   matches_processed, analyses_generated, error_details, execution_time_ms,
			   created_at
		FROM automation_logs
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		observe("select", "automation_logs", start, err)
		return nil, fmt.Errorf("failed to query automation logs: %w", err)
	}
	defer rows.Close()

	var entries []*models.AutomationLog
	for rows.Next() {
		e := &models.AutomationLog{}
		var status string
		if err := rows.Scan(
			&e.ID, &e.FunctionName, &status, &e.Message,
			&e.MatchesProcessed, &e.AnalysesGenerated, &e.ErrorDetails, &e.ExecutionTimeMS,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan automation log: %w", err)
		}
		e.Status = models.RunStatus(status)
		entries = append(entries, e)
	}

	err = rows.Err()
	observe("select", "automation_logs", start, err)
	if err != nil {
		return nil, fmt.Errorf("error iterating automation logs: %w", err)
	}

	return entries, nil
}
