package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"matchpredict/ingestion/internal/metrics"
	"matchpredict/ingestion/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog/log"
)

const predictionColumns = `id, match_name, api_event_id, league_name, home_team, away_team, match_date,
	prediction, confidence_score, win_probability, score_prediction, reasoning, analysis,
	model_name, created_at, last_updated`

// PredictionRepository handles prediction-related database operations
type PredictionRepository struct {
	db *Database
}

// DeleteCreatedBefore removes predictions created before cutoff and returns how many went
func (r *PredictionRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	start := time.Now()

	result, err := r.db.Pool.Exec(ctx, `DELETE FROM predictions WHERE created_at < $1`, cutoff)
	observe("delete", "predictions", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old predictions: %w", err)
	}

	return result.RowsAffected(), nil
}

// ExistsByEventID reports whether a prediction already carries the upstream event id
func (r *PredictionRepository) ExistsByEventID(ctx context.Context, eventID string) (bool, error) {
	start := time.Now()

	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM predictions WHERE api_event_id = $1)`,
		eventID,
	).Scan(&exists)
	observe("exists_event", "predictions", start, err)
	if err != nil {
		return false, fmt.Errorf("failed to check prediction by event id: %w", err)
	}

	return exists, nil
}

// ExistsByMatch reports whether a prediction exists for the match name on matchDate
func (r *PredictionRepository) ExistsByMatch(ctx context.Context, matchName string, matchDate time.Time) (bool, error) {
	start := time.Now()

	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM predictions WHERE match_name = $1 AND match_date = $2)`,
		matchName, matchDate.Format(models.DateLayout),
	).Scan(&exists)
	observe("exists_match", "predictions", start, err)
	if err != nil {
		return false, fmt.Errorf("failed to check prediction by match: %w", err)
	}

	return exists, nil
}

// InsertBatch stores all predictions in one COPY. Either every row lands or none does.
func (r *PredictionRepository) InsertBatch(ctx context.Context, predictions []*models.Prediction) error {
	if len(predictions) == 0 {
		return nil
	}

	start := time.Now()
	rows := make([][]interface{}, 0, len(predictions))
	for _, p := range predictions {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = start.UTC()
		}
		if p.LastUpdated.IsZero() {
			p.LastUpdated = p.CreatedAt
		}

		rows = append(rows, []interface{}{
			pgtype.UUID{Bytes: [16]byte(p.ID), Valid: true},
			p.MatchName,
			p.APIEventID,
			p.LeagueName,
			p.HomeTeam,
			p.AwayTeam,
			pgtype.Date{Time: p.MatchDate, Valid: true},
			p.PredictionLabel,
			int32(models.ClampPercent(p.ConfidenceScore)),
			clampedPtr(p.WinProbability),
			p.ScorePrediction,
			p.Reasoning,
			p.Analysis,
			p.ModelName,
			p.CreatedAt,
			p.LastUpdated,
		})
	}

	n, err := r.db.Pool.CopyFrom(ctx,
		pgx.Identifier{"predictions"},
		[]string{
			"id", "match_name", "api_event_id", "league_name", "home_team", "away_team", "match_date",
			"prediction", "confidence_score", "win_probability", "score_prediction", "reasoning", "analysis",
			"model_name", "created_at", "last_updated",
		},
		pgx.CopyFromRows(rows),
	)
	observe("copy", "predictions", start, err)
	if err != nil {
		log.Error().Err(err).Int("count", len(predictions)).Msg("Failed to insert predictions")
		return fmt.Errorf("failed to insert predictions: %w", err)
	}

	log.Info().Int64("inserted", n).Msg("Predictions inserted")
	return nil
}

// GetByID returns the prediction or nil when none has the id
func (r *PredictionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Prediction, error) {
	start := time.Now()

	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE id = $1`

	pred, err := scanPrediction(r.db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		observe("select", "predictions", start, nil)
		return nil, nil
	}
	observe("select", "predictions", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}

	return pred, nil
}

// UpdateAnalysis overwrites the analysis column and nothing else
func (r *PredictionRepository) UpdateAnalysis(ctx context.Context, id uuid.UUID, analysis string) error {
	start := time.Now()

	result, err := r.db.Pool.Exec(ctx, `UPDATE predictions SET analysis = $2 WHERE id = $1`, id, analysis)
	observe("update", "predictions", start, err)
	if err != nil {
		return fmt.Errorf("failed to update analysis: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("prediction %s not found", id)
	}

	return nil
}

// ListRecent returns up to limit predictions, newest first
func (r *PredictionRepository) ListRecent(ctx context.Context, limit int) ([]*models.Prediction, error) {
	start := time.Now()

	query := `SELECT ` + predictionColumns + ` FROM predictions ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		observe("select", "predictions", start, err)
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var preds []*models.Prediction
	for rows.Next() {
		pred, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		preds = append(preds, pred)
	}

	err = rows.Err()
	observe("select", "predictions", start, err)
	if err != nil {
		return nil, fmt.Errorf("error iterating predictions: %w", err)
	}

	return preds, nil
}

// Stats returns the prediction count and the newest creation time
func (r *PredictionRepository) Stats(ctx context.Context) (*models.PredictionStats, error) {
	start := time.Now()

	stats := &models.PredictionStats{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), MAX(created_at) FROM predictions`,
	).Scan(&stats.TotalPredictions, &stats.LastUpdate)
	observe("stats", "predictions", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction stats: %w", err)
	}

	return stats, nil
}

func scanPrediction(row pgx.Row) (*models.Prediction, error) {
	pred := &models.Prediction{}
	var confidence int32
	var winProbability *int32

	err := row.Scan(
		&pred.ID, &pred.MatchName, &pred.APIEventID, &pred.LeagueName,
		&pred.HomeTeam, &pred.AwayTeam, &pred.MatchDate,
		&pred.PredictionLabel, &confidence, &winProbability,
		&pred.ScorePrediction, &pred.Reasoning, &pred.Analysis,
		&pred.ModelName, &pred.CreatedAt, &pred.LastUpdated,
	)
	if err != nil {
		return nil, err
	}

	pred.ConfidenceScore = int(confidence)
	if winProbability != nil {
		pred.WinProbability = models.IntPtr(int(*winProbability))
	}

	return pred, nil
}

func clampedPtr(v *int) *int32 {
	if v == nil {
		return nil
	}
	c := int32(models.ClampPercent(*v))
	return &c
}

func observe(operation, table string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordDBQuery(operation, table, status, time.Since(start).Seconds())
}
