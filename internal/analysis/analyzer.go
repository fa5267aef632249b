// Package analysis writes an on-demand analysis for a stored prediction.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"matchpredict/ingestion/internal/llm"
	"matchpredict/ingestion/internal/metrics"
	"matchpredict/ingestion/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// FunctionName identifies the analysis function in logs and metrics
const FunctionName = "analyze-prediction"

// EmptyAnalysis is stored when the model answers with no text
const EmptyAnalysis = "Analysis could not be generated."

// ErrPredictionNotFound is returned when no prediction has the requested id
var ErrPredictionNotFound = errors.New("prediction not found")

const systemPrompt = "You are a professional football betting analyst. Answer with the analysis text only."

// Store loads and updates predictions
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Prediction, error)
	UpdateAnalysis(ctx context.Context, id uuid.UUID, analysis string) error
}

// Notifier publishes change events after writes
type Notifier interface {
	Publish(ctx context.Context, ev models.ChangeEvent) error
}

// Analyzer augments a stored prediction with model-written analysis
type Analyzer struct {
	store    Store
	model    llm.Completer
	notifier Notifier
}

// NewAnalyzer creates an analyzer. notifier may be nil.
func NewAnalyzer(store Store, model llm.Completer, notifier Notifier) *Analyzer {
	return &Analyzer{
		store:    store,
		model:    model,
		notifier: notifier,
	}
}

// Analyze generates and stores an analysis for the prediction with the given id.
// Model errors are returned unchanged so callers can test them against
// llm.ErrRateLimited and llm.ErrQuotaExhausted; the record is not touched then.
func (a *Analyzer) Analyze(ctx context.Context, id uuid.UUID) (string, error) {
	pred, err := a.store.GetByID(ctx, id)
	if err != nil {
		metrics.RecordAnalysis("error")
		return "", fmt.Errorf("failed to load prediction: %w", err)
	}
	if pred == nil {
		metrics.RecordAnalysis("not_found")
		return "", fmt.Errorf("%w: %s", ErrPredictionNotFound, id)
	}

	log.Info().
		Str("prediction_id", id.String()).
		Str("match", pred.MatchName).
		Msg("Analyzing prediction")

	text, err := a.model.Complete(ctx, systemPrompt, buildPrompt(pred))
	if err != nil {
		metrics.RecordAnalysis(llm.Outcome(err))
		log.Warn().
			Err(err).
			Str("prediction_id", id.String()).
			Msg("Analysis model call failed")
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		text = EmptyAnalysis
	}

	if err := a.store.UpdateAnalysis(ctx, id, text); err != nil {
		metrics.RecordAnalysis("error")
		return "", fmt.Errorf("failed to update prediction: %w", err)
	}

	metrics.RecordAnalysis("success")
	a.publish(ctx, id)

	return text, nil
}

func (a *Analyzer) publish(ctx context.Context, id uuid.UUID) {
	if a.notifier == nil {
		return
	}

	ev := models.ChangeEvent{
		Kind:          models.ChangePredictionAnalyzed,
		PredictionIDs: []uuid.UUID{id},
		At:            time.Now().UTC(),
	}
	if err := a.notifier.Publish(context.WithoutCancel(ctx), ev); err != nil {
		log.Warn().Err(err).Msg("Failed to publish analysis change")
	}
}

func buildPrompt(p *models.Prediction) string {
	return fmt.Sprintf(`Write a short, professional betting analysis for the match and prediction below.

Match: %s
Current prediction: %s
Model: %s

Please:
1. Keep it brief (at most 3-4 sentences)
2. Name the strengths and weaknesses of this prediction

Write only the analysis text, nothing else.`, p.MatchName, p.PredictionLabel, p.ModelName)
}
