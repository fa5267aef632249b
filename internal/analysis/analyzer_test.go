package analysis

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"matchpredict/ingestion/internal/llm"
	"matchpredict/ingestion/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	rows      map[uuid.UUID]models.Prediction
	getErr    error
	updateErr error
}

func (m *memStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Prediction, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memStore) UpdateAnalysis(ctx context.Context, id uuid.UUID, analysis string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	p := m.rows[id]
	p.Analysis = &analysis
	m.rows[id] = p
	return nil
}

type stubModel struct {
	text   string
	err    error
	prompt string
}

func (s *stubModel) Complete(ctx context.Context, system, user string) (string, error) {
	s.prompt = user
	return s.text, s.err
}

type recordingNotifier struct {
	events []models.ChangeEvent
}

func (r *recordingNotifier) Publish(ctx context.Context, ev models.ChangeEvent) error {
	r.events = append(r.events, ev)
	return nil
}

func seed() (*memStore, uuid.UUID, models.Prediction) {
	id := uuid.New()
	created := time.Date(2025, 10, 19, 9, 0, 0, 0, time.UTC)
	p := models.Prediction{
		ID:              id,
		MatchName:       "Arsenal vs Chelsea",
		APIEventID:      models.StringPtr("77"),
		LeagueName:      "Premier League",
		HomeTeam:        "Arsenal",
		AwayTeam:        "Chelsea",
		MatchDate:       time.Date(2025, 10, 19, 0, 0, 0, 0, time.UTC),
		PredictionLabel: "Home win",
		ConfidenceScore: 72,
		WinProbability:  models.IntPtr(58),
		ModelName:       "Gemini 2.5 Flash (CoT)",
		CreatedAt:       created,
		LastUpdated:     created,
	}
	return &memStore{rows: map[uuid.UUID]models.Prediction{id: p}}, id, p
}

func TestAnalyze_RoundTrip(t *testing.T) {
	store, id, before := seed()
	model := &stubModel{text: "  Arsenal's press should tell.  "}
	notifier := &recordingNotifier{}

	text, err := NewAnalyzer(store, model, notifier).Analyze(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Arsenal's press should tell.", text)

	after := store.rows[id]
	require.NotNil(t, after.Analysis)
	assert.Equal(t, text, *after.Analysis)

	// every other field is unchanged
	after.Analysis = nil
	assert.Equal(t, before, after)

	assert.Contains(t, model.prompt, "Match: Arsenal vs Chelsea")
	assert.Contains(t, model.prompt, "Current prediction: Home win")
	assert.Contains(t, model.prompt, "Model: Gemini 2.5 Flash (CoT)")

	require.Len(t, notifier.events, 1)
	assert.Equal(t, models.ChangePredictionAnalyzed, notifier.events[0].Kind)
	assert.Equal(t, []uuid.UUID{id}, notifier.events[0].PredictionIDs)
}

func TestAnalyze_OverwritesExistingAnalysis(t *testing.T) {
	store, id, _ := seed()
	p := store.rows[id]
	p.Analysis = models.StringPtr("old")
	store.rows[id] = p

	_, err := NewAnalyzer(store, &stubModel{text: "new"}, nil).Analyze(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "new", *store.rows[id].Analysis)
}

func TestAnalyze_EmptyCompletion(t *testing.T) {
	store, id, _ := seed()

	text, err := NewAnalyzer(store, &stubModel{text: "   "}, nil).Analyze(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, EmptyAnalysis, text)
	assert.Equal(t, EmptyAnalysis, *store.rows[id].Analysis)
}

func TestAnalyze_NotFound(t *testing.T) {
	store, _, _ := seed()

	_, err := NewAnalyzer(store, &stubModel{text: "x"}, nil).Analyze(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrPredictionNotFound)
}

func TestAnalyze_ModelErrorsLeaveRecordUntouched(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"rate limited", &llm.APIError{Status: http.StatusTooManyRequests}, llm.ErrRateLimited},
		{"quota", &llm.APIError{Status: http.StatusPaymentRequired}, llm.ErrQuotaExhausted},
		{"other", errors.New("boom"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, id, before := seed()
			notifier := &recordingNotifier{}

			_, err := NewAnalyzer(store, &stubModel{err: tt.err}, notifier).Analyze(context.Background(), id)
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
			assert.Equal(t, before, store.rows[id])
			assert.Empty(t, notifier.events)
		})
	}
}

func TestAnalyze_StoreErrors(t *testing.T) {
	store, id, _ := seed()
	store.getErr = errors.New("db down")

	_, err := NewAnalyzer(store, &stubModel{text: "x"}, nil).Analyze(context.Background(), id)
	assert.ErrorContains(t, err, "failed to load prediction")
	assert.NotErrorIs(t, err, ErrPredictionNotFound)

	store, id, _ = seed()
	store.updateErr = errors.New("read only")

	_, err = NewAnalyzer(store, &stubModel{text: "x"}, nil).Analyze(context.Background(), id)
	assert.ErrorContains(t, err, "failed to update prediction")
}
