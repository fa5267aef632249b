package models

import (
	"time"

	"github.com/google/uuid"
)

// Prediction labels written when no model output could be used
const (
	// PendingPrediction marks a match whose model call failed
	PendingPrediction = "Analysis pending"
	// PendingModelName is the provenance recorded on placeholder rows
	PendingModelName = "Pending"
)

// Outcome labels the model is asked to choose from
var OutcomeLabels = []string{
	"Home win",
	"Draw",
	"Away win",
	"Both teams to score",
	"Over 2.5 goals",
}

// Prediction is one generated prediction for a scheduled match
type Prediction struct {
	ID         uuid.UUID `db:"id" json:"id"`
	MatchName  string    `db:"match_name" json:"match_name"`
	APIEventID *string   `db:"api_event_id" json:"api_event_id,omitempty"`

	// Fixture
	LeagueName string    `db:"league_name" json:"league_name"`
	HomeTeam   string    `db:"home_team" json:"home_team"`
	AwayTeam   string    `db:"away_team" json:"away_team"`
	MatchDate  time.Time `db:"match_date" json:"match_date"`

	// Model output
	PredictionLabel string  `db:"prediction" json:"prediction"`
	ConfidenceScore int     `db:"confidence_score" json:"confidence_score"`
	WinProbability  *int    `db:"win_probability" json:"win_probability,omitempty"`
	ScorePrediction *string `db:"score_prediction" json:"score_prediction,omitempty"`
	Reasoning       *string `db:"reasoning" json:"reasoning,omitempty"`
	Analysis        *string `db:"analysis" json:"analysis,omitempty"`
	ModelName       string  `db:"model_name" json:"model_name"`

	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	LastUpdated time.Time `db:"last_updated" json:"last_updated"`
}

// MatchDateString returns the match date as YYYY-MM-DD
func (p *Prediction) MatchDateString() string {
	return p.MatchDate.Format(DateLayout)
}

// PredictionStats summarises the prediction table for the dashboard
type PredictionStats struct {
	TotalPredictions int64      `json:"total_predictions"`
	LastUpdate       *time.Time `json:"last_update"`
}

// ClampPercent bounds v to [0,100]
func ClampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// StringPtr returns nil for an empty string
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}
