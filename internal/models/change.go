package models

import (
	"time"

	"github.com/google/uuid"
)

// ChangeKind tells subscribers what happened to the prediction table
type ChangeKind string

const (
	ChangePredictionsInserted ChangeKind = "predictions_inserted"
	ChangePredictionAnalyzed  ChangeKind = "prediction_analyzed"
)

// ChangeEvent is published on the change stream after prediction writes
type ChangeEvent struct {
	Kind          ChangeKind  `json:"kind"`
	PredictionIDs []uuid.UUID `json:"prediction_ids"`
	At            time.Time   `json:"at"`
}
