//go:build integration

package repository

import (
	"testing"
	"time"

	"matchpredict/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutomationLogs_AppendAndList(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	base := time.Now().UTC().Add(-time.Minute)
	started := &models.AutomationLog{
		FunctionName: "fetch-matches",
		Status:       models.RunStarted,
		Message:      models.StringPtr("Fetching matches for 2025-10-19"),
		CreatedAt:    base,
	}
	ms := int64(1234)
	success := &models.AutomationLog{
		FunctionName:      "fetch-matches",
		Status:            models.RunSuccess,
		MatchesProcessed:  models.IntPtr(3),
		AnalysesGenerated: models.IntPtr(2),
		ExecutionTimeMS:   &ms,
		CreatedAt:         base.Add(time.Second),
	}

	require.NoError(t, db.AutomationLogs.Append(ctx, started))
	require.NoError(t, db.AutomationLogs.Append(ctx, success))
	assert.NotEqual(t, started.ID, success.ID)

	entries, err := db.AutomationLogs.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, models.RunSuccess, entries[0].Status)
	assert.Equal(t, 3, *entries[0].MatchesProcessed)
	assert.Equal(t, int64(1234), *entries[0].ExecutionTimeMS)
	assert.Nil(t, entries[0].ErrorDetails)

	assert.Equal(t, models.RunStarted, entries[1].Status)
	assert.Nil(t, entries[1].MatchesProcessed)
}

func TestAutomationLogs_RejectsUnknownStatus(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	err := db.AutomationLogs.Append(ctx, &models.AutomationLog{
		FunctionName: "fetch-matches",
		Status:       models.RunStatus("paused"),
	})
	assert.Error(t, err)
}
