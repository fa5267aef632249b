package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventInput_ToEvent(t *testing.T) {
	raw := `{
		"id": 12437786,
		"homeTeam": {"id": 17, "name": "Manchester City"},
		"awayTeam": {"id": 42, "name": "Arsenal"},
		"tournament": {"name": "Premier League"},
		"startTimestamp": 1760883300
	}`

	var in EventInput
	require.NoError(t, json.Unmarshal([]byte(raw), &in))

	ev := in.ToEvent()
	assert.Equal(t, "12437786", ev.EventID)
	assert.Equal(t, int64(17), ev.HomeTeamID)
	assert.Equal(t, "Manchester City vs Arsenal", ev.MatchName())
	assert.Equal(t, "Premier League", ev.League)

	runDate := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-10-19", ev.MatchDate(runDate).Format(DateLayout))
}

func TestEventInput_ToEventDefaults(t *testing.T) {
	in := EventInput{}
	ev := in.ToEvent()

	assert.Empty(t, ev.EventID)
	assert.Equal(t, "Unknown vs Unknown", ev.MatchName())
	assert.Equal(t, "Unknown League", ev.League)

	runDate := time.Date(2025, 10, 19, 23, 30, 0, 0, time.FixedZone("TRT", 3*3600))
	assert.Equal(t, "2025-10-19", ev.MatchDate(runDate).Format(DateLayout))
}

func TestTeamFormResponse_FormatForm(t *testing.T) {
	var fr TeamFormResponse
	require.NoError(t, json.Unmarshal([]byte(`{"form":[{"type":"W"},{"type":"W"},{"type":"D"},{"type":"L"},{"type":"W"},{"type":"L"}]}`), &fr))
	assert.Equal(t, "WWDLW", fr.FormatForm(5))

	empty := TeamFormResponse{}
	assert.Equal(t, "N/A", empty.FormatForm(5))
}

func TestClampPercent(t *testing.T) {
	assert.Equal(t, 0, ClampPercent(-4))
	assert.Equal(t, 55, ClampPercent(55))
	assert.Equal(t, 100, ClampPercent(150))
}
