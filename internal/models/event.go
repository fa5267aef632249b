package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format used by the sports API and match_date
const DateLayout = "2006-01-02"

const (
	unknownTeam   = "Unknown"
	unknownLeague = "Unknown League"
)

// ScheduledEventsResponse is the body of the scheduled-events endpoint
type ScheduledEventsResponse struct {
	Events []EventInput `json:"events"`
}

// EventInput is a scheduled event as returned by the sports API
type EventInput struct {
	ID             int64         `json:"id"`
	HomeTeam       TeamRef       `json:"homeTeam"`
	AwayTeam       TeamRef       `json:"awayTeam"`
	Tournament     TournamentRef `json:"tournament"`
	StartTimestamp int64         `json:"startTimestamp"`
}

// TeamRef identifies a team inside an event
type TeamRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TournamentRef names the competition of an event
type TournamentRef struct {
	Name string `json:"name"`
}

// TeamFormResponse is the body of the team form endpoint
type TeamFormResponse struct {
	Form []struct {
		Type string `json:"type"`
	} `json:"form"`
}

// Event is a scheduled fixture ready for the ingestion pipeline
type Event struct {
	EventID    string
	HomeTeamID int64
	HomeTeam   string
	AwayTeamID int64
	AwayTeam   string
	League     string
	StartTime  time.Time // zero when the source omitted it
}

// ToEvent converts EventInput to Event, filling display defaults
func (ei *EventInput) ToEvent() Event {
	ev := Event{
		HomeTeamID: ei.HomeTeam.ID,
		HomeTeam:   orDefault(ei.HomeTeam.Name, unknownTeam),
		AwayTeamID: ei.AwayTeam.ID,
		AwayTeam:   orDefault(ei.AwayTeam.Name, unknownTeam),
		League:     orDefault(ei.Tournament.Name, unknownLeague),
	}

	if ei.ID != 0 {
		ev.EventID = strconv.FormatInt(ei.ID, 10)
	}

	if ei.StartTimestamp > 0 {
		ev.StartTime = time.Unix(ei.StartTimestamp, 0).UTC()
	}

	return ev
}

// MatchName returns the "{home} vs {away}" display string
func (e Event) MatchName() string {
	return fmt.Sprintf("%s vs %s", e.HomeTeam, e.AwayTeam)
}

// MatchDate returns the UTC calendar date of kick-off, or runDate's calendar date
// when the start time is unknown
func (e Event) MatchDate(runDate time.Time) time.Time {
	if !e.StartTime.IsZero() {
		return TruncateToDate(e.StartTime.UTC())
	}
	y, m, d := runDate.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TruncateToDate drops the clock part of t, keeping its calendar date in UTC
func TruncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatForm joins up to limit result types ("W", "D", "L") into a compact string
func (fr *TeamFormResponse) FormatForm(limit int) string {
	var b strings.Builder
	for i, f := range fr.Form {
		if i >= limit {
			break
		}
		b.WriteString(f.Type)
	}
	if b.Len() == 0 {
		return "N/A"
	}
	return b.String()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
