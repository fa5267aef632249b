package ingestion

import (
	"strings"

	"matchpredict/ingestion/internal/models"

	"golang.org/x/text/cases"
)

// leagueFilter keeps events whose league name contains an allowed competition
type leagueFilter struct {
	folded []string
}

func newLeagueFilter(leagues []string) *leagueFilter {
	fold := cases.Fold()

	f := &leagueFilter{folded: make([]string, 0, len(leagues))}
	for _, l := range leagues {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		f.folded = append(f.folded, fold.String(l))
	}
	return f
}

func (f *leagueFilter) allows(league string) bool {
	name := cases.Fold().String(league)
	for _, l := range f.folded {
		if strings.Contains(name, l) {
			return true
		}
	}
	return false
}

// selectEvents applies the allow-list then caps the result, keeping source order
func (f *leagueFilter) selectEvents(events []models.Event, limit int) []models.Event {
	out := make([]models.Event, 0, len(events))
	for _, ev := range events {
		if len(out) == limit {
			break
		}
		if f.allows(ev.League) {
			out = append(out, ev)
		}
	}
	return out
}
