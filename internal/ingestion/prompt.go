package ingestion

import (
	"fmt"
	"strings"

	"matchpredict/ingestion/internal/models"
)

const systemPrompt = `You are a world-renowned football analyst.

When you analyse a match:
- Think step by step (chain of thought)
- Explain the logic behind every decision
- Weigh statistics and current form
- Say so when the picture is uncertain

Always follow the requested output format exactly.`

// teamContext is the advisory enrichment appended to a prompt
type teamContext struct {
	HomeForm string
	AwayForm string
}

func (tc teamContext) lines(ev models.Event) string {
	var sb strings.Builder
	if tc.HomeForm != "" {
		fmt.Fprintf(&sb, "- %s last 5 results: %s\n", ev.HomeTeam, tc.HomeForm)
	}
	if tc.AwayForm != "" {
		fmt.Fprintf(&sb, "- %s last 5 results: %s\n", ev.AwayTeam, tc.AwayForm)
	}
	return sb.String()
}

// buildPrompt renders the user prompt with the six-label output contract
func buildPrompt(ev models.Event, matchDate string, tc teamContext) string {
	outcomes := make([]string, len(models.OutcomeLabels))
	for i, o := range models.OutcomeLabels {
		outcomes[i] = fmt.Sprintf("%q", o)
	}

	var sb strings.Builder
	sb.WriteString("As a professional football analyst, write a detailed betting analysis for the match below.\n\n")

	sb.WriteString("## MATCH\n")
	fmt.Fprintf(&sb, "- Match: %s\n", ev.MatchName())
	fmt.Fprintf(&sb, "- League: %s\n", ev.League)
	fmt.Fprintf(&sb, "- Date: %s\n", matchDate)
	sb.WriteString(tc.lines(ev))

	sb.WriteString(`
## INSTRUCTIONS

Think step by step:

1. **TEAMS**: weigh each side's strengths and weaknesses.
2. **FORM**: review recent results.
3. **NUMBERS**: expected goals and defensive strength.
4. **DECISION**: combine every factor into a logical conclusion.

## OUTPUT FORMAT (follow exactly)

REASONING: [your step-by-step thinking, 3-4 sentences]

ANALYSIS: [short match analysis, 2-3 sentences]

`)
	fmt.Fprintf(&sb, "PREDICTION: [exactly one of: %s]\n\n", strings.Join(outcomes, ", "))
	sb.WriteString(`SCORE: [predicted score, e.g. "2-1"]

CONFIDENCE: [a number from 0 to 100]

WIN_PROBABILITY: [home win percentage, 0-100]`)

	return sb.String()
}
