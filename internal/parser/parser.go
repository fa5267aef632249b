// Package parser extracts the labelled sections of a model's prediction text.
//
// The model is asked to answer in a fixed layout:
//
//	REASONING: ...
//	ANALYSIS: ...
//	PREDICTION: ...
//	SCORE: ...
//	CONFIDENCE: 0-100
//	WIN_PROBABILITY: 0-100
//
// Nothing enforces that layout, so Parse never fails: every field it cannot
// read falls back to a fixed value and is listed in Result.Missing.
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"matchpredict/ingestion/internal/models"
)

// Field labels in the order the model is asked to emit them
const (
	LabelReasoning      = "REASONING"
	LabelAnalysis       = "ANALYSIS"
	LabelPrediction     = "PREDICTION"
	LabelScore          = "SCORE"
	LabelConfidence     = "CONFIDENCE"
	LabelWinProbability = "WIN_PROBABILITY"
)

// Labels lists every field label in prompt order
var Labels = []string{
	LabelReasoning,
	LabelAnalysis,
	LabelPrediction,
	LabelScore,
	LabelConfidence,
	LabelWinProbability,
}

// Fallbacks
const (
	FallbackPrediction     = "Analysis completed"
	DefaultConfidence      = 70
	DefaultWinProbability  = 50
	AnalysisFallbackLength = 500
)

var (
	// labels may be wrapped in markdown bold: **PREDICTION:** or **PREDICTION**:
	labelPattern   = regexp.MustCompile(`\*{0,2}\b(REASONING|ANALYSIS|PREDICTION|SCORE|CONFIDENCE|WIN_PROBABILITY)\*{0,2}[ \t]*:\*{0,2}`)
	leadingInteger = regexp.MustCompile(`^[\s*%]*(\d+)`)
)

// Result holds the extracted fields. Missing names the labels that fell back.
type Result struct {
	Reasoning      string
	Analysis       string
	Prediction     string
	Score          string
	Confidence     int
	WinProbability int
	Missing        []string
}

// Complete reports whether every field was read from the text
func (r Result) Complete() bool {
	return len(r.Missing) == 0
}

// Parse maps raw model output to a Result. It is safe on any input.
func Parse(raw string) Result {
	sections := split(raw)

	res := Result{}

	res.Reasoning = text(sections, LabelReasoning)
	if res.Reasoning == "" {
		res.Missing = append(res.Missing, LabelReasoning)
	}

	res.Analysis = text(sections, LabelAnalysis)
	if res.Analysis == "" {
		res.Analysis = truncateRunes(strings.TrimSpace(raw), AnalysisFallbackLength)
		res.Missing = append(res.Missing, LabelAnalysis)
	}

	res.Prediction = text(sections, LabelPrediction)
	if res.Prediction == "" {
		res.Prediction = FallbackPrediction
		res.Missing = append(res.Missing, LabelPrediction)
	}

	res.Score = text(sections, LabelScore)
	if res.Score == "" {
		res.Missing = append(res.Missing, LabelScore)
	}

	var ok bool
	if res.Confidence, ok = percent(sections, LabelConfidence); !ok {
		res.Confidence = DefaultConfidence
		res.Missing = append(res.Missing, LabelConfidence)
	}

	if res.WinProbability, ok = percent(sections, LabelWinProbability); !ok {
		res.WinProbability = DefaultWinProbability
		res.Missing = append(res.Missing, LabelWinProbability)
	}

	return res
}

// split cuts raw into label -> value. A value runs from its label to the start of
// the next label. When a label repeats, the first occurrence wins.
func split(raw string) map[string]string {
	matches := labelPattern.FindAllStringSubmatchIndex(raw, -1)
	sections := make(map[string]string, len(matches))

	for i, m := range matches {
		label := raw[m[2]:m[3]]
		if _, seen := sections[label]; seen {
			continue
		}

		end := len(raw)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		sections[label] = raw[m[1]:end]
	}

	return sections
}

func text(sections map[string]string, label string) string {
	return strings.Trim(sections[label], " \t\r\n*\"")
}

func percent(sections map[string]string, label string) (int, bool) {
	m := leadingInteger.FindStringSubmatch(sections[label])
	if m == nil {
		return 0, false
	}

	v, err := strconv.Atoi(m[1])
	if err != nil {
		// more digits than an int holds is still "above 100"
		return 100, true
	}

	return models.ClampPercent(v), true
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
