// Package priority assigns urgency scores to calendar events for
// scheduling suggestions. Lower score = more urgent.
package priority

import (
	"math"
	"strings"
	"time"
)

const (
	// timeWeight is the score contribution per hour until the event starts.
	timeWeight = 10.0
	// keywordBase is subtracted when the title carries an exam-style keyword,
	// sized so a keyword event outranks a plain event up to ~2 days later.
	keywordBase = timeWeight * 2.1 * 24
)

// examKeywords are matched as whole lowercased tokens, never as substrings.
var examKeywords = map[string]struct{}{
	"final":   {},
	"midterm": {},
	"exam":    {},
	"test":    {},
	"project": {},
}

// Tier buckets a score into a coarse urgency band.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// startLayouts are the accepted forms for an event start, date-only first.
var startLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseStart parses an event start in any accepted layout.
func ParseStart(start string) (time.Time, bool) {
	s := strings.TrimSpace(start)
	for _, layout := range startLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Score computes the urgency score for an event against the current instant.
// It returns NaN when the start cannot be parsed; callers must treat NaN as
// "cannot be ranked" rather than an error. The score is not stable across
// calls as time passes.
func Score(title, start string) float64 {
	return ScoreAt(title, start, time.Now())
}

// ScoreAt is Score with an explicit reference instant.
func ScoreAt(title, start string, now time.Time) float64 {
	st, ok := ParseStart(start)
	if !ok {
		return math.NaN()
	}

	hoursUntilStart := st.Sub(now).Hours()
	score := keywordBase + hoursUntilStart*timeWeight

	if hasExamKeyword(title) {
		score -= keywordBase
	}
	return score
}

// TierFor buckets a score. Thresholds are in score units, which already mix
// the keyword bonus and time-until-start: 480 is roughly two days out, 1680
// roughly a week.
func TierFor(score float64) Tier {
	switch {
	case math.IsNaN(score) || score < 0:
		return TierLow
	case score < 480:
		return TierHigh
	case score < 1680:
		return TierMedium
	default:
		return TierLow
	}
}

// Less orders scores ascending (more urgent first) with NaN sorted after all
// numeric scores. Two NaN scores compare equal, so Less is a strict weak
// ordering suitable for sort.Slice.
func Less(a, b float64) bool {
	switch {
	case math.IsNaN(a):
		return false
	case math.IsNaN(b):
		return true
	default:
		return a < b
	}
}

func hasExamKeyword(title string) bool {
	for _, tok := range strings.Fields(strings.ToLower(title)) {
		if _, ok := examKeywords[strings.TrimSpace(tok)]; ok {
			return true
		}
	}
	return false
}
