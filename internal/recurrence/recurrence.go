// Package recurrence maps a small repeat vocabulary onto Google Calendar
// RRULE strings and back. Decoding is deliberately lossy: rules authored by
// other clients are only approximated for display.
package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Repeat is the supported repeat vocabulary.
type Repeat string

const (
	RepeatNone     Repeat = "none"
	RepeatDaily    Repeat = "daily"
	RepeatWeekdays Repeat = "weekdays"
	RepeatWeekly   Repeat = "weekly"
)

// EndType is the end condition of a repeating event.
type EndType string

const (
	EndNever EndType = "never"
	EndDate  EndType = "date"
	EndCount EndType = "count"
)

// Spec is the simplified recurrence representation edited in the UI.
// Weekdays is indexed Sunday through Saturday and only meaningful for
// RepeatWeekly.
type Spec struct {
	Repeat   Repeat
	Weekdays [7]bool
	EndType  EndType
	EndDate  string // YYYY-MM-DD, only for EndDate
	EndCount int    // only for EndCount
}

// dayCodes maps a weekday index (Sunday first) to its RRULE BYDAY code.
var dayCodes = [7]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

const weekdaysByDay = "BYDAY=MO,TU,WE,TH,FR"

// Encode builds the provider rule list for a spec. RepeatNone, and
// RepeatWeekly with an empty day set, encode to no rules at all ("does not
// repeat") rather than an error.
func Encode(spec Spec) []string {
	var parts []string

	switch spec.Repeat {
	case RepeatDaily:
		parts = append(parts, "FREQ=DAILY")
	case RepeatWeekdays:
		parts = append(parts, "FREQ=WEEKLY;"+weekdaysByDay)
	case RepeatWeekly:
		var days []string
		for i, on := range spec.Weekdays {
			if on {
				days = append(days, dayCodes[i])
			}
		}
		if len(days) == 0 {
			return nil
		}
		parts = append(parts, "FREQ=WEEKLY;BYDAY="+strings.Join(days, ","))
	default:
		return nil
	}

	switch spec.EndType {
	case EndDate:
		if spec.EndDate != "" {
			if d, err := time.Parse("2006-01-02", spec.EndDate); err == nil {
				// End of the until-day, in the provider's compact UTC form.
				until := time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, time.UTC)
				parts = append(parts, "UNTIL="+until.Format("20060102T150405Z"))
			}
		}
	case EndCount:
		if spec.EndCount > 0 {
			parts = append(parts, "COUNT="+strconv.Itoa(spec.EndCount))
		}
	}

	return []string{"RRULE:" + strings.Join(parts, ";")}
}

// Decode approximates a provider rule list back into a Spec. Absent or
// unrecognized rules decode to RepeatNone. Recognition relies on textual
// containment against the string family Encode produces; a weekly rule whose
// day set is exactly Monday-Friday is reported as RepeatWeekdays.
func Decode(rules []string) Spec {
	spec := Spec{Repeat: RepeatNone, EndType: EndNever}
	r, ok := firstRule(rules)
	if !ok {
		return spec
	}

	switch {
	case strings.Contains(r, "FREQ=DAILY"):
		spec.Repeat = RepeatDaily
	case isWeekdaysRule(r):
		spec.Repeat = RepeatWeekdays
	case strings.Contains(r, "FREQ=WEEKLY"):
		spec.Repeat = RepeatWeekly
		for i, code := range dayCodes {
			spec.Weekdays[i] = containsDay(r, code)
		}
	default:
		return spec
	}

	for _, part := range strings.Split(r, ";") {
		switch {
		case strings.HasPrefix(part, "UNTIL="):
			raw := strings.TrimPrefix(part, "UNTIL=")
			if t, err := time.Parse("20060102T150405Z", raw); err == nil {
				spec.EndType = EndDate
				spec.EndDate = t.Format("2006-01-02")
			}
		case strings.HasPrefix(part, "COUNT="):
			if n, err := strconv.Atoi(strings.TrimPrefix(part, "COUNT=")); err == nil && n > 0 {
				spec.EndType = EndCount
				spec.EndCount = n
			}
		}
	}

	return spec
}

// Summarize renders a short human description of a rule list for read-only
// display, with the same recognition rules as Decode.
func Summarize(rules []string) string {
	r, ok := firstRule(rules)
	if !ok {
		return "Does not repeat"
	}

	switch {
	case strings.Contains(r, "FREQ=DAILY"):
		return "Repeats daily"
	case isWeekdaysRule(r):
		return "Repeats on weekdays (M-F)"
	case strings.Contains(r, "FREQ=WEEKLY"):
		for _, part := range strings.Split(r, ";") {
			if strings.HasPrefix(part, "BYDAY=") {
				days := strings.TrimPrefix(part, "BYDAY=")
				return fmt.Sprintf("Repeats weekly on %s", strings.ReplaceAll(days, ",", ", "))
			}
		}
		return "Repeats weekly"
	default:
		return "Repeats"
	}
}

func firstRule(rules []string) (string, bool) {
	if len(rules) == 0 {
		return "", false
	}
	r := rules[0]
	if strings.HasPrefix(strings.ToUpper(r), "RRULE:") {
		r = r[len("RRULE:"):]
	}
	if r == "" {
		return "", false
	}
	return r, true
}

func isWeekdaysRule(r string) bool {
	return strings.Contains(r, weekdaysByDay) &&
		!strings.Contains(r, "SA") && !strings.Contains(r, "SU")
}

func containsDay(r, code string) bool {
	byday := ""
	for _, part := range strings.Split(r, ";") {
		if strings.HasPrefix(part, "BYDAY=") {
			byday = strings.TrimPrefix(part, "BYDAY=")
		}
	}
	for _, d := range strings.Split(byday, ",") {
		if d == code {
			return true
		}
	}
	return false
}
