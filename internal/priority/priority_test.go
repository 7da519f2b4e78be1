package priority

import (
	"math"
	"sort"
	"testing"
	"time"
)

var testNow = time.Date(2025, 3, 13, 10, 0, 0, 0, time.UTC)

func TestScoreUnparsableStart(t *testing.T) {
	tests := []struct {
		name  string
		start string
	}{
		{"empty", ""},
		{"garbage", "not-a-date"},
		{"month only", "2025-03"},
		{"us format", "03/15/2025"},
		{"trailing junk", "2025-03-15x"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ScoreAt("Homework", tc.start, testNow)
			if !math.IsNaN(got) {
				t.Errorf("ScoreAt(%q) = %v, want NaN", tc.start, got)
			}
		})
	}
}

func TestScoreFiniteForValidStarts(t *testing.T) {
	starts := []string{
		"2025-03-15",
		"2025-03-15T10:00:00Z",
		"2025-03-15T10:00:00",
		"2025-03-15T10:00",
	}
	for _, start := range starts {
		if got := ScoreAt("Homework", start, testNow); math.IsNaN(got) || math.IsInf(got, 0) {
			t.Errorf("ScoreAt(%q) = %v, want finite", start, got)
		}
	}
}

func TestLaterStartScoresHigher(t *testing.T) {
	early := ScoreAt("Homework", "2025-03-14T10:00:00Z", testNow)
	late := ScoreAt("Homework", "2025-03-20T10:00:00Z", testNow)
	if !(late > early) {
		t.Errorf("later start should score higher: early=%v late=%v", early, late)
	}
}

func TestKeywordLowersScoreByExactlyBase(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		wantKeyword bool
	}{
		{"exam token", "Chemistry Exam", true},
		{"final token", "final review session", true},
		{"midterm token", "CS 101 Midterm", true},
		{"project token", "Project due", true},
		{"uppercase token", "TEST 2", true},
		{"plain title", "Math Class", false},
		{"substring only", "Testing lab", false},
		{"examination substring", "Examination week", false},
	}

	base := ScoreAt("Math Class", "2025-03-15T10:00:00Z", testNow)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ScoreAt(tc.title, "2025-03-15T10:00:00Z", testNow)
			diff := base - got
			if tc.wantKeyword {
				if math.Abs(diff-keywordBase) > 1e-9 {
					t.Errorf("keyword title %q: score diff = %v, want exactly %v", tc.title, diff, keywordBase)
				}
			} else if diff != 0 {
				t.Errorf("non-keyword title %q: score diff = %v, want 0", tc.title, diff)
			}
		})
	}
}

func TestExamOutranksClassOnSameDay(t *testing.T) {
	twoDaysOut := testNow.Add(48 * time.Hour).Format(time.RFC3339)
	exam := ScoreAt("Chemistry Exam", twoDaysOut, testNow)
	class := ScoreAt("Math Class", twoDaysOut, testNow)
	if !(exam < class) {
		t.Errorf("exam score %v should be lower (more urgent) than class score %v", exam, class)
	}
}

func TestPastEventScoresNegativeContribution(t *testing.T) {
	past := ScoreAt("Homework", "2025-03-01T10:00:00Z", testNow)
	future := ScoreAt("Homework", "2025-03-14T10:00:00Z", testNow)
	if !(past < future) {
		t.Errorf("past event should be more urgent: past=%v future=%v", past, future)
	}
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  Tier
	}{
		{"nan", math.NaN(), TierLow},
		{"negative", -10, TierLow},
		{"zero", 0, TierHigh},
		{"just under two days", 479.9, TierHigh},
		{"two days", 480, TierMedium},
		{"just under a week", 1679.9, TierMedium},
		{"a week", 1680, TierLow},
		{"far out", 10000, TierLow},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := TierFor(tc.score); got != tc.want {
				t.Errorf("TierFor(%v) = %q, want %q", tc.score, got, tc.want)
			}
		})
	}
}

func TestLessIsTotalOrderWithNaN(t *testing.T) {
	nan := math.NaN()

	if Less(nan, 1) {
		t.Error("NaN should sort after numeric scores")
	}
	if !Less(1, nan) {
		t.Error("numeric score should sort before NaN")
	}
	if Less(nan, nan) {
		t.Error("two NaN scores must compare equal")
	}
	if !Less(1, 2) || Less(2, 1) {
		t.Error("numeric scores must order ascending")
	}

	scores := []float64{nan, 300, nan, -20, 1700, 480}
	sort.Slice(scores, func(i, j int) bool { return Less(scores[i], scores[j]) })

	want := []float64{-20, 300, 480, 1700}
	for i, w := range want {
		if scores[i] != w {
			t.Fatalf("sorted numeric prefix = %v, want %v at %d", scores[i], w, i)
		}
	}
	for _, s := range scores[len(want):] {
		if !math.IsNaN(s) {
			t.Fatalf("expected NaN at tail of sorted scores, got %v", s)
		}
	}
}
