package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/syllasync/syllasync/internal/gcal"
)

func TestSuggestionsRankedMostUrgentFirst(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()
	examStart := now.Add(40 * time.Hour).Format(time.RFC3339)
	classStart := now.Add(24 * time.Hour).Format(time.RFC3339)
	farStart := now.Add(90 * 24 * time.Hour).Format(time.RFC3339)

	f.provider.listFn = func(ctx context.Context, token string, timeMin, timeMax time.Time, ids []string) ([]gcal.EventRecord, error) {
		return []gcal.EventRecord{
			{ID: "class", Title: "History lecture", Start: classStart},
			{ID: "broken", Title: "Mystery", Start: "not-a-date"},
			{ID: "exam", Title: "Final exam", Start: examStart},
			{ID: "far", Title: "Society mixer", Start: farStart},
		}, nil
	}

	month := fmt.Sprintf("%04d-%02d", now.Year(), int(now.Month()))
	req := httptest.NewRequest(http.MethodGet, "/api/schedule/suggestions?month="+month, nil)
	f.authed(t, req, "tok-1")
	rec := httptest.NewRecorder()
	f.handler.Suggestions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Success     bool         `json:"success"`
		Suggestions []Suggestion `json:"suggestions"`
	}
	decodeJSON(t, rec.Body, &resp)
	if !resp.Success || len(resp.Suggestions) != 4 {
		t.Fatalf("response = %+v", resp)
	}

	// The exam outranks the lecture even though the lecture starts sooner;
	// the event with an unparsable start always comes last, with no score.
	if resp.Suggestions[0].EventID != "exam" {
		t.Errorf("first = %q, want exam", resp.Suggestions[0].EventID)
	}
	if resp.Suggestions[1].EventID != "class" {
		t.Errorf("second = %q, want class", resp.Suggestions[1].EventID)
	}
	last := resp.Suggestions[len(resp.Suggestions)-1]
	if last.EventID != "broken" {
		t.Errorf("last = %q, want the unparsable event", last.EventID)
	}
	if last.Score != nil {
		t.Errorf("unparsable event score = %v, want omitted", *last.Score)
	}
	if last.Tier != "low" {
		t.Errorf("unparsable event tier = %q, want low", last.Tier)
	}

	if resp.Suggestions[0].Score == nil || resp.Suggestions[1].Score == nil {
		t.Fatal("scored events must carry a score")
	}
	if *resp.Suggestions[0].Score >= *resp.Suggestions[1].Score {
		t.Errorf("ranking scores out of order: %v then %v",
			*resp.Suggestions[0].Score, *resp.Suggestions[1].Score)
	}
	if resp.Suggestions[0].Tier != "high" {
		t.Errorf("exam tier = %q, want high", resp.Suggestions[0].Tier)
	}
}

func TestSuggestionsDefaultsToCurrentMonth(t *testing.T) {
	f := newFixture(t)
	var gotMin, gotMax time.Time
	f.provider.listFn = func(ctx context.Context, token string, timeMin, timeMax time.Time, ids []string) ([]gcal.EventRecord, error) {
		gotMin, gotMax = timeMin, timeMax
		return nil, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/api/schedule/suggestions", nil)
	f.authed(t, req, "tok-1")
	rec := httptest.NewRecorder()
	f.handler.Suggestions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	now := time.Now().UTC()
	wantMin := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if !gotMin.Equal(wantMin) || !gotMax.Equal(wantMin.AddDate(0, 1, 0)) {
		t.Errorf("window = [%v, %v), want current month", gotMin, gotMax)
	}
}

func TestSuggestionsRejectsMalformedMonth(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/schedule/suggestions?month=03-2025", nil)
	f.authed(t, req, "tok-1")
	rec := httptest.NewRecorder()
	f.handler.Suggestions(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSuggestionsRequireConnection(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.handler.Suggestions(rec, httptest.NewRequest(http.MethodGet, "/api/schedule/suggestions", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
