package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/syllasync/syllasync/internal/http/weberr"
	"github.com/syllasync/syllasync/internal/priority"
	"github.com/syllasync/syllasync/internal/synccache"
)

// Suggestion is one ranked entry in the study-schedule view. Score is
// omitted for events whose start could not be parsed; they always rank last.
type Suggestion struct {
	EventID string   `json:"eventId"`
	Title   string   `json:"title"`
	Start   string   `json:"start"`
	Score   *float64 `json:"score,omitempty"`
	Tier    string   `json:"tier"`
}

type suggestionsResponse struct {
	Success     bool         `json:"success"`
	Suggestions []Suggestion `json:"suggestions"`
}

// Suggestions lists the window's events ranked most urgent first. Defaults
// to the current calendar month when no window is given.
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requireToken(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	timeMin, timeMax, err := parseWindow(q)
	if err != nil {
		if q.Get("month") != "" || q.Get("timeMin") != "" || q.Get("timeMax") != "" {
			weberr.BadRequest(w, r, err.Error(), err)
			return
		}
		now := time.Now().UTC()
		timeMin = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		timeMax = timeMin.AddDate(0, 1, 0)
	}

	key := synccache.NewKey(timeMin, timeMax, calendarSelection(q))
	events, err := h.caches.For(token).Fetch(r.Context(), key, false)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			weberr.Write(w, r, http.StatusConflict, "Superseded by a newer calendar request", nil)
			return
		}
		writeProviderError(w, r, err)
		return
	}

	suggestions := make([]Suggestion, len(events))
	for i, ev := range events {
		score := priority.Score(ev.Title, ev.Start)
		s := Suggestion{
			EventID: ev.ID,
			Title:   ev.Title,
			Start:   ev.Start,
			Tier:    string(priority.TierFor(score)),
		}
		if !math.IsNaN(score) {
			v := score
			s.Score = &v
		}
		suggestions[i] = s
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return priority.Less(scoreOf(suggestions[i]), scoreOf(suggestions[j]))
	})

	weberr.WriteJSON(w, r, http.StatusOK, suggestionsResponse{Success: true, Suggestions: suggestions})
}

func scoreOf(s Suggestion) float64 {
	if s.Score == nil {
		return math.NaN()
	}
	return *s.Score
}
