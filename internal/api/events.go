package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/syllasync/syllasync/internal/gcal"
	"github.com/syllasync/syllasync/internal/http/weberr"
	"github.com/syllasync/syllasync/internal/synccache"
)

// maxEventBodyBytes bounds JSON bodies on the event mutation routes.
const maxEventBodyBytes int64 = 1 * 1024 * 1024

var monthPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

// parseWindow resolves the requested time window: either explicit
// timeMin/timeMax RFC 3339 bounds, or month=YYYY-MM expanded to the whole
// calendar month in UTC so the window does not shift with server timezone.
func parseWindow(q url.Values) (time.Time, time.Time, error) {
	minParam, maxParam := q.Get("timeMin"), q.Get("timeMax")
	if minParam != "" && maxParam != "" {
		timeMin, err := time.Parse(time.RFC3339, minParam)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid timeMin: %w", err)
		}
		timeMax, err := time.Parse(time.RFC3339, maxParam)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid timeMax: %w", err)
		}
		return timeMin, timeMax, nil
	}

	if m := monthPattern.FindStringSubmatch(q.Get("month")); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0), nil
	}

	return time.Time{}, time.Time{}, errors.New("query 'month' (YYYY-MM) or 'timeMin' and 'timeMax' (RFC 3339) required")
}

func calendarSelection(q url.Values) []string {
	raw := q.Get("calendars")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

type listEventsResponse struct {
	Success bool               `json:"success"`
	Events  []gcal.EventRecord `json:"events"`
}

// ListEvents serves one calendar view through the session's event cache.
// refresh=true bypasses the cache (the post-mutation reload).
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requireToken(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	timeMin, timeMax, err := parseWindow(q)
	if err != nil {
		weberr.BadRequest(w, r, err.Error(), err)
		return
	}
	bypass := q.Get("refresh") == "true"
	key := synccache.NewKey(timeMin, timeMax, calendarSelection(q))

	events, err := h.caches.For(token).Fetch(r.Context(), key, bypass)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// A newer view request took over; this response would be stale.
			weberr.Write(w, r, http.StatusConflict, "Superseded by a newer calendar request", nil)
			return
		}
		writeProviderError(w, r, err)
		return
	}
	if events == nil {
		events = []gcal.EventRecord{}
	}
	weberr.WriteJSON(w, r, http.StatusOK, listEventsResponse{Success: true, Events: events})
}

type createEventsRequest struct {
	Events     []gcal.EventInput `json:"events"`
	CalendarID string            `json:"calendarId"`
}

type createEventsResponse struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message"`
	EventIDs []string `json:"eventIds"`
	Count    int      `json:"count"`
}

// CreateEvents inserts a batch of extracted events, defaulting to the
// primary calendar, then invalidates the session's cache so the next list
// reflects them.
func (h *Handler) CreateEvents(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requireToken(w, r)
	if !ok {
		return
	}

	var req createEventsRequest
	if err := decodeBody(w, r, &req); err != nil {
		weberr.BadRequest(w, r, "Invalid JSON body", err)
		return
	}
	if len(req.Events) == 0 {
		weberr.BadRequest(w, r, "Events array is required and must not be empty", nil)
		return
	}
	for _, ev := range req.Events {
		if ev.Title == "" || ev.Start == "" {
			weberr.BadRequest(w, r, "Invalid event structure: title and start are required", nil)
			return
		}
	}

	calendarID := req.CalendarID
	if calendarID == "" {
		calendarID = gcal.DefaultCalendarID
	}

	ids, err := h.provider.Create(r.Context(), token, req.Events, calendarID)
	if err != nil {
		writeProviderError(w, r, err)
		return
	}
	h.caches.For(token).Invalidate()

	if ids == nil {
		ids = []string{}
	}
	weberr.WriteJSON(w, r, http.StatusOK, createEventsResponse{
		Success:  true,
		Message:  fmt.Sprintf("Successfully created %d event(s) in Google Calendar", len(ids)),
		EventIDs: ids,
		Count:    len(ids),
	})
}

type updateEventRequest struct {
	EventID     string    `json:"eventId"`
	Title       *string   `json:"title"`
	Start       *string   `json:"start"`
	End         *string   `json:"end"`
	AllDay      *bool     `json:"allDay"`
	Description *string   `json:"description"`
	Recurrence  *[]string `json:"recurrence"`
}

// UpdateEvent patches one event. Only fields present in the body are sent to
// the provider; a present-but-empty recurrence list clears recurrence.
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requireToken(w, r)
	if !ok {
		return
	}

	var req updateEventRequest
	if err := decodeBody(w, r, &req); err != nil {
		weberr.BadRequest(w, r, "Invalid JSON body", err)
		return
	}
	if req.EventID == "" {
		weberr.BadRequest(w, r, "eventId is required", nil)
		return
	}

	patch := gcal.EventPatch{
		Title:       req.Title,
		Start:       req.Start,
		End:         req.End,
		AllDay:      req.AllDay,
		Description: req.Description,
		Recurrence:  req.Recurrence,
	}
	if err := h.provider.Update(r.Context(), token, req.EventID, patch); err != nil {
		writeProviderError(w, r, err)
		return
	}
	h.caches.For(token).Invalidate()
	weberr.WriteJSON(w, r, http.StatusOK, successResponse{Success: true})
}

type deleteEventRequest struct {
	EventID string `json:"eventId"`
}

// DeleteEvent removes one event from the primary calendar.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requireToken(w, r)
	if !ok {
		return
	}

	var req deleteEventRequest
	if err := decodeBody(w, r, &req); err != nil {
		weberr.BadRequest(w, r, "Invalid JSON body", err)
		return
	}
	if req.EventID == "" {
		weberr.BadRequest(w, r, "eventId is required", nil)
		return
	}

	if err := h.provider.Delete(r.Context(), token, req.EventID); err != nil {
		writeProviderError(w, r, err)
		return
	}
	h.caches.For(token).Invalidate()
	weberr.WriteJSON(w, r, http.StatusOK, successResponse{Success: true})
}

type calendarsResponse struct {
	Success   bool                `json:"success"`
	Calendars []gcal.CalendarInfo `json:"calendars"`
}

// Calendars lists the user's writable calendars for the view selector.
func (h *Handler) Calendars(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requireToken(w, r)
	if !ok {
		return
	}

	cals, err := h.provider.Calendars(r.Context(), token)
	if err != nil {
		writeProviderError(w, r, err)
		return
	}
	if cals == nil {
		cals = []gcal.CalendarInfo{}
	}
	weberr.WriteJSON(w, r, http.StatusOK, calendarsResponse{Success: true, Calendars: cals})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBodyBytes))
	return dec.Decode(dst)
}
