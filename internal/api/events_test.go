package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/syllasync/syllasync/internal/gcal"
)

func TestParseWindow(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantMin time.Time
		wantMax time.Time
		wantErr bool
	}{
		{
			name:    "month expands to whole UTC month",
			query:   "month=2025-03",
			wantMin: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			wantMax: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "december rolls into next year",
			query:   "month=2025-12",
			wantMin: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
			wantMax: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "explicit bounds win over month",
			query:   "month=2025-03&timeMin=2025-06-01T00:00:00Z&timeMax=2025-06-15T00:00:00Z",
			wantMin: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			wantMax: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		},
		{name: "malformed month", query: "month=2025-3", wantErr: true},
		{name: "month with junk", query: "month=2025-03-10", wantErr: true},
		{name: "timeMin alone", query: "timeMin=2025-06-01T00:00:00Z", wantErr: true},
		{name: "bad timeMax", query: "timeMin=2025-06-01T00:00:00Z&timeMax=tomorrow", wantErr: true},
		{name: "nothing", query: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/calendar/events?"+tt.query, nil)
			timeMin, timeMax, err := parseWindow(req.URL.Query())
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !timeMin.Equal(tt.wantMin) || !timeMax.Equal(tt.wantMax) {
				t.Errorf("window = [%v, %v), want [%v, %v)", timeMin, timeMax, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestListEventsRequiresConnection(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.handler.ListEvents(rec, httptest.NewRequest(http.MethodGet, "/api/calendar/events?month=2025-03", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if atomic.LoadInt32(&f.provider.listCalls) != 0 {
		t.Error("provider must not be called without a session")
	}
}

func TestListEventsPassesWindowAndSelection(t *testing.T) {
	f := newFixture(t)
	var gotMin, gotMax time.Time
	var gotIDs []string
	f.provider.listFn = func(ctx context.Context, token string, timeMin, timeMax time.Time, ids []string) ([]gcal.EventRecord, error) {
		gotMin, gotMax, gotIDs = timeMin, timeMax, ids
		return []gcal.EventRecord{{ID: "e1", Title: "Lecture"}}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/api/calendar/events?month=2025-03&calendars=work,school", nil)
	f.authed(t, req, "tok-1")
	rec := httptest.NewRecorder()
	f.handler.ListEvents(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if !gotMin.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) ||
		!gotMax.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("window = [%v, %v)", gotMin, gotMax)
	}
	if len(gotIDs) != 2 || gotIDs[0] != "school" || gotIDs[1] != "work" {
		t.Errorf("calendar ids = %v, want sorted selection", gotIDs)
	}

	var resp struct {
		Success bool               `json:"success"`
		Events  []gcal.EventRecord `json:"events"`
	}
	decodeJSON(t, rec.Body, &resp)
	if !resp.Success || len(resp.Events) != 1 || resp.Events[0].ID != "e1" {
		t.Errorf("response = %+v", resp)
	}
}

func TestListEventsBadWindow(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/calendar/events", nil)
	f.authed(t, req, "tok-1")
	rec := httptest.NewRecorder()
	f.handler.ListEvents(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if atomic.LoadInt32(&f.provider.listCalls) != 0 {
		t.Error("provider must not be called for a malformed window")
	}
}

func TestListEventsServedFromCache(t *testing.T) {
	f := newFixture(t)
	f.provider.listFn = func(ctx context.Context, token string, timeMin, timeMax time.Time, ids []string) ([]gcal.EventRecord, error) {
		return []gcal.EventRecord{{ID: "cached"}}, nil
	}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/calendar/events?month=2025-03", nil)
		f.authed(t, req, "tok-1")
		rec := httptest.NewRecorder()
		f.handler.ListEvents(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("fetch %d status = %d", i, rec.Code)
		}
	}

	if n := atomic.LoadInt32(&f.provider.listCalls); n != 1 {
		t.Errorf("provider list calls = %d, want 1", n)
	}
}

func TestListEventsRefreshBypassesCache(t *testing.T) {
	f := newFixture(t)
	f.provider.listFn = func(ctx context.Context, token string, timeMin, timeMax time.Time, ids []string) ([]gcal.EventRecord, error) {
		return nil, nil
	}

	for _, target := range []string{
		"/api/calendar/events?month=2025-03",
		"/api/calendar/events?month=2025-03&refresh=true",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		f.authed(t, req, "tok-1")
		f.handler.ListEvents(httptest.NewRecorder(), req)
	}

	if n := atomic.LoadInt32(&f.provider.listCalls); n != 2 {
		t.Errorf("provider list calls = %d, want 2", n)
	}
}

func TestCreateEventsValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "empty array",
			body:    `{"events":[]}`,
			wantErr: "Events array is required and must not be empty",
		},
		{
			name:    "missing events",
			body:    `{}`,
			wantErr: "Events array is required and must not be empty",
		},
		{
			name:    "missing title",
			body:    `{"events":[{"start":"2025-03-10"}]}`,
			wantErr: "Invalid event structure: title and start are required",
		},
		{
			name:    "missing start",
			body:    `{"events":[{"title":"Essay due"}]}`,
			wantErr: "Invalid event structure: title and start are required",
		},
		{
			name:    "not json",
			body:    `title=Essay`,
			wantErr: "Invalid JSON body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := httptest.NewRequest(http.MethodPost, "/api/calendar/events", strings.NewReader(tt.body))
			f.authed(t, req, "tok-1")
			rec := httptest.NewRecorder()
			f.handler.CreateEvents(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			var resp errorBody
			decodeJSON(t, rec.Body, &resp)
			if resp.Error != tt.wantErr {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantErr)
			}
			if atomic.LoadInt32(&f.provider.createCalls) != 0 {
				t.Error("provider must not be called for an invalid batch")
			}
		})
	}
}

func TestCreateEventsDefaultsToPrimary(t *testing.T) {
	f := newFixture(t)
	body := `{"events":[{"title":"Midterm Exam","start":"2025-03-10"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/calendar/events", strings.NewReader(body))
	f.authed(t, req, "tok-1")
	rec := httptest.NewRecorder()
	f.handler.CreateEvents(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if f.provider.lastCreate.calendarID != gcal.DefaultCalendarID {
		t.Errorf("calendar = %q, want primary", f.provider.lastCreate.calendarID)
	}

	var resp struct {
		Success  bool     `json:"success"`
		Message  string   `json:"message"`
		EventIDs []string `json:"eventIds"`
		Count    int      `json:"count"`
	}
	decodeJSON(t, rec.Body, &resp)
	if !resp.Success || resp.Count != 1 || len(resp.EventIDs) != 1 {
		t.Errorf("response = %+v", resp)
	}
	if resp.Message != "Successfully created 1 event(s) in Google Calendar" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestCreateEventsTargetsNamedCalendar(t *testing.T) {
	f := newFixture(t)
	body := `{"events":[{"title":"Lab report","start":"2025-03-12"}],"calendarId":"school"}`
	req := httptest.NewRequest(http.MethodPost, "/api/calendar/events", strings.NewReader(body))
	f.authed(t, req, "tok-1")
	f.handler.CreateEvents(httptest.NewRecorder(), req)

	if f.provider.lastCreate.calendarID != "school" {
		t.Errorf("calendar = %q, want school", f.provider.lastCreate.calendarID)
	}
}

func TestCreateEventsInvalidatesCache(t *testing.T) {
	f := newFixture(t)
	f.provider.listFn = func(ctx context.Context, token string, timeMin, timeMax time.Time, ids []string) ([]gcal.EventRecord, error) {
		return nil, nil
	}

	listReq := httptest.NewRequest(http.MethodGet, "/api/calendar/events?month=2025-03", nil)
	f.authed(t, listReq, "tok-1")
	f.handler.ListEvents(httptest.NewRecorder(), listReq)

	createReq := httptest.NewRequest(http.MethodPost, "/api/calendar/events",
		strings.NewReader(`{"events":[{"title":"Final Exam","start":"2025-03-20"}]}`))
	f.authed(t, createReq, "tok-1")
	f.handler.CreateEvents(httptest.NewRecorder(), createReq)

	listReq = httptest.NewRequest(http.MethodGet, "/api/calendar/events?month=2025-03", nil)
	f.authed(t, listReq, "tok-1")
	f.handler.ListEvents(httptest.NewRecorder(), listReq)

	if n := atomic.LoadInt32(&f.provider.listCalls); n != 2 {
		t.Errorf("list calls = %d, want refetch after a mutation", n)
	}
}

func TestUpdateEventSendsOnlyPresentFields(t *testing.T) {
	f := newFixture(t)
	body := `{"eventId":"ev-9","title":"Renamed","recurrence":[]}`
	req := httptest.NewRequest(http.MethodPatch, "/api/calendar/events", strings.NewReader(body))
	f.authed(t, req, "tok-1")
	rec := httptest.NewRecorder()
	f.handler.UpdateEvent(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if f.provider.lastUpdate != "ev-9" {
		t.Errorf("event id = %q", f.provider.lastUpdate)
	}
	p := f.provider.lastPatch
	if p.Title == nil || *p.Title != "Renamed" {
		t.Errorf("title = %v", p.Title)
	}
	if p.Start != nil || p.End != nil || p.AllDay != nil || p.Description != nil {
		t.Errorf("absent fields must stay nil: %+v", p)
	}
	if p.Recurrence == nil || len(*p.Recurrence) != 0 {
		t.Errorf("explicit empty recurrence must be present: %v", p.Recurrence)
	}
}

func TestUpdateEventRequiresID(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPatch, "/api/calendar/events", strings.NewReader(`{"title":"x"}`))
	f.authed(t, req, "tok-1")
	rec := httptest.NewRecorder()
	f.handler.UpdateEvent(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestDeleteEvent(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodDelete, "/api/calendar/events", strings.NewReader(`{"eventId":"ev-3"}`))
	f.authed(t, req, "tok-1")
	rec := httptest.NewRecorder()
	f.handler.DeleteEvent(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if f.provider.lastDelete != "ev-3" {
		t.Errorf("deleted = %q", f.provider.lastDelete)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/calendar/events", strings.NewReader(`{}`))
	f.authed(t, req, "tok-1")
	rec = httptest.NewRecorder()
	f.handler.DeleteEvent(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status without id = %d, want 400", rec.Code)
	}
}

func TestCalendarsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.provider.calendars = []gcal.CalendarInfo{
		{ID: "primary", Summary: "Me", Primary: true, BackgroundColor: "#4285f4"},
		{ID: "school", Summary: "School", BackgroundColor: "#ff0000"},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/calendar/calendars", nil)
	f.authed(t, req, "tok-1")
	rec := httptest.NewRecorder()
	f.handler.Calendars(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Success   bool                `json:"success"`
		Calendars []gcal.CalendarInfo `json:"calendars"`
	}
	decodeJSON(t, rec.Body, &resp)
	if !resp.Success || len(resp.Calendars) != 2 || !resp.Calendars[0].Primary {
		t.Errorf("response = %+v", resp)
	}
}
