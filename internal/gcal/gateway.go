// Package gcal is a thin adapter over the Google Calendar v3 API that
// normalizes event CRUD for the rest of the service.
package gcal

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/syllasync/syllasync/internal/metrics"
)

const (
	// DefaultCalendarID targets the user's primary calendar when a request
	// does not name one.
	DefaultCalendarID = "primary"

	// maxResults is the provider's maximum page size.
	maxResults = 250
)

// Gateway performs calendar CRUD with a per-call access token. The zero
// configuration talks to Google; tests inject their own client options.
type Gateway struct {
	overrides []option.ClientOption
}

func New() *Gateway {
	return &Gateway{}
}

// NewWithOptions builds a Gateway whose service uses only the given client
// options, ignoring the per-call token. Intended for tests and bespoke
// transports.
func NewWithOptions(opts ...option.ClientOption) *Gateway {
	return &Gateway{overrides: opts}
}

func (g *Gateway) service(ctx context.Context, token string) (*calendar.Service, error) {
	if len(g.overrides) > 0 {
		return calendar.NewService(ctx, g.overrides...)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return calendar.NewService(ctx, option.WithTokenSource(ts))
}

// List fetches events in [timeMin, timeMax) across the requested calendars.
// Each calendar is queried independently; a per-calendar failure is logged
// and skipped so partial results still surface, except an expired credential,
// which aborts since no calendar can succeed. Events are de-duplicated by
// provider id and sorted ascending by start.
func (g *Gateway) List(ctx context.Context, token string, timeMin, timeMax time.Time, calendarIDs []string) ([]EventRecord, error) {
	defer metrics.ObserveProviderLatency(ctx, "list_events", time.Now())
	svc, err := g.service(ctx, token)
	if err != nil {
		return nil, normalizeError(err)
	}
	if len(calendarIDs) == 0 {
		calendarIDs = []string{DefaultCalendarID}
	}

	seen := make(map[string]struct{})
	var records []EventRecord
	for _, calID := range calendarIDs {
		items, err := listCalendar(ctx, svc, calID, timeMin, timeMax)
		if err != nil {
			norm := normalizeError(err)
			if IsUnauthorized(norm) {
				return nil, norm
			}
			log.Printf("[WARN] listing calendar %q failed, skipping: %v", calID, err)
			continue
		}
		for _, item := range items {
			rec := fromProviderEvent(item, calID)
			if rec.ID == "" {
				continue
			}
			if _, dup := seen[rec.ID]; dup {
				continue
			}
			seen[rec.ID] = struct{}{}
			records = append(records, rec)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return startInstant(records[i]).Before(startInstant(records[j]))
	})
	return records, nil
}

func listCalendar(ctx context.Context, svc *calendar.Service, calID string, timeMin, timeMax time.Time) ([]*calendar.Event, error) {
	var items []*calendar.Event
	pageToken := ""
	for {
		call := svc.Events.List(calID).
			SingleEvents(true).
			OrderBy("startTime").
			MaxResults(maxResults).
			TimeMin(timeMin.UTC().Format(time.RFC3339)).
			TimeMax(timeMax.UTC().Format(time.RFC3339))
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		items = append(items, resp.Items...)
		if resp.NextPageToken == "" {
			return items, nil
		}
		pageToken = resp.NextPageToken
	}
}

// Create inserts the given events into one calendar, defaulting to primary.
// An event whose start cannot be parsed is logged and skipped rather than
// failing the batch. Returns the provider ids actually created, which may be
// fewer than the input length.
func (g *Gateway) Create(ctx context.Context, token string, events []EventInput, calendarID string) ([]string, error) {
	defer metrics.ObserveProviderLatency(ctx, "create_events", time.Now())
	svc, err := g.service(ctx, token)
	if err != nil {
		return nil, normalizeError(err)
	}
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}

	var ids []string
	for _, ev := range events {
		start, ok := parseInstant(ev.Start)
		if !ok {
			log.Printf("[WARN] skipping event %q: invalid start date %q", ev.Title, ev.Start)
			continue
		}

		body := &calendar.Event{
			Summary:     ev.Title,
			Description: ev.Description,
			Location:    ev.Location,
			Start:       eventTime(start, ev.AllDay),
		}
		if end, ok := parseInstant(ev.End); ok {
			body.End = eventTime(end, ev.AllDay)
		} else {
			// End defaults to start when absent or unparsable.
			body.End = eventTime(start, ev.AllDay)
		}
		if len(ev.Recurrence) > 0 {
			body.Recurrence = ev.Recurrence
		}

		created, err := svc.Events.Insert(calendarID, body).Context(ctx).Do()
		if err != nil {
			return ids, normalizeError(err)
		}
		if created.Id != "" {
			ids = append(ids, created.Id)
		}
	}
	return ids, nil
}

// Update patches a single event on the primary calendar. Only fields present
// in the patch are sent; an explicit empty recurrence list clears recurrence.
func (g *Gateway) Update(ctx context.Context, token, eventID string, patch EventPatch) error {
	defer metrics.ObserveProviderLatency(ctx, "update_event", time.Now())
	svc, err := g.service(ctx, token)
	if err != nil {
		return normalizeError(err)
	}

	body := &calendar.Event{}
	if patch.Title != nil {
		body.Summary = *patch.Title
		if body.Summary == "" {
			body.ForceSendFields = append(body.ForceSendFields, "Summary")
		}
	}
	if patch.Description != nil {
		body.Description = *patch.Description
		if body.Description == "" {
			body.ForceSendFields = append(body.ForceSendFields, "Description")
		}
	}

	allDay := patch.AllDay != nil && *patch.AllDay
	if patch.Start != nil {
		start, ok := parseInstant(*patch.Start)
		if !ok {
			return &ProviderError{Class: ClassUnknown, Message: "invalid start date: " + *patch.Start}
		}
		if patch.AllDay == nil {
			allDay = !strings.Contains(*patch.Start, "T")
		}
		body.Start = eventTime(start, allDay)
		if patch.End == nil {
			body.End = eventTime(start, allDay)
		}
	}
	if patch.End != nil {
		end, ok := parseInstant(*patch.End)
		if !ok {
			return &ProviderError{Class: ClassUnknown, Message: "invalid end date: " + *patch.End}
		}
		body.End = eventTime(end, allDay)
	}
	if patch.Recurrence != nil {
		body.Recurrence = *patch.Recurrence
		if len(body.Recurrence) == 0 {
			body.ForceSendFields = append(body.ForceSendFields, "Recurrence")
		}
	}

	_, err = svc.Events.Patch(DefaultCalendarID, eventID, body).Context(ctx).Do()
	return normalizeError(err)
}

// Delete removes a single event from the primary calendar.
func (g *Gateway) Delete(ctx context.Context, token, eventID string) error {
	defer metrics.ObserveProviderLatency(ctx, "delete_event", time.Now())
	svc, err := g.service(ctx, token)
	if err != nil {
		return normalizeError(err)
	}
	return normalizeError(svc.Events.Delete(DefaultCalendarID, eventID).Context(ctx).Do())
}

// Calendars lists the user's writable calendars.
func (g *Gateway) Calendars(ctx context.Context, token string) ([]CalendarInfo, error) {
	defer metrics.ObserveProviderLatency(ctx, "list_calendars", time.Now())
	svc, err := g.service(ctx, token)
	if err != nil {
		return nil, normalizeError(err)
	}

	resp, err := svc.CalendarList.List().MinAccessRole("writer").Context(ctx).Do()
	if err != nil {
		return nil, normalizeError(err)
	}

	infos := make([]CalendarInfo, 0, len(resp.Items))
	for _, item := range resp.Items {
		summary := item.Summary
		if summary == "" {
			summary = "Unnamed Calendar"
		}
		color := item.BackgroundColor
		if color == "" {
			color = "#4285f4"
		}
		infos = append(infos, CalendarInfo{
			ID:              item.Id,
			Summary:         summary,
			Primary:         item.Primary,
			BackgroundColor: color,
		})
	}
	return infos, nil
}

// parseInstant normalizes a start/end value from upload extraction or the
// UI: bare dates, RFC 3339, or zone-less timestamps.
func parseInstant(value string) (time.Time, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// eventTime renders an instant the way the provider expects: a bare date for
// all-day events, a full timestamp otherwise.
func eventTime(t time.Time, allDay bool) *calendar.EventDateTime {
	if allDay {
		return &calendar.EventDateTime{Date: t.UTC().Format("2006-01-02")}
	}
	return &calendar.EventDateTime{DateTime: t.UTC().Format(time.RFC3339)}
}

func fromProviderEvent(ev *calendar.Event, calendarID string) EventRecord {
	rec := EventRecord{
		ID:          ev.Id,
		Title:       ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Recurrence:  ev.Recurrence,
		CalendarID:  calendarID,
	}
	if ev.Start != nil {
		if ev.Start.DateTime != "" {
			rec.Start = ev.Start.DateTime
		} else {
			rec.Start = ev.Start.Date
			rec.AllDay = true
		}
	}
	if ev.End != nil {
		if ev.End.DateTime != "" {
			rec.End = ev.End.DateTime
		} else {
			rec.End = ev.End.Date
		}
	}
	return rec
}

func startInstant(rec EventRecord) time.Time {
	if t, ok := parseInstant(rec.Start); ok {
		return t
	}
	return time.Time{}
}
