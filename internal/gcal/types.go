package gcal

// EventRecord is the normalized calendar event exposed to the UI layer. The
// provider owns the record; an empty ID marks a pending create. Start and End
// are either a bare date (all-day) or an RFC 3339 timestamp.
type EventRecord struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Start       string   `json:"start"`
	End         string   `json:"end,omitempty"`
	AllDay      bool     `json:"allDay"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	Recurrence  []string `json:"recurrence,omitempty"`
	CalendarID  string   `json:"calendarId"`
}

// EventInput is a candidate event to create, as produced by the syllabus
// extraction collaborators.
type EventInput struct {
	Title       string   `json:"title"`
	Start       string   `json:"start"`
	End         string   `json:"end,omitempty"`
	AllDay      bool     `json:"allDay"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	Recurrence  []string `json:"recurrence,omitempty"`
}

// EventPatch is a partial update. Only non-nil fields are sent to the
// provider; a non-nil empty Recurrence clears recurrence.
type EventPatch struct {
	Title       *string   `json:"title,omitempty"`
	Start       *string   `json:"start,omitempty"`
	End         *string   `json:"end,omitempty"`
	AllDay      *bool     `json:"allDay,omitempty"`
	Description *string   `json:"description,omitempty"`
	Recurrence  *[]string `json:"recurrence,omitempty"`
}

// CalendarInfo describes one of the user's writable calendars.
type CalendarInfo struct {
	ID              string `json:"id"`
	Summary         string `json:"summary"`
	Primary         bool   `json:"primary"`
	BackgroundColor string `json:"backgroundColor"`
}
