// Package synccache makes calendar browsing feel synchronous despite
// asynchronous, cancelable provider fetches. A Cache deduplicates in-flight
// requests per view key, supersedes stale fetches, and keeps every visited
// view's events around so navigating back is instant.
package synccache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/syllasync/syllasync/internal/gcal"
	"github.com/syllasync/syllasync/internal/metrics"
)

// Key identifies one logical calendar view: a time window plus the sorted
// set of selected calendars.
type Key struct {
	WindowStart time.Time
	WindowEnd   time.Time
	// Calendars is the comma-joined, sorted calendar id set.
	Calendars string
}

// NewKey builds a view key, normalizing the calendar selection so the same
// selection always produces the same key.
func NewKey(windowStart, windowEnd time.Time, calendarIDs []string) Key {
	ids := make([]string, 0, len(calendarIDs))
	for _, id := range calendarIDs {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	if len(ids) == 0 {
		ids = []string{gcal.DefaultCalendarID}
	}
	sort.Strings(ids)
	return Key{
		WindowStart: windowStart.UTC(),
		WindowEnd:   windowEnd.UTC(),
		Calendars:   strings.Join(ids, ","),
	}
}

// CalendarIDs returns the selection as a slice.
func (k Key) CalendarIDs() []string {
	return strings.Split(k.Calendars, ",")
}

// Entry is one cached view. Entries are only evicted by Invalidate.
type Entry struct {
	Events    []gcal.EventRecord
	FetchedAt time.Time
}

// Fetcher loads the events for one key from the provider.
type Fetcher func(ctx context.Context, key Key) ([]gcal.EventRecord, error)

// flight is one in-progress provider fetch.
type flight struct {
	key    Key
	cancel context.CancelFunc
	ctx    context.Context
	done   chan struct{}

	events []gcal.EventRecord
	err    error
}

// Cache is the per-session view cache. All state is owned by the object
// itself rather than package-level singletons, so its lifecycle follows the
// UI session and tests can drive it with a fake fetcher and clock.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]Entry
	fetch   Fetcher
	clock   func() time.Time

	// displayed is the key the UI is currently showing; only responses for
	// this key may update the visible list.
	displayed    Key
	hasDisplayed bool
	visible      []gcal.EventRecord
	visibleErr   error

	current *flight
}

func New(fetch Fetcher) *Cache {
	return &Cache{
		entries: make(map[Key]Entry),
		fetch:   fetch,
		clock:   time.Now,
	}
}

// SetClock overrides the cache timestamp source. Test hook.
func (c *Cache) SetClock(clock func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock = clock
}

// Fetch resolves the events for a key, making it the displayed key. A cached
// entry is served without any network call unless bypass is set (the
// post-mutation refresh). Requesting a key that is already being fetched
// joins the in-flight request; requesting a different key cancels it — at
// most one provider fetch is in flight at a time.
func (c *Cache) Fetch(ctx context.Context, key Key, bypass bool) ([]gcal.EventRecord, error) {
	c.mu.Lock()
	c.displayed = key
	c.hasDisplayed = true

	if !bypass {
		if entry, ok := c.entries[key]; ok {
			c.visible = entry.Events
			c.visibleErr = nil
			c.mu.Unlock()
			metrics.CountCacheLookup("hit")
			return entry.Events, nil
		}
		if c.current != nil && c.current.key == key {
			f := c.current
			c.mu.Unlock()
			metrics.CountCacheLookup("joined")
			return c.wait(ctx, f)
		}
	}

	if c.current != nil {
		// Supersede the stale fetch; its continuation is ignored.
		c.current.cancel()
	}

	// The flight owns its own context: a caller that goes away must not
	// abort a fetch another caller may join, and the eventual result is
	// still written into the cache.
	fctx, cancel := context.WithCancel(context.Background())
	f := &flight{key: key, cancel: cancel, ctx: fctx, done: make(chan struct{})}
	c.current = f
	c.mu.Unlock()

	if bypass {
		metrics.CountCacheLookup("bypass")
	} else {
		metrics.CountCacheLookup("miss")
	}
	go c.run(f)
	return c.wait(ctx, f)
}

func (c *Cache) run(f *flight) {
	events, err := c.fetch(f.ctx, f.key)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer close(f.done)

	if f.ctx.Err() != nil {
		// Genuinely aborted: no writes, no visible-state changes.
		f.err = context.Canceled
		if c.current == f {
			c.current = nil
		}
		return
	}

	f.events, f.err = events, err
	if err == nil {
		// Always cached, even if the user has navigated elsewhere, so
		// coming back to this view is instant.
		c.entries[f.key] = Entry{Events: events, FetchedAt: c.clock()}
		if c.hasDisplayed && c.displayed == f.key {
			c.visible = events
			c.visibleErr = nil
		}
	} else {
		// Leave no entry behind so a later retry re-fetches.
		if c.hasDisplayed && c.displayed == f.key {
			c.visible = nil
			c.visibleErr = err
		}
	}
	if c.current == f {
		c.current = nil
	}
}

func (c *Cache) wait(ctx context.Context, f *flight) ([]gcal.EventRecord, error) {
	select {
	case <-f.done:
		return f.events, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Visible returns the event list for the displayed key along with any fetch
// error surfaced for it.
func (c *Cache) Visible() ([]gcal.EventRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible, c.visibleErr
}

// Invalidate drops every cached entry. Called after a mutation: a recurring
// event can affect any visible window, so everything is refetched on demand.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]Entry)
}

// Len reports the number of cached views.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
