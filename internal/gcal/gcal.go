// Package gcal wraps the Google Calendar API v3 for the calendar tool set.
//
// Every operation is a single synchronous request/response against the
// calendar service. No retries happen here; retry and fallback policy
// belongs to the agent loop.
package gcal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	// maxRangeResults bounds a range listing per calendar.
	maxRangeResults = 50

	// maxSearchResults bounds a free-text search; keeps tool output small
	// enough for the model context.
	maxSearchResults = 10
)

// Event is the lightweight projection handed to the agent: enough to
// display a schedule and to address a mutation, nothing more.
type Event struct {
	ID     string
	Title  string
	Start  string // RFC3339 for timed events, YYYY-MM-DD for all-day
	End    string
	AllDay bool
}

// EventInput carries the fields for a create or update. Zero-valued
// fields are omitted from updates.
type EventInput struct {
	Title       string
	Start       time.Time
	End         time.Time
	Description string
	Location    string
}

// Client is a thin wrapper over the Calendar service bound to one primary
// calendar and an optional read-only holiday calendar.
type Client struct {
	svc        *calendar.Service
	calendarID string
	holidayID  string
	loc        *time.Location
	logger     *slog.Logger
}

// Options configure a Client.
type Options struct {
	// CalendarID is the mutable target calendar (default "primary").
	CalendarID string
	// HolidayCalendarID is merged into range listings when set.
	HolidayCalendarID string
	// Location anchors relative-date boundaries. Defaults to UTC+07:00.
	Location *time.Location
	Logger   *slog.Logger
}

// NewClient builds a Client from OAuth credential files on disk. See
// LoadHTTPClient for the credential handling.
func NewClient(ctx context.Context, credentialsFile, tokenFile string, opts Options) (*Client, error) {
	httpClient, err := LoadHTTPClient(ctx, credentialsFile, tokenFile)
	if err != nil {
		return nil, err
	}

	svc, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	return NewClientFromService(svc, opts), nil
}

// NewClientFromService wraps an existing calendar service. Used by tests
// to point the client at a fake server.
func NewClientFromService(svc *calendar.Service, opts Options) *Client {
	if opts.CalendarID == "" {
		opts.CalendarID = "primary"
	}
	if opts.Location == nil {
		opts.Location = FixedOffset(7)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		svc:        svc,
		calendarID: opts.CalendarID,
		holidayID:  opts.HolidayCalendarID,
		loc:        opts.Location,
		logger:     opts.Logger,
	}
}

// Location returns the fixed offset used for relative-date resolution.
func (c *Client) Location() *time.Location {
	return c.loc
}

// ListRange returns events between start and end from the primary
// calendar plus the holiday calendar, ordered by start time. An
// inaccessible holiday calendar is skipped rather than failing the whole
// listing.
func (c *Client) ListRange(ctx context.Context, start, end time.Time) ([]Event, error) {
	calendars := []string{c.calendarID}
	if c.holidayID != "" {
		calendars = append(calendars, c.holidayID)
	}

	var events []Event
	for i, calID := range calendars {
		result, err := c.svc.Events.List(calID).
			TimeMin(start.Format(time.RFC3339)).
			TimeMax(end.Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime").
			MaxResults(maxRangeResults).
			Context(ctx).Do()
		if err != nil {
			if i == 0 {
				return nil, fmt.Errorf("list events: %w", err)
			}
			c.logger.Debug("skipping inaccessible calendar",
				"calendar", calID,
				"error", err,
			)
			continue
		}
		for _, item := range result.Items {
			events = append(events, project(item))
		}
	}

	return events, nil
}

// Search runs a free-text query against the primary calendar and returns
// the matches ordered by start time. This backs the event-ID resolver the
// agent must use before any mutation.
func (c *Client) Search(ctx context.Context, keyword string) ([]Event, error) {
	result, err := c.svc.Events.List(c.calendarID).
		Q(keyword).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(maxSearchResults).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}

	events := make([]Event, 0, len(result.Items))
	for _, item := range result.Items {
		events = append(events, project(item))
	}
	return events, nil
}

// Create inserts a new event and returns the service-assigned event ID.
func (c *Client) Create(ctx context.Context, in EventInput) (string, error) {
	ev := &calendar.Event{
		Summary:     in.Title,
		Description: in.Description,
		Location:    in.Location,
		Start:       &calendar.EventDateTime{DateTime: in.Start.In(c.loc).Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: in.End.In(c.loc).Format(time.RFC3339)},
	}

	created, err := c.svc.Events.Insert(c.calendarID, ev).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create event: %w", err)
	}
	return created.Id, nil
}

// Update patches the changed fields of an existing event. The service
// can reject this for reasons opaque to us (stale ID, malformed
// recurrence); the caller decides what to do about it.
func (c *Client) Update(ctx context.Context, eventID string, in EventInput) error {
	patch := &calendar.Event{}
	if in.Title != "" {
		patch.Summary = in.Title
	}
	if in.Description != "" {
		patch.Description = in.Description
	}
	if in.Location != "" {
		patch.Location = in.Location
	}
	if !in.Start.IsZero() {
		patch.Start = &calendar.EventDateTime{DateTime: in.Start.In(c.loc).Format(time.RFC3339)}
	}
	if !in.End.IsZero() {
		patch.End = &calendar.EventDateTime{DateTime: in.End.In(c.loc).Format(time.RFC3339)}
	}

	if _, err := c.svc.Events.Patch(c.calendarID, eventID, patch).Context(ctx).Do(); err != nil {
		return fmt.Errorf("update event %s: %w", eventID, err)
	}
	return nil
}

// Delete removes an event by ID.
func (c *Client) Delete(ctx context.Context, eventID string) error {
	if err := c.svc.Events.Delete(c.calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete event %s: %w", eventID, err)
	}
	return nil
}

// project reduces a service event to the agent-facing shape.
func project(item *calendar.Event) Event {
	ev := Event{
		ID:    item.Id,
		Title: item.Summary,
	}
	if ev.Title == "" {
		ev.Title = "Untitled Event"
	}

	if item.Start != nil {
		if item.Start.DateTime != "" {
			ev.Start = item.Start.DateTime
		} else {
			ev.Start = item.Start.Date
			ev.AllDay = true
		}
	}
	if item.End != nil {
		if item.End.DateTime != "" {
			ev.End = item.End.DateTime
		} else {
			ev.End = item.End.Date
		}
	}
	return ev
}

// FixedOffset returns the fixed UTC offset location used for all
// relative-date resolution. The offset is deliberately not the host
// timezone: the original deployment resolves every "today"/"tomorrow"
// at UTC+07:00, and changing that silently would change observable
// results.
func FixedOffset(hours int) *time.Location {
	name := fmt.Sprintf("UTC+%02d:00", hours)
	if hours < 0 {
		name = fmt.Sprintf("UTC-%02d:00", -hours)
	}
	return time.FixedZone(name, hours*3600)
}

// DayRange converts YYYY-MM-DD bounds into the inclusive day window
// [start 00:00:00, end 23:59:59] at the given fixed offset.
func DayRange(startDate, endDate string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01-02", startDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date %q: want YYYY-MM-DD", startDate)
	}
	end, err := time.ParseInLocation("2006-01-02", endDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date %q: want YYYY-MM-DD", endDate)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end_date %s is before start_date %s", endDate, startDate)
	}
	return start, end.Add(24*time.Hour - time.Second), nil
}
