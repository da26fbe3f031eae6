package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/viochris/telegram-calendar-ai-bot/internal/gcal"
)

type fakeCalendar struct {
	events    []gcal.Event
	listErr   error
	searchErr error

	created   []gcal.EventInput
	createID  string
	createErr error

	updated   map[string]gcal.EventInput
	updateErr error

	deleted   []string
	deleteErr error

	loc *time.Location
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{
		createID: "new-event-id",
		updated:  make(map[string]gcal.EventInput),
		loc:      gcal.FixedOffset(7),
	}
}

func (f *fakeCalendar) ListRange(ctx context.Context, start, end time.Time) ([]gcal.Event, error) {
	return f.events, f.listErr
}

func (f *fakeCalendar) Search(ctx context.Context, keyword string) ([]gcal.Event, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var out []gcal.Event
	for _, ev := range f.events {
		if strings.Contains(ev.Title, keyword) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeCalendar) Create(ctx context.Context, in gcal.EventInput) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, in)
	return f.createID, nil
}

func (f *fakeCalendar) Update(ctx context.Context, eventID string, in gcal.EventInput) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated[eventID] = in
	return nil
}

func (f *fakeCalendar) Delete(ctx context.Context, eventID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, eventID)
	return nil
}

func (f *fakeCalendar) Location() *time.Location { return f.loc }

func newTestRegistry(t *testing.T, cal CalendarService) *Registry {
	t.Helper()
	return NewRegistry(cal, time.Second, slog.New(slog.NewTextHandler(&strings.Builder{}, nil)))
}

func TestDefinitionsCatalog(t *testing.T) {
	r := newTestRegistry(t, newFakeCalendar())
	defs := r.Definitions()
	if len(defs) != 5 {
		t.Fatalf("Definitions() returned %d tools, want 5", len(defs))
	}
	want := []string{ToolListSchedules, ToolFindEventID, ToolCreateEvent, ToolUpdateEvent, ToolDeleteEvent}
	for i, name := range want {
		if defs[i].Name != name {
			t.Errorf("defs[%d].Name = %q, want %q", i, defs[i].Name, name)
		}
		if defs[i].Parameters == nil {
			t.Errorf("defs[%d] (%s) has nil parameters", i, name)
		}
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	r := newTestRegistry(t, newFakeCalendar())
	_, err := r.Execute(context.Background(), NewCycle(), "teleport_user", nil)
	var unknown *UnknownToolError
	if !errors.As(err, &unknown) {
		t.Fatalf("error = %v, want *UnknownToolError", err)
	}
	if unknown.ToolName != "teleport_user" {
		t.Errorf("ToolName = %q, want %q", unknown.ToolName, "teleport_user")
	}
}

func TestListSchedules(t *testing.T) {
	cal := newFakeCalendar()
	cal.events = []gcal.Event{
		{ID: "ev-1", Title: "Standup", Start: "2026-09-01T09:00:00+07:00", End: "2026-09-01T09:15:00+07:00"},
		{ID: "ev-2", Title: "Independence Day", Start: "2026-09-01", End: "2026-09-02", AllDay: true},
	}
	r := newTestRegistry(t, cal)
	cycle := NewCycle()

	out, err := r.Execute(context.Background(), cycle, ToolListSchedules, map[string]any{
		"start_date": "2026-09-01",
		"end_date":   "2026-09-01",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, `- [2026-09-01] "Standup" (09:00 - 09:15) | EVENT_ID: ev-1`) {
		t.Errorf("timed event line missing or malformed:\n%s", out)
	}
	if !strings.Contains(out, `- [2026-09-01] "Independence Day" (All-day) | EVENT_ID: ev-2`) {
		t.Errorf("all-day event line missing or malformed:\n%s", out)
	}
	for _, id := range []string{"ev-1", "ev-2"} {
		if !cycle.Resolved(id) {
			t.Errorf("cycle did not resolve %s after list", id)
		}
	}
}

func TestListSchedulesEmpty(t *testing.T) {
	r := newTestRegistry(t, newFakeCalendar())
	out, err := r.Execute(context.Background(), NewCycle(), ToolListSchedules, map[string]any{
		"start_date": "2026-09-01",
		"end_date":   "2026-09-07",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "No events scheduled") {
		t.Errorf("empty range output = %q", out)
	}
}

func TestListSchedulesBadDate(t *testing.T) {
	r := newTestRegistry(t, newFakeCalendar())
	_, err := r.Execute(context.Background(), NewCycle(), ToolListSchedules, map[string]any{
		"start_date": "tomorrow",
		"end_date":   "2026-09-01",
	})
	var argErr *ArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("error = %v, want *ArgumentError", err)
	}
	if !IsValidation(err) {
		t.Error("IsValidation(ArgumentError) = false, want true")
	}
}

func TestFindEventID(t *testing.T) {
	cal := newFakeCalendar()
	cal.events = []gcal.Event{
		{ID: "ev-7", Title: "Dentist Appointment", Start: "2026-09-03T10:00:00+07:00", End: "2026-09-03T11:00:00+07:00"},
		{ID: "ev-8", Title: "Team Lunch", Start: "2026-09-03T12:00:00+07:00", End: "2026-09-03T13:00:00+07:00"},
	}
	r := newTestRegistry(t, cal)
	cycle := NewCycle()

	out, err := r.Execute(context.Background(), cycle, ToolFindEventID, map[string]any{"keyword": "Dentist"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "EVENT_ID: ev-7") {
		t.Errorf("match missing from output:\n%s", out)
	}
	if strings.Contains(out, "ev-8") {
		t.Errorf("non-matching event leaked into output:\n%s", out)
	}
	if !cycle.Resolved("ev-7") {
		t.Error("cycle did not resolve ev-7 after search")
	}
	if cycle.Resolved("ev-8") {
		t.Error("cycle resolved ev-8 which was never returned")
	}
}

func TestFindEventIDNoMatch(t *testing.T) {
	r := newTestRegistry(t, newFakeCalendar())
	out, err := r.Execute(context.Background(), NewCycle(), ToolFindEventID, map[string]any{"keyword": "Nonexistent"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "No events found") {
		t.Errorf("no-match output = %q", out)
	}
}

func TestCreateEvent(t *testing.T) {
	cal := newFakeCalendar()
	r := newTestRegistry(t, cal)
	cycle := NewCycle()

	out, err := r.Execute(context.Background(), cycle, ToolCreateEvent, map[string]any{
		"title":      "Design Review",
		"start_time": "2026-09-01T14:00:00+07:00",
		"end_time":   "2026-09-01T15:00:00+07:00",
		"location":   "Room 3",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(cal.created) != 1 {
		t.Fatalf("created %d events, want 1", len(cal.created))
	}
	in := cal.created[0]
	if in.Title != "Design Review" || in.Location != "Room 3" {
		t.Errorf("created input = %+v", in)
	}
	if got := in.Start.Format(time.RFC3339); got != "2026-09-01T14:00:00+07:00" {
		t.Errorf("start = %s", got)
	}
	if !strings.Contains(out, "new-event-id") {
		t.Errorf("output does not expose the new EVENT_ID: %q", out)
	}
	if !cycle.Resolved("new-event-id") {
		t.Error("created ID not resolved in cycle")
	}
}

func TestCreateEventZonelessTime(t *testing.T) {
	cal := newFakeCalendar()
	r := newTestRegistry(t, cal)

	_, err := r.Execute(context.Background(), NewCycle(), ToolCreateEvent, map[string]any{
		"title":      "Morning Run",
		"start_time": "2026-09-02T06:00:00",
		"end_time":   "2026-09-02T07:00:00",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := cal.created[0].Start.Format(time.RFC3339); got != "2026-09-02T06:00:00+07:00" {
		t.Errorf("zoneless start interpreted as %s, want +07:00", got)
	}
}

func TestCreateEventEndBeforeStart(t *testing.T) {
	r := newTestRegistry(t, newFakeCalendar())
	_, err := r.Execute(context.Background(), NewCycle(), ToolCreateEvent, map[string]any{
		"title":      "Backwards",
		"start_time": "2026-09-01T15:00:00+07:00",
		"end_time":   "2026-09-01T14:00:00+07:00",
	})
	var argErr *ArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("error = %v, want *ArgumentError", err)
	}
}

func TestUpdateRequiresResolvedID(t *testing.T) {
	cal := newFakeCalendar()
	r := newTestRegistry(t, cal)

	_, err := r.Execute(context.Background(), NewCycle(), ToolUpdateEvent, map[string]any{
		"event_id": "fabricated-id",
		"title":    "Renamed",
	})
	var unresolved *UnresolvedIDError
	if !errors.As(err, &unresolved) {
		t.Fatalf("error = %v, want *UnresolvedIDError", err)
	}
	if unresolved.EventID != "fabricated-id" {
		t.Errorf("EventID = %q", unresolved.EventID)
	}
	if len(cal.updated) != 0 {
		t.Error("update with unresolved ID reached the calendar service")
	}
	if !IsValidation(err) {
		t.Error("IsValidation(UnresolvedIDError) = false, want true")
	}
}

func TestUpdateResolvedID(t *testing.T) {
	cal := newFakeCalendar()
	cal.events = []gcal.Event{
		{ID: "ev-9", Title: "Sync", Start: "2026-09-04T10:00:00+07:00", End: "2026-09-04T10:30:00+07:00"},
	}
	r := newTestRegistry(t, cal)
	cycle := NewCycle()

	if _, err := r.Execute(context.Background(), cycle, ToolFindEventID, map[string]any{"keyword": "Sync"}); err != nil {
		t.Fatalf("search: %v", err)
	}
	out, err := r.Execute(context.Background(), cycle, ToolUpdateEvent, map[string]any{
		"event_id":   "ev-9",
		"start_time": "2026-09-04T11:00:00+07:00",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	in, ok := cal.updated["ev-9"]
	if !ok {
		t.Fatal("update never reached the calendar service")
	}
	if in.Title != "" {
		t.Errorf("unchanged title was sent: %q", in.Title)
	}
	if got := in.Start.Format(time.RFC3339); got != "2026-09-04T11:00:00+07:00" {
		t.Errorf("start = %s", got)
	}
	if !strings.Contains(out, "ev-9") {
		t.Errorf("output = %q", out)
	}
}

func TestUpdateNoFields(t *testing.T) {
	cal := newFakeCalendar()
	r := newTestRegistry(t, cal)
	cycle := NewCycle()
	cycle.Resolve("ev-9")

	_, err := r.Execute(context.Background(), cycle, ToolUpdateEvent, map[string]any{"event_id": "ev-9"})
	var argErr *ArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("error = %v, want *ArgumentError", err)
	}
}

func TestDeleteRequiresResolvedID(t *testing.T) {
	cal := newFakeCalendar()
	r := newTestRegistry(t, cal)

	_, err := r.Execute(context.Background(), NewCycle(), ToolDeleteEvent, map[string]any{"event_id": "guess"})
	var unresolved *UnresolvedIDError
	if !errors.As(err, &unresolved) {
		t.Fatalf("error = %v, want *UnresolvedIDError", err)
	}
	if len(cal.deleted) != 0 {
		t.Error("delete with unresolved ID reached the calendar service")
	}
}

func TestDeleteResolvedID(t *testing.T) {
	cal := newFakeCalendar()
	r := newTestRegistry(t, cal)
	cycle := NewCycle()
	cycle.Resolve("ev-3")

	out, err := r.Execute(context.Background(), cycle, ToolDeleteEvent, map[string]any{"event_id": "ev-3"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(cal.deleted) != 1 || cal.deleted[0] != "ev-3" {
		t.Errorf("deleted = %v", cal.deleted)
	}
	if !strings.Contains(out, "deleted") {
		t.Errorf("output = %q", out)
	}
}

func TestCreatedIDUsableForDelete(t *testing.T) {
	cal := newFakeCalendar()
	r := newTestRegistry(t, cal)
	cycle := NewCycle()
	cycle.Resolve("original-id")

	if _, err := r.Execute(context.Background(), cycle, ToolCreateEvent, map[string]any{
		"title":      "Replacement",
		"start_time": "2026-09-05T09:00:00+07:00",
		"end_time":   "2026-09-05T10:00:00+07:00",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := r.Execute(context.Background(), cycle, ToolDeleteEvent, map[string]any{
		"event_id": "original-id",
	}); err != nil {
		t.Fatalf("delete of original: %v", err)
	}
	if len(cal.deleted) != 1 || cal.deleted[0] != "original-id" {
		t.Errorf("deleted = %v", cal.deleted)
	}
}

func TestServiceFailurePassesThrough(t *testing.T) {
	cal := newFakeCalendar()
	cal.listErr = fmt.Errorf("googleapi: Error 503: backend unavailable")
	r := newTestRegistry(t, cal)

	_, err := r.Execute(context.Background(), NewCycle(), ToolListSchedules, map[string]any{
		"start_date": "2026-09-01",
		"end_date":   "2026-09-01",
	})
	if err == nil {
		t.Fatal("expected service error")
	}
	if IsValidation(err) {
		t.Error("service failure classified as validation error")
	}
}

func TestMissingRequiredArgument(t *testing.T) {
	r := newTestRegistry(t, newFakeCalendar())
	_, err := r.Execute(context.Background(), NewCycle(), ToolFindEventID, map[string]any{})
	var argErr *ArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("error = %v, want *ArgumentError", err)
	}
}

func TestMutationReadClassification(t *testing.T) {
	for _, name := range []string{ToolCreateEvent, ToolUpdateEvent, ToolDeleteEvent} {
		if !IsMutation(name) || IsRead(name) {
			t.Errorf("%s misclassified", name)
		}
	}
	for _, name := range []string{ToolListSchedules, ToolFindEventID} {
		if IsMutation(name) || !IsRead(name) {
			t.Errorf("%s misclassified", name)
		}
	}
}
