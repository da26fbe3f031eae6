package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/viochris/telegram-calendar-ai-bot/internal/gcal"
	"github.com/viochris/telegram-calendar-ai-bot/internal/llm"
)

// Tool names. The model addresses tools by these strings.
const (
	ToolListSchedules = "get_all_schedules"
	ToolFindEventID   = "get_id_of_schedules"
	ToolCreateEvent   = "create_event"
	ToolUpdateEvent   = "update_event"
	ToolDeleteEvent   = "delete_event"
)

// CalendarService is the calendar boundary the tools execute against.
// *gcal.Client satisfies it; tests substitute a scripted fake.
type CalendarService interface {
	ListRange(ctx context.Context, start, end time.Time) ([]gcal.Event, error)
	Search(ctx context.Context, keyword string) ([]gcal.Event, error)
	Create(ctx context.Context, in gcal.EventInput) (string, error)
	Update(ctx context.Context, eventID string, in gcal.EventInput) error
	Delete(ctx context.Context, eventID string) error
	Location() *time.Location
}

// Tool represents a callable tool.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Handler     func(ctx context.Context, cycle *Cycle, args map[string]any) (string, error)
}

// Cycle tracks the event IDs resolved by reads within one agent cycle.
// Mutations may only reference IDs recorded here; anything else is a
// fabricated ID and is rejected before dispatch.
type Cycle struct {
	ids map[string]struct{}
}

// NewCycle starts an empty per-message cycle.
func NewCycle() *Cycle {
	return &Cycle{ids: make(map[string]struct{})}
}

// Resolve records an event ID returned by a read.
func (c *Cycle) Resolve(id string) {
	c.ids[id] = struct{}{}
}

// Resolved reports whether a read in this cycle produced the ID.
func (c *Cycle) Resolved(id string) bool {
	_, ok := c.ids[id]
	return ok
}

// Registry holds the calendar tool set.
type Registry struct {
	tools   map[string]*Tool
	order   []string
	cal     CalendarService
	timeout time.Duration
	logger  *slog.Logger
}

// NewRegistry creates the calendar tool registry. timeout bounds each
// calendar call; zero means 20 seconds.
func NewRegistry(cal CalendarService, timeout time.Duration, logger *slog.Logger) *Registry {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		tools:   make(map[string]*Tool),
		cal:     cal,
		timeout: timeout,
		logger:  logger,
	}
	r.registerBuiltins()
	return r
}

// register adds a tool, preserving registration order for Definitions.
func (r *Registry) register(t *Tool) {
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
}

// Definitions returns the tool catalog in the LLM wire shape.
func (r *Registry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, llm.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	return defs
}

// IsMutation reports whether the named tool changes calendar state.
// Mutations are never auto-retried.
func IsMutation(name string) bool {
	switch name {
	case ToolCreateEvent, ToolUpdateEvent, ToolDeleteEvent:
		return true
	}
	return false
}

// IsRead reports whether the named tool is an idempotent read, safe to
// retry once on a service failure.
func IsRead(name string) bool {
	switch name {
	case ToolListSchedules, ToolFindEventID:
		return true
	}
	return false
}

// Execute dispatches one tool call. Mutation calls referencing an event
// ID that no read in this cycle produced are rejected locally with
// *UnresolvedIDError and never reach the calendar service. Each dispatch
// runs under the registry timeout; a timeout surfaces as an ordinary
// failure, never a retry at this layer.
func (r *Registry) Execute(ctx context.Context, cycle *Cycle, name string, args map[string]any) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return "", &UnknownToolError{ToolName: name}
	}

	if name == ToolUpdateEvent || name == ToolDeleteEvent {
		id, err := stringArg(name, args, "event_id")
		if err != nil {
			return "", err
		}
		if !cycle.Resolved(id) {
			return "", &UnresolvedIDError{ToolName: name, EventID: id}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	result, err := t.Handler(ctx, cycle, args)
	r.logger.Debug("tool executed",
		"tool", name,
		"duration", time.Since(start),
		"error", err,
	)
	return result, err
}

func (r *Registry) registerBuiltins() {
	r.register(&Tool{
		Name: ToolListSchedules,
		Description: "Retrieve all scheduled events and holidays within a date range. " +
			"Both start_date and end_date are required, in YYYY-MM-DD format. " +
			"For a single day's schedule use the same date for both. " +
			"Each returned event includes its EVENT_ID.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"start_date": map[string]any{
					"type":        "string",
					"description": "Range start date in YYYY-MM-DD format",
				},
				"end_date": map[string]any{
					"type":        "string",
					"description": "Range end date in YYYY-MM-DD format",
				},
			},
			"required": []string{"start_date", "end_date"},
		},
		Handler: r.handleListSchedules,
	})

	r.register(&Tool{
		Name: ToolFindEventID,
		Description: "Find the EVENT_ID of an event before updating or deleting it. " +
			"Provide a keyword or the event name (e.g. 'Meeting' or 'Dentist'). " +
			"Returns matching events with their dates, times, and unique EVENT_IDs.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"keyword": map[string]any{
					"type":        "string",
					"description": "Search keyword, usually the event title",
				},
			},
			"required": []string{"keyword"},
		},
		Handler: r.handleFindEventID,
	})

	r.register(&Tool{
		Name: ToolCreateEvent,
		Description: "Create a calendar event. Requires title, start_time, and end_time " +
			"as RFC3339 timestamps (e.g. 2026-09-01T14:00:00+07:00).",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{
					"type":        "string",
					"description": "Event title",
				},
				"start_time": map[string]any{
					"type":        "string",
					"description": "Start timestamp, RFC3339",
				},
				"end_time": map[string]any{
					"type":        "string",
					"description": "End timestamp, RFC3339",
				},
				"description": map[string]any{
					"type":        "string",
					"description": "Optional event description",
				},
				"location": map[string]any{
					"type":        "string",
					"description": "Optional event location",
				},
			},
			"required": []string{"title", "start_time", "end_time"},
		},
		Handler: r.handleCreateEvent,
	})

	r.register(&Tool{
		Name: ToolUpdateEvent,
		Description: "Update an existing event. Requires the EVENT_ID from " +
			"get_id_of_schedules or get_all_schedules, plus the changed fields. " +
			"Pass the updated fields and keep unchanged fields from the lookup.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"event_id": map[string]any{
					"type":        "string",
					"description": "EVENT_ID of the event to update",
				},
				"title":       map[string]any{"type": "string"},
				"start_time":  map[string]any{"type": "string", "description": "New start, RFC3339"},
				"end_time":    map[string]any{"type": "string", "description": "New end, RFC3339"},
				"description": map[string]any{"type": "string"},
				"location":    map[string]any{"type": "string"},
			},
			"required": []string{"event_id"},
		},
		Handler: r.handleUpdateEvent,
	})

	r.register(&Tool{
		Name: ToolDeleteEvent,
		Description: "Delete an event. Requires the EVENT_ID from " +
			"get_id_of_schedules or get_all_schedules.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"event_id": map[string]any{
					"type":        "string",
					"description": "EVENT_ID of the event to delete",
				},
			},
			"required": []string{"event_id"},
		},
		Handler: r.handleDeleteEvent,
	})
}

func (r *Registry) handleListSchedules(ctx context.Context, cycle *Cycle, args map[string]any) (string, error) {
	startDate, err := stringArg(ToolListSchedules, args, "start_date")
	if err != nil {
		return "", err
	}
	endDate, err := stringArg(ToolListSchedules, args, "end_date")
	if err != nil {
		return "", err
	}

	start, end, err := gcal.DayRange(startDate, endDate, r.cal.Location())
	if err != nil {
		return "", &ArgumentError{ToolName: ToolListSchedules, Reason: err.Error()}
	}

	events, err := r.cal.ListRange(ctx, start, end)
	if err != nil {
		return "", err
	}

	if len(events) == 0 {
		return fmt.Sprintf("No events scheduled from %s to %s.", startDate, endDate), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Schedule from %s to %s:\n", startDate, endDate)
	for _, ev := range events {
		cycle.Resolve(ev.ID)
		sb.WriteString(formatEventLine(ev))
	}
	return sb.String(), nil
}

func (r *Registry) handleFindEventID(ctx context.Context, cycle *Cycle, args map[string]any) (string, error) {
	keyword, err := stringArg(ToolFindEventID, args, "keyword")
	if err != nil {
		return "", err
	}

	events, err := r.cal.Search(ctx, keyword)
	if err != nil {
		return "", err
	}

	if len(events) == 0 {
		return fmt.Sprintf("No events found matching the keyword: %q.", keyword), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Matching events found for %q:\n", keyword)
	for _, ev := range events {
		cycle.Resolve(ev.ID)
		sb.WriteString(formatEventLine(ev))
	}
	return sb.String(), nil
}

func (r *Registry) handleCreateEvent(ctx context.Context, cycle *Cycle, args map[string]any) (string, error) {
	title, err := stringArg(ToolCreateEvent, args, "title")
	if err != nil {
		return "", err
	}
	start, err := timeArg(ToolCreateEvent, args, "start_time", r.cal.Location())
	if err != nil {
		return "", err
	}
	end, err := timeArg(ToolCreateEvent, args, "end_time", r.cal.Location())
	if err != nil {
		return "", err
	}
	if !end.After(start) {
		return "", &ArgumentError{ToolName: ToolCreateEvent, Reason: "end_time must be after start_time"}
	}

	id, err := r.cal.Create(ctx, gcal.EventInput{
		Title:       title,
		Start:       start,
		End:         end,
		Description: optionalString(args, "description"),
		Location:    optionalString(args, "location"),
	})
	if err != nil {
		return "", err
	}

	// A freshly created event is addressable for the rest of the cycle
	// (the swap fallback deletes the original right after a create).
	cycle.Resolve(id)
	return fmt.Sprintf("Event %q created. EVENT_ID: %s", title, id), nil
}

func (r *Registry) handleUpdateEvent(ctx context.Context, cycle *Cycle, args map[string]any) (string, error) {
	id, err := stringArg(ToolUpdateEvent, args, "event_id")
	if err != nil {
		return "", err
	}

	in := gcal.EventInput{
		Title:       optionalString(args, "title"),
		Description: optionalString(args, "description"),
		Location:    optionalString(args, "location"),
	}
	if _, ok := args["start_time"]; ok {
		if in.Start, err = timeArg(ToolUpdateEvent, args, "start_time", r.cal.Location()); err != nil {
			return "", err
		}
	}
	if _, ok := args["end_time"]; ok {
		if in.End, err = timeArg(ToolUpdateEvent, args, "end_time", r.cal.Location()); err != nil {
			return "", err
		}
	}
	if in.Title == "" && in.Description == "" && in.Location == "" && in.Start.IsZero() && in.End.IsZero() {
		return "", &ArgumentError{ToolName: ToolUpdateEvent, Reason: "no fields to update"}
	}

	if err := r.cal.Update(ctx, id, in); err != nil {
		return "", err
	}
	return fmt.Sprintf("Event %s updated.", id), nil
}

func (r *Registry) handleDeleteEvent(ctx context.Context, cycle *Cycle, args map[string]any) (string, error) {
	id, err := stringArg(ToolDeleteEvent, args, "event_id")
	if err != nil {
		return "", err
	}

	if err := r.cal.Delete(ctx, id); err != nil {
		return "", err
	}
	return fmt.Sprintf("Event %s deleted.", id), nil
}

// formatEventLine renders one event for the model: date, title, time
// window, and the EVENT_ID needed for mutations.
func formatEventLine(ev gcal.Event) string {
	date := ev.Start
	if len(date) > 10 {
		date = date[:10]
	}

	timeStr := "All-day"
	if !ev.AllDay && len(ev.Start) >= 16 && len(ev.End) >= 16 {
		timeStr = fmt.Sprintf("%s - %s", ev.Start[11:16], ev.End[11:16])
	}

	return fmt.Sprintf("- [%s] %q (%s) | EVENT_ID: %s\n", date, ev.Title, timeStr, ev.ID)
}

func stringArg(tool string, args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", &ArgumentError{ToolName: tool, Reason: fmt.Sprintf("missing required argument %q", key)}
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", &ArgumentError{ToolName: tool, Reason: fmt.Sprintf("argument %q must be a non-empty string", key)}
	}
	return s, nil
}

func optionalString(args map[string]any, key string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// timeArg parses an RFC3339 timestamp. A timestamp without a zone is
// interpreted at the fixed offset, never the host timezone.
func timeArg(tool string, args map[string]any, key string, loc *time.Location) (time.Time, error) {
	s, err := stringArg(tool, args, key)
	if err != nil {
		return time.Time{}, err
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, loc); err == nil {
		return t, nil
	}
	return time.Time{}, &ArgumentError{
		ToolName: tool,
		Reason:   fmt.Sprintf("argument %q must be an RFC3339 timestamp, got %q", key, s),
	}
}
