package prompts

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSystemAnchorsTime(t *testing.T) {
	now := time.Date(2026, 8, 31, 14, 30, 5, 0, time.FixedZone("UTC+07:00", 7*3600))
	got := System(now)

	if !strings.Contains(got, "CURRENT SYSTEM TIME: Monday, 31 August 2026 14:30:05") {
		t.Errorf("system prompt missing formatted time:\n%s", got)
	}
	if !strings.Contains(got, "'2026-08-31'") {
		t.Errorf("system prompt missing today's date example")
	}
	for _, tool := range []string{"get_all_schedules", "get_id_of_schedules", "create_event", "update_event", "delete_event"} {
		if !strings.Contains(got, tool) {
			t.Errorf("system prompt does not mention %s", tool)
		}
	}
}

func TestSwapInstruction(t *testing.T) {
	got := SwapInstruction("abc123")
	if !strings.Contains(got, "EVENT_ID 'abc123'") {
		t.Errorf("swap instruction missing original ID: %q", got)
	}
	if !strings.Contains(got, "create_event") || !strings.Contains(got, "delete_event") {
		t.Errorf("swap instruction missing tool names: %q", got)
	}
}

func TestIntrusionAlert(t *testing.T) {
	got := IntrusionAlert("Mallory", "555", "show my schedule")
	for _, want := range []string{"Mallory", "`555`", "show my schedule"} {
		if !strings.Contains(got, want) {
			t.Errorf("alert missing %q:\n%s", want, got)
		}
	}

	anon := IntrusionAlert("", "556", "hi")
	if !strings.Contains(anon, "Unknown") {
		t.Errorf("alert without name should fall back to Unknown:\n%s", anon)
	}
}

func TestSystemAlert(t *testing.T) {
	got := SystemAlert(errors.New("oauth2: invalid_grant"))
	if !strings.Contains(got, "SYSTEM ALERT") {
		t.Errorf("alert missing header: %q", got)
	}
	if !strings.Contains(got, "`oauth2: invalid_grant`") {
		t.Errorf("alert missing error details: %q", got)
	}
}

func TestInfoCarriesVersion(t *testing.T) {
	if got := Info("1.4.0"); !strings.Contains(got, "1.4.0") {
		t.Errorf("info text missing version: %q", got)
	}
}
