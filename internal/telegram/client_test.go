package telegram

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
}

// fakeBotAPI records request bodies per method and serves canned
// results.
type fakeBotAPI struct {
	t       *testing.T
	results map[string]any
	bodies  map[string][]map[string]any
}

func newFakeBotAPI(t *testing.T) (*fakeBotAPI, *httptest.Server) {
	t.Helper()
	f := &fakeBotAPI{
		t:       t,
		results: make(map[string]any),
		bodies:  make(map[string][]map[string]any),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /bottest-token/{method}", func(w http.ResponseWriter, r *http.Request) {
		method := r.PathValue("method")
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode %s body: %v", method, err)
		}
		f.bodies[method] = append(f.bodies[method], body)

		result, ok := f.results[method]
		if !ok {
			result = true
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	return NewClient("test-token", testLogger(), WithBaseURL(srv.URL))
}

func TestGetUpdates(t *testing.T) {
	fake, srv := newFakeBotAPI(t)
	fake.results["getUpdates"] = []map[string]any{
		{"update_id": 101, "message": map[string]any{
			"message_id": 1,
			"from":       map[string]any{"id": 12345, "first_name": "Silvio"},
			"chat":       map[string]any{"id": 12345},
			"text":       "hello",
		}},
	}
	c := newTestClient(t, srv)

	updates, err := c.GetUpdates(context.Background(), 99, 30)
	if err != nil {
		t.Fatalf("GetUpdates: %v", err)
	}
	if len(updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(updates))
	}
	u := updates[0]
	if u.UpdateID != 101 || u.Message.Text != "hello" || u.Message.From.ID != 12345 {
		t.Errorf("update = %+v", u)
	}

	body := fake.bodies["getUpdates"][0]
	if body["offset"] != float64(99) || body["timeout"] != float64(30) {
		t.Errorf("poll body = %v", body)
	}
}

func TestSendMessageMarkdown(t *testing.T) {
	fake, srv := newFakeBotAPI(t)
	c := newTestClient(t, srv)

	if err := c.SendMessage(context.Background(), 12345, "*hi*"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	body := fake.bodies["sendMessage"][0]
	if body["chat_id"] != float64(12345) || body["text"] != "*hi*" || body["parse_mode"] != "Markdown" {
		t.Errorf("send body = %v", body)
	}
}

func TestSendMessageChunksLongText(t *testing.T) {
	fake, srv := newFakeBotAPI(t)
	c := newTestClient(t, srv)

	para := strings.Repeat("x", 1500)
	long := strings.Join([]string{para, para, para, para}, "\n\n")
	if err := c.SendMessage(context.Background(), 12345, long); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	sends := fake.bodies["sendMessage"]
	if len(sends) < 2 {
		t.Fatalf("long message sent in %d chunks, want several", len(sends))
	}
	for i, body := range sends {
		if n := len(body["text"].(string)); n > MaxMessageLength {
			t.Errorf("chunk %d length %d exceeds limit", i, n)
		}
	}
}

func TestAPIErrorSurfaced(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"ok": false, "error_code": 401, "description": "Unauthorized",
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	c := newTestClient(t, srv)

	err := c.SendChatAction(context.Background(), 12345, "typing")
	if err == nil || !strings.Contains(err.Error(), "Unauthorized") {
		t.Errorf("err = %v, want api error with description", err)
	}
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		max    int
		chunks int
	}{
		{"short", "hello", 100, 1},
		{"exactly max", strings.Repeat("a", 100), 100, 1},
		{"two paragraphs over max", strings.Repeat("a", 80) + "\n\n" + strings.Repeat("b", 80), 100, 2},
		{"single oversized paragraph", strings.Repeat("a", 250), 100, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := SplitMessage(tt.text, tt.max)
			if len(chunks) != tt.chunks {
				t.Fatalf("chunks = %d, want %d", len(chunks), tt.chunks)
			}
			var total int
			for i, c := range chunks {
				if len(c) > tt.max {
					t.Errorf("chunk %d length %d exceeds max", i, len(c))
				}
				total += len(strings.TrimSpace(c))
			}
			if stripped := len(strings.ReplaceAll(strings.ReplaceAll(tt.text, "\n", ""), " ", "")); total < stripped-len(chunks)*2 {
				t.Errorf("content lost in split: total %d of %d", total, stripped)
			}
		})
	}
}

func TestSplitMessageKeepsRunesIntact(t *testing.T) {
	// 4-byte runes with a max that lands mid-character force the cut
	// back to the nearest boundary.
	text := strings.Repeat("📅", 30)
	chunks := SplitMessage(text, 50)
	if len(chunks) < 2 {
		t.Fatalf("chunks = %d, want a forced split", len(chunks))
	}
	var rejoined strings.Builder
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Errorf("chunk %d is not valid UTF-8: %q", i, c)
		}
		if len(c) > 50 {
			t.Errorf("chunk %d length %d exceeds max", i, len(c))
		}
		rejoined.WriteString(strings.TrimRight(c, "\n"))
	}
	if rejoined.String() != text {
		t.Errorf("split lost content: %q", rejoined.String())
	}
}
