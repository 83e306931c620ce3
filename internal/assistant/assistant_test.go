package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/podline/podline/internal/chat"
)

func completionServer(t *testing.T, reply string, gotReq *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if gotReq != nil {
			if err := json.NewDecoder(r.Body).Decode(gotReq); err != nil {
				t.Errorf("decoding request: %v", err)
			}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": reply}},
			},
		})
	}))
}

func TestCompleteSendsConversation(t *testing.T) {
	var got map[string]any
	srv := completionServer(t, "Episode 42 is the latest.", &got)
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, Model: "gpt-4o-mini"})
	reply, err := client.Complete(context.Background(), []chat.Message{
		chat.NewMessage(chat.RoleUser, "what's the latest episode?"),
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if reply != "Episode 42 is the latest." {
		t.Errorf("unexpected reply %q", reply)
	}

	if got["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v", got["model"])
	}
	messages, _ := got["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected system + user message, got %d", len(messages))
	}
	first, _ := messages[0].(map[string]any)
	if first["role"] != "system" {
		t.Errorf("first message should be the system prompt, got role %v", first["role"])
	}
}

func TestTitleFallsBackOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, Model: "gpt-4o-mini"})
	long := strings.Repeat("a very long question ", 10)
	title := client.Title(context.Background(), long)
	if title == "" {
		t.Fatal("fallback title should never be empty")
	}
	if len(title) > 70 {
		t.Errorf("fallback title too long: %d bytes", len(title))
	}
}

func TestTitleUsesModelReply(t *testing.T) {
	srv := completionServer(t, `"Latest Episode"`, nil)
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, Model: "gpt-4o-mini"})
	if got := client.Title(context.Background(), "what's new?"); got != "Latest Episode" {
		t.Errorf("Title = %q, want quotes stripped", got)
	}
}

func TestFallbackTitleKeepsValidUTF8(t *testing.T) {
	title := fallbackTitle(strings.Repeat("é", 100))
	if !utf8.ValidString(title) {
		t.Errorf("fallback title is not valid UTF-8: %q", title)
	}
	if !strings.HasSuffix(title, "…") {
		t.Errorf("long title should be truncated with an ellipsis: %q", title)
	}
}

type countingCompleter struct {
	calls int
}

func (c *countingCompleter) Complete(ctx context.Context, _ []chat.Message) (string, error) {
	c.calls++
	return "ok", nil
}

func TestRateLimited(t *testing.T) {
	inner := &countingCompleter{}
	limited := NewRateLimited(inner, 2)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := limited.Complete(ctx, nil); err != nil {
			t.Fatalf("call %d should pass the limiter: %v", i, err)
		}
	}

	// Bucket is empty; a bounded context should give up waiting.
	short, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	if _, err := limited.Complete(short, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded while throttled, got %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("inner completer called %d times, want 2", inner.calls)
	}
}

type titlingCompleter struct {
	countingCompleter
}

func (*titlingCompleter) Title(_ context.Context, _ string) string { return "Named By Model" }

func TestRateLimitedTitle(t *testing.T) {
	ctx := context.Background()

	limited := NewRateLimited(&titlingCompleter{}, 2)
	if got := limited.Title(ctx, "first question"); got != "Named By Model" {
		t.Errorf("Title = %q, want the wrapped titler's reply", got)
	}

	// A completer without title support falls back to truncation.
	plain := NewRateLimited(&countingCompleter{}, 2)
	if got := plain.Title(ctx, "first question"); got != "first question" {
		t.Errorf("Title = %q, want the message itself", got)
	}

	// An exhausted bucket with a bounded context also falls back.
	drained := NewRateLimited(&titlingCompleter{}, 2)
	for i := 0; i < 2; i++ {
		if _, err := drained.Complete(ctx, nil); err != nil {
			t.Fatalf("call %d should pass the limiter: %v", i, err)
		}
	}
	short, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	if got := drained.Title(short, "first question"); got != "first question" {
		t.Errorf("throttled Title = %q, want the fallback", got)
	}
}
