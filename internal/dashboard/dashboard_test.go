package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/podline/podline/internal/api"
	"github.com/podline/podline/internal/assistant"
	"github.com/podline/podline/internal/chat"
	"github.com/podline/podline/internal/db"
)

// fakeBackend serves enveloped responses for the endpoints the dashboard
// proxies.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	envelope := func(data any) map[string]any {
		return map[string]any{"success": true, "data": data}
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(envelope(map[string]any{"status": "ok", "version": "1.2.3"}))
	})
	mux.HandleFunc("/api/cache/stats", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(envelope(map[string]any{"entries": 7, "hit_rate": 0.9}))
	})
	mux.HandleFunc("/api/episodes", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(envelope([]map[string]any{
			{"id": "ep-1", "title": "Pilot", "published_at": "2026-01-01T00:00:00Z"},
		}))
	})
	return httptest.NewServer(mux)
}

type echoCompleter struct{}

func (echoCompleter) Complete(_ context.Context, messages []chat.Message) (string, error) {
	return "echo: " + messages[len(messages)-1].Content, nil
}

// titlingCompleter echoes like echoCompleter but also names sessions.
type titlingCompleter struct {
	echoCompleter
}

func (titlingCompleter) Title(_ context.Context, _ string) string { return "Generated Title" }

func setupTest(t *testing.T, withAssistant bool) (*Dashboard, *chat.Store) {
	var completer assistant.Completer
	if withAssistant {
		completer = echoCompleter{}
	}
	return setupWith(t, completer)
}

func setupWith(t *testing.T, completer assistant.Completer) (*Dashboard, *chat.Store) {
	t.Helper()

	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	backend := fakeBackend(t)
	t.Cleanup(backend.Close)
	client := api.New(api.Config{BaseURL: backend.URL, Timeout: 2 * time.Second, RetryAttempts: 1})

	store := chat.NewStore(chat.NewLocalStore(database), nil, "anonymous")
	return New(Config{}, client, store, completer), store
}

func TestServeIndex(t *testing.T) {
	d, _ := setupTest(t, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	d.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("expected text/html content type, got %q", ct)
	}
	if !strings.Contains(w.Body.String(), "Podline Dashboard") {
		t.Error("expected HTML to contain 'Podline Dashboard'")
	}
}

func TestStatsEndpoint(t *testing.T) {
	d, store := setupTest(t, false)

	store.Append(chat.RoleUser, "hello")
	if err := store.PersistCurrent(context.Background()); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	w := httptest.NewRecorder()
	d.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var stats statsResponse
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("decoding stats: %v", err)
	}
	if stats.Backend.Status != "ok" {
		t.Errorf("backend status = %q", stats.Backend.Status)
	}
	if stats.Cache.Entries != 7 {
		t.Errorf("cache entries = %d", stats.Cache.Entries)
	}
	if stats.Sessions != 1 {
		t.Errorf("sessions = %d, want 1", stats.Sessions)
	}
}

func TestEpisodesEndpoint(t *testing.T) {
	d, _ := setupTest(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/episodes", nil)
	w := httptest.NewRecorder()
	d.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var episodes []api.Episode
	if err := json.NewDecoder(w.Body).Decode(&episodes); err != nil {
		t.Fatalf("decoding episodes: %v", err)
	}
	if len(episodes) != 1 || episodes[0].ID != "ep-1" {
		t.Errorf("unexpected episodes: %+v", episodes)
	}
}

func TestSessionEndpoints(t *testing.T) {
	d, store := setupTest(t, false)
	ctx := context.Background()

	store.Append(chat.RoleUser, "persisted question")
	id := store.CurrentID()
	if err := store.PersistCurrent(ctx); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	w := httptest.NewRecorder()
	d.Router().ServeHTTP(w, req)
	var summaries []sessionSummary
	if err := json.NewDecoder(w.Body).Decode(&summaries); err != nil {
		t.Fatalf("decoding sessions: %v", err)
	}
	if len(summaries) != 1 || summaries[0].ID != id {
		t.Fatalf("unexpected session list: %+v", summaries)
	}
	if summaries[0].MessageCount != 1 {
		t.Errorf("message_count = %d, want 1", summaries[0].MessageCount)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/sessions/"+id, nil)
	w = httptest.NewRecorder()
	d.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/sessions/unknown", nil)
	w = httptest.NewRecorder()
	d.Router().ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown session, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/sessions/"+id, nil)
	w = httptest.NewRecorder()
	d.Router().ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if sessions := store.List(ctx); len(sessions) != 0 {
		t.Errorf("session not deleted: %+v", sessions)
	}
}

func dialChat(t *testing.T, d *Dashboard) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(d.Router())
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/chat"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}
	return conn
}

func TestWebSocketChat(t *testing.T) {
	d, store := setupTest(t, true)
	conn := dialChat(t, d)

	if err := conn.WriteJSON(chatRequest{Type: "message", Content: "Hello"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var resp chatResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}

	if resp.Type != "response" {
		t.Fatalf("expected response, got %q: %s", resp.Type, resp.Content)
	}
	if resp.SessionID == "" {
		t.Error("response should carry the assigned session id")
	}
	if resp.Content != "echo: Hello" {
		t.Errorf("unexpected reply %q", resp.Content)
	}

	// The exchange is persisted as one session with both messages.
	sessions := store.List(context.Background())
	if len(sessions) != 1 || len(sessions[0].Messages) != 2 {
		t.Errorf("expected one session with 2 messages, got %+v", sessions)
	}
}

func TestWebSocketChatTitlesNewSession(t *testing.T) {
	d, store := setupWith(t, titlingCompleter{})
	conn := dialChat(t, d)

	if err := conn.WriteJSON(chatRequest{Type: "message", Content: "what's the newest episode?"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var resp chatResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}

	// The persisted session carries the generated title, not the
	// truncated first message.
	sessions := store.List(context.Background())
	if len(sessions) != 1 {
		t.Fatalf("expected one persisted session, got %d", len(sessions))
	}
	if sessions[0].Title != "Generated Title" {
		t.Errorf("title = %q, want the generated one", sessions[0].Title)
	}

	// A follow-up in the same session keeps the title.
	if err := conn.WriteJSON(chatRequest{Type: "message", SessionID: resp.SessionID, Content: "and before that?"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := store.Current().Title; got != "Generated Title" {
		t.Errorf("follow-up changed the title to %q", got)
	}
}

func TestWebSocketNilAssistant(t *testing.T) {
	d, _ := setupTest(t, false)
	conn := dialChat(t, d)

	if err := conn.WriteJSON(chatRequest{Type: "message", Content: "hello"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var resp chatResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}

	if resp.Type != "error" {
		t.Errorf("expected error type, got %q", resp.Type)
	}
	if !strings.Contains(resp.Content, "assistant not configured") {
		t.Errorf("expected assistant error, got %q", resp.Content)
	}
}

func TestWebSocketEmptyContent(t *testing.T) {
	d, _ := setupTest(t, true)
	conn := dialChat(t, d)

	if err := conn.WriteJSON(chatRequest{Type: "message", Content: ""}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var resp chatResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}

	if resp.Type != "error" || !strings.Contains(resp.Content, "content is required") {
		t.Errorf("expected content error, got %q %q", resp.Type, resp.Content)
	}
}

func TestWebSocketUnknownType(t *testing.T) {
	d, _ := setupTest(t, true)
	conn := dialChat(t, d)

	if err := conn.WriteJSON(chatRequest{Type: "unknown", Content: "hello"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var resp chatResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}

	if resp.Type != "error" || !strings.Contains(resp.Content, "unknown message type") {
		t.Errorf("expected unknown type error, got %q %q", resp.Type, resp.Content)
	}
}

func TestWebSocketRegenerate(t *testing.T) {
	d, store := setupTest(t, true)
	conn := dialChat(t, d)

	if err := conn.WriteJSON(chatRequest{Type: "message", Content: "question"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var resp chatResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}

	if err := conn.WriteJSON(chatRequest{Type: "regenerate", SessionID: resp.SessionID}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}

	if resp.Type != "response" {
		t.Fatalf("expected response, got %q: %s", resp.Type, resp.Content)
	}
	msgs := store.Current().Messages
	if len(msgs) != 2 {
		t.Errorf("regenerate must replace, not append: %d messages", len(msgs))
	}
}

func TestMarkdownRendering(t *testing.T) {
	html := renderMarkdown("# Show notes\n\nsome *emphasis*")
	if !strings.Contains(html, "<h1") || !strings.Contains(html, "<em>") {
		t.Errorf("unexpected markdown output: %s", html)
	}

	// Raw HTML is not passed through.
	if html := renderMarkdown(`<script>alert(1)</script>`); strings.Contains(html, "<script>") {
		t.Errorf("raw HTML should be escaped or dropped: %s", html)
	}
}
