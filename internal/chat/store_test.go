package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/podline/podline/internal/db"
)

func newTestStore(t *testing.T, remote Remote) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(NewLocalStore(database), remote, "user-1")
}

// fakeRemote is an in-memory Remote with scriptable failures.
type fakeRemote struct {
	sessions map[string][]Session
	fail     bool
	saves    int
	deletes  int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{sessions: map[string][]Session{}}
}

func (f *fakeRemote) Sessions(ctx context.Context, userID string) ([]Session, error) {
	if f.fail {
		return nil, errors.New("backend unavailable")
	}
	return f.sessions[userID], nil
}

func (f *fakeRemote) Save(ctx context.Context, userID string, s Session) error {
	if f.fail {
		return errors.New("backend unavailable")
	}
	f.saves++
	for i, existing := range f.sessions[userID] {
		if existing.ID == s.ID {
			f.sessions[userID][i] = s
			return nil
		}
	}
	f.sessions[userID] = append(f.sessions[userID], s)
	return nil
}

func (f *fakeRemote) Delete(ctx context.Context, userID, sessionID string) error {
	if f.fail {
		return errors.New("backend unavailable")
	}
	f.deletes++
	kept := f.sessions[userID][:0]
	for _, s := range f.sessions[userID] {
		if s.ID != sessionID {
			kept = append(kept, s)
		}
	}
	f.sessions[userID] = kept
	return nil
}

func TestNoPersistenceBeforeFirstMessage(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, nil)
	store.StartNew()

	if id := store.CurrentID(); id != "" {
		t.Errorf("fresh session should have no id, got %q", id)
	}
	if err := store.PersistCurrent(ctx); err != nil {
		t.Fatalf("persisting an empty session should be a no-op: %v", err)
	}
	if got := store.List(ctx); len(got) != 0 {
		t.Errorf("empty session must not appear in the list, got %d", len(got))
	}

	store.Append(RoleUser, "first message")
	if store.CurrentID() == "" {
		t.Error("first append should assign a session id")
	}
}

func TestPersistLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, nil)
	store.StartNew()

	store.Append(RoleUser, "what's the latest episode?")
	store.Append(RoleAssistant, "Episode 42 came out yesterday.")
	store.Append(RoleUser, "summarize it")
	id := store.CurrentID()

	if err := store.PersistCurrent(ctx); err != nil {
		t.Fatalf("PersistCurrent failed: %v", err)
	}
	want := store.Current().Messages

	store.StartNew()
	if !store.Load(ctx, id) {
		t.Fatal("Load should find the persisted session")
	}
	got := store.Current().Messages
	if len(got) != len(want) {
		t.Fatalf("message count: got %d, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i].ID != want[i].ID || got[i].Role != want[i].Role || got[i].Content != want[i].Content {
			t.Errorf("message %d mismatch: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestLoadUnknownFallsBackToStartNew(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, nil)
	store.Append(RoleUser, "hello")
	if err := store.PersistCurrent(ctx); err != nil {
		t.Fatal(err)
	}

	if store.Load(ctx, "nonexistent-id") {
		t.Error("Load of unknown id should report false")
	}
	cur := store.Current()
	if cur.ID != "" || len(cur.Messages) != 0 {
		t.Errorf("store should look like a fresh StartNew, got id=%q messages=%d", cur.ID, len(cur.Messages))
	}
}

func TestDeleteSession(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, nil)

	store.Append(RoleUser, "first session")
	first := store.CurrentID()
	if err := store.PersistCurrent(ctx); err != nil {
		t.Fatal(err)
	}

	store.StartNew()
	store.Append(RoleUser, "second session")
	second := store.CurrentID()
	if err := store.PersistCurrent(ctx); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(ctx, first); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	for _, s := range store.List(ctx) {
		if s.ID == first {
			t.Error("deleted session still listed")
		}
	}

	// Deleting the current session resets to a fresh StartNew.
	if err := store.Delete(ctx, second); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	cur := store.Current()
	if cur.ID != "" || len(cur.Messages) != 0 {
		t.Errorf("deleting current session should reset the store, got id=%q messages=%d", cur.ID, len(cur.Messages))
	}
}

func TestSendScenario(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	store := newTestStore(t, remote)
	store.StartNew()

	store.Append(RoleUser, "Hello")
	id := store.CurrentID()
	if id == "" {
		t.Fatal("session id should be assigned on first send")
	}
	store.Append(RoleAssistant, "Hi! Ask me about the show.")

	if err := store.PersistCurrent(ctx); err != nil {
		t.Fatalf("PersistCurrent failed: %v", err)
	}

	sessions := store.List(ctx)
	if len(sessions) != 1 || sessions[0].ID != id {
		t.Fatalf("expected exactly the new session, got %+v", sessions)
	}
	if len(sessions[0].Messages) != 2 {
		t.Errorf("expected 2 messages, got %d", len(sessions[0].Messages))
	}
	if remote.saves != 1 {
		t.Errorf("expected one remote save, got %d", remote.saves)
	}
}

func TestRemoteFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.fail = true
	store := newTestStore(t, remote)

	store.Append(RoleUser, "offline message")
	id := store.CurrentID()
	if err := store.PersistCurrent(ctx); err != nil {
		t.Fatalf("remote failure must not fail the persist: %v", err)
	}

	// The local copy is still the durable fallback.
	sessions := store.List(ctx)
	if len(sessions) != 1 || sessions[0].ID != id {
		t.Errorf("local fallback should serve the session, got %+v", sessions)
	}
}

func TestListPrefersRemote(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.sessions["user-1"] = []Session{{
		ID:          "remote-1",
		Title:       "from the backend",
		OwnerUserID: "user-1",
		Messages:    []Message{NewMessage(RoleUser, "hi")},
		UpdatedAt:   time.Now().UTC(),
	}}
	store := newTestStore(t, remote)

	// A diverged local copy exists but the remote answers first.
	store.Append(RoleUser, "local only")
	if err := store.PersistCurrent(ctx); err != nil {
		t.Fatal(err)
	}
	// Drop the persisted copy from the remote so the two stores diverge.
	remote.sessions["user-1"] = remote.sessions["user-1"][:1]

	sessions := store.List(ctx)
	if len(sessions) != 1 || sessions[0].ID != "remote-1" {
		t.Errorf("remote source should win, got %+v", sessions)
	}
}

func TestDefaultTitleKeepsValidUTF8(t *testing.T) {
	store := newTestStore(t, nil)
	store.Append(RoleUser, strings.Repeat("ü", 100))

	title := store.Current().Title
	if !utf8.ValidString(title) {
		t.Errorf("default title is not valid UTF-8: %q", title)
	}
	if !strings.HasSuffix(title, "…") {
		t.Errorf("long title should be truncated with an ellipsis: %q", title)
	}
}

func TestSetTitleReplacesDefault(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, nil)

	store.Append(RoleUser, "what's the latest episode?")
	store.SetTitle("Latest Episode")
	if err := store.PersistCurrent(ctx); err != nil {
		t.Fatal(err)
	}

	sessions := store.List(ctx)
	if len(sessions) != 1 || sessions[0].Title != "Latest Episode" {
		t.Errorf("persisted title = %+v, want %q", sessions, "Latest Episode")
	}
}

func TestRegenerateTrailing(t *testing.T) {
	store := newTestStore(t, nil)
	store.Append(RoleUser, "question")

	if store.RegenerateTrailing("nope") {
		t.Error("regenerate must only replace a trailing assistant message")
	}

	store.Append(RoleAssistant, "first answer")
	firstID := store.Current().Messages[1].ID
	if !store.RegenerateTrailing("better answer") {
		t.Fatal("regenerate should succeed")
	}
	msgs := store.Current().Messages
	if len(msgs) != 2 {
		t.Fatalf("regenerate must replace, not append: got %d messages", len(msgs))
	}
	if msgs[1].Content != "better answer" || msgs[1].ID == firstID {
		t.Errorf("trailing message should be a new message: %+v", msgs[1])
	}
}

func TestSessionCap(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, nil)

	for i := 0; i < MaxSessions+5; i++ {
		store.StartNew()
		store.Append(RoleUser, fmt.Sprintf("session %d", i))
		if err := store.PersistCurrent(ctx); err != nil {
			t.Fatal(err)
		}
	}

	sessions := store.List(ctx)
	if len(sessions) > MaxSessions {
		t.Errorf("list must be capped at %d, got %d", MaxSessions, len(sessions))
	}
}
