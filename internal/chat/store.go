package chat

import (
	"context"
	"log"
	"strings"
	"sync"
)

// Store owns the current chat session and keeps local and remote copies
// of the user's session list reasonably in sync. The local copy is
// authoritative for this machine; remote writes are best-effort.
type Store struct {
	mu     sync.Mutex
	local  *LocalStore
	remote Remote // nil when the backend has no chat-history support
	owner  string

	current Session
}

// NewStore creates a Store for the given user ("anonymous" when signed
// out). remote may be nil.
func NewStore(local *LocalStore, remote Remote, owner string) *Store {
	return &Store{local: local, remote: remote, owner: owner}
}

// Owner returns the user the store was built for.
func (s *Store) Owner() string { return s.owner }

// StartNew clears the current session. The session id stays unassigned
// until the first message is appended, so empty sessions are never
// persisted.
func (s *Store) StartNew() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Session{OwnerUserID: s.owner}
}

// Load replaces the current session with the stored session of the given
// id. When the id is unknown it behaves exactly like StartNew and
// reports false.
func (s *Store) Load(ctx context.Context, id string) bool {
	for _, sess := range s.List(ctx) {
		if sess.ID == id {
			s.mu.Lock()
			s.current = sess.clone()
			s.mu.Unlock()
			return true
		}
	}
	s.StartNew()
	return false
}

// Append adds a message to the current session. The first message of a
// brand-new session assigns the session id.
func (s *Store) Append(role Role, content string) Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.ID == "" {
		s.current.ID = NewSessionID()
		if s.current.Title == "" && role == RoleUser {
			s.current.Title = defaultTitle(content)
		}
	}
	msg := NewMessage(role, content)
	s.current.Messages = append(s.current.Messages, msg)
	s.current.UpdatedAt = msg.Timestamp
	return msg
}

// RegenerateTrailing replaces the trailing assistant message with a new
// one. It reports false when the last message is not an assistant reply.
func (s *Store) RegenerateTrailing(content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.current.Messages)
	if n == 0 || s.current.Messages[n-1].Role != RoleAssistant {
		return false
	}
	msg := NewMessage(RoleAssistant, content)
	s.current.Messages[n-1] = msg
	s.current.UpdatedAt = msg.Timestamp
	return true
}

// Current returns a copy of the current session.
func (s *Store) Current() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.clone()
}

// CurrentID returns the current session id, or "" before the first
// message is sent.
func (s *Store) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.ID
}

// SetTitle names the current session.
func (s *Store) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Title = title
}

// PersistCurrent writes the current session locally and makes a
// best-effort remote write. Remote failures are logged and swallowed; a
// local write failure is returned. Persisting a session with no
// messages is a no-op.
func (s *Store) PersistCurrent(ctx context.Context) error {
	s.mu.Lock()
	current := s.current.clone()
	s.mu.Unlock()

	if current.ID == "" || len(current.Messages) == 0 {
		return nil
	}

	if err := s.local.Upsert(ctx, current); err != nil {
		return err
	}
	if s.remote != nil {
		if err := s.remote.Save(ctx, s.owner, current); err != nil {
			log.Printf("chat: remote sync: %v", err)
		}
	}
	return nil
}

// Delete removes a session locally and remotely. Deleting the current
// session leaves the store as a fresh StartNew.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.local.Delete(ctx, id); err != nil {
		return err
	}
	if s.remote != nil {
		if err := s.remote.Delete(ctx, s.owner, id); err != nil {
			log.Printf("chat: remote delete: %v", err)
		}
	}
	if s.CurrentID() == id {
		s.StartNew()
	}
	return nil
}

// List returns the user's sessions, trying the backend first and falling
// back to local storage, capped at MaxSessions.
func (s *Store) List(ctx context.Context) []Session {
	sessions := s.sources().Sessions(ctx, s.owner)
	if len(sessions) > MaxSessions {
		sessions = sessions[:MaxSessions]
	}
	return sessions
}

func (s *Store) sources() SourceChain {
	chain := SourceChain{}
	if s.remote != nil {
		chain = append(chain, remoteSource{remote: s.remote})
	}
	chain = append(chain, localSource{local: s.local})
	return chain
}

// defaultTitle derives a session title from the first user message.
// The assistant may later replace it with a generated one.
func defaultTitle(content string) string {
	title := strings.TrimSpace(content)
	title = strings.ReplaceAll(title, "\n", " ")
	const max = 60
	if r := []rune(title); len(r) > max {
		title = strings.TrimSpace(string(r[:max])) + "…"
	}
	return title
}
