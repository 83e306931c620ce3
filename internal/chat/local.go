package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/podline/podline/internal/db"
)

// MaxSessions bounds local storage growth per user. Persisting beyond the
// cap evicts the oldest-updated session.
const MaxSessions = 50

// LocalStore persists chat sessions to the local SQLite database. It is
// the durable fallback when the backend is unreachable.
type LocalStore struct {
	db *db.DB
}

// NewLocalStore creates a LocalStore over the given database.
func NewLocalStore(database *db.DB) *LocalStore {
	return &LocalStore{db: database}
}

// Upsert writes a session and its full message sequence, replacing any
// previous copy, then evicts sessions beyond the cap.
func (l *LocalStore) Upsert(ctx context.Context, s Session) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, owner_user_id, title, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at`,
		s.ID, s.OwnerUserID, s.Title, s.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id = ?`, s.ID); err != nil {
		return fmt.Errorf("clearing old messages: %w", err)
	}
	for i, m := range s.Messages {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO chat_messages (id, session_id, seq, role, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			m.ID, s.ID, i, string(m.Role), m.Content, m.Timestamp.UTC(),
		)
		if err != nil {
			return fmt.Errorf("inserting message: %w", err)
		}
	}

	// Evict the oldest-updated sessions beyond the cap.
	_, err = tx.ExecContext(ctx,
		`DELETE FROM chat_messages WHERE session_id IN (
		    SELECT id FROM chat_sessions WHERE owner_user_id = ? AND id NOT IN (
		        SELECT id FROM chat_sessions WHERE owner_user_id = ? ORDER BY updated_at DESC LIMIT ?
		    )
		 )`,
		s.OwnerUserID, s.OwnerUserID, MaxSessions,
	)
	if err != nil {
		return fmt.Errorf("evicting old messages: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`DELETE FROM chat_sessions WHERE owner_user_id = ? AND id NOT IN (
		    SELECT id FROM chat_sessions WHERE owner_user_id = ? ORDER BY updated_at DESC LIMIT ?
		 )`,
		s.OwnerUserID, s.OwnerUserID, MaxSessions,
	)
	if err != nil {
		return fmt.Errorf("evicting old sessions: %w", err)
	}

	return tx.Commit()
}

// List returns all sessions for a user in insertion order, each with its
// full ordered message sequence.
func (l *LocalStore) List(ctx context.Context, userID string) ([]Session, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, owner_user_id, title, updated_at FROM chat_sessions WHERE owner_user_id = ? ORDER BY rowid`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		var updatedAt time.Time
		if err := rows.Scan(&s.ID, &s.OwnerUserID, &s.Title, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		s.UpdatedAt = updatedAt.UTC()
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range sessions {
		msgs, err := l.messages(ctx, sessions[i].ID)
		if err != nil {
			return nil, err
		}
		sessions[i].Messages = msgs
	}
	return sessions, nil
}

// Delete removes a session and its messages.
func (l *LocalStore) Delete(ctx context.Context, id string) error {
	if _, err := l.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("deleting messages: %w", err)
	}
	if _, err := l.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (l *LocalStore) messages(ctx context.Context, sessionID string) ([]Message, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, role, content, created_at FROM chat_messages WHERE session_id = ? ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var role string
		var ts time.Time
		if err := rows.Scan(&m.ID, &role, &m.Content, &ts); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.Role = Role(role)
		m.Timestamp = ts.UTC()
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
