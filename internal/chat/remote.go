package chat

import (
	"context"

	"github.com/podline/podline/internal/api"
)

// Remote is the backend copy of a user's chat history. Writes to it are
// best-effort; the local store stays authoritative for this machine.
type Remote interface {
	Sessions(ctx context.Context, userID string) ([]Session, error)
	Save(ctx context.Context, userID string, s Session) error
	Delete(ctx context.Context, userID, sessionID string) error
}

// backendRemote adapts the API gateway's chat-history endpoints.
type backendRemote struct {
	client *api.Client
}

// NewBackendRemote wraps the gateway client as a Remote.
func NewBackendRemote(client *api.Client) Remote {
	return &backendRemote{client: client}
}

func (r *backendRemote) Sessions(ctx context.Context, userID string) ([]Session, error) {
	wire, err := r.client.ChatHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	sessions := make([]Session, len(wire))
	for i, w := range wire {
		sessions[i] = fromWire(w)
	}
	return sessions, nil
}

func (r *backendRemote) Save(ctx context.Context, userID string, s Session) error {
	return r.client.SaveChatSession(ctx, userID, toWire(s))
}

func (r *backendRemote) Delete(ctx context.Context, userID, sessionID string) error {
	return r.client.DeleteChatSession(ctx, userID, sessionID)
}

func toWire(s Session) api.ChatSession {
	w := api.ChatSession{
		ID:          s.ID,
		Title:       s.Title,
		OwnerUserID: s.OwnerUserID,
		UpdatedAt:   s.UpdatedAt,
		Messages:    make([]api.ChatMessage, len(s.Messages)),
	}
	for i, m := range s.Messages {
		w.Messages[i] = api.ChatMessage{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			Timestamp: m.Timestamp,
		}
	}
	return w
}

func fromWire(w api.ChatSession) Session {
	s := Session{
		ID:          w.ID,
		Title:       w.Title,
		OwnerUserID: w.OwnerUserID,
		UpdatedAt:   w.UpdatedAt,
		Messages:    make([]Message, len(w.Messages)),
	}
	for i, m := range w.Messages {
		s.Messages[i] = Message{
			ID:        m.ID,
			Role:      Role(m.Role),
			Content:   m.Content,
			Timestamp: m.Timestamp,
		}
	}
	return s
}
