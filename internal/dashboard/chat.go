package dashboard

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/podline/podline/internal/assistant"
	"github.com/podline/podline/internal/chat"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatRequest is the incoming WebSocket message format.
type chatRequest struct {
	Type      string `json:"type"`       // "message" or "regenerate"
	SessionID string `json:"session_id"` // empty for new sessions
	Content   string `json:"content"`
}

// chatResponse is the outgoing WebSocket message format.
type chatResponse struct {
	Type      string `json:"type"` // "response" or "error"
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
	HTML      string `json:"html,omitempty"` // rendered assistant markdown
}

func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("dashboard: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("dashboard: websocket read: %v", err)
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			d.sendError(conn, "", "invalid message format")
			continue
		}

		switch req.Type {
		case "message":
			d.handleChatMessage(conn, r, req)
		case "regenerate":
			d.handleRegenerate(conn, r, req)
		default:
			d.sendError(conn, req.SessionID, "unknown message type: "+req.Type)
		}
	}
}

func (d *Dashboard) handleChatMessage(conn *websocket.Conn, r *http.Request, req chatRequest) {
	if d.assistant == nil {
		d.sendError(conn, req.SessionID, "assistant not configured")
		return
	}
	if req.Content == "" {
		d.sendError(conn, req.SessionID, "content is required")
		return
	}

	ctx := r.Context()

	// Resume the requested session or start fresh. A session id is only
	// assigned once the first message lands.
	if req.SessionID != "" && req.SessionID != d.store.CurrentID() {
		d.store.Load(ctx, req.SessionID)
	}

	firstExchange := d.store.CurrentID() == ""
	d.store.Append(chat.RoleUser, req.Content)

	reply, err := d.assistant.Complete(ctx, d.store.Current().Messages)
	if err != nil {
		d.sendError(conn, d.store.CurrentID(), "assistant: "+err.Error())
		return
	}
	d.store.Append(chat.RoleAssistant, reply)

	if firstExchange {
		if t, ok := d.assistant.(assistant.Titler); ok {
			d.store.SetTitle(t.Title(ctx, req.Content))
		}
	}

	if err := d.store.PersistCurrent(ctx); err != nil {
		log.Printf("dashboard: persisting session: %v", err)
	}

	d.sendResponse(conn, chatResponse{
		Type:      "response",
		SessionID: d.store.CurrentID(),
		Content:   reply,
		HTML:      renderMarkdown(reply),
	})
}

func (d *Dashboard) handleRegenerate(conn *websocket.Conn, r *http.Request, req chatRequest) {
	if d.assistant == nil {
		d.sendError(conn, req.SessionID, "assistant not configured")
		return
	}

	ctx := r.Context()
	messages := d.store.Current().Messages
	if len(messages) < 2 || messages[len(messages)-1].Role != chat.RoleAssistant {
		d.sendError(conn, d.store.CurrentID(), "nothing to regenerate")
		return
	}

	// Re-run the conversation without the trailing assistant reply.
	reply, err := d.assistant.Complete(ctx, messages[:len(messages)-1])
	if err != nil {
		d.sendError(conn, d.store.CurrentID(), "assistant: "+err.Error())
		return
	}
	d.store.RegenerateTrailing(reply)

	if err := d.store.PersistCurrent(ctx); err != nil {
		log.Printf("dashboard: persisting session: %v", err)
	}

	d.sendResponse(conn, chatResponse{
		Type:      "response",
		SessionID: d.store.CurrentID(),
		Content:   reply,
		HTML:      renderMarkdown(reply),
	})
}

func (d *Dashboard) sendResponse(conn *websocket.Conn, resp chatResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		log.Printf("dashboard: websocket write: %v", err)
	}
}

func (d *Dashboard) sendError(conn *websocket.Conn, sessionID, message string) {
	resp := chatResponse{
		Type:      "error",
		SessionID: sessionID,
		Content:   message,
	}
	if err := conn.WriteJSON(resp); err != nil {
		log.Printf("dashboard: websocket write error: %v", err)
	}
}
