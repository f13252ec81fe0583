package webchat

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/vetchat-assistant/internal/appointments"
	"github.com/wolfman30/vetchat-assistant/internal/conversation"
	"github.com/wolfman30/vetchat-assistant/internal/intent"
)

// InboundFrame is what the widget sends over the socket.
type InboundFrame struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// OutboundFrame is what the widget receives.
type OutboundFrame struct {
	Type            string                    `json:"type"` // "session", "history", "typing", "message", "pong", "error"
	SessionID       string                    `json:"session_id,omitempty"`
	Role            string                    `json:"role,omitempty"`
	Text            string                    `json:"text,omitempty"`
	IsBookingActive bool                      `json:"is_booking_active,omitempty"`
	Appointment     *appointments.Appointment `json:"appointment,omitempty"`
	Messages        []HistoryMessage          `json:"messages,omitempty"`
}

// HandleWebSocket upgrades the request and runs turns for one session until
// the client disconnects. ?session= resumes an existing session.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(r.Context(), conn, strings.TrimSpace(r.URL.Query().Get("session")))
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(ctx context.Context, conn *websocket.Conn, sessionID string) {
	sessionID, history, err := h.resume(ctx, sessionID)
	if err != nil {
		h.logger.Error("webchat: failed to open socket session", "error", err)
		_ = websocket.JSON.Send(conn, OutboundFrame{Type: "error", Text: intent.Apology})
		return
	}

	_ = websocket.JSON.Send(conn, OutboundFrame{Type: "session", SessionID: sessionID})
	if len(history) > 0 {
		_ = websocket.JSON.Send(conn, OutboundFrame{Type: "history", Messages: toHistory(history)})
	}
	h.logger.Info("webchat: connection opened", "session_id", sessionID)

	for {
		var frame InboundFrame
		if err := websocket.JSON.Receive(conn, &frame); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", sessionID, "error", err)
			return
		}

		switch frame.Type {
		case "ping":
			_ = websocket.JSON.Send(conn, OutboundFrame{Type: "pong"})
			continue
		case "message":
		default:
			continue
		}
		if strings.TrimSpace(frame.Text) == "" {
			continue
		}

		_ = websocket.JSON.Send(conn, OutboundFrame{Type: "typing"})
		reply, err := h.svc.HandleMessage(ctx, sessionID, frame.Text)
		if err != nil {
			h.logger.Error("webchat: socket turn failed", "session_id", sessionID, "error", err)
			_ = websocket.JSON.Send(conn, OutboundFrame{Type: "error", SessionID: sessionID, Text: intent.Apology})
			continue
		}
		if reply.SessionID != sessionID {
			sessionID = reply.SessionID
			_ = websocket.JSON.Send(conn, OutboundFrame{Type: "session", SessionID: sessionID})
		}
		if err := websocket.JSON.Send(conn, OutboundFrame{
			Type:            "message",
			SessionID:       sessionID,
			Role:            conversation.RoleAssistant,
			Text:            reply.Text,
			IsBookingActive: reply.IsBookingActive,
			Appointment:     reply.Appointment,
		}); err != nil {
			return
		}
	}
}

// resume returns the history of a known session. An unknown well-formed token
// is kept; anything else gets a fresh session.
func (h *Handler) resume(ctx context.Context, sessionID string) (string, []conversation.Message, error) {
	if sessionID != "" {
		msgs, err := h.svc.GetHistory(ctx, sessionID)
		if err == nil {
			return sessionID, msgs, nil
		}
		if !errors.Is(err, conversation.ErrSessionNotFound) {
			return "", nil, err
		}
		// The first message opens the session under the client's token.
		if conversation.ValidSessionToken(sessionID) {
			return sessionID, nil, nil
		}
	}
	id, err := h.svc.CreateSession(ctx, conversation.Context{Source: "websocket"})
	if err != nil {
		return "", nil, err
	}
	return id, nil, nil
}
