package webchat

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/vetchat-assistant/internal/appointments"
	"github.com/wolfman30/vetchat-assistant/internal/conversation"
	"github.com/wolfman30/vetchat-assistant/internal/intent"
	"github.com/wolfman30/vetchat-assistant/pkg/logging"
)

const maxMessageBytes = 16 << 10

// Handler exposes the chat service over HTTP and WebSocket.
type Handler struct {
	svc    conversation.Service
	logger *logging.Logger
}

// NewHandler creates a web chat handler.
func NewHandler(svc conversation.Service, logger *logging.Logger) *Handler {
	if svc == nil {
		panic("webchat: conversation service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

type createSessionRequest struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	PetName     string `json:"pet_name"`
	Source      string `json:"source"`
}

type messageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	// Context applies only when the turn opens a new session.
	Context *createSessionRequest `json:"context,omitempty"`
}

func (r createSessionRequest) toContext() conversation.Context {
	return conversation.Context{
		UserID:      strings.TrimSpace(r.UserID),
		DisplayName: strings.TrimSpace(r.DisplayName),
		PetName:     strings.TrimSpace(r.PetName),
		Source:      strings.TrimSpace(r.Source),
	}
}

// HistoryMessage is one transcript entry as returned to the widget.
type HistoryMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// HandleCreateSession opens a session. The body is optional.
func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	id, err := h.svc.CreateSession(r.Context(), req.toContext())
	if err != nil {
		h.logger.Error("webchat: failed to create session", "error", err)
		writeError(w, http.StatusServiceUnavailable, "could not start a chat session")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

// HandleMessage runs one chat turn synchronously.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var opts []conversation.MessageOption
	if req.Context != nil {
		opts = append(opts, conversation.WithSessionContext(req.Context.toContext()))
	}
	reply, err := h.svc.HandleMessage(r.Context(), strings.TrimSpace(req.SessionID), req.Message, opts...)
	switch {
	case errors.Is(err, conversation.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "message is required")
		return
	case errors.Is(err, conversation.ErrInvalidSessionID):
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	case err != nil:
		h.logger.Error("webchat: message turn failed", "session_id", req.SessionID, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"session_id": req.SessionID,
			"response":   intent.Apology,
		})
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// HandleHistory returns the transcript for a session.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return
	}

	msgs, err := h.svc.GetHistory(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, conversation.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		h.logger.Error("webchat: failed to load history", "session_id", sessionID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "failed to load history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"messages":   toHistory(msgs),
	})
}

// HandleAppointments lists one session's appointments, newest first. The
// session comes from the {sessionID} path segment or ?session_id=.
func (h *Handler) HandleAppointments(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if sessionID == "" {
		sessionID = strings.TrimSpace(r.URL.Query().Get("session_id"))
	}
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	h.listAppointments(w, r, sessionID)
}

// HandleAllAppointments lists appointments across sessions for clinic staff.
// session_id narrows the list when present.
func (h *Handler) HandleAllAppointments(w http.ResponseWriter, r *http.Request) {
	h.listAppointments(w, r, strings.TrimSpace(r.URL.Query().Get("session_id")))
}

// HandleAppointment returns one appointment by id for clinic staff.
func (h *Handler) HandleAppointment(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "appointmentID"))
	appt, err := h.svc.GetAppointment(r.Context(), id)
	if err != nil {
		if errors.Is(err, appointments.ErrAppointmentNotFound) {
			writeError(w, http.StatusNotFound, "appointment not found")
			return
		}
		h.logger.Error("webchat: failed to load appointment", "appointment_id", id, "error", err)
		writeError(w, http.StatusServiceUnavailable, "failed to load appointment")
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (h *Handler) listAppointments(w http.ResponseWriter, r *http.Request, sessionID string) {
	filter := appointments.ListFilter{SessionID: sessionID}
	q := r.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		filter.Offset = offset
	}

	page, err := h.svc.GetAppointments(r.Context(), filter)
	if err != nil {
		if errors.Is(err, conversation.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		h.logger.Error("webchat: failed to list appointments", "session_id", filter.SessionID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "failed to list appointments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"appointments": page.Appointments,
		"count":        len(page.Appointments),
		"total":        page.Total,
		"limit":        page.Limit,
		"offset":       page.Offset,
	})
}

func toHistory(msgs []conversation.Message) []HistoryMessage {
	out := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, HistoryMessage{
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
