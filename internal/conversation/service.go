package conversation

import (
	"context"
	"errors"

	"github.com/wolfman30/vetchat-assistant/internal/appointments"
)

// ErrEmptyMessage is returned by HandleMessage for blank input.
var ErrEmptyMessage = errors.New("conversation: message is empty")

// Service is the surface the HTTP and WebSocket adapters depend on.
type Service interface {
	CreateSession(ctx context.Context, c Context) (string, error)
	HandleMessage(ctx context.Context, sessionID, text string, opts ...MessageOption) (*Reply, error)
	GetHistory(ctx context.Context, sessionID string) ([]Message, error)
	GetAppointments(ctx context.Context, filter appointments.ListFilter) (*appointments.Page, error)
	GetAppointment(ctx context.Context, id string) (*appointments.Appointment, error)
}

// Reply is the outcome of one message turn.
type Reply struct {
	// SessionID is the requested token, or the fresh token of a session
	// opened for a request without one.
	SessionID       string                    `json:"session_id"`
	Text            string                    `json:"response"`
	IsBookingActive bool                      `json:"is_booking_active"`
	Appointment     *appointments.Appointment `json:"appointment,omitempty"`
}

// AppointmentNotifier is told about every persisted appointment.
type AppointmentNotifier interface {
	NotifyAppointment(ctx context.Context, appt *appointments.Appointment) error
}

// EngineMetrics records per-turn routing and booking transitions.
type EngineMetrics interface {
	ObserveRoute(route string)
	ObserveTransition(from, to string)
	ObserveOutcome(outcome string)
}
