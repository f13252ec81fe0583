// Package appointments persists booking requests produced by the chat flow.
package appointments

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrMissingSession      = errors.New("session id is required")
	ErrIncomplete          = errors.New("owner name, pet name, phone and preferred time are required")
)

// Status is the lifecycle state of an appointment. The chat flow only ever
// creates pending rows.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Appointment is a persisted booking request.
type Appointment struct {
	ID                string    `json:"id"`
	SessionID         string    `json:"session_id"`
	FlowID            string    `json:"flow_id,omitempty"`
	OwnerName         string    `json:"owner_name"`
	PetName           string    `json:"pet_name"`
	Phone             string    `json:"phone"`
	PreferredDateTime string    `json:"preferred_date_time"`
	Status            Status    `json:"status"`
	Notes             string    `json:"notes"`
	CreatedAt         time.Time `json:"created_at"`
}

// CreateRequest carries the fields collected by the booking flow. A non-empty
// FlowID makes the insert idempotent: a second request for the same session
// and flow returns the row written by the first.
type CreateRequest struct {
	SessionID         string
	FlowID            string
	OwnerName         string
	PetName           string
	Phone             string
	PreferredDateTime string
	Notes             string
}

// Validate checks that every collected field is present.
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return ErrMissingSession
	}
	for _, v := range []string{r.OwnerName, r.PetName, r.Phone, r.PreferredDateTime} {
		if strings.TrimSpace(v) == "" {
			return ErrIncomplete
		}
	}
	return nil
}

// ListFilter narrows a listing. An empty SessionID lists every session.
type ListFilter struct {
	SessionID string
	Limit     int
	Offset    int
}

// Page is one window of a listing. Total counts every matching row, not just
// the ones in Appointments.
type Page struct {
	Appointments []*Appointment `json:"appointments"`
	Total        int            `json:"total"`
	Limit        int            `json:"limit"`
	Offset       int            `json:"offset"`
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

func (f ListFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return defaultListLimit
	case f.Limit > maxListLimit:
		return maxListLimit
	default:
		return f.Limit
	}
}

func (f ListFilter) offset() int {
	if f.Offset < 0 {
		return 0
	}
	return f.Offset
}
