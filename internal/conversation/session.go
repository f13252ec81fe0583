package conversation

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/vetchat-assistant/internal/booking"
)

var (
	// ErrSessionNotFound is returned when a session token is unknown to the store.
	ErrSessionNotFound = errors.New("conversation: session not found")
	// ErrInvalidSessionID is returned for a client token that cannot be used
	// as a storage key.
	ErrInvalidSessionID = errors.New("conversation: invalid session id")
)

const maxSessionTokenLen = 128

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in a session transcript. Messages are append-only.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Context is free-form caller metadata supplied when the session is created.
type Context struct {
	UserID      string `json:"user_id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	PetName     string `json:"pet_name,omitempty"`
	Source      string `json:"source,omitempty"`
}

// Session is a single ongoing conversation.
type Session struct {
	ID        string        `json:"id"`
	Messages  []Message     `json:"messages"`
	Context   Context       `json:"context"`
	Booking   booking.State `json:"booking_state"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// newSession opens a session under id, or under a fresh token when id is empty.
func newSession(id string, ctx Context, now time.Time) *Session {
	if id == "" {
		id = NewSessionToken()
	}
	return &Session{
		ID:        id,
		Messages:  []Message{},
		Context:   ctx,
		Booking:   booking.Idle(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Session) append(role, content string, at time.Time) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content, Timestamp: at})
	s.UpdatedAt = at
}

// recent returns up to limit messages from the end of msgs, oldest first.
func recent(msgs []Message, limit int) []Message {
	if limit <= 0 || len(msgs) <= limit {
		return msgs
	}
	return msgs[len(msgs)-limit:]
}

// NewSessionToken creates a random, opaque session identifier.
func NewSessionToken() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// ValidSessionToken reports whether a client-supplied token is usable:
// 1 to 128 characters of [A-Za-z0-9_-].
func ValidSessionToken(id string) bool {
	if id == "" || len(id) > maxSessionTokenLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
