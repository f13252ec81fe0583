package conversation

import (
	"context"
	"sync"
	"time"
)

// Store persists sessions. Implementations return ErrSessionNotFound for
// unknown tokens.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Create(ctx context.Context, c Context) (*Session, error)
	// CreateWithID opens a session under a client-kept token. If the token
	// is already taken the stored session is returned unchanged.
	CreateWithID(ctx context.Context, id string, c Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
}

// MemoryStore keeps sessions in process memory. Used for local development
// and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Get returns a copy of the stored session.
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return cloneSession(s), nil
}

// Create stores a brand new session.
func (m *MemoryStore) Create(_ context.Context, c Context) (*Session, error) {
	s := newSession("", c, m.now())
	m.mu.Lock()
	m.sessions[s.ID] = cloneSession(s)
	m.mu.Unlock()
	return s, nil
}

func (m *MemoryStore) CreateWithID(_ context.Context, id string, c Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[id]; ok {
		return cloneSession(existing), nil
	}
	s := newSession(id, c, m.now())
	m.sessions[id] = cloneSession(s)
	return s, nil
}

// Save overwrites the stored copy.
func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	m.sessions[s.ID] = cloneSession(s)
	m.mu.Unlock()
	return nil
}

func cloneSession(s *Session) *Session {
	out := *s
	out.Messages = append([]Message(nil), s.Messages...)
	return &out
}
