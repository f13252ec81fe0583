package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository stores appointments. List returns newest first.
type Repository interface {
	// Create inserts a pending appointment. created is false when the
	// request's flow was already persisted; the existing row is returned.
	Create(ctx context.Context, req *CreateRequest) (appt *Appointment, created bool, err error)
	// Get returns ErrAppointmentNotFound for an unknown id.
	Get(ctx context.Context, id string) (*Appointment, error)
	List(ctx context.Context, filter ListFilter) (*Page, error)
}

// InMemoryRepository keeps appointments in process memory.
type InMemoryRepository struct {
	mu    sync.RWMutex
	items []*Appointment
	now   func() time.Time
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{now: func() time.Time { return time.Now().UTC() }}
}

func (r *InMemoryRepository) Create(_ context.Context, req *CreateRequest) (*Appointment, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if req.FlowID != "" {
		for _, a := range r.items {
			if a.SessionID == req.SessionID && a.FlowID == req.FlowID {
				out := *a
				return &out, false, nil
			}
		}
	}
	appt := &Appointment{
		ID:                uuid.New().String(),
		SessionID:         req.SessionID,
		FlowID:            req.FlowID,
		OwnerName:         req.OwnerName,
		PetName:           req.PetName,
		Phone:             req.Phone,
		PreferredDateTime: req.PreferredDateTime,
		Status:            StatusPending,
		Notes:             req.Notes,
		CreatedAt:         r.now(),
	}
	r.items = append(r.items, appt)

	out := *appt
	return &out, true, nil
}

// Get returns one appointment by id.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.items {
		if a.ID == id {
			out := *a
			return &out, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

// List returns one page of matching appointments, newest first.
func (r *InMemoryRepository) List(_ context.Context, filter ListFilter) (*Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*Appointment, 0)
	for i := len(r.items) - 1; i >= 0; i-- {
		a := r.items[i]
		if filter.SessionID != "" && a.SessionID != filter.SessionID {
			continue
		}
		cp := *a
		matched = append(matched, &cp)
	}
	// Insertion order already approximates recency; the sort settles equal
	// clock readings deterministically.
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	page := &Page{Total: len(matched), Limit: filter.limit(), Offset: filter.offset()}
	start := min(page.Offset, len(matched))
	end := min(start+page.Limit, len(matched))
	page.Appointments = matched[start:end]
	return page, nil
}
