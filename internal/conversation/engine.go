package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/vetchat-assistant/internal/appointments"
	"github.com/wolfman30/vetchat-assistant/internal/booking"
	"github.com/wolfman30/vetchat-assistant/internal/intent"
	"github.com/wolfman30/vetchat-assistant/pkg/logging"
)

const (
	defaultHistoryLimit = 10
	routeBooking        = "booking"
	outcomePersistFail  = "persist_failed"
)

var engineTracer = otel.Tracer("vetchat.internal.conversation.engine")

// EngineConfig holds the Engine collaborators. Store, Router and
// Appointments are required.
type EngineConfig struct {
	Store        Store
	Locker       Locker
	Router       *intent.Router
	Flow         *booking.Flow
	Appointments appointments.Repository
	Notifier     AppointmentNotifier
	Metrics      EngineMetrics
	HistoryLimit int
	Logger       *logging.Logger
}

// Engine runs one conversation turn at a time per session.
type Engine struct {
	store        Store
	locker       Locker
	router       *intent.Router
	flow         *booking.Flow
	appointments appointments.Repository
	notifier     AppointmentNotifier
	metrics      EngineMetrics
	historyLimit int
	logger       *logging.Logger
	now          func() time.Time
}

// NewEngine validates cfg and fills defaults.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Store == nil {
		return nil, errors.New("conversation: session store required")
	}
	if cfg.Router == nil {
		return nil, errors.New("conversation: intent router required")
	}
	if cfg.Appointments == nil {
		return nil, errors.New("conversation: appointment repository required")
	}
	if cfg.Locker == nil {
		cfg.Locker = NewMemoryLocker()
	}
	if cfg.Flow == nil {
		cfg.Flow = booking.NewFlow(nil, nil)
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Engine{
		store:        cfg.Store,
		locker:       cfg.Locker,
		router:       cfg.Router,
		flow:         cfg.Flow,
		appointments: cfg.Appointments,
		notifier:     cfg.Notifier,
		metrics:      cfg.Metrics,
		historyLimit: cfg.HistoryLimit,
		logger:       cfg.Logger,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

// CreateSession opens an empty session and returns its token.
func (e *Engine) CreateSession(ctx context.Context, c Context) (string, error) {
	s, err := e.store.Create(ctx, c)
	if err != nil {
		return "", fmt.Errorf("conversation: create session: %w", err)
	}
	e.logger.Debug("session created", "session_id", s.ID, "source", c.Source)
	return s.ID, nil
}

// MessageOption adjusts a single HandleMessage call.
type MessageOption func(*messageOptions)

type messageOptions struct {
	context Context
}

// WithSessionContext sets the caller metadata used if the turn opens a new
// session. It is ignored for an existing session.
func WithSessionContext(c Context) MessageOption {
	return func(o *messageOptions) { o.context = c }
}

// HandleMessage applies one user message. An unknown sessionID opens a
// session under that token; an empty one opens a session under a fresh token
// returned in the reply. Store failures are returned as errors; responder and
// appointment failures become an apology reply.
func (e *Engine) HandleMessage(ctx context.Context, sessionID, text string, opts ...MessageOption) (*Reply, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	if sessionID != "" && !ValidSessionToken(sessionID) {
		return nil, ErrInvalidSessionID
	}
	var o messageOptions
	for _, opt := range opts {
		opt(&o)
	}

	ctx, span := engineTracer.Start(ctx, "conversation.handle_message")
	defer span.End()

	if sessionID != "" {
		unlock, err := e.locker.Lock(ctx, sessionID)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("conversation: lock session: %w", err)
		}
		defer unlock()
	}

	s, err := e.loadOrCreate(ctx, sessionID, o.context)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("vetchat.session_id", s.ID))

	history := toRouterHistory(recent(s.Messages, e.historyLimit))
	s.append(RoleUser, text, e.now())

	reply := &Reply{SessionID: s.ID}
	if s.Booking.Active {
		e.advanceBooking(ctx, s, text, reply)
	} else {
		e.route(withCallerContext(ctx, s.Context), s, text, history, reply)
	}

	s.append(RoleAssistant, reply.Text, e.now())
	reply.IsBookingActive = s.Booking.Active

	if err := e.store.Save(ctx, s); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: save session: %w", err)
	}
	return reply, nil
}

func (e *Engine) loadOrCreate(ctx context.Context, sessionID string, c Context) (*Session, error) {
	if sessionID == "" {
		s, err := e.store.Create(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("conversation: create session: %w", err)
		}
		return s, nil
	}
	s, err := e.store.Get(ctx, sessionID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return nil, fmt.Errorf("conversation: load session: %w", err)
	}
	e.logger.Info("unknown session token, opening it", "session_id", sessionID)
	s, err = e.store.CreateWithID(ctx, sessionID, c)
	if err != nil {
		return nil, fmt.Errorf("conversation: create session: %w", err)
	}
	return s, nil
}

func (e *Engine) route(ctx context.Context, s *Session, text string, history []intent.Message, reply *Reply) {
	decision := e.router.Route(ctx, text, history)
	e.observeRoute(string(decision.Route))

	if !decision.StartBooking {
		reply.Text = decision.Text
		return
	}
	res := e.flow.Start()
	e.observeTransition(s.Booking.Step, res.State.Step)
	s.Booking = res.State
	reply.Text = res.Reply
}

func (e *Engine) advanceBooking(ctx context.Context, s *Session, text string, reply *Reply) {
	e.observeRoute(routeBooking)

	res, err := e.flow.Next(s.Booking, text)
	if err != nil {
		// Only reachable with a corrupted stored state; start over.
		e.logger.Warn("booking state rejected, restarting flow", "session_id", s.ID, "step", string(s.Booking.Step), "error", err)
		res = e.flow.Start()
	}

	if res.Outcome == booking.OutcomeConfirmed && res.Booking != nil {
		appt, created, err := e.appointments.Create(ctx, &appointments.CreateRequest{
			SessionID:         s.ID,
			FlowID:            res.FlowID,
			OwnerName:         res.Booking.OwnerName,
			PetName:           res.Booking.PetName,
			Phone:             res.Booking.Phone,
			PreferredDateTime: res.Booking.PreferredDateTime,
		})
		if err != nil {
			// The transition is not committed so the next "yes" retries it.
			trace.SpanFromContext(ctx).RecordError(err)
			e.logger.Error("failed to persist appointment", "session_id", s.ID, "error", err)
			e.observeOutcome(outcomePersistFail)
			reply.Text = intent.Apology
			return
		}
		reply.Appointment = appt
		if created {
			e.notify(ctx, appt)
		} else {
			e.logger.Info("appointment already recorded for flow", "session_id", s.ID, "flow_id", res.FlowID, "appointment_id", appt.ID)
		}
	}

	e.observeTransition(s.Booking.Step, res.State.Step)
	switch res.Outcome {
	case booking.OutcomeConfirmed, booking.OutcomeCancelled:
		e.observeOutcome(string(res.Outcome))
	}
	s.Booking = res.State
	reply.Text = res.Reply
}

func (e *Engine) notify(ctx context.Context, appt *appointments.Appointment) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.NotifyAppointment(ctx, appt); err != nil {
		e.logger.Warn("appointment notification failed", "appointment_id", appt.ID, "error", err)
	}
}

// GetHistory returns the transcript in append order.
func (e *Engine) GetHistory(ctx context.Context, sessionID string) ([]Message, error) {
	s, err := e.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("conversation: load session: %w", err)
	}
	return s.Messages, nil
}

// GetAppointments lists appointments newest first. A non-empty SessionID must
// name an existing session.
func (e *Engine) GetAppointments(ctx context.Context, filter appointments.ListFilter) (*appointments.Page, error) {
	if filter.SessionID != "" {
		if _, err := e.store.Get(ctx, filter.SessionID); err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("conversation: load session: %w", err)
		}
	}
	page, err := e.appointments.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("conversation: list appointments: %w", err)
	}
	return page, nil
}

// GetAppointment returns one appointment or appointments.ErrAppointmentNotFound.
func (e *Engine) GetAppointment(ctx context.Context, id string) (*appointments.Appointment, error) {
	appt, err := e.appointments.Get(ctx, id)
	if err != nil {
		if errors.Is(err, appointments.ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("conversation: get appointment: %w", err)
	}
	return appt, nil
}

func (e *Engine) observeRoute(route string) {
	if e.metrics != nil {
		e.metrics.ObserveRoute(route)
	}
}

func (e *Engine) observeTransition(from, to booking.Step) {
	if e.metrics != nil && from != to {
		e.metrics.ObserveTransition(string(from), string(to))
	}
}

func (e *Engine) observeOutcome(outcome string) {
	if e.metrics != nil {
		e.metrics.ObserveOutcome(outcome)
	}
}

func toRouterHistory(msgs []Message) []intent.Message {
	out := make([]intent.Message, len(msgs))
	for i, m := range msgs {
		out[i] = intent.Message{Role: m.Role, Content: m.Content}
	}
	return out
}

var _ Service = (*Engine)(nil)
