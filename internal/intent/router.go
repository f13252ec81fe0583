package intent

import (
	"context"

	"github.com/wolfman30/vetchat-assistant/pkg/logging"
)

// Apology is shown when the Q&A responder cannot produce an answer.
const Apology = "I'm sorry, I'm having trouble answering right now. Please try again in a moment, or call the clinic directly if your pet needs urgent care."

// Message is one prior turn handed to the responder for context.
type Message struct {
	Role    string
	Content string
}

// Answer is what the Q&A responder hands back. Responders never return an
// error; OK=false means Text is a fallback and ErrorDetail explains why.
type Answer struct {
	Text                string
	IsAppointmentIntent bool
	OK                  bool
	ErrorDetail         string
}

// Responder answers free-form pet-care questions.
type Responder interface {
	Generate(ctx context.Context, message string, history []Message) Answer
}

// Route names the path a message took through the router.
type Route string

const (
	RouteKeyword         Route = "keyword"
	RouteResponderIntent Route = "responder_intent"
	RouteQA              Route = "qa"
)

// Decision is the router's verdict for one message.
type Decision struct {
	Route        Route
	StartBooking bool
	// Text is the Q&A answer to display verbatim. Empty when StartBooking is set.
	Text string
	// ResponderFailed marks turns where the apology replaced the answer.
	ResponderFailed bool
}

// Router arbitrates between the local keyword detector and the responder.
type Router struct {
	detector  Matcher
	responder Responder
	logger    *logging.Logger
}

// NewRouter builds a router. A nil detector falls back to AppointmentKeywords.
func NewRouter(detector Matcher, responder Responder, logger *logging.Logger) *Router {
	if responder == nil {
		panic("intent: responder required")
	}
	if detector == nil {
		detector = AppointmentKeywords
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Router{detector: detector, responder: responder, logger: logger}
}

// Route classifies a message that arrived while no booking is active. A
// keyword hit short-circuits and the responder is never called.
func (r *Router) Route(ctx context.Context, message string, history []Message) Decision {
	if r.detector.Match(message) {
		return Decision{Route: RouteKeyword, StartBooking: true}
	}

	answer := r.responder.Generate(ctx, message, history)
	if !answer.OK {
		r.logger.Warn("intent: responder failed, using apology", "error_detail", answer.ErrorDetail)
		return Decision{Route: RouteQA, Text: Apology, ResponderFailed: true}
	}
	if answer.IsAppointmentIntent {
		return Decision{Route: RouteResponderIntent, StartBooking: true}
	}
	return Decision{Route: RouteQA, Text: answer.Text}
}
