package intent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/vetchat-assistant/pkg/logging"
)

type stubResponder struct {
	answer  Answer
	calls   int
	lastMsg string
	lastLen int
}

func (s *stubResponder) Generate(_ context.Context, message string, history []Message) Answer {
	s.calls++
	s.lastMsg = message
	s.lastLen = len(history)
	return s.answer
}

func TestRouteKeywordShortCircuitsResponder(t *testing.T) {
	responder := &stubResponder{answer: Answer{Text: "unused", OK: true}}
	router := NewRouter(nil, responder, logging.New("error"))

	decision := router.Route(context.Background(), "Can we schedule a visit?", nil)

	assert.True(t, decision.StartBooking)
	assert.Equal(t, RouteKeyword, decision.Route)
	assert.Zero(t, responder.calls, "responder must not be invoked on keyword hit")
}

func TestRouteForwardsToResponder(t *testing.T) {
	responder := &stubResponder{answer: Answer{Text: "Keep chocolate away from dogs.", OK: true}}
	router := NewRouter(nil, responder, logging.New("error"))
	history := []Message{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}}

	decision := router.Route(context.Background(), "Is chocolate bad for dogs?", history)

	require.Equal(t, 1, responder.calls)
	assert.Equal(t, "Is chocolate bad for dogs?", responder.lastMsg)
	assert.Equal(t, 2, responder.lastLen)
	assert.False(t, decision.StartBooking)
	assert.Equal(t, RouteQA, decision.Route)
	assert.Equal(t, "Keep chocolate away from dogs.", decision.Text)
}

func TestRouteResponderIntentStartsBooking(t *testing.T) {
	responder := &stubResponder{answer: Answer{Text: "Sure, let's get you in.", IsAppointmentIntent: true, OK: true}}
	router := NewRouter(nil, responder, logging.New("error"))

	decision := router.Route(context.Background(), "my cat has been sneezing, can someone look at her", nil)

	assert.True(t, decision.StartBooking)
	assert.Equal(t, RouteResponderIntent, decision.Route)
	assert.Empty(t, decision.Text)
}

func TestRouteResponderFailureUsesApology(t *testing.T) {
	responder := &stubResponder{answer: Answer{Text: "fallback", IsAppointmentIntent: true, OK: false, ErrorDetail: "quota"}}
	router := NewRouter(nil, responder, logging.New("error"))

	decision := router.Route(context.Background(), "what vaccines does a puppy need", nil)

	assert.False(t, decision.StartBooking, "failed answers never start booking")
	assert.True(t, decision.ResponderFailed)
	assert.Equal(t, Apology, decision.Text)
}

func TestRouteCustomDetector(t *testing.T) {
	responder := &stubResponder{answer: Answer{Text: "answer", OK: true}}
	router := NewRouter(Keywords{"termin"}, responder, logging.New("error"))

	decision := router.Route(context.Background(), "Ich brauche einen Termin", nil)
	assert.True(t, decision.StartBooking)

	decision = router.Route(context.Background(), "book please", nil)
	assert.False(t, decision.StartBooking)
	assert.Equal(t, 1, responder.calls)
}
