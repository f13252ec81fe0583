package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/vetchat-assistant/internal/intent"
	"github.com/wolfman30/vetchat-assistant/pkg/logging"
)

type responderObservation struct {
	status string
}

type stubResponderMetrics struct {
	seen []responderObservation
}

func (m *stubResponderMetrics) ObserveResponder(status string, _ float64) {
	m.seen = append(m.seen, responderObservation{status: status})
}

func TestLLMResponderBuildsRequest(t *testing.T) {
	var got LLMRequest
	client := LLMClientFunc(func(_ context.Context, req LLMRequest) (LLMResponse, error) {
		got = req
		return LLMResponse{Text: "Grapes are toxic to dogs."}, nil
	})
	r := NewLLMResponder(client, ResponderConfig{ClinicName: "Happy Paws", MaxTokens: 256, Temperature: 0.2}, logging.New("error"))

	ctx := withCallerContext(context.Background(), Context{DisplayName: "Jane", PetName: "Rex"})
	history := []intent.Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello!"},
	}
	answer := r.Generate(ctx, "are grapes ok?", history)

	assert.True(t, answer.OK)
	assert.False(t, answer.IsAppointmentIntent)
	assert.Equal(t, "Grapes are toxic to dogs.", answer.Text)

	require.Len(t, got.System, 1)
	assert.Contains(t, got.System[0], "Happy Paws")
	assert.Contains(t, got.System[0], "- Pet: Rex")
	require.Len(t, got.Messages, 3)
	assert.Equal(t, ChatRoleAssistant, got.Messages[1].Role)
	assert.Equal(t, ChatMessage{Role: ChatRoleUser, Content: "are grapes ok?"}, got.Messages[2])
	assert.Equal(t, int32(256), got.MaxTokens)
}

func TestLLMResponderStripsMarker(t *testing.T) {
	client := LLMClientFunc(func(context.Context, LLMRequest) (LLMResponse, error) {
		return LLMResponse{Text: "Sounds like a good idea to have her checked.\n[APPOINTMENT_INTENT]"}, nil
	})
	metrics := &stubResponderMetrics{}
	r := NewLLMResponder(client, ResponderConfig{}, logging.New("error"), WithResponderMetrics(metrics))

	answer := r.Generate(context.Background(), "my cat keeps scratching her ear", nil)

	assert.True(t, answer.OK)
	assert.True(t, answer.IsAppointmentIntent)
	assert.False(t, strings.Contains(answer.Text, "APPOINTMENT_INTENT"))
	assert.Equal(t, []responderObservation{{status: "ok"}}, metrics.seen)
}

func TestLLMResponderKeywordRecheck(t *testing.T) {
	client := LLMClientFunc(func(context.Context, LLMRequest) (LLMResponse, error) {
		return LLMResponse{Text: "We'd love to see you."}, nil
	})
	r := NewLLMResponder(client, ResponderConfig{}, logging.New("error"),
		WithIntentDetector(intent.Keywords{"come by"}))

	answer := r.Generate(context.Background(), "Can I come by Friday?", nil)
	assert.True(t, answer.IsAppointmentIntent)
}

func TestLLMResponderFailure(t *testing.T) {
	client := LLMClientFunc(func(context.Context, LLMRequest) (LLMResponse, error) {
		return LLMResponse{}, errors.New("upstream 500")
	})
	metrics := &stubResponderMetrics{}
	r := NewLLMResponder(client, ResponderConfig{}, logging.New("error"), WithResponderMetrics(metrics))

	answer := r.Generate(context.Background(), "why is my dog limping", nil)

	assert.False(t, answer.OK)
	assert.False(t, answer.IsAppointmentIntent)
	assert.Equal(t, FallbackAnswer, answer.Text)
	assert.Contains(t, answer.ErrorDetail, "upstream 500")
	assert.Equal(t, "error", metrics.seen[0].status)
}

func TestLLMResponderEmptyCompletion(t *testing.T) {
	client := LLMClientFunc(func(context.Context, LLMRequest) (LLMResponse, error) {
		return LLMResponse{Text: "   "}, nil
	})
	r := NewLLMResponder(client, ResponderConfig{}, logging.New("error"))

	answer := r.Generate(context.Background(), "hello", nil)
	assert.False(t, answer.OK)
}

func TestLLMResponderMarkerOnlyCompletion(t *testing.T) {
	client := LLMClientFunc(func(context.Context, LLMRequest) (LLMResponse, error) {
		return LLMResponse{Text: " [APPOINTMENT_INTENT] "}, nil
	})
	r := NewLLMResponder(client, ResponderConfig{}, logging.New("error"))

	answer := r.Generate(context.Background(), "can the vet see Rex?", nil)
	assert.True(t, answer.OK)
	assert.True(t, answer.IsAppointmentIntent)
	assert.Equal(t, markerOnlyAnswer, answer.Text)
}

func TestSystemPromptAndMarker(t *testing.T) {
	prompt := BuildSystemPrompt("", Context{})
	assert.Contains(t, prompt, "the clinic")
	assert.Contains(t, prompt, appointmentMarker)
	assert.NotContains(t, prompt, "About this visitor")
	assert.Contains(t, prompt, "ONLY questions about veterinary topics")
	assert.Contains(t, prompt, OffTopicReply)
	assert.Contains(t, prompt, "Never give specific medication dosages")
	assert.Contains(t, prompt, "veterinarian in person")

	text, ok := extractMarker("  plain answer ")
	assert.False(t, ok)
	assert.Equal(t, "plain answer", text)

	text, ok = extractMarker("[APPOINTMENT_INTENT] let's book [APPOINTMENT_INTENT]")
	assert.True(t, ok)
	assert.Equal(t, "let's book", text)
}
