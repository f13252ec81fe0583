package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/wolfman30/vetchat-assistant/internal/intent"
	"github.com/wolfman30/vetchat-assistant/pkg/logging"
)

// FallbackAnswer is returned to the router when the model call fails.
const FallbackAnswer = "I'm sorry, I couldn't come up with an answer just now."

// ResponderMetrics receives one observation per model call.
type ResponderMetrics interface {
	ObserveResponder(status string, seconds float64)
}

// ResponderConfig tunes the model call.
type ResponderConfig struct {
	ClinicName  string
	Model       string
	MaxTokens   int32
	Temperature float32
}

// LLMResponder answers pet-care questions through an LLMClient and turns the
// appointment sentinel into a structured flag.
type LLMResponder struct {
	client   LLMClient
	detector intent.Matcher
	cfg      ResponderConfig
	metrics  ResponderMetrics
	logger   *logging.Logger
}

// ResponderOption customizes an LLMResponder.
type ResponderOption func(*LLMResponder)

// WithResponderMetrics records call outcomes and latency.
func WithResponderMetrics(m ResponderMetrics) ResponderOption {
	return func(r *LLMResponder) { r.metrics = m }
}

// WithIntentDetector replaces the keyword set used for the post-answer check.
func WithIntentDetector(m intent.Matcher) ResponderOption {
	return func(r *LLMResponder) {
		if m != nil {
			r.detector = m
		}
	}
}

// NewLLMResponder wires a responder around an already-connected client.
func NewLLMResponder(client LLMClient, cfg ResponderConfig, logger *logging.Logger, opts ...ResponderOption) *LLMResponder {
	if client == nil {
		panic("conversation: llm client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	r := &LLMResponder{
		client:   client,
		detector: intent.AppointmentKeywords,
		cfg:      cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Generate never returns an error: failures come back as OK=false with a
// fallback text.
func (r *LLMResponder) Generate(ctx context.Context, message string, history []intent.Message) intent.Answer {
	req := LLMRequest{
		Model:       r.cfg.Model,
		System:      []string{BuildSystemPrompt(r.cfg.ClinicName, callerContextFrom(ctx))},
		Messages:    make([]ChatMessage, 0, len(history)+1),
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
	}
	for _, h := range history {
		role := ChatRoleUser
		if h.Role == RoleAssistant {
			role = ChatRoleAssistant
		}
		req.Messages = append(req.Messages, ChatMessage{Role: role, Content: h.Content})
	}
	req.Messages = append(req.Messages, ChatMessage{Role: ChatRoleUser, Content: message})

	start := time.Now()
	resp, err := r.client.Complete(ctx, req)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		r.observe("error", elapsed)
		r.logger.Warn("conversation: responder call failed", "error", err)
		return intent.Answer{Text: FallbackAnswer, OK: false, ErrorDetail: err.Error()}
	}

	text, marked := extractMarker(resp.Text)
	if strings.TrimSpace(text) == "" && !marked {
		r.observe("empty", elapsed)
		return intent.Answer{Text: FallbackAnswer, OK: false, ErrorDetail: "empty completion"}
	}
	if guard := ScanAnswer(text); guard.Blocked {
		r.observe("blocked", elapsed)
		r.logger.Warn("conversation: responder answer blocked", "reasons", guard.Reasons)
		return intent.Answer{Text: FallbackAnswer, OK: false, ErrorDetail: "answer blocked: " + strings.Join(guard.Reasons, ",")}
	}
	r.observe("ok", elapsed)
	if text == "" {
		text = markerOnlyAnswer
	}

	return intent.Answer{
		Text: text,
		// The keyword re-check covers models that forget the sentinel.
		IsAppointmentIntent: marked || r.detector.Match(message),
		OK:                  true,
	}
}

func (r *LLMResponder) observe(status string, seconds float64) {
	if r.metrics != nil {
		r.metrics.ObserveResponder(status, seconds)
	}
}

type callerContextKey struct{}

// withCallerContext attaches session metadata for the system prompt.
func withCallerContext(ctx context.Context, c Context) context.Context {
	return context.WithValue(ctx, callerContextKey{}, c)
}

func callerContextFrom(ctx context.Context) Context {
	c, _ := ctx.Value(callerContextKey{}).(Context)
	return c
}
