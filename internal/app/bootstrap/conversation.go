package bootstrap

import (
	"fmt"

	"github.com/wolfman30/vetchat-assistant/internal/appointments"
	"github.com/wolfman30/vetchat-assistant/internal/booking"
	appconfig "github.com/wolfman30/vetchat-assistant/internal/config"
	"github.com/wolfman30/vetchat-assistant/internal/conversation"
	"github.com/wolfman30/vetchat-assistant/internal/intent"
	"github.com/wolfman30/vetchat-assistant/internal/notify"
	"github.com/wolfman30/vetchat-assistant/internal/observability/metrics"
	"github.com/wolfman30/vetchat-assistant/pkg/logging"
)

// EngineDeps are the already-connected collaborators of the chat engine.
type EngineDeps struct {
	LLM          conversation.LLMClient
	Store        conversation.Store
	Locker       conversation.Locker
	Appointments appointments.Repository
	Email        notify.EmailSender
	Metrics      *metrics.ConversationMetrics
}

// BuildConversationEngine wires responder, router, flow and engine from config.
func BuildConversationEngine(cfg *appconfig.Config, deps EngineDeps, logger *logging.Logger) (*conversation.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if deps.LLM == nil {
		return nil, fmt.Errorf("bootstrap: llm client is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	var responderOpts []conversation.ResponderOption
	if deps.Metrics != nil {
		responderOpts = append(responderOpts, conversation.WithResponderMetrics(deps.Metrics))
	}
	responder := conversation.NewLLMResponder(deps.LLM, conversation.ResponderConfig{
		ClinicName:  cfg.ClinicName,
		MaxTokens:   int32(cfg.LLMMaxTokens),
		Temperature: float32(cfg.LLMTemperature),
	}, logger, responderOpts...)

	engineCfg := conversation.EngineConfig{
		Store:        deps.Store,
		Locker:       deps.Locker,
		Router:       intent.NewRouter(intent.AppointmentKeywords, responder, logger),
		Flow:         booking.NewFlow(booking.AffirmativeKeywords, booking.NegativeKeywords),
		Appointments: deps.Appointments,
		HistoryLimit: cfg.QAHistoryLimit,
		Logger:       logger,
	}
	if deps.Email != nil {
		engineCfg.Notifier = notify.NewService(deps.Email, cfg.ClinicNotifyEmail, cfg.ClinicName, logger)
	}
	if deps.Metrics != nil {
		engineCfg.Metrics = deps.Metrics
	}
	return conversation.NewEngine(engineCfg)
}
