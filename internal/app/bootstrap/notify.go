package bootstrap

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wolfman30/vetchat-assistant/internal/config"
	"github.com/wolfman30/vetchat-assistant/internal/notify"
	"github.com/wolfman30/vetchat-assistant/pkg/logging"
)

// BuildEmailSender selects SendGrid or SES from EMAIL_PROVIDER. Missing
// credentials give a logging stub.
func BuildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil || strings.TrimSpace(cfg.ClinicNotifyEmail) == "" {
		return notify.NewStubEmailSender(logger)
	}

	switch cfg.EmailProvider {
	case "ses":
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Warn("ses unavailable; clinic emails disabled", "error", err)
			return notify.NewStubEmailSender(logger)
		}
		logger.Info("clinic notifications via ses", "to", cfg.ClinicNotifyEmail)
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger)
	default:
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger)
		if sender == nil {
			logger.Warn("SENDGRID_API_KEY not set; clinic emails disabled")
			return notify.NewStubEmailSender(logger)
		}
		logger.Info("clinic notifications via sendgrid", "to", cfg.ClinicNotifyEmail)
		return sender
	}
}
