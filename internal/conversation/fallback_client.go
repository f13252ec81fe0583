package conversation

import (
	"context"
	"errors"

	"github.com/wolfman30/vetchat-assistant/pkg/logging"
)

// FallbackLLMClient tries each provider in order and returns the first
// success. It makes one attempt per provider; it never retries the same one.
type FallbackLLMClient struct {
	clients []LLMClient
	names   []string
	logger  *logging.Logger
}

// NamedLLMClient pairs a provider name with its client for logging.
type NamedLLMClient struct {
	Name   string
	Client LLMClient
}

// NewFallbackLLMClient chains providers; nil clients are skipped.
func NewFallbackLLMClient(logger *logging.Logger, providers ...NamedLLMClient) *FallbackLLMClient {
	if logger == nil {
		logger = logging.Default()
	}
	c := &FallbackLLMClient{logger: logger}
	for _, p := range providers {
		if p.Client == nil {
			continue
		}
		c.clients = append(c.clients, p.Client)
		c.names = append(c.names, p.Name)
	}
	return c
}

func (c *FallbackLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if len(c.clients) == 0 {
		return LLMResponse{}, errors.New("conversation: no llm provider configured")
	}
	var errs []error
	for i, client := range c.clients {
		resp, err := client.Complete(ctx, req)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback llm succeeded", "provider", c.names[i])
			}
			return resp, nil
		}
		errs = append(errs, err)
		c.logger.Warn("llm provider failed",
			"provider", c.names[i],
			"error", err,
			"fallback_available", i < len(c.clients)-1,
		)
		if ctx.Err() != nil {
			break
		}
	}
	return LLMResponse{}, errors.Join(errs...)
}
