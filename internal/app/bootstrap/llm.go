package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/vetchat-assistant/internal/config"
	"github.com/wolfman30/vetchat-assistant/internal/conversation"
	"github.com/wolfman30/vetchat-assistant/pkg/logging"
)

const (
	ProviderGemini  = "gemini"
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"
)

// errNoLLM is what the placeholder client returns when no provider is usable.
var errNoLLM = errors.New("bootstrap: no llm provider configured")

// BuildLLMClient connects the primary provider and, when configured, a
// fallback. Without usable credentials it returns a client that always fails,
// so Q&A turns get the apology while keyword booking keeps working. The
// returned closer releases provider connections.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (conversation.LLMClient, func(), error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	var (
		chain   []conversation.NamedLLMClient
		closers []func()
	)
	for _, name := range providerOrder(cfg) {
		client, closer, err := buildProvider(ctx, name, cfg)
		if err != nil {
			logger.Warn("llm provider unavailable", "provider", name, "error", err)
			continue
		}
		if closer != nil {
			closers = append(closers, closer)
		}
		chain = append(chain, conversation.NamedLLMClient{Name: name, Client: client})
	}
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	switch len(chain) {
	case 0:
		logger.Warn("no llm provider configured; questions will receive the fallback reply")
		return conversation.LLMClientFunc(func(context.Context, conversation.LLMRequest) (conversation.LLMResponse, error) {
			return conversation.LLMResponse{}, errNoLLM
		}), closeAll, nil
	case 1:
		logger.Info("llm provider ready", "provider", chain[0].Name)
		return chain[0].Client, closeAll, nil
	default:
		logger.Info("llm providers ready", "primary", chain[0].Name, "fallback", chain[1].Name)
		return conversation.NewFallbackLLMClient(logger, chain...), closeAll, nil
	}
}

func providerOrder(cfg *appconfig.Config) []string {
	order := []string{cfg.LLMProvider}
	if fb := cfg.LLMFallbackProvider; fb != "" && fb != cfg.LLMProvider {
		order = append(order, fb)
	}
	return order
}

func buildProvider(ctx context.Context, name string, cfg *appconfig.Config) (conversation.LLMClient, func(), error) {
	switch name {
	case ProviderGemini:
		client, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, nil, err
		}
		return client, func() { _ = client.Close() }, nil
	case ProviderOpenAI:
		client, err := conversation.NewOpenAILLMClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			return nil, nil, err
		}
		return client, nil, nil
	case ProviderBedrock:
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			return nil, nil, errors.New("bootstrap: BEDROCK_MODEL_ID is required")
		}
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		api := bedrockruntime.NewFromConfig(awsCfg, func(o *bedrockruntime.Options) {
			if cfg.AWSEndpointOverride != "" {
				o.BaseEndpoint = aws.String(cfg.AWSEndpointOverride)
			}
		})
		return conversation.NewBedrockLLMClient(api, cfg.BedrockModelID), nil, nil
	default:
		return nil, nil, fmt.Errorf("bootstrap: unknown llm provider %q", name)
	}
}

// LoadAWSConfig resolves the region and, when both keys are set, static
// credentials; otherwise the default credential chain applies.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("bootstrap: load aws config: %w", err)
	}
	return awsCfg, nil
}
