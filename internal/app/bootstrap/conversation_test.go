package bootstrap

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/vetchat-assistant/internal/appointments"
	appconfig "github.com/wolfman30/vetchat-assistant/internal/config"
	"github.com/wolfman30/vetchat-assistant/internal/conversation"
	"github.com/wolfman30/vetchat-assistant/internal/notify"
	"github.com/wolfman30/vetchat-assistant/internal/observability/metrics"
	"github.com/wolfman30/vetchat-assistant/pkg/logging"
)

func TestBuildConversationEngineRequiresConfig(t *testing.T) {
	_, err := BuildConversationEngine(nil, EngineDeps{}, nil)
	assert.Error(t, err)

	_, err = BuildConversationEngine(&appconfig.Config{}, EngineDeps{}, nil)
	assert.Error(t, err)
}

func TestBuildConversationEngineHandlesTurn(t *testing.T) {
	cfg := &appconfig.Config{ClinicName: "Happy Paws", QAHistoryLimit: 10, LLMMaxTokens: 128, LLMTemperature: 0.2}
	llm := conversation.LLMClientFunc(func(context.Context, conversation.LLMRequest) (conversation.LLMResponse, error) {
		return conversation.LLMResponse{Text: "Brush weekly."}, nil
	})
	engine, err := BuildConversationEngine(cfg, EngineDeps{
		LLM:          llm,
		Store:        conversation.NewMemoryStore(),
		Appointments: appointments.NewInMemoryRepository(),
		Email:        notify.NewStubEmailSender(logging.New("error")),
		Metrics:      metrics.NewConversationMetrics(prometheus.NewRegistry()),
	}, logging.New("error"))
	require.NoError(t, err)

	reply, err := engine.HandleMessage(context.Background(), "", "how often should I brush my dog?")
	require.NoError(t, err)
	assert.Equal(t, "Brush weekly.", reply.Text)
}

func TestBuildLLMClientWithoutCredentialsFailsSoft(t *testing.T) {
	cfg := &appconfig.Config{LLMProvider: ProviderOpenAI, LLMFallbackProvider: ProviderBedrock}

	client, closer, err := BuildLLMClient(context.Background(), cfg, logging.New("error"))
	require.NoError(t, err)
	defer closer()

	_, err = client.Complete(context.Background(), conversation.LLMRequest{})
	assert.ErrorIs(t, err, errNoLLM)
}

func TestBuildLLMClientChainsFallback(t *testing.T) {
	cfg := &appconfig.Config{
		LLMProvider:         ProviderOpenAI,
		OpenAIAPIKey:        "sk-test",
		LLMFallbackProvider: ProviderBedrock,
		BedrockModelID:      "anthropic.claude-3-haiku",
		AWSRegion:           "us-east-1",
		AWSAccessKeyID:      "AKIDEXAMPLE",
		AWSSecretAccessKey:  "secret",
	}

	client, closer, err := BuildLLMClient(context.Background(), cfg, logging.New("error"))
	require.NoError(t, err)
	defer closer()
	assert.IsType(t, &conversation.FallbackLLMClient{}, client)
}

func TestBuildLLMClientSingleProvider(t *testing.T) {
	cfg := &appconfig.Config{LLMProvider: ProviderOpenAI, OpenAIAPIKey: "sk-test", LLMFallbackProvider: ProviderOpenAI}

	client, closer, err := BuildLLMClient(context.Background(), cfg, logging.New("error"))
	require.NoError(t, err)
	defer closer()
	assert.IsType(t, &conversation.OpenAILLMClient{}, client)
}

func TestBuildLLMClientUnknownProvider(t *testing.T) {
	_, _, err := buildProvider(context.Background(), "llama", &appconfig.Config{})
	assert.ErrorContains(t, err, "unknown llm provider")
}

func TestBuildRedisClient(t *testing.T) {
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{}, nil, true))

	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logging.New("error"), true)
	require.NotNil(t, client)
	defer client.Close()

	store, locker := BuildSessionStore(client, &appconfig.Config{}, logging.New("error"))
	assert.IsType(t, &conversation.RedisStore{}, store)
	assert.IsType(t, &conversation.RedisLocker{}, locker)

	store, locker = BuildSessionStore(nil, nil, logging.New("error"))
	assert.IsType(t, &conversation.MemoryStore{}, store)
	assert.IsType(t, &conversation.MemoryLocker{}, locker)
}

func TestBuildEmailSender(t *testing.T) {
	logger := logging.New("error")

	assert.IsType(t, &notify.StubEmailSender{}, BuildEmailSender(context.Background(), &appconfig.Config{}, logger))
	assert.IsType(t, &notify.StubEmailSender{}, BuildEmailSender(context.Background(), &appconfig.Config{ClinicNotifyEmail: "front@clinic.test"}, logger))

	sender := BuildEmailSender(context.Background(), &appconfig.Config{
		ClinicNotifyEmail: "front@clinic.test",
		SendGridAPIKey:    "SG.test",
		EmailFromAddress:  "bot@clinic.test",
	}, logger)
	assert.IsType(t, &notify.SendGridSender{}, sender)
}

func TestBuildAppointmentRepositoryWithoutPool(t *testing.T) {
	assert.IsType(t, &appointments.InMemoryRepository{}, BuildAppointmentRepository(nil, logging.New("error")))
}
