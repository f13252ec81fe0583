package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/vetchat-assistant/internal/appointments"
	appconfig "github.com/wolfman30/vetchat-assistant/internal/config"
	"github.com/wolfman30/vetchat-assistant/internal/conversation"
	"github.com/wolfman30/vetchat-assistant/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available, falling back to in-memory sessions", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildSessionStore picks Redis-backed sessions and locks when a client is
// available, in-memory ones otherwise.
func BuildSessionStore(redisClient *redis.Client, cfg *appconfig.Config, logger *logging.Logger) (conversation.Store, conversation.Locker) {
	if logger == nil {
		logger = logging.Default()
	}
	if redisClient == nil || cfg == nil {
		logger.Warn("using in-memory session store; sessions are lost on restart")
		return conversation.NewMemoryStore(), conversation.NewMemoryLocker()
	}
	logger.Info("using redis session store", "ttl", cfg.SessionTTL.String())
	return conversation.NewRedisStore(redisClient, cfg.SessionTTL), conversation.NewRedisLocker(redisClient, cfg.SessionLockTTL)
}

// BuildAppointmentRepository uses Postgres when a pool is available.
func BuildAppointmentRepository(pool *pgxpool.Pool, logger *logging.Logger) appointments.Repository {
	if pool == nil {
		if logger == nil {
			logger = logging.Default()
		}
		logger.Warn("DATABASE_URL not set; appointments are kept in memory")
		return appointments.NewInMemoryRepository()
	}
	return appointments.NewPostgresRepository(pool)
}
