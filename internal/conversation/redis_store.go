package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const sessionKeyPrefix = "vetchat:session:"

// RedisStore keeps each session as a JSON document under one key.
type RedisStore struct {
	redis  *redis.Client
	tracer trace.Tracer
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore creates a Redis-backed store. ttl <= 0 keeps sessions forever.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{
		redis:  client,
		tracer: otel.Tracer("vetchat.internal.conversation.sessions"),
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.session.load")
	defer span.End()

	data, err := s.redis.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: decode session: %w", err)
	}
	sess.Booking = sess.Booking.Normalize()
	return &sess, nil
}

func (s *RedisStore) Create(ctx context.Context, c Context) (*Session, error) {
	sess := newSession("", c, s.now())
	if err := s.write(ctx, sess, "conversation.session.create"); err != nil {
		return nil, err
	}
	return sess, nil
}

// CreateWithID claims id with SET NX so two replicas racing on the same new
// token end up sharing one session.
func (s *RedisStore) CreateWithID(ctx context.Context, id string, c Context) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.session.create")
	defer span.End()

	sess := newSession(id, c, s.now())
	data, err := json.Marshal(sess)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: marshal session: %w", err)
	}
	ok, err := s.redis.SetNX(ctx, sessionKey(id), data, s.ttl).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: persist session: %w", err)
	}
	if !ok {
		return s.Get(ctx, id)
	}
	return sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	return s.write(ctx, sess, "conversation.session.save")
}

func (s *RedisStore) write(ctx context.Context, sess *Session, spanName string) error {
	ctx, span := s.tracer.Start(ctx, spanName)
	defer span.End()

	data, err := json.Marshal(sess)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(sess.ID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: persist session: %w", err)
	}
	return nil
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}
