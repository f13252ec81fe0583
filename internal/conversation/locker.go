package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker serializes turns for the same session so concurrent requests cannot
// interleave their read-modify-write of the booking state.
type Locker interface {
	// Lock blocks until the session is held or ctx ends. The returned func
	// releases it.
	Lock(ctx context.Context, sessionID string) (func(), error)
}

// MemoryLocker is a process-local keyed mutex.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

// NewMemoryLocker creates an empty keyed mutex.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*keyedLock)}
}

func (l *MemoryLocker) Lock(ctx context.Context, sessionID string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[sessionID]
	if !ok {
		kl = &keyedLock{ch: make(chan struct{}, 1)}
		l.locks[sessionID] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(sessionID, kl, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() { once.Do(func() { l.release(sessionID, kl, true) }) }, nil
}

func (l *MemoryLocker) release(sessionID string, kl *keyedLock, held bool) {
	if held {
		<-kl.ch
	}
	l.mu.Lock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, sessionID)
	}
	l.mu.Unlock()
}

// ErrLockNotAcquired is returned when a Redis lock cannot be taken before the
// context deadline.
var ErrLockNotAcquired = errors.New("conversation: session lock not acquired")

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker serializes turns across API replicas with SET NX PX and a
// token-checked release. A held lock is re-armed every ttl/3 so a slow
// responder call cannot outlive it.
type RedisLocker struct {
	redis   *redis.Client
	ttl     time.Duration
	poll    time.Duration
	refresh time.Duration
}

// NewRedisLocker creates a distributed locker. ttl bounds how long a crashed
// holder can block the session.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{redis: client, ttl: ttl, poll: 25 * time.Millisecond, refresh: ttl / 3}
}

func (l *RedisLocker) Lock(ctx context.Context, sessionID string) (func(), error) {
	key := "vetchat:lock:" + sessionID
	token := NewSessionToken()

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()
	for {
		ok, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", ErrLockNotAcquired, ctx.Err())
			}
			return nil, fmt.Errorf("conversation: acquire session lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrLockNotAcquired, ctx.Err())
		case <-ticker.C:
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(context.WithoutCancel(ctx), key, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// Release must survive a cancelled request context.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, l.redis, []string{key}, token).Err()
		})
	}, nil
}

// keepAlive extends the lock until stop closes or the key stops holding
// token.
func (l *RedisLocker) keepAlive(ctx context.Context, key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.refresh)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			callCtx, cancel := context.WithTimeout(ctx, l.refresh)
			n, err := refreshScript.Run(callCtx, l.redis, []string{key}, token, l.ttl.Milliseconds()).Int64()
			cancel()
			if err == nil && n == 0 {
				return
			}
		}
	}
}
