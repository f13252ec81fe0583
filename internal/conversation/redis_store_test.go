package conversation

import (
	"context"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/vetchat-assistant/internal/booking"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStoreRoundTrip(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewRedisStore(client, 0)
	ctx := context.Background()

	sess, err := store.Create(ctx, Context{DisplayName: "Jane", Source: "widget"})
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	sess.append(RoleUser, "book a visit", time.Now().UTC())
	sess.Booking = booking.State{Active: true, Step: booking.StepAskingPet, Data: booking.Data{OwnerName: "Jane"}}
	require.NoError(t, store.Save(ctx, sess))

	loaded, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", loaded.Context.DisplayName)
	require.Len(t, loaded.Messages, 1)
	assert.Equal(t, "book a visit", loaded.Messages[0].Content)
	assert.Equal(t, booking.StepAskingPet, loaded.Booking.Step)
	assert.Equal(t, "Jane", loaded.Booking.Data.OwnerName)
}

func TestRedisStoreMissingSession(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewRedisStore(client, 0)

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStoreNormalizesInconsistentState(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client, 0)

	doc := `{"id":"s1","messages":[],"context":{},"booking_state":{"is_active":false,"current_step":"asking_phone","collected_data":{"owner_name":"Jane"}}}`
	require.NoError(t, mr.Set(sessionKeyPrefix+"s1", doc))

	loaded, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, booking.Idle(), loaded.Booking)
}

func TestRedisStoreAppliesTTL(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client, time.Hour)

	sess, err := store.Create(context.Background(), Context{})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, mr.TTL(sessionKeyPrefix+sess.ID))

	mr.FastForward(2 * time.Hour)
	_, err = store.Get(context.Background(), sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStoreReportsUnavailable(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client, 0)
	mr.Close()

	_, err := store.Get(context.Background(), "s1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStoreIsolatesCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess, err := store.Create(ctx, Context{})
	require.NoError(t, err)
	sess.append(RoleUser, "hello", time.Now())

	loaded, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.Messages)

	require.NoError(t, store.Save(ctx, sess))
	loaded, err = store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Messages, 1)
}

func TestRedisStoreCreateWithIDKeepsClientToken(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client, time.Hour)
	ctx := context.Background()

	sess, err := store.CreateWithID(ctx, "client-token-1", Context{PetName: "Rex"})
	require.NoError(t, err)
	assert.Equal(t, "client-token-1", sess.ID)
	assert.Equal(t, time.Hour, mr.TTL(sessionKeyPrefix+"client-token-1"))

	sess.append(RoleUser, "hi", time.Now().UTC())
	require.NoError(t, store.Save(ctx, sess))

	// A second claim on the same token returns the stored session untouched.
	again, err := store.CreateWithID(ctx, "client-token-1", Context{PetName: "Other"})
	require.NoError(t, err)
	assert.Equal(t, "Rex", again.Context.PetName)
	assert.Len(t, again.Messages, 1)
}

func TestMemoryStoreCreateWithID(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess, err := store.CreateWithID(ctx, "abc", Context{Source: "widget"})
	require.NoError(t, err)
	assert.Equal(t, "abc", sess.ID)

	again, err := store.CreateWithID(ctx, "abc", Context{Source: "other"})
	require.NoError(t, err)
	assert.Equal(t, "widget", again.Context.Source)
}

func TestValidSessionToken(t *testing.T) {
	assert.True(t, ValidSessionToken("client-token_1"))
	assert.True(t, ValidSessionToken(NewSessionToken()))
	assert.False(t, ValidSessionToken(""))
	assert.False(t, ValidSessionToken("has space"))
	assert.False(t, ValidSessionToken("a:b"))
	assert.False(t, ValidSessionToken(strings.Repeat("x", 129)))
}
