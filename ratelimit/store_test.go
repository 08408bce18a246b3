package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgredis "github.com/pubproxy/pubproxy-go/pkg/redis"
)

func setupTestStore(t *testing.T) *RedisStore {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := pkgredis.New(context.Background(), pkgredis.Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
	})

	return NewRedisStore(client, "keyless", testLogger())
}

func TestRedisStore_LoadEmpty(t *testing.T) {
	store := setupTestStore(t)

	state, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	saved := State{
		NextAllowed: time.Date(2024, 6, 15, 12, 0, 1, 0, time.UTC),
		Remaining:   42,
		LastReset:   time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(ctx, saved))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, loaded.NextAllowed.Equal(saved.NextAllowed))
	assert.Equal(t, saved.Remaining, loaded.Remaining)
	assert.True(t, loaded.LastReset.Equal(saved.LastReset))
}

func TestRedisStore_TiersAreIsolated(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := pkgredis.New(context.Background(), pkgredis.Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
	})

	ctx := context.Background()
	keyless := NewRedisStore(client, "keyless", testLogger())
	keyed := NewRedisStore(client, "keyed", testLogger())

	require.NoError(t, keyless.Save(ctx, State{Remaining: 7}))

	state, err := keyed.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestRedisStore_GarbledPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := pkgredis.New(context.Background(), pkgredis.Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
	})

	mr.Set("pubproxy:ratestate:keyless", "not json")

	store := NewRedisStore(client, "keyless", testLogger())
	state, err := store.Load(context.Background())
	assert.Error(t, err)
	assert.Nil(t, state)
}
