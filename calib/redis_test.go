package calib

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/emacontrol/go-ema/geometry"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, opts ...RedisOption) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := NewRedisStoreFromClient(client, opts...)
	t.Cleanup(func() { _ = store.Close() })

	return store, mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetPosition(ctx, "squirrel", geometry.Pos(1.1, 5, 3.3)))

	p, err := store.Position(ctx, "squirrel")
	require.NoError(t, err)
	assert.Equal(t, geometry.Pos(1.1, 5, 3.3), p)

	assert.Equal(t, "1.1,5,3.3", mr.HGet(DefaultRedisKey, "squirrel"))
}

func TestRedisStore_MissingKey(t *testing.T) {
	store, _ := newRedisStore(t)

	_, err := store.Position(context.Background(), DiffrCalibXYZ)
	require.ErrorIs(t, err, ErrMissingKey)
}

func TestRedisStore_CustomKeyAndPositions(t *testing.T) {
	store, mr := newRedisStore(t, WithRedisKey("i04:positions"))
	ctx := context.Background()
	assert.Equal(t, "i04:positions", store.Key())

	mr.HSet("i04:positions", DiffrHome, "7.0,6.232,-1.866")
	require.NoError(t, store.SetPosition(ctx, SpinCalibXYZ, geometry.Pos(982, 393, -653)))

	all, err := store.Positions(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]geometry.Position{
		DiffrHome:    geometry.Pos(7.0, 6.232, -1.866),
		SpinCalibXYZ: geometry.Pos(982, 393, -653),
	}, all)

	mr.HSet("i04:positions", "broken", "x")
	_, err = store.Positions(ctx)
	require.ErrorIs(t, err, ErrMalformedPosition)
}

func TestRedisStore_ServerDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	store := NewRedisStoreFromClient(backend.NewClient(&backend.Options{Addr: mr.Addr(), MaxRetries: -1}))
	defer store.Close()
	mr.Close()

	_, err = store.Position(context.Background(), DiffrHome)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrMissingKey)
}
