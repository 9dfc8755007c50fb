package rediswatch

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexlimit-go/flexlimit/backend"
)

func newTestStore(t *testing.T) (*Store, *redis.Client) {
	t.Helper()
	srv, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewSingleNode(client), client
}

func TestGetMissing(t *testing.T) {
	s, _ := newTestStore(t)
	_, _, err := s.Get(context.Background(), "k")
	assert.True(t, errors.Is(err, backend.ErrKeyMissing))
}

func TestUnconditionalSetThenGet(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v1"), nil))
	v, version, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)
	assert.NotNil(t, version)
}

func TestCASSucceedsWhenUnchanged(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", []byte("v1"), nil))

	_, version, err := s.Get(ctx, "k")
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "k", []byte("v2"), version))

	v, _, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), v)
}

func TestCASFailsWhenChangedConcurrently(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", []byte("v1"), nil))

	_, version, err := s.Get(ctx, "k")
	require.NoError(t, err)

	// Someone else writes in between.
	require.NoError(t, s.Set(ctx, "k", []byte("interloper"), nil))

	err = s.Set(ctx, "k", []byte("v2"), version)
	assert.True(t, errors.Is(err, backend.ErrValueChanged))
}

func TestDeleteIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Delete(ctx, "absent"))

	require.NoError(t, s.Set(ctx, "k", []byte("v"), nil))
	require.NoError(t, s.Delete(ctx, "k"))
	_, _, err := s.Get(ctx, "k")
	assert.True(t, errors.Is(err, backend.ErrKeyMissing))
}
