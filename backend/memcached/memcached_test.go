//go:build memcached_integration

// These tests need a live memcached on localhost:11211. Run with:
//
//	go test -tags memcached_integration ./backend/memcached/...

package memcached

import (
	"context"
	"errors"
	"testing"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexlimit-go/flexlimit/backend"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(memcache.New("localhost:11211"))
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.Get(context.Background(), "flexlimit-test-missing-key")
	assert.True(t, errors.Is(err, backend.ErrKeyMissing))
}

func TestCASRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := "flexlimit-test-cas"
	require.NoError(t, s.Delete(ctx, key))

	require.NoError(t, s.Set(ctx, key, []byte("v1"), nil))
	v, version, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)

	require.NoError(t, s.Set(ctx, key, []byte("v2"), version))

	_, staleVersion, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, key, []byte("v3"), staleVersion))

	// Reusing the version from before v3 was written should now conflict.
	err = s.Set(ctx, key, []byte("v4"), staleVersion)
	assert.Error(t, err)
}
