// Package memcached implements backend.Backend over
// github.com/bradfitz/gomemcache, using its CompareAndSwap command for
// optimistic concurrency. This is a token-valued backend: Get returns the
// *memcache.Item it read (its unexported cas id travels with it), and Set
// must be handed back that same Item to perform a conditional write.
package memcached

import (
	"context"
	"errors"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/flexlimit-go/flexlimit/backend"
)

// Store wraps a *memcache.Client as a backend.Backend.
type Store struct {
	client *memcache.Client
}

// New wraps an already-configured memcache client.
func New(client *memcache.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, backend.Version, error) {
	item, err := s.client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, nil, backend.ErrKeyMissing
	}
	if err != nil {
		return nil, nil, &backend.TransientError{Op: "get", Key: key, Err: err}
	}
	return item.Value, item, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, version backend.Version) error {
	if version == nil {
		item := &memcache.Item{Key: key, Value: value}
		if err := s.client.Set(item); err != nil {
			return &backend.TransientError{Op: "set", Key: key, Err: err}
		}
		return nil
	}

	prior, ok := version.(*memcache.Item)
	if !ok {
		return &backend.TransientError{Op: "set", Key: key, Err: errors.New("memcached: version is not a *memcache.Item")}
	}

	// CompareAndSwap reads the cas id carried on prior (set internally by
	// the client during Get) rather than one we could extract ourselves —
	// gomemcache keeps it unexported, so the Item itself is our opaque
	// version token.
	casItem := *prior
	casItem.Value = value

	if err := s.client.CompareAndSwap(&casItem); err != nil {
		if errors.Is(err, memcache.ErrCASConflict) || errors.Is(err, memcache.ErrNotStored) {
			return backend.ErrValueChanged
		}
		return &backend.TransientError{Op: "cas", Key: key, Err: err}
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Delete(key); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return &backend.TransientError{Op: "delete", Key: key, Err: err}
	}
	return nil
}
