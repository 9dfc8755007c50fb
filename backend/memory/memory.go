// Package memory implements an in-process backend.Backend over a
// mutex-guarded map. It is intended for single-process use only: the
// version token is ignored on both sides, so every Set is an unconditional
// write and concurrent CAS is never contended (there is only ever one
// writer-of-record, the current process).
package memory

import (
	"context"
	"sync"

	"github.com/flexlimit-go/flexlimit/backend"
)

// Store is a mutex-guarded in-process implementation of backend.Backend.
type Store struct {
	mu   sync.Mutex
	data map[string][]byte
}

// New creates an empty Store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, backend.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.data[key]
	if !ok {
		return nil, nil, backend.ErrKeyMissing
	}
	// Copy so callers can't mutate our stored bytes through the slice they
	// were handed back.
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, _ backend.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]byte, len(value))
	copy(cp, value)
	s.data[key] = cp
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}
