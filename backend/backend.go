// Package backend defines the keyed byte-blob store contract that a
// flexlimit Coordinator depends on, plus the retrying wrappers every backend
// shares. Concrete implementations (in-process map, Redis, Redis Cluster,
// Memcached) live in sibling packages.
package backend

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors returned by Backend methods.
var (
	// ErrKeyMissing is returned by Get when the key has no stored value.
	// It is never retried by GetWithRetries — it is a semantic outcome, not
	// a failure.
	ErrKeyMissing = errors.New("backend: key missing")

	// ErrValueChanged is returned by Set when a supplied version no longer
	// matches the stored value (or, for session-valued backends, when the
	// watched key changed since the paired Get). It is never retried by
	// SetWithRetries.
	ErrValueChanged = errors.New("backend: value changed")
)

// TransientError wraps an underlying I/O failure (network error, pool
// exhaustion, lock poisoning, protocol error). It is the only error kind
// GetWithRetries and SetWithRetries will retry; DeleteWithRetries retries
// every error.
type TransientError struct {
	Op  string
	Key string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("backend: transient error during %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Version is the opaque compare-and-swap token returned by Get and
// optionally supplied to Set. Its concrete type is backend-specific (a
// *memcache.Item for the Memcached backend, the []byte that was read for
// Redis, nil-only for the in-process map) — callers must treat it as opaque
// and only ever pass back the exact value a Get just returned. A nil Version
// on Get means the key was missing, the backend ignores versions (the
// in-process map), or the backend is session-valued (it tracks
// the read implicitly, e.g. via Redis WATCH, rather than handing back a
// token). A nil Version on Set means an unconditional write for
// token-valued backends, but session-valued backends must still honour any
// outstanding watch from the paired Get (spec open question: "conflict is
// detected, not conflict is detected via the token argument").
type Version = interface{}

// Backend is a keyed byte-blob store with optimistic concurrency control.
// Implementations must be safe for concurrent use by multiple goroutines.
type Backend interface {
	// Get retrieves the bytes and version stored at key, or ErrKeyMissing.
	Get(ctx context.Context, key string) ([]byte, Version, error)

	// Set stores value at key. If version is non-nil, the write succeeds
	// only if the currently stored value's version matches; otherwise it
	// returns ErrValueChanged. If version is nil, the write is unconditional
	// for token-valued backends, though session-valued backends may still
	// reject it if their implicit watch observed a change.
	Set(ctx context.Context, key string, value []byte, version Version) error

	// Delete removes key. It is idempotent: deleting an absent key is not
	// an error.
	Delete(ctx context.Context, key string) error
}

// GetWithRetries calls b.Get up to tries times, retrying only on
// TransientError. ErrKeyMissing is returned immediately without retry.
func GetWithRetries(ctx context.Context, b Backend, key string, tries int) ([]byte, Version, error) {
	var lastErr error
	for i := 0; i < tries; i++ {
		value, version, err := b.Get(ctx, key)
		if err == nil {
			return value, version, nil
		}
		if errors.Is(err, ErrKeyMissing) {
			return nil, nil, err
		}
		var te *TransientError
		if !errors.As(err, &te) {
			return nil, nil, err
		}
		lastErr = err
	}
	return nil, nil, lastErr
}

// SetWithRetries calls b.Set up to tries times, retrying only on
// TransientError. ErrValueChanged is returned immediately without retry.
func SetWithRetries(ctx context.Context, b Backend, key string, value []byte, version Version, tries int) error {
	var lastErr error
	for i := 0; i < tries; i++ {
		err := b.Set(ctx, key, value, version)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrValueChanged) {
			return err
		}
		var te *TransientError
		if !errors.As(err, &te) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

// DeleteWithRetries calls b.Delete up to tries times, retrying any error.
func DeleteWithRetries(ctx context.Context, b Backend, key string, tries int) error {
	var lastErr error
	for i := 0; i < tries; i++ {
		err := b.Delete(ctx, key)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return lastErr
}
