// Package flexlimit is a distributed rate-limiting coordinator: it composes
// a pluggable counter algorithm (package limiter) with a pluggable
// shared-state backend with optimistic concurrency (package backend) and a
// configurable retry policy on both transient failure and write conflicts.
//
// Concrete backends (in-process map, Memcached, Redis, Redis Cluster) live
// in backend/memory, backend/memcached and backend/rediswatch. A minimal
// net/http adapter lives in httpmw.
//
// Example:
//
//	c, err := flexlimit.New(
//		flexlimit.WithBackend(memory.New()),
//		flexlimit.WithLimiter(tb),
//		flexlimit.WithConflictStrategy(flexlimit.RetryAndDeny(3)),
//	)
//	allowed, err := c.Decide(ctx, "user:123")
package flexlimit

import (
	"context"
	"errors"
	"time"

	"github.com/flexlimit-go/flexlimit/backend"
	"github.com/flexlimit-go/flexlimit/internal/clock"
	"github.com/flexlimit-go/flexlimit/limiter"
)

// Coordinator orchestrates one rate-limit decision per key: read the
// persisted counter state, evaluate it against the configured limiter, and
// write the result back with optimistic concurrency, retrying per its two
// independent RetryStrategy policies. A Coordinator holds no mutable state
// of its own between calls — all of it lives behind the backend — so one
// instance is safe to call from arbitrarily many goroutines at once.
type Coordinator struct {
	backend backend.Backend
	limiter limiter.Algorithm
	hasher  func(string) string
	clock   clock.Clock

	failureStrategy  RetryStrategy
	conflictStrategy RetryStrategy

	discardInvalidStored bool
}

// New builds a Coordinator from the given options. WithBackend and
// WithLimiter are required; every other option has the default described on
// its doc comment.
func New(opts ...Option) (*Coordinator, error) {
	c := &Coordinator{
		hasher:           func(s string) string { return s },
		clock:            clock.New(),
		failureStrategy:  RetryAndAllow(2),
		conflictStrategy: RetryAndDeny(2),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.backend == nil {
		return nil, &InvalidConfigError{Field: "backend", Reason: "required"}
	}
	if c.limiter == nil {
		return nil, &InvalidConfigError{Field: "limiter", Reason: "required"}
	}
	return c, nil
}

// Decide runs one read-evaluate-write cycle for rawKey and reports whether
// it is allowed. A non-nil error is always a *DeniedError.
//
// now is sampled exactly once per call, before the conflict-retry loop
// begins, per §9's clock-injection rule: every attempt within one Decide
// call — including ones restarted by a CAS conflict — sees the same now, so
// a retry storm can never manufacture monotonicity bugs by reading the
// clock more than once per decision.
func (c *Coordinator) Decide(ctx context.Context, rawKey string) (bool, error) {
	key := c.hasher(rawKey)
	now := c.clock.Now()

	fTries := c.failureStrategy.attempts()
	cTries := c.conflictStrategy.attempts()

	var lastConflictErr error
	for attempt := 0; attempt < cTries; attempt++ {
		blob, version, err := backend.GetWithRetries(ctx, c.backend, key, fTries)
		switch {
		case errors.Is(err, backend.ErrKeyMissing):
			blob, version = nil, nil
		case err != nil:
			return c.onFailure(rawKey, err)
		}

		newBlob, reason, evalErr := c.evaluate(blob, now)
		if evalErr != nil {
			if reason == ReasonRateExceeded {
				return false, &DeniedError{Key: rawKey, Reason: ReasonRateExceeded}
			}
			// WrongVariant or MalformedStoredValue: the stored bytes don't
			// belong to the configured limiter.
			if !c.discardInvalidStored {
				return false, &DeniedError{Key: rawKey, Reason: reason, Err: evalErr}
			}
			newBlob, reason, evalErr = c.evaluate(nil, now)
			if evalErr != nil {
				if reason == ReasonRateExceeded {
					return false, &DeniedError{Key: rawKey, Reason: ReasonRateExceeded}
				}
				return false, &DeniedError{Key: rawKey, Reason: reason, Err: evalErr}
			}
			version = nil
		}

		err = backend.SetWithRetries(ctx, c.backend, key, newBlob, version, fTries)
		if err == nil {
			return true, nil
		}
		if errors.Is(err, backend.ErrValueChanged) {
			lastConflictErr = err
			continue
		}
		return c.onFailure(rawKey, err)
	}

	if c.conflictStrategy.allowOnExhaustion {
		return true, nil
	}
	return false, &DeniedError{Key: rawKey, Reason: ReasonBackendConflict, Err: lastConflictErr}
}

// evaluate runs the configured limiter and classifies any error into the
// Reason taxonomy the coordinator surfaces to callers. Reason is
// ReasonNone when err is nil.
func (c *Coordinator) evaluate(blob []byte, now time.Time) ([]byte, Reason, error) {
	newBlob, err := c.limiter.Evaluate(blob, now)
	if err == nil {
		return newBlob, ReasonNone, nil
	}
	switch {
	case errors.Is(err, limiter.ErrRateExceeded):
		return nil, ReasonRateExceeded, err
	case errors.Is(err, limiter.ErrWrongVariant):
		return nil, ReasonWrongVariant, err
	default:
		return nil, ReasonMalformedStoredValue, err
	}
}

func (c *Coordinator) onFailure(rawKey string, err error) (bool, error) {
	if c.failureStrategy.allowOnExhaustion {
		return true, nil
	}
	return false, &DeniedError{Key: rawKey, Reason: ReasonBackendError, Err: err}
}

// Inspect returns the current persisted state for key without mutating it,
// for observability. It returns ErrKeyNotFound if the key has no stored
// state, and limiter.ErrMalformedValue if the stored bytes don't decode as
// any known variant (Inspect never applies discardInvalidStored — that
// policy only governs Decide's own read-modify-write cycle).
func (c *Coordinator) Inspect(ctx context.Context, rawKey string) (limiter.State, error) {
	key := c.hasher(rawKey)
	blob, _, err := c.backend.Get(ctx, key)
	if errors.Is(err, backend.ErrKeyMissing) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return limiter.DecodeAny(blob)
}

// Reset deletes the persisted state for key, giving it a fresh start on the
// next Decide call. It retries transient backend errors per the same
// failureStrategy as Decide.
func (c *Coordinator) Reset(ctx context.Context, rawKey string) error {
	key := c.hasher(rawKey)
	return backend.DeleteWithRetries(ctx, c.backend, key, c.failureStrategy.attempts())
}
