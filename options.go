package flexlimit

import (
	"github.com/flexlimit-go/flexlimit/backend"
	"github.com/flexlimit-go/flexlimit/internal/clock"
	"github.com/flexlimit-go/flexlimit/limiter"
)

// Option configures a Coordinator. Apply options via New.
type Option func(*Coordinator) error

// WithBackend sets the shared-state store. Required.
func WithBackend(b backend.Backend) Option {
	return func(c *Coordinator) error {
		c.backend = b
		return nil
	}
}

// WithLimiter sets the counter algorithm and its parameters. Required.
func WithLimiter(l limiter.Algorithm) Option {
	return func(c *Coordinator) error {
		c.limiter = l
		return nil
	}
}

// WithFailureStrategy overrides the default RetryAndAllow(2) policy applied
// to transient backend errors.
func WithFailureStrategy(s RetryStrategy) Option {
	return func(c *Coordinator) error {
		c.failureStrategy = s
		return nil
	}
}

// WithConflictStrategy overrides the default RetryAndDeny(2) policy applied
// to CAS conflicts.
func WithConflictStrategy(s RetryStrategy) Option {
	return func(c *Coordinator) error {
		c.conflictStrategy = s
		return nil
	}
}

// WithHasher installs a pure string→string key preprocessor, applied once
// before every backend call. Useful for bounding key cardinality or
// anonymising raw identifiers. Default is the identity function.
func WithHasher(fn func(string) string) Option {
	return func(c *Coordinator) error {
		c.hasher = fn
		return nil
	}
}

// WithDiscardInvalidStored makes a malformed or wrong-variant stored value
// be treated as absent (a fresh start) instead of surfaced as a denial.
// Default false.
func WithDiscardInvalidStored(discard bool) Option {
	return func(c *Coordinator) error {
		c.discardInvalidStored = discard
		return nil
	}
}

// WithClock overrides the time source used for every Decide call. Tests
// inject clock.NewMock(); production code should leave this unset, which
// defaults to the system clock.
func WithClock(c2 clock.Clock) Option {
	return func(c *Coordinator) error {
		c.clock = c2
		return nil
	}
}
