package limiter

import "time"

// TokenBucketState is the per-key state of a TokenBucket algorithm.
type TokenBucketState struct {
	Tokens     float32
	LastAccess time.Time
}

func (s TokenBucketState) encode() []byte {
	buf := make([]byte, 0, 13)
	buf = append(buf, byte(VariantTokenBucket))
	buf = putFloat32(buf, s.Tokens)
	buf = putUint64(buf, timeToMillis(s.LastAccess))
	return buf
}

func decodeTokenBucket(blob []byte) (TokenBucketState, error) {
	r := &reader{buf: blob[1:]}
	tokens, err := r.float32()
	if err != nil {
		return TokenBucketState{}, err
	}
	lastAccess, err := r.uint64()
	if err != nil {
		return TokenBucketState{}, err
	}
	if err := r.done(); err != nil {
		return TokenBucketState{}, err
	}
	return TokenBucketState{Tokens: tokens, LastAccess: millisToTime(lastAccess)}, nil
}

// TokenBucket refills a capacity-bounded bucket by one token every
// fillFrequency and allows a request whenever at least one token is
// available.
type TokenBucket struct {
	capacity      uint32
	fillFrequency time.Duration
}

// NewTokenBucket builds a TokenBucket limiter. fillFrequency must be at
// least one millisecond, matching LeakyBucket's constraint: refill accrual
// is computed in milliseconds, and a sub-millisecond period would make
// fillFrequency.Milliseconds() truncate to zero.
func NewTokenBucket(capacity uint32, fillFrequency time.Duration) (*TokenBucket, error) {
	if fillFrequency < time.Millisecond {
		return nil, &ConfigError{Field: "fillFrequency", Value: fillFrequency, Reason: "must be at least one millisecond"}
	}
	return &TokenBucket{capacity: capacity, fillFrequency: fillFrequency}, nil
}

func (t *TokenBucket) Variant() Variant { return VariantTokenBucket }

// Capacity returns the configured bucket capacity.
func (t *TokenBucket) Capacity() uint32 { return t.capacity }

// FillFrequency returns the configured refill period (one token per period).
func (t *TokenBucket) FillFrequency() time.Duration { return t.fillFrequency }

func (t *TokenBucket) Evaluate(prev []byte, now time.Time) ([]byte, error) {
	if err := checkVariant(prev, VariantTokenBucket); err != nil {
		return nil, err
	}

	var state TokenBucketState
	if len(prev) > 0 {
		s, err := decodeTokenBucket(prev)
		if err != nil {
			return nil, err
		}
		state = s
	} else {
		state = TokenBucketState{Tokens: float32(t.capacity), LastAccess: now}
	}

	elapsed := elapsedMillis(now, state.LastAccess)
	state.Tokens += float32(elapsed) / float32(t.fillFrequency.Milliseconds())
	if state.Tokens > float32(t.capacity) {
		state.Tokens = float32(t.capacity)
	}

	if state.Tokens < 1 {
		// Credit keeps accruing toward the next decision: lastAccess is not
		// advanced on rejection.
		return nil, ErrRateExceeded
	}
	state.Tokens--
	state.LastAccess = now
	return state.encode(), nil
}
