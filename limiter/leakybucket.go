package limiter

import "time"

// LeakyBucketState is the per-key state of a LeakyBucket algorithm.
type LeakyBucketState struct {
	Processed  uint32
	LastLeaked time.Time
}

func (s LeakyBucketState) encode() []byte {
	buf := make([]byte, 0, 13)
	buf = append(buf, byte(VariantLeakyBucket))
	buf = putUint32(buf, s.Processed)
	buf = putUint64(buf, timeToMillis(s.LastLeaked))
	return buf
}

func decodeLeakyBucket(blob []byte) (LeakyBucketState, error) {
	r := &reader{buf: blob[1:]}
	processed, err := r.uint32()
	if err != nil {
		return LeakyBucketState{}, err
	}
	lastLeaked, err := r.uint64()
	if err != nil {
		return LeakyBucketState{}, err
	}
	if err := r.done(); err != nil {
		return LeakyBucketState{}, err
	}
	return LeakyBucketState{Processed: processed, LastLeaked: millisToTime(lastLeaked)}, nil
}

// LeakyBucket enforces a strict constant processing rate: the bucket leaks
// one unit every leakFrequency, and a request is allowed only while the
// bucket has room below capacity.
type LeakyBucket struct {
	capacity      uint32
	leakFrequency time.Duration
}

// NewLeakyBucket builds a LeakyBucket limiter. leakFrequency must be at
// least one millisecond: leak accrual is computed in milliseconds, and a
// sub-millisecond period would divide by zero on the first Evaluate.
func NewLeakyBucket(capacity uint32, leakFrequency time.Duration) (*LeakyBucket, error) {
	if leakFrequency < time.Millisecond {
		return nil, &ConfigError{Field: "leakFrequency", Value: leakFrequency, Reason: "must be at least one millisecond"}
	}
	return &LeakyBucket{capacity: capacity, leakFrequency: leakFrequency}, nil
}

func (l *LeakyBucket) Variant() Variant { return VariantLeakyBucket }

// Capacity returns the configured bucket capacity.
func (l *LeakyBucket) Capacity() uint32 { return l.capacity }

// LeakFrequency returns the configured leak period (one unit per period).
func (l *LeakyBucket) LeakFrequency() time.Duration { return l.leakFrequency }

func (l *LeakyBucket) Evaluate(prev []byte, now time.Time) ([]byte, error) {
	if err := checkVariant(prev, VariantLeakyBucket); err != nil {
		return nil, err
	}

	var state LeakyBucketState
	if len(prev) > 0 {
		s, err := decodeLeakyBucket(prev)
		if err != nil {
			return nil, err
		}
		state = s
	} else {
		state = LeakyBucketState{Processed: 0, LastLeaked: now}
	}

	elapsed := elapsedMillis(now, state.LastLeaked)
	leaked := uint32(elapsed / l.leakFrequency.Milliseconds())
	if leaked > state.Processed {
		leaked = state.Processed
	}
	state.Processed -= leaked
	state.LastLeaked = now

	if state.Processed >= l.capacity {
		return nil, ErrRateExceeded
	}
	state.Processed++
	return state.encode(), nil
}
