package limiter

import "fmt"

// State is the decoded view of a persisted blob, returned by DecodeAny for
// read-only inspection (Coordinator.Inspect). It is always one of
// FixedWindowState, SlidingWindowState, TokenBucketState or
// LeakyBucketState.
type State interface {
	Variant() Variant
}

func (s FixedWindowState) Variant() Variant   { return VariantFixedWindow }
func (s SlidingWindowState) Variant() Variant { return VariantSlidingWindow }
func (s TokenBucketState) Variant() Variant   { return VariantTokenBucket }
func (s LeakyBucketState) Variant() Variant   { return VariantLeakyBucket }

// DecodeAny decodes blob into whichever State variant its tag identifies,
// without requiring the caller to know the configured Algorithm in advance.
// It is used by Coordinator.Inspect, which is read-only and must not assume
// the persisted value matches any particular limiter.
func DecodeAny(blob []byte) (State, error) {
	v, err := peekVariant(blob)
	if err != nil {
		return nil, err
	}
	switch v {
	case VariantFixedWindow:
		return decodeFixedWindow(blob)
	case VariantSlidingWindow:
		return decodeSlidingWindow(blob)
	case VariantTokenBucket:
		return decodeTokenBucket(blob)
	case VariantLeakyBucket:
		return decodeLeakyBucket(blob)
	default:
		return nil, fmt.Errorf("%w: unknown variant tag %d", ErrMalformedValue, v)
	}
}
