package limiter

import "time"

// FixedWindowState is the per-key state of a FixedWindow algorithm: the
// start of the current window and how many requests it has counted.
type FixedWindowState struct {
	WindowStart time.Time
	Count       uint32
}

func (s FixedWindowState) encode() []byte {
	buf := make([]byte, 0, 13)
	buf = append(buf, byte(VariantFixedWindow))
	buf = putUint64(buf, timeToMillis(s.WindowStart))
	buf = putUint32(buf, s.Count)
	return buf
}

func decodeFixedWindow(blob []byte) (FixedWindowState, error) {
	r := &reader{buf: blob[1:]}
	ws, err := r.uint64()
	if err != nil {
		return FixedWindowState{}, err
	}
	count, err := r.uint32()
	if err != nil {
		return FixedWindowState{}, err
	}
	if err := r.done(); err != nil {
		return FixedWindowState{}, err
	}
	return FixedWindowState{WindowStart: millisToTime(ws), Count: count}, nil
}

// FixedWindow divides time into fixed-length windows and rejects once a
// window has counted threshold requests.
type FixedWindow struct {
	threshold    uint32
	windowLength time.Duration
}

// NewFixedWindow builds a FixedWindow limiter. windowLength must be at
// least one millisecond (spec.md §4.2, "zero-duration must be rejected as
// invalid config"; the minimum is a full millisecond for consistency with
// the other three algorithms, whose elapsed-time arithmetic is millisecond
// granular).
func NewFixedWindow(threshold uint32, windowLength time.Duration) (*FixedWindow, error) {
	if windowLength < time.Millisecond {
		return nil, &ConfigError{Field: "windowLength", Value: windowLength, Reason: "must be at least one millisecond"}
	}
	return &FixedWindow{threshold: threshold, windowLength: windowLength}, nil
}

func (f *FixedWindow) Variant() Variant { return VariantFixedWindow }

// Threshold returns the configured request ceiling per window.
func (f *FixedWindow) Threshold() uint32 { return f.threshold }

// WindowLength returns the configured window duration.
func (f *FixedWindow) WindowLength() time.Duration { return f.windowLength }

func (f *FixedWindow) Evaluate(prev []byte, now time.Time) ([]byte, error) {
	if err := checkVariant(prev, VariantFixedWindow); err != nil {
		return nil, err
	}

	var state FixedWindowState
	if len(prev) > 0 {
		s, err := decodeFixedWindow(prev)
		if err != nil {
			return nil, err
		}
		state = s
	} else {
		state = FixedWindowState{WindowStart: now, Count: 0}
	}

	if elapsedMillis(now, state.WindowStart) >= f.windowLength.Milliseconds() {
		state.WindowStart = now
		state.Count = 0
	}

	if state.Count >= f.threshold {
		return nil, ErrRateExceeded
	}
	state.Count++
	return state.encode(), nil
}
