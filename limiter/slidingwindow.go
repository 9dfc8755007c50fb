package limiter

import "time"

// windowPart is one of the two adjacent windows a SlidingWindow tracks.
type windowPart struct {
	WindowStart time.Time
	Count       uint32
}

// SlidingWindowState is the per-key state of a SlidingWindow algorithm: the
// current window plus the previous one, used to interpolate a smoothed
// virtual count across the boundary.
type SlidingWindowState struct {
	Current  windowPart
	Previous windowPart
}

func (s SlidingWindowState) encode() []byte {
	buf := make([]byte, 0, 25)
	buf = append(buf, byte(VariantSlidingWindow))
	buf = putUint64(buf, timeToMillis(s.Current.WindowStart))
	buf = putUint32(buf, s.Current.Count)
	buf = putUint64(buf, timeToMillis(s.Previous.WindowStart))
	buf = putUint32(buf, s.Previous.Count)
	return buf
}

func decodeSlidingWindow(blob []byte) (SlidingWindowState, error) {
	r := &reader{buf: blob[1:]}
	curStart, err := r.uint64()
	if err != nil {
		return SlidingWindowState{}, err
	}
	curCount, err := r.uint32()
	if err != nil {
		return SlidingWindowState{}, err
	}
	prevStart, err := r.uint64()
	if err != nil {
		return SlidingWindowState{}, err
	}
	prevCount, err := r.uint32()
	if err != nil {
		return SlidingWindowState{}, err
	}
	if err := r.done(); err != nil {
		return SlidingWindowState{}, err
	}
	return SlidingWindowState{
		Current:  windowPart{WindowStart: millisToTime(curStart), Count: curCount},
		Previous: windowPart{WindowStart: millisToTime(prevStart), Count: prevCount},
	}, nil
}

// SlidingWindow smooths the boundary jump of a fixed window by weighting the
// previous window's count into the current one while keeping constant
// per-key state (two counters, not individual request timestamps).
type SlidingWindow struct {
	threshold    uint32
	windowLength time.Duration
}

// NewSlidingWindow builds a SlidingWindow limiter. windowLength must be at
// least one millisecond, for the same reason as FixedWindow.
func NewSlidingWindow(threshold uint32, windowLength time.Duration) (*SlidingWindow, error) {
	if windowLength < time.Millisecond {
		return nil, &ConfigError{Field: "windowLength", Value: windowLength, Reason: "must be at least one millisecond"}
	}
	return &SlidingWindow{threshold: threshold, windowLength: windowLength}, nil
}

func (s *SlidingWindow) Variant() Variant { return VariantSlidingWindow }

// Threshold returns the configured virtual-count ceiling.
func (s *SlidingWindow) Threshold() uint32 { return s.threshold }

// WindowLength returns the configured window duration.
func (s *SlidingWindow) WindowLength() time.Duration { return s.windowLength }

func (s *SlidingWindow) Evaluate(prev []byte, now time.Time) ([]byte, error) {
	if err := checkVariant(prev, VariantSlidingWindow); err != nil {
		return nil, err
	}

	var state SlidingWindowState
	if len(prev) > 0 {
		decoded, err := decodeSlidingWindow(prev)
		if err != nil {
			return nil, err
		}
		state = decoded
	} else {
		state = SlidingWindowState{
			Current:  windowPart{WindowStart: now, Count: 0},
			Previous: windowPart{WindowStart: now, Count: 0},
		}
	}

	windowMs := s.windowLength.Milliseconds()
	if state.Current.WindowStart.UnixMilli()+windowMs < now.UnixMilli() {
		state.Previous = state.Current
		state.Current = windowPart{WindowStart: now, Count: 0}
	}

	// start/prevEnd are computed in int64 milliseconds since epoch, so a
	// negative overlap clamps to 0 instead of wrapping around. weight is not
	// clamped to [0,1]: at a fresh key previous.WindowStart equals now, so
	// overlap is 2*windowMs and weight is 2. previous.Count is 0 there, so the
	// previous window still adds nothing to virtual.
	start := now.UnixMilli() - windowMs
	prevEnd := state.Previous.WindowStart.UnixMilli() + windowMs
	overlap := prevEnd - start
	if overlap < 0 {
		overlap = 0
	}
	weight := float64(overlap) / float64(windowMs)

	virtual := float64(state.Previous.Count)*weight + float64(state.Current.Count)
	if virtual >= float64(s.threshold) {
		return nil, ErrRateExceeded
	}

	state.Current.Count++
	return state.encode(), nil
}
