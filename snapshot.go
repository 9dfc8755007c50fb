package flexlimit

import (
	"context"
	"time"

	"github.com/flexlimit-go/flexlimit/limiter"
)

// Snapshot is a derived, human-friendly view of a key's current counter
// state: a limit, how much of it is used, how much remains, and when the
// picture next changes. It is computed from whatever Inspect returns, so it
// is additive to the raw state — callers that want the exact persisted
// fields should use Inspect directly.
type Snapshot struct {
	Key       string
	Limit     uint32
	Used      uint32
	Remaining uint32
	ResetAt   time.Time
}

// Snapshot computes a Snapshot for rawKey, or ErrKeyNotFound if it has no
// stored state yet.
func (c *Coordinator) Snapshot(ctx context.Context, rawKey string) (Snapshot, error) {
	state, err := c.Inspect(ctx, rawKey)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{Key: rawKey}
	switch s := state.(type) {
	case limiter.FixedWindowState:
		snap.Used = s.Count
		if fw, ok := c.limiter.(*limiter.FixedWindow); ok {
			snap.Limit = fw.Threshold()
			snap.Remaining = remaining(snap.Limit, s.Count)
			snap.ResetAt = s.WindowStart.Add(fw.WindowLength())
		}

	case limiter.SlidingWindowState:
		snap.Used = s.Current.Count
		if sw, ok := c.limiter.(*limiter.SlidingWindow); ok {
			snap.Limit = sw.Threshold()
			snap.Remaining = remaining(snap.Limit, s.Current.Count)
			snap.ResetAt = s.Current.WindowStart.Add(sw.WindowLength())
		}

	case limiter.TokenBucketState:
		if tb, ok := c.limiter.(*limiter.TokenBucket); ok {
			snap.Limit = tb.Capacity()
			avail := uint32(s.Tokens)
			snap.Remaining = avail
			snap.Used = remaining(tb.Capacity(), avail)
			snap.ResetAt = s.LastAccess.Add(tb.FillFrequency())
		}

	case limiter.LeakyBucketState:
		if lb, ok := c.limiter.(*limiter.LeakyBucket); ok {
			snap.Limit = lb.Capacity()
			snap.Used = s.Processed
			snap.Remaining = remaining(lb.Capacity(), s.Processed)
			snap.ResetAt = s.LastLeaked.Add(lb.LeakFrequency())
		}
	}
	return snap, nil
}

func remaining(limit, used uint32) uint32 {
	if used >= limit {
		return 0
	}
	return limit - used
}
