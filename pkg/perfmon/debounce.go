package perfmon

import (
	"sync/atomic"
	"time"
)

// neverFired is the lastFired value of a kind that has not alerted yet.
const neverFired int64 = 0

// Debouncer rate-limits alerts per SignalKind. Each kind owns a single atomic
// timestamp that is only ever advanced by compare-and-swap, so among callers
// racing inside one cooldown window exactly one wins.
type Debouncer struct {
	policy    *ThresholdPolicy
	lastFired [numSignalKinds]atomic.Int64 // unix nanos
}

// NewDebouncer creates a debouncer that reads cooldowns from policy.
func NewDebouncer(policy *ThresholdPolicy) *Debouncer {
	return &Debouncer{policy: policy}
}

// MaybeFire reports whether the caller should emit an alert for kind at now.
// It returns false while now is within the cooldown of the previous alert
// (inclusive), and false when another caller claimed the window first.
func (d *Debouncer) MaybeFire(kind SignalKind, now time.Time) bool {
	cooldown := d.policy.Get(kind).Cooldown
	slot := &d.lastFired[kind]

	last := slot.Load()
	if last != neverFired && time.Duration(now.UnixNano()-last) <= cooldown {
		return false
	}
	return slot.CompareAndSwap(last, now.UnixNano())
}

// LastFired returns when kind last alerted, and false if it never has.
func (d *Debouncer) LastFired(kind SignalKind) (time.Time, bool) {
	d.policy.Get(kind)
	last := d.lastFired[kind].Load()
	if last == neverFired {
		return time.Time{}, false
	}
	return time.Unix(0, last), true
}
