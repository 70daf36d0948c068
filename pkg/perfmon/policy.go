package perfmon

import (
	"errors"
	"fmt"
	"time"
)

// Threshold is the alerting rule for one signal kind.
type Threshold struct {
	// Value is expressed in the unit of the signal (ms, percent).
	Value      float64
	Cooldown   time.Duration
	Comparison Comparison
}

// ThresholdInfo is the JSON view of a Threshold.
type ThresholdInfo struct {
	Value      float64    `json:"value"`
	CooldownMs int64      `json:"cooldown_ms"`
	Comparison Comparison `json:"comparison"`
}

// ThresholdPolicy maps each SignalKind to its Threshold. It is immutable once built.
type ThresholdPolicy struct {
	thresholds [numSignalKinds]Threshold
}

// DefaultPolicy returns the built-in thresholds: responses slower than 500ms,
// cache hit rate under 50% and memory use over 85%.
func DefaultPolicy() *ThresholdPolicy {
	p := &ThresholdPolicy{}
	p.thresholds[ResponseTime] = Threshold{Value: 500, Cooldown: time.Minute, Comparison: Above}
	p.thresholds[CacheHitRate] = Threshold{Value: 50, Cooldown: time.Minute, Comparison: Below}
	p.thresholds[Memory] = Threshold{Value: 85, Cooldown: 5 * time.Minute, Comparison: Above}
	return p
}

// NewPolicy builds a policy from the defaults with the given overrides applied.
// An override with an empty Comparison keeps the default direction.
func NewPolicy(overrides map[SignalKind]Threshold) (*ThresholdPolicy, error) {
	p := DefaultPolicy()

	var errs []error
	for kind, t := range overrides {
		if !kind.valid() {
			errs = append(errs, fmt.Errorf("unknown signal kind %d", int(kind)))
			continue
		}
		if t.Comparison == "" {
			t.Comparison = p.thresholds[kind].Comparison
		}
		if err := validateThreshold(kind, t); err != nil {
			errs = append(errs, err)
			continue
		}
		p.thresholds[kind] = t
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid threshold policy: %w", errors.Join(errs...))
	}
	return p, nil
}

func validateThreshold(kind SignalKind, t Threshold) error {
	if t.Comparison != Above && t.Comparison != Below {
		return fmt.Errorf("%s: unsupported comparison %q", kind, t.Comparison)
	}
	if t.Value <= 0 {
		return fmt.Errorf("%s: threshold must be positive, got %v", kind, t.Value)
	}
	if t.Cooldown <= 0 {
		return fmt.Errorf("%s: cooldown must be positive, got %s", kind, t.Cooldown)
	}
	if (kind == CacheHitRate || kind == Memory) && t.Value > 100 {
		return fmt.Errorf("%s: percentage threshold must be at most 100, got %v", kind, t.Value)
	}
	return nil
}

// Get returns the threshold for kind. An unknown kind is a programming error and panics.
func (p *ThresholdPolicy) Get(kind SignalKind) Threshold {
	if !kind.valid() {
		panic(fmt.Sprintf("perfmon: unknown signal kind %d", int(kind)))
	}
	return p.thresholds[kind]
}

// Breached reports whether value crosses the threshold for kind. Equality never breaches.
func (p *ThresholdPolicy) Breached(kind SignalKind, value float64) bool {
	t := p.Get(kind)
	switch t.Comparison {
	case Above:
		return value > t.Value
	case Below:
		return value < t.Value
	default:
		return false
	}
}

// Snapshot returns the thresholds keyed by signal name.
func (p *ThresholdPolicy) Snapshot() map[string]ThresholdInfo {
	out := make(map[string]ThresholdInfo, numSignalKinds)
	for _, kind := range Kinds() {
		t := p.thresholds[kind]
		out[kind.String()] = ThresholdInfo{
			Value:      t.Value,
			CooldownMs: t.Cooldown.Milliseconds(),
			Comparison: t.Comparison,
		}
	}
	return out
}
