package observations

import "time"

// Window is a half-open [Start, End) query interval.
type Window struct {
	Start time.Time
	End   time.Time
}

// Span returns the window length.
func (w Window) Span() time.Duration {
	return w.End.Sub(w.Start)
}

// WindowPolicy bounds caller-supplied time ranges. It is lenient by
// construction: bad input is narrowed to a valid window, never rejected.
// Callers needing strict validation should check the input themselves
// before normalizing.
type WindowPolicy struct {
	Lookback  time.Duration
	Lookahead time.Duration
	MaxSpan   time.Duration
}

// DefaultWindowPolicy returns the service defaults: three days of lookback,
// one day of lookahead, ten days maximum span.
func DefaultWindowPolicy() WindowPolicy {
	return WindowPolicy{
		Lookback:  3 * 24 * time.Hour,
		Lookahead: 24 * time.Hour,
		MaxSpan:   10 * 24 * time.Hour,
	}
}

// Normalize produces a window satisfying start < end and span <= MaxSpan.
// The clamping steps run in a fixed order:
//
//  1. missing start defaults to now - Lookback
//  2. missing end defaults to now + Lookahead
//  3. a start in the future is reset to now - Lookback
//  4. start at or after end is reset to end - 1 day
//  5. a span over MaxSpan moves start up to end - MaxSpan
//
// Re-normalizing an already-valid window with the same now is a no-op.
func (p WindowPolicy) Normalize(start, end *time.Time, now time.Time) Window {
	var w Window

	if start != nil {
		w.Start = *start
	} else {
		w.Start = now.Add(-p.Lookback)
	}
	if end != nil {
		w.End = *end
	} else {
		w.End = now.Add(p.Lookahead)
	}

	if w.Start.After(now) {
		w.Start = now.Add(-p.Lookback)
	}
	if !w.Start.Before(w.End) {
		w.Start = w.End.Add(-24 * time.Hour)
	}
	if w.End.Sub(w.Start) > p.MaxSpan {
		w.Start = w.End.Add(-p.MaxSpan)
	}
	return w
}
