package progress

import "sync"

// Sink receives progress reports. fraction is in [0, 1]; stage is a short
// human-readable label. Implementations must not block for long.
type Sink interface {
	Report(fraction float64, stage string)
}

// Func adapts a function to Sink.
type Func func(fraction float64, stage string)

// Report calls f.
func (f Func) Report(fraction float64, stage string) { f(fraction, stage) }

type nop struct{}

func (nop) Report(float64, string) {}

// Nop discards every report.
var Nop Sink = nop{}

// OrNop returns s, or Nop when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop
	}
	return s
}

// Clamp bounds f to [0, 1].
func Clamp(f float64) float64 {
	switch {
	case f != f: // NaN
		return 0
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

type monotonic struct {
	mu    sync.Mutex
	inner Sink
	last  float64
}

// Monotonic wraps sink so reported values never decrease, even when the
// stage label changes. A report that would regress is forwarded with the
// previous high-water mark instead. Use one Monotonic per phase.
func Monotonic(sink Sink) Sink {
	return &monotonic{inner: OrNop(sink)}
}

func (m *monotonic) Report(fraction float64, stage string) {
	fraction = Clamp(fraction)
	m.mu.Lock()
	if fraction < m.last {
		fraction = m.last
	}
	m.last = fraction
	m.mu.Unlock()
	m.inner.Report(fraction, stage)
}

type ranged struct {
	inner  Sink
	lo, hi float64
}

// Range maps a sub-task's [0, 1] progress onto [lo, hi] of sink.
func Range(sink Sink, lo, hi float64) Sink {
	lo, hi = Clamp(lo), Clamp(hi)
	if hi < lo {
		lo, hi = hi, lo
	}
	return &ranged{inner: OrNop(sink), lo: lo, hi: hi}
}

func (r *ranged) Report(fraction float64, stage string) {
	r.inner.Report(r.lo+Clamp(fraction)*(r.hi-r.lo), stage)
}

// Fanout forwards each report to every sink.
func Fanout(sinks ...Sink) Sink {
	return Func(func(fraction float64, stage string) {
		for _, s := range sinks {
			if s != nil {
				s.Report(fraction, stage)
			}
		}
	})
}
