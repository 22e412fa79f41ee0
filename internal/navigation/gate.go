package navigation

import "time"

// updateGate throttles the raw fix stream to one fix per interval. Excess
// fixes are dropped, never queued: only the latest position matters at
// cycling speeds, and matching every sample would burn battery for nothing.
type updateGate struct {
	interval time.Duration
	last     time.Time
}

func (g *updateGate) accept(now time.Time) bool {
	if !g.last.IsZero() && now.Sub(g.last) < g.interval {
		return false
	}
	g.last = now
	return true
}

func (g *updateGate) reset() {
	g.last = time.Time{}
}
