package navigation

import (
	"context"
	"math"
	"time"

	"backend-veloroute/internal/routing"
	"backend-veloroute/internal/shared/geo"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// rerouteState is the controller bookkeeping for one session. lastAt is
// refreshed on success, on failure, and on a position-delta rejection, so the
// cooldown stays meaningful in every case.
type rerouteState struct {
	inProgress bool
	lastAt     time.Time
	lastPos    geo.Point
	hasLast    bool
}

// RerouteOutcome tells the caller what the guard chain decided.
type RerouteOutcome struct {
	Status      string `json:"status"`
	WaitSeconds int    `json:"wait_seconds,omitempty"`
}

const (
	RerouteRequested = "requested"
	RerouteCooldown  = "cooldown"
	RerouteTooClose  = "too_close"
	RerouteInFlight  = "in_flight"
	RerouteIdle      = "idle"
)

// requestReroute runs the guard chain and, if it passes, kicks off the
// asynchronous route request. Guards are checked in order: active session,
// cooldown, position delta, single-flight.
func (m *Manager) requestReroute(s *Session) RerouteOutcome {
	s.mu.Lock()
	now := m.now()

	if !s.navigating || s.route == nil || s.lastFix == nil {
		s.mu.Unlock()
		return RerouteOutcome{Status: RerouteIdle}
	}

	if !s.reroute.lastAt.IsZero() {
		if remain := m.cfg.RerouteCooldown - now.Sub(s.reroute.lastAt); remain > 0 {
			id := s.id
			s.mu.Unlock()
			wait := int(math.Ceil(remain.Seconds()))
			m.publishSignal(Signal{Type: SignalRerouteCooldown, SessionID: id, WaitSeconds: wait})
			return RerouteOutcome{Status: RerouteCooldown, WaitSeconds: wait}
		}
	}

	cur := s.lastFix.Point()
	if s.reroute.hasLast && geo.DistanceM(cur, s.reroute.lastPos) < m.cfg.RerouteMinMoveM {
		// refresh the cooldown so a stationary rider cannot turn this
		// guard into a reroute storm
		s.reroute.lastAt = now
		id := s.id
		s.mu.Unlock()
		m.publishSignal(Signal{Type: SignalRerouteSkipped, SessionID: id, Reason: "insufficient movement since last reroute"})
		return RerouteOutcome{Status: RerouteTooClose}
	}

	if s.reroute.inProgress {
		s.mu.Unlock()
		return RerouteOutcome{Status: RerouteInFlight}
	}

	s.reroute.inProgress = true
	start := cur
	dest := s.route.Destination()
	pref := s.route.Preference
	s.mu.Unlock()

	m.spawn(func() { m.executeReroute(s, start, dest, pref) })
	return RerouteOutcome{Status: RerouteRequested}
}

// executeReroute performs the suspended part of a reroute: the network
// request, the settle delay, then the hot-swap. The in-progress flag stays
// set until the swap lands (or the attempt dies), so requests arriving during
// the settle window still collapse into this one. The session may have
// stopped in the meantime, in which case the result is discarded.
func (m *Manager) executeReroute(s *Session, start, dest geo.Point, pref string) {
	candidates, err := m.planner.Routes(context.Background(), start, dest, pref)

	s.mu.Lock()
	if !s.navigating {
		s.reroute.inProgress = false
		s.mu.Unlock()
		return
	}
	if err != nil || len(candidates) == 0 {
		// arm the cooldown on failure too; the old route stays in force
		s.reroute.inProgress = false
		s.reroute.lastAt = m.now()
		id := s.id
		s.mu.Unlock()
		log.Warn().Err(err).Str("session_id", id).Msg("Reroute request failed")
		m.publishSignal(Signal{Type: SignalRerouteFailed, SessionID: id, Reason: "route computation failed"})
		return
	}
	s.mu.Unlock()

	// brief gap between dropping the old route and presenting the new one,
	// so the presentation layer never renders both
	m.settle(m.cfg.RerouteSettle)

	chosen := chooseCandidate(candidates, pref)
	newRoute := RouteFromCandidate(uuid.NewString(), chosen)

	s.mu.Lock()
	if !s.navigating {
		s.reroute.inProgress = false
		s.mu.Unlock()
		return
	}
	s.route = newRoute
	s.maneuvers = DetectManeuvers(newRoute.Points, m.cfg.ManeuverSlightDeg, m.cfg.ManeuverSharpDeg)
	s.warnings = buildWarnings(newRoute, s.catalog, m.cfg.HazardToleranceM)
	s.segment = 0
	s.nextManeuver = FindNextManeuver(s.maneuvers, 0)
	s.distManeuverM = 0
	s.remainingM = newRoute.DistanceM
	s.remainingSec = newRoute.DurationMs / 1000
	s.offRoute = false
	s.offRouteDistM = 0
	s.offRoutePrompt = false
	s.arrivalSince = time.Time{}
	// the old gate window throttled fixes against the old route; the next
	// fix on the new one is accepted immediately
	s.gate.reset()
	s.reroute.inProgress = false
	s.reroute.lastAt = m.now()
	s.reroute.lastPos = start
	s.reroute.hasLast = true
	id := s.id
	snap := s.snapshotLocked()
	s.mu.Unlock()

	log.Info().Str("session_id", id).Float64("distance_m", newRoute.DistanceM).Msg("Reroute applied")
	m.publishSignal(Signal{Type: SignalRerouteApplied, SessionID: id})
	m.publishSnapshot(snap)
}

// chooseCandidate prefers the candidate matching the original route's
// preference tag, falling back to the first one.
func chooseCandidate(candidates []routing.Candidate, preference string) routing.Candidate {
	for _, cand := range candidates {
		if cand.Preference == preference {
			return cand
		}
	}
	return candidates[0]
}

// Plan asks the route-computation service for candidates and converts the
// best match into an active route.
func (m *Manager) Plan(ctx context.Context, start, end geo.Point, preference string) (*ActiveRoute, error) {
	candidates, err := m.planner.Routes(ctx, start, end, preference)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, routing.ErrNoRoutes
	}
	return RouteFromCandidate(uuid.NewString(), chooseCandidate(candidates, preference)), nil
}
