package navigation

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"backend-veloroute/internal/config"
	"backend-veloroute/internal/hazard"
	"backend-veloroute/internal/routing"
	"backend-veloroute/internal/shared/geo"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var ErrSessionNotFound = errors.New("navigation: session not found")

// RoutePlanner requests candidate routes from the route-computation service.
type RoutePlanner interface {
	Routes(ctx context.Context, start, end geo.Point, preference string) ([]routing.Candidate, error)
}

// Broadcaster fans snapshots and signals out to the presentation layer.
type Broadcaster interface {
	Broadcast(sessionID string, payload []byte)
}

// Manager owns the live navigation sessions. Each rider has at most one;
// starting a new session replaces the previous one.
type Manager struct {
	cfg     config.NavConfig
	planner RoutePlanner
	hub     Broadcaster

	mu       sync.Mutex
	sessions map[string]*Session
	byRider  map[string]string

	// seams for tests
	now    func() time.Time
	spawn  func(func())
	settle func(time.Duration)
}

func NewManager(cfg config.NavConfig, planner RoutePlanner, hub Broadcaster) *Manager {
	return &Manager{
		cfg:      cfg,
		planner:  planner,
		hub:      hub,
		sessions: map[string]*Session{},
		byRider:  map[string]string{},
		now:      time.Now,
		spawn:    func(fn func()) { go fn() },
		settle:   time.Sleep,
	}
}

// Session is the mutable aggregate for one rider's active navigation. All
// fields are guarded by mu; the reroute goroutine is the only other writer.
type Session struct {
	mu sync.Mutex

	id         string
	riderID    string
	navigating bool

	route     *ActiveRoute
	maneuvers []Maneuver
	warnings  []Warning
	catalog   []hazard.Hazard

	segment       int
	nextManeuver  *Maneuver
	distManeuverM float64
	remainingM    float64
	remainingSec  int64

	offRoute       bool
	offRouteDistM  float64
	offRoutePrompt bool

	arrived      bool
	arrivalSince time.Time

	lastFix       *PositionFix
	tripDistanceM float64
	elapsed       time.Duration
	moving        time.Duration

	startedAt time.Time
	updatedAt time.Time

	gate    updateGate
	reroute rerouteState
}

// Start creates a navigation session for the route, replacing any session
// the rider already has. The hazard catalog snapshot is projected onto the
// route once, here.
func (m *Manager) Start(riderID string, route *ActiveRoute, catalog []hazard.Hazard) (Snapshot, error) {
	if riderID == "" {
		return Snapshot{}, errors.New("navigation: rider id required")
	}
	if route == nil || len(route.Points) < 2 {
		return Snapshot{}, errors.New("navigation: route needs at least two points")
	}

	now := m.now()
	s := &Session{
		id:         uuid.NewString(),
		riderID:    riderID,
		navigating: true,
		route:      route,
		catalog:    catalog,
		startedAt:  now,
		updatedAt:  now,
		gate:       updateGate{interval: m.cfg.GateInterval},
	}
	s.maneuvers = DetectManeuvers(route.Points, m.cfg.ManeuverSlightDeg, m.cfg.ManeuverSharpDeg)
	s.warnings = buildWarnings(route, catalog, m.cfg.HazardToleranceM)
	s.nextManeuver = FindNextManeuver(s.maneuvers, 0)
	s.remainingM = route.DistanceM
	s.remainingSec = route.DurationMs / 1000

	m.mu.Lock()
	if oldID, ok := m.byRider[riderID]; ok {
		if old := m.sessions[oldID]; old != nil {
			old.mu.Lock()
			old.navigating = false
			old.reroute = rerouteState{}
			old.mu.Unlock()
		}
		delete(m.sessions, oldID)
	}
	m.sessions[s.id] = s
	m.byRider[riderID] = s.id
	m.mu.Unlock()

	log.Info().Str("session_id", s.id).Str("rider_id", riderID).
		Float64("distance_m", route.DistanceM).Int("warnings", len(s.warnings)).
		Msg("Navigation started")

	snap := s.snapshot()
	m.publishSnapshot(snap)
	return snap, nil
}

// Stop ends a session and discards its state. Calling it for an unknown or
// already stopped session is a no-op.
func (m *Manager) Stop(sessionID string) {
	m.mu.Lock()
	s := m.sessions[sessionID]
	if s != nil {
		delete(m.sessions, sessionID)
		delete(m.byRider, s.riderID)
	}
	m.mu.Unlock()
	if s == nil {
		return
	}

	s.mu.Lock()
	s.navigating = false
	s.reroute = rerouteState{}
	s.mu.Unlock()

	log.Info().Str("session_id", sessionID).Msg("Navigation stopped")
}

func (m *Manager) Get(sessionID string) (Snapshot, error) {
	s := m.lookup(sessionID)
	if s == nil {
		return Snapshot{}, ErrSessionNotFound
	}
	return s.snapshot(), nil
}

// DismissOffRoutePrompt clears only the UI prompt; the geometric off-route
// flag keeps tracking the rider's actual distance from the route.
func (m *Manager) DismissOffRoutePrompt(sessionID string) error {
	s := m.lookup(sessionID)
	if s == nil {
		return ErrSessionNotFound
	}
	s.mu.Lock()
	s.offRoutePrompt = false
	s.mu.Unlock()
	return nil
}

// Recalculate is the user-initiated reroute. It runs through the same guard
// chain as the automatic trigger, so manual and automatic requests cannot
// starve or duplicate each other.
func (m *Manager) Recalculate(sessionID string) (RerouteOutcome, error) {
	s := m.lookup(sessionID)
	if s == nil {
		return RerouteOutcome{}, ErrSessionNotFound
	}
	return m.requestReroute(s), nil
}

// HandleFix feeds one raw position fix into the session. The gate drops
// fixes beyond one per interval; an accepted fix runs the full update
// pipeline. Returns the resulting snapshot and whether the fix was accepted.
func (m *Manager) HandleFix(sessionID string, fix PositionFix) (Snapshot, bool, error) {
	s := m.lookup(sessionID)
	if s == nil {
		return Snapshot{}, false, ErrSessionNotFound
	}

	now := m.now()
	if fix.RecordedAt.IsZero() {
		fix.RecordedAt = now
	}

	s.mu.Lock()
	if !s.navigating {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, false, nil
	}
	if !s.gate.accept(now) {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, false, nil
	}

	// the controller fires only when off-route becomes newly true; a rider
	// who stays off-route retries by hand (or corrects back onto the route)
	wasOff := s.offRoute
	signals := s.applyFix(fix, now, m.cfg)
	triggerReroute := s.offRoute && !wasOff && !s.reroute.inProgress
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if triggerReroute {
		m.requestReroute(s)
	}

	m.publishSnapshot(snap)
	for _, sig := range signals {
		m.publishSignal(sig)
	}
	return snap, true, nil
}

// applyFix is the per-fix update pipeline. Caller holds s.mu.
func (s *Session) applyFix(fix PositionFix, now time.Time, cfg config.NavConfig) []Signal {
	p := fix.Point()

	// segment index never regresses within one route; it resets only when
	// the route itself is replaced
	if seg := geo.ClosestSegment(p, s.route.Points); seg > s.segment {
		s.segment = seg
	}

	speedKmh := -1.0
	if fix.SpeedMps != nil {
		speedKmh = *fix.SpeedMps * 3.6
	}
	distToRoute := geo.DistanceToRoute(p, s.route.Points)
	wasOff := s.offRoute
	s.offRoute = distToRoute > geo.OffRouteThreshold(speedKmh, cfg.OffRouteBaseM)
	s.offRouteDistM = distToRoute
	if s.offRoute && !wasOff {
		s.offRoutePrompt = true
	} else if !s.offRoute {
		s.offRoutePrompt = false
	}

	along := geo.ProgressAlongRoute(p, s.route.Points, s.route.Cumulative, s.segment)
	kept := s.warnings[:0]
	for _, w := range s.warnings {
		w.DistanceAheadM = w.DistanceAlongM - along
		if w.DistanceAheadM > 0 {
			kept = append(kept, w)
		}
	}
	s.warnings = kept

	s.nextManeuver = FindNextManeuver(s.maneuvers, s.segment)
	s.distManeuverM = DistanceToManeuver(p, s.route.Points, s.route.Cumulative, s.segment, s.nextManeuver)
	s.remainingM = geo.RemainingDistance(p, s.route.Points, s.segment)

	// instantaneous speed: reported, else derived from the position delta
	speed := -1.0
	if fix.SpeedMps != nil {
		speed = *fix.SpeedMps
	} else if s.lastFix != nil {
		if dt := fix.RecordedAt.Sub(s.lastFix.RecordedAt); dt > 0 {
			speed = geo.DistanceM(s.lastFix.Point(), p) / dt.Seconds()
		}
	}

	eff := speed
	if eff <= 0 && s.moving > 0 {
		eff = s.tripDistanceM / s.moving.Seconds()
	}
	if eff < cfg.MinETASpeed {
		eff = cfg.MinETASpeed
	}
	s.remainingSec = int64(s.remainingM / eff)

	var signals []Signal
	signals = s.evaluateArrival(p, fix, speed, now, cfg, signals)

	if s.lastFix != nil {
		if dt := fix.RecordedAt.Sub(s.lastFix.RecordedAt); dt > 0 {
			s.tripDistanceM += geo.DistanceM(s.lastFix.Point(), p)
			s.elapsed += dt
			if speed > cfg.MovingSpeedFloor {
				s.moving += dt
			}
		}
	}
	fixCopy := fix
	s.lastFix = &fixCopy
	s.updatedAt = now

	return signals
}

// evaluateArrival applies the dwell-confirmed arrival policy: the rider must
// stay inside the arrival zone, below the speed ceiling, for the full dwell
// window before the flag latches. A single noisy sample near the endpoint
// never arrives.
func (s *Session) evaluateArrival(p geo.Point, fix PositionFix, speed float64, now time.Time, cfg config.NavConfig, signals []Signal) []Signal {
	if s.arrived {
		return signals
	}

	destDist := geo.DistanceM(p, s.route.Destination())
	accuracyOK := fix.AccuracyM == nil || *fix.AccuracyM <= cfg.ArrivalMaxAccM
	speedVal := speed
	if speedVal < 0 {
		speedVal = 0
	}

	if destDist <= cfg.ArrivalRadiusM && accuracyOK && speedVal <= cfg.ArrivalMaxSpeed {
		if s.arrivalSince.IsZero() {
			s.arrivalSince = now
		} else if now.Sub(s.arrivalSince) >= cfg.ArrivalDwell {
			s.arrived = true
			log.Info().Str("session_id", s.id).Msg("Arrival confirmed")
			signals = append(signals, Signal{Type: SignalArrived, SessionID: s.id})
		}
	} else {
		s.arrivalSince = time.Time{}
	}
	return signals
}

func (m *Manager) lookup(sessionID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[sessionID]
}

func (s *Session) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	state := "idle"
	if s.navigating {
		state = "navigating"
	}

	trip := TripStats{
		DistanceM:  s.tripDistanceM,
		ElapsedSec: s.elapsed.Seconds(),
		MovingSec:  s.moving.Seconds(),
	}
	if s.elapsed > 0 {
		trip.AvgSpeedMps = s.tripDistanceM / s.elapsed.Seconds()
	}
	if s.moving > 0 {
		trip.AvgMovingSpeedMps = s.tripDistanceM / s.moving.Seconds()
	}

	snap := Snapshot{
		SessionID:           s.id,
		RiderID:             s.riderID,
		State:               state,
		SegmentIndex:        s.segment,
		DistanceToManeuverM: s.distManeuverM,
		RemainingM:          s.remainingM,
		RemainingSec:        s.remainingSec,
		OffRoute:            s.offRoute,
		OffRouteDistanceM:   s.offRouteDistM,
		OffRoutePrompt:      s.offRoutePrompt,
		Arrived:             s.arrived,
		Warnings:            append([]Warning(nil), s.warnings...),
		Trip:                trip,
		UpdatedAt:           s.updatedAt,
	}
	if s.route != nil {
		snap.RouteID = s.route.ID
		snap.Preference = s.route.Preference
		snap.RouteDistanceM = s.route.DistanceM
	}
	if s.nextManeuver != nil {
		man := *s.nextManeuver
		snap.NextManeuver = &man
	}
	if s.lastFix != nil {
		pos := *s.lastFix
		snap.Position = &pos
	}
	return snap
}

// buildWarnings merges projected hazards and surface warnings into one list
// sorted by distance along the route.
func buildWarnings(route *ActiveRoute, catalog []hazard.Hazard, toleranceM float64) []Warning {
	warnings := AnalyzeRouteSurface(route)
	for _, p := range hazard.DetectOnRoute(route.Points, route.Cumulative, catalog, toleranceM) {
		warnings = append(warnings, Warning{
			Kind:           WarningHazard,
			DistanceAlongM: p.DistanceAlongM,
			HazardID:       p.Hazard.ID,
			Title:          p.Hazard.Title,
			Category:       p.Hazard.Category,
		})
	}
	sort.Slice(warnings, func(i, j int) bool {
		return warnings[i].DistanceAlongM < warnings[j].DistanceAlongM
	})
	for i := range warnings {
		warnings[i].DistanceAheadM = warnings[i].DistanceAlongM
	}
	return warnings
}

func (m *Manager) publishSnapshot(snap Snapshot) {
	if m.hub == nil {
		return
	}
	payload, err := json.Marshal(struct {
		Type     string   `json:"type"`
		Snapshot Snapshot `json:"snapshot"`
	}{"snapshot", snap})
	if err != nil {
		return
	}
	m.hub.Broadcast(snap.SessionID, payload)
}

func (m *Manager) publishSignal(sig Signal) {
	if m.hub == nil {
		return
	}
	payload, err := json.Marshal(sig)
	if err != nil {
		return
	}
	m.hub.Broadcast(sig.SessionID, payload)
}
