package navigation

import (
	"errors"
	"testing"
	"time"

	"backend-veloroute/internal/routing"
	"backend-veloroute/internal/shared/geo"
)

func rerouteCandidates() []routing.Candidate {
	return []routing.Candidate{{
		Preference: "fastest",
		Points: []geo.Point{
			{Lat: 0, Lng: 0},
			{Lat: 0, Lng: 0.002},
			{Lat: 0, Lng: 0.004},
			{Lat: 0, Lng: 0.006},
		},
		DistanceM:  670,
		DurationMs: 150_000,
	}}
}

func TestRecalculateWithoutFixIsIdle(t *testing.T) {
	m, _ := newTestManager(&fakePlanner{candidates: rerouteCandidates()}, &fakeHub{})
	start, _ := m.Start("rider-1", straightRoute(10), nil)

	outcome, err := m.Recalculate(start.SessionID)
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if outcome.Status != RerouteIdle {
		t.Errorf("expected idle before any position fix, got %q", outcome.Status)
	}

	if _, err := m.Recalculate("no-such-session"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRerouteCooldownAndPositionGuard(t *testing.T) {
	planner := &fakePlanner{candidates: rerouteCandidates()}
	hub := &fakeHub{}
	m, clock := newTestManager(planner, hub)
	start, _ := m.Start("rider-1", straightRoute(10), nil)
	m.HandleFix(start.SessionID, fixAt(0, 0))

	outcome, _ := m.Recalculate(start.SessionID)
	if outcome.Status != RerouteRequested {
		t.Fatalf("expected first recalculate to run, got %q", outcome.Status)
	}
	if planner.callCount() != 1 {
		t.Fatalf("expected one route request, got %d", planner.callCount())
	}

	// 3s later the cooldown still has 7s to run
	clock.advance(3 * time.Second)
	outcome, _ = m.Recalculate(start.SessionID)
	if outcome.Status != RerouteCooldown {
		t.Fatalf("expected cooldown, got %q", outcome.Status)
	}
	if outcome.WaitSeconds != 7 {
		t.Errorf("expected 7s wait, got %d", outcome.WaitSeconds)
	}
	if hub.count(SignalRerouteCooldown) != 1 {
		t.Errorf("expected a cooldown signal, got %d", hub.count(SignalRerouteCooldown))
	}
	if planner.callCount() != 1 {
		t.Errorf("cooldown rejection must not reach the planner, got %d calls", planner.callCount())
	}

	// cooldown elapsed, but the rider has not moved: guard rejects and
	// re-arms the cooldown
	clock.advance(8 * time.Second)
	outcome, _ = m.Recalculate(start.SessionID)
	if outcome.Status != RerouteTooClose {
		t.Fatalf("expected position guard rejection, got %q", outcome.Status)
	}
	if hub.count(SignalRerouteSkipped) != 1 {
		t.Errorf("expected a skipped signal, got %d", hub.count(SignalRerouteSkipped))
	}
	if planner.callCount() != 1 {
		t.Errorf("position guard rejection must not reach the planner, got %d calls", planner.callCount())
	}

	clock.advance(5 * time.Second)
	outcome, _ = m.Recalculate(start.SessionID)
	if outcome.Status != RerouteCooldown {
		t.Fatalf("expected guard rejection to re-arm the cooldown, got %q", outcome.Status)
	}

	// moved ~55m and the re-armed cooldown has elapsed: request goes out
	clock.advance(6 * time.Second)
	m.HandleFix(start.SessionID, fixAt(0, 0.0005))
	outcome, _ = m.Recalculate(start.SessionID)
	if outcome.Status != RerouteRequested {
		t.Fatalf("expected request after movement and cooldown, got %q", outcome.Status)
	}
	if planner.callCount() != 2 {
		t.Errorf("expected a second route request, got %d", planner.callCount())
	}
}

func TestRerouteSingleFlight(t *testing.T) {
	planner := &fakePlanner{candidates: rerouteCandidates()}
	hub := &fakeHub{}
	m, _ := newTestManager(planner, hub)

	var pending []func()
	m.spawn = func(fn func()) { pending = append(pending, fn) }

	start, _ := m.Start("rider-1", straightRoute(10), nil)
	m.HandleFix(start.SessionID, fixAt(0, 0))

	outcome, _ := m.Recalculate(start.SessionID)
	if outcome.Status != RerouteRequested {
		t.Fatalf("expected request, got %q", outcome.Status)
	}
	outcome, _ = m.Recalculate(start.SessionID)
	if outcome.Status != RerouteInFlight {
		t.Fatalf("expected in-flight rejection, got %q", outcome.Status)
	}

	for _, fn := range pending {
		fn()
	}
	if planner.callCount() != 1 {
		t.Errorf("expected one route request, got %d", planner.callCount())
	}
	if hub.count(SignalRerouteApplied) != 1 {
		t.Errorf("expected one applied signal, got %d", hub.count(SignalRerouteApplied))
	}
}

func TestRerouteFailureKeepsRouteAndArmsCooldown(t *testing.T) {
	planner := &fakePlanner{err: errors.New("routing service down")}
	hub := &fakeHub{}
	m, clock := newTestManager(planner, hub)
	start, _ := m.Start("rider-1", straightRoute(10), nil)

	snap, _, _ := m.HandleFix(start.SessionID, fixAt(0.0003, 0.0015))
	if !snap.OffRoute {
		t.Fatal("expected off-route fix")
	}
	if planner.callCount() != 1 {
		t.Fatalf("expected one route request, got %d", planner.callCount())
	}
	if hub.count(SignalRerouteFailed) != 1 {
		t.Errorf("expected a failed signal, got %d", hub.count(SignalRerouteFailed))
	}

	got, _ := m.Get(start.SessionID)
	if got.RouteID != "route-1" {
		t.Errorf("expected the original route to stay in force, got %q", got.RouteID)
	}
	if !got.OffRoute {
		t.Error("expected rider still off-route after failure")
	}

	// still off-route 3s later: no automatic re-trigger, and a manual retry
	// runs into the cooldown the failure armed
	clock.advance(3 * time.Second)
	m.HandleFix(start.SessionID, fixAt(0.0003, 0.002))
	if planner.callCount() != 1 {
		t.Errorf("expected no automatic retry while still off-route, got %d calls", planner.callCount())
	}
	if outcome, _ := m.Recalculate(start.SessionID); outcome.Status != RerouteCooldown {
		t.Fatalf("expected cooldown, got %q", outcome.Status)
	}
	if hub.count(SignalRerouteCooldown) != 1 {
		t.Errorf("expected a cooldown signal, got %d", hub.count(SignalRerouteCooldown))
	}

	// after the cooldown a manual retry goes out
	clock.advance(8 * time.Second)
	if outcome, _ := m.Recalculate(start.SessionID); outcome.Status != RerouteRequested {
		t.Fatalf("expected request after cooldown, got %q", outcome.Status)
	}
	if planner.callCount() != 2 {
		t.Errorf("expected a retry after cooldown, got %d calls", planner.callCount())
	}
}

func TestOffRouteTriggerFiresOnTransitionOnly(t *testing.T) {
	planner := &fakePlanner{err: errors.New("routing service down")}
	hub := &fakeHub{}
	m, clock := newTestManager(planner, hub)
	start, _ := m.Start("rider-1", straightRoute(10), nil)

	m.HandleFix(start.SessionID, fixAt(0.0003, 0.001))
	if planner.callCount() != 1 {
		t.Fatalf("expected the controller to fire on the transition, got %d calls", planner.callCount())
	}

	// rider stays off-route across several gate windows: no further attempts
	// and no cooldown chatter
	for i := 0; i < 4; i++ {
		clock.advance(3 * time.Second)
		m.HandleFix(start.SessionID, fixAt(0.0003, 0.001+float64(i+1)*0.0005))
	}
	if planner.callCount() != 1 {
		t.Errorf("expected no attempts while continuously off-route, got %d calls", planner.callCount())
	}
	if hub.count(SignalRerouteCooldown) != 0 {
		t.Errorf("expected no cooldown signals for a rider who stays off-route, got %d", hub.count(SignalRerouteCooldown))
	}

	// back on the route, then off again: a fresh transition fires again
	clock.advance(3 * time.Second)
	if snap, _, _ := m.HandleFix(start.SessionID, fixAt(0, 0.004)); snap.OffRoute {
		t.Fatal("expected rider back on route")
	}
	clock.advance(3 * time.Second)
	m.HandleFix(start.SessionID, fixAt(0.0004, 0.004))
	if planner.callCount() != 2 {
		t.Errorf("expected a new attempt on the next transition, got %d calls", planner.callCount())
	}
}

func TestRerouteSingleFlightCoversSettleWindow(t *testing.T) {
	planner := &fakePlanner{candidates: rerouteCandidates()}
	hub := &fakeHub{}
	m, _ := newTestManager(planner, hub)
	start, _ := m.Start("rider-1", straightRoute(10), nil)
	m.HandleFix(start.SessionID, fixAt(0, 0))

	// a request landing between the network response and the hot-swap must
	// still see the attempt as in flight
	var during RerouteOutcome
	reentered := false
	m.settle = func(time.Duration) {
		if reentered {
			return
		}
		reentered = true
		during, _ = m.Recalculate(start.SessionID)
	}

	outcome, _ := m.Recalculate(start.SessionID)
	if outcome.Status != RerouteRequested {
		t.Fatalf("expected request, got %q", outcome.Status)
	}
	if during.Status != RerouteInFlight {
		t.Fatalf("expected in-flight rejection during the settle window, got %q", during.Status)
	}
	if planner.callCount() != 1 {
		t.Errorf("expected one route request, got %d", planner.callCount())
	}
	if hub.count(SignalRerouteApplied) != 1 {
		t.Errorf("expected one applied signal, got %d", hub.count(SignalRerouteApplied))
	}
}

func TestRerouteDiscardedAfterStop(t *testing.T) {
	planner := &fakePlanner{candidates: rerouteCandidates()}
	hub := &fakeHub{}
	m, _ := newTestManager(planner, hub)

	var pending []func()
	m.spawn = func(fn func()) { pending = append(pending, fn) }

	start, _ := m.Start("rider-1", straightRoute(10), nil)
	m.HandleFix(start.SessionID, fixAt(0, 0))

	if outcome, _ := m.Recalculate(start.SessionID); outcome.Status != RerouteRequested {
		t.Fatalf("expected request, got %q", outcome.Status)
	}
	m.Stop(start.SessionID)

	for _, fn := range pending {
		fn()
	}
	if hub.count(SignalRerouteApplied) != 0 {
		t.Error("a reroute result for a stopped session must be discarded")
	}
}

func TestReroutePrefersMatchingPreference(t *testing.T) {
	planner := &fakePlanner{candidates: []routing.Candidate{
		{Preference: "fastest", Points: rerouteCandidates()[0].Points, DistanceM: 670},
		{Preference: "quiet", Points: rerouteCandidates()[0].Points, DistanceM: 820},
	}}
	m, _ := newTestManager(planner, &fakeHub{})

	route := NewActiveRoute("route-q", straightRoute(10).Points, 0, 0, "quiet", nil)
	start, _ := m.Start("rider-1", route, nil)
	m.HandleFix(start.SessionID, fixAt(0, 0))

	if outcome, _ := m.Recalculate(start.SessionID); outcome.Status != RerouteRequested {
		t.Fatalf("expected request, got %q", outcome.Status)
	}
	got, _ := m.Get(start.SessionID)
	if got.Preference != "quiet" {
		t.Errorf("expected the quiet candidate to be chosen, got %q", got.Preference)
	}
	if got.RouteDistanceM != 820 {
		t.Errorf("expected the quiet candidate distance, got %.0f", got.RouteDistanceM)
	}
}
