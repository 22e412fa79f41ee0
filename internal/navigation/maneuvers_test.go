package navigation

import (
	"testing"

	"backend-veloroute/internal/shared/geo"
)

// turnRoute heads east, turns north at index 1, then continues north.
func turnRoute() []geo.Point {
	return []geo.Point{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: 0.001},
		{Lat: 0.001, Lng: 0.001},
		{Lat: 0.002, Lng: 0.001},
	}
}

func TestDetectManeuvers(t *testing.T) {
	got := DetectManeuvers(turnRoute(), 25, 110)

	if len(got) != 2 {
		t.Fatalf("expected turn + arrive, got %d maneuvers: %v", len(got), got)
	}
	if got[0].Type != ManeuverLeft || got[0].Index != 1 {
		t.Errorf("expected left turn at index 1, got %s at %d", got[0].Type, got[0].Index)
	}
	if got[1].Type != ManeuverArrive || got[1].Index != 3 {
		t.Errorf("expected arrive at index 3, got %s at %d", got[1].Type, got[1].Index)
	}
}

func TestDetectManeuversClassification(t *testing.T) {
	cases := []struct {
		name string
		next geo.Point
		want ManeuverType
	}{
		{"slight left", geo.Point{Lat: 0.001, Lng: 0.002}, ManeuverSlightLeft},
		{"left", geo.Point{Lat: 0.001, Lng: 0.001}, ManeuverLeft},
		{"sharp left", geo.Point{Lat: 0.0005, Lng: 0.0002}, ManeuverSharpLeft},
		{"slight right", geo.Point{Lat: -0.001, Lng: 0.002}, ManeuverSlightRight},
		{"right", geo.Point{Lat: -0.001, Lng: 0.001}, ManeuverRight},
		{"sharp right", geo.Point{Lat: -0.0005, Lng: 0.0002}, ManeuverSharpRight},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			route := []geo.Point{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 0.001}, tc.next}
			got := DetectManeuvers(route, 25, 110)
			if len(got) != 2 {
				t.Fatalf("expected 1 turn + arrive, got %v", got)
			}
			if got[0].Type != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got[0].Type)
			}
		})
	}
}

func TestDetectManeuversStraightRouteOnlyArrives(t *testing.T) {
	route := []geo.Point{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: 0.001},
		{Lat: 0, Lng: 0.002},
		{Lat: 0, Lng: 0.003},
	}
	got := DetectManeuvers(route, 25, 110)
	if len(got) != 1 || got[0].Type != ManeuverArrive {
		t.Fatalf("expected only an arrive instruction, got %v", got)
	}
}

func TestDetectManeuversEmptyRoute(t *testing.T) {
	if got := DetectManeuvers(nil, 25, 110); got != nil {
		t.Errorf("expected nil for empty route, got %v", got)
	}
}

func TestFindNextManeuver(t *testing.T) {
	maneuvers := DetectManeuvers(turnRoute(), 25, 110)

	if m := FindNextManeuver(maneuvers, 0); m == nil || m.Index != 1 {
		t.Errorf("expected the turn at index 1 from segment 0, got %v", m)
	}
	if m := FindNextManeuver(maneuvers, 2); m == nil || m.Type != ManeuverArrive {
		t.Errorf("expected arrive from segment 2, got %v", m)
	}
	if m := FindNextManeuver(nil, 0); m != nil {
		t.Errorf("expected nil for empty maneuver list, got %v", m)
	}
}

func TestDistanceToManeuver(t *testing.T) {
	route := turnRoute()
	cum := geo.CumulativeDistances(route)
	maneuvers := DetectManeuvers(route, 25, 110)

	// halfway along the first segment, ~55m short of the turn
	p := geo.Point{Lat: 0, Lng: 0.0005}
	d := DistanceToManeuver(p, route, cum, 0, &maneuvers[0])
	if d < 50 || d > 61 {
		t.Errorf("expected ~55m to the turn, got %.1f", d)
	}

	// past the maneuver point the distance clamps to zero
	past := geo.Point{Lat: 0.0005, Lng: 0.001}
	if d := DistanceToManeuver(past, route, cum, 1, &maneuvers[0]); d != 0 {
		t.Errorf("expected 0 past the maneuver, got %.1f", d)
	}

	if d := DistanceToManeuver(p, route, cum, 0, nil); d != 0 {
		t.Errorf("expected 0 for nil maneuver, got %.1f", d)
	}
}
