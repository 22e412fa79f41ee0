package navigation

import (
	"math"

	"backend-veloroute/internal/shared/geo"
)

// segments shorter than this contribute too noisy a bearing to classify
const minManeuverSegmentM = 3.0

// DetectManeuvers walks consecutive point triples and classifies the bearing
// change at each interior point, emitting an instruction per direction change
// plus a terminal arrive instruction. Runs once per active route.
func DetectManeuvers(route []geo.Point, slightDeg, sharpDeg float64) []Maneuver {
	if len(route) == 0 {
		return nil
	}

	var out []Maneuver
	for i := 1; i < len(route)-1; i++ {
		prev, cur, next := route[i-1], route[i], route[i+1]
		if geo.DistanceM(prev, cur) < minManeuverSegmentM || geo.DistanceM(cur, next) < minManeuverSegmentM {
			continue
		}

		delta := bearingDelta(geo.Bearing(prev, cur), geo.Bearing(cur, next))
		mag := math.Abs(delta)
		if mag < slightDeg {
			continue
		}

		typ := classifyTurn(delta, mag, sharpDeg)
		out = append(out, Maneuver{Type: typ, Index: i, Text: maneuverText(typ)})
	}

	out = append(out, Maneuver{
		Type:  ManeuverArrive,
		Index: len(route) - 1,
		Text:  maneuverText(ManeuverArrive),
	})
	return out
}

// FindNextManeuver returns the first maneuver at or past the current segment,
// or nil when the rider is beyond the last one.
func FindNextManeuver(maneuvers []Maneuver, segment int) *Maneuver {
	for i := range maneuvers {
		if maneuvers[i].Index >= segment {
			return &maneuvers[i]
		}
	}
	return nil
}

// DistanceToManeuver is the along-route distance from the rider's projected
// position to the maneuver point.
func DistanceToManeuver(p geo.Point, route []geo.Point, cum []float64, segment int, m *Maneuver) float64 {
	if m == nil || len(route) < 2 {
		return 0
	}
	idx := m.Index
	if idx >= len(cum) {
		idx = len(cum) - 1
	}
	d := cum[idx] - geo.ProgressAlongRoute(p, route, cum, segment)
	if d < 0 {
		return 0
	}
	return d
}

// bearingDelta normalizes the difference between two bearings to [-180, 180];
// negative means a left turn.
func bearingDelta(from, to float64) float64 {
	d := math.Mod(to-from+540, 360) - 180
	return d
}

func classifyTurn(delta, mag, sharpDeg float64) ManeuverType {
	// between slight and sharp sits an ordinary turn
	const turnDeg = 60.0
	left := delta < 0
	switch {
	case mag >= sharpDeg:
		if left {
			return ManeuverSharpLeft
		}
		return ManeuverSharpRight
	case mag >= turnDeg:
		if left {
			return ManeuverLeft
		}
		return ManeuverRight
	default:
		if left {
			return ManeuverSlightLeft
		}
		return ManeuverSlightRight
	}
}

func maneuverText(t ManeuverType) string {
	switch t {
	case ManeuverSlightLeft:
		return "Slight left"
	case ManeuverLeft:
		return "Turn left"
	case ManeuverSharpLeft:
		return "Sharp left"
	case ManeuverSlightRight:
		return "Slight right"
	case ManeuverRight:
		return "Turn right"
	case ManeuverSharpRight:
		return "Sharp right"
	case ManeuverArrive:
		return "Arrive at destination"
	}
	return ""
}
