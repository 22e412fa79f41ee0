package navigation

// surfaces worth warning a road cyclist about
var roughSurfaces = map[string]bool{
	"gravel":      true,
	"cobblestone": true,
	"dirt":        true,
	"sand":        true,
	"unpaved":     true,
}

// AnalyzeRouteSurface turns the route's surface spans into warnings for the
// rough stretches, each with its start distance along the route and affected
// length. Adjacent rough spans of the same surface are merged. Runs when a
// route becomes active, not per fix.
func AnalyzeRouteSurface(route *ActiveRoute) []Warning {
	if route == nil || len(route.Points) < 2 {
		return nil
	}

	var out []Warning
	for _, span := range route.Surfaces {
		if !roughSurfaces[span.Surface] {
			continue
		}
		start, end := span.StartIndex, span.EndIndex
		if start < 0 {
			start = 0
		}
		if end >= len(route.Cumulative) {
			end = len(route.Cumulative) - 1
		}
		if end <= start {
			continue
		}

		startM := route.Cumulative[start]
		lengthM := route.Cumulative[end] - startM

		if n := len(out); n > 0 && out[n-1].Surface == span.Surface &&
			out[n-1].DistanceAlongM+out[n-1].LengthM >= startM {
			out[n-1].LengthM = startM + lengthM - out[n-1].DistanceAlongM
			continue
		}

		out = append(out, Warning{
			Kind:           WarningSurface,
			DistanceAlongM: startM,
			LengthM:        lengthM,
			Surface:        span.Surface,
		})
	}
	return out
}
