package geo

import "math"

const earthRadiusKm = 6371.0

// meters per degree of latitude; longitude shrinks with cos(lat)
const metersPerDegreeLat = 111319.9

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func DistanceM(a, b Point) float64 {
	return HaversineKm(a.Lat, a.Lng, b.Lat, b.Lng) * 1000
}

// PointToSegment returns the distance in meters from p to the segment a-b and
// the projection fraction along it, clamped to [0,1]. Uses a local planar
// approximation, which is accurate at route-segment scale.
func PointToSegment(p, a, b Point) (float64, float64) {
	mLng := metersPerDegreeLat * math.Cos((a.Lat+b.Lat)/2*math.Pi/180)

	bx := (b.Lng - a.Lng) * mLng
	by := (b.Lat - a.Lat) * metersPerDegreeLat
	px := (p.Lng - a.Lng) * mLng
	py := (p.Lat - a.Lat) * metersPerDegreeLat

	lenSq := bx*bx + by*by
	t := 0.0
	if lenSq > 0 {
		t = (px*bx + py*by) / lenSq
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
	}

	dx := px - t*bx
	dy := py - t*by
	return math.Sqrt(dx*dx + dy*dy), t
}

// ClosestSegment returns the index of the segment nearest to p, preferring
// the earlier segment on ties. Returns -1 when the route has fewer than two
// points.
func ClosestSegment(p Point, route []Point) int {
	if len(route) < 2 {
		return -1
	}
	best := 0
	bestDist := math.Inf(1)
	for i := 0; i < len(route)-1; i++ {
		d, _ := PointToSegment(p, route[i], route[i+1])
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// DistanceToRoute returns the minimum perpendicular distance in meters from p
// to any segment of the route.
func DistanceToRoute(p Point, route []Point) float64 {
	if len(route) == 0 {
		return 0
	}
	if len(route) == 1 {
		return DistanceM(p, route[0])
	}
	min := math.Inf(1)
	for i := 0; i < len(route)-1; i++ {
		d, _ := PointToSegment(p, route[i], route[i+1])
		if d < min {
			min = d
		}
	}
	return min
}

// OffRouteThreshold widens the base corridor at speed so GPS drift on fast
// descents does not flap the off-route flag. A speed below zero means the fix
// carried no speed. The corridor never shrinks below ordinary GPS jitter.
func OffRouteThreshold(speedKmh, baseM float64) float64 {
	threshold := baseM
	if speedKmh > 25 {
		threshold = baseM * 1.5
	}
	if threshold < 10 {
		threshold = 10
	}
	return threshold
}

func IsOffRoute(p Point, route []Point, speedKmh, baseM float64) bool {
	return DistanceToRoute(p, route) > OffRouteThreshold(speedKmh, baseM)
}

// CumulativeDistances returns, per route point, the distance in meters from
// the start. The slice has the same length as the route; index 0 is 0.
func CumulativeDistances(route []Point) []float64 {
	cum := make([]float64, len(route))
	for i := 1; i < len(route); i++ {
		cum[i] = cum[i-1] + DistanceM(route[i-1], route[i])
	}
	return cum
}

// DistanceAlongRoute is the cumulative length of all segments strictly before
// the given segment index.
func DistanceAlongRoute(cum []float64, segment int) float64 {
	if len(cum) == 0 || segment <= 0 {
		return 0
	}
	if segment >= len(cum) {
		segment = len(cum) - 1
	}
	return cum[segment]
}

// ProgressAlongRoute returns the rider's distance from the route start: the
// cumulative length before the current segment plus the projected advance
// within it.
func ProgressAlongRoute(p Point, route []Point, cum []float64, segment int) float64 {
	if len(route) < 2 {
		return 0
	}
	if segment < 0 {
		segment = 0
	}
	if segment > len(route)-2 {
		segment = len(route) - 2
	}
	_, t := PointToSegment(p, route[segment], route[segment+1])
	return cum[segment] + t*DistanceM(route[segment], route[segment+1])
}

// RemainingDistance is the distance from p's projection on the current
// segment to the route's end.
func RemainingDistance(p Point, route []Point, segment int) float64 {
	if len(route) < 2 {
		return 0
	}
	if segment < 0 {
		segment = 0
	}
	if segment > len(route)-2 {
		segment = len(route) - 2
	}
	_, t := PointToSegment(p, route[segment], route[segment+1])
	total := (1 - t) * DistanceM(route[segment], route[segment+1])
	for i := segment + 1; i < len(route)-1; i++ {
		total += DistanceM(route[i], route[i+1])
	}
	return total
}

// Bearing returns the initial bearing from a to b in degrees [0, 360).
func Bearing(a, b Point) float64 {
	rLat1 := a.Lat * math.Pi / 180
	rLat2 := b.Lat * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	y := math.Sin(dLng) * math.Cos(rLat2)
	x := math.Cos(rLat1)*math.Sin(rLat2) - math.Sin(rLat1)*math.Cos(rLat2)*math.Cos(dLng)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}
