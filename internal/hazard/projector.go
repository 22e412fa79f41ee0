package hazard

import (
	"math"
	"sort"

	"backend-veloroute/internal/shared/geo"
)

// DetectOnRoute matches catalog hazards onto a route. A hazard within
// toleranceM of any segment yields exactly one record, projected onto its
// nearest segment; anything farther is excluded. Results are sorted by
// distance along the route.
func DetectOnRoute(route []geo.Point, cum []float64, hazards []Hazard, toleranceM float64) []Projected {
	if len(route) < 2 {
		return nil
	}

	var out []Projected
	for _, h := range hazards {
		p := geo.Point{Lat: h.Lat, Lng: h.Lng}

		bestDist := math.Inf(1)
		bestSeg := -1
		bestFrac := 0.0
		for i := 0; i < len(route)-1; i++ {
			d, t := geo.PointToSegment(p, route[i], route[i+1])
			if d < bestDist {
				bestDist = d
				bestSeg = i
				bestFrac = t
			}
		}

		if bestSeg < 0 || bestDist > toleranceM {
			continue
		}

		along := cum[bestSeg] + bestFrac*geo.DistanceM(route[bestSeg], route[bestSeg+1])
		out = append(out, Projected{Hazard: h, DistanceAlongM: along})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].DistanceAlongM < out[j].DistanceAlongM
	})
	return out
}
