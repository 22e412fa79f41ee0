package routing

import (
	"time"

	"backend-veloroute/internal/shared/geo"
)

// SurfaceSpan labels a contiguous stretch of route points with a surface
// type, as reported by the route-computation service.
type SurfaceSpan struct {
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
	Surface    string `json:"surface"`
}

// Candidate is one route option returned by the route-computation service.
// Geometry is an encoded polyline; Points holds the decoded coordinates.
type Candidate struct {
	Preference string        `json:"preference"`
	Geometry   string        `json:"geometry,omitempty"`
	Points     []geo.Point   `json:"points,omitempty"`
	DistanceM  float64       `json:"distance_m"`
	DurationMs int64         `json:"duration_ms"`
	Surfaces   []SurfaceSpan `json:"surfaces,omitempty"`
}

// SavedRoute is a planned route kept for later navigation sessions.
type SavedRoute struct {
	ID         string    `json:"id"`
	RiderID    string    `json:"rider_id"`
	Name       string    `json:"name"`
	Preference string    `json:"preference"`
	Geometry   string    `json:"geometry"`
	DistanceM  float64   `json:"distance_m"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}
