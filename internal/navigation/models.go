package navigation

import (
	"time"

	"backend-veloroute/internal/routing"
	"backend-veloroute/internal/shared/geo"
)

// PositionFix is one sample from the rider's position source. Speed, heading
// and accuracy may be absent; pointers distinguish "unknown" from zero.
type PositionFix struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	SpeedMps   *float64  `json:"speed_mps,omitempty"`
	HeadingDeg *float64  `json:"heading_deg,omitempty"`
	AccuracyM  *float64  `json:"accuracy_m,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

func (f PositionFix) Point() geo.Point {
	return geo.Point{Lat: f.Lat, Lng: f.Lng}
}

// ActiveRoute is the planned path a session navigates. It is never mutated
// after construction; rerouting replaces it wholesale.
type ActiveRoute struct {
	ID         string                `json:"id"`
	Points     []geo.Point           `json:"points"`
	Cumulative []float64             `json:"-"`
	DistanceM  float64               `json:"distance_m"`
	DurationMs int64                 `json:"duration_ms"`
	Preference string                `json:"preference"`
	Surfaces   []routing.SurfaceSpan `json:"surfaces,omitempty"`
}

// NewActiveRoute precomputes cumulative segment lengths. DistanceM falls back
// to the measured geometry length when the planner supplied none.
func NewActiveRoute(id string, points []geo.Point, distanceM float64, durationMs int64, preference string, surfaces []routing.SurfaceSpan) *ActiveRoute {
	cum := geo.CumulativeDistances(points)
	if distanceM <= 0 && len(cum) > 0 {
		distanceM = cum[len(cum)-1]
	}
	return &ActiveRoute{
		ID:         id,
		Points:     points,
		Cumulative: cum,
		DistanceM:  distanceM,
		DurationMs: durationMs,
		Preference: preference,
		Surfaces:   surfaces,
	}
}

func RouteFromCandidate(id string, c routing.Candidate) *ActiveRoute {
	return NewActiveRoute(id, c.Points, c.DistanceM, c.DurationMs, c.Preference, c.Surfaces)
}

func (r *ActiveRoute) Destination() geo.Point {
	return r.Points[len(r.Points)-1]
}

type ManeuverType string

const (
	ManeuverSlightLeft  ManeuverType = "slight_left"
	ManeuverLeft        ManeuverType = "left"
	ManeuverSharpLeft   ManeuverType = "sharp_left"
	ManeuverSlightRight ManeuverType = "slight_right"
	ManeuverRight       ManeuverType = "right"
	ManeuverSharpRight  ManeuverType = "sharp_right"
	ManeuverArrive      ManeuverType = "arrive"
)

// Maneuver is a turn instruction anchored to a route point index.
type Maneuver struct {
	Type  ManeuverType `json:"type"`
	Index int          `json:"index"`
	Text  string       `json:"text"`
}

type WarningKind string

const (
	WarningHazard  WarningKind = "hazard"
	WarningSurface WarningKind = "surface"
)

// Warning is a closed sum of the community-hazard and surface-quality
// variants; the shared distance fields are hoisted so the merged list can be
// sorted and pruned uniformly.
type Warning struct {
	Kind           WarningKind `json:"kind"`
	DistanceAlongM float64     `json:"distance_along_m"`
	DistanceAheadM float64     `json:"distance_ahead_m"`

	HazardID string `json:"hazard_id,omitempty"`
	Title    string `json:"title,omitempty"`
	Category string `json:"category,omitempty"`

	Surface string  `json:"surface,omitempty"`
	LengthM float64 `json:"length_m,omitempty"`
}

// TripStats are the running accumulators for the current session.
type TripStats struct {
	DistanceM         float64 `json:"distance_m"`
	ElapsedSec        float64 `json:"elapsed_sec"`
	MovingSec         float64 `json:"moving_sec"`
	AvgSpeedMps       float64 `json:"avg_speed_mps"`
	AvgMovingSpeedMps float64 `json:"avg_moving_speed_mps"`
}

// Snapshot is the read-only session view handed to the presentation layer
// after every accepted fix.
type Snapshot struct {
	SessionID           string       `json:"session_id"`
	RiderID             string       `json:"rider_id"`
	State               string       `json:"state"`
	RouteID             string       `json:"route_id,omitempty"`
	Preference          string       `json:"preference,omitempty"`
	RouteDistanceM      float64      `json:"route_distance_m,omitempty"`
	Position            *PositionFix `json:"position,omitempty"`
	SegmentIndex        int          `json:"segment_index"`
	NextManeuver        *Maneuver    `json:"next_maneuver,omitempty"`
	DistanceToManeuverM float64      `json:"distance_to_maneuver_m"`
	RemainingM          float64      `json:"remaining_m"`
	RemainingSec        int64        `json:"remaining_sec"`
	OffRoute            bool         `json:"off_route"`
	OffRouteDistanceM   float64      `json:"off_route_distance_m"`
	OffRoutePrompt      bool         `json:"off_route_prompt"`
	Arrived             bool         `json:"arrived"`
	Warnings            []Warning    `json:"warnings"`
	Trip                TripStats    `json:"trip"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// Signal is a discrete one-shot event for the presentation layer, distinct
// from the continuous snapshot stream.
type Signal struct {
	Type        string `json:"type"`
	SessionID   string `json:"session_id"`
	WaitSeconds int    `json:"wait_seconds,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

const (
	SignalRerouteCooldown = "reroute_cooldown"
	SignalRerouteSkipped  = "reroute_skipped"
	SignalRerouteFailed   = "reroute_failed"
	SignalRerouteApplied  = "reroute_applied"
	SignalArrived         = "arrived"
)
