package hazard

import "time"

// Hazard is one community-reported point hazard from the catalog.
type Hazard struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	Severity    int       `json:"severity"`
	ReportedBy  string    `json:"reported_by,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Projected is a catalog hazard matched onto a specific route.
type Projected struct {
	Hazard         Hazard  `json:"hazard"`
	DistanceAlongM float64 `json:"distance_along_m"`
}
