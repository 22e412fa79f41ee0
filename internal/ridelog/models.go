package ridelog

import "time"

// Fix is one raw position sample as received, before the navigation gate.
type Fix struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	SpeedMps   *float64  `json:"speed_mps,omitempty"`
	HeadingDeg *float64  `json:"heading_deg,omitempty"`
	AccuracyM  *float64  `json:"accuracy_m,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
	CreatedAt  time.Time `json:"created_at"`
}

type Summary struct {
	SessionID       string  `json:"session_id"`
	FixCount        int     `json:"fix_count"`
	DistanceM       float64 `json:"distance_m"`
	DurationSec     int64   `json:"duration_sec"`
	AverageSpeedMps float64 `json:"average_speed_mps"`
}
