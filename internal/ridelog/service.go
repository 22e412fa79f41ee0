package ridelog

import (
	"context"
	"time"

	"backend-veloroute/internal/db"
	"backend-veloroute/internal/navigation"
	"backend-veloroute/internal/shared/geo"
)

// Service persists the raw fix stream for later ride review. It sees every
// sample the client sends, including the ones the navigation gate drops.
type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

// Record appends one raw fix to the session's log.
func (s *Service) Record(ctx context.Context, sessionID string, fix navigation.PositionFix) error {
	if fix.RecordedAt.IsZero() {
		fix.RecordedAt = time.Now()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO ride_fixes (session_id, location, speed_mps, heading_deg, accuracy_m, recorded_at)
		VALUES ($1, ST_SetSRID(ST_MakePoint($2,$3), 4326)::geography, $4, $5, $6, $7)
	`, sessionID, fix.Lng, fix.Lat, fix.SpeedMps, fix.HeadingDeg, fix.AccuracyM, fix.RecordedAt)
	return err
}

func (s *Service) Fixes(ctx context.Context, sessionID string) ([]Fix, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, session_id, ST_Y(location::geometry), ST_X(location::geometry),
		       speed_mps, heading_deg, accuracy_m, recorded_at, created_at
		FROM ride_fixes WHERE session_id=$1
		ORDER BY recorded_at
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fixes []Fix
	for rows.Next() {
		var f Fix
		if err := rows.Scan(&f.ID, &f.SessionID, &f.Lat, &f.Lng, &f.SpeedMps, &f.HeadingDeg, &f.AccuracyM, &f.RecordedAt, &f.CreatedAt); err != nil {
			return nil, err
		}
		fixes = append(fixes, f)
	}
	return fixes, nil
}

// Summary derives ride totals from the logged fixes.
func (s *Service) Summary(ctx context.Context, sessionID string) (Summary, error) {
	fixes, err := s.Fixes(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}

	out := Summary{SessionID: sessionID, FixCount: len(fixes)}
	if len(fixes) < 2 {
		return out, nil
	}

	for i := 1; i < len(fixes); i++ {
		out.DistanceM += geo.HaversineKm(fixes[i-1].Lat, fixes[i-1].Lng, fixes[i].Lat, fixes[i].Lng) * 1000
	}
	duration := fixes[len(fixes)-1].RecordedAt.Sub(fixes[0].RecordedAt)
	out.DurationSec = int64(duration.Seconds())
	if duration.Seconds() > 0 {
		out.AverageSpeedMps = out.DistanceM / duration.Seconds()
	}
	return out, nil
}
