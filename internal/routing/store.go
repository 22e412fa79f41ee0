package routing

import (
	"context"

	"backend-veloroute/internal/db"

	"github.com/google/uuid"
)

// Store persists planned routes so a navigation session can start from a
// route computed earlier.
type Store struct {
	db db.Querier
}

func NewStore(db db.Querier) *Store {
	return &Store{db: db}
}

func (s *Store) Save(ctx context.Context, input SavedRoute) (SavedRoute, error) {
	if input.ID == "" {
		input.ID = uuid.NewString()
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO planned_routes (id, rider_id, name, preference, geometry, total_distance_m, total_duration_ms)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at
	`, input.ID, input.RiderID, input.Name, input.Preference, input.Geometry, input.DistanceM, input.DurationMs)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return SavedRoute{}, err
	}
	return input, nil
}

func (s *Store) Get(ctx context.Context, id string) (SavedRoute, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, rider_id, name, preference, geometry, total_distance_m, total_duration_ms, created_at
		FROM planned_routes WHERE id=$1
	`, id)
	var r SavedRoute
	if err := row.Scan(&r.ID, &r.RiderID, &r.Name, &r.Preference, &r.Geometry, &r.DistanceM, &r.DurationMs, &r.CreatedAt); err != nil {
		return SavedRoute{}, err
	}
	return r, nil
}

func (s *Store) List(ctx context.Context, riderID string) ([]SavedRoute, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, rider_id, name, preference, geometry, total_distance_m, total_duration_ms, created_at
		FROM planned_routes WHERE rider_id=$1
		ORDER BY created_at DESC
	`, riderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routes []SavedRoute
	for rows.Next() {
		var r SavedRoute
		if err := rows.Scan(&r.ID, &r.RiderID, &r.Name, &r.Preference, &r.Geometry, &r.DistanceM, &r.DurationMs, &r.CreatedAt); err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}
	return routes, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM planned_routes WHERE id=$1`, id)
	return err
}
