package hazard

import (
	"context"

	"backend-veloroute/internal/db"

	"github.com/google/uuid"
)

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

func (s *Service) Create(ctx context.Context, input Hazard) (Hazard, error) {
	input.ID = uuid.NewString()
	input.Active = true
	if input.Severity == 0 {
		input.Severity = 1
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO hazards (id, title, description, category, location, severity, reported_by, is_active)
		VALUES ($1,$2,$3,$4, ST_SetSRID(ST_MakePoint($5,$6), 4326)::geography, $7, $8, $9)
		RETURNING created_at
	`, input.ID, input.Title, input.Description, input.Category, input.Lng, input.Lat, input.Severity, input.ReportedBy, input.Active)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return Hazard{}, err
	}
	return input, nil
}

func (s *Service) Get(ctx context.Context, id string) (Hazard, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, title, description, category, ST_Y(location::geometry), ST_X(location::geometry),
		       severity, COALESCE(reported_by,''), is_active, created_at
		FROM hazards WHERE id=$1
	`, id)
	var h Hazard
	if err := row.Scan(&h.ID, &h.Title, &h.Description, &h.Category, &h.Lat, &h.Lng, &h.Severity, &h.ReportedBy, &h.Active, &h.CreatedAt); err != nil {
		return Hazard{}, err
	}
	return h, nil
}

// List returns the active hazard catalog snapshot handed to a navigation
// session at start.
func (s *Service) List(ctx context.Context) ([]Hazard, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, title, description, category, ST_Y(location::geometry), ST_X(location::geometry),
		       severity, COALESCE(reported_by,''), is_active, created_at
		FROM hazards WHERE is_active
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hazards []Hazard
	for rows.Next() {
		var h Hazard
		if err := rows.Scan(&h.ID, &h.Title, &h.Description, &h.Category, &h.Lat, &h.Lng, &h.Severity, &h.ReportedBy, &h.Active, &h.CreatedAt); err != nil {
			return nil, err
		}
		hazards = append(hazards, h)
	}
	return hazards, nil
}

// Deactivate retires a hazard from the catalog without losing the report.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `UPDATE hazards SET is_active=false WHERE id=$1`, id)
	return err
}
