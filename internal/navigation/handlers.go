package navigation

import (
	"context"
	"errors"

	"backend-veloroute/internal/hazard"
	"backend-veloroute/internal/routing"
	"backend-veloroute/internal/shared/geo"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// HazardSource supplies the catalog snapshot handed to a new session.
type HazardSource interface {
	List(ctx context.Context) ([]hazard.Hazard, error)
}

// RouteSource loads previously planned routes by ID.
type RouteSource interface {
	Get(ctx context.Context, id string) (routing.SavedRoute, error)
}

// FixRecorder is the unthrottled audit sink: it sees every raw fix, before
// the gate. A recording failure never blocks navigation.
type FixRecorder interface {
	Record(ctx context.Context, sessionID string, fix PositionFix) error
}

type startRequest struct {
	RiderID    string                `json:"rider_id"`
	RouteID    string                `json:"route_id,omitempty"`
	Start      *geo.Point            `json:"start,omitempty"`
	End        *geo.Point            `json:"end,omitempty"`
	Preference string                `json:"preference,omitempty"`
	Points     []geo.Point           `json:"points,omitempty"`
	DistanceM  float64               `json:"distance_m,omitempty"`
	DurationMs int64                 `json:"duration_ms,omitempty"`
	Surfaces   []routing.SurfaceSpan `json:"surfaces,omitempty"`
}

type positionResponse struct {
	Accepted bool     `json:"accepted"`
	Snapshot Snapshot `json:"snapshot"`
}

func RegisterRoutes(r fiber.Router, mgr *Manager, hazards HazardSource, routes RouteSource, recorder FixRecorder, authMiddleware fiber.Handler) {
	r.Post("/sessions", authMiddleware, func(c *fiber.Ctx) error {
		var req startRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.RiderID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "rider_id required")
		}

		route, err := resolveRoute(c.Context(), mgr, routes, req)
		if err != nil {
			if errors.Is(err, routing.ErrNoRoutes) {
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			}
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var catalog []hazard.Hazard
		if hazards != nil {
			catalog, err = hazards.List(c.Context())
			if err != nil {
				// navigation still works without the catalog
				log.Warn().Err(err).Msg("Hazard catalog unavailable")
			}
		}

		snap, err := mgr.Start(req.RiderID, route, catalog)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(snap)
	})

	r.Post("/sessions/:id/position", authMiddleware, func(c *fiber.Ctx) error {
		var fix PositionFix
		if err := c.BodyParser(&fix); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		sessionID := c.Params("id")

		if recorder != nil {
			if err := recorder.Record(c.Context(), sessionID, fix); err != nil {
				log.Warn().Err(err).Str("session_id", sessionID).Msg("Ride log write failed")
			}
		}

		snap, accepted, err := mgr.HandleFix(sessionID, fix)
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return c.JSON(positionResponse{Accepted: accepted, Snapshot: snap})
	})

	r.Get("/sessions/:id", func(c *fiber.Ctx) error {
		snap, err := mgr.Get(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return c.JSON(snap)
	})

	r.Post("/sessions/:id/stop", authMiddleware, func(c *fiber.Ctx) error {
		mgr.Stop(c.Params("id"))
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/sessions/:id/dismiss-off-route", authMiddleware, func(c *fiber.Ctx) error {
		if err := mgr.DismissOffRoutePrompt(c.Params("id")); err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/sessions/:id/recalculate", authMiddleware, func(c *fiber.Ctx) error {
		outcome, err := mgr.Recalculate(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return c.JSON(outcome)
	})
}

// resolveRoute builds the active route from whichever of the three request
// shapes was supplied: inline points, a saved route ID, or a start/end pair
// to plan fresh.
func resolveRoute(ctx context.Context, mgr *Manager, routes RouteSource, req startRequest) (*ActiveRoute, error) {
	switch {
	case len(req.Points) >= 2:
		return NewActiveRoute(uuid.NewString(), req.Points, req.DistanceM, req.DurationMs, req.Preference, req.Surfaces), nil

	case req.RouteID != "":
		if routes == nil {
			return nil, errors.New("navigation: route storage unavailable")
		}
		saved, err := routes.Get(ctx, req.RouteID)
		if err != nil {
			return nil, err
		}
		points, err := routing.DecodeGeometry(saved.Geometry)
		if err != nil {
			return nil, err
		}
		return NewActiveRoute(saved.ID, points, saved.DistanceM, saved.DurationMs, saved.Preference, nil), nil

	case req.Start != nil && req.End != nil:
		return mgr.Plan(ctx, *req.Start, *req.End, req.Preference)

	default:
		return nil, errors.New("navigation: route_id, points, or start/end required")
	}
}
