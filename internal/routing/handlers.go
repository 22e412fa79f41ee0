package routing

import (
	"errors"

	"backend-veloroute/internal/shared/geo"

	"github.com/gofiber/fiber/v2"
)

type planRequest struct {
	RiderID    string    `json:"rider_id"`
	Start      geo.Point `json:"start"`
	End        geo.Point `json:"end"`
	Preference string    `json:"preference"`
	Name       string    `json:"name"`
	Save       bool      `json:"save"`
}

type planResponse struct {
	Candidates []Candidate `json:"candidates"`
	SavedID    string      `json:"saved_id,omitempty"`
}

func RegisterRoutes(r fiber.Router, client *Client, store *Store, authMiddleware fiber.Handler) {
	r.Post("/plan", authMiddleware, func(c *fiber.Ctx) error {
		var req planRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.RiderID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "rider_id required")
		}

		candidates, err := client.Routes(c.Context(), req.Start, req.End, req.Preference)
		if err != nil {
			if errors.Is(err, ErrNoRoutes) {
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			}
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}

		resp := planResponse{Candidates: candidates}
		if req.Save {
			chosen := pickCandidate(candidates, req.Preference)
			saved, err := store.Save(c.Context(), SavedRoute{
				RiderID:    req.RiderID,
				Name:       req.Name,
				Preference: chosen.Preference,
				Geometry:   EncodeGeometry(chosen.Points),
				DistanceM:  chosen.DistanceM,
				DurationMs: chosen.DurationMs,
			})
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, err.Error())
			}
			resp.SavedID = saved.ID
		}
		return c.JSON(resp)
	})

	r.Get("/", func(c *fiber.Ctx) error {
		riderID := c.Query("rider_id")
		if riderID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "rider_id required")
		}
		routes, err := store.List(c.Context(), riderID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(routes)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		route, err := store.Get(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return c.JSON(route)
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		if err := store.Delete(c.Context(), c.Params("id")); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// pickCandidate prefers an exact preference match, falling back to the first
// candidate.
func pickCandidate(candidates []Candidate, preference string) Candidate {
	for _, cand := range candidates {
		if cand.Preference == preference {
			return cand
		}
	}
	return candidates[0]
}
