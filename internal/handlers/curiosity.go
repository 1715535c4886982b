package handlers

import (
	"github.com/gofiber/fiber/v2"

	"rilie/internal/curiosity"
	"rilie/internal/services"
)

// CuriosityHandler exposes the curiosity engine over HTTP: tangent
// submission, manual drain, resurfacing, status, and background control.
type CuriosityHandler struct {
	engine  *curiosity.Engine
	metrics *services.Metrics
}

// NewCuriosityHandler creates a new curiosity handler
func NewCuriosityHandler(engine *curiosity.Engine, metrics *services.Metrics) *CuriosityHandler {
	return &CuriosityHandler{engine: engine, metrics: metrics}
}

// QueueTangentRequest is the body of POST /v1/curiosity/queue.
type QueueTangentRequest struct {
	Tangent   string  `json:"tangent"`
	SeedQuery string  `json:"seed_query"`
	Relevance float64 `json:"relevance"`
	Interest  float64 `json:"interest"`
}

// Status returns the full engine snapshot.
func (h *CuriosityHandler) Status(c *fiber.Ctx) error {
	return c.JSON(h.engine.Status(c.Context()))
}

// QueueTangent submits a tangent to the admission filter. Rejection is a
// normal outcome (queued: false), not an error.
func (h *CuriosityHandler) QueueTangent(c *fiber.Ctx) error {
	var req QueueTangentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Tangent == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "tangent is required",
		})
	}
	if req.Relevance < 0 || req.Relevance > 1 || req.Interest < 0 || req.Interest > 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "relevance and interest must be in [0, 1]",
		})
	}

	queued := h.engine.QueueTangent(req.Tangent, req.SeedQuery, req.Relevance, req.Interest)

	if h.metrics != nil {
		if queued {
			h.metrics.TangentsQueued.Inc()
		} else {
			h.metrics.TangentsRejected.Inc()
		}
	}

	return c.JSON(fiber.Map{
		"tangent":    req.Tangent,
		"queued":     queued,
		"queue_size": h.engine.QueueSize(),
	})
}

// Drain synchronously processes up to one cycle's worth of tangents.
func (h *CuriosityHandler) Drain(c *fiber.Ctx) error {
	var result curiosity.DrainResult
	if h.metrics != nil {
		timer := h.metrics.DrainTimer()
		result = h.engine.Drain(c.Context())
		timer.ObserveDuration()
		h.metrics.TangentsProcessed.Add(float64(result.Processed))
		h.metrics.InsightsKept.Add(float64(result.Kept))
	} else {
		result = h.engine.Drain(c.Context())
	}

	return c.JSON(fiber.Map{
		"processed":       result.Processed,
		"kept":            result.Kept,
		"queue_remaining": h.engine.QueueSize(),
	})
}

// Search resurfaces past insights relevant to the given stimulus.
func (h *CuriosityHandler) Search(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "q query parameter is required",
		})
	}
	limit := c.QueryInt("limit", 3)

	results := h.engine.ResurfaceCuriosities(c.Context(), query, limit)
	if results == nil {
		results = []curiosity.Resurfaced{}
	}

	return c.JSON(fiber.Map{
		"query":   query,
		"results": results,
		"count":   len(results),
	})
}

// StartBackground starts the background drain worker.
func (h *CuriosityHandler) StartBackground(c *fiber.Ctx) error {
	h.engine.StartBackground()
	return c.JSON(fiber.Map{"background_running": h.engine.Running()})
}

// StopBackground stops the background drain worker.
func (h *CuriosityHandler) StopBackground(c *fiber.Ctx) error {
	h.engine.StopBackground()
	return c.JSON(fiber.Map{"background_running": h.engine.Running()})
}
