package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"rilie/internal/curiosity"
	"rilie/internal/jobs"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	engine    *curiosity.Engine
	scheduler *jobs.JobScheduler
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(engine *curiosity.Engine, scheduler *jobs.JobScheduler) *HealthHandler {
	return &HealthHandler{engine: engine, scheduler: scheduler}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	resp := fiber.Map{
		"status":             "healthy",
		"curiosity_queue":    h.engine.QueueSize(),
		"background_running": h.engine.Running(),
		"timestamp":          time.Now().Format(time.RFC3339),
	}
	if h.scheduler != nil {
		resp["jobs"] = h.scheduler.GetStatus()
	}
	return c.JSON(resp)
}
