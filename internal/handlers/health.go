package handlers

import (
	"github.com/gofiber/fiber/v2"

	"uploade/internal/services"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	index *services.IndexService
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(index *services.IndexService) *HealthHandler {
	return &HealthHandler{index: index}
}

// Handle responds with server health status.
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "ok",
		"experiences": h.index.Len(),
		"agents":      h.index.AgentCount(),
		"storage_mb":  float64(h.index.TotalSize()) / (1024 * 1024),
	})
}
