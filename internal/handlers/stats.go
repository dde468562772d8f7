package handlers

import (
	"github.com/gofiber/fiber/v2"

	"uploade/internal/services"
)

// StatsHandler serves repository-wide totals.
type StatsHandler struct {
	stats *services.StatsService
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(stats *services.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Handle responds with current totals.
func (h *StatsHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(h.stats.Current(c.UserContext()))
}
