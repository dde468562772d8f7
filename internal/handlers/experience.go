package handlers

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"uploade/internal/models"
	"uploade/internal/schema"
	"uploade/internal/services"
)

// ExperienceHandler handles submission and query requests.
type ExperienceHandler struct {
	experiences    *services.ExperienceService
	retryAfterSecs int
}

// NewExperienceHandler exposes the experience service over HTTP.
func NewExperienceHandler(experiences *services.ExperienceService, retryAfterSecs int) *ExperienceHandler {
	return &ExperienceHandler{experiences: experiences, retryAfterSecs: retryAfterSecs}
}

// Create handles POST /experiences.
func (h *ExperienceHandler) Create(c *fiber.Ctx) error {
	var sub schema.Submission
	if err := c.BodyParser(&sub); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result, err := h.experiences.Submit(c.UserContext(), sub)
	if err != nil {
		return h.rejectionResponse(c, err)
	}
	return c.JSON(result)
}

func (h *ExperienceHandler) rejectionResponse(c *fiber.Ctx, err error) error {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": verr.Message,
			"field": verr.Field,
		})
	}

	var mrr *models.ModerationRejectedError
	if errors.As(err, &mrr) {
		// Reason only. The flag list stays internal.
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Moderation rejected: " + mrr.Reason,
		})
	}

	switch {
	case errors.Is(err, models.ErrRateLimited):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":       err.Error(),
			"retry_after": h.retryAfterSecs,
		})
	case errors.Is(err, models.ErrDuplicateContent):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, models.ErrStorageFull):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": err.Error(),
		})
	default:
		log.Printf("❌ [EXPERIENCE] Submission failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal error, submission not saved",
		})
	}
}

// List handles GET /experiences.
func (h *ExperienceHandler) List(c *fiber.Ctx) error {
	q := services.SearchQuery{
		Category: c.Query("category"),
		Tags:     splitTags(c.Query("tags")),
		Type:     c.Query("type"),
		Query:    c.Query("q"),
		Limit:    c.QueryInt("limit"),
	}
	return c.JSON(h.experiences.Search(q))
}

// Get handles GET /experiences/:id, returning the rendered markdown.
func (h *ExperienceHandler) Get(c *fiber.Ctx) error {
	doc, err := h.experiences.Fetch(c.Params("id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Experience not found",
			})
		}
		log.Printf("❌ [EXPERIENCE] Fetch failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read experience",
		})
	}
	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	return c.SendString(doc)
}

// Warnings handles GET /warnings/:category.
func (h *ExperienceHandler) Warnings(c *fiber.Ctx) error {
	return h.typedList(c, "warning")
}

// Tips handles GET /tips/:category.
func (h *ExperienceHandler) Tips(c *fiber.Ctx) error {
	return h.typedList(c, "tip")
}

// Solutions handles GET /solutions/:category.
func (h *ExperienceHandler) Solutions(c *fiber.Ctx) error {
	return h.typedList(c, "solution")
}

func (h *ExperienceHandler) typedList(c *fiber.Ctx, entryType string) error {
	q := services.SearchQuery{
		Category: c.Params("category"),
		Tags:     splitTags(c.Query("tags")),
		Type:     entryType,
		Limit:    c.QueryInt("limit", 20),
	}
	return c.JSON(h.experiences.Search(q))
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
