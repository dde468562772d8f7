package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"uploade/internal/schema"
)

// SchemaHandler serves the submission vocabulary and limits document.
type SchemaHandler struct {
	doc fiber.Map
}

// NewSchemaHandler precomputes the /schema response.
func NewSchemaHandler(sch *schema.Schema, uploadsPerHour int) *SchemaHandler {
	return &SchemaHandler{
		doc: fiber.Map{
			"categories": sch.Vocabulary().Categories,
			"tags":       sch.Vocabulary().Tags,
			"types":      sch.Vocabulary().Types,
			"limits": fiber.Map{
				"uploads_per_hour": uploadsPerHour,
				"title":            fmt.Sprintf("%d-%d chars", schema.MinTitleLen, schema.MaxTitleLen),
				"content":          fmt.Sprintf("%d-%d chars", schema.MinContentLen, schema.MaxContentLen),
				"tags":             fmt.Sprintf("1-%d", schema.MaxTags),
				"request_size":     "10KB",
			},
		},
	}
}

// Handle responds with the fixed vocabulary.
func (h *SchemaHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(h.doc)
}
