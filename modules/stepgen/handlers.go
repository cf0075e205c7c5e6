package stepgen

import (
	"log"

	"github.com/gofiber/fiber/v2"
)

// Handlers contains the generator server's HTTP handlers.
type Handlers struct {
	generator *Generator
}

// NewHandlers creates a Handlers instance.
func NewHandlers(generator *Generator) *Handlers {
	return &Handlers{generator: generator}
}

// GenerateSteps handles POST /generate-steps. The endpoint trusts its
// caller for identity and ownership decisions; it only validates the
// request shape.
func (h *Handlers) GenerateSteps(c *fiber.Ctx) error {
	var req GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	task := NormalizeTitle(req.Task)
	if task == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Task is required",
		})
	}

	result := h.generator.Generate(c.UserContext(), task)
	log.Printf("[stepgen] Generated steps for %q (source: %s)", task, result.Source)

	return c.Status(fiber.StatusOK).JSON(GenerateResponse{Steps: result.Steps})
}
