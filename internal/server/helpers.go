package server

import (
	"bytes"
	"encoding/json"
	"errors"

	"teamtrack/internal/models"
	"teamtrack/internal/policy"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten signals that a helper already committed the response.
// Handlers must return nil rather than this error so Fiber's ErrorHandler
// does not overwrite it.
var errResponseWritten = errors.New("response already written")

// statusFor maps an AppError code to its HTTP status.
func statusFor(err error) int {
	switch models.ErrorCode(err) {
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	case models.CodeForbidden:
		return fiber.StatusForbidden
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, statusFor(err), err)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(msg))
}

// actorFrom returns the authenticated caller, or the zero Actor on public routes.
func actorFrom(c *fiber.Ctx) policy.Actor {
	actor, _ := c.Locals("actor").(policy.Actor)
	return actor
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = badRequest(c, "Invalid "+param)
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// optionalTeamID distinguishes an absent "teamId" from an explicit null.
type optionalTeamID struct {
	Set   bool
	Value *uint
}

func (o *optionalTeamID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var id uint
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	o.Value = &id
	return nil
}
