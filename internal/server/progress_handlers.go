package server

import (
	"teamtrack/internal/progress"

	"github.com/gofiber/fiber/v2"
)

// GetProgress handles GET /api/progress?userId=
// @Summary User progress entries
// @Description Every stored completion row for the user, oldest day first
// @Tags progress
// @Produce json
// @Param userId query string true "User ID"
// @Success 200 {array} models.ProgressEntry
// @Failure 404 {object} models.ErrorResponse
// @Router /progress [get]
func (s *Server) GetProgress(c *fiber.Ctx) error {
	userID := c.Query("userId")
	if userID == "" {
		return badRequest(c, "userId is required")
	}
	p, err := s.progressService.GetProgress(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(p.Entries)
}

// GetProgressSummary handles GET /api/progress/summary?userId=
// @Summary User progress summary
// @Description Daily checks over the tracked days with the completed count and percentage
// @Tags progress
// @Produce json
// @Param userId query string true "User ID"
// @Success 200 {object} service.UserProgress
// @Failure 404 {object} models.ErrorResponse
// @Router /progress/summary [get]
func (s *Server) GetProgressSummary(c *fiber.Ctx) error {
	userID := c.Query("userId")
	if userID == "" {
		return badRequest(c, "userId is required")
	}
	p, err := s.progressService.GetProgress(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(p)
}

type progressRequest struct {
	UserID    string `json:"userId"`
	Date      string `json:"date"`
	Completed *bool  `json:"completed"`
}

// RecordProgress handles POST /api/progress
// @Summary Set a day's completion
// @Description Members change today only; leaders change past days of their team; admins any day
// @Tags progress
// @Accept json
// @Produce json
// @Param request body progressRequest true "Completion"
// @Success 200 {object} models.ProgressEntry
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /progress [post]
func (s *Server) RecordProgress(c *fiber.Ctx) error {
	var req progressRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Completed == nil {
		return badRequest(c, "completed is required")
	}
	actor := actorFrom(c)
	if req.UserID == "" {
		req.UserID = actor.ID
	}

	day, err := progress.ParseDay(req.Date, s.loc)
	if err != nil {
		return badRequest(c, "date must be an ISO-8601 date")
	}

	entry, err := s.progressService.RecordCompletion(c.UserContext(), actor, req.UserID, day, *req.Completed, s.now())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(entry)
}
