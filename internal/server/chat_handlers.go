package server

import (
	"teamtrack/internal/featureflags"
	"teamtrack/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetChat handles GET /api/chat
// @Summary Today's chat
// @Description Messages posted since local midnight, oldest first
// @Tags chat
// @Produce json
// @Success 200 {array} models.ChatMessage
// @Security BearerAuth
// @Router /chat [get]
func (s *Server) GetChat(c *fiber.Ctx) error {
	msgs, err := s.chatService.Today(c.UserContext(), s.now())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(msgs)
}

// PostChat handles POST /api/chat
// @Summary Send chat message
// @Tags chat
// @Accept json
// @Produce json
// @Param request body object{message=string} true "Message"
// @Success 201 {object} models.ChatMessage
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /chat [post]
func (s *Server) PostChat(c *fiber.Ctx) error {
	actor := actorFrom(c)
	if !s.featureFlags.EnabledOr(featureflags.Chat, actor.ID, true) {
		return models.RespondWithError(c, fiber.StatusForbidden, models.NewForbiddenError("Chat is disabled"))
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	msg, err := s.chatService.Send(c.UserContext(), actor, req.Message, s.now())
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// GetChatLogs handles GET /api/chat/logs
// @Summary Chat audit log
// @Description Full chat history, newest first
// @Tags chat
// @Produce json
// @Success 200 {array} models.ChatMessage
// @Security BearerAuth
// @Router /chat/logs [get]
func (s *Server) GetChatLogs(c *fiber.Ctx) error {
	logs, err := s.chatService.Logs(c.UserContext(), actorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(logs)
}
