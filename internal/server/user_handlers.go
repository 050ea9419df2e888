package server

import (
	"teamtrack/internal/models"
	"teamtrack/internal/service"
	"teamtrack/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// GetUsers handles GET /api/users
// @Summary List users
// @Description List users with their team; filter with ?role=
// @Tags users
// @Produce json
// @Param role query string false "admin, leader or member"
// @Success 200 {array} models.User
// @Router /users [get]
func (s *Server) GetUsers(c *fiber.Ctx) error {
	if raw := c.Query("role"); raw != "" {
		role, err := models.ParseRole(raw)
		if err != nil {
			return badRequest(c, "Invalid role")
		}
		users, err := s.userService.ListByRole(c.UserContext(), role)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(users)
	}

	users, err := s.userService.ListUsers(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// GetUser handles GET /api/users/:id
// @Summary Get user
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUser(c *fiber.Ctx) error {
	user, err := s.userService.GetUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

type createUserRequest struct {
	registerRequest
	Role string `json:"role" validate:"omitempty,role"`
}

// CreateUser handles POST /api/users
// @Summary Create user
// @Tags users
// @Accept json
// @Produce json
// @Param request body createUserRequest true "User"
// @Success 201 {object} models.User
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users [post]
func (s *Server) CreateUser(c *fiber.Ctx) error {
	var req createUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return respondError(c, err)
	}

	user, err := s.userService.CreateUser(c.UserContext(), actorFrom(c), service.CreateUserInput{
		RegisterInput: service.RegisterInput{
			ID:       req.ID,
			Password: req.Password,
			Name:     req.Name,
			Cohort:   req.Cohort,
			TeamID:   req.TeamID,
		},
		Role: models.Role(req.Role),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

type updateUserRequest struct {
	Name     *string        `json:"name"`
	Cohort   *string        `json:"cohort"`
	Avatar   *string        `json:"avatar"`
	Password *string        `json:"password"`
	Role     *string        `json:"role"`
	TeamID   optionalTeamID `json:"teamId"`
}

// UpdateUser handles PUT /api/users/:id
// @Summary Update user
// @Description Self or admin may edit profile fields; only admins change role or team
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body object{name=string,cohort=string,avatar=string,password=string,role=string,teamId=integer} true "Fields"
// @Success 200 {object} models.User
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/{id} [put]
func (s *Server) UpdateUser(c *fiber.Ctx) error {
	var req updateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	in := service.UpdateUserInput{
		Name:     req.Name,
		Cohort:   req.Cohort,
		Avatar:   req.Avatar,
		Password: req.Password,
		TeamSet:  req.TeamID.Set,
		TeamID:   req.TeamID.Value,
	}
	if req.Role != nil {
		role, err := models.ParseRole(*req.Role)
		if err != nil {
			return badRequest(c, "Invalid role")
		}
		in.Role = &role
	}

	user, err := s.userService.UpdateUser(c.UserContext(), actorFrom(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// UpdateUserRole handles PUT /api/users/role
// @Summary Change role
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{id=string,role=string} true "Role change"
// @Success 200 {object} object{id=string,role=string}
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/role [put]
func (s *Server) UpdateUserRole(c *fiber.Ctx) error {
	var req struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.ID == "" {
		return badRequest(c, "id is required")
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		return badRequest(c, "Invalid role")
	}

	user, err := s.userService.ChangeRole(c.UserContext(), actorFrom(c), req.ID, role)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"id": user.ID, "role": user.Role})
}

// DeleteUser handles DELETE /api/users/:id
// @Summary Delete user
// @Description Removes the user with their progress and chat history
// @Tags users
// @Param id path string true "User ID"
// @Success 204
// @Security BearerAuth
// @Router /users/{id} [delete]
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	if err := s.userService.DeleteUser(c.UserContext(), actorFrom(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
