package server

import (
	"teamtrack/internal/service"

	"github.com/gofiber/fiber/v2"
)

type teamRequest struct {
	ID    uint    `json:"id"`
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

// GetTeams handles GET /api/teams
// @Summary List teams
// @Description Every team with its members, hidden teams included
// @Tags teams
// @Produce json
// @Success 200 {array} models.Team
// @Router /teams [get]
func (s *Server) GetTeams(c *fiber.Ctx) error {
	teams, err := s.teamService.ListTeams(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(teams)
}

// GetTeam handles GET /api/teams/:id
// @Summary Get team
// @Tags teams
// @Produce json
// @Param id path int true "Team ID"
// @Success 200 {object} models.Team
// @Failure 404 {object} models.ErrorResponse
// @Router /teams/{id} [get]
func (s *Server) GetTeam(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	team, err := s.teamService.GetTeam(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(team)
}

// GetBoard handles GET /api/teams/board
// @Summary Team board
// @Description Visible teams ranked by progress with per-member daily checks
// @Tags teams
// @Produce json
// @Success 200 {array} progress.TeamProgress
// @Router /teams/board [get]
func (s *Server) GetBoard(c *fiber.Ctx) error {
	board, err := s.progressService.Board(c.UserContext(), s.now())
	if err != nil {
		return respondError(c, err)
	}
	days := s.progressService.Calendar().TrackedDays()
	dates := make([]string, len(days))
	for i, d := range days {
		dates[i] = d.Format("2006-01-02")
	}
	return c.JSON(fiber.Map{
		"days":  dates,
		"today": s.progressService.Calendar().TodayIndex(s.now()),
		"teams": board,
	})
}

// CreateTeam handles POST /api/teams
// @Summary Create team
// @Tags teams
// @Accept json
// @Produce json
// @Param request body object{name=string,color=string} true "Team"
// @Success 201 {object} models.Team
// @Security BearerAuth
// @Router /teams [post]
func (s *Server) CreateTeam(c *fiber.Ctx) error {
	var req teamRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	team, err := s.teamService.CreateTeam(c.UserContext(), actorFrom(c), service.TeamInput{Name: req.Name, Color: req.Color})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(team)
}

// UpdateTeam handles PUT /api/teams and PUT /api/teams/:id
// @Summary Update team
// @Description The id comes from the path or, on /teams, from the body
// @Tags teams
// @Accept json
// @Produce json
// @Param request body object{id=integer,name=string,color=string} true "Team"
// @Success 200 {object} models.Team
// @Security BearerAuth
// @Router /teams/{id} [put]
func (s *Server) UpdateTeam(c *fiber.Ctx) error {
	var req teamRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	id, err := s.teamIDFrom(c, req.ID)
	if err != nil {
		return nil
	}
	team, err := s.teamService.UpdateTeam(c.UserContext(), actorFrom(c), id, service.TeamInput{Name: req.Name, Color: req.Color})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(team)
}

// DeleteTeam handles DELETE /api/teams and DELETE /api/teams/:id
// @Summary Delete team
// @Description Rejected while members remain unless the unassign policy is configured
// @Tags teams
// @Produce json
// @Param id path int true "Team ID"
// @Success 200 {object} object{message=string}
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /teams/{id} [delete]
func (s *Server) DeleteTeam(c *fiber.Ctx) error {
	var req teamRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}
	id, err := s.teamIDFrom(c, req.ID)
	if err != nil {
		return nil
	}
	if err := s.teamService.DeleteTeam(c.UserContext(), actorFrom(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Team deleted"})
}

// teamIDFrom prefers the :id path parameter and falls back to the body id.
func (s *Server) teamIDFrom(c *fiber.Ctx, bodyID uint) (uint, error) {
	if c.Params("id") != "" {
		return parseID(c, "id")
	}
	if bodyID == 0 {
		_ = badRequest(c, "id is required")
		return 0, errResponseWritten
	}
	return bodyID, nil
}
