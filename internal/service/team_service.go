package service

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"teamtrack/internal/cache"
	"teamtrack/internal/config"
	"teamtrack/internal/models"
	"teamtrack/internal/policy"
	"teamtrack/internal/repository"

	"gorm.io/gorm"
)

var colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// TeamService manages teams. Writes are admin only.
type TeamService struct {
	teamRepo     repository.TeamRepository
	userRepo     repository.UserRepository
	deletePolicy string
}

// NewTeamService returns a TeamService. deletePolicy is config.TeamDeleteReject
// or config.TeamDeleteUnassign; anything else behaves as reject.
func NewTeamService(teamRepo repository.TeamRepository, userRepo repository.UserRepository, deletePolicy string) *TeamService {
	return &TeamService{teamRepo: teamRepo, userRepo: userRepo, deletePolicy: deletePolicy}
}

// TeamInput carries optional team fields.
type TeamInput struct {
	Name  *string
	Color *string
}

// ListTeams returns every team with its members.
func (s *TeamService) ListTeams(ctx context.Context) ([]models.Team, error) {
	return s.teamRepo.ListWithMembers(ctx)
}

// GetTeam returns one team.
func (s *TeamService) GetTeam(ctx context.Context, id uint) (*models.Team, error) {
	return s.teamRepo.GetByID(ctx, id)
}

// CreateTeam adds a team.
func (s *TeamService) CreateTeam(ctx context.Context, actor policy.Actor, in TeamInput) (*models.Team, error) {
	if !policy.CanManageTeams(actor) {
		return nil, models.NewForbiddenError("Only admins can manage teams")
	}
	if in.Name == nil {
		return nil, models.NewValidationError("name is required")
	}
	team := &models.Team{}
	if err := applyTeamInput(team, in); err != nil {
		return nil, err
	}
	if err := s.teamRepo.Create(ctx, team); err != nil {
		return nil, err
	}
	return team, nil
}

// UpdateTeam renames or recolors a team.
func (s *TeamService) UpdateTeam(ctx context.Context, actor policy.Actor, id uint, in TeamInput) (*models.Team, error) {
	if !policy.CanManageTeams(actor) {
		return nil, models.NewForbiddenError("Only admins can manage teams")
	}
	team, err := s.teamRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyTeamInput(team, in); err != nil {
		return nil, err
	}
	if err := s.teamRepo.Update(ctx, team); err != nil {
		return nil, err
	}
	return team, nil
}

// DeleteTeam removes a team. Under the reject policy a team with members
// cannot be deleted; under unassign its members are moved out first.
func (s *TeamService) DeleteTeam(ctx context.Context, actor policy.Actor, id uint) error {
	if !policy.CanManageTeams(actor) {
		return models.NewForbiddenError("Only admins can manage teams")
	}
	if _, err := s.teamRepo.GetByID(ctx, id); err != nil {
		return err
	}

	if s.deletePolicy != config.TeamDeleteUnassign {
		n, err := s.userRepo.CountByTeam(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return models.NewConflictError("Team still has members")
		}
		return s.teamRepo.Delete(ctx, s.teamRepo.DB(), id)
	}

	var cleared []string
	err := s.teamRepo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids, err := s.userRepo.ClearTeam(ctx, tx, id)
		if err != nil {
			return err
		}
		cleared = ids
		return s.teamRepo.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}
	for _, uid := range cleared {
		cache.InvalidateUser(ctx, uid)
	}
	return nil
}

func applyTeamInput(team *models.Team, in TeamInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return models.NewValidationError("name is required")
		}
		if utf8.RuneCountInString(name) > maxNameLen {
			return models.NewValidationError("name must be at most 100 characters")
		}
		team.Name = name
	}
	if in.Color != nil {
		color := strings.TrimSpace(*in.Color)
		if color != "" && !colorPattern.MatchString(color) {
			return models.NewValidationError("color must be a hex value like #1e90ff")
		}
		team.Color = color
	}
	return nil
}
