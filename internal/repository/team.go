package repository

import (
	"context"

	"teamtrack/internal/cache"
	"teamtrack/internal/models"

	"gorm.io/gorm"
)

// TeamRepository defines persistence operations for teams.
type TeamRepository interface {
	List(ctx context.Context) ([]models.Team, error)
	ListWithMembers(ctx context.Context) ([]models.Team, error)
	GetByID(ctx context.Context, id uint) (*models.Team, error)
	Create(ctx context.Context, team *models.Team) error
	Update(ctx context.Context, team *models.Team) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	DB() *gorm.DB
}

type teamRepository struct {
	db *gorm.DB
}

// NewTeamRepository returns a new TeamRepository implementation.
func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &teamRepository{db: db}
}

// DB exposes the handle services use to open cross-repository transactions.
func (r *teamRepository) DB() *gorm.DB {
	return r.db
}

func (r *teamRepository) List(ctx context.Context) ([]models.Team, error) {
	var teams []models.Team
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&teams).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return teams, nil
}

// ListWithMembers returns every team with its users preloaded, cached under teams:all.
func (r *teamRepository) ListWithMembers(ctx context.Context) ([]models.Team, error) {
	var teams []models.Team
	err := cache.Aside(ctx, cache.TeamsKey, &teams, cache.TeamsTTL, func() error {
		err := r.db.WithContext(ctx).
			Preload("Users", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
			Order("id ASC").
			Find(&teams).Error
		if err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *teamRepository) GetByID(ctx context.Context, id uint) (*models.Team, error) {
	var team models.Team
	if err := r.db.WithContext(ctx).First(&team, id).Error; err != nil {
		return nil, notFoundOr(err, "Team", id)
	}
	return &team, nil
}

func (r *teamRepository) Create(ctx context.Context, team *models.Team) error {
	if err := r.db.WithContext(ctx).Omit("Users").Create(team).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateTeams(ctx)
	return nil
}

func (r *teamRepository) Update(ctx context.Context, team *models.Team) error {
	res := r.db.WithContext(ctx).Model(&models.Team{}).Where("id = ?", team.ID).
		Updates(map[string]interface{}{"name": team.Name, "color": team.Color})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Team", team.ID)
	}
	cache.InvalidateTeams(ctx)
	cache.Invalidate(ctx, cache.UsersListKey)

	// Cached profiles embed the team.
	var ids []string
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("team_id = ?", team.ID).Pluck("id", &ids).Error; err != nil {
		return models.NewInternalError(err)
	}
	for _, id := range ids {
		cache.InvalidateUser(ctx, id)
	}
	return nil
}

// Delete removes a team. tx may be nil to use the repository DB.
func (r *teamRepository) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := tx
	if db == nil {
		db = r.db
	}
	res := db.WithContext(ctx).Delete(&models.Team{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Team", id)
	}
	cache.InvalidateTeams(ctx)
	cache.Invalidate(ctx, cache.UsersListKey)
	return nil
}
