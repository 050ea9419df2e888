// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"fmt"

	"teamtrack/internal/cache"
	"teamtrack/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetCredentials(ctx context.Context, id string) (*models.User, error)
	Exists(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.User, error)
	ListByRole(ctx context.Context, role models.Role) ([]models.User, error)
	ListByTeam(ctx context.Context, teamID uint) ([]models.User, error)
	CountByTeam(ctx context.Context, teamID uint) (int64, error)
	ClearTeam(ctx context.Context, tx *gorm.DB, teamID uint) ([]string, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		if err := r.db.WithContext(ctx).Preload("Team").First(&user, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "User", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetCredentials reads a user straight from the database. The cached
// profile omits the password hash, so authentication must not use GetByID.
func (r *userRepository) GetCredentials(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Omit("Team").Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError(fmt.Sprintf("User %q already exists", user.ID))
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, user.ID)
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Omit("Team").Save(user).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, user.ID)
	return nil
}

// UpdateFields writes only the given columns. A missing user is NotFound.
func (r *userRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	cache.InvalidateUser(ctx, id)
	return nil
}

// Delete removes the user together with their chat messages and progress rows.
func (r *userRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.ProgressEntry{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("User", id)
		}
		return nil
	})
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return err
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, id)
	cache.InvalidateProgress(ctx, id)
	return nil
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := cache.Aside(ctx, cache.UsersListKey, &users, cache.UsersTTL, func() error {
		if err := r.db.WithContext(ctx).Preload("Team").Order("id ASC").Find(&users).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Where("role = ?", role).Order("id ASC").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) ListByTeam(ctx context.Context, teamID uint) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Where("team_id = ?", teamID).Order("id ASC").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) CountByTeam(ctx context.Context, teamID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("team_id = ?", teamID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// ClearTeam nulls team_id for every member of teamID and returns the affected
// ids. tx may be nil to use the repository DB. Callers invalidate the returned
// user keys once the surrounding transaction has committed.
func (r *userRepository) ClearTeam(ctx context.Context, tx *gorm.DB, teamID uint) ([]string, error) {
	db := tx
	if db == nil {
		db = r.db
	}
	var ids []string
	if err := db.WithContext(ctx).Model(&models.User{}).Where("team_id = ?", teamID).Pluck("id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if err := db.WithContext(ctx).Model(&models.User{}).Where("id IN ?", ids).Update("team_id", nil).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}
