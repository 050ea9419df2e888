// Package bootstrap wires the database, Redis and first-run data for the commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"teamtrack/internal/cache"
	"teamtrack/internal/config"
	"teamtrack/internal/database"
	"teamtrack/internal/middleware"
	"teamtrack/internal/models"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// InitRuntime connects to DB and Redis and ensures the development root admin.
// The Redis client is nil when Redis is unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := ensureDevRootAdmin(ctx, cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}

	return db, r, nil
}

// ensureDevRootAdmin creates or promotes DEV_ROOT_ID in development when
// DEV_ROOT_PASSWORD is set. An existing account keeps its password.
func ensureDevRootAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || cfg.DevRootPassword == "" {
		return nil
	}

	id := strings.TrimSpace(cfg.DevRootID)
	if id == "" {
		id = "admin"
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.DevRootPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var root models.User
		findErr := tx.First(&root, "id = ?", id).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			return tx.Create(&models.User{
				ID:       id,
				Password: string(hashed),
				Name:     "Administrator",
				Role:     models.RoleAdmin,
				Avatar:   models.DefaultAvatar,
			}).Error
		case findErr != nil:
			return findErr
		case root.Role != models.RoleAdmin:
			return tx.Model(&models.User{}).Where("id = ?", id).Update("role", models.RoleAdmin).Error
		}
		return nil
	})
	if err != nil {
		return err
	}

	cache.InvalidateUser(ctx, id)
	middleware.Logger.Info("development root admin ensured", "id", id)
	return nil
}
