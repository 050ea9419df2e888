package repository

import (
	"context"
	"errors"
	"time"

	"teamtrack/internal/models"
	"teamtrack/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxUpsertAttempts bounds the insert-then-update loop when two first writes race.
const maxUpsertAttempts = 3

// ProgressRepository persists per-user daily completion marks.
type ProgressRepository interface {
	Upsert(ctx context.Context, userID string, day time.Time, completed bool) (*models.ProgressEntry, error)
	ListByUser(ctx context.Context, userID string) ([]models.ProgressEntry, error)
	ListByUsers(ctx context.Context, userIDs []string) (map[string][]models.ProgressEntry, error)
}

type progressRepository struct {
	db *gorm.DB
}

// NewProgressRepository returns a new ProgressRepository implementation.
func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

// Upsert writes the (userID, day) row with a single INSERT ... ON CONFLICT DO UPDATE.
// day must already be normalized; it is stored in UTC. If a concurrent insert still
// surfaces a unique violation the row is updated in place, up to maxUpsertAttempts.
func (r *progressRepository) Upsert(ctx context.Context, userID string, day time.Time, completed bool) (*models.ProgressEntry, error) {
	day = day.UTC()

	var lastErr error
	for attempt := 0; attempt < maxUpsertAttempts; attempt++ {
		entry, err := r.insertOrUpdate(ctx, userID, day, completed)
		if err == nil {
			return entry, nil
		}
		if !isUniqueConstraintError(err) {
			return nil, models.NewInternalError(err)
		}
		lastErr = err
		observability.UpsertRetries.Inc()

		entry, err = r.updateExisting(ctx, userID, day, completed)
		if err == nil {
			return entry, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewInternalError(err)
		}
	}
	return nil, models.NewInternalError(lastErr)
}

func (r *progressRepository) insertOrUpdate(ctx context.Context, userID string, day time.Time, completed bool) (*models.ProgressEntry, error) {
	var entry models.ProgressEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.ProgressEntry{UserID: userID, Date: day, Completed: completed}
		err := tx.Omit("User").Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"completed", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
		return tx.Where("user_id = ? AND date = ?", userID, day).First(&entry).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *progressRepository) updateExisting(ctx context.Context, userID string, day time.Time, completed bool) (*models.ProgressEntry, error) {
	var entry models.ProgressEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ProgressEntry{}).
			Where("user_id = ? AND date = ?", userID, day).
			Updates(map[string]interface{}{"completed": completed, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("user_id = ? AND date = ?", userID, day).First(&entry).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *progressRepository) ListByUser(ctx context.Context, userID string) ([]models.ProgressEntry, error) {
	var entries []models.ProgressEntry
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("date ASC").Find(&entries).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return entries, nil
}

// ListByUsers groups entries by user id, each slice ordered by date ascending.
func (r *progressRepository) ListByUsers(ctx context.Context, userIDs []string) (map[string][]models.ProgressEntry, error) {
	out := make(map[string][]models.ProgressEntry, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var entries []models.ProgressEntry
	err := r.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("user_id ASC").Order("date ASC").
		Find(&entries).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, e := range entries {
		out[e.UserID] = append(out[e.UserID], e)
	}
	return out, nil
}
