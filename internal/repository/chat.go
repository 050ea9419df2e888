package repository

import (
	"context"
	"time"

	"teamtrack/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatRepository is the append-only chat message store.
type ChatRepository interface {
	Append(ctx context.Context, msg *models.ChatMessage) error
	ListSince(ctx context.Context, from time.Time) ([]models.ChatMessage, error)
	ListAll(ctx context.Context, newestFirst bool) ([]models.ChatMessage, error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) Append(ctx context.Context, msg *models.ChatMessage) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	msg.Timestamp = msg.Timestamp.UTC()
	if err := r.db.WithContext(ctx).Omit("User").Create(msg).Error; err != nil {
		return models.NewInternalError(err)
	}
	if err := r.db.WithContext(ctx).Preload("User").First(msg, msg.ID).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ListSince returns messages at or after from, oldest first.
func (r *chatRepository) ListSince(ctx context.Context, from time.Time) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	err := r.withUser(ctx).
		Where(clause.Gte{Column: timestampColumn, Value: from.UTC()}).
		Order(byTimestamp(false)).
		Find(&msgs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return msgs, nil
}

// ListAll returns every message for the audit view.
func (r *chatRepository) ListAll(ctx context.Context, newestFirst bool) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	if err := r.withUser(ctx).Order(byTimestamp(newestFirst)).Find(&msgs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return msgs, nil
}

// timestamp is a SQL keyword, so the column always goes through clause quoting.
var timestampColumn = clause.Column{Table: clause.CurrentTable, Name: "timestamp"}

func byTimestamp(desc bool) clause.OrderBy {
	return clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: timestampColumn, Desc: desc},
		{Column: clause.Column{Table: clause.CurrentTable, Name: "id"}, Desc: desc},
	}}
}

func (r *chatRepository) withUser(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("User", func(db *gorm.DB) *gorm.DB {
		return db.Select("id", "name", "avatar", "role", "team_id")
	})
}
