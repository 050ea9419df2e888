package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"teamtrack/internal/cache"
	"teamtrack/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	team := seedTeam(t, db, "Red")

	u := &models.User{ID: "alice", Password: "hash", Name: "Alice", TeamID: &team.ID, Role: models.RoleMember}
	require.NoError(t, repo.Create(ctx, u))

	got, err := repo.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
	require.NotNil(t, got.Team)
	assert.Equal(t, "Red", got.Team.Name)

	err = repo.Create(ctx, &models.User{ID: "alice", Password: "x", Name: "Dup", Role: models.RoleMember})
	assert.True(t, models.IsCode(err, models.CodeConflict), "duplicate id must be a conflict, got %v", err)

	_, err = repo.GetByID(ctx, "ghost")
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	ok, err := repo.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUserRepository_CredentialsBypassCache(t *testing.T) {
	mr := setupMiniredis(t)
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	seedUser(t, db, "alice", nil, models.RoleMember)

	// Prime the profile cache; the stored JSON carries no password.
	_, err := repo.GetByID(ctx, "alice")
	require.NoError(t, err)
	require.True(t, mr.Exists(cache.UserKey("alice")))

	cached, err := repo.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, cached.Password)

	creds, err := repo.GetCredentials(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "hash", creds.Password)

	_, err = repo.GetCredentials(ctx, "ghost")
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestUserRepository_ClearTeamEmptyTeam(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	red := seedTeam(t, db, "Red")

	cleared, err := repo.ClearTeam(context.Background(), nil, red.ID)
	require.NoError(t, err)
	assert.Empty(t, cleared)
}

func TestUserRepository_UpdateFields(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	seedUser(t, db, "bob", nil, models.RoleMember)

	require.NoError(t, repo.UpdateFields(ctx, "bob", map[string]interface{}{"name": "Robert", "role": models.RoleLeader}))
	got, err := repo.GetByID(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "Robert", got.Name)
	assert.Equal(t, models.RoleLeader, got.Role)

	err = repo.UpdateFields(ctx, "ghost", map[string]interface{}{"name": "x"})
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestUserRepository_DeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	seedUser(t, db, "carol", nil, models.RoleMember)
	seedUser(t, db, "dave", nil, models.RoleMember)

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&models.ProgressEntry{UserID: "carol", Date: day, Completed: true}).Error)
	require.NoError(t, db.Create(&models.ProgressEntry{UserID: "dave", Date: day, Completed: true}).Error)
	require.NoError(t, db.Create(&models.ChatMessage{UserID: "carol", Message: "hi", Timestamp: day}).Error)

	require.NoError(t, repo.Delete(ctx, "carol"))

	var progressCount, chatCount int64
	db.Model(&models.ProgressEntry{}).Where("user_id = ?", "carol").Count(&progressCount)
	db.Model(&models.ChatMessage{}).Where("user_id = ?", "carol").Count(&chatCount)
	assert.Zero(t, progressCount)
	assert.Zero(t, chatCount)

	db.Model(&models.ProgressEntry{}).Where("user_id = ?", "dave").Count(&progressCount)
	assert.Equal(t, int64(1), progressCount, "other users' rows are untouched")

	err := repo.Delete(ctx, "carol")
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestUserRepository_TeamQueries(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	red := seedTeam(t, db, "Red")
	seedUser(t, db, "a", &red.ID, models.RoleLeader)
	seedUser(t, db, "b", &red.ID, models.RoleMember)
	seedUser(t, db, "c", nil, models.RoleAdmin)

	n, err := repo.CountByTeam(ctx, red.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	members, err := repo.ListByTeam(ctx, red.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "a", members[0].ID)

	admins, err := repo.ListByRole(ctx, models.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, admins, 1)

	cleared, err := repo.ClearTeam(ctx, nil, red.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, cleared)
	n, err = repo.CountByTeam(ctx, red.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestUserRepository_StorageError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(".+").WillReturnError(errors.New("connection reset"))

	_, err := repo.ListByRole(context.Background(), models.RoleAdmin)
	require.Error(t, err)
	assert.Equal(t, models.CodeInternal, models.ErrorCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueConstraintError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"pg error code", &pgconn.PgError{Code: "23505"}, true},
		{"pg other code", &pgconn.PgError{Code: "23503"}, false},
		{"wrapped pg error", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"gorm translated", gorm.ErrDuplicatedKey, true},
		{"sqlite text", errors.New("UNIQUE constraint failed: users.id"), true},
		{"other", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueConstraintError(tt.err))
		})
	}
}
