package database

import (
	"context"
	"log/slog"
	"testing"
	"testing/fstest"
	"time"

	"teamtrack/internal/config"
	"teamtrack/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return db
}

func TestConfigurePool(t *testing.T) {
	db := openSQLite(t)

	cfg := &config.Config{DBMaxOpenConns: 10, DBMaxIdleConns: 5, DBConnMaxLifetime: 15}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		runSQL  bool
		runAuto bool
		wantErr bool
	}{
		{"sqlite always auto", config.Config{DBDriver: "sqlite", Env: "production", DBSchemaMode: "sql"}, false, true, false},
		{"hybrid development", config.Config{DBDriver: "postgres", Env: "development"}, true, true, false},
		{"hybrid production", config.Config{DBDriver: "postgres", Env: "production", DBSchemaMode: "hybrid"}, true, false, false},
		{"sql only", config.Config{DBDriver: "postgres", Env: "development", DBSchemaMode: "sql"}, true, false, false},
		{"auto refused in prod", config.Config{DBDriver: "postgres", Env: "prod", DBSchemaMode: "auto"}, false, false, true},
		{"unknown mode", config.Config{DBDriver: "postgres", DBSchemaMode: "yolo"}, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runSQL, runAuto, err := schemaPolicy(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.runSQL, runSQL)
			assert.Equal(t, tt.runAuto, runAuto)
		})
	}
}

func TestApplySchema_SQLiteEnforcesProgressUniqueness(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, ApplySchema(context.Background(), db, &config.Config{DBDriver: "sqlite", Env: "test"}))

	require.NoError(t, db.Create(&models.User{ID: "alice", Password: "x", Name: "Alice", Role: models.RoleMember}).Error)

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&models.ProgressEntry{UserID: "alice", Date: day, Completed: true}).Error)
	err := db.Create(&models.ProgressEntry{UserID: "alice", Date: day, Completed: false}).Error
	assert.Error(t, err, "second row for the same user and day must violate idx_progress_user_date")
}

func TestPersistentModels_IncludesDomainTables(t *testing.T) {
	var haveProgress, haveChat bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *models.ProgressEntry:
			haveProgress = true
		case *models.ChatMessage:
			haveChat = true
		}
	}
	assert.True(t, haveProgress)
	assert.True(t, haveChat)
}

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/000002_second.up.sql":   {Data: []byte("SELECT 2;")},
		"m/000002_second.down.sql": {Data: []byte("SELECT -2;")},
		"m/000001_first.up.sql":    {Data: []byte("SELECT 1;")},
		"m/000001_first.down.sql":  {Data: []byte("SELECT -1;")},
		"m/bogus.up.sql":           {Data: []byte("SELECT 0;")},
	}

	got, err := LoadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Version)
	assert.Equal(t, "first", got[0].Name)
	assert.Equal(t, "000002_second", got[1].String())

	delete(fsys, "m/000002_second.down.sql")
	_, err = LoadMigrations(fsys, "m")
	assert.Error(t, err)
}

func TestEmbeddedMigrationsRegistered(t *testing.T) {
	m := GetMigrationByVersion(1)
	require.NotNil(t, m)
	assert.Contains(t, m.UpScript, "idx_progress_user_date")
	assert.Contains(t, m.DownScript, "DROP TABLE IF EXISTS progress")
}

func TestMigrationStore_SQLite(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	store := NewMigrationStore(db)

	applied, err := store.GetAppliedMigrations(ctx)
	require.NoError(t, err, "missing table reads as no migrations")
	assert.Empty(t, applied)

	require.NoError(t, db.AutoMigrate(&MigrationLog{}))
	require.NoError(t, store.ApplyMigration(ctx, 7, "noop", "CREATE TABLE scratch (id INTEGER)"))

	applied, err = store.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{7}, applied)

	assert.Error(t, validateAppliedVersions(applied, GetMigrations()))
	require.NoError(t, store.RemoveMigration(ctx, 7))
}

func TestCustomGormLogger_LogMode(t *testing.T) {
	l := NewGormLogger(slog.Default())
	silent := l.LogMode(logger.Silent).(*CustomGormLogger)
	assert.Equal(t, logger.Silent, silent.Config.LogLevel)
	assert.Equal(t, logger.Warn, l.Config.LogLevel)
	assert.NotPanics(t, func() {
		silent.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, nil)
	})
}
