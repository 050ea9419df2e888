package database

import "teamtrack/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Teams come before users so the foreign key target exists during AutoMigrate.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Team{},
		&models.User{},
		&models.ProgressEntry{},
		&models.ChatMessage{},
	}
}
