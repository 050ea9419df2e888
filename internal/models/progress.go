package models

import "time"

// ProgressEntry records whether a user completed a given calendar day.
// Date is always the start of the day and (UserID, Date) is unique.
type ProgressEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:64;not null;uniqueIndex:idx_progress_user_date,priority:1" json:"userId"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Date      time.Time `gorm:"not null;uniqueIndex:idx_progress_user_date,priority:2" json:"date"`
	Completed bool      `gorm:"not null" json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName pins the table name used by the unique index.
func (ProgressEntry) TableName() string {
	return "progress"
}
