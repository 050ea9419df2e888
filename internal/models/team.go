package models

import "time"

// Team groups users that race against other teams on the board.
type Team struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Color     string    `gorm:"size:32" json:"color"`
	Users     []User    `gorm:"foreignKey:TeamID" json:"users,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
