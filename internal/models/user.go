// Package models contains data structures for the application's domain models.
package models

import "time"

// DefaultAvatar is assigned to users who have not uploaded one.
const DefaultAvatar = "/default.png"

// User represents a tracked participant. ID is chosen by the user at
// registration and never changes afterwards.
type User struct {
	ID                   string    `gorm:"primaryKey;size:64" json:"id"`
	Password             string    `gorm:"not null" json:"-"`
	Name                 string    `gorm:"size:100;not null" json:"name"`
	Cohort               string    `gorm:"size:50" json:"cohort"`
	TeamID               *uint     `gorm:"index" json:"teamId"`
	Team                 *Team     `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	Avatar               string    `json:"avatar"`
	Role                 Role      `gorm:"type:varchar(16);not null;default:'member'" json:"role"`
	PasswordResetPending bool      `gorm:"not null;default:false" json:"passwordReset"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// InTeam reports whether the user is assigned to the given team.
func (u *User) InTeam(teamID uint) bool {
	return u != nil && u.TeamID != nil && *u.TeamID == teamID
}
