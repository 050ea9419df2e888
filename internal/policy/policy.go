// Package policy decides who may change which progress checkbox and who may
// manage users and teams. Every function here is pure.
package policy

import (
	"time"

	"teamtrack/internal/models"
)

// Actor is the authenticated caller.
type Actor struct {
	ID     string
	Role   models.Role
	TeamID *uint
}

// Target is the owner of the checkbox being changed.
type Target struct {
	UserID string
	TeamID *uint
}

// ActorFromUser builds an Actor from a stored user.
func ActorFromUser(u *models.User) Actor {
	return Actor{ID: u.ID, Role: u.Role, TeamID: u.TeamID}
}

// TargetFromUser builds a Target from a stored user.
func TargetFromUser(u *models.User) Target {
	return Target{UserID: u.ID, TeamID: u.TeamID}
}

// DayRelation places a calendar day relative to today.
type DayRelation int

const (
	Past DayRelation = iota
	Today
	Future
)

func (r DayRelation) String() string {
	switch r {
	case Past:
		return "past"
	case Today:
		return "today"
	default:
		return "future"
	}
}

// Relate compares the calendar dates of day and now in loc, ignoring time of day.
func Relate(day, now time.Time, loc *time.Location) DayRelation {
	if loc == nil {
		loc = time.Local
	}
	dy, dm, dd := day.In(loc).Date()
	ny, nm, nd := now.In(loc).Date()
	d := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
	n := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	switch {
	case d.Before(n):
		return Past
	case d.After(n):
		return Future
	default:
		return Today
	}
}

// Decision is the outcome of Decide.
type Decision int

const (
	Allowed Decision = iota
	DeniedFutureDay
	DeniedPastDay
	DeniedNotPermitted
)

// Allowed reports whether the decision permits the write.
func (d Decision) Allowed() bool {
	return d == Allowed
}

// Reason is a user-facing explanation for a denial.
func (d Decision) Reason() string {
	switch d {
	case Allowed:
		return ""
	case DeniedFutureDay:
		return "Only admins can check future days"
	case DeniedPastDay:
		return "Only admins and team leaders can change past days"
	default:
		return "You can only check your own progress"
	}
}

// Decide evaluates, in order: admin, leader of the target's team, self.
func Decide(actor Actor, target Target, day, now time.Time, loc *time.Location) Decision {
	rel := Relate(day, now, loc)

	switch actor.Role {
	case models.RoleAdmin:
		return Allowed
	case models.RoleLeader:
		if sameTeam(actor.TeamID, target.TeamID) {
			if rel == Future {
				return DeniedFutureDay
			}
			return Allowed
		}
	case models.RoleMember:
	default:
		return DeniedNotPermitted
	}

	if actor.ID != "" && actor.ID == target.UserID {
		switch rel {
		case Today:
			return Allowed
		case Future:
			return DeniedFutureDay
		default:
			return DeniedPastDay
		}
	}
	return DeniedNotPermitted
}

// CanModify reports whether actor may set target's checkbox for day.
func CanModify(actor Actor, target Target, day, now time.Time, loc *time.Location) bool {
	return Decide(actor, target, day, now, loc).Allowed()
}

func sameTeam(a, b *uint) bool {
	return a != nil && b != nil && *a == *b
}

// CanManageTeams reports whether actor may create, edit or delete teams.
func CanManageTeams(actor Actor) bool {
	return actor.Role == models.RoleAdmin
}

// CanManageUsers reports whether actor may create or delete other accounts.
func CanManageUsers(actor Actor) bool {
	return actor.Role == models.RoleAdmin
}

// CanChangeRole reports whether actor may change roles or team assignments.
func CanChangeRole(actor Actor) bool {
	return actor.Role == models.RoleAdmin
}

// CanEditProfile reports whether actor may edit userID's name, cohort, avatar or password.
func CanEditProfile(actor Actor, userID string) bool {
	return actor.Role == models.RoleAdmin || (actor.ID != "" && actor.ID == userID)
}

// CanReadAudit reports whether actor may read the full chat log.
func CanReadAudit(actor Actor) bool {
	return actor.Role == models.RoleAdmin
}
