package progress

import (
	"math"
	"sort"
	"time"

	"teamtrack/internal/models"
)

// MemberProgress is one user's row on the board.
type MemberProgress struct {
	UserID       string      `json:"userId"`
	Name         string      `json:"name"`
	Cohort       string      `json:"cohort"`
	Avatar       string      `json:"avatar"`
	Role         models.Role `json:"role"`
	Completed    int         `json:"completed"`
	Progress     int         `json:"progress"`
	DailyChecks  []bool      `json:"dailyChecks"`
	CheckedToday bool        `json:"checkedToday"`
}

// TeamProgress is one team's row on the board.
type TeamProgress struct {
	ID       uint             `json:"id"`
	Name     string           `json:"name"`
	Color    string           `json:"color"`
	Progress int              `json:"progress"`
	Members  []MemberProgress `json:"members"`
}

// DailyChecks maps completed entries onto the calendar's tracked days by date.
// Entries outside the tracked days are ignored.
func DailyChecks(entries []models.ProgressEntry, cal *Calendar) []bool {
	checks := make([]bool, cal.Len())
	for _, e := range entries {
		if !e.Completed {
			continue
		}
		if i := cal.Index(e.Date); i >= 0 {
			checks[i] = true
		}
	}
	return checks
}

// CountCompleted counts true values.
func CountCompleted(checks []bool) int {
	n := 0
	for _, c := range checks {
		if c {
			n++
		}
	}
	return n
}

// Percent is round(100*completed/total) clamped to [0,100], 0 when total is 0.
func Percent(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	p := int(math.Round(float64(completed) * 100 / float64(total)))
	if p > 100 {
		return 100
	}
	return p
}

// BuildMember computes a user's board row from their entries.
func BuildMember(u models.User, entries []models.ProgressEntry, cal *Calendar, now time.Time) MemberProgress {
	checks := DailyChecks(entries, cal)
	completed := CountCompleted(checks)

	today := false
	if i := cal.TodayIndex(now); i >= 0 {
		today = checks[i]
	}

	return MemberProgress{
		UserID:       u.ID,
		Name:         u.Name,
		Cohort:       u.Cohort,
		Avatar:       u.Avatar,
		Role:         u.Role,
		Completed:    completed,
		Progress:     Percent(completed, cal.Len()),
		DailyChecks:  checks,
		CheckedToday: today,
	}
}

// ComputeTeamProgress is the rounded mean of the members' percentages, 0 for no members.
func ComputeTeamProgress(members []MemberProgress) int {
	if len(members) == 0 {
		return 0
	}
	sum := 0
	for _, m := range members {
		sum += m.Progress
	}
	return int(math.Round(float64(sum) / float64(len(members))))
}

// BuildTeam assembles a team row; byUser holds each member's entries.
func BuildTeam(team models.Team, members []models.User, byUser map[string][]models.ProgressEntry, cal *Calendar, now time.Time) TeamProgress {
	rows := make([]MemberProgress, 0, len(members))
	for _, u := range members {
		rows = append(rows, BuildMember(u, byUser[u.ID], cal, now))
	}
	return TeamProgress{
		ID:       team.ID,
		Name:     team.Name,
		Color:    team.Color,
		Progress: ComputeTeamProgress(rows),
		Members:  rows,
	}
}

// RankTeams returns a copy sorted by progress descending. Ties keep input order.
func RankTeams(teams []TeamProgress) []TeamProgress {
	out := make([]TeamProgress, len(teams))
	copy(out, teams)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Progress > out[j].Progress
	})
	return out
}
