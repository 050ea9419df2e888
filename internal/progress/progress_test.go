package progress

import (
	"testing"
	"time"

	"teamtrack/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func programCalendar(t *testing.T, loc *time.Location) *Calendar {
	t.Helper()
	cal, err := NewCalendar(
		time.Date(2025, 3, 10, 0, 0, 0, 0, loc),
		time.Date(2025, 5, 9, 0, 0, 0, 0, loc),
		loc,
	)
	require.NoError(t, err)
	return cal
}

func entriesFor(userID string, days []time.Time) []models.ProgressEntry {
	out := make([]models.ProgressEntry, 0, len(days))
	for _, d := range days {
		out = append(out, models.ProgressEntry{UserID: userID, Date: d.UTC(), Completed: true})
	}
	return out
}

func TestCalendar_TrackedDays(t *testing.T) {
	cal := programCalendar(t, time.UTC)
	days := cal.TrackedDays()

	require.Len(t, days, 45)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), days[0])
	assert.Equal(t, time.Date(2025, 5, 9, 0, 0, 0, 0, time.UTC), days[44])
	for _, d := range days {
		assert.NotEqual(t, time.Saturday, d.Weekday())
		assert.NotEqual(t, time.Sunday, d.Weekday())
	}

	assert.Equal(t, 0, cal.Index(time.Date(2025, 3, 10, 18, 30, 0, 0, time.UTC)))
	assert.Equal(t, -1, cal.Index(time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)), "saturday")
	assert.Equal(t, -1, cal.TodayIndex(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))

	_, err := NewCalendar(days[5], days[0], time.UTC)
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	loc := time.FixedZone("KST", 9*3600)
	got := Normalize(time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC), loc)
	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, loc), got)
}

func TestParseDay(t *testing.T) {
	loc := time.FixedZone("KST", 9*3600)

	tests := []struct {
		raw     string
		want    time.Time
		wantErr bool
	}{
		{"2025-03-10", time.Date(2025, 3, 10, 0, 0, 0, 0, loc), false},
		{"2025-03-10T13:45:00", time.Date(2025, 3, 10, 0, 0, 0, 0, loc), false},
		{"2025-03-09T15:00:00.000Z", time.Date(2025, 3, 10, 0, 0, 0, 0, loc), false},
		{"2025-03-10T08:00:00+09:00", time.Date(2025, 3, 10, 0, 0, 0, 0, loc), false},
		{"", time.Time{}, true},
		{"yesterday", time.Time{}, true},
		{"2025-13-40", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseDay(tt.raw, loc)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDay)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0, Percent(0, 45))
	assert.Equal(t, 100, Percent(45, 45))
	assert.Equal(t, 100, Percent(60, 45), "clamped")
	assert.Equal(t, 2, Percent(1, 45))
	assert.Equal(t, 51, Percent(23, 45))
	assert.Equal(t, 0, Percent(3, 0))
}

func TestComputeTeamProgress(t *testing.T) {
	cal := programCalendar(t, time.UTC)
	days := cal.TrackedDays()
	now := days[len(days)-1]

	t.Run("full and empty member average to 50", func(t *testing.T) {
		team := BuildTeam(models.Team{ID: 1, Name: "Red"},
			[]models.User{{ID: "a"}, {ID: "b"}},
			map[string][]models.ProgressEntry{"a": entriesFor("a", days)},
			cal, now)
		assert.Equal(t, 100, team.Members[0].Progress)
		assert.Equal(t, 0, team.Members[1].Progress)
		assert.Equal(t, 50, team.Progress)
	})

	t.Run("40 and 60 average to 50", func(t *testing.T) {
		members := []MemberProgress{{Progress: 40}, {Progress: 60}}
		assert.Equal(t, 50, ComputeTeamProgress(members))
	})

	t.Run("no members is zero", func(t *testing.T) {
		assert.Equal(t, 0, ComputeTeamProgress(nil))
	})

	t.Run("rounding of the mean", func(t *testing.T) {
		assert.Equal(t, 34, ComputeTeamProgress([]MemberProgress{{Progress: 33}, {Progress: 34}, {Progress: 34}}))
		assert.Equal(t, 51, ComputeTeamProgress([]MemberProgress{{Progress: 51}, {Progress: 50}}))
	})
}

func TestDailyChecks(t *testing.T) {
	loc := time.FixedZone("KST", 9*3600)
	cal := programCalendar(t, loc)
	days := cal.TrackedDays()

	entries := []models.ProgressEntry{
		{Date: days[2].UTC(), Completed: true},
		{Date: days[3].UTC(), Completed: false},
		{Date: time.Date(2025, 3, 15, 0, 0, 0, 0, loc).UTC(), Completed: true}, // weekend
		{Date: days[44].UTC(), Completed: true},
	}

	checks := DailyChecks(entries, cal)
	require.Len(t, checks, 45)
	assert.True(t, checks[2])
	assert.False(t, checks[3])
	assert.True(t, checks[44])
	assert.Equal(t, 2, CountCompleted(checks))

	m := BuildMember(models.User{ID: "u", Name: "U"}, entries, cal, days[2].Add(10*time.Hour))
	assert.True(t, m.CheckedToday)
	assert.Equal(t, 2, m.Completed)
	assert.Equal(t, Percent(2, 45), m.Progress)
}

func TestRankTeams(t *testing.T) {
	in := []TeamProgress{
		{Name: "A", Progress: 10},
		{Name: "B", Progress: 70},
		{Name: "C", Progress: 10},
		{Name: "D", Progress: 90},
	}
	got := RankTeams(in)

	names := make([]string, len(got))
	for i, tp := range got {
		names[i] = tp.Name
	}
	assert.Equal(t, []string{"D", "B", "A", "C"}, names, "ties keep input order")
	assert.Equal(t, "A", in[0].Name, "input is not mutated")
}
