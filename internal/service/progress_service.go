package service

import (
	"context"
	"strings"
	"time"

	"teamtrack/internal/cache"
	"teamtrack/internal/models"
	"teamtrack/internal/observability"
	"teamtrack/internal/policy"
	"teamtrack/internal/progress"
	"teamtrack/internal/repository"
)

// ProgressService records day completions and builds the team board.
type ProgressService struct {
	progressRepo repository.ProgressRepository
	userRepo     repository.UserRepository
	teamRepo     repository.TeamRepository
	cal          *progress.Calendar
	hidden       map[string]struct{}
}

// NewProgressService returns a ProgressService. Teams named in hiddenTeams
// (case-insensitive) are left off the board.
func NewProgressService(
	progressRepo repository.ProgressRepository,
	userRepo repository.UserRepository,
	teamRepo repository.TeamRepository,
	cal *progress.Calendar,
	hiddenTeams []string,
) *ProgressService {
	hidden := make(map[string]struct{}, len(hiddenTeams))
	for _, name := range hiddenTeams {
		hidden[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}
	return &ProgressService{
		progressRepo: progressRepo,
		userRepo:     userRepo,
		teamRepo:     teamRepo,
		cal:          cal,
		hidden:       hidden,
	}
}

// Calendar returns the tracked-day calendar.
func (s *ProgressService) Calendar() *progress.Calendar {
	return s.cal
}

// RecordCompletion sets userID's completion for day after checking the
// modification policy relative to now.
func (s *ProgressService) RecordCompletion(ctx context.Context, actor policy.Actor, userID string, day time.Time, completed bool, now time.Time) (*models.ProgressEntry, error) {
	ctx, span := observability.StartSpan(ctx, "service", "ProgressService.RecordCompletion")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	target, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	day = progress.Normalize(day, s.cal.Location)
	decision := policy.Decide(actor, policy.TargetFromUser(target), day, now, s.cal.Location)
	if !decision.Allowed() {
		observability.ProgressWrites.WithLabelValues("denied").Inc()
		err = models.NewForbiddenError(decision.Reason())
		return nil, err
	}

	entry, err := s.progressRepo.Upsert(ctx, userID, day.UTC(), completed)
	if err != nil {
		observability.ProgressWrites.WithLabelValues("error").Inc()
		return nil, err
	}
	cache.InvalidateProgress(ctx, userID)
	observability.ProgressWrites.WithLabelValues("saved").Inc()
	return entry, nil
}

// UserProgress is a user's raw entries plus the calendar view of them.
type UserProgress struct {
	UserID      string                 `json:"userId"`
	Entries     []models.ProgressEntry `json:"entries"`
	DailyChecks []bool                 `json:"dailyChecks"`
	Completed   int                    `json:"completed"`
	Progress    int                    `json:"progress"`
}

// GetProgress returns a user's entries ordered by date.
func (s *ProgressService) GetProgress(ctx context.Context, userID string) (*UserProgress, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	var entries []models.ProgressEntry
	err := cache.Aside(ctx, cache.ProgressKey(userID), &entries, cache.ProgressTTL, func() error {
		var err error
		entries, err = s.progressRepo.ListByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.ProgressEntry{}
	}

	checks := progress.DailyChecks(entries, s.cal)
	completed := progress.CountCompleted(checks)
	return &UserProgress{
		UserID:      userID,
		Entries:     entries,
		DailyChecks: checks,
		Completed:   completed,
		Progress:    progress.Percent(completed, s.cal.Len()),
	}, nil
}

type boardSnapshot struct {
	Day   string                  `json:"day"`
	Teams []progress.TeamProgress `json:"teams"`
}

// Board returns the visible teams ranked by progress. The cached board is
// only reused within the same calendar day.
func (s *ProgressService) Board(ctx context.Context, now time.Time) ([]progress.TeamProgress, error) {
	day := progress.Normalize(now, s.cal.Location).Format(time.DateOnly)

	var snap boardSnapshot
	if ok, _ := cache.GetJSON(ctx, cache.BoardKey, &snap); ok && snap.Day == day {
		return snap.Teams, nil
	}

	teams, err := s.teamRepo.ListWithMembers(ctx)
	if err != nil {
		return nil, err
	}

	visible := make([]models.Team, 0, len(teams))
	var ids []string
	for _, t := range teams {
		if _, hide := s.hidden[strings.ToLower(t.Name)]; hide {
			continue
		}
		visible = append(visible, t)
		for _, u := range t.Users {
			ids = append(ids, u.ID)
		}
	}

	byUser, err := s.progressRepo.ListByUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	rows := make([]progress.TeamProgress, 0, len(visible))
	for _, t := range visible {
		rows = append(rows, progress.BuildTeam(t, t.Users, byUser, s.cal, now))
	}
	ranked := progress.RankTeams(rows)

	_ = cache.SetJSON(ctx, cache.BoardKey, boardSnapshot{Day: day, Teams: ranked}, cache.BoardTTL)
	return ranked, nil
}
