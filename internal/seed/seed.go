// Package seed creates demo teams, users and progress for development and testing.
package seed

import (
	"context"
	"fmt"
	"time"

	"teamtrack/internal/middleware"
	"teamtrack/internal/models"
	"teamtrack/internal/progress"
	"teamtrack/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is given to every seeded account.
const DefaultPassword = "password123"

// Options configures a seeding run.
type Options struct {
	// Used only when no roster is given.
	Teams          int
	MembersPerTeam int
	// CompletionRate is the chance in [0,1] that a past tracked day is checked.
	CompletionRate float64
	Password       string
	Now            time.Time
	Seed           int64
	// HashCost defaults to bcrypt.DefaultCost.
	HashCost int
}

// Result summarizes what a run created.
type Result struct {
	Teams   int
	Users   int
	Entries int
}

// Seeder writes seed data through the repositories.
type Seeder struct {
	db           *gorm.DB
	cal          *progress.Calendar
	teamRepo     repository.TeamRepository
	progressRepo repository.ProgressRepository
}

// NewSeeder returns a Seeder bound to db that fills progress on cal's tracked days.
func NewSeeder(db *gorm.DB, cal *progress.Calendar) *Seeder {
	return &Seeder{
		db:           db,
		cal:          cal,
		teamRepo:     repository.NewTeamRepository(db),
		progressRepo: repository.NewProgressRepository(db),
	}
}

// ClearAll removes chat, progress, users and teams.
func (s *Seeder) ClearAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{&models.ChatMessage{}, &models.ProgressEntry{}, &models.User{}, &models.Team{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return fmt.Errorf("clear %T: %w", m, err)
			}
		}
		return nil
	})
}

// Seed creates roster, or a generated one when roster is nil, and random
// progress for every tracked day up to opts.Now.
func (s *Seeder) Seed(ctx context.Context, roster *Roster, opts Options) (*Result, error) {
	opts = withDefaults(opts)
	faker := gofakeit.New(opts.Seed)
	if roster == nil {
		roster = GenerateRoster(faker, opts.Teams, opts.MembersPerTeam)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), opts.HashCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	res := &Result{}
	var members []models.User
	for _, rt := range roster.Teams {
		team := &models.Team{Name: rt.Name, Color: rt.Color}
		if err := s.teamRepo.Create(ctx, team); err != nil {
			return nil, fmt.Errorf("create team %q: %w", rt.Name, err)
		}
		res.Teams++
		for _, rm := range rt.Members {
			u, err := s.createUser(ctx, rm, &team.ID, string(hash))
			if err != nil {
				return nil, err
			}
			members = append(members, *u)
		}
	}
	for _, rm := range roster.Admins {
		if _, err := s.createUser(ctx, rm, nil, string(hash)); err != nil {
			return nil, err
		}
	}
	res.Users = len(members) + len(roster.Admins)

	today := progress.Normalize(opts.Now, s.cal.Location)
	for _, u := range members {
		for _, day := range s.cal.TrackedDays() {
			if day.After(today) {
				break
			}
			if faker.Float64Range(0, 1) >= opts.CompletionRate {
				continue
			}
			if _, err := s.progressRepo.Upsert(ctx, u.ID, day.UTC(), true); err != nil {
				return nil, fmt.Errorf("seed progress for %s: %w", u.ID, err)
			}
			res.Entries++
		}
	}

	middleware.Logger.Info("seed complete", "teams", res.Teams, "users", res.Users, "entries", res.Entries)
	return res, nil
}

func (s *Seeder) createUser(ctx context.Context, rm RosterMember, teamID *uint, hash string) (*models.User, error) {
	u := &models.User{
		ID:       rm.ID,
		Password: hash,
		Name:     rm.Name,
		Cohort:   rm.Cohort,
		TeamID:   teamID,
		Role:     rm.Role,
		Avatar:   models.DefaultAvatar,
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, fmt.Errorf("create user %q: %w", rm.ID, err)
	}
	return u, nil
}

func withDefaults(opts Options) Options {
	if opts.Teams <= 0 {
		opts.Teams = 4
	}
	if opts.MembersPerTeam <= 0 {
		opts.MembersPerTeam = 5
	}
	if opts.CompletionRate <= 0 || opts.CompletionRate > 1 {
		opts.CompletionRate = 0.7
	}
	if opts.Password == "" {
		opts.Password = DefaultPassword
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}
	return opts
}
