// Command main runs the database seeder for TeamTrack.
package main

import (
	"context"
	"flag"
	"log"

	"teamtrack/internal/config"
	"teamtrack/internal/database"
	"teamtrack/internal/progress"
	"teamtrack/internal/seed"
)

func main() {
	rosterPath := flag.String("roster", "", "YAML roster of teams and members (random when empty)")
	teams := flag.Int("teams", 4, "Number of generated teams")
	members := flag.Int("members", 5, "Members per generated team")
	rate := flag.Float64("rate", 0.7, "Chance that a past tracked day is checked")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Invalid timezone: %v", err)
	}
	start, end, err := cfg.ProgramRange()
	if err != nil {
		log.Fatalf("Invalid program range: %v", err)
	}
	cal, err := progress.NewCalendar(start, end, loc)
	if err != nil {
		log.Fatalf("Invalid program range: %v", err)
	}

	var roster *seed.Roster
	if *rosterPath != "" {
		if roster, err = seed.LoadRoster(*rosterPath); err != nil {
			log.Fatalf("Failed to load roster: %v", err)
		}
	}

	s := seed.NewSeeder(db, cal)
	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	res, err := s.Seed(ctx, roster, seed.Options{Teams: *teams, MembersPerTeam: *members, CompletionRate: *rate})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d teams, %d users and %d progress entries", res.Teams, res.Users, res.Entries)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
