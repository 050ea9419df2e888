// Command migrate manages the TeamTrack schema: the teams, users, progress
// and chat_messages tables, including the unique (user_id, date) index the
// progress upsert depends on.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"teamtrack/internal/config"
	"teamtrack/internal/database"
)

const helpText = `Usage: migrate [-mode hybrid|sql|auto] <command> [version]

Commands:
  up              apply pending embedded SQL migrations (postgres only)
  auto            run GORM AutoMigrate for users, teams, progress and chat
  status          show the schema mode and applied/pending migrations
  list            print the embedded migrations
  down <version>  roll back one applied migration

DB_DRIVER, DB_* and DB_SCHEMA_MODE are read from the environment or .env.
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, helpText) }
	mode := flag.String("mode", "", "Override DB_SCHEMA_MODE for status and auto")
	flag.Parse()

	if err := run(flag.Args(), *mode); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, mode string) error {
	if len(args) < 1 {
		flag.Usage()
		return fmt.Errorf("missing command")
	}
	cmd := strings.ToLower(strings.TrimSpace(args[0]))

	// list needs no database.
	if cmd == "list" {
		for _, m := range database.GetMigrations() {
			fmt.Printf("%06d_%s\n", m.Version, m.Name)
		}
		return nil
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if mode != "" {
		cfg.DBSchemaMode = mode
	}

	db, err := database.Open(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	ctx := context.Background()
	switch cmd {
	case "up":
		if cfg.DBDriver == "sqlite" {
			return fmt.Errorf("the embedded migrations target postgres; use `migrate auto` with DB_DRIVER=sqlite")
		}
		if err := database.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		log.Println("teamtrack schema is up to date")
	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("automigrate: %w", err)
		}
		log.Println("automigrate finished for users, teams, progress and chat_messages")
	case "status":
		status, err := database.GetSchemaStatus(ctx, db, cfg)
		if err != nil {
			return fmt.Errorf("schema status: %w", err)
		}
		log.Printf("driver=%s mode=%s env=%s sql=%t automigrate=%t", driverName(cfg), status.Mode, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate)
		if !status.WillRunSQL {
			return nil
		}
		log.Printf("applied=%v pending=%d", status.AppliedVersions, len(status.PendingMigrations))
		for _, m := range status.PendingMigrations {
			log.Printf("pending %06d_%s", m.Version, m.Name)
		}
	case "down":
		if len(args) < 2 {
			return fmt.Errorf("down needs a version, see `migrate list`")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		if database.GetMigrationByVersion(version) == nil {
			return fmt.Errorf("no embedded migration with version %d", version)
		}
		if err := database.RollbackMigration(ctx, db, version); err != nil {
			return fmt.Errorf("roll back %06d: %w", version, err)
		}
		log.Printf("rolled back %06d", version)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func driverName(cfg *config.Config) string {
	if cfg.DBDriver == "" {
		return "postgres"
	}
	return cfg.DBDriver
}
