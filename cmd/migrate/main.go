package main

// Run database migrations:
//   go run ./cmd/migrate [up|down|status]

import (
	"context"
	"database/sql"
	"log"
	"os"

	"portfolio-backend/internal/shared/config"
	"portfolio-backend/internal/shared/storage/db"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		log.Printf("DATABASE_URL is required")
		os.Exit(1)
	}

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	run, ok := map[string]func(context.Context, *sql.DB) error{
		"up":     db.RunMigrations,
		"down":   db.RollbackMigration,
		"status": db.MigrationStatus,
	}[cmd]
	if !ok {
		log.Printf("unknown command %q (want up, down or status)", cmd)
		os.Exit(2)
	}

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := run(ctx, sqlDB); err != nil {
		log.Printf("migrate %s failed: %v", cmd, err)
		sqlDB.Close()
		os.Exit(1)
	}
	log.Printf("migrate %s done", cmd)
}
