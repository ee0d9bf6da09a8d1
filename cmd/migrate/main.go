package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"github.com/streamshare/streamshare/internal/config"
	"github.com/streamshare/streamshare/internal/logger"
	"github.com/streamshare/streamshare/migrations"
)

func main() {
	down := flag.Int("down", 0, "Roll back the given number of migrations instead of migrating up")
	showVersion := flag.Bool("version", false, "Print the current schema version and exit")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	logger.Infow("Connecting to database", "host", cfg.Postgres.Host)

	db, err := sql.Open("postgres", cfg.Postgres.GetDSN())
	if err != nil {
		logger.Fatalw("Failed to open migration connection", "error", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		logger.Fatalw("Failed to create migration driver", "error", err)
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		logger.Fatalw("Failed to read embedded migrations", "error", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		logger.Fatalw("Failed to create migration instance", "error", err)
	}
	defer m.Close()

	if *showVersion {
		version, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			logger.Fatalw("Failed to read schema version", "error", err)
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
		return
	}

	if *down > 0 {
		logger.Infow("Rolling back migrations", "steps", *down)
		err = m.Steps(-*down)
	} else {
		logger.Info("Running database migrations...")
		err = m.Up()
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatalw("Migration failed", "error", err)
	}

	logger.Info("Migration completed successfully")
}
