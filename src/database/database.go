package database

import (
	"database/sql"
	"errors"
	"fmt"
	stdlog "log"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"

	"github.com/avinm/ledgerdesk/src/config"
	"github.com/avinm/ledgerdesk/src/logger"
)

var DB *sql.DB

// InitDB opens the single SQLite file that holds the whole ledger. WAL keeps
// reads cheap while a reconciliation transaction is writing; foreign_keys
// drives the ON DELETE CASCADE of transaction items, trade history and vault
// items.
func InitDB(databasePath string) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)", databasePath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		stdlog.Fatalf("failed to open ledger database at %s: %v", databasePath, err)
	}

	// Single connection: every balance mutation runs inside BEGIN..COMMIT
	// and SQLite only has one writer anyway.
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		stdlog.Fatalf("failed to ping ledger database: %v", err)
	}
	DB = db
	logger.L.Info("Ledger database opened", "path", databasePath)
}

// RunMigrations brings the schema up to date from the SQL files in
// config.Cfg.MigrationsDir. A fresh database gets the full schema; an already
// current one is a no-op.
func RunMigrations(databasePath string) {
	if DB == nil {
		stdlog.Fatal("database connection is not initialized before running migrations")
	}

	driver, err := sqlite.WithInstance(DB, &sqlite.Config{})
	if err != nil {
		stdlog.Fatalf("could not create sqlite migration driver: %v", err)
	}

	absDir, err := filepath.Abs(config.Cfg.MigrationsDir)
	if err != nil {
		stdlog.Fatalf("could not resolve migrations directory %s: %v", config.Cfg.MigrationsDir, err)
	}
	sourceURL := "file://" + filepath.ToSlash(absDir)

	m, err := migrate.NewWithDatabaseInstance(sourceURL, databasePath, driver)
	if err != nil {
		stdlog.Fatalf("migration instance creation failed (source %s): %v", sourceURL, err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.L.Info("Ledger schema already current")
			return
		}
		stdlog.Fatalf("failed to apply migrations: %v", err)
	}
	logger.L.Info("Ledger schema migrated", "source", sourceURL)
}
