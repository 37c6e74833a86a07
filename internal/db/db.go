// Package db opens the gorm connection and applies the schema.
package db

import (
	"errors"
	"fmt"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// The following blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/diewo77/go-docflow/internal/config"
	"github.com/diewo77/go-docflow/internal/models"
	"github.com/diewo77/go-docflow/internal/platform/logger"
)

const connectAttempts = 10

// Connect opens the configured database, retrying while postgres starts.
func Connect(cfg config.DatabaseConfig, log *logger.Logger) (*gorm.DB, error) {
	level := gormlogger.Silent
	if cfg.Debug {
		level = gormlogger.Info
	}
	gcfg := &gorm.Config{Logger: gormlogger.Default.LogMode(level)}

	if cfg.Driver == "sqlite" {
		db, err := gorm.Open(sqlite.Open(cfg.SQLitePath), gcfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		log.Info("database connected", "driver", "sqlite", "path", cfg.SQLitePath)
		return db, nil
	}

	dsn := NormalizeDSN(cfg.DSN())
	var db *gorm.DB
	var err error
	for i := 0; i < connectAttempts; i++ {
		db, err = gorm.Open(postgres.Open(dsn), gcfg)
		if err == nil {
			break
		}
		log.Warn("database not ready, retrying", "attempt", i+1, "error", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}
	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}
	log.Info("database connected", "driver", "postgres", "dsn", MaskDSN(dsn))
	return db, nil
}

// Models lists every table managed by AutoMigrate.
var Models = []interface{}{
	&models.Document{},
	&models.Template{},
	&models.ReminderMarker{},
	&models.ActivityEntry{},
}

// Migrate applies the schema according to cfg.App.Migrations: "auto", "sql" or "off".
// SQL migrations only exist for postgres; sqlite always uses AutoMigrate.
func Migrate(db *gorm.DB, cfg *config.Config, log *logger.Logger) error {
	mode := cfg.App.Migrations
	if mode == "sql" && cfg.Database.Driver == "sqlite" {
		log.Warn("sql migrations are postgres only, using AutoMigrate")
		mode = "auto"
	}
	switch mode {
	case "off":
		return nil
	case "sql":
		if err := RunSQLMigrations(cfg.App.MigrationsDir, cfg.Database.URL()); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
	default:
		for _, m := range Models {
			if err := db.AutoMigrate(m); err != nil {
				return fmt.Errorf("automigrate %T: %w", m, err)
			}
		}
	}
	for _, table := range []string{"documents", "templates", "reminder_markers"} {
		if !db.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	log.Info("schema ready", "mode", mode)
	return nil
}

// RunSQLMigrations executes the migrations in dir with golang-migrate.
func RunSQLMigrations(dir, databaseURL string) error {
	m, err := migrate.New("file://"+dir, databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
