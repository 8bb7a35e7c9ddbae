package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/cristianortiz/gridshare/internal/shared/logger"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

var log = logger.GetLogger() // Instancia logger para el pakg

//go:embed sql
var migrationFiles embed.FS

// RunPostgresMigrations applies the postgres schema at dbURL.
func RunPostgresMigrations(dbURL string) error {
	log.Info("RunPostgresMigrations")
	src, err := iofs.New(migrationFiles, "sql/postgres")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return err
	}
	return up(m)
}

// RunSQLiteMigrations applies the sqlite schema on an already opened database.
func RunSQLiteMigrations(conn *sql.DB) error {
	log.Info("RunSQLiteMigrations")
	src, err := iofs.New(migrationFiles, "sql/sqlite")
	if err != nil {
		return err
	}
	driver, err := sqlite3.WithInstance(conn, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("sqlite migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return err
	}
	return up(m)
}

func up(m *migrate.Migrate) error {
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	version, dirty, err := m.Version()
	if err == nil {
		log.Info("Migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	}
	return nil
}
