package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// MigrationsTable records the applied schema version.
const MigrationsTable = "schema_migrations"

// Migrate brings the schema of db up to date. Postgres runs the embedded SQL
// migrations; SQLite is created from the GORM models.
func Migrate(ctx context.Context, db *DB, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	switch db.Driver() {
	case DriverSQLite:
		if err := db.WithContext(ctx).AutoMigrate(&priceRow{}, &weatherRow{}); err != nil {
			return fmt.Errorf("auto-migrate sqlite schema: %w", err)
		}
		log.Info("sqlite schema is up to date")
		return nil
	case DriverPostgres:
		return RunMigrations(db.dsn, log)
	default:
		return fmt.Errorf("no migrations for driver %q", db.Driver())
	}
}

// RunMigrations applies all pending up-migrations to the Postgres database at dsn.
func RunMigrations(dsn string, log *zap.Logger) error {
	log.Info("starting database migrations", zap.String("table", MigrationsTable))

	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	// The migrate driver closes its *sql.DB on Close, so it gets its own.
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		src.Close()
		return fmt.Errorf("open migration connection: %w", err)
	}

	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{MigrationsTable: MigrationsTable})
	if err != nil {
		src.Close()
		sqlDB.Close()
		return fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		src.Close()
		driver.Close()
		return fmt.Errorf("create migration instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("no migrations to apply, database is up to date")
			return nil
		}
		return fmt.Errorf("run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("read migration version: %w", err)
	}
	log.Info("database migrations completed", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
