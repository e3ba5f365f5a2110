package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/i474232898/electricity-weather-aggregation/internal/energy"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Store is the full persistence surface used by the application.
type Store interface {
	energy.PriceStore
	energy.WeatherStore
	Ping(ctx context.Context) error
	Close() error
}

// DBConfig holds database connection settings.
type DBConfig struct {
	Driver     string
	DSN        string // postgres
	SQLitePath string // sqlite; ":memory:" for a throwaway database
}

// DB wraps the GORM database connection.
type DB struct {
	*gorm.DB
	driver string
	dsn    string
}

// Connect opens a GORM connection for the configured driver and verifies it.
func Connect(cfg DBConfig) (*DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres driver requires a DSN")
		}
		dialector = postgres.Open(cfg.DSN)
	case DriverSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = "data.db"
		}
		if path != ":memory:" && !strings.HasPrefix(path, "file:") {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		dialector = sqlite.Open(path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	if cfg.Driver == DriverSQLite {
		// A single connection keeps ":memory:" databases shared and avoids
		// SQLITE_BUSY on concurrent writers.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, driver: cfg.Driver, dsn: cfg.DSN}, nil
}

// Driver returns the name of the driver the connection was opened with.
func (db *DB) Driver() string {
	return db.driver
}

// Close closes the database connection.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is healthy.
func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// SQLDB returns the underlying *sql.DB.
func (db *DB) SQLDB() (*sql.DB, error) {
	return db.DB.DB()
}

// Open builds the Store for cfg.Driver and brings its schema up to date.
func Open(ctx context.Context, cfg DBConfig, log *zap.Logger) (Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Driver == DriverMemory {
		log.Info("using in-memory store")
		return NewMemoryStore(), nil
	}

	db, err := Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, db, log); err != nil {
		db.Close()
		return nil, err
	}
	return NewGormStore(db, log), nil
}
