package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"labreserve/internal/config"
	"labreserve/internal/logging"

	"github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB is the relational store for laboratories and bookings.
type DB struct {
	*sql.DB
	driver string
	path   string
	sb     squirrel.StatementBuilderType
	logger *zerolog.Logger
	now    func() time.Time
}

type rowScanner interface {
	Scan(dest ...any) error
}

// NewDB opens a sqlite database at path.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	return Open(config.DatabaseConfig{Driver: config.DriverSQLite, Path: path, BusyTimeoutMS: 5000}, logger)
}

// Open connects to the configured driver and ensures the schema exists.
func Open(cfg config.DatabaseConfig, logger *zerolog.Logger) (*DB, error) {
	return OpenContext(context.Background(), cfg, logger)
}

// OpenContext is Open bounded by ctx for the ping and schema setup.
func OpenContext(ctx context.Context, cfg config.DatabaseConfig, logger *zerolog.Logger) (*DB, error) {
	log := logging.Component(logger, "database")

	driver := cfg.Driver
	if driver == "" {
		driver = config.DriverSQLite
	}

	var (
		dsn         string
		placeholder squirrel.PlaceholderFormat = squirrel.Question
	)
	switch driver {
	case config.DriverSQLite:
		if !isMemory(cfg.Path) {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn = sqliteDSN(cfg)
	case config.DriverPostgres:
		dsn = cfg.Postgres.DSN()
		placeholder = squirrel.Dollar
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == config.DriverSQLite {
		// One writer at a time; an in-memory database also lives on a single connection.
		sqlDB.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{
		DB:     sqlDB,
		driver: driver,
		path:   cfg.Path,
		sb:     squirrel.StatementBuilder.PlaceholderFormat(placeholder),
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}

	if err := db.createTables(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Info().Str("driver", driver).Msg("database initialized")
	return db, nil
}

// Driver returns the database/sql driver name in use.
func (db *DB) Driver() string {
	return db.driver
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

func sqliteDSN(cfg config.DatabaseConfig) string {
	busy := cfg.BusyTimeoutMS
	if busy <= 0 {
		busy = 5000
	}
	params := url.Values{}
	params.Set("_foreign_keys", "on")
	params.Set("_busy_timeout", strconv.Itoa(busy))
	params.Set("_txlock", "immediate")
	if !isMemory(cfg.Path) {
		params.Set("_journal_mode", "WAL")
	}
	return cfg.Path + "?" + params.Encode()
}

func (db *DB) createTables(ctx context.Context) error {
	var queries []string
	if db.driver == config.DriverPostgres {
		queries = []string{
			`CREATE TABLE IF NOT EXISTS laboratories (
                id BIGINT PRIMARY KEY,
                name TEXT NOT NULL,
                description TEXT NOT NULL DEFAULT '',
                capacity INTEGER NOT NULL DEFAULT 0
            )`,
			`CREATE TABLE IF NOT EXISTS bookings (
                id BIGSERIAL PRIMARY KEY,
                laboratory_id BIGINT NOT NULL REFERENCES laboratories(id),
                date TEXT NOT NULL,
                start_time TEXT NOT NULL,
                end_time TEXT NOT NULL,
                status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'cancelled')),
                created_at TIMESTAMPTZ NOT NULL,
                updated_at TIMESTAMPTZ NOT NULL,
                CHECK (start_time < end_time)
            )`,
		}
	} else {
		queries = []string{
			`CREATE TABLE IF NOT EXISTS laboratories (
                id INTEGER PRIMARY KEY,
                name TEXT NOT NULL,
                description TEXT NOT NULL DEFAULT '',
                capacity INTEGER NOT NULL DEFAULT 0
            )`,
			`CREATE TABLE IF NOT EXISTS bookings (
                id INTEGER PRIMARY KEY AUTOINCREMENT,
                laboratory_id INTEGER NOT NULL REFERENCES laboratories(id),
                date TEXT NOT NULL,
                start_time TEXT NOT NULL,
                end_time TEXT NOT NULL,
                status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'cancelled')),
                created_at DATETIME NOT NULL,
                updated_at DATETIME NOT NULL,
                CHECK (start_time < end_time)
            )`,
		}
	}

	queries = append(queries,
		`CREATE INDEX IF NOT EXISTS idx_laboratories_name ON laboratories(name)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_lab_date ON bookings(laboratory_id, date, status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_date_start ON bookings(date, start_time)`,
	)

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}
