package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"contrib.go.opencensus.io/integrations/ocsql"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/Notifuse/mailblocks/config"
	"github.com/Notifuse/mailblocks/pkg/logger"
)

// connectTimeout bounds the ping and schema bootstrap at startup
const connectTimeout = 30 * time.Second

// PoolSettings sizes the sql.DB connection pool
type PoolSettings struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
}

// PoolSettingsFor uses a small pool in tests to conserve connections
func PoolSettingsFor(environment string) PoolSettings {
	if environment == "test" {
		return PoolSettings{MaxOpen: 10, MaxIdle: 5, MaxLifetime: 2 * time.Minute}
	}
	return PoolSettings{MaxOpen: 25, MaxIdle: 25, MaxLifetime: 20 * time.Minute}
}

func (p PoolSettings) apply(db *sql.DB) {
	db.SetMaxOpenConns(p.MaxOpen)
	db.SetMaxIdleConns(p.MaxIdle)
	db.SetConnMaxLifetime(p.MaxLifetime)
	db.SetConnMaxIdleTime(p.MaxLifetime / 2)
}

// DSN builds a postgres URL for dbName. Credentials are escaped.
func DSN(cfg *config.DatabaseConfig, dbName string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Path:   "/" + dbName,
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
	}
	return u.String()
}

// EnsureDatabaseExists connects to the maintenance database and creates
// cfg.DBName when it is missing
func EnsureDatabaseExists(ctx context.Context, cfg *config.DatabaseConfig) error {
	db, err := sql.Open("postgres", DSN(cfg, "postgres"))
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL server: %w", err)
	}
	defer db.Close()

	return ensureDatabase(ctx, db, cfg.DBName)
}

func ensureDatabase(ctx context.Context, db *sql.DB, dbName string) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping PostgreSQL server: %w", err)
	}

	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)"
	if err := db.QueryRowContext(ctx, query, dbName).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check if database exists: %w", err)
	}
	if exists {
		return nil
	}

	// identifiers cannot be bound as parameters
	createDBQuery := fmt.Sprintf(`CREATE DATABASE "%s"`, strings.ReplaceAll(dbName, `"`, `""`))
	if _, err := db.ExecContext(ctx, createDBQuery); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	return nil
}

// Connect opens the application database, wrapping the driver with
// OpenCensus instrumentation when tracing is enabled, and bootstraps the schema
func Connect(cfg *config.Config, log logger.Logger) (*sql.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := EnsureDatabaseExists(ctx, &cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to ensure database exists: %w", err)
	}

	driverName := "postgres"
	if cfg.Tracing.Enabled {
		var err error
		driverName, err = ocsql.Register(driverName, ocsql.WithAllTraceOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to register opencensus sql driver: %w", err)
		}
		log.Info("Database driver wrapped with OpenCensus tracing")
	}

	db, err := sql.Open(driverName, DSN(&cfg.Database, cfg.Database.DBName))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := InitializeDatabase(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	PoolSettingsFor(cfg.Environment).apply(db)
	return db, nil
}
