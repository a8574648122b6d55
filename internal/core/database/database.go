package database

import (
	"embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"forum_go/internal/core/config"
	"forum_go/internal/core/logger"
)

//go:embed migrations
var migrations embed.FS

var db *sqlx.DB

func init() {
	// sqlx only knows the cgo driver name
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Init Initialize the process-wide database connection
func Init(cfg *config.DatabaseConfig) error {
	conn, err := Open(cfg)
	if err != nil {
		logger.Error("failed to connect database", logger.ErrorField(err))
		return err
	}
	db = conn

	logger.Info("database initialized successfully",
		logger.String("driver", cfg.Driver),
		logger.String("host", cfg.Host),
		logger.String("database", cfg.Name))

	if cfg.AutoMigrate {
		if err := Migrate(db); err != nil {
			return err
		}
	}
	return nil
}

// Open Open and configure a connection pool for the configured driver
func Open(cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	conn, err := sqlx.Connect(DriverName(cfg.Driver), cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}

	if cfg.Driver == "sqlite" {
		// one writer; also keeps every transaction on the connection that holds the pragmas
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
		conn.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}
	return conn, nil
}

// DriverName Map a configured driver to its database/sql name
func DriverName(driver string) string {
	switch driver {
	case "postgres":
		return "postgres"
	case "sqlite":
		return "sqlite"
	default:
		return "mysql"
	}
}

// Migrate Apply all pending up migrations for the connection's dialect
func Migrate(conn *sqlx.DB) error {
	m, err := newMigrate(conn)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("get migration version: %w", err)
	}
	logger.Info("migrations completed",
		logger.Int("version", int(version)),
		logger.String("dirty", fmt.Sprintf("%t", dirty)))
	return nil
}

// MigrateDown Roll back the last migration
func MigrateDown(conn *sqlx.DB) error {
	m, err := newMigrate(conn)
	if err != nil {
		return err
	}
	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rollback migration: %w", err)
	}
	logger.Info("migration rolled back")
	return nil
}

// newMigrate builds a migrate instance over conn. The instance is never closed:
// closing it would close the shared *sql.DB.
func newMigrate(conn *sqlx.DB) (*migrate.Migrate, error) {
	dialect := conn.DriverName()

	src, err := iofs.New(migrations, "migrations/"+dialect)
	if err != nil {
		return nil, fmt.Errorf("open migrations for %s: %w", dialect, err)
	}

	var driver migratedb.Driver
	switch dialect {
	case "postgres":
		driver, err = migratepg.WithInstance(conn.DB, &migratepg.Config{})
	case "sqlite":
		driver, err = migratesqlite.WithInstance(conn.DB, &migratesqlite.Config{})
	default:
		driver, err = migratemysql.WithInstance(conn.DB, &migratemysql.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, dialect, driver)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, nil
}

// Get Get database instance
func Get() *sqlx.DB {
	return db
}

// Close Close database connection
func Close() error {
	if db != nil {
		return db.Close()
	}
	return nil
}

// Ping Check database connection
func Ping() error {
	if db == nil {
		return nil
	}
	return db.Ping()
}
