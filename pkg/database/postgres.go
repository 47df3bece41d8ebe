// Package database opens PostgreSQL through lib/pq and wraps it in an ent
// SQL driver.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "github.com/lib/pq"

	"github.com/tutorly/tutorly_backend/config"
)

// DSN returns a lib/pq key/value connection string for dbname.
func DSN(c config.DatabaseConfig, dbname string) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, dbname, c.SSLMode,
	)
}

// Open connects to c.DBName, applies pool settings and pings.
func Open(ctx context.Context, c config.DatabaseConfig) (*sql.DB, error) {
	return open(ctx, c, c.DBName)
}

func open(ctx context.Context, c config.DatabaseConfig, dbname string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", DSN(c, dbname))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if c.Pool.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(c.Pool.MaxOpenConns)
	}
	if c.Pool.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(c.Pool.MaxIdleConns)
	}
	if c.Pool.ConnMaxLifetimeMin > 0 {
		conn.SetConnMaxLifetime(time.Duration(c.Pool.ConnMaxLifetimeMin) * time.Minute)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return conn, nil
}

// NewDriver wraps db for the ent SQL builder.
func NewDriver(db *sql.DB) *entsql.Driver {
	return entsql.OpenDB(dialect.Postgres, db)
}
