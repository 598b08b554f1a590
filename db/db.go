package db

import (
	"embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Connect opens a Postgres connection pool and brings the schema up to date.
func Connect(connString string) (*sqlx.DB, error) {
	conn, err := sqlx.Connect("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("db: failed to connect: %w", err)
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("db: failed to set dialect: %w", err)
	}
	if err := goose.Up(conn.DB, "migrations"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("db: failed to run migrations: %w", err)
	}
	return conn, nil
}
