// Package postgres implements the storage.Store interface on PostgreSQL.
// Queries run through database/sql with the pgx driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	// pgx driver registration for database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/bizflowhq/bizflow-backend/internal/storage"
)

// Storage wraps the database handle.
type Storage struct {
	DB *sql.DB
}

// New opens a connection to PostgreSQL and pings it.
func New(connectionString string) (*Storage, error) {
	const op = "storage.postgres.New"

	db, err := sql.Open("pgx", connectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{DB: db}, nil
}

// Mode identifies the backend for the health endpoint.
func (s *Storage) Mode() string { return storage.ModePostgres }

// Close closes the database handle.
func (s *Storage) Close() error { return s.DB.Close() }

// CheckDatabaseReady verifies the schema has been migrated.
func CheckDatabaseReady(s *Storage) error {
	var exists bool
	err := s.DB.QueryRow(`SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'users'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table users missing or query error: %w", err)
	}
	return nil
}
