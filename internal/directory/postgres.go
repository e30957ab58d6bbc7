package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresDirectory serves lookups from an external read-only PostgreSQL
// user directory, for institutes that already run a central account
// database. The expected schema is a `users` table with id, email, name,
// role and is_active columns.
type PostgresDirectory struct {
	db *sql.DB
}

// NewPostgresDirectory connects to an external PostgreSQL user directory
func NewPostgresDirectory(connectionString string) (*PostgresDirectory, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping directory database: %w", err)
	}
	return &PostgresDirectory{db: db}, nil
}

// Close closes the database connection
func (d *PostgresDirectory) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

func (d *PostgresDirectory) GetByID(ctx context.Context, id string) (*UserRecord, error) {
	query := "SELECT id, email, name, role, is_active FROM users WHERE id = $1"
	return d.scanOne(d.db.QueryRowContext(ctx, query, id))
}

func (d *PostgresDirectory) GetByEmail(ctx context.Context, email string) (*UserRecord, error) {
	query := "SELECT id, email, name, role, is_active FROM users WHERE email = $1"
	return d.scanOne(d.db.QueryRowContext(ctx, query, email))
}

func (d *PostgresDirectory) scanOne(row *sql.Row) (*UserRecord, error) {
	var record UserRecord
	err := row.Scan(&record.ID, &record.Email, &record.Name, &record.Role, &record.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query directory: %w", err)
	}
	return &record, nil
}
