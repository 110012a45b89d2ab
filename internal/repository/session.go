package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atinyakov/gophlogin/internal/models"
)

// PostgresSessionRepository stores issued login sessions in PostgreSQL.
// Each access token carries the id of its session row.
type PostgresSessionRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresSessionRepository creates a new PostgresSessionRepository using the provided *sql.DB.
func NewPostgresSessionRepository(db *sql.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{DB: db}
}

// SaveSession records a freshly issued session.
func (r *PostgresSessionRepository) SaveSession(ctx context.Context, s models.Session) error {
	_, err := r.DB.ExecContext(
		ctx,
		`INSERT INTO sessions (id, user_id, created_at) VALUES ($1, $2, $3)`,
		s.ID, s.UserID, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("SaveSession: %w", err)
	}
	return nil
}

// SessionExists reports whether the session id is still on record.
// Sessions purged by the cleaner or revoked are gone.
func (r *PostgresSessionRepository) SessionExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM sessions WHERE id = $1)`,
		id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("SessionExists: %w", err)
	}
	return exists, nil
}

// DeleteSession revokes a session. Deleting an unknown id is not an error.
func (r *PostgresSessionRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("DeleteSession: %w", err)
	}
	return nil
}
