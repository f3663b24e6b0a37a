package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/hongminglow/papertrade/internal/models"
	"github.com/hongminglow/papertrade/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const foreignKeyViolation = "23503"

// CreateSession inserts a session. An unknown user maps to storage.ErrNotFound.
func (s *Store) CreateSession(ctx context.Context, session models.Session) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`,
		session.ID, session.UserID, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case uniqueViolation:
				return storage.ErrAlreadyExists
			case foreignKeyViolation:
				return storage.ErrNotFound
			}
		}
		return err
	}
	return nil
}

// FindSession returns the session only while it is still valid at now.
func (s *Store) FindSession(ctx context.Context, id string, now time.Time) (models.Session, error) {
	var session models.Session
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, user_id, created_at, expires_at FROM sessions WHERE id = $1 AND expires_at > $2`,
		id, now,
	).Scan(&session.ID, &session.UserID, &session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, storage.ErrNotFound
		}
		return models.Session{}, err
	}
	return session, nil
}

// DeleteSession removes a session; deleting a missing one is not an error.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// DeleteExpiredSessions removes sessions expired at now and returns how many went.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
