// Package pgstore implements session.Store on PostgreSQL through a pgx pool.
// Sessions live in user_sessions keyed by (user_id, token_id); rotation deletes the
// old row and inserts the new one inside one transaction.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/ffauth/session"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Store is a Postgres-backed session.Store.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Postgres-backed store. The schema must already be migrated.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open parses dsn, connects a pool and pings it.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.ParseConfig: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, unavailable(err)
	}
	return pool, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func (s *Store) CreateUser(ctx context.Context, u *session.User) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO users (id, email, name, password_hash, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt.UTC()); err != nil {
			return err
		}
		for _, sess := range u.Sessions {
			if err := insertSession(ctx, tx, u.ID, sess); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return session.ErrEmailTaken
		}
		return unavailable(err)
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*session.User, error) {
	return s.getUser(ctx, `
		SELECT id, email, name, password_hash, created_at
		FROM users
		WHERE id = $1
	`, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*session.User, error) {
	return s.getUser(ctx, `
		SELECT id, email, name, password_hash, created_at
		FROM users
		WHERE email = $1
	`, email)
}

func (s *Store) getUser(ctx context.Context, query string, arg string) (*session.User, error) {
	var u session.User
	err := s.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, session.ErrUserNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}
	u.CreatedAt = u.CreatedAt.UTC()

	rows, err := s.pool.Query(ctx, `
		SELECT token_id, created_at
		FROM user_sessions
		WHERE user_id = $1
		ORDER BY seq
	`, u.ID)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	u.Sessions = []session.Session{}
	for rows.Next() {
		var sess session.Session
		if err := rows.Scan(&sess.TokenID, &sess.CreatedAt); err != nil {
			return nil, unavailable(err)
		}
		sess.CreatedAt = sess.CreatedAt.UTC()
		u.Sessions = append(u.Sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return &u, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func insertSession(ctx context.Context, db execer, userID string, sess session.Session) error {
	_, err := db.Exec(ctx, `
		INSERT INTO user_sessions (user_id, token_id, created_at)
		VALUES ($1, $2, $3)
	`, userID, sess.TokenID, sess.CreatedAt.UTC())
	return err
}

func (s *Store) Append(ctx context.Context, userID string, sess session.Session) error {
	err := insertSession(ctx, s.pool, userID, sess)
	if err == nil {
		return nil
	}
	switch pgCode(err) {
	case pgUniqueViolation:
		return session.ErrDuplicateSession
	case pgForeignKeyViolation:
		return session.ErrUserNotFound
	default:
		return unavailable(err)
	}
}

func (s *Store) Remove(ctx context.Context, userID, tokenID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM user_sessions
		WHERE user_id = $1 AND token_id = $2
	`, userID, tokenID)
	if err != nil {
		return false, unavailable(err)
	}
	return tag.RowsAffected() > 0, nil
}

var errReplaceLost = errors.New("old session already gone")

// Replace deletes oldTokenID and inserts next in one transaction. A concurrent caller
// blocks on the row lock taken by DELETE and then deletes nothing.
func (s *Store) Replace(ctx context.Context, userID, oldTokenID string, next session.Session) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var deleted string
		err := tx.QueryRow(ctx, `
			DELETE FROM user_sessions
			WHERE user_id = $1 AND token_id = $2
			RETURNING token_id
		`, userID, oldTokenID).Scan(&deleted)
		if errors.Is(err, pgx.ErrNoRows) {
			return errReplaceLost
		}
		if err != nil {
			return err
		}
		return insertSession(ctx, tx, userID, next)
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, errReplaceLost):
		return session.ErrSessionNotFound
	case pgCode(err) == pgUniqueViolation:
		return session.ErrDuplicateSession
	default:
		return unavailable(err)
	}
}

func (s *Store) Contains(ctx context.Context, userID, tokenID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_sessions WHERE user_id = $1 AND token_id = $2
		)
	`, userID, tokenID).Scan(&exists)
	if err != nil {
		return false, unavailable(err)
	}
	return exists, nil
}

func (s *Store) Prune(ctx context.Context, userID string, createdBefore time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM user_sessions
		WHERE user_id = $1 AND created_at < $2
	`, userID, createdBefore.UTC())
	if err != nil {
		return 0, unavailable(err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET password_hash = $2
		WHERE id = $1
	`, userID, hash)
	if err != nil {
		return unavailable(err)
	}
	if tag.RowsAffected() == 0 {
		return session.ErrUserNotFound
	}
	return nil
}

// Ping checks pool connectivity and returns its latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.pool.Ping(ctx); err != nil {
		return time.Since(start), unavailable(err)
	}
	return time.Since(start), nil
}
