package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"recycling-tracker/internal/constants"
	"recycling-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

const userColumns = `id, name, points, streak_days, created_at, updated_at`

// points never go down: a stale import cannot undo earned points
const upsertUserQuery = `
INSERT INTO users (` + userColumns + `)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name        = excluded.name,
    points      = MAX(users.points, excluded.points),
    streak_days = excluded.streak_days,
    updated_at  = excluded.updated_at`

type UserRepository struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

func NewUserRepository(sqlDB *sql.DB, logger zerolog.Logger) *UserRepository {
	return &UserRepository{
		db:     sqlDB,
		logger: logger,
		now:    time.Now,
	}
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	r.logger.Debug().Int("count", len(users)).Msg("listed users")
	return users, nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Upsert(ctx context.Context, user *domain.User) error {
	if err := r.prepare(user); err != nil {
		return err
	}
	if err := upsertUser(ctx, r.db, user); err != nil {
		r.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to upsert user")
		return err
	}
	return nil
}

func (r *UserRepository) UpsertBatch(ctx context.Context, users []domain.User) error {
	for i := range users {
		if err := r.prepare(&users[i]); err != nil {
			return err
		}
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		return batches(len(users), constants.DBBatchSize, func(start, end int) error {
			for i := start; i < end; i++ {
				if err := upsertUser(ctx, tx, &users[i]); err != nil {
					return err
				}
			}
			r.logger.Debug().Int("from", start).Int("to", end).Msg("upserted user batch")
			return nil
		})
	})
}

// AddPoints credits delta points to a user. Negative deltas are rejected.
func (r *UserRepository) AddPoints(ctx context.Context, id string, delta int64) error {
	if delta < 0 {
		return fmt.Errorf("%w: points delta must not be negative, got %d", ErrInvalidInput, delta)
	}
	return addPoints(ctx, r.db, id, delta, normalizeTime(r.now()))
}

func addPoints(ctx context.Context, q DBTX, id string, delta int64, at time.Time) error {
	res, err := q.ExecContext(ctx,
		`UPDATE users SET points = points + ?, updated_at = ? WHERE id = ?`,
		delta, at, id)
	if err != nil {
		return fmt.Errorf("failed to add points to user %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to add points to user %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *UserRepository) prepare(u *domain.User) error {
	if u.Name == "" {
		return fmt.Errorf("%w: user %q has no name", ErrInvalidInput, u.ID)
	}
	if u.Points < 0 || u.StreakDays < 0 {
		return fmt.Errorf("%w: user %q has negative points or streak", ErrInvalidInput, u.ID)
	}
	if u.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		u.ID = id
	}

	now := normalizeTime(r.now())
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.CreatedAt = normalizeTime(u.CreatedAt)
	u.UpdatedAt = now
	return nil
}

func upsertUser(ctx context.Context, q DBTX, u *domain.User) error {
	_, err := q.ExecContext(ctx, upsertUserQuery,
		u.ID, u.Name, u.Points, u.StreakDays, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", u.ID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Name, &u.Points, &u.StreakDays, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return u, err
		}
		return u, fmt.Errorf("failed to scan user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}
