package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"route_service/internal/domain/model"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

const uniqueViolation = "23505"

// UserStore keeps accounts and their routing preferences.
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	UpdateUser(ctx context.Context, u *model.User) error
	GetPreferences(ctx context.Context, userID int64) (*model.Preferences, error)
	SavePreferences(ctx context.Context, userID int64, p model.Preferences) error
}

type UserRepository struct {
	DB *sqlx.DB
}

// NewPostgresRepository connects with the given database/sql driver name,
// "postgres" for lib/pq or "pgx" for the pgx stdlib driver.
func NewPostgresRepository(driver, connStr string) (*UserRepository, error) {
	db, err := sqlx.Connect(driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	return &UserRepository{DB: db}, nil
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{DB: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS user_preferences (
	user_id          BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	difficulty       TEXT NOT NULL,
	max_slope        INTEGER NOT NULL DEFAULT 0,
	avoid_stairs     BOOLEAN NOT NULL DEFAULT FALSE,
	prefer_elevators BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE TABLE IF NOT EXISTS avoided_obstacles (
	lat_key         BIGINT NOT NULL,
	lng_key         BIGINT NOT NULL,
	lat             DOUBLE PRECISION NOT NULL,
	lng             DOUBLE PRECISION NOT NULL,
	kind            TEXT NOT NULL DEFAULT '',
	address         TEXT NOT NULL DEFAULT '',
	avoidance_count INTEGER NOT NULL DEFAULT 1,
	last_avoided_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (lat_key, lng_key)
);`

// EnsureSchema creates the tables the service needs if they are missing.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (r *UserRepository) CreateUser(ctx context.Context, u *model.User) error {
	const query = `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.DB.QueryRowxContext(ctx, query, u.Username, u.Email, u.PasswordHash).
		Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %q: %w", u.Username, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	const query = `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE username = $1`

	var u model.User
	if err := r.DB.GetContext(ctx, &u, query, username); err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	const query = `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE id = $1`

	var u model.User
	if err := r.DB.GetContext(ctx, &u, query, id); err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

func (r *UserRepository) UpdateUser(ctx context.Context, u *model.User) error {
	const query = `
		UPDATE users
		SET username = $1, email = $2, password_hash = $3
		WHERE id = $4`

	res, err := r.DB.ExecContext(ctx, query, u.Username, u.Email, u.PasswordHash, u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %q: %w", u.Username, ErrDuplicate)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("user %d: %w", u.ID, ErrNotFound)
	}
	return nil
}

func (r *UserRepository) GetPreferences(ctx context.Context, userID int64) (*model.Preferences, error) {
	const query = `
		SELECT difficulty, max_slope, avoid_stairs, prefer_elevators
		FROM user_preferences
		WHERE user_id = $1`

	var p model.Preferences
	if err := r.DB.GetContext(ctx, &p, query, userID); err != nil {
		return nil, notFound(err, "preferences")
	}
	return &p, nil
}

func (r *UserRepository) SavePreferences(ctx context.Context, userID int64, p model.Preferences) error {
	const query = `
		INSERT INTO user_preferences (user_id, difficulty, max_slope, avoid_stairs, prefer_elevators)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			difficulty = EXCLUDED.difficulty,
			max_slope = EXCLUDED.max_slope,
			avoid_stairs = EXCLUDED.avoid_stairs,
			prefer_elevators = EXCLUDED.prefer_elevators`

	_, err := r.DB.ExecContext(ctx, query, userID, p.Difficulty, p.MaxSlope, p.AvoidStairs, p.PreferElevators)
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to query %s: %w", what, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	var coded interface{ SQLState() string }
	if errors.As(err, &coded) {
		return coded.SQLState() == uniqueViolation
	}
	return false
}
