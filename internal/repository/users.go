// Package repository provides PostgreSQL persistence for users and contacts.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/GophContacts/internal/models"
	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("duplicate")
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const userColumns = `id, email, password_hash, access_token, refresh_token, confirmed, avatar, created_at`

// PostgresUserRepository stores users in PostgreSQL.
type PostgresUserRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository with the given database connection.
func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u       models.User
		access  sql.NullString
		refresh sql.NullString
		avatar  sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &access, &refresh, &u.Confirmed, &avatar, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.AccessToken = nullableString(access)
	u.RefreshToken = nullableString(refresh)
	u.AvatarURL = nullableString(avatar)
	return &u, nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// FindByEmail returns the user registered with email, or ErrNotFound.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		email,
	)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

// Create inserts a new unconfirmed user without tokens.
// A second user with the same email yields ErrDuplicate.
func (r *PostgresUserRepository) Create(ctx context.Context, email, passwordHash string) (*models.User, error) {
	row := r.DB.QueryRowContext(ctx,
		`INSERT INTO users (email, password_hash) VALUES ($1, $2) RETURNING `+userColumns,
		email, passwordHash,
	)
	u, err := scanUser(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// UpdateTokens overwrites the stored token pair of the user.
func (r *PostgresUserRepository) UpdateTokens(ctx context.Context, userID int64, accessToken, refreshToken string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET access_token = $1, refresh_token = $2 WHERE id = $3`,
		accessToken, refreshToken, userID,
	)
	if err != nil {
		return fmt.Errorf("update tokens: %w", err)
	}
	return expectOneRow(res)
}

// Confirm marks the user as confirmed. It reports whether the user had
// already been confirmed; ErrNotFound is returned for an unknown email.
func (r *PostgresUserRepository) Confirm(ctx context.Context, email string) (alreadyConfirmed bool, err error) {
	var previous bool
	err = r.DB.QueryRowContext(ctx, `
		UPDATE users u SET confirmed = true
		  FROM (SELECT id, confirmed FROM users WHERE email = $1 FOR UPDATE) prev
		 WHERE u.id = prev.id
		RETURNING prev.confirmed
	`, email).Scan(&previous)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("confirm user: %w", err)
	}
	return previous, nil
}

// UpdateAvatar stores a new avatar URL and returns the updated user.
func (r *PostgresUserRepository) UpdateAvatar(ctx context.Context, userID int64, url string) (*models.User, error) {
	row := r.DB.QueryRowContext(ctx,
		`UPDATE users SET avatar = $1 WHERE id = $2 RETURNING `+userColumns,
		url, userID,
	)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update avatar: %w", err)
	}
	return u, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
