package users

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Upsert inserts or updates a user record keyed by ID.
func (r *PGRepo) Upsert(ctx context.Context, user User) error {
	const query = `
INSERT INTO users (id, role, full_name, email, country, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
ON CONFLICT (id) DO UPDATE
SET role = EXCLUDED.role,
    full_name = EXCLUDED.full_name,
    email = EXCLUDED.email,
    country = EXCLUDED.country,
    updated_at = NOW()`
	_, err := r.DB.ExecContext(ctx, query, user.ID, string(user.Role), user.FullName, user.Email, user.Country)
	return err
}

// GetByID fetches a user by ID.
func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	const query = `
SELECT id, role, full_name, email, country, created_at, updated_at
FROM users
WHERE id = $1`
	var user User
	var role string
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(
		&user.ID,
		&role,
		&user.FullName,
		&user.Email,
		&user.Country,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	user.Role = Role(role)
	return user, nil
}

var _ Repo = (*PGRepo)(nil)
