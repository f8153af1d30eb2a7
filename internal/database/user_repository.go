package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pscheid92/taskhub/internal/domain"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, username, full_name, active, created_at, updated_at
		FROM users
		WHERE id = $1
	`, userID).Scan(
		&user.ID, &user.Email, &user.Username, &user.FullName,
		&user.Active, &user.CreatedAt, &user.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// Upsert creates or refreshes a user row keyed on email. Used by the auth
// layer and by test fixtures; application traffic only ever reads users.
func (r *UserRepo) Upsert(ctx context.Context, email, username, fullName string) (*domain.User, error) {
	var user domain.User
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, username, full_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET
			username = EXCLUDED.username,
			full_name = EXCLUDED.full_name,
			updated_at = NOW()
		RETURNING id, email, username, full_name, active, created_at, updated_at
	`, email, username, fullName).Scan(
		&user.ID, &user.Email, &user.Username, &user.FullName,
		&user.Active, &user.CreatedAt, &user.UpdatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return &user, nil
}
