package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/finsight/reportd/internal/domain"
	"github.com/finsight/reportd/internal/domain/user"
)

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, username, password_hash, api_key_hash, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)`,
		u.ID, u.Username, u.PasswordHash, u.APIKeyHash, u.Enabled, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*user.User, error) {
	return s.getUser(ctx, `id = $1`, id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	return s.getUser(ctx, `username = $1`, username)
}

func (s *Store) GetUserByAPIKeyHash(ctx context.Context, keyHash string) (*user.User, error) {
	return s.getUser(ctx, `api_key_hash = $1`, keyHash)
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (*user.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, COALESCE(api_key_hash, ''), enabled, created_at, updated_at
		FROM users WHERE `+where, arg)

	var u user.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.APIKeyHash, &u.Enabled, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get user: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, username, password_hash, COALESCE(api_key_hash, ''), enabled, created_at, updated_at
		FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		var u user.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.APIKeyHash, &u.Enabled, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUser(ctx context.Context, u *user.User) error {
	u.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, api_key_hash = NULLIF($3, ''), enabled = $4, updated_at = $5
		WHERE id = $1`,
		u.ID, u.PasswordHash, u.APIKeyHash, u.Enabled, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update user %s: %w", u.ID, domain.ErrNotFound)
	}
	return nil
}
