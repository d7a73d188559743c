package storage

import (
	"context"
	"fmt"
	"strings"

	"fintrack/internal/core"
)

func (r *SQLiteRepository) CreateUser(ctx context.Context, username, passwordHash string) (core.User, error) {
	u := core.User{Username: strings.TrimSpace(username), PasswordHash: passwordHash}
	created := r.nowUnix()
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		u.Username, u.PasswordHash, created)
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, core.ErrUsernameTaken
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return core.User{}, fmt.Errorf("user id: %w", err)
	}
	u.CreatedAt = fromUnix(created)
	return u, nil
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	return r.getUser(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE username = ?`,
		strings.TrimSpace(username))
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	return r.getUser(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE id = ?`, id)
}

func (r *SQLiteRepository) getUser(ctx context.Context, query string, arg any) (core.User, error) {
	var (
		u       core.User
		created int64
	)
	err := r.q.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &created)
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", notFound(err))
	}
	u.CreatedAt = fromUnix(created)
	return u, nil
}
