package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/twocards/backoffice/internal/apperr"
	"github.com/twocards/backoffice/internal/model/user"
)

type userRepo struct {
	db *sql.DB
}

// NewUserRepo returns the staff user repository.
func NewUserRepo(d *DB) user.Repository {
	return &userRepo{db: d.sql}
}

const userColumns = `id, username, password_hash, role, theme_preference, created_at, updated_at`

func (r *userRepo) Create(ctx context.Context, u user.User) (int64, error) {
	now := time.Now()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, role, theme_preference, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, u.Username, u.PasswordHash, string(u.Role), u.ThemePreference, unixNano(now), unixNano(now))
	if err != nil {
		if isConstraint(err) {
			return 0, fmt.Errorf("user %q %w", u.Username, apperr.ErrConflict)
		}
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	return res.LastInsertId()
}

func (r *userRepo) Update(ctx context.Context, u user.User) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, role = ?, theme_preference = ?, updated_at = ? WHERE id = ?
	`, u.PasswordHash, string(u.Role), u.ThemePreference, unixNano(time.Now()), u.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("user")
	}
	return nil
}

func (r *userRepo) FindByID(ctx context.Context, id int64) (user.User, bool, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *userRepo) FindByUsername(ctx context.Context, username string) (user.User, bool, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (r *userRepo) List(ctx context.Context) ([]user.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var out []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *userRepo) findOne(ctx context.Context, query string, arg any) (user.User, bool, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, false, nil
	}
	if err != nil {
		return user.User{}, false, err
	}
	return u, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (user.User, error) {
	var (
		u                    user.User
		role                 string
		createdAt, updatedAt int64
	)
	if err := s.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &u.ThemePreference, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, err
		}
		return user.User{}, fmt.Errorf("failed to scan user: %w", err)
	}
	u.Role = user.Role(role)
	u.CreatedAt = fromUnixNano(createdAt)
	u.UpdatedAt = fromUnixNano(updatedAt)
	return u, nil
}
