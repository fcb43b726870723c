package user

import (
	"context"
	"time"
)

// Role grants access levels.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleEmployee
}

// User is a staff account.
type User struct {
	ID              int64     `json:"id"`
	Username        string    `json:"username"`
	PasswordHash    string    `json:"-"`
	Role            Role      `json:"role"`
	ThemePreference string    `json:"theme_preference"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsAdmin reports whether u holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, u User) (int64, error)
	Update(ctx context.Context, u User) error
	FindByID(ctx context.Context, id int64) (User, bool, error)
	FindByUsername(ctx context.Context, username string) (User, bool, error)
	List(ctx context.Context) ([]User, error)
}
