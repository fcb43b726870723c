// Package users manages staff accounts.
package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/twocards/backoffice/internal/apperr"
	"github.com/twocards/backoffice/internal/model/user"
	"github.com/twocards/backoffice/internal/service/audit"
)

// Hasher hashes new passwords.
type Hasher interface {
	Hash(password string) (string, error)
}

// CreateInput describes a new account.
type CreateInput struct {
	Username string    `json:"username"`
	Password string    `json:"password"`
	Role     user.Role `json:"role"`
}

// UpdateInput changes an account. Nil fields are left untouched.
type UpdateInput struct {
	Password        *string    `json:"password"`
	Role            *user.Role `json:"role"`
	ThemePreference *string    `json:"theme_preference"`
}

// Service implements account management. Every mutation requires an admin actor.
type Service struct {
	repo   user.Repository
	hasher Hasher
	audit  audit.Sink
}

// NewService creates the users service.
func NewService(repo user.Repository, hasher Hasher, sink audit.Sink) *Service {
	if sink == nil {
		sink = audit.NoopSink{}
	}
	return &Service{repo: repo, hasher: hasher, audit: sink}
}

// List returns every account.
func (s *Service) List(ctx context.Context, actor user.User) ([]user.User, error) {
	if !actor.IsAdmin() {
		return nil, apperr.ErrForbidden
	}
	return s.repo.List(ctx)
}

// Create adds an account. Duplicate usernames wrap apperr.ErrConflict.
func (s *Service) Create(ctx context.Context, actor user.User, in CreateInput) (user.User, error) {
	if !actor.IsAdmin() {
		return user.User{}, apperr.ErrForbidden
	}

	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" {
		return user.User{}, apperr.Invalid("username is required")
	}
	if in.Role == "" {
		in.Role = user.RoleEmployee
	}
	if !in.Role.Valid() {
		return user.User{}, apperr.Invalid(fmt.Sprintf("unknown role %q", in.Role))
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return user.User{}, apperr.Invalid(err.Error())
	}

	u := user.User{Username: in.Username, PasswordHash: hash, Role: in.Role, ThemePreference: "dark"}
	id, err := s.repo.Create(ctx, u)
	if err != nil {
		return user.User{}, err
	}

	created, _, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return user.User{}, err
	}

	s.audit.Record(ctx, audit.Entry{
		Action:  "users.create",
		UserID:  audit.UserID(actor.ID),
		Details: map[string]any{"target_user_id": id, "role": string(in.Role)},
	})
	return created, nil
}

// Update changes password, role or theme of user id.
func (s *Service) Update(ctx context.Context, actor user.User, id int64, in UpdateInput) (user.User, error) {
	if !actor.IsAdmin() {
		return user.User{}, apperr.ErrForbidden
	}

	u, ok, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	if !ok {
		return user.User{}, apperr.NotFound("user")
	}

	var changed []string
	if in.Password != nil {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return user.User{}, apperr.Invalid(err.Error())
		}
		u.PasswordHash = hash
		changed = append(changed, "password")
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return user.User{}, apperr.Invalid(fmt.Sprintf("unknown role %q", *in.Role))
		}
		u.Role = *in.Role
		changed = append(changed, "role")
	}
	if in.ThemePreference != nil {
		u.ThemePreference = *in.ThemePreference
		changed = append(changed, "theme_preference")
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return user.User{}, err
	}

	s.audit.Record(ctx, audit.Entry{
		Action:  "users.update",
		UserID:  audit.UserID(actor.ID),
		Details: map[string]any{"target_user_id": id, "fields": changed},
	})
	return u, nil
}
