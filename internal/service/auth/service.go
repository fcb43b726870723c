package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/twocards/backoffice/internal/apperr"
	"github.com/twocards/backoffice/internal/model/user"
	"github.com/twocards/backoffice/internal/service/audit"
)

// AdminUsername is the account seeded on first start.
const AdminUsername = "admin"

// Service logs staff in and resolves bearer tokens to users.
type Service struct {
	users     user.Repository
	passwords *Passwords
	tokens    *Tokens
	limiter   Limiter
	audit     audit.Sink
	logger    *slog.Logger
}

// NewService wires the authenticator. A nil limiter disables throttling.
func NewService(users user.Repository, passwords *Passwords, tokens *Tokens, limiter Limiter, sink audit.Sink, logger *slog.Logger) *Service {
	if limiter == nil {
		limiter = NoopLimiter{}
	}
	if sink == nil {
		sink = audit.NoopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:     users,
		passwords: passwords,
		tokens:    tokens,
		limiter:   limiter,
		audit:     sink,
		logger:    logger,
	}
}

// Login verifies credentials and returns a signed access token.
func (s *Service) Login(ctx context.Context, username, password, ip string) (string, user.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", user.User{}, apperr.ErrAuth
	}

	if err := s.limiter.Check(ctx, username); err != nil {
		if errors.Is(err, apperr.ErrRateLimited) {
			s.audit.Record(ctx, audit.Entry{
				Action:  "auth.login_throttled",
				Details: map[string]any{"username": username, "ip": ip},
			})
			return "", user.User{}, err
		}
		s.logger.Warn("login limiter check failed", "error", err)
	}

	u, ok, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return "", user.User{}, err
	}

	valid := false
	if ok {
		valid, err = s.passwords.Verify(password, u.PasswordHash)
		if err != nil {
			s.logger.Error("stored password hash is unreadable", "user_id", u.ID, "error", err)
			valid = false
		}
	}

	if !valid {
		if err := s.limiter.Fail(ctx, username); err != nil {
			s.logger.Warn("failed to record login failure", "error", err)
		}
		s.audit.Record(ctx, audit.Entry{
			Action:  "auth.login_failed",
			Details: map[string]any{"username": username, "ip": ip},
		})
		return "", user.User{}, apperr.ErrAuth
	}

	if err := s.limiter.Reset(ctx, username); err != nil {
		s.logger.Warn("failed to reset login counter", "error", err)
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		return "", user.User{}, err
	}

	s.audit.Record(ctx, audit.Entry{
		Action:  "auth.login",
		UserID:  audit.UserID(u.ID),
		Details: map[string]any{"ip": ip},
	})
	return token, u, nil
}

// Authenticate resolves a bearer token to its current user record.
func (s *Service) Authenticate(ctx context.Context, token string) (user.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return user.User{}, fmt.Errorf("%w: missing token", apperr.ErrAuth)
	}

	claims, err := s.tokens.Parse(token)
	if err != nil {
		return user.User{}, err
	}

	u, ok, err := s.users.FindByID(ctx, claims.UID)
	if err != nil {
		return user.User{}, err
	}
	if !ok || u.Username != claims.Subject {
		return user.User{}, fmt.Errorf("%w: unknown user", apperr.ErrAuth)
	}
	return u, nil
}

// SeedAdmin creates the admin account when it does not exist yet.
func (s *Service) SeedAdmin(ctx context.Context, password string) error {
	_, ok, err := s.users.FindByUsername(ctx, AdminUsername)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	id, err := s.users.Create(ctx, user.User{
		Username:        AdminUsername,
		PasswordHash:    hash,
		Role:            user.RoleAdmin,
		ThemePreference: "dark",
	})
	if err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	s.logger.Info("seeded admin account", "user_id", id)
	return nil
}
