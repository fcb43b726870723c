// Package settings stores integration credentials encrypted at rest.
package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/twocards/backoffice/internal/model/setting"
	"github.com/twocards/backoffice/internal/vault"
)

// Entry is one plaintext credential to store.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Cipher is the subset of the vault the store needs.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

var _ Cipher = (*vault.Vault)(nil)

// Service reads and writes settings through the vault.
type Service struct {
	repo   setting.Repository
	cipher Cipher
	env    map[string]string
	logger *slog.Logger
}

// NewService wires the store. env holds fallback values keyed by setting
// name and may be nil.
func NewService(repo setting.Repository, cipher Cipher, env map[string]string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cipher: cipher, env: env, logger: logger}
}

// Read returns a value for every requested key. Keys that are missing or
// cannot be decrypted map to nil; one bad row never hides the others.
func (s *Service) Read(ctx context.Context, keys []string) (map[string]*string, error) {
	result := make(map[string]*string, len(keys))
	for _, k := range keys {
		result[k] = nil
	}
	if len(keys) == 0 {
		return result, nil
	}

	rows, err := s.repo.Get(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	for _, row := range rows {
		if _, wanted := result[row.Key]; !wanted {
			continue
		}
		plain, err := s.cipher.Decrypt(row.Ciphertext)
		if err != nil {
			s.logger.Warn("stored setting could not be decrypted", "key", row.Key, "error", err)
			continue
		}
		result[row.Key] = &plain
	}
	return result, nil
}

// Write encrypts every entry before persisting any of them, then upserts
// them in order. It returns the number of entries written.
func (s *Service) Write(ctx context.Context, entries []Entry) (int, error) {
	sealed := make([]string, len(entries))
	for i, e := range entries {
		ct, err := s.cipher.Encrypt(e.Value)
		if err != nil {
			return 0, fmt.Errorf("failed to encrypt %s: %w", e.Key, err)
		}
		sealed[i] = ct
	}

	for i, e := range entries {
		if err := s.repo.Upsert(ctx, e.Key, sealed[i]); err != nil {
			return i, err
		}
	}
	return len(entries), nil
}

// Lookup resolves a single credential. A stored value wins over the
// environment fallback; blank values count as absent.
func (s *Service) Lookup(ctx context.Context, key string) (string, bool) {
	values, err := s.Read(ctx, []string{key})
	if err != nil {
		s.logger.Warn("settings lookup failed, using environment", "key", key, "error", err)
	} else if v := values[key]; v != nil && strings.TrimSpace(*v) != "" {
		return *v, true
	}

	if v := strings.TrimSpace(s.env[key]); v != "" {
		return v, true
	}
	return "", false
}
