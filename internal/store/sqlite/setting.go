package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/twocards/backoffice/internal/model/setting"
)

type settingRepo struct {
	db *sql.DB
}

// NewSettingRepo returns the encrypted settings repository.
func NewSettingRepo(d *DB) setting.Repository {
	return &settingRepo{db: d.sql}
}

func (r *settingRepo) Get(ctx context.Context, keys []string) ([]setting.Setting, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT key, value_encrypted, updated_at FROM settings WHERE key IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	var out []setting.Setting
	for rows.Next() {
		var (
			s         setting.Setting
			updatedAt int64
		)
		if err := rows.Scan(&s.Key, &s.Ciphertext, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		s.UpdatedAt = fromUnixNano(updatedAt)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *settingRepo) Upsert(ctx context.Context, key, ciphertext string) error {
	now := unixNano(time.Now())
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value_encrypted, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value_encrypted = excluded.value_encrypted, updated_at = excluded.updated_at
	`, key, ciphertext, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert setting %s: %w", key, err)
	}
	return nil
}
