package setting

import (
	"context"
	"time"
)

// Setting is one encrypted integration credential.
type Setting struct {
	Key        string
	Ciphertext string
	UpdatedAt  time.Time
}

// AllowedKeys lists the credential names the settings API accepts.
var AllowedKeys = []string{
	"ZID_TOKEN",
	"OPENAI_API_KEY",
	"WA_TOKEN",
	"WA_PHONE_ID",
	"EMAIL_TOKENS",
	"ARK_API_KEY",
}

// Allowed reports whether key is in AllowedKeys.
func Allowed(key string) bool {
	for _, k := range AllowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Repository persists settings keyed by Key.
type Repository interface {
	// Get returns the stored rows for keys. Missing keys are simply absent.
	Get(ctx context.Context, keys []string) ([]Setting, error)
	// Upsert replaces the ciphertext of key or creates the row.
	Upsert(ctx context.Context, key, ciphertext string) error
}
