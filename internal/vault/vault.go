// Package vault encrypts integration credentials for storage at rest.
//
// Ciphertexts use XChaCha20-Poly1305 under a single process-wide key and are
// encoded as base64url (no padding) over the blob:
//
//	[Version: 1 byte (0x01)] [Nonce: 24 bytes] [Ciphertext+Tag: N+16 bytes]
//
// The version byte is authenticated as additional data. There is no key
// rotation: changing the configured secret makes every stored ciphertext
// undecryptable.
package vault

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/twocards/backoffice/internal/apperr"
)

// BlobVersion prefixes every ciphertext.
const BlobVersion byte = 0x01

const (
	keyPad   = '0'
	overhead = 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead
)

// ErrEmptySecret is returned by New when no secret is configured.
var ErrEmptySecret = errors.New("vault: encryption secret is empty")

// DecryptionError reports a ciphertext that is malformed, was sealed under
// another key, or failed authentication.
type DecryptionError struct {
	Reason string
	Err    error
}

func (e *DecryptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("vault: %s: %v", e.Reason, e.Err)
	}
	return "vault: " + e.Reason
}

func (e *DecryptionError) Unwrap() error { return apperr.ErrDecryption }

// Vault seals and opens strings with one AEAD built at construction.
type Vault struct {
	aead cipher.AEAD
}

// New derives the key from secret's raw bytes, truncated or padded with '0'
// to 32 bytes.
func New(secret string) (*Vault, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	aead, err := chacha20poly1305.NewX(deriveKey(secret))
	if err != nil {
		return nil, fmt.Errorf("vault: creating XChaCha20-Poly1305 cipher: %w", err)
	}
	return &Vault{aead: aead}, nil
}

func deriveKey(secret string) []byte {
	key := make([]byte, chacha20poly1305.KeySize)
	n := copy(key, secret)
	for i := n; i < len(key); i++ {
		key[i] = keyPad
	}
	return key
}

// Encrypt returns the encoded ciphertext of plaintext.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	blob := make([]byte, 1+chacha20poly1305.NonceSizeX, overhead+len(plaintext))
	blob[0] = BlobVersion
	nonce := blob[1:]
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("vault: generating nonce: %w", err)
	}

	blob = v.aead.Seal(blob, nonce, []byte(plaintext), blob[:1])
	return base64.RawURLEncoding.EncodeToString(blob), nil
}

// Decrypt opens a ciphertext produced by Encrypt. Any failure is a
// *DecryptionError.
func (v *Vault) Decrypt(ciphertext string) (string, error) {
	blob, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", &DecryptionError{Reason: "malformed ciphertext", Err: err}
	}
	if len(blob) < overhead {
		return "", &DecryptionError{Reason: fmt.Sprintf("ciphertext too short (%d bytes)", len(blob))}
	}
	if blob[0] != BlobVersion {
		return "", &DecryptionError{Reason: fmt.Sprintf("unsupported blob version 0x%02x", blob[0])}
	}

	nonce := blob[1 : 1+chacha20poly1305.NonceSizeX]
	plaintext, err := v.aead.Open(nil, nonce, blob[1+chacha20poly1305.NonceSizeX:], blob[:1])
	if err != nil {
		return "", &DecryptionError{Reason: "authentication failed", Err: err}
	}
	return string(plaintext), nil
}
