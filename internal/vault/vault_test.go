package vault

import (
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twocards/backoffice/internal/apperr"
)

func newVault(t *testing.T, secret string) *Vault {
	t.Helper()
	v, err := New(secret)
	require.NoError(t, err)
	return v
}

func TestRoundTrip(t *testing.T) {
	v := newVault(t, "twocards-encryption-key-please-change")

	for _, plaintext := range []string{"", "sk-live-123", "مفتاح سري", strings.Repeat("x", 4096)} {
		ciphertext, err := v.Encrypt(plaintext)
		require.NoError(t, err)

		got, err := v.Decrypt(ciphertext)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestEncryptIsRandomized(t *testing.T) {
	v := newVault(t, "secret")
	a, err := v.Encrypt("same")
	require.NoError(t, err)
	b, err := v.Encrypt("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDecryptWithDifferentKeyFails(t *testing.T) {
	ciphertext, err := newVault(t, "key-one").Encrypt("WA_TOKEN value")
	require.NoError(t, err)

	_, err = newVault(t, "key-two").Decrypt(ciphertext)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrDecryption)

	var decErr *DecryptionError
	require.True(t, errors.As(err, &decErr))
	assert.Equal(t, "authentication failed", decErr.Reason)
}

func TestDecryptRejectsTampering(t *testing.T) {
	v := newVault(t, "secret")
	ciphertext, err := v.Encrypt("value")
	require.NoError(t, err)

	blob, err := base64.RawURLEncoding.DecodeString(ciphertext)
	require.NoError(t, err)
	blob[len(blob)-1] ^= 0xff
	_, err = v.Decrypt(base64.RawURLEncoding.EncodeToString(blob))
	assert.ErrorIs(t, err, apperr.ErrDecryption)

	blob[len(blob)-1] ^= 0xff
	blob[0] = 0x02
	_, err = v.Decrypt(base64.RawURLEncoding.EncodeToString(blob))
	assert.ErrorIs(t, err, apperr.ErrDecryption)
}

func TestDecryptRejectsMalformedInput(t *testing.T) {
	v := newVault(t, "secret")
	for _, input := range []string{"", "not base64!", base64.RawURLEncoding.EncodeToString([]byte{BlobVersion, 1, 2})} {
		_, err := v.Decrypt(input)
		assert.ErrorIs(t, err, apperr.ErrDecryption, input)
	}
}

func TestKeyDerivationTruncatesAndPads(t *testing.T) {
	long := strings.Repeat("k", 32)
	a := newVault(t, long)
	b := newVault(t, long+"ignored-suffix")

	ciphertext, err := a.Encrypt("shared")
	require.NoError(t, err)
	got, err := b.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "shared", got)

	assert.Equal(t, []byte("abc"+strings.Repeat("0", 29)), deriveKey("abc"))
	padded := newVault(t, "abc"+strings.Repeat("0", 29))
	got, err = padded.Decrypt(mustEncrypt(t, newVault(t, "abc"), "pad"))
	require.NoError(t, err)
	assert.Equal(t, "pad", got)
}

func TestNewRejectsEmptySecret(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestConcurrentUse(t *testing.T) {
	v := newVault(t, "secret")
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ciphertext, err := v.Encrypt("parallel")
			if !assert.NoError(t, err) {
				return
			}
			got, err := v.Decrypt(ciphertext)
			assert.NoError(t, err)
			assert.Equal(t, "parallel", got)
		}()
	}
	wg.Wait()
}

func mustEncrypt(t *testing.T, v *Vault, plaintext string) string {
	t.Helper()
	ciphertext, err := v.Encrypt(plaintext)
	require.NoError(t, err)
	return ciphertext
}
