package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twocards/backoffice/internal/model/setting"
	"github.com/twocards/backoffice/internal/store/sqlite"
	"github.com/twocards/backoffice/internal/vault"
)

func newTestService(t *testing.T, secret string, env map[string]string) (*Service, setting.Repository) {
	t.Helper()
	db, err := sqlite.Open(context.Background(), sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	v, err := vault.New(secret)
	require.NoError(t, err)

	repo := sqlite.NewSettingRepo(db)
	return NewService(repo, v, env, nil), repo
}

func TestWriteThenRead(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, "k1", nil)

	n, err := svc.Write(ctx, []Entry{{Key: "ZID_TOKEN", Value: "abc"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := svc.Read(ctx, []string{"ZID_TOKEN", "WA_TOKEN"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got["ZID_TOKEN"])
	assert.Equal(t, "abc", *got["ZID_TOKEN"])
	assert.Nil(t, got["WA_TOKEN"])
}

func TestRewriteKeepsSingleRow(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t, "k1", nil)

	_, err := svc.Write(ctx, []Entry{{Key: "ZID_TOKEN", Value: "first"}})
	require.NoError(t, err)
	_, err = svc.Write(ctx, []Entry{{Key: "ZID_TOKEN", Value: "second"}})
	require.NoError(t, err)

	rows, err := repo.Get(ctx, []string{"ZID_TOKEN"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	got, err := svc.Read(ctx, []string{"ZID_TOKEN"})
	require.NoError(t, err)
	assert.Equal(t, "second", *got["ZID_TOKEN"])
}

func TestUndecryptableRowIsIsolated(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t, "k1", nil)

	_, err := svc.Write(ctx, []Entry{{Key: "WA_TOKEN", Value: "good"}})
	require.NoError(t, err)

	other, err := vault.New("k2")
	require.NoError(t, err)
	foreign, err := other.Encrypt("bad")
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, "ZID_TOKEN", foreign))

	got, err := svc.Read(ctx, []string{"ZID_TOKEN", "WA_TOKEN"})
	require.NoError(t, err)
	assert.Nil(t, got["ZID_TOKEN"])
	require.NotNil(t, got["WA_TOKEN"])
	assert.Equal(t, "good", *got["WA_TOKEN"])
}

type failingCipher struct {
	Cipher
	failOn string
}

func (f failingCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == f.failOn {
		return "", errors.New("boom")
	}
	return f.Cipher.Encrypt(plaintext)
}

func TestWriteIsAllOrNothingOnEncryptFailure(t *testing.T) {
	ctx := context.Background()
	_, repo := newTestService(t, "k1", nil)
	v, err := vault.New("k1")
	require.NoError(t, err)
	svc := NewService(repo, failingCipher{Cipher: v, failOn: "poison"}, nil, nil)

	_, err = svc.Write(ctx, []Entry{
		{Key: "ZID_TOKEN", Value: "fine"},
		{Key: "WA_TOKEN", Value: "poison"},
	})
	require.Error(t, err)

	rows, err := repo.Get(ctx, []string{"ZID_TOKEN", "WA_TOKEN"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLookupPrefersStoredValue(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, "k1", map[string]string{"ZID_TOKEN": "from-env", "WA_PHONE_ID": "123"})

	v, ok := svc.Lookup(ctx, "ZID_TOKEN")
	assert.True(t, ok)
	assert.Equal(t, "from-env", v)

	_, err := svc.Write(ctx, []Entry{{Key: "ZID_TOKEN", Value: "stored"}})
	require.NoError(t, err)

	v, ok = svc.Lookup(ctx, "ZID_TOKEN")
	assert.True(t, ok)
	assert.Equal(t, "stored", v)

	_, ok = svc.Lookup(ctx, "EMAIL_TOKENS")
	assert.False(t, ok)
}
