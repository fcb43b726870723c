package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twocards/backoffice/internal/apperr"
	"github.com/twocards/backoffice/internal/model/user"
	"github.com/twocards/backoffice/internal/store/sqlite"
)

func fastPasswords() *Passwords {
	return NewPasswords(PasswordConfig{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
}

func newTestService(t *testing.T, limiter Limiter) (*Service, user.Repository) {
	t.Helper()
	db, err := sqlite.Open(context.Background(), sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := NewTokens("test-secret", time.Hour, "backoffice-test")
	require.NoError(t, err)

	users := sqlite.NewUserRepo(db)
	return NewService(users, fastPasswords(), tokens, limiter, nil, nil), users
}

func TestPasswordHashRoundTrip(t *testing.T) {
	p := fastPasswords()
	hash, err := p.Hash("Admin@123")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$")

	ok, err := p.Verify("Admin@123", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Verify("admin@123", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = p.Verify("x", "not-a-hash")
	assert.Error(t, err)

	_, err = p.Hash("short")
	assert.Error(t, err)
}

func TestTokensRejectTamperingAndExpiry(t *testing.T) {
	tokens, err := NewTokens("secret", time.Minute, "iss")
	require.NoError(t, err)

	raw, err := tokens.Issue(user.User{ID: 3, Username: "sara", Role: user.RoleEmployee})
	require.NoError(t, err)

	claims, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(3), claims.UID)
	assert.Equal(t, "sara", claims.Subject)

	other, err := NewTokens("other-secret", time.Minute, "iss")
	require.NoError(t, err)
	_, err = other.Parse(raw)
	assert.ErrorIs(t, err, apperr.ErrAuth)

	tokens.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = tokens.Parse(raw)
	assert.ErrorIs(t, err, apperr.ErrAuth)

	_, err = NewTokens("", time.Minute, "iss")
	assert.Error(t, err)
}

func TestLoginAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)
	require.NoError(t, svc.SeedAdmin(ctx, "Admin@123"))
	require.NoError(t, svc.SeedAdmin(ctx, "ignored-second-time"))

	_, _, err := svc.Login(ctx, "admin", "wrong-password", "127.0.0.1")
	assert.ErrorIs(t, err, apperr.ErrAuth)

	_, _, err = svc.Login(ctx, "nobody", "Admin@123", "127.0.0.1")
	assert.ErrorIs(t, err, apperr.ErrAuth)

	token, u, err := svc.Login(ctx, "admin", "Admin@123", "127.0.0.1")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())

	got, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, apperr.ErrAuth)
	_, err = svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, apperr.ErrAuth)
}

func TestLoginIsThrottledAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	svc, _ := newTestService(t, NewRedisLimiter(client, 3, time.Minute))
	require.NoError(t, svc.SeedAdmin(ctx, "Admin@123"))

	for i := 0; i < 3; i++ {
		_, _, err := svc.Login(ctx, "admin", "bad-password", "")
		assert.ErrorIs(t, err, apperr.ErrAuth)
	}

	// Even the right password is refused inside the window.
	_, _, err := svc.Login(ctx, "admin", "Admin@123", "")
	assert.ErrorIs(t, err, apperr.ErrRateLimited)

	mr.FastForward(2 * time.Minute)
	_, _, err = svc.Login(ctx, "admin", "Admin@123", "")
	assert.NoError(t, err)
}

func TestSuccessfulLoginResetsCounter(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	limiter := NewRedisLimiter(client, 2, time.Minute)
	require.NoError(t, limiter.Fail(ctx, "Admin"))
	assert.True(t, mr.Exists("backoffice:login:admin"))
	assert.NoError(t, limiter.Check(ctx, "admin"))

	require.NoError(t, limiter.Reset(ctx, "admin"))
	assert.False(t, mr.Exists("backoffice:login:admin"))
}
