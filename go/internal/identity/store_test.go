package identity

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/slotsync/go/internal/errs"
	"github.com/mcdev12/slotsync/go/internal/models"
)

func backends(t *testing.T) map[string]Backend {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return map[string]Backend{
		"file":  NewFileStore(t.TempDir()),
		"redis": NewRedisStore(client, "kiosk-1"),
	}
}

func TestStore_IdentityRoundTrip(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := NewStore(backend)

			_, err := store.LoadIdentity(ctx)
			assert.ErrorIs(t, err, errs.ErrNotFound)
			assert.True(t, IsNotFound(err))

			id := models.ClientIdentity{Token: 101, Username: "rahul", Name: "Rahul", Phone: "9876543210"}
			require.NoError(t, store.SaveIdentity(ctx, id))

			got, err := store.LoadIdentity(ctx)
			require.NoError(t, err)
			assert.Equal(t, id, got)

			require.NoError(t, store.SaveIdentity(ctx, id.WithoutTicket()))
			got, err = store.LoadIdentity(ctx)
			require.NoError(t, err)
			assert.Zero(t, got.Token)
			assert.Equal(t, "Rahul", got.Name)

			require.NoError(t, store.ClearIdentity(ctx))
			_, err = store.LoadIdentity(ctx)
			assert.ErrorIs(t, err, errs.ErrNotFound)

			// clearing twice is fine
			assert.NoError(t, store.ClearIdentity(ctx))
		})
	}
}

func TestStore_SessionRoundTrip(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := NewStore(backend)

			exp := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
			sess := models.AdminSession{Token: "opaque", Username: "owner", ExpiresAt: exp}
			require.NoError(t, store.SaveSession(ctx, sess))

			got, err := store.LoadSession(ctx)
			require.NoError(t, err)
			assert.Equal(t, "opaque", got.Token)
			assert.True(t, exp.Equal(got.ExpiresAt))

			require.NoError(t, store.ClearSession(ctx))
			_, err = store.LoadSession(ctx)
			assert.ErrorIs(t, err, errs.ErrNotFound)
		})
	}
}

func TestFileStore_PrivateFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	store := NewStore(NewFileStore(dir))
	require.NoError(t, store.SaveIdentity(context.Background(), models.ClientIdentity{Name: "A", Phone: "1234567890"}))

	info, err := os.Stat(filepath.Join(dir, UserKey+".json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFileStore_CorruptRecord(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, UserKey+".json"), []byte("{not json"), 0o600))

	_, err := NewStore(NewFileStore(dir)).LoadIdentity(context.Background())
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
}

func TestDefaultDir_UsesXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, filepath.Join("/tmp/xdg", "slotsync"), DefaultDir())
	assert.Equal(t, filepath.Join("/tmp/xdg", "slotsync"), NewFileStore("").Dir())
}

func TestRedisStore_DevicePrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	a := NewStore(NewRedisStore(client, "kiosk-a"))
	b := NewStore(NewRedisStore(client, "kiosk-b"))

	require.NoError(t, a.SaveIdentity(ctx, models.ClientIdentity{Token: 5}))
	_, err := b.LoadIdentity(ctx)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	assert.True(t, mr.Exists("slotsync:kiosk-a:"+UserKey))
}

func TestNewAdminSession(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	t.Run("jwt exp claim", func(t *testing.T) {
		exp := now.Add(time.Hour)
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   "owner",
			ExpiresAt: jwt.NewNumericDate(exp),
		}).SignedString([]byte("server-only"))
		require.NoError(t, err)

		sess := NewAdminSession(tok, "owner", now)
		assert.Equal(t, tok, sess.Token)
		assert.True(t, exp.Equal(sess.ExpiresAt))
		assert.True(t, sess.Valid(now))
		assert.False(t, sess.Valid(exp))
	})

	t.Run("opaque token", func(t *testing.T) {
		sess := NewAdminSession("f3a9c1", "owner", now)
		assert.Equal(t, now.Add(DefaultSessionTTL), sess.ExpiresAt)
	})
}
