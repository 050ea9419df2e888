package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

type cachedTeam struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func TestAside_MissThenHit(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *[]cachedTeam) func() error {
		return func() error {
			calls++
			*dest = []cachedTeam{{ID: 1, Name: "Blue"}}
			return nil
		}
	}

	var first []cachedTeam
	require.NoError(t, Aside(ctx, TeamsKey, &first, TeamsTTL, fetch(&first)))
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists(TeamsKey))

	var second []cachedTeam
	require.NoError(t, Aside(ctx, TeamsKey, &second, TeamsTTL, fetch(&second)))
	assert.Equal(t, 1, calls, "second read must come from cache")
	assert.Equal(t, first, second)
}

func TestAside_FetchErrorIsReturned(t *testing.T) {
	setupMiniredis(t)
	var dest []cachedTeam
	err := Aside(context.Background(), BoardKey, &dest, BoardTTL, func() error { return errors.New("db down") })
	assert.EqualError(t, err, "db down")
}

func TestAside_NoClient(t *testing.T) {
	SetClient(nil)
	var dest cachedTeam
	err := Aside(context.Background(), UserKey("alice"), &dest, UserTTL, func() error {
		dest = cachedTeam{ID: 9}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint(9), dest.ID)
}

func TestAside_RedisDownFallsBackToFetch(t *testing.T) {
	mr := setupMiniredis(t)
	mr.Close()

	var dest cachedTeam
	err := Aside(context.Background(), UserKey("bob"), &dest, UserTTL, func() error {
		dest = cachedTeam{ID: 3}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint(3), dest.ID)
}

func TestInvalidateUser(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()
	for _, k := range []string{UserKey("alice"), UsersListKey, TeamsKey, BoardKey, UserKey("bob")} {
		require.NoError(t, mr.Set(k, "x"))
	}

	InvalidateUser(ctx, "alice")

	assert.False(t, mr.Exists(UserKey("alice")))
	assert.False(t, mr.Exists(UsersListKey))
	assert.False(t, mr.Exists(BoardKey))
	assert.True(t, mr.Exists(UserKey("bob")))
}

func TestBlacklist(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	revoked, err := IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, Blacklist(ctx, "jti-1", time.Hour))
	revoked, err = IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Hour)
	revoked, err = IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestKeyFamily(t *testing.T) {
	assert.Equal(t, "user", keyFamily(UserKey("alice")))
	assert.Equal(t, "teams", keyFamily(BoardKey))
	assert.Equal(t, "plain", keyFamily("plain"))
}
