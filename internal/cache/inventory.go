package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix      = "user:%s"
	ProgressKeyPrefix  = "progress:%s"
	BlacklistKeyPrefix = "blacklist:%s"
	UsersListKey       = "users:all"
	TeamsKey           = "teams:all"
	BoardKey           = "teams:board"
)

const (
	UserTTL     = 5 * time.Minute
	UsersTTL    = 2 * time.Minute
	TeamsTTL    = 10 * time.Minute
	BoardTTL    = time.Minute
	ProgressTTL = 2 * time.Minute
)

func UserKey(userID string) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func ProgressKey(userID string) string {
	return fmt.Sprintf(ProgressKeyPrefix, userID)
}

func BlacklistKey(jti string) string {
	return fmt.Sprintf(BlacklistKeyPrefix, jti)
}

// Invalidate deletes keys; a nil client is a no-op.
func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateUser drops the cached profile plus every list that embeds users.
func InvalidateUser(ctx context.Context, userID string) {
	Invalidate(ctx, UserKey(userID), UsersListKey, TeamsKey, BoardKey)
}

// InvalidateTeams drops team listings and the board.
func InvalidateTeams(ctx context.Context) {
	Invalidate(ctx, TeamsKey, BoardKey)
}

// InvalidateProgress drops one user's calendar and the board.
func InvalidateProgress(ctx context.Context, userID string) {
	Invalidate(ctx, ProgressKey(userID), BoardKey)
}

// Blacklist marks a token id as revoked until ttl elapses.
func Blacklist(ctx context.Context, jti string, ttl time.Duration) error {
	if client == nil || jti == "" || ttl <= 0 {
		return nil
	}
	return client.Set(ctx, BlacklistKey(jti), "1", ttl).Err()
}

// IsBlacklisted reports whether jti was revoked. Without Redis nothing is revoked.
func IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	if client == nil || jti == "" {
		return false, nil
	}
	n, err := client.Exists(ctx, BlacklistKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
