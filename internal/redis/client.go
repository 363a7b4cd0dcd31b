package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// Key builders. All ephemeral auth state (revoked tokens, lockout
// counters, reset tokens) lives in redis with per-key TTLs so it is
// shared across server processes and self-prunes.

func TokenBlacklistKey(jti string) string {
	return "token:blacklist:" + jti
}

func LoginAttemptsKey(username string) string {
	return "login_attempts:" + username
}

func AccountLockKey(username string) string {
	return "account_locked:" + username
}

func ResetTokenKey(token string) string {
	return "reset_token:" + token
}

func RateLimitKey(userID int64) string {
	return fmt.Sprintf("ratelimit:user:%d", userID)
}
