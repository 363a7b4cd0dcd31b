// Package token issues and validates the signed session tokens that
// carry a user's identity and site-id snapshot, and tracks revoked
// token ids in redis.
package token

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	redisclient "github.com/interacthq/interaction-server-go/internal/redis"
)

// Claims is the session token payload. Site ids are snapshotted at
// issuance; membership changes take effect on the next login.
type Claims struct {
	SiteIDs []int64 `json:"site_ids"`
	jwt.RegisteredClaims
}

// UserID returns the subject as a numeric user id, or 0 when the
// subject claim is missing or malformed.
func (c *Claims) UserID() int64 {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// RemainingTTL is the time until the token expires, floored at zero.
func (c *Claims) RemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	remaining := time.Until(c.ExpiresAt.Time)
	if remaining < 0 {
		return 0
	}
	return remaining
}

type Service struct {
	secret      []byte
	redisClient *redisclient.Client
}

func NewService(secret string, redisClient *redisclient.Client) *Service {
	return &Service{
		secret:      []byte(secret),
		redisClient: redisClient,
	}
}

// Issue creates a signed token embedding the user id, the site-id
// snapshot, and a fresh random token id.
func (s *Service) Issue(userID int64, siteIDs []int64, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		SiteIDs: siteIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Validate verifies the signature and expiry. It returns nil for any
// malformed, expired, or tampered token; callers must treat nil
// uniformly as unauthenticated and never surface the reason.
func (s *Service) Validate(tokenString string) *Claims {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return nil
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.Subject == "" || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	if claims.UserID() == 0 {
		return nil
	}

	return claims
}

// Revoke adds a token id to the revocation set. The entry expires with
// the token itself, so the set never grows unbounded.
func (s *Service) Revoke(ctx context.Context, jti string, remaining time.Duration) error {
	if remaining <= 0 {
		return nil
	}
	return s.redisClient.Set(ctx, redisclient.TokenBlacklistKey(jti), "1", remaining).Err()
}

// IsRevoked checks the revocation set for a token id.
func (s *Service) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := s.redisClient.Get(ctx, redisclient.TokenBlacklistKey(jti)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
