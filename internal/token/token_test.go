package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-for-token-tests"

func TestIssueAndValidate(t *testing.T) {
	svc := NewService(testSecret, nil)

	tokenString, err := svc.Issue(42, []int64{1, 2, 3}, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims := svc.Validate(tokenString)
	require.NotNil(t, claims)
	assert.Equal(t, int64(42), claims.UserID())
	assert.Equal(t, []int64{1, 2, 3}, claims.SiteIDs)
	assert.NotEmpty(t, claims.ID)
	assert.Greater(t, claims.RemainingTTL(), 59*time.Minute)
}

func TestValidate_ReturnsNilUniformly(t *testing.T) {
	svc := NewService(testSecret, nil)

	t.Run("malformed token", func(t *testing.T) {
		assert.Nil(t, svc.Validate("not-a-token"))
		assert.Nil(t, svc.Validate(""))
	})

	t.Run("expired token", func(t *testing.T) {
		tokenString, err := svc.Issue(42, []int64{1}, -time.Minute)
		require.NoError(t, err)
		assert.Nil(t, svc.Validate(tokenString))
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other := NewService("a-completely-different-secret", nil)
		tokenString, err := other.Issue(42, []int64{1}, time.Hour)
		require.NoError(t, err)
		assert.Nil(t, svc.Validate(tokenString))
	})

	t.Run("tampered payload", func(t *testing.T) {
		tokenString, err := svc.Issue(42, []int64{1}, time.Hour)
		require.NoError(t, err)
		assert.Nil(t, svc.Validate(tokenString+"x"))
	})
}

func TestIssue_FreshJTIPerToken(t *testing.T) {
	svc := NewService(testSecret, nil)

	first, err := svc.Issue(42, []int64{1}, time.Hour)
	require.NoError(t, err)
	second, err := svc.Issue(42, []int64{1}, time.Hour)
	require.NoError(t, err)

	assert.NotEqual(t, svc.Validate(first).ID, svc.Validate(second).ID)
}

func TestClaims_RemainingTTL(t *testing.T) {
	svc := NewService(testSecret, nil)

	tokenString, err := svc.Issue(7, []int64{9}, time.Minute)
	require.NoError(t, err)
	claims := svc.Validate(tokenString)
	require.NotNil(t, claims)

	remaining := claims.RemainingTTL()
	assert.Greater(t, remaining, 50*time.Second)
	assert.LessOrEqual(t, remaining, time.Minute)
}
