package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/interacthq/interaction-server-go/internal/errors"
	"github.com/interacthq/interaction-server-go/internal/model"
	redisclient "github.com/interacthq/interaction-server-go/internal/redis"
	"github.com/interacthq/interaction-server-go/internal/token"
	"github.com/interacthq/interaction-server-go/internal/util"
)

// Lockout and revocation state lives in redis, so these tests need a
// running instance. DB 15 is reserved for tests.
func testRedis(t *testing.T) *redisclient.Client {
	t.Helper()
	client, err := redisclient.NewClient("redis://localhost:6379/15")
	if err != nil {
		t.Skip("Redis not available for testing")
	}
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	client.FlushDB(context.Background())
	return client
}

func newAuthService(userRepo *mockUserRepo, membershipRepo *mockMembershipRepo, redisClient *redisclient.Client) (*AuthService, *token.Service) {
	tokenService := token.NewService("test-secret-for-auth-service-tests", redisClient)
	svc := NewAuthService(
		userRepo, membershipRepo, tokenService, redisClient,
		time.Hour, 5, 15*time.Minute, 30*time.Minute,
	)
	return svc, tokenService
}

func activeUser(password string) *model.User {
	hash, _ := util.HashPassword(password)
	return &model.User{
		ID:           7,
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: hash,
		IsActive:     true,
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("issues token with site memberships", func(t *testing.T) {
		redisClient := testRedis(t)
		userRepo := new(mockUserRepo)
		membershipRepo := new(mockMembershipRepo)
		svc, tokenService := newAuthService(userRepo, membershipRepo, redisClient)

		user := activeUser("Sup3r$ecret")
		userRepo.On("FindByUsername", ctx, "alice").Return(user, nil)
		userRepo.On("UpdateLastLogin", ctx, int64(7)).Return(nil)
		membershipRepo.On("SiteIDsForUser", ctx, int64(7)).Return([]int64{3, 4}, nil)
		membershipRepo.On("UserSites", ctx, int64(7), true).
			Return([]model.UserSite{{SiteID: 3, Name: "North", Role: model.RoleAdmin}}, nil)

		result, err := svc.Login(ctx, "alice", "Sup3r$ecret")
		require.NoError(t, err)
		require.NotEmpty(t, result.Token)
		assert.Equal(t, int64(7), result.User.ID)
		assert.Len(t, result.Sites, 1)

		claims := tokenService.Validate(result.Token)
		require.NotNil(t, claims)
		assert.Equal(t, []int64{3, 4}, claims.SiteIDs)
	})

	t.Run("wrong password and unknown user are indistinguishable", func(t *testing.T) {
		redisClient := testRedis(t)
		userRepo := new(mockUserRepo)
		membershipRepo := new(mockMembershipRepo)
		svc, _ := newAuthService(userRepo, membershipRepo, redisClient)

		userRepo.On("FindByUsername", ctx, "alice").Return(activeUser("Sup3r$ecret"), nil)
		userRepo.On("FindByUsername", ctx, "ghost").Return(nil, nil)

		_, err1 := svc.Login(ctx, "alice", "wrong")
		_, err2 := svc.Login(ctx, "ghost", "wrong")

		assert.Equal(t, apperrors.ErrCodeUnauthorized, apperrors.GetCode(err1))
		assert.Equal(t, err1.Error(), err2.Error())
	})

	t.Run("locks account after repeated failures", func(t *testing.T) {
		redisClient := testRedis(t)
		userRepo := new(mockUserRepo)
		membershipRepo := new(mockMembershipRepo)
		svc, _ := newAuthService(userRepo, membershipRepo, redisClient)

		user := activeUser("Sup3r$ecret")
		userRepo.On("FindByUsername", ctx, "alice").Return(user, nil)

		for i := 0; i < 5; i++ {
			_, err := svc.Login(ctx, "alice", "wrong")
			assert.Equal(t, apperrors.ErrCodeUnauthorized, apperrors.GetCode(err))
		}

		// Locked now, even with the correct password.
		_, err := svc.Login(ctx, "alice", "Sup3r$ecret")
		assert.Equal(t, apperrors.ErrCodeAccountLocked, apperrors.GetCode(err))
	})

	t.Run("successful login clears the failure counter", func(t *testing.T) {
		redisClient := testRedis(t)
		userRepo := new(mockUserRepo)
		membershipRepo := new(mockMembershipRepo)
		svc, _ := newAuthService(userRepo, membershipRepo, redisClient)

		user := activeUser("Sup3r$ecret")
		userRepo.On("FindByUsername", ctx, "alice").Return(user, nil)
		userRepo.On("UpdateLastLogin", ctx, int64(7)).Return(nil)
		membershipRepo.On("SiteIDsForUser", ctx, int64(7)).Return([]int64{3}, nil)
		membershipRepo.On("UserSites", ctx, int64(7), true).
			Return([]model.UserSite{{SiteID: 3, Name: "North", Role: model.RoleUser}}, nil)

		for i := 0; i < 4; i++ {
			svc.Login(ctx, "alice", "wrong")
		}
		_, err := svc.Login(ctx, "alice", "Sup3r$ecret")
		require.NoError(t, err)

		err = redisClient.Get(ctx, redisclient.LoginAttemptsKey("alice")).Err()
		assert.Error(t, err, "attempt counter should be cleared")
	})

	t.Run("rejects user without site access", func(t *testing.T) {
		redisClient := testRedis(t)
		userRepo := new(mockUserRepo)
		membershipRepo := new(mockMembershipRepo)
		svc, _ := newAuthService(userRepo, membershipRepo, redisClient)

		user := activeUser("Sup3r$ecret")
		userRepo.On("FindByUsername", ctx, "alice").Return(user, nil)
		userRepo.On("UpdateLastLogin", ctx, int64(7)).Return(nil)
		membershipRepo.On("SiteIDsForUser", ctx, int64(7)).Return([]int64{}, nil)

		_, err := svc.Login(ctx, "alice", "Sup3r$ecret")
		assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.GetCode(err))
	})

	t.Run("rejects deactivated user", func(t *testing.T) {
		redisClient := testRedis(t)
		userRepo := new(mockUserRepo)
		membershipRepo := new(mockMembershipRepo)
		svc, _ := newAuthService(userRepo, membershipRepo, redisClient)

		user := activeUser("Sup3r$ecret")
		user.IsActive = false
		userRepo.On("FindByUsername", ctx, "alice").Return(user, nil)

		_, err := svc.Login(ctx, "alice", "Sup3r$ecret")
		assert.Equal(t, apperrors.ErrCodeUnauthorized, apperrors.GetCode(err))
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	redisClient := testRedis(t)
	userRepo := new(mockUserRepo)
	membershipRepo := new(mockMembershipRepo)
	svc, tokenService := newAuthService(userRepo, membershipRepo, redisClient)

	tokenString, err := tokenService.Issue(7, []int64{3}, time.Hour)
	require.NoError(t, err)

	claims := tokenService.Validate(tokenString)
	require.NotNil(t, claims)

	revoked, err := tokenService.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, svc.Logout(ctx, tokenString))

	revoked, err = tokenService.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	// A garbage token cannot be logged out.
	err = svc.Logout(ctx, "not-a-token")
	assert.Equal(t, apperrors.ErrCodeUnauthorized, apperrors.GetCode(err))
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown email yields no token and no error", func(t *testing.T) {
		redisClient := testRedis(t)
		userRepo := new(mockUserRepo)
		svc, _ := newAuthService(userRepo, new(mockMembershipRepo), redisClient)

		userRepo.On("FindByEmail", ctx, "ghost@example.com").Return(nil, nil)

		resetToken, err := svc.RequestPasswordReset(ctx, "ghost@example.com")
		require.NoError(t, err)
		assert.Empty(t, resetToken)
	})

	t.Run("reset token is single use", func(t *testing.T) {
		redisClient := testRedis(t)
		userRepo := new(mockUserRepo)
		svc, _ := newAuthService(userRepo, new(mockMembershipRepo), redisClient)

		user := activeUser("Old$ecret1")
		userRepo.On("FindByEmail", ctx, "alice@example.com").Return(user, nil)
		userRepo.On("FindByID", ctx, int64(7)).Return(user, nil)
		userRepo.On("UpdatePassword", ctx, int64(7), mock.AnythingOfType("string")).Return(nil)

		resetToken, err := svc.RequestPasswordReset(ctx, "alice@example.com")
		require.NoError(t, err)
		require.NotEmpty(t, resetToken)

		require.NoError(t, svc.ResetPassword(ctx, resetToken, "New$ecret1"))

		err = svc.ResetPassword(ctx, resetToken, "Newer$ecret1")
		assert.Equal(t, apperrors.ErrCodeUnauthorized, apperrors.GetCode(err))
	})

	t.Run("weak replacement password is rejected", func(t *testing.T) {
		redisClient := testRedis(t)
		userRepo := new(mockUserRepo)
		svc, _ := newAuthService(userRepo, new(mockMembershipRepo), redisClient)

		user := activeUser("Old$ecret1")
		userRepo.On("FindByEmail", ctx, "alice@example.com").Return(user, nil)
		userRepo.On("FindByID", ctx, int64(7)).Return(user, nil)

		resetToken, err := svc.RequestPasswordReset(ctx, "alice@example.com")
		require.NoError(t, err)

		err = svc.ResetPassword(ctx, resetToken, "short")
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	redisClient := testRedis(t)
	userRepo := new(mockUserRepo)
	svc, _ := newAuthService(userRepo, new(mockMembershipRepo), redisClient)

	user := activeUser("Old$ecret1")

	t.Run("rejects wrong current password", func(t *testing.T) {
		err := svc.ChangePassword(ctx, user, "not-the-password", "New$ecret1")
		assert.Equal(t, apperrors.ErrCodeUnauthorized, apperrors.GetCode(err))
	})

	t.Run("rejects weak new password", func(t *testing.T) {
		err := svc.ChangePassword(ctx, user, "Old$ecret1", "weak")
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
	})

	t.Run("updates hash on success", func(t *testing.T) {
		userRepo.On("UpdatePassword", ctx, int64(7), mock.AnythingOfType("string")).Return(nil)
		require.NoError(t, svc.ChangePassword(ctx, user, "Old$ecret1", "New$ecret1"))
		userRepo.AssertExpectations(t)
	})
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	sc := testScope()

	t.Run("creates user with hashed password", func(t *testing.T) {
		redisClient := testRedis(t)
		userRepo := new(mockUserRepo)
		membershipRepo := new(mockMembershipRepo)
		svc, _ := newAuthService(userRepo, membershipRepo, redisClient)

		membershipRepo.On("Find", ctx, int64(7), int64(3)).Return(adminMembership(7, 3), nil)
		userRepo.On("FindByUsername", ctx, "bob").Return(nil, nil)
		userRepo.On("FindByEmail", ctx, "bob@example.com").Return(nil, nil)
		userRepo.On("Create", ctx, mock.MatchedBy(func(p model.CreateUserParams) bool {
			return p.Username == "bob" &&
				p.PasswordHash != "" && p.PasswordHash != "Str0ng$ecret" &&
				util.CheckPasswordHash("Str0ng$ecret", p.PasswordHash)
		})).Return(&model.User{ID: 8, Username: "bob", Email: "bob@example.com", IsActive: true}, nil)

		user, err := svc.CreateUser(ctx, sc, CreateUserInput{
			Username: "bob",
			Email:    "bob@example.com",
			Password: "Str0ng$ecret",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(8), user.ID)
	})

	t.Run("requires admin in the active site", func(t *testing.T) {
		redisClient := testRedis(t)
		userRepo := new(mockUserRepo)
		membershipRepo := new(mockMembershipRepo)
		svc, _ := newAuthService(userRepo, membershipRepo, redisClient)

		membershipRepo.On("Find", ctx, int64(7), int64(3)).
			Return(&model.Membership{UserID: 7, SiteID: 3, Role: model.RoleUser}, nil)

		_, err := svc.CreateUser(ctx, sc, CreateUserInput{
			Username: "bob",
			Email:    "bob@example.com",
			Password: "Str0ng$ecret",
		})
		assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.GetCode(err))
		userRepo.AssertNotCalled(t, "Create", ctx, mock.Anything)
	})

	t.Run("collects all validation errors", func(t *testing.T) {
		redisClient := testRedis(t)
		membershipRepo := new(mockMembershipRepo)
		svc, _ := newAuthService(new(mockUserRepo), membershipRepo, redisClient)

		membershipRepo.On("Find", ctx, int64(7), int64(3)).Return(adminMembership(7, 3), nil)

		_, err := svc.CreateUser(ctx, sc, CreateUserInput{Email: "nope", Password: "weak"})
		require.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))

		names := fieldNames(err)
		assert.Contains(t, names, "username")
		assert.Contains(t, names, "email")
		assert.Contains(t, names, "password")
	})

	t.Run("rejects duplicate username", func(t *testing.T) {
		redisClient := testRedis(t)
		userRepo := new(mockUserRepo)
		membershipRepo := new(mockMembershipRepo)
		svc, _ := newAuthService(userRepo, membershipRepo, redisClient)

		membershipRepo.On("Find", ctx, int64(7), int64(3)).Return(adminMembership(7, 3), nil)
		userRepo.On("FindByUsername", ctx, "bob").Return(&model.User{ID: 8, Username: "bob"}, nil)

		_, err := svc.CreateUser(ctx, sc, CreateUserInput{
			Username: "bob",
			Email:    "bob@example.com",
			Password: "Str0ng$ecret",
		})
		assert.Equal(t, apperrors.ErrCodeConflict, apperrors.GetCode(err))
	})
}
