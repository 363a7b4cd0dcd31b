package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/interacthq/interaction-server-go/internal/audit"
	apperrors "github.com/interacthq/interaction-server-go/internal/errors"
	"github.com/interacthq/interaction-server-go/internal/model"
	redisclient "github.com/interacthq/interaction-server-go/internal/redis"
	"github.com/interacthq/interaction-server-go/internal/repository"
	"github.com/interacthq/interaction-server-go/internal/scope"
	"github.com/interacthq/interaction-server-go/internal/token"
	"github.com/interacthq/interaction-server-go/internal/util"
)

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token string           `json:"token"`
	User  *model.User      `json:"user"`
	Sites []model.UserSite `json:"sites"`
}

// CreateUserInput carries the plain-text registration fields; the
// password is hashed before it reaches the repository.
type CreateUserInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthService struct {
	userRepo       repository.UserRepository
	membershipRepo repository.MembershipRepository
	tokenService   *token.Service
	redisClient    *redisclient.Client
	tokenTTL       time.Duration
	maxAttempts    int
	lockoutTTL     time.Duration
	resetTokenTTL  time.Duration
}

func NewAuthService(
	userRepo repository.UserRepository,
	membershipRepo repository.MembershipRepository,
	tokenService *token.Service,
	redisClient *redisclient.Client,
	tokenTTL time.Duration,
	maxAttempts int,
	lockoutTTL time.Duration,
	resetTokenTTL time.Duration,
) *AuthService {
	return &AuthService{
		userRepo:       userRepo,
		membershipRepo: membershipRepo,
		tokenService:   tokenService,
		redisClient:    redisClient,
		tokenTTL:       tokenTTL,
		maxAttempts:    maxAttempts,
		lockoutTTL:     lockoutTTL,
		resetTokenTTL:  resetTokenTTL,
	}
}

// Login verifies credentials and issues a session token embedding the
// user's current site memberships. Invalid username and invalid
// password produce the same error so the two cannot be told apart.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	locked, err := s.isAccountLocked(ctx, username)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if locked {
		audit.Log(ctx, audit.Event{Type: audit.EventLoginFailure, Username: username,
			Details: map[string]interface{}{"reason": "account_locked"}})
		return nil, apperrors.AccountLocked()
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	if user == nil || !user.IsActive || !util.CheckPasswordHash(password, user.PasswordHash) {
		s.recordFailedLogin(ctx, username)
		audit.Log(ctx, audit.Event{Type: audit.EventLoginFailure, Username: username,
			Details: map[string]interface{}{"reason": "invalid_credentials"}})
		return nil, apperrors.Unauthorized("Invalid username or password")
	}

	s.clearFailedLogins(ctx, username)

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		return nil, apperrors.Database(err)
	}

	siteIDs, err := s.membershipRepo.SiteIDsForUser(ctx, user.ID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if len(siteIDs) == 0 {
		audit.Log(ctx, audit.Event{Type: audit.EventLoginFailure, UserID: user.ID, Username: username,
			Details: map[string]interface{}{"reason": "no_site_access"}})
		return nil, apperrors.Forbidden("User has no site access")
	}

	sites, err := s.membershipRepo.UserSites(ctx, user.ID, true)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	tokenString, err := s.tokenService.Issue(user.ID, siteIDs, s.tokenTTL)
	if err != nil {
		log.Error().Err(err).Msg("token signing failed")
		return nil, apperrors.Internal("")
	}

	audit.Log(ctx, audit.Event{Type: audit.EventLoginSuccess, UserID: user.ID, Username: username,
		Details: map[string]interface{}{"site_count": len(siteIDs)}})

	return &LoginResult{Token: tokenString, User: user, Sites: sites}, nil
}

// Logout revokes the token's jti for the remainder of its lifetime.
// A subsequent request carrying the same token is unauthenticated.
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	claims := s.tokenService.Validate(tokenString)
	if claims == nil {
		return apperrors.Unauthorized("")
	}

	if err := s.tokenService.Revoke(ctx, claims.ID, claims.RemainingTTL()); err != nil {
		return apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{Type: audit.EventLogout, UserID: claims.UserID(),
		Details: map[string]interface{}{"jti": claims.ID}})
	return nil
}

// UserSites lists the active sites the user currently belongs to.
func (s *AuthService) UserSites(ctx context.Context, userID int64) ([]model.UserSite, error) {
	sites, err := s.membershipRepo.UserSites(ctx, userID, true)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return sites, nil
}

// CreateUser registers a new account. Only an admin of the caller's
// active site may create users; the new user has no site access until
// an admin adds a membership.
func (s *AuthService) CreateUser(ctx context.Context, sc *scope.Context, input CreateUserInput) (*model.User, error) {
	membership, err := s.membershipRepo.Find(ctx, sc.User.ID, sc.SiteID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if membership == nil || membership.Role != model.RoleAdmin {
		return nil, apperrors.Forbidden("Admin role required for this operation")
	}

	fields := []apperrors.FieldError{}
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)

	if input.Username == "" {
		fields = append(fields, apperrors.FieldError{Field: "username", Message: "Username is required"})
	}
	if !util.IsValidEmail(input.Email) {
		fields = append(fields, apperrors.FieldError{Field: "email", Message: "A valid email is required"})
	}
	if msg := util.ValidatePasswordStrength(input.Password); msg != "" {
		fields = append(fields, apperrors.FieldError{Field: "password", Message: msg})
	}
	if len(fields) > 0 {
		return nil, apperrors.Validation("The request contains invalid data", fields)
	}

	if existing, err := s.userRepo.FindByUsername(ctx, input.Username); err != nil {
		return nil, apperrors.Database(err)
	} else if existing != nil {
		return nil, apperrors.Conflict("Username already exists")
	}
	if existing, err := s.userRepo.FindByEmail(ctx, input.Email); err != nil {
		return nil, apperrors.Database(err)
	} else if existing != nil {
		return nil, apperrors.Conflict("Email already exists")
	}

	hash, err := util.HashPassword(input.Password)
	if err != nil {
		return nil, apperrors.Internal("")
	}

	user, err := s.userRepo.Create(ctx, model.CreateUserParams{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("Username or email already exists")
		}
		return nil, apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{Type: audit.EventUserCreate, UserID: user.ID, Username: user.Username,
		Details: map[string]interface{}{"created_by": sc.User.ID}})
	return user, nil
}

// ChangePassword verifies the current password before setting a new one.
func (s *AuthService) ChangePassword(ctx context.Context, user *model.User, currentPassword, newPassword string) error {
	if !util.CheckPasswordHash(currentPassword, user.PasswordHash) {
		audit.Log(ctx, audit.Event{Type: audit.EventPasswordChange, UserID: user.ID,
			Details: map[string]interface{}{"success": false, "reason": "invalid_current_password"}})
		return apperrors.Unauthorized("Current password is incorrect")
	}

	if msg := util.ValidatePasswordStrength(newPassword); msg != "" {
		return apperrors.InvalidField("newPassword", msg)
	}

	hash, err := util.HashPassword(newPassword)
	if err != nil {
		return apperrors.Internal("")
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{Type: audit.EventPasswordChange, UserID: user.ID,
		Details: map[string]interface{}{"success": true}})
	return nil
}

// RequestPasswordReset stores a short-lived reset token. It returns an
// empty token for unknown emails rather than an error, so the endpoint
// cannot be used to enumerate accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", apperrors.Database(err)
	}
	if user == nil {
		return "", nil
	}

	resetToken := uuid.NewString()
	err = s.redisClient.Set(ctx, redisclient.ResetTokenKey(resetToken), user.ID, s.resetTokenTTL).Err()
	if err != nil {
		return "", apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{Type: audit.EventPasswordReset, UserID: user.ID,
		Details: map[string]interface{}{"stage": "requested"}})
	return resetToken, nil
}

// ResetPassword consumes a reset token and sets the new password.
func (s *AuthService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	key := redisclient.ResetTokenKey(resetToken)
	userID, err := s.redisClient.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return apperrors.Unauthorized("Invalid or expired reset token")
	}
	if err != nil {
		return apperrors.Database(err)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return apperrors.Database(err)
	}
	if user == nil {
		return apperrors.Unauthorized("Invalid or expired reset token")
	}

	if msg := util.ValidatePasswordStrength(newPassword); msg != "" {
		return apperrors.InvalidField("newPassword", msg)
	}

	hash, err := util.HashPassword(newPassword)
	if err != nil {
		return apperrors.Internal("")
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return apperrors.Database(err)
	}

	s.redisClient.Del(ctx, key)
	s.clearFailedLogins(ctx, user.Username)

	audit.Log(ctx, audit.Event{Type: audit.EventPasswordReset, UserID: user.ID,
		Details: map[string]interface{}{"stage": "completed"}})
	return nil
}

func (s *AuthService) isAccountLocked(ctx context.Context, username string) (bool, error) {
	err := s.redisClient.Get(ctx, redisclient.AccountLockKey(username)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// recordFailedLogin bumps the per-username failure counter and sets the
// lock flag once the threshold is reached. Counter and flag share the
// lockout TTL, so the lock clears itself.
func (s *AuthService) recordFailedLogin(ctx context.Context, username string) {
	key := redisclient.LoginAttemptsKey(username)
	attempts, err := s.redisClient.Incr(ctx, key).Result()
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("failed to record login attempt")
		return
	}
	s.redisClient.Expire(ctx, key, s.lockoutTTL)

	if attempts >= int64(s.maxAttempts) {
		if err := s.redisClient.Set(ctx, redisclient.AccountLockKey(username), "1", s.lockoutTTL).Err(); err != nil {
			log.Error().Err(err).Str("username", username).Msg("failed to set account lock")
			return
		}
		audit.Log(ctx, audit.Event{Type: audit.EventAccountLocked, Username: username,
			Details: map[string]interface{}{"attempts": attempts}})
	}
}

func (s *AuthService) clearFailedLogins(ctx context.Context, username string) {
	s.redisClient.Del(ctx, redisclient.LoginAttemptsKey(username), redisclient.AccountLockKey(username))
}
