package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/interacthq/interaction-server-go/internal/audit"
	apperrors "github.com/interacthq/interaction-server-go/internal/errors"
	"github.com/interacthq/interaction-server-go/internal/repository"
	"github.com/interacthq/interaction-server-go/internal/scope"
	"github.com/interacthq/interaction-server-go/internal/token"
)

const (
	siteHeader     = "X-Site-ID"
	siteQueryParam = "site_id"
)

var tokenCookies = []string{"access_token", "auth_token"}

// AuthMiddleware is the gate in front of every protected route. It
// validates the token, rejects revoked sessions, loads the user and
// resolves the active site before any handler runs. Requests that pass
// carry a scope.Context; requests that fail never reach a handler.
type AuthMiddleware struct {
	tokenService *token.Service
	userRepo     repository.UserRepository
}

func NewAuthMiddleware(tokenService *token.Service, userRepo repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{tokenService: tokenService, userRepo: userRepo}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := ExtractToken(r)
		if tokenString == "" {
			writeError(w, r, apperrors.Unauthorized("Missing authentication token"))
			return
		}

		claims := m.tokenService.Validate(tokenString)
		if claims == nil {
			audit.LogFromRequest(r, audit.Event{Type: audit.EventAuthFailure,
				Details: map[string]interface{}{"reason": "invalid_token"}})
			writeError(w, r, apperrors.Unauthorized("Invalid or expired token"))
			return
		}

		revoked, err := m.tokenService.IsRevoked(r.Context(), claims.ID)
		if err != nil {
			log.Error().Err(err).Msg("auth middleware: revocation check failed")
			writeError(w, r, apperrors.Internal(""))
			return
		}
		if revoked {
			audit.LogFromRequest(r, audit.Event{Type: audit.EventRevokedTokenUse, UserID: claims.UserID(),
				Details: map[string]interface{}{"jti": claims.ID}})
			writeError(w, r, apperrors.Unauthorized("Invalid or expired token"))
			return
		}

		user, err := m.userRepo.FindByID(r.Context(), claims.UserID())
		if err != nil {
			log.Error().Err(err).Msg("auth middleware: user lookup failed")
			writeError(w, r, apperrors.Internal(""))
			return
		}
		if user == nil || !user.IsActive {
			audit.LogFromRequest(r, audit.Event{Type: audit.EventAuthFailure, UserID: claims.UserID(),
				Details: map[string]interface{}{"reason": "user_inactive"}})
			writeError(w, r, apperrors.Unauthorized("Invalid or expired token"))
			return
		}

		if len(claims.SiteIDs) == 0 {
			writeError(w, r, apperrors.Forbidden("User has no site access"))
			return
		}

		sc := &scope.Context{User: user, SiteIDs: claims.SiteIDs}

		requested, ok, err := requestedSite(r)
		if err != nil {
			writeError(w, r, apperrors.InvalidField(siteQueryParam, "Site id must be an integer"))
			return
		}
		if ok {
			if !sc.HasSite(requested) {
				audit.LogFromRequest(r, audit.Event{Type: audit.EventSiteAccessDenied,
					UserID: user.ID, SiteID: requested})
				writeError(w, r, apperrors.Forbidden("No access to the requested site"))
				return
			}
			sc.SiteID = requested
		} else {
			sc.SiteID = claims.SiteIDs[0]
		}

		next.ServeHTTP(w, r.WithContext(scope.With(r.Context(), sc)))
	})
}

// ExtractToken pulls the bearer token from the Authorization header,
// falling back to the access_token or auth_token cookie.
func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	for _, name := range tokenCookies {
		if cookie, err := r.Cookie(name); err == nil && cookie.Value != "" {
			return cookie.Value
		}
	}

	return ""
}

// requestedSite reads the explicit site selection from the X-Site-ID
// header or the site_id query parameter. The header wins when both are
// present.
func requestedSite(r *http.Request) (int64, bool, error) {
	raw := r.Header.Get(siteHeader)
	if raw == "" {
		raw = r.URL.Query().Get(siteQueryParam)
	}
	if raw == "" {
		return 0, false, nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false, strconv.ErrSyntax
	}
	return id, true, nil
}
