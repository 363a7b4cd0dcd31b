package handler

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/interacthq/interaction-server-go/internal/errors"
	"github.com/interacthq/interaction-server-go/internal/middleware"
	"github.com/interacthq/interaction-server-go/internal/service"
)

type AuthHandler struct {
	authService  *service.AuthService
	cookieMaxAge int
	isProduction bool
}

func NewAuthHandler(authService *service.AuthService, cookieMaxAge int, isProduction bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		cookieMaxAge: cookieMaxAge,
		isProduction: isProduction,
	}
}

// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperrors.Validation("Invalid request body", nil))
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, r, apperrors.Validation("Username and password are required", nil))
		return
	}

	result, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    result.Token,
		Path:     "/",
		MaxAge:   h.cookieMaxAge,
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteStrictMode,
	})

	writeJSON(w, http.StatusOK, result)
}

// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	tokenString := middleware.ExtractToken(r)
	if err := h.authService.Logout(r.Context(), tokenString); err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteStrictMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sc := requireScope(w, r)
	if sc == nil {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":         sc.User,
		"activeSiteId": sc.SiteID,
		"siteIds":      sc.SiteIDs,
	})
}

// GET /auth/sites
func (h *AuthHandler) Sites(w http.ResponseWriter, r *http.Request) {
	sc := requireScope(w, r)
	if sc == nil {
		return
	}

	sites, err := h.authService.UserSites(r.Context(), sc.User.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"sites": sites})
}

// POST /auth/password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	sc := requireScope(w, r)
	if sc == nil {
		return
	}

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperrors.Validation("Invalid request body", nil))
		return
	}

	if err := h.authService.ChangePassword(r.Context(), sc.User, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed"})
}

// POST /auth/password/reset-request
//
// Always answers 200: the response must not reveal whether the email
// belongs to an account.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, r, apperrors.Validation("Email is required", nil))
		return
	}

	resetToken, err := h.authService.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}

	body := map[string]string{
		"message": "If the email is registered, a reset token has been issued",
	}
	// Outside production the token is echoed so the flow is testable
	// without a mail channel.
	if !h.isProduction && resetToken != "" {
		body["resetToken"] = resetToken
	}
	writeJSON(w, http.StatusOK, body)
}

// POST /auth/password/reset
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeError(w, r, apperrors.Validation("Reset token is required", nil))
		return
	}

	if err := h.authService.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password has been reset"})
}

// POST /users
func (h *AuthHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	sc := requireScope(w, r)
	if sc == nil {
		return
	}

	var req service.CreateUserInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperrors.Validation("Invalid request body", nil))
		return
	}

	user, err := h.authService.CreateUser(r.Context(), sc, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}
