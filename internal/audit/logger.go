package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventLoginSuccess       EventType = "login_success"
	EventLoginFailure       EventType = "login_failure"
	EventAccountLocked      EventType = "account_locked"
	EventLogout             EventType = "logout"
	EventAuthFailure        EventType = "auth_failure"
	EventRevokedTokenUse    EventType = "revoked_token_use"
	EventSiteAccessDenied   EventType = "site_access_denied"
	EventRateLimitExceed    EventType = "rate_limit_exceeded"
	EventPasswordChange     EventType = "password_change"
	EventPasswordReset      EventType = "password_reset"
	EventUserCreate         EventType = "user_create"
	EventSiteCreate         EventType = "site_create"
	EventSiteDelete         EventType = "site_delete"
	EventMemberAdd          EventType = "member_add"
	EventMemberRemove       EventType = "member_remove"
	EventMemberRoleChange   EventType = "member_role_change"
	EventLastAdminViolation EventType = "last_admin_violation"
)

type Event struct {
	Type      EventType
	UserID    int64
	SiteID    int64
	Username  string
	IP        string
	UserAgent string
	Details   map[string]interface{}
}

// Log writes a security event to the audit channel. Audit entries are
// distinguished from application logs by the audit=security field so
// they can be routed separately.
func Log(ctx context.Context, event Event) {
	logger := log.With().
		Str("audit", "security").
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.UserID != 0 {
		logger = logger.With().Int64("user_id", event.UserID).Logger()
	}
	if event.SiteID != 0 {
		logger = logger.With().Int64("site_id", event.SiteID).Logger()
	}
	if event.Username != "" {
		logger = logger.With().Str("username", event.Username).Logger()
	}
	if event.IP != "" {
		logger = logger.With().Str("ip", event.IP).Logger()
	}
	if event.UserAgent != "" {
		logger = logger.With().Str("user_agent", event.UserAgent).Logger()
	}

	logEvent := logger.Info()
	for k, v := range event.Details {
		logEvent = addField(logEvent, k, v)
	}
	logEvent.Msg("security audit event")
}

func addField(e *zerolog.Event, key string, value interface{}) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case bool:
		return e.Bool(key, v)
	default:
		return e.Interface(key, v)
	}
}

func LogFromRequest(r *http.Request, event Event) {
	event.IP = getClientIP(r)
	event.UserAgent = r.UserAgent()
	Log(r.Context(), event)
}

func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
