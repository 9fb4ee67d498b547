package middlewares

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zeitwerk/timeclock/internal/auth"
	"github.com/zeitwerk/timeclock/internal/config"
	"github.com/zeitwerk/timeclock/internal/domain/user"
)

const SessionCookieName = "tc_session"

const ctxUserKey = "session.user"

// Keep these interfaces small so tests can fake them easily.
type SessionVerifier interface {
	VerifySession(token string) (*auth.Claims, error)
}

type UserLoader interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type SessionMiddleware struct {
	sessions SessionVerifier
	users    UserLoader
	secure   bool
}

func NewSessionMiddleware(sessions SessionVerifier, users UserLoader, secure bool) *SessionMiddleware {
	return &SessionMiddleware{
		sessions: sessions,
		users:    users,
		secure:   secure,
	}
}

// RequireUser gates a route on a live session. The user row is re-loaded on
// every request so deactivation and role changes take effect immediately.
// requiredRole may be empty for routes any signed-in user can reach.
func (m *SessionMiddleware) RequireUser(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := m.resolve(c)

		if !ok {
			c.Redirect(http.StatusFound, "/login/employee")
			c.Abort()
			return
		}

		if requiredRole != "" && u.Role != requiredRole {
			SetFlash(c, FlashError, "No permission for that page.")
			c.Redirect(http.StatusFound, LandingPath(u.Role))
			c.Abort()
			return
		}

		SetCurrentUser(c, u)
		c.Next()
	}
}

func (m *SessionMiddleware) resolve(c *gin.Context) (user.User, bool) {
	raw, err := c.Cookie(SessionCookieName)

	if err != nil || raw == "" {
		return user.User{}, false
	}

	claims, err := m.sessions.VerifySession(raw)

	if err != nil {
		return user.User{}, false
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := m.users.GetByID(cctx, claims.UserID)

	if err != nil || !u.Active {
		return user.User{}, false
	}

	return u, true
}

// OptionalUser resolves the session without gating; used by /logout which
// must work for everyone.
func (m *SessionMiddleware) OptionalUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if u, ok := m.resolve(c); ok {
			SetCurrentUser(c, u)
		}
		c.Next()
	}
}

// SetCurrentUser stashes the resolved account on the request context.
// Exported so handler tests can inject an authenticated user without a
// real session.
func SetCurrentUser(c *gin.Context, u user.User) {
	c.Set(ctxUserKey, u)
}

func CurrentUser(c *gin.Context) (user.User, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return user.User{}, false
	}
	u, ok := v.(user.User)
	return u, ok
}

// LandingPath is where a signed-in user of the given role belongs.
func LandingPath(role string) string {
	if role == user.RoleAdmin {
		return "/admin"
	}
	return "/dashboard"
}

// SetSessionCookie installs the signed session token: http-only, SameSite
// Lax, secure in production deployments.
func (m *SessionMiddleware) SetSessionCookie(c *gin.Context, token string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		SessionCookieName,
		token,
		int(ttl.Seconds()),
		"/",
		"",
		m.secure,
		true, // HttpOnly.
	)
}

func (m *SessionMiddleware) ClearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		SessionCookieName,
		"",
		-1,
		"/",
		"",
		m.secure,
		true,
	)
}
