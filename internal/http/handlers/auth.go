package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zeitwerk/timeclock/internal/auth"
	"github.com/zeitwerk/timeclock/internal/config"
	"github.com/zeitwerk/timeclock/internal/domain/user"
	"github.com/zeitwerk/timeclock/internal/http/middlewares"
	"github.com/zeitwerk/timeclock/internal/observability"
	"github.com/zeitwerk/timeclock/internal/security"
)

type UserAuthenticator interface {
	GetActiveByEmail(ctx context.Context, email string) (user.User, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, userID *string, action string) error
}

type AuthHandler struct {
	users    UserAuthenticator
	audits   AuditRecorder
	sessions *auth.Manager
	cookies  *middlewares.SessionMiddleware
	prom     *observability.Prom
}

func NewAuthHandler(users UserAuthenticator, audits AuditRecorder, sessions *auth.Manager, cookies *middlewares.SessionMiddleware, prom *observability.Prom) *AuthHandler {
	return &AuthHandler{
		users:    users,
		audits:   audits,
		sessions: sessions,
		cookies:  cookies,
		prom:     prom,
	}
}

type loginForm struct {
	Email    string `form:"email" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// LoginView serves the login page payload for either entry point; the
// actual markup is the template layer's business.
func (h *AuthHandler) LoginView(loginType string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"loginType": loginType,
			"flash":     middlewares.TakeFlash(ctx),
		})
	}
}

func (h *AuthHandler) EmployeeLogin(ctx *gin.Context) {
	h.login(ctx, user.RoleEmployee, "/login/employee", "employee login", "Please use the admin login.")
}

func (h *AuthHandler) AdminLogin(ctx *gin.Context) {
	h.login(ctx, user.RoleAdmin, "/login/admin", "admin login", "Please use the employee login.")
}

// login is shared by both entry points: credentials are the same either
// way, but the authenticated account's role must match the entry point
// used.
func (h *AuthHandler) login(ctx *gin.Context, role, loginPath, auditAction, wrongEntryMsg string) {
	var form loginForm

	if !BindForm(ctx, &form, loginPath) {
		h.countLogin(role, "failed")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetActiveByEmail(cctx, form.Email)

	if err != nil {
		h.countLogin(role, "failed")
		RedirectWithFlash(ctx, http.StatusSeeOther, middlewares.FlashError, "Login failed.", loginPath)
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, form.Password)

	if err != nil {
		h.countLogin(role, "failed")
		RedirectWithFlash(ctx, http.StatusSeeOther, middlewares.FlashError, "Login failed.", loginPath)
		return
	}

	if foundUser.Role != role {
		h.countLogin(role, "failed")
		RedirectWithFlash(ctx, http.StatusSeeOther, middlewares.FlashError, wrongEntryMsg, loginPath)
		return
	}

	token, err := h.sessions.IssueSession(foundUser.ID, foundUser.Email, foundUser.Role)

	if err != nil {
		h.countLogin(role, "failed")
		RespondInternal(ctx, "Could not create session")
		return
	}

	err = h.audits.Record(cctx, &foundUser.ID, auditAction)

	if err != nil {
		h.countLogin(role, "failed")
		RespondInternal(ctx, "Could not create session")
		return
	}

	h.cookies.SetSessionCookie(ctx, token, h.sessions.TTL())
	h.countLogin(role, "ok")

	ctx.Redirect(http.StatusSeeOther, middlewares.LandingPath(foundUser.Role))
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	if u, ok := middlewares.CurrentUser(ctx); ok {
		cctx, cancel := config.WithTimeout(2 * time.Second)
		defer cancel()

		_ = h.audits.Record(cctx, &u.ID, "logout")
	}

	h.cookies.ClearSessionCookie(ctx)
	ctx.Redirect(http.StatusFound, "/login/employee")
}

func (h *AuthHandler) countLogin(entryPoint, result string) {
	if h.prom != nil {
		h.prom.LoginsTotal.WithLabelValues(entryPoint, result).Inc()
	}
}
