package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zeitwerk/timeclock/internal/config"
	"github.com/zeitwerk/timeclock/internal/domain/audit"
	"github.com/zeitwerk/timeclock/internal/domain/timeentry"
	"github.com/zeitwerk/timeclock/internal/domain/user"
	"github.com/zeitwerk/timeclock/internal/http/middlewares"
	"github.com/zeitwerk/timeclock/internal/security"
)

const (
	adminEntryLimit = 100
	adminAuditLimit = 80
)

type UserAdminStore interface {
	List(ctx context.Context) ([]user.User, error)
	Create(ctx context.Context, req user.CreateRequest, actorID string) (user.User, error)
	ToggleActive(ctx context.Context, targetID, actorID string) (user.User, error)
}

type EntriesOverview interface {
	ListRecent(ctx context.Context, limit int) ([]timeentry.Entry, error)
}

type AuditViewer interface {
	ListRecent(ctx context.Context, limit int) ([]audit.Row, error)
}

type AdminHandler struct {
	users   UserAdminStore
	entries EntriesOverview
	audits  AuditViewer
}

func NewAdminHandler(users UserAdminStore, entries EntriesOverview, audits AuditViewer) *AdminHandler {
	return &AdminHandler{
		users:   users,
		entries: entries,
		audits:  audits,
	}
}

func (h *AdminHandler) Overview(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	users, err := h.users.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not load admin overview")
		return
	}

	entries, err := h.entries.ListRecent(cctx, adminEntryLimit)

	if err != nil {
		RespondInternal(ctx, "Could not load admin overview")
		return
	}

	logs, err := h.audits.ListRecent(cctx, adminAuditLimit)

	if err != nil {
		RespondInternal(ctx, "Could not load admin overview")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"users":   users,
		"entries": entries,
		"logs":    logs,
		"flash":   middlewares.TakeFlash(ctx),
	})
}

type createUserForm struct {
	Name           string `form:"name" binding:"required"`
	Email          string `form:"email" binding:"required,email"`
	Role           string `form:"role" binding:"required,oneof=employee admin"`
	EmploymentType string `form:"employment_type"`
	Password       string `form:"password"`
}

func (h *AdminHandler) CreateUser(ctx *gin.Context) {
	actor, _ := middlewares.CurrentUser(ctx)

	var form createUserForm

	if !BindForm(ctx, &form, "/admin") {
		return
	}

	password := form.Password
	generated := false

	if password == "" {
		var err error
		password, err = security.GenerateInitialPassword()

		if err != nil {
			RespondInternal(ctx, "Could not create user")
			return
		}
		generated = true
	}

	hash, err := security.HashPassword(password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	created, err := h.users.Create(cctx, user.CreateRequest{
		Name:           form.Name,
		Email:          form.Email,
		Role:           form.Role,
		EmploymentType: form.EmploymentType,
		PasswordHash:   hash,
	}, actor.ID)

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RedirectWithFlash(ctx, http.StatusSeeOther, middlewares.FlashError, "Email already exists.", "/admin")
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	// A generated password is only ever visible in this one flash.
	message := fmt.Sprintf("User %s created.", created.Email)

	if generated {
		message = fmt.Sprintf("User created. Initial password for %s: %s", created.Email, password)
	}

	RedirectWithFlash(ctx, http.StatusSeeOther, middlewares.FlashSuccess, message, "/admin")
}

func (h *AdminHandler) ToggleUser(ctx *gin.Context) {
	actor, _ := middlewares.CurrentUser(ctx)
	targetID := ctx.Param("id")

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	toggled, err := h.users.ToggleActive(cctx, targetID, actor.ID)

	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RedirectWithFlash(ctx, http.StatusFound, middlewares.FlashError, "User not found.", "/admin")
		case errors.Is(err, user.ErrSelfDisable):
			RedirectWithFlash(ctx, http.StatusFound, middlewares.FlashError, "You cannot deactivate your own account.", "/admin")
		default:
			RespondInternal(ctx, "Could not update user")
		}
		return
	}

	state := "deactivated"
	if toggled.Active {
		state = "activated"
	}

	RedirectWithFlash(ctx, http.StatusFound, middlewares.FlashSuccess, fmt.Sprintf("User %s %s.", toggled.Email, state), "/admin")
}
