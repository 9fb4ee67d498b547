package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zeitwerk/timeclock/internal/config"
	"github.com/zeitwerk/timeclock/internal/domain/timeentry"
	"github.com/zeitwerk/timeclock/internal/http/middlewares"
)

const dashboardEntryLimit = 50

type EntriesStore interface {
	Open(ctx context.Context, userID string) (timeentry.Entry, error)
	ListRecentForUser(ctx context.Context, userID string, limit int) ([]timeentry.Entry, error)
	Start(ctx context.Context, userID string, now time.Time) (timeentry.Entry, error)
	Stop(ctx context.Context, userID string, now time.Time) (timeentry.Entry, error)
	CreateManual(ctx context.Context, userID, entryType string, start, end time.Time) (timeentry.Entry, error)
}

type TimeEntriesHandler struct {
	entries EntriesStore
	clock   func() time.Time
}

// NewTimeEntriesHandler wires the employee-facing time tracking routes.
// clock may be nil; tests inject one to simulate elapsed shifts.
func NewTimeEntriesHandler(entries EntriesStore, clock func() time.Time) *TimeEntriesHandler {
	if clock == nil {
		clock = time.Now
	}

	return &TimeEntriesHandler{
		entries: entries,
		clock:   clock,
	}
}

func (h *TimeEntriesHandler) Dashboard(ctx *gin.Context) {
	u, _ := middlewares.CurrentUser(ctx)

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	entries, err := h.entries.ListRecentForUser(cctx, u.ID, dashboardEntryLimit)

	if err != nil {
		RespondInternal(ctx, "Could not load dashboard")
		return
	}

	var active *timeentry.Entry

	open, err := h.entries.Open(cctx, u.ID)

	if err == nil {
		active = &open
	} else if !errors.Is(err, timeentry.ErrNoOpenEntry) {
		RespondInternal(ctx, "Could not load dashboard")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":    u.ID,
			"name":  u.Name,
			"email": u.Email,
			"role":  u.Role,
		},
		"entries":     entries,
		"activeEntry": active,
		"flash":       middlewares.TakeFlash(ctx),
	})
}

func (h *TimeEntriesHandler) Start(ctx *gin.Context) {
	u, _ := middlewares.CurrentUser(ctx)

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	_, err := h.entries.Start(cctx, u.ID, h.clock())

	if err != nil {
		if errors.Is(err, timeentry.ErrAlreadyRunning) {
			RedirectWithFlash(ctx, http.StatusFound, middlewares.FlashError, "A time entry is already running.", "/dashboard")
			return
		}

		RespondInternal(ctx, "Could not start time entry")
		return
	}

	RedirectWithFlash(ctx, http.StatusFound, middlewares.FlashSuccess, "Work started.", "/dashboard")
}

func (h *TimeEntriesHandler) Stop(ctx *gin.Context) {
	u, _ := middlewares.CurrentUser(ctx)

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	_, err := h.entries.Stop(cctx, u.ID, h.clock())

	if err != nil {
		if errors.Is(err, timeentry.ErrNoOpenEntry) {
			RedirectWithFlash(ctx, http.StatusFound, middlewares.FlashError, "No running time entry found.", "/dashboard")
			return
		}

		RespondInternal(ctx, "Could not stop time entry")
		return
	}

	RedirectWithFlash(ctx, http.StatusFound, middlewares.FlashSuccess, "Work stopped.", "/dashboard")
}

type manualEntryForm struct {
	EntryType string `form:"entry_type" binding:"omitempty,oneof=work vacation sick"`
	StartTime string `form:"start_time" binding:"required"`
	EndTime   string `form:"end_time" binding:"required"`
}

func (h *TimeEntriesHandler) ManualEntry(ctx *gin.Context) {
	u, _ := middlewares.CurrentUser(ctx)

	var form manualEntryForm

	if !BindForm(ctx, &form, "/dashboard") {
		return
	}

	entryType := form.EntryType

	if entryType == "" {
		entryType = timeentry.TypeWork
	}

	start, err := time.ParseInLocation(timeentry.ManualTimeLayout, form.StartTime, time.Local)

	if err != nil {
		RedirectWithFlash(ctx, http.StatusSeeOther, middlewares.FlashError, "Date/time is invalid.", "/dashboard")
		return
	}

	end, err := time.ParseInLocation(timeentry.ManualTimeLayout, form.EndTime, time.Local)

	if err != nil {
		RedirectWithFlash(ctx, http.StatusSeeOther, middlewares.FlashError, "Date/time is invalid.", "/dashboard")
		return
	}

	if !end.After(start) {
		RedirectWithFlash(ctx, http.StatusSeeOther, middlewares.FlashError, "End must be after start.", "/dashboard")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	_, err = h.entries.CreateManual(cctx, u.ID, entryType, start, end)

	if err != nil {
		RespondInternal(ctx, "Could not save entry")
		return
	}

	RedirectWithFlash(ctx, http.StatusSeeOther, middlewares.FlashSuccess, "Entry saved.", "/dashboard")
}
