package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zeitwerk/timeclock/internal/config"
	"github.com/zeitwerk/timeclock/internal/domain/timeentry"
	"github.com/zeitwerk/timeclock/internal/export"
	"github.com/zeitwerk/timeclock/internal/http/middlewares"
	"github.com/zeitwerk/timeclock/internal/observability"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ExportLister interface {
	ListForExport(ctx context.Context) ([]timeentry.ExportRecord, error)
}

type ExportHandler struct {
	entries ExportLister
	audits  AuditRecorder
	prom    *observability.Prom
}

func NewExportHandler(entries ExportLister, audits AuditRecorder, prom *observability.Prom) *ExportHandler {
	return &ExportHandler{
		entries: entries,
		audits:  audits,
		prom:    prom,
	}
}

// Export serves the full entry history as an xlsx attachment. The whole
// result set is materialized; fine at this system's data volume.
func (h *ExportHandler) Export(ctx *gin.Context) {
	actor, _ := middlewares.CurrentUser(ctx)

	cctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	records, err := h.entries.ListForExport(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not export entries")
		return
	}

	workbook, err := export.BuildWorkbook(records)

	if err != nil {
		RespondInternal(ctx, "Could not export entries")
		return
	}

	err = h.audits.Record(cctx, &actor.ID, "excel export")

	if err != nil {
		RespondInternal(ctx, "Could not export entries")
		return
	}

	if h.prom != nil {
		h.prom.ExportsTotal.Inc()
	}

	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(time.Now())))
	ctx.Data(http.StatusOK, xlsxContentType, workbook)
}
