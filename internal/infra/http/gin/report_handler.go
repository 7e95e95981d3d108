package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"campusmarket/internal/app/commands"
	"campusmarket/internal/app/dto"
	reportapp "campusmarket/internal/app/handlers/reports"
)

type ReportHTTP interface {
	Submit(c *gin.Context)
}

type ReportHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

func (h ReportHandler) Submit(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		unavailable(c, "commands bus")
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	report, err := commands.Dispatch[reportapp.SubmitReportCommand, *dto.Report](c.Request.Context(), h.Commands, reportapp.SubmitReportCommand{
		ReporterID: string(principal.UserID),
		ListingID:  c.Param("id"),
		Reason:     req.Reason,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

var _ ReportHTTP = (*ReportHandler)(nil)
