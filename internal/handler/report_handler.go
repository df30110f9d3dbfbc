package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edsonosf/gdp/internal/middleware"
	"github.com/edsonosf/gdp/internal/models"
	appErrors "github.com/edsonosf/gdp/pkg/errors"
	"github.com/edsonosf/gdp/pkg/response"
)

type reportService interface {
	Summary(ctx context.Context, period models.ReportPeriod) (*models.ReportSummary, error)
	Export(ctx context.Context, format models.ExportFormat, period models.ReportPeriod) (*models.ExportFile, error)
	StudentReport(ctx context.Context, studentID string, format models.ExportFormat) (*models.ExportFile, error)
}

// ReportHandler serves the dashboard summary and file exports.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs a ReportHandler.
func NewReportHandler(svc reportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// Summary godoc
// @Summary Occurrence summary
// @Tags Reports
// @Produce json
// @Param period query string false "today, week, month, year or all"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/summary [get]
func (h *ReportHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context(), models.ReportPeriod(c.Query("period")))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, summary.Cached)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export occurrences
// @Tags Reports
// @Produce octet-stream
// @Param format query string true "csv, pdf or xlsx"
// @Param period query string false "today, week, month, year or all"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /reports/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	format := models.ExportFormat(c.DefaultQuery("format", string(models.FormatCSV)))
	if !format.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv, pdf or xlsx"))
		return
	}
	file, err := h.service.Export(c.Request.Context(), format, models.ReportPeriod(c.Query("period")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// StudentReport godoc
// @Summary Individual student report
// @Tags Reports
// @Produce octet-stream
// @Param id path string true "Student ID"
// @Param format query string false "pdf (default), csv or xlsx"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /reports/students/{id} [get]
func (h *ReportHandler) StudentReport(c *gin.Context) {
	format := models.ExportFormat(c.Query("format"))
	if format != "" && !format.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv, pdf or xlsx"))
		return
	}
	file, err := h.service.StudentReport(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
