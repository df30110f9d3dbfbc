package handler

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edsonosf/gdp/internal/models"
	"github.com/edsonosf/gdp/pkg/response"
)

type systemService interface {
	Ping(ctx context.Context) (time.Time, error)
	Backup(ctx context.Context) (*models.BackupDocument, error)
	CreateSnapshot(ctx context.Context) (*models.BackupSnapshot, error)
	OpenSnapshot(token string) (*os.File, string, error)
	Restore(ctx context.Context, doc *models.BackupDocument) (models.BackupCounts, error)
	Reset(ctx context.Context, req models.ResetRequest) error
	Status(ctx context.Context) *models.SystemStatus
}

// SystemHandler exposes backup, restore, reset and health endpoints.
type SystemHandler struct {
	service systemService
	now     func() time.Time
}

// NewSystemHandler constructs a SystemHandler.
func NewSystemHandler(svc systemService) *SystemHandler {
	return &SystemHandler{service: svc, now: time.Now}
}

// DBTest godoc
// @Summary Database connectivity probe
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} response.ErrorBody
// @Router /db-test [get]
func (h *SystemHandler) DBTest(c *gin.Context) {
	now, err := h.service.Ping(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": now})
}

// Backup godoc
// @Summary Download a full backup
// @Description The body can be posted back to /restore-db unchanged
// @Tags System
// @Produce json
// @Success 200 {object} models.BackupDocument
// @Security BearerAuth
// @Router /backup [get]
func (h *SystemHandler) Backup(c *gin.Context) {
	doc, err := h.service.Backup(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Header("Content-Disposition", "attachment; filename=\"backup-"+h.now().Format("20060102-150405")+".json\"")
	c.JSON(http.StatusOK, doc)
}

// CreateSnapshot godoc
// @Summary Store a backup on the server
// @Description Returns a signed, expiring download URL
// @Tags System
// @Produce json
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /backups [post]
func (h *SystemHandler) CreateSnapshot(c *gin.Context) {
	snapshot, err := h.service.CreateSnapshot(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, snapshot)
}

// DownloadSnapshot godoc
// @Summary Download a stored backup
// @Tags System
// @Produce json
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /backups/download/{token} [get]
func (h *SystemHandler) DownloadSnapshot(c *gin.Context) {
	file, name, err := h.service.OpenSnapshot(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), "application/json", file, map[string]string{
		"Content-Disposition": "attachment; filename=\"" + name + "\"",
	})
}

// Restore godoc
// @Summary Restore a backup
// @Description Replaces every record except the bootstrap administrator in one transaction
// @Tags System
// @Accept json
// @Produce json
// @Param payload body models.BackupDocument true "Backup"
// @Success 200 {object} response.Envelope
// @Failure 500 {object} response.ErrorBody
// @Security BearerAuth
// @Router /restore-db [post]
func (h *SystemHandler) Restore(c *gin.Context) {
	var doc models.BackupDocument
	if !bindJSON(c, &doc, "invalid backup document") {
		return
	}
	counts, err := h.service.Restore(c.Request.Context(), &doc)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "restored", "counts": counts}, nil)
}

// Reset godoc
// @Summary Reset the database
// @Description Requires the password of an active administrator
// @Tags System
// @Accept json
// @Produce json
// @Param payload body models.ResetRequest true "Administrator credentials"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.ErrorBody
// @Security BearerAuth
// @Router /reset-db [post]
func (h *SystemHandler) Reset(c *gin.Context) {
	var req models.ResetRequest
	if !bindJSON(c, &req, "invalid reset payload") {
		return
	}
	if err := h.service.Reset(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "reset"}, nil)
}

// Status godoc
// @Summary System status
// @Tags System
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /system/status [get]
func (h *SystemHandler) Status(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Status(c.Request.Context()), nil)
}
