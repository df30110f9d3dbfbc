package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/edsonosf/gdp/internal/models"
	"github.com/edsonosf/gdp/internal/service"
	"github.com/edsonosf/gdp/pkg/response"
)

const defaultLogLimit = 100

type accessLogService interface {
	Create(ctx context.Context, req service.CreateAccessLogRequest) (*models.AccessLog, error)
	List(ctx context.Context, filter models.AccessLogFilter) ([]models.AccessLog, error)
	Clear(ctx context.Context) (int64, error)
}

// AccessLogHandler exposes the access trail.
type AccessLogHandler struct {
	service accessLogService
}

// NewAccessLogHandler constructs an AccessLogHandler.
func NewAccessLogHandler(svc accessLogService) *AccessLogHandler {
	return &AccessLogHandler{service: svc}
}

// List godoc
// @Summary List access logs
// @Tags Logs
// @Produce json
// @Param userId query string false "User"
// @Param event query string false "user.login, user.logout or critical.action"
// @Param status query string false "success or failure"
// @Param limit query int false "Maximum entries (100)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /logs [get]
func (h *AccessLogHandler) List(c *gin.Context) {
	filter := models.AccessLogFilter{
		UserID: c.Query("userId"),
		Event:  models.AccessEvent(c.Query("event")),
		Status: models.AccessStatus(c.Query("status")),
		Limit:  defaultLogLimit,
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 && limit < defaultLogLimit {
		filter.Limit = limit
	}
	logs, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}

// Create godoc
// @Summary Record a client event
// @Tags Logs
// @Accept json
// @Produce json
// @Param payload body service.CreateAccessLogRequest true "Entry"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /logs [post]
func (h *AccessLogHandler) Create(c *gin.Context) {
	var req service.CreateAccessLogRequest
	if !bindJSON(c, &req, "invalid access log payload") {
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.UserID = claims.UserID
	}
	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	entry, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Clear godoc
// @Summary Clear access logs
// @Tags Logs
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /logs [delete]
func (h *AccessLogHandler) Clear(c *gin.Context) {
	deleted, err := h.service.Clear(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"deleted": deleted}, nil)
}
