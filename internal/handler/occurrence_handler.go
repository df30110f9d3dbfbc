package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edsonosf/gdp/internal/models"
	"github.com/edsonosf/gdp/internal/service"
	appErrors "github.com/edsonosf/gdp/pkg/errors"
	"github.com/edsonosf/gdp/pkg/response"
)

type occurrenceService interface {
	Create(ctx context.Context, reporter *models.JWTClaims, req service.CreateOccurrenceRequest) (*models.Occurrence, error)
	List(ctx context.Context, filter models.OccurrenceFilter) ([]models.OccurrenceWithStudent, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.OccurrenceWithStudent, error)
	UpdateStatus(ctx context.Context, actor *models.JWTClaims, id string, req service.UpdateOccurrenceStatusRequest) (*models.OccurrenceWithStudent, error)
	Resolve(ctx context.Context, actor *models.JWTClaims, id string) (*models.OccurrenceWithStudent, error)
}

// OccurrenceHandler exposes occurrence reporting and the classification catalog.
type OccurrenceHandler struct {
	service occurrenceService
	now     func() time.Time
}

// NewOccurrenceHandler constructs an OccurrenceHandler.
func NewOccurrenceHandler(svc occurrenceService) *OccurrenceHandler {
	return &OccurrenceHandler{service: svc, now: time.Now}
}

// Create godoc
// @Summary Report an occurrence
// @Description Severity is derived from the selected catalog descriptions
// @Tags Occurrences
// @Accept json
// @Produce json
// @Param payload body service.CreateOccurrenceRequest true "Occurrence"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.ErrorBody
// @Security BearerAuth
// @Router /occurrences [post]
func (h *OccurrenceHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateOccurrenceRequest
	if !bindJSON(c, &req, "invalid occurrence payload") {
		return
	}
	occurrence, err := h.service.Create(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, occurrence)
}

// List godoc
// @Summary List occurrences
// @Tags Occurrences
// @Produce json
// @Param status query string false "Pendente or Resolvida"
// @Param type query string false "Pedagógica or Disciplinar"
// @Param studentId query string false "Student"
// @Param reporterId query string false "Reporter"
// @Param mine query bool false "Only the caller's reports"
// @Param period query string false "today, week, month, year or all"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /occurrences [get]
func (h *OccurrenceHandler) List(c *gin.Context) {
	filter := models.OccurrenceFilter{
		Status:     models.OccurrenceStatus(c.Query("status")),
		Type:       models.Category(c.Query("type")),
		StudentID:  c.Query("studentId"),
		ReporterID: c.Query("reporterId"),
	}
	if mine, _ := strconv.ParseBool(c.Query("mine")); mine {
		if claims := claimsFromContext(c); claims != nil {
			filter.ReporterID = claims.UserID
		}
	}
	if raw := c.Query("period"); raw != "" {
		period := models.ReportPeriod(raw)
		if !period.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "period must be one of today, week, month, year, all"))
			return
		}
		filter.From = period.Since(h.now())
	}
	filter.Page, filter.PageSize = pageParams(c)

	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get occurrence
// @Tags Occurrences
// @Produce json
// @Param id path string true "Occurrence ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /occurrences/{id} [get]
func (h *OccurrenceHandler) Get(c *gin.Context) {
	occurrence, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, occurrence, nil)
}

// UpdateStatus godoc
// @Summary Change occurrence status
// @Description Only Pendente to Resolvida exists; resolving twice is a no-op
// @Tags Occurrences
// @Accept json
// @Produce json
// @Param id path string true "Occurrence ID"
// @Param payload body service.UpdateOccurrenceStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.ErrorBody
// @Security BearerAuth
// @Router /occurrences/{id} [put]
func (h *OccurrenceHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateOccurrenceStatusRequest
	if !bindJSON(c, &req, "invalid status payload") {
		return
	}
	occurrence, err := h.service.UpdateStatus(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, occurrence, nil)
}

// Resolve godoc
// @Summary Resolve occurrence
// @Tags Occurrences
// @Produce json
// @Param id path string true "Occurrence ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /occurrences/{id}/resolve [patch]
func (h *OccurrenceHandler) Resolve(c *gin.Context) {
	occurrence, err := h.service.Resolve(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, occurrence, nil)
}

// Classifications godoc
// @Summary Classification catalog
// @Description Catalog groups by tier, lowest first
// @Tags Occurrences
// @Produce json
// @Param category query string false "Pedagógica or Disciplinar"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /classifications [get]
func (h *OccurrenceHandler) Classifications(c *gin.Context) {
	category := models.Category(c.Query("category"))
	if category != "" && !category.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "category must be Pedagógica or Disciplinar"))
		return
	}
	response.JSON(c, http.StatusOK, service.Catalog(category), nil)
}
