package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edsonosf/gdp/internal/models"
	"github.com/edsonosf/gdp/internal/service"
	appErrors "github.com/edsonosf/gdp/pkg/errors"
	"github.com/edsonosf/gdp/pkg/response"
)

type userService interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.User, error)
	Admins(ctx context.Context) ([]models.AdminSummary, error)
	Register(ctx context.Context, req service.RegisterUserRequest) (*models.User, error)
	Update(ctx context.Context, actor *models.JWTClaims, id string, req service.UpdateUserRequest) (*models.User, error)
	SetStatus(ctx context.Context, id string, status *models.UserStatus) (*models.User, error)
	SetAdmin(ctx context.Context, id string, admin *bool) (*models.User, error)
	Delete(ctx context.Context, actor *models.JWTClaims, id string) error
}

type statusPayload struct {
	Status *models.UserStatus `json:"status"`
}

type adminPayload struct {
	IsSystemAdmin *bool `json:"isSystemAdmin"`
}

// UserHandler manages staff accounts.
type UserHandler struct {
	service userService
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(svc userService) *UserHandler {
	return &UserHandler{service: svc}
}

// Register godoc
// @Summary Self-registration
// @Description Creates an inactive account that an administrator must activate
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body service.RegisterUserRequest true "Account"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.ErrorBody
// @Failure 409 {object} response.ErrorBody
// @Router /users [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req service.RegisterUserRequest
	if !bindJSON(c, &req, "invalid user payload") {
		return
	}
	user, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// List godoc
// @Summary List users
// @Tags Users
// @Produce json
// @Param status query string false "Ativo or Inativo"
// @Param admin query bool false "Only administrators"
// @Param search query string false "Name or CPF"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	filter := models.UserFilter{
		Status: models.UserStatus(c.Query("status")),
		Search: strings.TrimSpace(c.Query("search")),
	}
	if raw := c.Query("admin"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			filter.Admins = &v
		}
	}
	filter.Page, filter.PageSize = pageParams(c)

	users, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, pagination)
}

// Get godoc
// @Summary Get user
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Admins godoc
// @Summary List active administrators
// @Description Id and name only, used by the reset confirmation dialog
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admins [get]
func (h *UserHandler) Admins(c *gin.Context) {
	admins, err := h.service.Admins(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, admins, nil)
}

// Update godoc
// @Summary Update user
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body service.UpdateUserRequest true "Account"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	var req service.UpdateUserRequest
	if !bindJSON(c, &req, "invalid user payload") {
		return
	}
	user, err := h.service.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// SetStatus godoc
// @Summary Activate or deactivate a user
// @Description Without a body the status is toggled
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /users/{id}/status [patch]
func (h *UserHandler) SetStatus(c *gin.Context) {
	var payload statusPayload
	if c.Request.ContentLength > 0 && !bindJSON(c, &payload, "invalid status payload") {
		return
	}
	user, err := h.service.SetStatus(c.Request.Context(), c.Param("id"), payload.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// SetAdmin godoc
// @Summary Grant or revoke administrator rights
// @Description Without a body the flag is toggled
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /users/{id}/admin [patch]
func (h *UserHandler) SetAdmin(c *gin.Context) {
	var payload adminPayload
	if c.Request.ContentLength > 0 && !bindJSON(c, &payload, "invalid admin payload") {
		return
	}
	user, err := h.service.SetAdmin(c.Request.Context(), c.Param("id"), payload.IsSystemAdmin)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Delete godoc
// @Summary Delete user
// @Tags Users
// @Param id path string true "User ID"
// @Success 204
// @Failure 403 {object} response.ErrorBody
// @Security BearerAuth
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Delete(c.Request.Context(), claims, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
