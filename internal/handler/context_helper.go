package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/edsonosf/gdp/internal/middleware"
	"github.com/edsonosf/gdp/internal/models"
	appErrors "github.com/edsonosf/gdp/pkg/errors"
	"github.com/edsonosf/gdp/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.CurrentUser(c)
}

// bindJSON decodes the body into dest, writing a 400 on failure.
func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message))
		return false
	}
	return true
}

// pageParams reads page/limit, leaving clamping to models.ClampPage.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	return page, size
}
