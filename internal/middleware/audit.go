package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edsonosf/gdp/internal/models"
)

// AccessRecorder stores access-log entries off the request path.
type AccessRecorder interface {
	Record(ctx context.Context, entry models.AccessLog)
}

// Audit records a critical.action entry after every successful mutating request made by an
// authenticated user. Routes listed in skip as "METHOD /full/path" log their own events.
func Audit(recorder AccessRecorder, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, path := range skip {
		skipped[path] = struct{}{}
	}

	return func(c *gin.Context) {
		c.Next()

		if recorder == nil || !mutating(c.Request.Method) || c.Writer.Status() >= http.StatusBadRequest {
			return
		}
		if _, ok := skipped[c.Request.Method+" "+c.FullPath()]; ok {
			return
		}
		claims := CurrentUser(c)
		if claims == nil {
			return
		}

		recorder.Record(context.WithoutCancel(c.Request.Context()), models.AccessLog{
			UserID:      claims.UserID,
			Event:       models.EventCriticalAction,
			Status:      models.AccessSuccess,
			Description: describe(c),
			IPAddress:   c.ClientIP(),
			UserAgent:   c.GetHeader("User-Agent"),
		})
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func describe(c *gin.Context) string {
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	description := fmt.Sprintf("%s %s", c.Request.Method, path)
	if id := c.Param("id"); id != "" {
		description += " (" + id + ")"
	}
	return description
}
