package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	appErrors "github.com/edsonosf/gdp/pkg/errors"
	"github.com/edsonosf/gdp/pkg/response"
)

type notificationHub interface {
	Serve(conn *websocket.Conn, userID string)
}

// buildUpgrader validates the Origin against the CORS list. An empty list permits all origins.
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := strings.TrimRight(r.Header.Get("Origin"), "/")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(strings.TrimRight(allowed, "/"), origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler upgrades administrator connections to the notification stream.
type WSHandler struct {
	hub      notificationHub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(hub notificationHub, allowedOrigins []string, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{hub: hub, upgrader: buildUpgrader(allowedOrigins), logger: logger}
}

// Notifications godoc
// @Summary Occurrence notifications
// @Description Websocket stream of occurrence.created and occurrence.resolved events for administrators
// @Tags Notifications
// @Param token query string true "Access token"
// @Success 101
// @Router /ws/notifications [get]
func (h *WSHandler) Notifications(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("user_id", claims.UserID), zap.Error(err))
		return
	}
	h.hub.Serve(conn, claims.UserID)
}
