package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edsonosf/gdp/internal/models"
	"github.com/edsonosf/gdp/internal/service"
)

type accessLogServiceMock struct {
	created service.CreateAccessLogRequest
	filter  models.AccessLogFilter
	cleared bool
}

func (m *accessLogServiceMock) Create(_ context.Context, req service.CreateAccessLogRequest) (*models.AccessLog, error) {
	m.created = req
	return &models.AccessLog{ID: 7, UserID: req.UserID, Event: req.Event, Status: req.Status}, nil
}

func (m *accessLogServiceMock) List(_ context.Context, filter models.AccessLogFilter) ([]models.AccessLog, error) {
	m.filter = filter
	return []models.AccessLog{{ID: 1, Event: models.EventLogin}}, nil
}

func (m *accessLogServiceMock) Clear(context.Context) (int64, error) {
	m.cleared = true
	return 12, nil
}

func TestAccessLogHandlerListLimit(t *testing.T) {
	svc := &accessLogServiceMock{}
	h := NewAccessLogHandler(svc)

	c, w := newGinContext(http.MethodGet, "/api/logs?event=user.login&status=failure&limit=20", nil)
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.EventLogin, svc.filter.Event)
	assert.Equal(t, models.AccessFailure, svc.filter.Status)
	assert.Equal(t, 20, svc.filter.Limit)

	c, _ = newGinContext(http.MethodGet, "/api/logs?limit=5000", nil)
	h.List(c)
	assert.Equal(t, defaultLogLimit, svc.filter.Limit)
}

func TestAccessLogHandlerCreateStampsRequest(t *testing.T) {
	svc := &accessLogServiceMock{}
	h := NewAccessLogHandler(svc)

	body := `{"userId":"spoofed","event":"user.logout","status":"success","deviceInfo":{"type":"Desktop","os":"Windows","browser":"Chrome"}}`
	c, w := newGinContext(http.MethodPost, "/api/logs", []byte(body))
	c.Request.RemoteAddr = "10.1.2.3:5555"
	withClaims(c, "u1", false)
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "u1", svc.created.UserID)
	assert.Equal(t, "10.1.2.3", svc.created.IPAddress)
	assert.Contains(t, svc.created.UserAgent, "Chrome")
	require.NotNil(t, svc.created.DeviceInfo)
	assert.Equal(t, "Windows", svc.created.DeviceInfo.OS)
}

func TestAccessLogHandlerClear(t *testing.T) {
	svc := &accessLogServiceMock{}
	h := NewAccessLogHandler(svc)

	c, w := newGinContext(http.MethodDelete, "/api/logs", nil)
	h.Clear(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.cleared)
	assert.JSONEq(t, `{"deleted":12}`, string(decode(t, w).Data))
}
