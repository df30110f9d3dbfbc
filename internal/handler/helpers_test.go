package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/edsonosf/gdp/internal/middleware"
	"github.com/edsonosf/gdp/internal/models"
)

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0")
	c.Request = req
	return c, w
}

// serve runs h and flushes the status line the way the engine does once the chain ends.
func serve(c *gin.Context, h gin.HandlerFunc) {
	h(c)
	c.Writer.WriteHeaderNow()
}

func withClaims(c *gin.Context, userID string, admin bool) *models.JWTClaims {
	claims := &models.JWTClaims{UserID: userID, Name: "User " + userID, IsSystemAdmin: admin}
	c.Set(middleware.ContextUserKey, claims)
	return claims
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
	Error      string                 `json:"error"`
	Code       string                 `json:"code"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}
