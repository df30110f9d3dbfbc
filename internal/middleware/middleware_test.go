package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edsonosf/gdp/internal/models"
	appErrors "github.com/edsonosf/gdp/pkg/errors"
)

type stubValidator struct {
	tokens map[string]*models.JWTClaims
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s.tokens[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type recordingAccess struct {
	mu      sync.Mutex
	entries []models.AccessLog
}

func (r *recordingAccess) Record(_ context.Context, entry models.AccessLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func testValidator() stubValidator {
	return stubValidator{tokens: map[string]*models.JWTClaims{
		"admin-token": {UserID: "admin-1", Name: "Admin", IsSystemAdmin: true},
		"staff-token": {UserID: "staff-1", Name: "Staff"},
	}}
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func perform(router *gin.Engine, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestJWT(t *testing.T) {
	router := newRouter()
	router.GET("/me", JWT(testValidator()), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUser(c).UserID)
	})

	t.Run("missing token", func(t *testing.T) {
		w := perform(router, http.MethodGet, "/me", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Token abc")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid authorization header")
	})

	t.Run("bearer header", func(t *testing.T) {
		w := perform(router, http.MethodGet, "/me", "staff-token")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "staff-1", w.Body.String())
	})

	t.Run("query token", func(t *testing.T) {
		w := perform(router, http.MethodGet, "/me?token=admin-token", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "admin-1", w.Body.String())
	})

	t.Run("unknown token", func(t *testing.T) {
		w := perform(router, http.MethodGet, "/me", "forged")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	router := newRouter()
	router.GET("/backup", JWT(testValidator()), RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusForbidden, perform(router, http.MethodGet, "/backup", "staff-token").Code)
	assert.Equal(t, http.StatusOK, perform(router, http.MethodGet, "/backup", "admin-token").Code)

	bare := newRouter()
	bare.GET("/backup", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusUnauthorized, perform(bare, http.MethodGet, "/backup", "").Code)
}

func TestAllowSelfOrAdmin(t *testing.T) {
	router := newRouter()
	router.DELETE("/users/:id", JWT(testValidator()), AllowSelfOrAdmin("id"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	assert.Equal(t, http.StatusNoContent, perform(router, http.MethodDelete, "/users/staff-1", "staff-token").Code)
	assert.Equal(t, http.StatusForbidden, perform(router, http.MethodDelete, "/users/other", "staff-token").Code)
	assert.Equal(t, http.StatusNoContent, perform(router, http.MethodDelete, "/users/other", "admin-token").Code)
}

func TestAuditRecordsSuccessfulMutations(t *testing.T) {
	recorder := &recordingAccess{}
	router := newRouter()
	group := router.Group("", JWT(testValidator()), Audit(recorder, "POST /auth/logout"))
	group.POST("/students", func(c *gin.Context) { c.Status(http.StatusCreated) })
	group.DELETE("/students/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	group.GET("/students", func(c *gin.Context) { c.Status(http.StatusOK) })
	group.POST("/auth/logout", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	group.PUT("/students/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	perform(router, http.MethodPost, "/students", "staff-token")
	perform(router, http.MethodDelete, "/students/st1", "staff-token")
	perform(router, http.MethodGet, "/students", "staff-token")
	perform(router, http.MethodPost, "/auth/logout", "staff-token")
	perform(router, http.MethodPut, "/students/st2", "admin-token")

	require.Len(t, recorder.entries, 2)
	first := recorder.entries[0]
	assert.Equal(t, models.EventCriticalAction, first.Event)
	assert.Equal(t, models.AccessSuccess, first.Status)
	assert.Equal(t, "staff-1", first.UserID)
	assert.Equal(t, "POST /students", first.Description)
	assert.Equal(t, "PUT /students/:id (st2)", recorder.entries[1].Description)
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	router := newRouter()
	router.POST("/auth/login", limiter.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, perform(router, http.MethodPost, "/auth/login", "").Code)
	assert.Equal(t, http.StatusOK, perform(router, http.MethodPost, "/auth/login", "").Code)
	w := perform(router, http.MethodPost, "/auth/login", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "TOO_MANY_REQUESTS")

	assert.True(t, limiter.Allow("10.0.0.2"))

	now = now.Add(31 * time.Second)
	assert.Equal(t, http.StatusOK, perform(router, http.MethodPost, "/auth/login", "").Code)
}

func TestRateLimiterForgetsIdleVisitors(t *testing.T) {
	limiter := NewRateLimiter(1, time.Second)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))
	now = now.Add(10 * time.Second)
	assert.True(t, limiter.Allow("b"))
	_, tracked := limiter.visitors["a"]
	assert.False(t, tracked)
}

func TestExtractMeta(t *testing.T) {
	router := newRouter()
	router.Use(WithResponseMeta())
	var meta map[string]interface{}
	router.GET("/summary", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	perform(router, http.MethodGet, "/summary", "")
	assert.Equal(t, true, meta["cacheHit"])
	assert.Contains(t, meta, "processingTimeMs")
}

type observedRequest struct {
	method string
	path   string
	status int
}

type stubObserver struct {
	seen []observedRequest
}

func (s *stubObserver) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	s.seen = append(s.seen, observedRequest{method, path, status})
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	observer := &stubObserver{}
	router := newRouter()
	router.Use(Metrics(observer))
	router.GET("/students/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	perform(router, http.MethodGet, "/students/st1", "")
	perform(router, http.MethodGet, "/nowhere", "")

	require.Len(t, observer.seen, 2)
	assert.Equal(t, observedRequest{http.MethodGet, "/students/:id", http.StatusOK}, observer.seen[0])
	assert.Equal(t, "unmatched", observer.seen[1].path)
}
