package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/edsonosf/gdp/internal/handler"
	"github.com/edsonosf/gdp/internal/middleware"
	"github.com/edsonosf/gdp/pkg/logger"
	corsmiddleware "github.com/edsonosf/gdp/pkg/middleware/cors"
	reqidmiddleware "github.com/edsonosf/gdp/pkg/middleware/requestid"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	User       *handler.UserHandler
	Student    *handler.StudentHandler
	Occurrence *handler.OccurrenceHandler
	Report     *handler.ReportHandler
	AccessLog  *handler.AccessLogHandler
	System     *handler.SystemHandler
	WS         *handler.WSHandler
	Metrics    *handler.MetricsHandler
}

// Options carries the cross-cutting dependencies of the route table.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Logger         *zap.Logger
	Observer       middleware.RequestObserver
	Tokens         middleware.TokenValidator
	Access         middleware.AccessRecorder
	LoginLimiter   *middleware.RateLimiter
}

// Setup builds the gin engine with the middleware chain and every route.
func Setup(h Handlers, opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Observer))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(opts.APIPrefix)

	// Public routes.
	login := []gin.HandlerFunc{h.Auth.Login}
	if opts.LoginLimiter != nil {
		login = append([]gin.HandlerFunc{opts.LoginLimiter.Middleware()}, login...)
	}
	api.POST("/auth/login", login...)
	api.POST("/auth/refresh", h.Auth.Refresh)
	api.POST("/users", h.User.Register)
	api.GET("/db-test", h.System.DBTest)
	api.GET("/backups/download/:token", h.System.DownloadSnapshot)

	secured := api.Group("")
	secured.Use(middleware.JWT(opts.Tokens))
	secured.Use(middleware.Audit(opts.Access, "POST "+opts.APIPrefix+"/auth/logout", "POST "+opts.APIPrefix+"/logs"))

	admin := middleware.RequireAdmin()
	selfOrAdmin := middleware.AllowSelfOrAdmin("id")

	secured.POST("/auth/logout", h.Auth.Logout)
	secured.GET("/auth/me", h.Auth.Me)

	secured.GET("/users", h.User.List)
	secured.GET("/users/:id", h.User.Get)
	secured.PUT("/users/:id", selfOrAdmin, h.User.Update)
	secured.DELETE("/users/:id", selfOrAdmin, h.User.Delete)
	secured.PATCH("/users/:id/status", admin, h.User.SetStatus)
	secured.PATCH("/users/:id/admin", admin, h.User.SetAdmin)
	secured.GET("/admins", h.User.Admins)

	secured.GET("/students", h.Student.List)
	secured.GET("/students/pending-analysis", h.Student.PendingAnalysis)
	secured.POST("/students", h.Student.Create)
	secured.GET("/students/:id", h.Student.Get)
	secured.PUT("/students/:id", h.Student.Update)
	secured.DELETE("/students/:id", h.Student.Delete)
	secured.GET("/students/:id/occurrences", h.Student.History)
	secured.GET("/students/:id/recidivism", h.Student.Recidivism)
	secured.POST("/students/:id/analysis", h.Student.Analyze)

	secured.GET("/classifications", h.Occurrence.Classifications)
	secured.GET("/occurrences", h.Occurrence.List)
	secured.POST("/occurrences", h.Occurrence.Create)
	secured.GET("/occurrences/:id", h.Occurrence.Get)
	secured.PUT("/occurrences/:id", admin, h.Occurrence.UpdateStatus)
	secured.PATCH("/occurrences/:id/resolve", admin, h.Occurrence.Resolve)

	secured.GET("/reports/summary", h.Report.Summary)
	secured.GET("/reports/export", h.Report.Export)
	secured.GET("/reports/students/:id", h.Report.StudentReport)

	secured.GET("/logs", admin, h.AccessLog.List)
	secured.POST("/logs", h.AccessLog.Create)
	secured.DELETE("/logs", admin, h.AccessLog.Clear)

	secured.GET("/backup", admin, h.System.Backup)
	secured.POST("/backups", admin, h.System.CreateSnapshot)
	secured.POST("/restore-db", admin, h.System.Restore)
	secured.POST("/reset-db", admin, h.System.Reset)
	secured.GET("/system/status", admin, h.System.Status)

	secured.GET("/ws/notifications", admin, h.WS.Notifications)

	return r
}
