package app

import (
	"github.com/gin-gonic/gin"

	"github.com/gistboard/core/internal/middleware"
	"github.com/gistboard/core/internal/modules/archive"
	"github.com/gistboard/core/internal/modules/audit"
	"github.com/gistboard/core/internal/modules/auth"
	"github.com/gistboard/core/internal/modules/crontask"
	"github.com/gistboard/core/internal/modules/gist"
	"github.com/gistboard/core/internal/modules/health"
	pkgredis "github.com/gistboard/core/internal/pkg/redis"
	"github.com/gistboard/core/internal/pkg/response"
)

const apiPrefix = "/api/v1"

func (a *App) registerRoutes(rc *pkgredis.Client) error {
	r := a.router
	db := a.db

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	appInfo := gin.H{
		"name":    "gistboard-core",
		"version": "1.0.0",
	}
	r.GET("/", func(c *gin.Context) { c.JSON(200, appInfo) })

	// OptionalAuth first so the rate limiter can exempt admin requests.
	api := r.Group(apiPrefix)
	api.Use(middleware.OptionalAuth())
	api.Use(middleware.RateLimit(rc.Raw()))
	api.Use(middleware.Idempotence(rc.Raw()))
	authMW := middleware.Auth()

	// Shared services. The archive and gist services are also what the cron
	// jobs drive; keep the same instances.
	auditSvc := audit.NewService(db, a.logger)
	a.auditSvc = auditSvc
	gistSvc := gist.NewService(db, rc, a.logger)
	archiveSvc := archive.NewService(db, a.logger)
	a.archiveSvc = archiveSvc

	authSvc, err := auth.NewService(a.cfg.Admin)
	if err != nil {
		return err
	}

	healthH := health.NewHandler(db, rc)
	api.GET("/health", healthH.Check)

	authH := auth.NewHandler(authSvc)
	api.POST("/auth/login", authH.Login)
	api.GET("/auth/check", authMW, authH.Check)

	gistH := gist.NewHandler(gistSvc, auditSvc)
	gists := api.Group("/gists")
	{
		gists.GET("", gistH.List)
		gists.POST("", gistH.Create)
		gists.GET("/stats", gistH.Stats)
		gists.GET("/:id", gistH.Get)
		gists.PATCH("/:id", gistH.Update)
		gists.DELETE("/:id", gistH.Delete)
		gists.POST("/:id/like", gistH.Like)
		gists.DELETE("/:id/like", gistH.Unlike)
		gists.POST("/:id/helpful", gistH.Helpful)
		gists.POST("/:id/report", gistH.Report)
		gists.POST("/:id/verify", authMW, gistH.Verify)
	}

	archiveH := archive.NewHandler(archiveSvc, auditSvc)
	api.POST("/cleanup", authMW, archiveH.Cleanup)
	api.POST("/recover", authMW, archiveH.Recover)
	archives := api.Group("/archives", authMW)
	{
		archives.GET("", archiveH.List)
		archives.GET("/stats", archiveH.Stats)
		archives.GET("/:id", archiveH.Get)
		archives.POST("/collect", archiveH.Collect)
	}

	auditH := audit.NewHandler(auditSvc)
	api.GET("/audit", authMW, auditH.List)

	taskH := crontask.NewHandler(a.sched)
	tasks := api.Group("/tasks", authMW)
	{
		tasks.GET("", taskH.List)
		tasks.GET("/:name", taskH.Get)
		tasks.POST("/:name/run", taskH.Run)
	}

	return nil
}
