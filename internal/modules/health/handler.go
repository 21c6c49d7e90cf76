// Package health reports service liveness plus database and cache
// connectivity.
package health

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gistboard/core/internal/pkg/redis"
	"github.com/gistboard/core/internal/pkg/response"
)

type Handler struct {
	db      *gorm.DB
	cache   *redis.Client
	started time.Time
}

func NewHandler(db *gorm.DB, cache *redis.Client) *Handler {
	return &Handler{db: db, cache: cache, started: time.Now()}
}

// Check handles GET /health. Dependency failures degrade the report but the
// endpoint itself stays 200 so load balancers can read the detail.
func (h *Handler) Check(c *gin.Context) {
	ctx := c.Request.Context()

	dbStatus := "ok"
	if sqlDB, err := h.db.DB(); err != nil {
		dbStatus = err.Error()
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = err.Error()
	}

	redisStatus := "ok"
	if err := h.cache.Ping(ctx); err != nil {
		redisStatus = err.Error()
	}

	status := "ok"
	if dbStatus != "ok" || redisStatus != "ok" {
		status = "degraded"
	}

	response.OK(c, gin.H{
		"status":        status,
		"database":      dbStatus,
		"redis":         redisStatus,
		"uptimeSeconds": int64(time.Since(h.started).Seconds()),
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	})
}
