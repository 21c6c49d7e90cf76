package archive

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gistboard/core/internal/middleware"
	"github.com/gistboard/core/internal/models"
	"github.com/gistboard/core/internal/modules/audit"
	"github.com/gistboard/core/internal/pkg/pagination"
	"github.com/gistboard/core/internal/pkg/response"
)

type Handler struct {
	svc   *Service
	audit *audit.Service
}

func NewHandler(svc *Service, auditSvc *audit.Service) *Handler {
	return &Handler{svc: svc, audit: auditSvc}
}

type listQuery struct {
	GistType     string `form:"gistType"`
	Status       string `form:"status"`
	ArchivedBy   string `form:"archivedBy"`
	ExpiredSince string `form:"expiredSince"`
	ExpiredUntil string `form:"expiredUntil"`
	CleanedSince string `form:"cleanedSince"`
	CleanedUntil string `form:"cleanedUntil"`
}

// List handles GET /archives (admin only).
func (h *Handler) List(c *gin.Context) {
	page, err := pagination.FromContext(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query parameters")
		return
	}

	f := ListFilter{ArchivedBy: q.ArchivedBy}
	if q.GistType != "" {
		t := models.GistType(q.GistType)
		if !models.ValidGistType(t) {
			response.BadRequest(c, "gistType must be one of tip, alert, story, question, event, other")
			return
		}
		f.GistType = t
	}
	switch status := models.CleanupStatus(q.Status); status {
	case "", models.CleanupPending, models.CleanupArchived, models.CleanupDeleted, models.CleanupRecovered:
		f.Status = status
	default:
		response.BadRequest(c, "status must be one of pending, archived, deleted, recovered")
		return
	}
	for _, bind := range []struct {
		raw  string
		name string
		dst  **time.Time
	}{
		{q.ExpiredSince, "expiredSince", &f.ExpiredSince},
		{q.ExpiredUntil, "expiredUntil", &f.ExpiredUntil},
		{q.CleanedSince, "cleanedSince", &f.CleanedSince},
		{q.CleanedUntil, "cleanedUntil", &f.CleanedUntil},
	} {
		if bind.raw == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, bind.raw)
		if err != nil {
			response.BadRequest(c, fmt.Sprintf("%s must be an RFC 3339 timestamp", bind.name))
			return
		}
		*bind.dst = &ts
	}

	rows, total, err := h.svc.List(c.Request.Context(), f, page.Limit, page.Offset)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, rows, total, page.HasMore(total))
}

// Get handles GET /archives/:id (admin only).
func (h *Handler) Get(c *gin.Context) {
	entry, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, entry)
}

// Stats handles GET /archives/stats (admin only).
func (h *Handler) Stats(c *gin.Context) {
	st, err := h.svc.GetStats(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, st)
}

type cleanupDTO struct {
	GistType            string `json:"gistType"`
	OlderThanDays       int    `json:"olderThanDays"`
	DryRun              *bool  `json:"dryRun"`
	BatchSize           int    `json:"batchSize"`
	ArchiveBeforeDelete *bool  `json:"archiveBeforeDelete"`
	Reason              string `json:"reason"`
}

// Cleanup handles POST /cleanup (admin only): an on-demand pass of the same
// job the scheduler runs. Defaults are deliberately safe: dry run, archive
// before delete.
func (h *Handler) Cleanup(c *gin.Context) {
	dto := cleanupDTO{}
	// Body is optional; defaults preview the pass without mutating.
	_ = c.ShouldBindJSON(&dto)

	opts := CleanupOptions{
		DryRun:              true,
		ArchiveBeforeDelete: true,
		OlderThanDays:       dto.OlderThanDays,
		BatchSize:           dto.BatchSize,
		Reason:              dto.Reason,
	}
	if dto.DryRun != nil {
		opts.DryRun = *dto.DryRun
	}
	if dto.ArchiveBeforeDelete != nil {
		opts.ArchiveBeforeDelete = *dto.ArchiveBeforeDelete
	}
	if dto.GistType != "" {
		t := models.GistType(dto.GistType)
		if !models.ValidGistType(t) {
			response.BadRequest(c, "gistType must be one of tip, alert, story, question, event, other")
			return
		}
		opts.GistType = t
	}
	if dto.BatchSize < 0 || dto.BatchSize > MaxBatchSize {
		response.BadRequest(c, fmt.Sprintf("batchSize must be between 1 and %d", MaxBatchSize))
		return
	}
	if dto.OlderThanDays < 0 {
		response.BadRequest(c, "olderThanDays must be >= 0")
		return
	}

	res, err := h.svc.PerformCleanup(c.Request.Context(), opts)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if !opts.DryRun {
		h.audit.Record(c.Request.Context(), audit.Entry{
			Action:      models.AuditCleanup,
			EntityType:  models.EntityArchive,
			IPAddress:   c.ClientIP(),
			Description: "manual archive cleanup",
			Metadata: map[string]interface{}{
				"processed": res.Processed,
				"archived":  res.Archived,
				"deleted":   res.Deleted,
			},
		})
	}
	response.OK(c, res)
}

type recoverDTO struct {
	GistType   string `json:"gistType"   binding:"required"`
	OriginalID string `json:"originalId" binding:"required"`
	Reason     string `json:"reason"`
}

// Recover handles POST /recover (admin only).
func (h *Handler) Recover(c *gin.Context) {
	var dto recoverDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "gistType and originalId are required")
		return
	}
	gistType := models.GistType(dto.GistType)
	if !models.ValidGistType(gistType) {
		response.BadRequest(c, "gistType must be one of tip, alert, story, question, event, other")
		return
	}

	snapshot, err := h.svc.Recover(c.Request.Context(), gistType, dto.OriginalID,
		middleware.AdminName(c), dto.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.audit.Record(c.Request.Context(), audit.Entry{
		Action:      models.AuditRecover,
		EntityType:  models.EntityArchive,
		EntityID:    dto.OriginalID,
		IPAddress:   c.ClientIP(),
		Description: fmt.Sprintf("gist recovered from archive (%s)", gistType),
	})
	// The archived snapshot passes through as stored, not re-encoded.
	response.OK(c, snapshot)
}

// Collect handles POST /archives/collect (admin only): an on-demand
// expiration sweep.
func (h *Handler) Collect(c *gin.Context) {
	count, err := h.svc.CollectExpired(c.Request.Context(), middleware.AdminName(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"collected": count})
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFoundMsg(c, "archive entry not found")
	case errors.Is(err, ErrDeleted):
		response.Conflict(c, "cannot recover a deleted gist")
	case errors.Is(err, ErrAlreadyRecovered):
		response.Conflict(c, "gist already recovered")
	default:
		response.InternalError(c, err)
	}
}
