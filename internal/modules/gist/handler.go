package gist

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

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

// List handles GET /gists, the nearby/filtered feed.
func (h *Handler) List(c *gin.Context) {
	page, err := pagination.FromContext(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var raw ListQuery
	if err := c.ShouldBindQuery(&raw); err != nil {
		response.BadRequest(c, "invalid query parameters")
		return
	}
	q, err := raw.Parse(page)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	rows, total, err := h.svc.Find(c.Request.Context(), q)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, rows, total, page.HasMore(total))
}

// Get handles GET /gists/:id. A successful read counts as a view.
func (h *Handler) Get(c *gin.Context) {
	id := c.Param("id")
	gist, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.audit.Record(c.Request.Context(), audit.Entry{
		Action:      models.AuditView,
		EntityType:  models.EntityGist,
		EntityID:    id,
		IPAddress:   c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
		Description: "gist viewed",
	})
	response.OK(c, gist)
}

// Create handles POST /gists.
func (h *Handler) Create(c *gin.Context) {
	var dto CreateGistDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "content, type, latitude and longitude are required")
		return
	}
	if err := dto.Validate(); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	gist, err := h.svc.Create(c.Request.Context(), dto, c.ClientIP())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	h.audit.Record(c.Request.Context(), audit.Entry{
		Action:      models.AuditCreate,
		EntityType:  models.EntityGist,
		EntityID:    gist.ID,
		IPAddress:   c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
		Latitude:    dto.Latitude,
		Longitude:   dto.Longitude,
		Description: fmt.Sprintf("gist created (%s)", gist.Type),
	})
	response.Created(c, gist)
}

// Update handles PATCH /gists/:id.
func (h *Handler) Update(c *gin.Context) {
	id := c.Param("id")
	var dto UpdateGistDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	gist, err := h.svc.Update(c.Request.Context(), id, dto)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.audit.Record(c.Request.Context(), audit.Entry{
		Action:      models.AuditUpdate,
		EntityType:  models.EntityGist,
		EntityID:    id,
		IPAddress:   c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
		Description: "gist updated",
	})
	response.OK(c, gist)
}

// Delete handles DELETE /gists/:id (soft delete).
func (h *Handler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	h.audit.Record(c.Request.Context(), audit.Entry{
		Action:      models.AuditDelete,
		EntityType:  models.EntityGist,
		EntityID:    id,
		IPAddress:   c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
		Description: "gist deleted",
	})
	response.NoContent(c)
}

// Like handles POST /gists/:id/like.
func (h *Handler) Like(c *gin.Context) {
	id := c.Param("id")
	gist, err := h.svc.Like(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.audit.Record(c.Request.Context(), audit.Entry{
		Action:      models.AuditLike,
		EntityType:  models.EntityGist,
		EntityID:    id,
		IPAddress:   c.ClientIP(),
		Description: "gist liked",
	})
	response.OK(c, gist)
}

// Unlike handles DELETE /gists/:id/like.
func (h *Handler) Unlike(c *gin.Context) {
	id := c.Param("id")
	gist, err := h.svc.Unlike(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.audit.Record(c.Request.Context(), audit.Entry{
		Action:      models.AuditUnlike,
		EntityType:  models.EntityGist,
		EntityID:    id,
		IPAddress:   c.ClientIP(),
		Description: "gist unliked",
	})
	response.OK(c, gist)
}

// Helpful handles POST /gists/:id/helpful.
func (h *Handler) Helpful(c *gin.Context) {
	id := c.Param("id")
	var dto HelpfulDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "helpful is required")
		return
	}
	gist, err := h.svc.Helpful(c.Request.Context(), id, *dto.Helpful)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gist)
}

// Report handles POST /gists/:id/report.
func (h *Handler) Report(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.Report(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	h.audit.Record(c.Request.Context(), audit.Entry{
		Action:      models.AuditReport,
		EntityType:  models.EntityGist,
		EntityID:    id,
		IPAddress:   c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
		Level:       models.AuditWarn,
		Description: "gist reported",
	})
	response.OK(c, gin.H{"reported": true})
}

// Verify handles POST /gists/:id/verify (admin only).
func (h *Handler) Verify(c *gin.Context) {
	id := c.Param("id")
	gist, err := h.svc.Verify(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gist)
}

// Stats handles GET /gists/stats.
func (h *Handler) Stats(c *gin.Context) {
	st, err := h.svc.GetStats(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, st)
}

func (h *Handler) fail(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		response.NotFoundMsg(c, "gist not found")
		return
	}
	response.InternalError(c, err)
}
