package audit

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gistboard/core/internal/models"
	"github.com/gistboard/core/internal/pkg/pagination"
	"github.com/gistboard/core/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

type listQuery struct {
	Action     string `form:"action"`
	EntityType string `form:"entityType"`
	EntityID   string `form:"entityId"`
	Level      string `form:"level"`
	IP         string `form:"ip"`
	OnlyErrors bool   `form:"onlyErrors"`
	Since      string `form:"since"`
	Until      string `form:"until"`
	Search     string `form:"search"`
}

// List handles GET /audit (admin only).
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

	f := Filter{
		Action:     models.AuditAction(q.Action),
		EntityType: models.AuditEntity(q.EntityType),
		EntityID:   q.EntityID,
		Level:      models.AuditLevel(q.Level),
		IPAddress:  q.IP,
		OnlyErrors: q.OnlyErrors,
		Search:     q.Search,
	}
	if q.Since != "" {
		t, err := time.Parse(time.RFC3339, q.Since)
		if err != nil {
			response.BadRequest(c, "since must be an RFC 3339 timestamp")
			return
		}
		f.Since = &t
	}
	if q.Until != "" {
		t, err := time.Parse(time.RFC3339, q.Until)
		if err != nil {
			response.BadRequest(c, "until must be an RFC 3339 timestamp")
			return
		}
		f.Until = &t
	}

	rows, total, err := h.svc.List(c.Request.Context(), f, page.Limit, page.Offset)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, rows, total, page.HasMore(total))
}
