// Package crontask exposes the interval scheduler over the admin API.
package crontask

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/gistboard/core/internal/pkg/cron"
	"github.com/gistboard/core/internal/pkg/response"
)

type Handler struct {
	sched *cron.Scheduler
}

func NewHandler(sched *cron.Scheduler) *Handler { return &Handler{sched: sched} }

// List handles GET /tasks (admin only).
func (h *Handler) List(c *gin.Context) {
	response.OK(c, h.sched.List())
}

// Get handles GET /tasks/:name (admin only).
func (h *Handler) Get(c *gin.Context) {
	task, err := h.sched.GetTask(c.Param("name"))
	if err != nil {
		response.NotFoundMsg(c, err.Error())
		return
	}
	response.OK(c, task)
}

// Run handles POST /tasks/:name/run (admin only). The job runs in the
// background; poll GET /tasks/:name for the outcome.
func (h *Handler) Run(c *gin.Context) {
	name := c.Param("name")
	// The job outlives the request, so it must not inherit its context.
	if err := h.sched.Run(context.Background(), name); err != nil {
		response.NotFoundMsg(c, err.Error())
		return
	}
	response.OK(c, gin.H{"triggered": name})
}
