package auth

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/gistboard/core/internal/middleware"
	"github.com/gistboard/core/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

type loginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var dto loginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "username and password are required")
		return
	}

	token, err := h.svc.Login(dto.Username, dto.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			response.Unauthorized(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"token": token, "expiresIn": int(tokenTTL.Seconds())})
}

// Check handles GET /auth/check behind the auth middleware.
func (h *Handler) Check(c *gin.Context) {
	response.OK(c, gin.H{
		"authenticated": true,
		"username":      middleware.AdminName(c),
	})
}
