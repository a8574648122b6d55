package mgt

import (
	"github.com/gin-gonic/gin"

	"forum_go/internal/core/config"
	"forum_go/internal/middleware"
	"forum_go/internal/pkg/apperr"
	"forum_go/internal/pkg/response"
	"forum_go/internal/service"
)

// UserMgtHandler account management, internal use
type UserMgtHandler struct {
	svc *service.UserService
	jwt *config.JWTConfig
}

// NewUserMgtHandler create UserMgtHandler
func NewUserMgtHandler(svc *service.UserService, jwtCfg *config.JWTConfig) *UserMgtHandler {
	return &UserMgtHandler{svc: svc, jwt: jwtCfg}
}

// RegisterRequest register request
type RegisterRequest struct {
	Email       string `json:"email" binding:"required"`
	DisplayName string `json:"display_name"`
}

// Register POST /api/mgt/user/register
// returns the profile and a bearer token for it
func (h *UserMgtHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.svc.Register(c.Request.Context(), req.Email, req.DisplayName)
	if err != nil {
		response.Fail(c, err, apperr.CodeUserNotFound)
		return
	}

	token, err := middleware.GenerateToken(user, h.jwt)
	if err != nil {
		response.Fail(c, err, apperr.CodeInternalError)
		return
	}

	response.Created(c, gin.H{
		"user": service.UserView{
			PublicID:    user.PublicID,
			DisplayName: user.Name(),
			CreatedAt:   user.CreatedAt,
		},
		"token":      token,
		"expires_in": h.jwt.Expiry,
	})
}

// Token POST /api/mgt/token/:uid
// issue a fresh token for an existing account
func (h *UserMgtHandler) Token(c *gin.Context) {
	user, err := h.svc.GetByPublicID(c.Request.Context(), c.Param("uid"))
	if err != nil {
		response.Fail(c, err, apperr.CodeUserNotFound)
		return
	}

	token, err := middleware.GenerateToken(user, h.jwt)
	if err != nil {
		response.Fail(c, err, apperr.CodeInternalError)
		return
	}

	response.Success(c, gin.H{
		"token":      token,
		"expires_in": h.jwt.Expiry,
	})
}

// Me GET /api/mgt/me
func (h *UserMgtHandler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	response.Success(c, service.UserView{
		PublicID:    user.PublicID,
		DisplayName: user.Name(),
		CreatedAt:   user.CreatedAt,
	})
}
