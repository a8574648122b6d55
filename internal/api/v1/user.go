package v1

import (
	"github.com/gin-gonic/gin"

	"forum_go/internal/pkg/apperr"
	"forum_go/internal/pkg/response"
	"forum_go/internal/service"
)

// UserHandler public user API
type UserHandler struct {
	svc *service.UserService
}

// NewUserHandler create UserHandler
func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// GetUser GET /api/v1/user/:uid
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.svc.View(c.Request.Context(), c.Param("uid"))
	if err != nil {
		response.Fail(c, err, apperr.CodeUserNotFound)
		return
	}

	response.Success(c, user)
}
