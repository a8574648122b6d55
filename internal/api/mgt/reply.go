package mgt

import (
	"github.com/gin-gonic/gin"

	"forum_go/internal/middleware"
	"forum_go/internal/pkg/apperr"
	"forum_go/internal/pkg/response"
	"forum_go/internal/service"
)

// ReplyHandler Reply Management API Handler
type ReplyHandler struct {
	svc *service.ForumService
}

// NewReplyHandler create ReplyHandler
func NewReplyHandler(svc *service.ForumService) *ReplyHandler {
	return &ReplyHandler{svc: svc}
}

// Update PUT /api/mgt/reply/:rid
func (h *ReplyHandler) Update(c *gin.Context) {
	var req ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	view, err := h.svc.UpdateReply(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("rid"), req.Content)
	if err != nil {
		response.Fail(c, err, apperr.CodeReplyNotFound)
		return
	}

	response.Success(c, view)
}

// Delete DELETE /api/mgt/reply/:rid
func (h *ReplyHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteReply(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("rid")); err != nil {
		response.Fail(c, err, apperr.CodeReplyNotFound)
		return
	}

	response.Success(c, nil)
}
