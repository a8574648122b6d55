package v1

import (
	"github.com/gin-gonic/gin"

	"forum_go/internal/pkg/apperr"
	"forum_go/internal/pkg/response"
	"forum_go/internal/service"
)

// TagHandler Tag API Handler
type TagHandler struct {
	svc *service.TagService
}

// NewTagHandler create TagHandler
func NewTagHandler(svc *service.TagService) *TagHandler {
	return &TagHandler{svc: svc}
}

// List GET /api/v1/tags?limit=
func (h *TagHandler) List(c *gin.Context) {
	tags, err := h.svc.List(c.Request.Context(), queryInt(c, "limit", 0))
	if err != nil {
		response.Fail(c, err, apperr.CodeNotFound)
		return
	}

	response.Success(c, tags)
}
