package v1

import (
	"strings"

	"github.com/gin-gonic/gin"

	"forum_go/internal/pkg/apperr"
	"forum_go/internal/pkg/response"
	"forum_go/internal/service"
)

// SearchHandler search API
type SearchHandler struct {
	svc *service.ForumService
}

// NewSearchHandler create SearchHandler
func NewSearchHandler(svc *service.ForumService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// Search GET /api/v1/search?q=
func (h *SearchHandler) Search(c *gin.Context) {
	results, err := h.svc.SearchThreads(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.Fail(c, err, apperr.CodeNotFound)
		return
	}

	response.Success(c, results)
}

// ByTags GET /api/v1/search/tags?tags=go,sql
func (h *SearchHandler) ByTags(c *gin.Context) {
	var tags []string
	for _, raw := range c.QueryArray("tags") {
		tags = append(tags, strings.Split(raw, ",")...)
	}

	results, err := h.svc.SearchThreadsByTags(c.Request.Context(), tags)
	if err != nil {
		response.Fail(c, err, apperr.CodeNotFound)
		return
	}

	response.Success(c, results)
}
