package mgt

import (
	"time"

	"github.com/gin-gonic/gin"

	"forum_go/internal/core/logger"
	"forum_go/internal/pkg/apperr"
	"forum_go/internal/pkg/response"
	"forum_go/internal/service"
)

// SearchMgtHandler search index maintenance
type SearchMgtHandler struct {
	svc *service.ForumService
}

// NewSearchMgtHandler create SearchMgtHandler
func NewSearchMgtHandler(svc *service.ForumService) *SearchMgtHandler {
	return &SearchMgtHandler{svc: svc}
}

// Reindex POST /api/mgt/search/reindex
func (h *SearchMgtHandler) Reindex(c *gin.Context) {
	start := time.Now()
	indexed, failed, err := h.svc.Reindex(c.Request.Context())
	if err != nil {
		response.Fail(c, err, apperr.CodeNotFound)
		return
	}

	logger.Info("reindex requested",
		logger.Int("indexed", indexed),
		logger.Int("failed", failed),
		logger.Duration("took", time.Since(start)))

	response.Success(c, gin.H{
		"indexed": indexed,
		"failed":  failed,
	})
}
