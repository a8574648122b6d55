package v1

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"forum_go/internal/pkg/apperr"
	"forum_go/internal/pkg/response"
	"forum_go/internal/service"
)

// ThreadHandler Thread API Handler
type ThreadHandler struct {
	svc *service.ForumService
}

// NewThreadHandler create ThreadHandler
func NewThreadHandler(svc *service.ForumService) *ThreadHandler {
	return &ThreadHandler{svc: svc}
}

// List GET /api/v1/threads
func (h *ThreadHandler) List(c *gin.Context) {
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 0)

	list, err := h.svc.ListThreads(c.Request.Context(), page, pageSize)
	if err != nil {
		response.Fail(c, err, apperr.CodeNotFound)
		return
	}

	response.Success(c, list)
}

// Get GET /api/v1/thread/:pid
func (h *ThreadHandler) Get(c *gin.Context) {
	view, err := h.svc.GetThread(c.Request.Context(), c.Param("pid"))
	if err != nil {
		response.Fail(c, err, apperr.CodeThreadNotFound)
		return
	}

	response.Success(c, view)
}

// Replies GET /api/v1/thread/:pid/replies
// ?all=1 includes the body reply
func (h *ThreadHandler) Replies(c *gin.Context) {
	var (
		replies []*service.ReplyView
		err     error
	)
	if c.Query("all") == "1" {
		replies, err = h.svc.GetReplies(c.Request.Context(), c.Param("pid"))
	} else {
		replies, err = h.svc.GetDiscussion(c.Request.Context(), c.Param("pid"))
	}
	if err != nil {
		response.Fail(c, err, apperr.CodeThreadNotFound)
		return
	}

	response.Success(c, replies)
}

// queryInt positive integer query parameter or def
func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
