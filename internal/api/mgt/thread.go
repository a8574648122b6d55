package mgt

import (
	"github.com/gin-gonic/gin"

	"forum_go/internal/middleware"
	"forum_go/internal/pkg/apperr"
	"forum_go/internal/pkg/response"
	"forum_go/internal/service"
)

// ThreadHandler Thread Management API Handler
type ThreadHandler struct {
	svc *service.ForumService
}

// NewThreadHandler create ThreadHandler
func NewThreadHandler(svc *service.ForumService) *ThreadHandler {
	return &ThreadHandler{svc: svc}
}

// CreateRequest create thread request
type CreateRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// Create POST /api/mgt/thread
func (h *ThreadHandler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	view, err := h.svc.CreateThread(c.Request.Context(), service.CreateThreadInput{
		Title:    req.Title,
		Content:  req.Content,
		Tags:     req.Tags,
		AuthorID: middleware.CurrentUser(c).ID,
	})
	if err != nil {
		response.Fail(c, err, apperr.CodeUserNotFound)
		return
	}

	response.Created(c, view)
}

// UpdateRequest update thread request, absent fields are unchanged
type UpdateRequest struct {
	Title   *string   `json:"title"`
	Content *string   `json:"content"`
	Tags    *[]string `json:"tags"`
}

// Update PUT /api/mgt/thread/:pid
func (h *ThreadHandler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	view, err := h.svc.UpdateThread(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("pid"), service.UpdateThreadInput{
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
	})
	if err != nil {
		response.Fail(c, err, apperr.CodeThreadNotFound)
		return
	}

	response.Success(c, view)
}

// Delete DELETE /api/mgt/thread/:pid
func (h *ThreadHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteThread(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("pid")); err != nil {
		response.Fail(c, err, apperr.CodeThreadNotFound)
		return
	}

	response.Success(c, nil)
}

// ReplyRequest reply body
type ReplyRequest struct {
	Content string `json:"content"`
}

// Reply POST /api/mgt/thread/:pid/reply
func (h *ThreadHandler) Reply(c *gin.Context) {
	var req ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	view, err := h.svc.AddReply(c.Request.Context(), c.Param("pid"), req.Content, middleware.CurrentUser(c).ID)
	if err != nil {
		response.Fail(c, err, apperr.CodeThreadNotFound)
		return
	}

	response.Created(c, view)
}
