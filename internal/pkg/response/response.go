package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"forum_go/internal/core/logger"
	"forum_go/internal/pkg/apperr"
)

// Response Standard API Response
type Response struct {
	Code int         `json:"code"`
	Data interface{} `json:"data,omitempty"`
	Msg  string      `json:"msg,omitempty"`
}

// Success Success response
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code: apperr.CodeSuccess,
		Data: data,
		Msg:  "success",
	})
}

// Created resource created
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code: apperr.CodeSuccess,
		Data: data,
		Msg:  "created",
	})
}

// Fail respond with a service error. notFound is the code for a missing entity.
func Fail(c *gin.Context, err error, notFound int) {
	ae := apperr.FromService(err, notFound)
	if ae.Code == apperr.CodeInternalError {
		logger.Error("request failed",
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.ErrorField(err))
	}
	c.AbortWithStatusJSON(apperr.HTTPStatus(ae.Code), Response{
		Code: ae.Code,
		Msg:  ae.Message,
	})
}

// FailWithCode Fail with specific code
func FailWithCode(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(apperr.HTTPStatus(code), Response{
		Code: code,
		Msg:  msg,
	})
}

// BadRequest Bad request response
func BadRequest(c *gin.Context, msg string) {
	FailWithCode(c, apperr.CodeBadRequest, msg)
}

// Unauthorized Unauthorized response
func Unauthorized(c *gin.Context, msg string) {
	FailWithCode(c, apperr.CodeUnauthorized, msg)
}

// NotFound Not found response
func NotFound(c *gin.Context, msg string) {
	FailWithCode(c, apperr.CodeNotFound, msg)
}

// InternalError Internal server error response
func InternalError(c *gin.Context, msg string) {
	FailWithCode(c, apperr.CodeInternalError, msg)
}
