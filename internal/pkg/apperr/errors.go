package apperr

import (
	"errors"

	"forum_go/internal/service"
)

// Business Error Codes
const (
	CodeSuccess         = 0
	CodeBadRequest      = 400
	CodeUnauthorized    = 401
	CodeForbidden       = 403
	CodeNotFound        = 404
	CodeConflict        = 409
	CodeTooManyRequests = 429
	CodeInternalError   = 500
	CodeDatabaseError   = 1001
	CodeSearchError     = 1003
	CodeThreadNotFound  = 2001
	CodeThreadCreateErr = 2002
	CodeThreadUpdateErr = 2003
	CodeThreadDeleteErr = 2004
	CodeDuplicateTitle  = 2005
	CodeReplyNotFound   = 2101
	CodeUserNotFound    = 3001
	CodeEmailTaken      = 3002
)

// AppError Application Error with code and message
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

// NewAppError Create new application error
func NewAppError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// WrapError Wrap error with code
func WrapError(err error, code int) *AppError {
	if err == nil {
		return nil
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
	}
}

// FromService map a service error to a coded error. notFound is the code used
// for service.ErrNotFound, which depends on what the handler looked up.
// Unknown errors become CodeInternalError without leaking their text.
func FromService(err error, notFound int) *AppError {
	if err == nil {
		return nil
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return NewAppError(CodeBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return NewAppError(CodeForbidden, "you may not modify this content")
	case errors.Is(err, service.ErrNotFound):
		return NewAppError(notFound, "not found")
	case errors.Is(err, service.ErrDuplicateTitle):
		return NewAppError(CodeDuplicateTitle, "a thread with this title already exists, choose another title")
	case errors.Is(err, service.ErrConflict):
		return NewAppError(CodeConflict, err.Error())
	default:
		return NewAppError(CodeInternalError, "internal server error")
	}
}

// HTTPStatus HTTP status for a code
func HTTPStatus(code int) int {
	switch code {
	case CodeSuccess:
		return 200
	case CodeBadRequest:
		return 400
	case CodeUnauthorized:
		return 401
	case CodeForbidden:
		return 403
	case CodeNotFound, CodeThreadNotFound, CodeReplyNotFound, CodeUserNotFound:
		return 404
	case CodeConflict, CodeDuplicateTitle, CodeEmailTaken:
		return 409
	case CodeTooManyRequests:
		return 429
	default:
		return 500
	}
}
