package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Service errors. Handlers map them to response codes with errors.Is.
var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateTitle = errors.New("a thread with this title already exists")
	ErrConflict       = errors.New("already exists")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidInput   = errors.New("invalid input")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct run struct tags and flatten failures into one ErrInvalidInput
func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, "; "))
}

// validateVar single value check, name is used in the message
func validateVar(name string, value interface{}, tag string) error {
	err := validate.Var(value, tag)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInput, message(name, verrs[0].Tag(), verrs[0].Param()))
	}
	return fmt.Errorf("%w: %s: %v", ErrInvalidInput, name, err)
}

func fieldMessage(fe validator.FieldError) string {
	return message(strings.ToLower(fe.Field()), fe.Tag(), fe.Param())
}

func message(field, tag, param string) string {
	switch tag {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, param)
	case "email":
		return field + " must be a valid email address"
	default:
		return fmt.Sprintf("%s failed %s", field, tag)
	}
}
