package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ValidationError reports bad or missing caller input. Its message is
// surfaced to the caller verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s '%s' not found", e.Entity, e.ID)
}

// CapacityExceededError is returned when a stock issue would take a product
// below zero.
type CapacityExceededError struct {
	Resource  string
	Requested int
	Available int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("insufficient %s: requested %d, available %d", e.Resource, e.Requested, e.Available)
}

func Validation(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func CapacityExceeded(resource string, requested, available int) error {
	return &CapacityExceededError{Resource: resource, Requested: requested, Available: available}
}

// MissingIDs builds a validation error naming every offending id.
func MissingIDs(what string, ids []string) error {
	return Validation("invalid/inactive %s: %s", what, strings.Join(ids, ", "))
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}

func IsCapacityExceeded(err error) bool {
	var c *CapacityExceededError
	return errors.As(err, &c)
}

// HTTPStatus maps the taxonomy onto response codes.
func HTTPStatus(err error) int {
	switch {
	case IsValidation(err):
		return http.StatusBadRequest
	case IsNotFound(err):
		return http.StatusNotFound
	case IsCapacityExceeded(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
