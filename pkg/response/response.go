package response

import (
	"carwash/pkg/apperror"
	"carwash/pkg/pagination"
)

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Page wraps a list result with its paging info
type Page struct {
	Items interface{}     `json:"items"`
	Meta  pagination.Meta `json:"meta"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// FromError picks the status code from the error taxonomy.
func FromError(err error) (int, Response) {
	code := apperror.HTTPStatus(err)
	return code, Error(code, err.Error())
}
