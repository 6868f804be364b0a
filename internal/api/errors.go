// errors.go - Structured error handling for API responses
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// JSON keys an error message can be reported under.
const (
	KeyError  = "error"
	KeyStatus = "status"
)

// APIError represents a structured API error response. The message is
// written under Key, so clients that read either "error" or "status" keep
// working.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details string
	Key     string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MarshalJSON writes {"<key>": message, "code": code[, "details": details]}.
func (e *APIError) MarshalJSON() ([]byte, error) {
	key := e.Key
	if key == "" {
		key = KeyError
	}

	var buf bytes.Buffer
	fields := [][2]string{{key, e.Message}, {"code", e.Code}}
	if e.Details != "" {
		fields = append(fields, [2]string{"details", e.Details})
	}

	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(f[0])
		v, _ := json.Marshal(f[1])
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// reportedAs returns e with its message moved under key.
func (e *APIError) reportedAs(key string) *APIError {
	e.Key = key
	return e
}

// Error constructors for consistent error handling

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
		Key:     KeyError,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 error for missing or malformed input
func NewValidationError(message string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: message,
		Key:     KeyError,
	}
}

// NewUnsupportedFormatError creates a 400 error for file types that cannot be handled
func NewUnsupportedFormatError(message string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "UNSUPPORTED_FORMAT",
		Message: message,
		Key:     KeyError,
	}
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: message,
		Key:     KeyStatus,
	}
}

// NewJobFailedError creates a 500 error for a report job that wrote its failure sentinel
func NewJobFailedError(message string) *APIError {
	return &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "JOB_FAILED",
		Message: message,
		Key:     KeyStatus,
	}
}

// NewInternalError creates a 500 error reporting the underlying message
func NewInternalError(cause error) *APIError {
	return &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: cause.Error(),
		Key:     KeyError,
	}
}

// ErrorHandler middleware for Echo
// Usage: e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	var httpErr *echo.HTTPError

	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &httpErr):
		apiErr = &APIError{
			Status:  httpErr.Code,
			Code:    codeForStatus(httpErr.Code),
			Message: fmt.Sprintf("%v", httpErr.Message),
			Key:     KeyError,
		}
	default:
		apiErr = NewInternalError(err)
	}

	if apiErr.Status >= http.StatusInternalServerError {
		slog.Error("request failed",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"code", apiErr.Code,
			"error", apiErr.Message)
	}

	if c.Request().Method == http.MethodHead {
		c.NoContent(apiErr.Status)
		return
	}
	c.JSON(apiErr.Status, apiErr)
}

func codeForStatus(status int) string {
	switch {
	case status == http.StatusNotFound:
		return "NOT_FOUND"
	case status >= http.StatusInternalServerError:
		return "INTERNAL_ERROR"
	default:
		return "BAD_REQUEST"
	}
}
