// errors.go - Structured error handling for API responses
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/comp-report/intake/internal/report"
	"github.com/comp-report/intake/internal/session"
	"github.com/comp-report/intake/internal/slots"
	"github.com/comp-report/intake/internal/storage"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error constructors for consistent error handling

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 validation error for a specific field
func NewValidationError(field string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field: %s", field),
	}
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewConflictError creates a 409 Conflict error
func NewConflictError(message string) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "CONFLICT",
		Message: message,
	}
}

// NewEmptySubmissionError creates a 409 error for a report started with no
// completed documents
func NewEmptySubmissionError() *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "EMPTY_SUBMISSION",
		Message: "upload at least one document before generating the report",
	}
}

// NewInvalidTokenError creates a 400 error for a stale or unknown reset token
func NewInvalidTokenError() *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "INVALID_TOKEN",
		Message: "reset token is invalid or expired",
	}
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewServiceUnavailableError creates a 503 Service Unavailable error
func NewServiceUnavailableError(message string) *APIError {
	return &APIError{
		Status:  http.StatusServiceUnavailable,
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
	}
}

// fromDomainError maps a session, slot, report or preview error to its API
// form. id names the resource the request addressed.
func fromDomainError(err error, id string) *APIError {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrClosed):
		return NewNotFoundError("session", id)
	case errors.Is(err, slots.ErrUnknownSlot):
		return NewNotFoundError("slot", id)
	case errors.Is(err, storage.ErrPreviewNotFound):
		return NewNotFoundError("preview", id)
	case errors.Is(err, report.ErrEmptySubmission):
		return NewEmptySubmissionError()
	case errors.Is(err, report.ErrInvalidState):
		return NewConflictError(err.Error())
	case errors.Is(err, session.ErrInvalidResetToken):
		return NewInvalidTokenError()
	case errors.Is(err, session.ErrTooManySessions):
		return NewServiceUnavailableError("too many active sessions, try again later")
	default:
		return NewInternalError("unexpected error", err)
	}
}

// NewErrorHandler returns the central echo error handler. Unexpected errors
// are logged; details reports whether their text is sent to the client.
// Usage: e.HTTPErrorHandler = api.NewErrorHandler(log, false)
func NewErrorHandler(log *zap.Logger, details bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
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
				Code:    "HTTP_ERROR",
				Message: fmt.Sprintf("%v", httpErr.Message),
			}
		default:
			apiErr = &APIError{
				Status:  http.StatusInternalServerError,
				Code:    "UNKNOWN_ERROR",
				Message: "An unexpected error occurred",
			}
			if details {
				apiErr.Details = err.Error()
			}
		}

		if apiErr.Status >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("path", c.Path()),
				zap.String("code", apiErr.Code),
				zap.Error(err))
		}

		var sendErr error
		if c.Request().Method == http.MethodHead {
			sendErr = c.NoContent(apiErr.Status)
		} else {
			sendErr = c.JSON(apiErr.Status, apiErr)
		}
		if sendErr != nil {
			log.Debug("error response not sent", zap.Error(sendErr))
		}
	}
}

// RespondWithError is a helper to respond with an APIError
func RespondWithError(c echo.Context, err *APIError) error {
	return c.JSON(err.Status, err)
}
