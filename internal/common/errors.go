package common

import (
	"errors"
	"net/http"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// BadRequest wraps err as a client error whose message is shown to the caller.
func BadRequest(code, message string, err error) *AppError {
	return NewAppError(code, message, http.StatusBadRequest, err)
}

// Internal wraps err as a server-side failure.
func Internal(code, message string, err error) *AppError {
	return NewAppError(code, message, http.StatusInternalServerError, err)
}

// WriteError renders err using the canonical envelope. Errors that are not
// AppErrors are reported as a generic 500.
func WriteError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		message := appErr.Message
		if message == "" {
			message = "internal error"
		}
		JSONError(w, status, message)
		return
	}
	JSONError(w, http.StatusInternalServerError, "internal error")
}
