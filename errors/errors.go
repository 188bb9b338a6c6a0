// Package errors provides the structured error type shared by every voicecap
// package, with machine-readable codes, HTTP status mapping and retryable detection.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable message safe to show an operator.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is matches another *AppError by code, so errors.Is(err, errors.New(code, "", 0)) works.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New derives Retryable from the code.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// Wrap attaches cause to a new AppError. It returns nil when cause is nil.
func Wrap(cause error, code ErrorCode, message string) error {
	if cause == nil {
		return nil
	}
	e := New(code, message, http.StatusInternalServerError)
	e.Cause = cause
	return e
}

// HasCode reports whether any AppError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var appErr *AppError
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// IsRetryable reports whether err is an AppError marked retryable.
func IsRetryable(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Retryable
}

// --- Capture errors ---

// PermissionDenied reports that the microphone could not be acquired.
func PermissionDenied(cause error) *AppError {
	return &AppError{
		Code: ErrCodePermissionDenied, Message: "Microphone access was denied or no input device is available.",
		HTTPStatus: http.StatusForbidden, Cause: cause,
	}
}

// DeviceBusy reports that the microphone is held by another session.
func DeviceBusy() *AppError {
	return &AppError{
		Code: ErrCodeDeviceBusy, Message: "The microphone is already in use by another recording.",
		HTTPStatus: http.StatusConflict,
	}
}

// SessionActive reports a start request while a session is still in state.
func SessionActive(state string) *AppError {
	return &AppError{
		Code: ErrCodeSessionActive, Message: "A recording session is already in progress.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"state": state},
	}
}

// InvalidState reports an operation that the current session state does not allow.
func InvalidState(op, state string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidState, Message: fmt.Sprintf("Cannot %s while the session is %s.", op, state),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"operation": op, "state": state},
	}
}

// DecodeFailed reports a recording that could not be turned back into samples.
func DecodeFailed(cause error) *AppError {
	return &AppError{
		Code: ErrCodeDecodeFailed, Message: "The recording could not be decoded. Discard it and record again.",
		HTTPStatus: http.StatusUnprocessableEntity, Cause: cause,
	}
}

// UploadFailed reports a rejected or failed artifact upload. An empty message
// falls back to a generic one.
func UploadFailed(message string, status int, cause error) *AppError {
	if message == "" {
		message = "Failed to upload the recording."
	}
	e := &AppError{
		Code: ErrCodeUploadFailed, Message: message,
		HTTPStatus: http.StatusBadGateway, Cause: cause,
	}
	if status > 0 {
		e.Details = map[string]any{"status": status}
	}
	return e
}

// --- Schedule errors ---

// TriggerFailed reports a start or stop trigger call that did not succeed.
func TriggerFailed(entryID, action string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeTriggerFailed, Message: fmt.Sprintf("Recording %s trigger failed for schedule %s.", action, entryID),
		HTTPStatus: http.StatusBadGateway, Retryable: true, Cause: cause,
		Details: map[string]any{"entry_id": entryID, "action": action},
	}
}

// --- Generic errors ---

// ServiceUnavailable is returned while a circuit breaker is open.
func ServiceUnavailable(service string) *AppError {
	return &AppError{
		Code: ErrCodeServiceUnavailable, Message: fmt.Sprintf("The %s is temporarily unavailable. Please try again.", service),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"service": service},
	}
}

// Timeout reports a remote call that ran past its deadline.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: "The request took too long. Please try again.",
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// NotFound reports a resource the monitoring API does not know. An empty
// message falls back to a generic one.
func NotFound(resource, message string) *AppError {
	if message == "" {
		message = fmt.Sprintf("The requested %s was not found.", resource)
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: message,
		HTTPStatus: http.StatusNotFound, Details: map[string]any{"resource": resource},
	}
}

// InvalidInput rejects one argument before any call is made.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Details: details,
	}
}

// Validation carries a pre-formatted list of field errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// Internal hides cause behind a generic message, e.g. a recovered panic.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}

// ExternalServiceError wraps an unclassified failure of a remote dependency.
func ExternalServiceError(service string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeExternalService, Message: fmt.Sprintf("The %s service encountered an error. Please try again.", service),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"service": service}, Cause: cause,
	}
}
