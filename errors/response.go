package errors

import (
	stderrors "errors"
)

// Envelope is the JSON error body exchanged with the monitoring API:
// a human-readable "error" string plus optional machine-readable fields.
type Envelope struct {
	Error     string         `json:"error"`
	Code      ErrorCode      `json:"code,omitempty"`
	Retryable bool           `json:"retryable,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// ToResponse converts an AppError to an Envelope for JSON serialization.
func (e *AppError) ToResponse() Envelope {
	return Envelope{
		Error:     e.Message,
		Code:      e.Code,
		Retryable: e.Retryable,
		Details:   e.Details,
	}
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// ToEnvelope renders any error. Non-AppErrors are reported as internal errors
// so causes never leak to clients.
func ToEnvelope(err error) (int, Envelope) {
	if appErr, ok := AsAppError(err); ok {
		status := appErr.HTTPStatus
		if status == 0 {
			status = 500
		}
		return status, appErr.ToResponse()
	}
	internal := Internal(err)
	return internal.HTTPStatus, internal.ToResponse()
}
