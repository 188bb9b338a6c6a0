package errors

// ErrorCode is a machine-readable error code.
type ErrorCode string

// Capture errors
const (
	// ErrCodePermissionDenied means microphone access was refused or no device exists.
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	// ErrCodeDeviceBusy means the microphone is already held by another session.
	ErrCodeDeviceBusy ErrorCode = "DEVICE_BUSY"
	// ErrCodeSessionActive means a recording session is already in progress.
	ErrCodeSessionActive ErrorCode = "SESSION_ACTIVE"
	// ErrCodeInvalidState means the operation is not allowed in the current session state.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"
	// ErrCodeDecodeFailed means a compressed recording could not be decoded.
	ErrCodeDecodeFailed ErrorCode = "DECODE_FAILED"
	// ErrCodeUploadFailed means the remote API rejected or never received an artifact.
	ErrCodeUploadFailed ErrorCode = "UPLOAD_FAILED"
)

// Schedule errors
const (
	// ErrCodeTriggerFailed means a start or stop trigger call did not succeed.
	ErrCodeTriggerFailed ErrorCode = "TRIGGER_FAILED"
)

// Availability errors (retryable)
const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeConnectionFailed   ErrorCode = "CONNECTION_FAILED"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
)

// Generic errors
const (
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeConnectionFailed:   true,
	ErrCodeTimeout:            true,
	ErrCodeRateLimited:        true,
	ErrCodeExternalService:    true,
	ErrCodeTriggerFailed:      true,
}

// IsRetryableCode reports whether errors with this code are worth retrying by default.
// Upload failures are retried by the caller from the Reviewing state, never automatically.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
