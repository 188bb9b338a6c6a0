package logger

import (
	"time"
)

// Field keys shared across packages.
const (
	FieldComponent = "component"
	FieldService   = "service"
	FieldSessionID = "session_id"
	FieldEntryID   = "entry_id"
	FieldWindow    = "window"
	FieldState     = "state"
	FieldOperation = "operation"
	FieldStatus    = "status"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	logger.Info("fired", logger.Fields("entry_id", id, "window", 1))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for an operation that failed.
func ErrorFields(op string, err error) map[string]interface{} {
	f := map[string]interface{}{FieldOperation: op}
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// DurationFields creates fields for a timed operation.
func DurationFields(op string, d time.Duration) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldDuration:  d.Milliseconds(),
	}
}
