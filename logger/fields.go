package logger

import (
	"time"
)

// Standard field key constants for structured logging.
const (
	FieldService   = "service"
	FieldComponent = "component"
	FieldRunID     = "run_id"
	FieldWorker    = "worker"
	FieldKey       = "key"
	FieldKind      = "kind"
	FieldPage      = "page"
	FieldMarker    = "marker"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	logger.Info("done", logger.Fields("key", "a.txt", "worker", 3))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for an item that failed.
func ErrorFields(key string, err error) map[string]interface{} {
	return map[string]interface{}{
		FieldKey:   key,
		FieldError: err.Error(),
	}
}

// DurationFields creates fields for a timed operation.
func DurationFields(d time.Duration) map[string]interface{} {
	return map[string]interface{}{
		FieldDuration: d.Milliseconds(),
	}
}
