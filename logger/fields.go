package logger

// Field keys shared across packages so log queries can rely on them.
const (
	FieldService   = "service"
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldJobID     = "job_id"
	FieldAdapter   = "adapter"
	FieldFamily    = "family"
	FieldSelector  = "selector"
	FieldStage     = "stage"
	FieldState     = "state"
	FieldPath      = "path"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
)

// Fields builds a field map from alternating keys and values. Non-string
// keys and a trailing key without a value are dropped.
//
//	log.Info("acquired", logger.Fields(logger.FieldAdapter, "ytdlp", "bytes", n))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields describes a failed operation.
func ErrorFields(op string, err error) map[string]interface{} {
	return MergeWithError(Fields(FieldOperation, op), err)
}

// MergeWithError sets the error field on fields, allocating when nil.
func MergeWithError(fields map[string]interface{}, err error) map[string]interface{} {
	if fields == nil {
		fields = make(map[string]interface{}, 1)
	}
	fields[FieldError] = err.Error()
	return fields
}
