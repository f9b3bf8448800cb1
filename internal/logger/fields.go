package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, propagated through the call chain via context.
const (
	FieldRequestID = "request_id"
	FieldComponent = "component"
	FieldUserID    = "user_id"
	FieldProfileID = "profile_id"
	FieldProductID = "product_id"
	FieldProvider  = "provider"
)

// Metric fields, attached per entry for aggregation and alerting.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldStatus     = "status"
	FieldCachePath  = "cache_path"
)
