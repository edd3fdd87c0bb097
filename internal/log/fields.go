package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldErrorKind  = "error_kind"
	FieldOperation  = "operation"
	FieldUserID     = "user_id"
	FieldAccountID  = "bank_account_id"
	FieldCurrency   = "currency_code"
	FieldCategoryID = "category_id"
	FieldFileName   = "file_name"
	FieldFileBytes  = "file_bytes"
	FieldRows       = "rows"
	FieldChunk      = "chunk"
	FieldChunks     = "chunks"
	FieldInserted   = "inserted"
	FieldAttempt    = "attempt"
	FieldOrphaned   = "orphaned_ids"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentIngest    = "ingest"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentAuth      = "auth"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
	ComponentCLI       = "cli"
)

// Operations defines standard operation names
const (
	OpInsert     = "insert"
	OpDelete     = "delete"
	OpFind       = "find"
	OpParse      = "parse"
	OpCompensate = "compensate"
	OpPublish    = "publish"
	OpResolve    = "resolve"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithUpload adds the declared upload target
func (f LogFields) WithUpload(userID, accountID, currency, categoryID string) LogFields {
	f[FieldUserID] = userID
	f[FieldAccountID] = accountID
	f[FieldCurrency] = currency
	f[FieldCategoryID] = categoryID
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
