package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"finanzas/internal/core"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if b.body != nil {
		if err := json.NewEncoder(w).Encode(b.body); err != nil {
			slog.Error("Failed to encode response body", "error", err)
		}
	}
}

// ResultResponse builds the response for one upload outcome.
func ResultResponse(result core.IngestionResult, err error) *JSONResponseBuilder {
	if err == nil {
		return NewJSONResponse().Body(result)
	}
	return NewJSONResponse().
		Status(StatusFor(err)).
		Body(core.IngestionResult{Success: false, Message: result.Message})
}

// ErrorResponse builds a failure body for err using its user-facing text.
func ErrorResponse(err error) *JSONResponseBuilder {
	return ResultResponse(core.Failed(err), err)
}

// MethodNotAllowedError creates a 405 Method Not Allowed error response.
func MethodNotAllowedError(allowedMethods string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(http.StatusMethodNotAllowed).
		Header("Allow", allowedMethods).
		Body(core.IngestionResult{Success: false, Message: "Método no permitido"})
}

// StatusFor maps an ingestion error onto its HTTP status.
func StatusFor(err error) int {
	var ie *core.IngestError
	if !errors.As(err, &ie) {
		return http.StatusInternalServerError
	}
	switch ie.Kind {
	case core.KindUnauthenticated:
		return http.StatusUnauthorized
	case core.KindMissingParameters, core.KindInvalidFileType, core.KindMalformedRequest:
		return http.StatusBadRequest
	case core.KindFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case core.KindInvalidDateFormat, core.KindInvalidAmount, core.KindEmptyBatch:
		return http.StatusUnprocessableEntity
	case core.KindInsertionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
