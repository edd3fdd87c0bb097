package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies ingestion failures.
type ErrorKind string

const (
	KindUnauthenticated   ErrorKind = "unauthenticated"
	KindMissingParameters ErrorKind = "missing_parameters"
	KindInvalidFileType   ErrorKind = "invalid_file_type"
	KindMalformedRequest  ErrorKind = "malformed_request"
	KindFileTooLarge      ErrorKind = "file_too_large"
	KindInvalidDateFormat ErrorKind = "invalid_date_format"
	KindInvalidAmount     ErrorKind = "invalid_amount"
	KindEmptyBatch        ErrorKind = "empty_batch"
	KindInsertionFailed   ErrorKind = "insertion_failed"
)

// IngestError is the single error type surfaced by the ingestion pipeline.
// Raw holds the offending input value, if any.
type IngestError struct {
	Kind ErrorKind
	Raw  string
	Err  error

	// Reverted reports, for insertion failures, whether every previously
	// inserted row was deleted.
	Reverted bool
}

// Sentinels for errors.Is. They compare by Kind only.
var (
	ErrUnauthenticated   = &IngestError{Kind: KindUnauthenticated}
	ErrMissingParameters = &IngestError{Kind: KindMissingParameters}
	ErrInvalidFileType   = &IngestError{Kind: KindInvalidFileType}
	ErrMalformedRequest  = &IngestError{Kind: KindMalformedRequest}
	ErrFileTooLarge      = &IngestError{Kind: KindFileTooLarge}
	ErrInvalidDateFormat = &IngestError{Kind: KindInvalidDateFormat}
	ErrInvalidAmount     = &IngestError{Kind: KindInvalidAmount}
	ErrEmptyBatch        = &IngestError{Kind: KindEmptyBatch}
	ErrInsertionFailed   = &IngestError{Kind: KindInsertionFailed}
)

// InvalidDateFormat reports a date that is not DD/MM/YYYY.
func InvalidDateFormat(raw string) error {
	return &IngestError{Kind: KindInvalidDateFormat, Raw: raw}
}

// InvalidAmount reports an amount that is not a decimal literal.
func InvalidAmount(raw string, err error) error {
	return &IngestError{Kind: KindInvalidAmount, Raw: raw, Err: err}
}

// InvalidFileType reports a payload that cannot be read as delimited text.
func InvalidFileType(err error) error {
	return &IngestError{Kind: KindInvalidFileType, Err: err}
}

// InsertionFailed reports a failed chunk insert. reverted tells whether the
// compensating delete removed every earlier row.
func InsertionFailed(err error, reverted bool) error {
	return &IngestError{Kind: KindInsertionFailed, Err: err, Reverted: reverted}
}

func (e *IngestError) Error() string {
	switch {
	case e.Err != nil && e.Raw != "":
		return fmt.Sprintf("%s %q: %v", e.Kind, e.Raw, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Raw != "":
		return fmt.Sprintf("%s %q", e.Kind, e.Raw)
	default:
		return string(e.Kind)
	}
}

func (e *IngestError) Unwrap() error { return e.Err }

// Is matches any IngestError of the same kind.
func (e *IngestError) Is(target error) bool {
	t, ok := target.(*IngestError)
	return ok && t.Kind == e.Kind
}

// Message returns the user-facing text for the error.
func (e *IngestError) Message() string {
	switch e.Kind {
	case KindUnauthenticated:
		return "Usuario no autenticado"
	case KindMissingParameters:
		return "Faltan datos obligatorios"
	case KindInvalidFileType:
		return "El archivo no es válido"
	case KindMalformedRequest:
		return "Formato de solicitud inválido"
	case KindFileTooLarge:
		return "El archivo es demasiado grande"
	case KindInvalidDateFormat:
		return "Formato de fecha inválido: " + e.Raw
	case KindInvalidAmount:
		return "Valor inválido: " + e.Raw
	case KindEmptyBatch:
		return "No se encontraron transacciones válidas en el archivo."
	case KindInsertionFailed:
		reason := "error desconocido"
		if e.Err != nil {
			reason = e.Err.Error()
		}
		if e.Reverted {
			return "Error en la inserción: " + reason + ". Se ha revertido el proceso."
		}
		return "Error en la inserción: " + reason + ". La reversión quedó pendiente."
	default:
		return string(e.Kind)
	}
}

// UserMessage extracts the user-facing text from any error.
func UserMessage(err error) string {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Message()
	}
	if err == nil {
		return ""
	}
	return "Error al procesar el archivo."
}

// KindOf returns the kind of err, or "" when it is not an IngestError.
func KindOf(err error) ErrorKind {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}
