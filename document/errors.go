package document

import (
	"errors"
	"fmt"
)

var (
	// ErrFieldNotFound is returned when a field is not declared by the schema.
	ErrFieldNotFound = errors.New("document: field not found")
	// ErrTypeMismatch is returned when a field is read as the wrong type.
	ErrTypeMismatch = errors.New("document: field type mismatch")
	// ErrInvalidDocument is returned for undecodable document bytes.
	ErrInvalidDocument = errors.New("document: invalid document")
	// ErrInvalidSchema is returned for undecodable schemas.
	ErrInvalidSchema = errors.New("document: invalid schema")
	// ErrUnsupportedSchemaType is returned by factories for unknown schema types.
	ErrUnsupportedSchemaType = errors.New("document: unsupported schema type")
)

// FieldError describes a failed field access.
type FieldError struct {
	Field    string
	Expected FieldType
	Actual   FieldType
	Err      error
}

func (e *FieldError) Error() string {
	if e.Actual != 0 {
		return fmt.Sprintf("%v: %q is %s, requested %s", e.Err, e.Field, e.Actual, e.Expected)
	}
	return fmt.Sprintf("%v: %q", e.Err, e.Field)
}

func (e *FieldError) Unwrap() error { return e.Err }
