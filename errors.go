package docdb

import (
	"errors"
	"fmt"

	"github.com/hupe1980/docdb/catalog"
	"github.com/hupe1980/docdb/collection"
	"github.com/hupe1980/docdb/document"
	"github.com/hupe1980/docdb/index"
	"github.com/hupe1980/docdb/internal/blob"
)

var (
	// ErrNotFound is returned when a database, collection or document does
	// not exist.
	ErrNotFound = errors.New("docdb: not found")

	// ErrExists is returned when a collection name is already taken.
	ErrExists = errors.New("docdb: already exists")

	// ErrInvalidArgument is returned for malformed documents, schemas,
	// index definitions and constraints.
	ErrInvalidArgument = errors.New("docdb: invalid argument")

	// ErrCorrupt is returned when stored data cannot be decoded.
	ErrCorrupt = errors.New("docdb: corrupt data")

	// ErrClosed is returned by operations on a closed database or collection.
	ErrClosed = errors.New("docdb: closed")
)

// ErrInvalidDocument indicates that a document of a batch failed decoding
// or validation. It matches ErrInvalidArgument.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrInvalidDocument struct {
	// Index is the position of the document in the batch.
	Index int
	cause error
}

func (e *ErrInvalidDocument) Error() string {
	return fmt.Sprintf("invalid document at index %d: %v", e.Index, e.cause)
}

func (e *ErrInvalidDocument) Unwrap() error { return e.cause }

func (e *ErrInvalidDocument) Is(target error) bool { return target == ErrInvalidArgument }

// ErrCorruptRecord indicates a blob log record that failed decoding or
// checksum verification. It matches ErrCorrupt.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrCorruptRecord struct {
	FileKey int32
	Offset  int64
	cause   error
}

func (e *ErrCorruptRecord) Error() string {
	return fmt.Sprintf("corrupt record in data file %d at offset %d: %v", e.FileKey, e.Offset, e.cause)
}

func (e *ErrCorruptRecord) Unwrap() error { return e.cause }

func (e *ErrCorruptRecord) Is(target error) bool { return target == ErrCorrupt }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Typed errors first, they carry positions.
	var de *collection.DocumentError
	if errors.As(err, &de) {
		return &ErrInvalidDocument{Index: de.Index, cause: err}
	}
	var ce *blob.CorruptError
	if errors.As(err, &ce) {
		return &ErrCorruptRecord{FileKey: ce.FileKey, Offset: ce.Offset, cause: err}
	}

	// Not found unification.
	if errors.Is(err, collection.ErrDocumentNotFound) ||
		errors.Is(err, catalog.ErrNotFound) ||
		errors.Is(err, blob.ErrFileNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if errors.Is(err, catalog.ErrExists) || errors.Is(err, index.ErrIndexExists) {
		return fmt.Errorf("%w: %w", ErrExists, err)
	}

	if errors.Is(err, collection.ErrClosed) || errors.Is(err, blob.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}

	if errors.Is(err, blob.ErrCorrupt) ||
		errors.Is(err, blob.ErrChecksumMismatch) ||
		errors.Is(err, collection.ErrInconsistent) {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	// Argument normalization.
	if errors.Is(err, index.ErrInvalidArgument) ||
		errors.Is(err, index.ErrUnsupportedOperator) ||
		errors.Is(err, index.ErrNoIndex) ||
		errors.Is(err, blob.ErrBlobTooLarge) ||
		errors.Is(err, document.ErrFieldNotFound) ||
		errors.Is(err, document.ErrTypeMismatch) ||
		errors.Is(err, document.ErrInvalidDocument) ||
		errors.Is(err, document.ErrInvalidSchema) ||
		errors.Is(err, document.ErrUnsupportedSchemaType) {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	return err
}
