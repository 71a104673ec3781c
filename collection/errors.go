package collection

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by operations on a closed collection.
	ErrClosed = errors.New("collection: closed")
	// ErrInconsistent is returned when indexes and stored documents disagree.
	ErrInconsistent = errors.New("collection: index and blob log are inconsistent")
	// ErrDocumentNotFound is returned for IDs that were never assigned, were
	// deleted or belong to a failed write.
	ErrDocumentNotFound = errors.New("collection: document not found")
)

// DocumentError describes a document that could not be inserted.
type DocumentError struct {
	// Index is the position of the document in the batch.
	Index int
	Err   error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("collection: document %d: %v", e.Index, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }
