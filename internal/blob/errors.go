package blob

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by operations on a closed Manager.
	ErrClosed = errors.New("blob: manager is closed")
	// ErrCorrupt is returned when a record cannot be decoded.
	ErrCorrupt = errors.New("blob: corrupt record")
	// ErrChecksumMismatch is returned when a record fails CRC verification.
	ErrChecksumMismatch = errors.New("blob: checksum mismatch")
	// ErrBlobTooLarge is returned when a record exceeds the maximum data file
	// size.
	ErrBlobTooLarge = errors.New("blob: blob exceeds maximum data file size")
	// ErrFileNotFound is returned when a file key is unknown to the catalog.
	ErrFileNotFound = errors.New("blob: data file not found")
)

// CorruptError describes where a corrupt record was found.
type CorruptError struct {
	FileKey int32
	Offset  int64
	Err     error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("blob: file %d offset %d: %v", e.FileKey, e.Offset, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }
