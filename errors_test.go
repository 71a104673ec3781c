package docdb

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hupe1980/docdb/catalog"
	"github.com/hupe1980/docdb/collection"
	"github.com/hupe1980/docdb/document"
	"github.com/hupe1980/docdb/index"
	"github.com/hupe1980/docdb/internal/blob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"DocumentNotFound", fmt.Errorf("read: %w", collection.ErrDocumentNotFound), ErrNotFound},
		{"CollectionNotFound", catalog.ErrNotFound, ErrNotFound},
		{"CollectionExists", catalog.ErrExists, ErrExists},
		{"CollectionClosed", collection.ErrClosed, ErrClosed},
		{"BlobClosed", blob.ErrClosed, ErrClosed},
		{"Checksum", blob.ErrChecksumMismatch, ErrCorrupt},
		{"Inconsistent", collection.ErrInconsistent, ErrCorrupt},
		{"NoIndex", index.ErrNoIndex, ErrInvalidArgument},
		{"Operator", &index.OperatorError{Index: "age_bmp", Op: index.OpLessThan}, ErrInvalidArgument},
		{"TypeMismatch", &document.FieldError{Field: "age", Err: document.ErrTypeMismatch}, ErrInvalidArgument},
		{"TooLarge", blob.ErrBlobTooLarge, ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.NoError(t, translateError(nil))

	other := errors.New("disk on fire")
	assert.Same(t, other, translateError(other))
}

func TestTranslateError_Typed(t *testing.T) {
	t.Run("Document", func(t *testing.T) {
		err := translateError(&collection.DocumentError{Index: 3, Err: document.ErrInvalidDocument})

		var de *ErrInvalidDocument
		require.ErrorAs(t, err, &de)
		assert.Equal(t, 3, de.Index)
		assert.ErrorIs(t, err, ErrInvalidArgument)
		assert.ErrorIs(t, err, document.ErrInvalidDocument)
	})

	t.Run("CorruptRecord", func(t *testing.T) {
		err := translateError(fmt.Errorf("get: %w", &blob.CorruptError{FileKey: 2, Offset: 64, Err: blob.ErrCorrupt}))

		var ce *ErrCorruptRecord
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, int32(2), ce.FileKey)
		assert.Equal(t, int64(64), ce.Offset)
		assert.ErrorIs(t, err, ErrCorrupt)
		assert.ErrorIs(t, err, blob.ErrCorrupt)
	})
}
