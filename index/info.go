package index

import (
	"fmt"
	"strconv"

	"github.com/hupe1980/docdb/document"
)

// IndexType selects the indexer family.
type IndexType int32

const (
	// TypeInvertedBitmap maps each value to a compressed bitmap of IDs.
	TypeInvertedBitmap IndexType = 1
	// TypeVector stores one value per document ID.
	TypeVector IndexType = 2
)

func (t IndexType) String() string {
	switch t {
	case TypeInvertedBitmap:
		return "inverted_bitmap"
	case TypeVector:
		return "vector"
	default:
		return "IndexType(" + strconv.Itoa(int(t)) + ")"
	}
}

// Info is the definition of an index.
type Info struct {
	Name      string
	Type      IndexType
	Column    string
	Ascending bool
}

// Validate checks the fields that do not depend on the schema.
func (i Info) Validate() error {
	if i.Name == "" {
		return fmt.Errorf("%w: index name is empty", ErrInvalidArgument)
	}
	if i.Column == "" {
		return fmt.Errorf("%w: index %q has no column", ErrInvalidArgument, i.Name)
	}
	if i.Type != TypeInvertedBitmap && i.Type != TypeVector {
		return fmt.Errorf("%w: index %q has unknown type %s", ErrInvalidArgument, i.Name, i.Type)
	}
	return nil
}

// Stat describes a live indexer.
type Stat struct {
	Info      Info
	FieldType document.FieldType
}

// Kind identifies the concrete indexer variant.
type Kind int

const (
	KindBitmapInteger Kind = iota + 1
	KindBitmapString
	KindBitmapDouble
	KindBitmapBlob
	KindVectorInteger
	KindVectorDouble
	KindVectorString
	KindVectorBlob
)

func (k Kind) String() string {
	switch k {
	case KindBitmapInteger:
		return "bitmap_integer"
	case KindBitmapString:
		return "bitmap_string"
	case KindBitmapDouble:
		return "bitmap_double"
	case KindBitmapBlob:
		return "bitmap_blob"
	case KindVectorInteger:
		return "vector_integer"
	case KindVectorDouble:
		return "vector_double"
	case KindVectorString:
		return "vector_string"
	case KindVectorBlob:
		return "vector_blob"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}
