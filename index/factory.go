package index

import (
	"fmt"

	"github.com/hupe1980/docdb/document"
)

// NewIndexer builds the indexer variant for an index type and field type.
func NewIndexer(info Info, ft document.FieldType) (Indexer, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}

	switch info.Type {
	case TypeInvertedBitmap:
		switch {
		case ft.IsInteger():
			return NewBitmapInteger(info, ft), nil
		case ft.IsFloating():
			return NewBitmapDouble(info, ft), nil
		case ft == document.FieldTypeString:
			return NewBitmapString(info, ft), nil
		case ft == document.FieldTypeBlob:
			return NewBitmapBlob(info, ft), nil
		}
	case TypeVector:
		switch ft {
		case document.FieldTypeInt8:
			return NewVectorInteger[int8](info, ft), nil
		case document.FieldTypeInt16:
			return NewVectorInteger[int16](info, ft), nil
		case document.FieldTypeInt32:
			return NewVectorInteger[int32](info, ft), nil
		case document.FieldTypeInt64:
			return NewVectorInteger[int64](info, ft), nil
		case document.FieldTypeFloat, document.FieldTypeDouble:
			return NewVectorDouble(info, ft), nil
		case document.FieldTypeString:
			return NewVectorString(info, ft), nil
		case document.FieldTypeBlob:
			return NewVectorBlob(info, ft), nil
		}
	}

	return nil, fmt.Errorf("%w: index %q of type %s cannot index %s field %q",
		ErrInvalidArgument, info.Name, info.Type, ft, info.Column)
}
