package document

import (
	"fmt"
	"math"
)

// FieldType is the declared type of a schema field.
type FieldType int32

const (
	FieldTypeInt8 FieldType = iota + 1
	FieldTypeInt16
	FieldTypeInt32
	FieldTypeInt64
	FieldTypeFloat
	FieldTypeDouble
	FieldTypeString
	FieldTypeVector
	FieldTypeComplex
	FieldTypeUnion
	FieldTypeBlob
)

var fieldTypeNames = map[FieldType]string{
	FieldTypeInt8:    "int8",
	FieldTypeInt16:   "int16",
	FieldTypeInt32:   "int32",
	FieldTypeInt64:   "int64",
	FieldTypeFloat:   "float",
	FieldTypeDouble:  "double",
	FieldTypeString:  "string",
	FieldTypeVector:  "vector",
	FieldTypeComplex: "complex",
	FieldTypeUnion:   "union",
	FieldTypeBlob:    "blob",
}

func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("FieldType(%d)", int32(t))
}

// ParseFieldType returns the FieldType with the given name.
func ParseFieldType(name string) (FieldType, error) {
	for t, n := range fieldTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown field type %q", ErrInvalidSchema, name)
}

// IsInteger reports whether t is one of the integer types.
func (t FieldType) IsInteger() bool {
	return t >= FieldTypeInt8 && t <= FieldTypeInt64
}

// IsFloating reports whether t is FLOAT or DOUBLE.
func (t FieldType) IsFloating() bool {
	return t == FieldTypeFloat || t == FieldTypeDouble
}

// IntegerRange returns the bounds representable by an integer type.
func (t FieldType) IntegerRange() (lo, hi int64) {
	switch t {
	case FieldTypeInt8:
		return math.MinInt8, math.MaxInt8
	case FieldTypeInt16:
		return math.MinInt16, math.MaxInt16
	case FieldTypeInt32:
		return math.MinInt32, math.MaxInt32
	default:
		return math.MinInt64, math.MaxInt64
	}
}

// SchemaType identifies a schema encoding.
type SchemaType int32

const (
	// SchemaTypeJSON describes JSON documents (see package jsondoc).
	SchemaTypeJSON SchemaType = 1
)

func (t SchemaType) String() string {
	switch t {
	case SchemaTypeJSON:
		return "json"
	default:
		return fmt.Sprintf("SchemaType(%d)", int32(t))
	}
}

// Field describes a schema field. Complex fields carry their children.
type Field struct {
	Name   string
	Type   FieldType
	Fields []Field
}

// Document is a schema-typed record.
type Document interface {
	StringValue(field string) (string, error)
	IntegerValue(field string) (int64, error)
	FloatValue(field string) (float64, error)
	BlobValue(field string) ([]byte, error)
	// SubDocument returns the complex field as a document.
	SubDocument(field string) (Document, error)
	// VerifyFieldForRead fails unless field exists with type ft.
	VerifyFieldForRead(field string, ft FieldType) error
	// Raw returns the encoded document.
	Raw() []byte
	// Verify checks the whole document against its schema.
	Verify() error
}

// Schema describes the documents of a collection.
type Schema interface {
	Type() SchemaType
	// Bytes returns the encoded schema as it was supplied.
	Bytes() []byte
	// FieldType returns the type of the field at a dotted path.
	FieldType(path string) (FieldType, error)
	RootFields() []Field
	NewDocument(raw []byte) (Document, error)
}

// SchemaFactory builds schemas from their encoded form.
type SchemaFactory interface {
	NewSchema(t SchemaType, data []byte) (Schema, error)
}

// Columns flattens the schema into dotted paths of scalar fields.
func Columns(s Schema) map[string]FieldType {
	out := make(map[string]FieldType)
	var walk func(prefix string, fields []Field)
	walk = func(prefix string, fields []Field) {
		for _, f := range fields {
			path := f.Name
			if prefix != "" {
				path = prefix + "." + f.Name
			}
			if f.Type == FieldTypeComplex {
				walk(path, f.Fields)
				continue
			}
			out[path] = f.Type
		}
	}
	walk("", s.RootFields())
	return out
}
