package jsondoc

import (
	"fmt"
	"strings"

	"github.com/hupe1980/docdb/codec"
	"github.com/hupe1980/docdb/document"
)

type fieldSpec struct {
	Name   string      `json:"name"`
	Type   string      `json:"type"`
	Fields []fieldSpec `json:"fields,omitempty"`
}

type schemaSpec struct {
	Fields []fieldSpec `json:"fields"`
}

// Schema is a parsed JSON document schema.
type Schema struct {
	raw    []byte
	root   *level
	fields []document.Field
}

// level is the field table of one object nesting level.
type level struct {
	types    map[string]document.FieldType
	children map[string]*level
}

// NewSchema parses a JSON schema description.
func NewSchema(data []byte) (*Schema, error) {
	var spec schemaSpec
	if err := codec.Default.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%w: %w", document.ErrInvalidSchema, err)
	}
	if len(spec.Fields) == 0 {
		return nil, fmt.Errorf("%w: no fields", document.ErrInvalidSchema)
	}

	root, fields, err := buildLevel(spec.Fields)
	if err != nil {
		return nil, err
	}
	return &Schema{
		raw:    append([]byte(nil), data...),
		root:   root,
		fields: fields,
	}, nil
}

// MustSchema is like NewSchema but panics on error.
func MustSchema(data string) *Schema {
	s, err := NewSchema([]byte(data))
	if err != nil {
		panic(err)
	}
	return s
}

func buildLevel(specs []fieldSpec) (*level, []document.Field, error) {
	l := &level{
		types:    make(map[string]document.FieldType, len(specs)),
		children: make(map[string]*level),
	}
	fields := make([]document.Field, 0, len(specs))
	for _, fs := range specs {
		if fs.Name == "" || strings.Contains(fs.Name, ".") {
			return nil, nil, fmt.Errorf("%w: invalid field name %q", document.ErrInvalidSchema, fs.Name)
		}
		if _, dup := l.types[fs.Name]; dup {
			return nil, nil, fmt.Errorf("%w: duplicate field %q", document.ErrInvalidSchema, fs.Name)
		}
		ft, err := document.ParseFieldType(fs.Type)
		if err != nil {
			return nil, nil, err
		}
		switch ft {
		case document.FieldTypeVector, document.FieldTypeUnion:
			return nil, nil, fmt.Errorf("%w: field %q: %s is not supported", document.ErrInvalidSchema, fs.Name, ft)
		}

		field := document.Field{Name: fs.Name, Type: ft}
		if ft == document.FieldTypeComplex {
			if len(fs.Fields) == 0 {
				return nil, nil, fmt.Errorf("%w: complex field %q has no fields", document.ErrInvalidSchema, fs.Name)
			}
			child, childFields, err := buildLevel(fs.Fields)
			if err != nil {
				return nil, nil, err
			}
			l.children[fs.Name] = child
			field.Fields = childFields
		}
		l.types[fs.Name] = ft
		fields = append(fields, field)
	}
	return l, fields, nil
}

// Type implements document.Schema.
func (s *Schema) Type() document.SchemaType {
	return document.SchemaTypeJSON
}

// Bytes implements document.Schema.
func (s *Schema) Bytes() []byte {
	return s.raw
}

// RootFields implements document.Schema.
func (s *Schema) RootFields() []document.Field {
	return s.fields
}

// FieldType implements document.Schema.
func (s *Schema) FieldType(path string) (document.FieldType, error) {
	l := s.root
	tokens := document.SplitPath(path)
	for i, tok := range tokens {
		ft, ok := l.types[tok]
		if !ok {
			return 0, &document.FieldError{Field: path, Err: document.ErrFieldNotFound}
		}
		if i == len(tokens)-1 {
			return ft, nil
		}
		child, ok := l.children[tok]
		if !ok {
			return 0, &document.FieldError{Field: path, Expected: document.FieldTypeComplex, Actual: ft, Err: document.ErrTypeMismatch}
		}
		l = child
	}
	return 0, &document.FieldError{Field: path, Err: document.ErrFieldNotFound}
}

// NewDocument implements document.Schema.
func (s *Schema) NewDocument(raw []byte) (document.Document, error) {
	return newDocument(s.root, raw)
}

// Factory builds JSON schemas.
type Factory struct{}

// NewSchema implements document.SchemaFactory.
func (Factory) NewSchema(t document.SchemaType, data []byte) (document.Schema, error) {
	if t != document.SchemaTypeJSON {
		return nil, fmt.Errorf("%w: %s", document.ErrUnsupportedSchemaType, t)
	}
	return NewSchema(data)
}
