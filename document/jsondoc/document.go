package jsondoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/hupe1980/docdb/codec"
	"github.com/hupe1980/docdb/document"
)

// Document is a JSON object bound to a schema level.
type Document struct {
	raw    []byte
	level  *level
	values map[string]json.RawMessage
}

var _ document.Document = (*Document)(nil)

func newDocument(l *level, raw []byte) (*Document, error) {
	var values map[string]json.RawMessage
	if err := codec.Default.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("%w: %w", document.ErrInvalidDocument, err)
	}
	if values == nil {
		return nil, fmt.Errorf("%w: not a JSON object", document.ErrInvalidDocument)
	}
	return &Document{raw: raw, level: l, values: values}, nil
}

// Raw implements document.Document.
func (d *Document) Raw() []byte {
	return d.raw
}

func (d *Document) lookup(field string, want func(document.FieldType) bool, expected document.FieldType) (json.RawMessage, bool, error) {
	ft, ok := d.level.types[field]
	if !ok {
		return nil, false, &document.FieldError{Field: field, Err: document.ErrFieldNotFound}
	}
	if !want(ft) {
		return nil, false, &document.FieldError{Field: field, Expected: expected, Actual: ft, Err: document.ErrTypeMismatch}
	}
	v, present := d.values[field]
	if !present || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil, false, nil
	}
	return v, true, nil
}

// IntegerValue implements document.Document.
func (d *Document) IntegerValue(field string) (int64, error) {
	v, ok, err := d.lookup(field, document.FieldType.IsInteger, document.FieldTypeInt64)
	if err != nil || !ok {
		return 0, err
	}
	var n json.Number
	if err := codec.Default.Unmarshal(v, &n); err != nil {
		return 0, d.invalid(field, err)
	}
	i, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return 0, d.invalid(field, err)
	}
	lo, hi := d.level.types[field].IntegerRange()
	if i < lo || i > hi {
		return 0, d.invalid(field, fmt.Errorf("%d out of range for %s", i, d.level.types[field]))
	}
	return i, nil
}

// FloatValue implements document.Document.
func (d *Document) FloatValue(field string) (float64, error) {
	v, ok, err := d.lookup(field, document.FieldType.IsFloating, document.FieldTypeDouble)
	if err != nil || !ok {
		return 0, err
	}
	var f float64
	if err := codec.Default.Unmarshal(v, &f); err != nil {
		return 0, d.invalid(field, err)
	}
	if d.level.types[field] == document.FieldTypeFloat {
		if math.Abs(f) > math.MaxFloat32 {
			return 0, d.invalid(field, fmt.Errorf("%g out of range for float", f))
		}
		f = float64(float32(f))
	}
	return f, nil
}

// StringValue implements document.Document.
func (d *Document) StringValue(field string) (string, error) {
	v, ok, err := d.lookup(field, is(document.FieldTypeString), document.FieldTypeString)
	if err != nil {
		return "", err
	}
	if !ok {
		return document.NullString, nil
	}
	var s string
	if err := codec.Default.Unmarshal(v, &s); err != nil {
		return "", d.invalid(field, err)
	}
	return s, nil
}

// BlobValue implements document.Document.
func (d *Document) BlobValue(field string) ([]byte, error) {
	v, ok, err := d.lookup(field, is(document.FieldTypeBlob), document.FieldTypeBlob)
	if err != nil || !ok {
		return nil, err
	}
	var b []byte
	if err := codec.Default.Unmarshal(v, &b); err != nil {
		return nil, d.invalid(field, err)
	}
	return b, nil
}

// SubDocument implements document.Document.
func (d *Document) SubDocument(field string) (document.Document, error) {
	v, ok, err := d.lookup(field, is(document.FieldTypeComplex), document.FieldTypeComplex)
	if err != nil {
		return nil, err
	}
	child := d.level.children[field]
	if !ok {
		return &Document{raw: []byte("{}"), level: child, values: map[string]json.RawMessage{}}, nil
	}
	sub, err := newDocument(child, v)
	if err != nil {
		return nil, d.invalid(field, err)
	}
	return sub, nil
}

// VerifyFieldForRead implements document.Document.
func (d *Document) VerifyFieldForRead(field string, ft document.FieldType) error {
	actual, ok := d.level.types[field]
	if !ok {
		return &document.FieldError{Field: field, Err: document.ErrFieldNotFound}
	}
	if actual != ft && !(actual.IsInteger() && ft.IsInteger()) && !(actual.IsFloating() && ft.IsFloating()) {
		return &document.FieldError{Field: field, Expected: ft, Actual: actual, Err: document.ErrTypeMismatch}
	}
	return d.verifyField(field, actual)
}

// Verify implements document.Document.
func (d *Document) Verify() error {
	for field, ft := range d.level.types {
		if err := d.verifyField(field, ft); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) verifyField(field string, ft document.FieldType) error {
	var err error
	switch {
	case ft.IsInteger():
		_, err = d.IntegerValue(field)
	case ft.IsFloating():
		_, err = d.FloatValue(field)
	case ft == document.FieldTypeString:
		_, err = d.StringValue(field)
	case ft == document.FieldTypeBlob:
		_, err = d.BlobValue(field)
	case ft == document.FieldTypeComplex:
		var sub document.Document
		if sub, err = d.SubDocument(field); err == nil {
			err = sub.Verify()
		}
	}
	return err
}

func (d *Document) invalid(field string, err error) error {
	return fmt.Errorf("%w: field %q: %w", document.ErrInvalidDocument, field, err)
}

func is(want document.FieldType) func(document.FieldType) bool {
	return func(ft document.FieldType) bool { return ft == want }
}
