package index

import (
	"github.com/hupe1980/docdb/bitmap"
	"github.com/hupe1980/docdb/document"
)

// Indexer indexes a single column of a collection.
//
// Indexers are not safe for concurrent use; Manager serializes access.
type Indexer interface {
	Kind() Kind
	Stat() Stat
	// Supports reports whether Filter can evaluate op.
	Supports(op Operator) bool
	// ValidateForInsert checks that doc carries the indexed field with the
	// declared type. It never mutates the indexer.
	ValidateForInsert(doc document.Document) error
	// Insert records the field value of doc under id.
	Insert(id uint64, doc document.Document) error
	// Filter returns the IDs whose value satisfies c.
	Filter(c Constraint) (*bitmap.Bitmap, error)
	// FilterRange returns the IDs whose value lies between a GT/GTE lower
	// bound and a LT/LTE upper bound.
	FilterRange(lower, upper Constraint) (*bitmap.Bitmap, error)
}

// IntegerValuer is implemented by indexers that store integer values by ID.
type IntegerValuer interface {
	TryGetIntegerValue(id uint64) (int64, bool)
	// TryGetIntegerVector fills out[i] with the value of ids[i]. It returns
	// false if any id is unknown.
	TryGetIntegerVector(ids []uint64, out []int64) bool
}

// DoubleValuer is implemented by indexers that store floating point values
// by ID.
type DoubleValuer interface {
	TryGetDoubleValue(id uint64) (float64, bool)
	TryGetDoubleVector(ids []uint64, out []float64) bool
}

// StringValuer is implemented by indexers that store string values by ID.
type StringValuer interface {
	TryGetStringValue(id uint64) (string, bool)
}

// BlobValuer is implemented by indexers that store blob values by ID.
type BlobValuer interface {
	TryGetBlobValue(id uint64) ([]byte, bool)
}

// column carries what every indexer needs to locate its field.
type column struct {
	stat Stat
	path []string
}

func newColumn(info Info, ft document.FieldType) column {
	return column{
		stat: Stat{Info: info, FieldType: ft},
		path: document.SplitPath(info.Column),
	}
}

func (c *column) Stat() Stat { return c.stat }

func (c *column) Supports(op Operator) bool { return op.Comparison() }

func (c *column) ValidateForInsert(doc document.Document) error {
	leafDoc, leaf, err := document.Resolve(doc, c.path)
	if err != nil {
		return err
	}
	return leafDoc.VerifyFieldForRead(leaf, c.stat.FieldType)
}

func (c *column) unsupported(op Operator) error {
	return &OperatorError{Index: c.stat.Info.Name, Op: op}
}

func readInteger(doc document.Document, path []string) (int64, error) {
	d, leaf, err := document.Resolve(doc, path)
	if err != nil {
		return 0, err
	}
	return d.IntegerValue(leaf)
}

func readFloat(doc document.Document, path []string) (float64, error) {
	d, leaf, err := document.Resolve(doc, path)
	if err != nil {
		return 0, err
	}
	return d.FloatValue(leaf)
}

func readString(doc document.Document, path []string) (string, error) {
	d, leaf, err := document.Resolve(doc, path)
	if err != nil {
		return "", err
	}
	return d.StringValue(leaf)
}

func readBlob(doc document.Document, path []string) ([]byte, error) {
	d, leaf, err := document.Resolve(doc, path)
	if err != nil {
		return nil, err
	}
	return d.BlobValue(leaf)
}
