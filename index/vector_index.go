package index

import (
	"cmp"
	"fmt"

	"github.com/hupe1980/docdb/bitmap"
	"github.com/hupe1980/docdb/document"
)

// positional stores the value of document id at values[id].
type positional[V any, K cmp.Ordered] struct {
	column
	kind   Kind
	values []V
	key    func(V) K
	bound  func(Operator, Operand) (interval[K], error)
	skip   func(V) bool
}

func newPositional[V any, K cmp.Ordered](kind Kind, info Info, ft document.FieldType, key func(V) K, bound func(Operator, Operand) (interval[K], error), skip func(V) bool) positional[V, K] {
	return positional[V, K]{
		column: newColumn(info, ft),
		kind:   kind,
		key:    key,
		bound:  bound,
		skip:   skip,
	}
}

func (ix *positional[V, K]) Kind() Kind { return ix.kind }

// Len returns the number of indexed documents.
func (ix *positional[V, K]) Len() int { return len(ix.values) }

func (ix *positional[V, K]) push(id uint64, v V) {
	if id != uint64(len(ix.values)) {
		panic(fmt.Sprintf("index %q: insert of id %d out of order, expected %d", ix.stat.Info.Name, id, len(ix.values)))
	}
	ix.values = append(ix.values, v)
}

// Pad stores zero values for the n IDs starting at id.
func (ix *positional[V, K]) Pad(id, n uint64) {
	var zero V
	for i := range n {
		ix.push(id+i, zero)
	}
}

func (ix *positional[V, K]) get(id uint64) (V, bool) {
	if id >= uint64(len(ix.values)) {
		var zero V
		return zero, false
	}
	return ix.values[id], true
}

func (ix *positional[V, K]) Filter(c Constraint) (*bitmap.Bitmap, error) {
	if !ix.Supports(c.Op) {
		return nil, ix.unsupported(c.Op)
	}
	iv, err := ix.bound(c.Op, c.Operand)
	if err != nil {
		return nil, err
	}
	return ix.scan(iv), nil
}

func (ix *positional[V, K]) FilterRange(lower, upper Constraint) (*bitmap.Bitmap, error) {
	iv, err := rangeInterval(lower, upper, ix.bound)
	if err != nil {
		return nil, err
	}
	return ix.scan(iv), nil
}

func (ix *positional[V, K]) scan(iv interval[K]) *bitmap.Bitmap {
	out := bitmap.New()
	if iv.empty {
		return out
	}
	for id, v := range ix.values {
		if ix.skip != nil && ix.skip(v) {
			continue
		}
		if iv.contains(ix.key(v)) {
			out.Add(uint64(id))
		}
	}
	return out
}

// Integer is the set of widths a VectorInteger can store.
type Integer interface {
	~int8 | ~int16 | ~int32 | ~int64
}

// VectorInteger is a positional index over an integer column stored at its
// declared width.
type VectorInteger[T Integer] struct {
	positional[T, int64]
}

// NewVectorInteger returns an empty integer vector index.
func NewVectorInteger[T Integer](info Info, ft document.FieldType) *VectorInteger[T] {
	return &VectorInteger[T]{
		positional: newPositional(KindVectorInteger, info, ft, widen[T], intInterval, nil),
	}
}

func widen[T Integer](v T) int64 { return int64(v) }

func (ix *VectorInteger[T]) Insert(id uint64, doc document.Document) error {
	v, err := readInteger(doc, ix.path)
	if err != nil {
		return err
	}
	ix.push(id, T(v))
	return nil
}

func (ix *VectorInteger[T]) TryGetIntegerValue(id uint64) (int64, bool) {
	v, ok := ix.get(id)
	return int64(v), ok
}

func (ix *VectorInteger[T]) TryGetIntegerVector(ids []uint64, out []int64) bool {
	if len(out) < len(ids) {
		return false
	}
	for i, id := range ids {
		if id >= uint64(len(ix.values)) {
			return false
		}
		out[i] = int64(ix.values[id])
	}
	return true
}

// VectorDouble is a positional index over a FLOAT or DOUBLE column.
type VectorDouble struct {
	positional[float64, float64]
}

// NewVectorDouble returns an empty floating point vector index.
func NewVectorDouble(info Info, ft document.FieldType) *VectorDouble {
	return &VectorDouble{
		positional: newPositional(KindVectorDouble, info, ft, identity[float64], floatInterval, nil),
	}
}

func identity[T any](v T) T { return v }

func (ix *VectorDouble) Insert(id uint64, doc document.Document) error {
	v, err := readFloat(doc, ix.path)
	if err != nil {
		return err
	}
	ix.push(id, v)
	return nil
}

func (ix *VectorDouble) TryGetDoubleValue(id uint64) (float64, bool) {
	return ix.get(id)
}

func (ix *VectorDouble) TryGetDoubleVector(ids []uint64, out []float64) bool {
	if len(out) < len(ids) {
		return false
	}
	for i, id := range ids {
		if id >= uint64(len(ix.values)) {
			return false
		}
		out[i] = ix.values[id]
	}
	return true
}

// VectorString is a positional index over a string column.
type VectorString struct {
	positional[string, string]
}

// NewVectorString returns an empty string vector index.
func NewVectorString(info Info, ft document.FieldType) *VectorString {
	return &VectorString{
		positional: newPositional(KindVectorString, info, ft, identity[string], textInterval, document.IsNullString),
	}
}

func (ix *VectorString) Insert(id uint64, doc document.Document) error {
	v, err := readString(doc, ix.path)
	if err != nil {
		return err
	}
	ix.push(id, v)
	return nil
}

func (ix *VectorString) TryGetStringValue(id uint64) (string, bool) {
	return ix.get(id)
}

// VectorBlob is a positional index over a blob column. Blobs compare
// byte-wise.
type VectorBlob struct {
	positional[[]byte, string]
}

// NewVectorBlob returns an empty blob vector index.
func NewVectorBlob(info Info, ft document.FieldType) *VectorBlob {
	return &VectorBlob{
		positional: newPositional(KindVectorBlob, info, ft, blobKey, blobInterval, isEmptyBlob),
	}
}

func blobKey(b []byte) string { return string(b) }

func isEmptyBlob(b []byte) bool { return len(b) == 0 }

func (ix *VectorBlob) Insert(id uint64, doc document.Document) error {
	v, err := readBlob(doc, ix.path)
	if err != nil {
		return err
	}
	ix.push(id, append([]byte(nil), v...))
	return nil
}

// TryGetBlobValue returns the stored blob. Callers must not modify it.
func (ix *VectorBlob) TryGetBlobValue(id uint64) ([]byte, bool) {
	return ix.get(id)
}

var (
	_ IntegerValuer = (*VectorInteger[int32])(nil)
	_ DoubleValuer  = (*VectorDouble)(nil)
	_ StringValuer  = (*VectorString)(nil)
	_ BlobValuer    = (*VectorBlob)(nil)
)
