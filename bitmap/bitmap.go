package bitmap

import (
	"bytes"
	"fmt"
	"io"
	"iter"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Bitmap is a compressed set of document IDs.
type Bitmap struct {
	rb *roaring64.Bitmap
}

// New creates an empty bitmap.
func New() *Bitmap {
	return &Bitmap{rb: roaring64.New()}
}

// Of creates a bitmap holding ids. ids must be ascending.
func Of(ids ...uint64) *Bitmap {
	b := New()
	for _, id := range ids {
		b.Add(id)
	}
	return b
}

// Add appends id. Callers must add IDs in ascending order.
func (b *Bitmap) Add(id uint64) {
	b.rb.Add(id)
}

// AddRange adds all IDs in [start, end).
func (b *Bitmap) AddRange(start, end uint64) {
	if end <= start {
		return
	}
	b.rb.AddRange(start, end)
}

// Contains reports whether id is in the set.
func (b *Bitmap) Contains(id uint64) bool {
	return b.rb.Contains(id)
}

// Cardinality returns the number of IDs in the set.
func (b *Bitmap) Cardinality() uint64 {
	return b.rb.GetCardinality()
}

// IsEmpty returns true if the bitmap holds no IDs.
func (b *Bitmap) IsEmpty() bool {
	return b.rb.IsEmpty()
}

// Max returns the largest ID. ok is false for an empty bitmap.
func (b *Bitmap) Max() (id uint64, ok bool) {
	if b.rb.IsEmpty() {
		return 0, false
	}
	return b.rb.Maximum(), true
}

// Clone returns a deep copy.
func (b *Bitmap) Clone() *Bitmap {
	return &Bitmap{rb: b.rb.Clone()}
}

// ToArray returns the IDs in ascending order.
func (b *Bitmap) ToArray() []uint64 {
	return b.rb.ToArray()
}

// SizeInBytes returns the serialized size of the bitmap.
func (b *Bitmap) SizeInBytes() uint64 {
	return b.rb.GetSizeInBytes()
}

// Optimize converts containers to run-length encoding where smaller.
func (b *Bitmap) Optimize() {
	b.rb.RunOptimize()
}

// All returns an iterator over the IDs in ascending order.
func (b *Bitmap) All() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		it := b.rb.Iterator()
		for it.HasNext() {
			if !yield(it.Next()) {
				return
			}
		}
	}
}

// Equals reports whether both bitmaps hold the same IDs.
func (b *Bitmap) Equals(other *Bitmap) bool {
	return b.rb.Equals(other.rb)
}

// String implements fmt.Stringer.
func (b *Bitmap) String() string {
	return fmt.Sprint(b.rb.ToArray())
}

// WriteTo writes the bitmap in the portable Roaring format.
func (b *Bitmap) WriteTo(w io.Writer) (int64, error) {
	return b.rb.WriteTo(w)
}

// ReadFrom replaces the bitmap content with data read from r.
func (b *Bitmap) ReadFrom(r io.Reader) (int64, error) {
	return b.rb.ReadFrom(r)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (b *Bitmap) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := b.rb.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (b *Bitmap) UnmarshalBinary(data []byte) error {
	if b.rb == nil {
		b.rb = roaring64.New()
	}
	_, err := b.rb.ReadFrom(bytes.NewReader(data))
	return err
}

// And returns the intersection of bitmaps as a new bitmap.
// No arguments yields an empty bitmap.
func And(bitmaps ...*Bitmap) *Bitmap {
	if len(bitmaps) == 0 {
		return New()
	}
	out := bitmaps[0].Clone()
	for _, other := range bitmaps[1:] {
		if out.IsEmpty() {
			break
		}
		out.rb.And(other.rb)
	}
	return out
}

// Or returns the union of bitmaps as a new bitmap.
// No arguments yields an empty bitmap.
func Or(bitmaps ...*Bitmap) *Bitmap {
	out := New()
	for _, other := range bitmaps {
		out.rb.Or(other.rb)
	}
	return out
}

// AndNot returns the IDs of b that are not in other.
func AndNot(b, other *Bitmap) *Bitmap {
	return &Bitmap{rb: roaring64.AndNot(b.rb, other.rb)}
}
