package bitmap

import "github.com/RoaringBitmap/roaring/v2/roaring64"

// Iterator is a forward-only cursor over a bitmap.
//
// Cursors over the same bitmap compare by position: Begin() sits on the
// first ID and End() is past the last. Iterators are independent of each
// other.
type Iterator struct {
	it  roaring64.IntPeekable64
	pos uint64
	end uint64
	cur uint64
}

// Begin returns a cursor positioned on the first ID.
func (b *Bitmap) Begin() *Iterator {
	it := &Iterator{
		it:  b.rb.Iterator(),
		end: b.rb.GetCardinality(),
	}
	if it.Valid() {
		it.cur = it.it.Next()
	}
	return it
}

// End returns a cursor positioned past the last ID.
func (b *Bitmap) End() *Iterator {
	n := b.rb.GetCardinality()
	return &Iterator{pos: n, end: n}
}

// Valid reports whether the cursor points at an ID.
func (it *Iterator) Valid() bool {
	return it.pos < it.end
}

// Value returns the ID under the cursor. It panics past the end.
func (it *Iterator) Value() uint64 {
	if !it.Valid() {
		panic("bitmap: iterator past end")
	}
	return it.cur
}

// Next advances the cursor and reports whether it still points at an ID.
func (it *Iterator) Next() bool {
	if !it.Valid() {
		return false
	}
	it.pos++
	if !it.Valid() {
		return false
	}
	it.cur = it.it.Next()
	return true
}

// Pos returns the zero-based position of the cursor.
func (it *Iterator) Pos() uint64 { return it.pos }

// Equal reports whether both cursors are at the same position.
func (it *Iterator) Equal(o *Iterator) bool { return it.pos == o.pos }

// Less reports whether it is before o.
func (it *Iterator) Less(o *Iterator) bool { return it.pos < o.pos }

// LessEqual reports whether it is before or at o.
func (it *Iterator) LessEqual(o *Iterator) bool { return it.pos <= o.pos }

// Greater reports whether it is after o.
func (it *Iterator) Greater(o *Iterator) bool { return it.pos > o.pos }

// GreaterEqual reports whether it is at or after o.
func (it *Iterator) GreaterEqual(o *Iterator) bool { return it.pos >= o.pos }
