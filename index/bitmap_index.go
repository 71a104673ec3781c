package index

import (
	"cmp"
	"slices"

	"github.com/hupe1980/docdb/bitmap"
	"github.com/hupe1980/docdb/document"
)

// inverted maps each distinct key to the IDs holding it. keys stays sorted.
type inverted[K cmp.Ordered] struct {
	column
	kind  Kind
	keys  []K
	sets  map[K]*bitmap.Bitmap
	bound func(Operator, Operand) (interval[K], error)
	// skip hides keys that never match, such as null strings.
	skip func(K) bool
}

func newInverted[K cmp.Ordered](kind Kind, info Info, ft document.FieldType, bound func(Operator, Operand) (interval[K], error), skip func(K) bool) inverted[K] {
	return inverted[K]{
		column: newColumn(info, ft),
		kind:   kind,
		sets:   make(map[K]*bitmap.Bitmap),
		bound:  bound,
		skip:   skip,
	}
}

func (ix *inverted[K]) Kind() Kind { return ix.kind }

func (ix *inverted[K]) add(id uint64, key K) {
	set, ok := ix.sets[key]
	if !ok {
		set = bitmap.New()
		ix.sets[key] = set
		pos, _ := slices.BinarySearch(ix.keys, key)
		ix.keys = slices.Insert(ix.keys, pos, key)
	}
	set.Add(id)
}

func (ix *inverted[K]) Filter(c Constraint) (*bitmap.Bitmap, error) {
	if !ix.Supports(c.Op) {
		return nil, ix.unsupported(c.Op)
	}
	iv, err := ix.bound(c.Op, c.Operand)
	if err != nil {
		return nil, err
	}
	return ix.scan(iv), nil
}

func (ix *inverted[K]) FilterRange(lower, upper Constraint) (*bitmap.Bitmap, error) {
	iv, err := rangeInterval(lower, upper, ix.bound)
	if err != nil {
		return nil, err
	}
	return ix.scan(iv), nil
}

// scan ORs the bitmaps of every key inside iv.
func (ix *inverted[K]) scan(iv interval[K]) *bitmap.Bitmap {
	if iv.empty {
		return bitmap.New()
	}
	start := 0
	if iv.hasLo {
		start, _ = slices.BinarySearch(ix.keys, iv.lo)
	}
	var sets []*bitmap.Bitmap
	for _, k := range ix.keys[start:] {
		if !iv.belowHi(k) {
			break
		}
		if !iv.aboveLo(k) || (ix.skip != nil && ix.skip(k)) {
			continue
		}
		sets = append(sets, ix.sets[k])
	}
	if len(sets) == 1 {
		return sets[0].Clone()
	}
	return bitmap.Or(sets...)
}

// BitmapInteger is an inverted bitmap index over an integer column.
type BitmapInteger struct {
	inverted[int64]
}

// NewBitmapInteger returns an empty integer bitmap index.
func NewBitmapInteger(info Info, ft document.FieldType) *BitmapInteger {
	return &BitmapInteger{inverted: newInverted(KindBitmapInteger, info, ft, intInterval, nil)}
}

func (ix *BitmapInteger) Insert(id uint64, doc document.Document) error {
	v, err := readInteger(doc, ix.path)
	if err != nil {
		return err
	}
	ix.add(id, v)
	return nil
}

// BitmapDouble is an inverted bitmap index over a FLOAT or DOUBLE column.
type BitmapDouble struct {
	inverted[float64]
}

// NewBitmapDouble returns an empty floating point bitmap index.
func NewBitmapDouble(info Info, ft document.FieldType) *BitmapDouble {
	return &BitmapDouble{inverted: newInverted(KindBitmapDouble, info, ft, floatInterval, nil)}
}

func (ix *BitmapDouble) Insert(id uint64, doc document.Document) error {
	v, err := readFloat(doc, ix.path)
	if err != nil {
		return err
	}
	ix.add(id, v)
	return nil
}

// BitmapString is an inverted bitmap index over a string column. Null
// strings are stored but never returned.
type BitmapString struct {
	inverted[string]
}

// NewBitmapString returns an empty string bitmap index.
func NewBitmapString(info Info, ft document.FieldType) *BitmapString {
	return &BitmapString{inverted: newInverted(KindBitmapString, info, ft, textInterval, document.IsNullString)}
}

func (ix *BitmapString) Insert(id uint64, doc document.Document) error {
	v, err := readString(doc, ix.path)
	if err != nil {
		return err
	}
	ix.add(id, v)
	return nil
}

// BitmapBlob is an inverted bitmap index over a blob column. Empty blobs
// are stored but never returned.
type BitmapBlob struct {
	inverted[string]
}

// NewBitmapBlob returns an empty blob bitmap index.
func NewBitmapBlob(info Info, ft document.FieldType) *BitmapBlob {
	return &BitmapBlob{inverted: newInverted(KindBitmapBlob, info, ft, blobInterval, isEmptyKey)}
}

func (ix *BitmapBlob) Insert(id uint64, doc document.Document) error {
	v, err := readBlob(doc, ix.path)
	if err != nil {
		return err
	}
	ix.add(id, string(v))
	return nil
}

func isEmptyKey(k string) bool { return k == "" }
