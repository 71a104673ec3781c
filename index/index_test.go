package index

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/hupe1980/docdb/bitmap"
	"github.com/hupe1980/docdb/document"
	"github.com/hupe1980/docdb/document/jsondoc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const peopleSchema = `{"fields": [
	{"name": "age", "type": "int32"},
	{"name": "score", "type": "double"},
	{"name": "name", "type": "string"},
	{"name": "avatar", "type": "blob"},
	{"name": "addr", "type": "complex", "fields": [
		{"name": "zip", "type": "int64"}
	]}
]}`

func people(t *testing.T) (*jsondoc.Schema, []document.Document) {
	t.Helper()

	s := jsondoc.MustSchema(peopleSchema)
	rows := []map[string]any{
		{"age": 10, "score": 1.5, "name": "alice", "avatar": []byte("a"), "addr": map[string]any{"zip": 100}},
		{"age": 20, "score": 2.5, "name": "bob", "avatar": []byte{}, "addr": map[string]any{"zip": 200}},
		{"age": 20, "score": 3.5, "avatar": []byte("c"), "addr": map[string]any{"zip": 300}},
		{"age": 30, "score": -1.0, "name": "carol", "avatar": []byte("bb"), "addr": map[string]any{"zip": 400}},
	}

	docs := make([]document.Document, 0, len(rows))
	for _, r := range rows {
		raw, err := json.Marshal(r)
		require.NoError(t, err)
		doc, err := s.NewDocument(raw)
		require.NoError(t, err)
		docs = append(docs, doc)
	}
	return s, docs
}

func newPeopleManager(t *testing.T, typ IndexType) *Manager {
	t.Helper()

	s, docs := people(t)
	m, err := NewManager([]Info{
		{Name: "age_idx", Type: typ, Column: "age", Ascending: true},
		{Name: "score_idx", Type: typ, Column: "score", Ascending: true},
		{Name: "name_idx", Type: typ, Column: "name", Ascending: true},
		{Name: "avatar_idx", Type: typ, Column: "avatar", Ascending: true},
		{Name: "zip_idx", Type: typ, Column: "addr.zip", Ascending: true},
	}, document.Columns(s))
	require.NoError(t, err)

	next, err := m.IndexDocuments(0, docs)
	require.NoError(t, err)
	require.Equal(t, uint64(len(docs)), next)
	return m
}

func ids(b *bitmap.Bitmap) []uint64 {
	out := b.ToArray()
	if out == nil {
		return []uint64{}
	}
	return out
}

func TestManager_Filter(t *testing.T) {
	tests := []struct {
		name string
		c    Constraint
		want []uint64
	}{
		{"int eq", IntConstraint("age", OpEqual, 20), []uint64{1, 2}},
		{"int gt", IntConstraint("age", OpGreaterThan, 20), []uint64{3}},
		{"int lte", IntConstraint("age", OpLessThanEqual, 20), []uint64{0, 1, 2}},
		{"int eq fractional", DoubleConstraint("age", OpEqual, 20.5), []uint64{}},
		{"int eq integral double", DoubleConstraint("age", OpEqual, 20), []uint64{1, 2}},
		{"int gt fractional", DoubleConstraint("age", OpGreaterThan, 19.5), []uint64{1, 2, 3}},
		{"int gte fractional", DoubleConstraint("age", OpGreaterThanEqual, 19.5), []uint64{1, 2, 3}},
		{"int lt fractional", DoubleConstraint("age", OpLessThan, 20.5), []uint64{0, 1, 2}},
		{"int lte fractional", DoubleConstraint("age", OpLessThanEqual, 19.9), []uint64{0}},
		{"int lt huge", DoubleConstraint("age", OpLessThan, 1e30), []uint64{0, 1, 2, 3}},
		{"int gt huge", DoubleConstraint("age", OpGreaterThan, 1e30), []uint64{}},
		{"int gt tiny", DoubleConstraint("age", OpGreaterThan, -1e30), []uint64{0, 1, 2, 3}},
		{"int lt tiny", DoubleConstraint("age", OpLessThan, -1e30), []uint64{}},
		{"int eq nan", DoubleConstraint("age", OpEqual, math.NaN()), []uint64{}},
		{"int lt text", StringConstraint("age", OpLessThan, "x"), []uint64{0, 1, 2, 3}},
		{"int gt text", StringConstraint("age", OpGreaterThan, "x"), []uint64{}},
		{"nested", IntConstraint("addr.zip", OpGreaterThanEqual, 200), []uint64{1, 2, 3}},
		{"double gt int", IntConstraint("score", OpGreaterThan, 2), []uint64{1, 2}},
		{"double lte", DoubleConstraint("score", OpLessThanEqual, 2.5), []uint64{0, 1, 3}},
		{"double lt text", StringConstraint("score", OpLessThan, "a"), []uint64{0, 1, 2, 3}},
		{"string eq", StringConstraint("name", OpEqual, "bob"), []uint64{1}},
		{"string gt", StringConstraint("name", OpGreaterThan, "b"), []uint64{1, 3}},
		{"string lt skips null", StringConstraint("name", OpLessThan, "c"), []uint64{0, 1}},
		{"string gte number", IntConstraint("name", OpGreaterThanEqual, 1), []uint64{0, 1, 3}},
		{"string lt blob", BlobConstraint("name", OpLessThan, []byte("z")), []uint64{0, 1, 3}},
		{"string gt blob", BlobConstraint("name", OpGreaterThan, []byte("z")), []uint64{}},
		{"blob eq", BlobConstraint("avatar", OpEqual, []byte("a")), []uint64{0}},
		{"blob gt", BlobConstraint("avatar", OpGreaterThan, []byte("a")), []uint64{2, 3}},
		{"blob lt skips empty", BlobConstraint("avatar", OpLessThan, []byte("b")), []uint64{0}},
		{"blob gt number", IntConstraint("avatar", OpGreaterThan, 5), []uint64{0, 2, 3}},
		{"blob lt number", IntConstraint("avatar", OpLessThan, 5), []uint64{}},
	}

	for _, typ := range []IndexType{TypeInvertedBitmap, TypeVector} {
		m := newPeopleManager(t, typ)
		for _, tt := range tests {
			t.Run(typ.String()+"/"+tt.name, func(t *testing.T) {
				got, err := m.Filter([]Constraint{tt.c})
				require.NoError(t, err)
				assert.Equal(t, tt.want, ids(got))
			})
		}
	}
}

func TestManager_FilterConjunction(t *testing.T) {
	for _, typ := range []IndexType{TypeInvertedBitmap, TypeVector} {
		t.Run(typ.String(), func(t *testing.T) {
			m := newPeopleManager(t, typ)

			got, err := m.Filter([]Constraint{
				IntConstraint("age", OpEqual, 20),
				DoubleConstraint("score", OpGreaterThan, 3),
			})
			require.NoError(t, err)
			assert.Equal(t, []uint64{2}, ids(got))

			got, err = m.Filter([]Constraint{
				IntConstraint("age", OpEqual, 10),
				StringConstraint("name", OpEqual, "bob"),
			})
			require.NoError(t, err)
			assert.True(t, got.IsEmpty())
		})
	}
}

func TestManager_FilterRange(t *testing.T) {
	for _, typ := range []IndexType{TypeInvertedBitmap, TypeVector} {
		t.Run(typ.String(), func(t *testing.T) {
			m := newPeopleManager(t, typ)

			got, err := m.FilterRange(IntConstraint("age", OpGreaterThan, 10), IntConstraint("age", OpLessThan, 30))
			require.NoError(t, err)
			assert.Equal(t, []uint64{1, 2}, ids(got))

			got, err = m.FilterRange(IntConstraint("age", OpGreaterThanEqual, 10), IntConstraint("age", OpLessThanEqual, 20))
			require.NoError(t, err)
			assert.Equal(t, []uint64{0, 1, 2}, ids(got))

			got, err = m.FilterRange(DoubleConstraint("age", OpGreaterThan, 10.5), DoubleConstraint("age", OpLessThanEqual, 30.5))
			require.NoError(t, err)
			assert.Equal(t, []uint64{1, 2, 3}, ids(got))

			got, err = m.FilterRange(StringConstraint("name", OpGreaterThanEqual, ""), StringConstraint("name", OpLessThan, "c"))
			require.NoError(t, err)
			assert.Equal(t, []uint64{0, 1}, ids(got))

			got, err = m.FilterRange(IntConstraint("age", OpGreaterThan, 30), IntConstraint("age", OpLessThan, 10))
			require.NoError(t, err)
			assert.True(t, got.IsEmpty())

			_, err = m.FilterRange(IntConstraint("age", OpEqual, 10), IntConstraint("age", OpLessThan, 30))
			assert.ErrorIs(t, err, ErrInvalidArgument)

			_, err = m.FilterRange(IntConstraint("age", OpGreaterThan, 10), IntConstraint("score", OpLessThan, 30))
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestManager_FilterErrors(t *testing.T) {
	m := newPeopleManager(t, TypeInvertedBitmap)

	_, err := m.Filter([]Constraint{StringConstraint("name", OpLike, "b%")})
	assert.ErrorIs(t, err, ErrUnsupportedOperator)

	var opErr *OperatorError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "name_idx", opErr.Index)

	_, err = m.Filter([]Constraint{IntConstraint("unknown", OpEqual, 1)})
	assert.ErrorIs(t, err, ErrNoIndex)

	_, err = m.Filter(nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestManager_IndexDocumentsValidatesFirst(t *testing.T) {
	s, docs := people(t)
	m, err := NewManager([]Info{
		{Name: "age_idx", Type: TypeVector, Column: "age"},
	}, document.Columns(s))
	require.NoError(t, err)

	bad, err := s.NewDocument([]byte(`{"age": "old"}`))
	require.NoError(t, err)

	batch := append(append([]document.Document{}, docs...), bad)
	_, err = m.IndexDocuments(0, batch)
	require.Error(t, err)

	all, err := m.Filter([]Constraint{IntConstraint("age", OpGreaterThanEqual, math.MinInt64)})
	require.NoError(t, err)
	assert.True(t, all.IsEmpty())

	next, err := m.IndexDocuments(0, docs)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), next)

	next, err = m.IndexDocuments(next, docs[:1])
	require.NoError(t, err)
	assert.Equal(t, uint64(5), next)
}

func TestManager_TryGetBestIndex(t *testing.T) {
	s := jsondoc.MustSchema(peopleSchema)
	m, err := NewManager([]Info{
		{Name: "age_vec", Type: TypeVector, Column: "age"},
		{Name: "age_bmp", Type: TypeInvertedBitmap, Column: "age"},
	}, document.Columns(s))
	require.NoError(t, err)

	stat, ok := m.TryGetBestIndex("age", OpGreaterThan)
	require.True(t, ok)
	assert.Equal(t, "age_vec", stat.Info.Name)
	assert.Equal(t, document.FieldTypeInt32, stat.FieldType)

	_, ok = m.TryGetBestIndex("age", OpRegexp)
	assert.False(t, ok)

	_, ok = m.TryGetBestIndex("name", OpEqual)
	assert.False(t, ok)

	assert.Len(t, m.Stats(), 2)
}

func TestManager_CreateIndexErrors(t *testing.T) {
	cols := document.Columns(jsondoc.MustSchema(peopleSchema))

	_, err := NewManager([]Info{{Name: "", Type: TypeVector, Column: "age"}}, cols)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewManager([]Info{{Name: "x", Type: TypeVector, Column: ""}}, cols)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewManager([]Info{{Name: "x", Type: TypeVector, Column: "missing"}}, cols)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewManager([]Info{{Name: "x", Type: IndexType(9), Column: "age"}}, cols)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewManager([]Info{
		{Name: "x", Type: TypeVector, Column: "age"},
		{Name: "x", Type: TypeInvertedBitmap, Column: "age"},
	}, cols)
	assert.ErrorIs(t, err, ErrIndexExists)
}

func TestManager_ValueAccessors(t *testing.T) {
	m := newPeopleManager(t, TypeVector)

	v, ok := m.TryGetIntegerValue("age", 2)
	require.True(t, ok)
	assert.Equal(t, int64(20), v)

	_, ok = m.TryGetIntegerValue("age", 4)
	assert.False(t, ok)

	out := make([]int64, 3)
	require.True(t, m.TryGetIntegerVector("age", []uint64{3, 0, 1}, out))
	assert.Equal(t, []int64{30, 10, 20}, out)
	assert.False(t, m.TryGetIntegerVector("age", []uint64{0, 9}, out))

	d, ok := m.TryGetDoubleValue("score", 1)
	require.True(t, ok)
	assert.Equal(t, 2.5, d)

	dout := make([]float64, 2)
	require.True(t, m.TryGetDoubleVector("score", []uint64{0, 3}, dout))
	assert.Equal(t, []float64{1.5, -1}, dout)

	s, ok := m.TryGetStringValue("name", 2)
	require.True(t, ok)
	assert.True(t, document.IsNullString(s))

	b, ok := m.TryGetBlobValue("avatar", 3)
	require.True(t, ok)
	assert.Equal(t, []byte("bb"), b)

	// Bitmap indexes do not store values by ID.
	bm := newPeopleManager(t, TypeInvertedBitmap)
	_, ok = bm.TryGetIntegerValue("age", 0)
	assert.False(t, ok)
}

func TestNewIndexer(t *testing.T) {
	tests := []struct {
		typ  IndexType
		ft   document.FieldType
		kind Kind
	}{
		{TypeInvertedBitmap, document.FieldTypeInt16, KindBitmapInteger},
		{TypeInvertedBitmap, document.FieldTypeFloat, KindBitmapDouble},
		{TypeInvertedBitmap, document.FieldTypeString, KindBitmapString},
		{TypeInvertedBitmap, document.FieldTypeBlob, KindBitmapBlob},
		{TypeVector, document.FieldTypeInt8, KindVectorInteger},
		{TypeVector, document.FieldTypeInt64, KindVectorInteger},
		{TypeVector, document.FieldTypeDouble, KindVectorDouble},
		{TypeVector, document.FieldTypeString, KindVectorString},
		{TypeVector, document.FieldTypeBlob, KindVectorBlob},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String()+"/"+tt.ft.String(), func(t *testing.T) {
			ixr, err := NewIndexer(Info{Name: "i", Type: tt.typ, Column: "c"}, tt.ft)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, ixr.Kind())
			assert.Equal(t, tt.ft, ixr.Stat().FieldType)
		})
	}

	ixr, err := NewIndexer(Info{Name: "i", Type: TypeVector, Column: "c"}, document.FieldTypeInt8)
	require.NoError(t, err)
	assert.IsType(t, &VectorInteger[int8]{}, ixr)

	_, err = NewIndexer(Info{Name: "i", Type: TypeVector, Column: "c"}, document.FieldTypeComplex)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestManager_SkipDocuments(t *testing.T) {
	for _, typ := range []IndexType{TypeVector, TypeInvertedBitmap} {
		t.Run(typ.String(), func(t *testing.T) {
			m := newPeopleManager(t, typ)
			_, docs := people(t)

			m.SkipDocuments(4, 2)
			next, err := m.IndexDocuments(6, docs[:1])
			require.NoError(t, err)
			assert.Equal(t, uint64(7), next)

			got, err := m.Filter([]Constraint{IntConstraint("age", OpEqual, 10)})
			require.NoError(t, err)
			assert.Equal(t, []uint64{0, 6}, ids(got))

			if typ == TypeVector {
				v, ok := m.TryGetIntegerValue("age", 6)
				require.True(t, ok)
				assert.Equal(t, int64(10), v)
			}
		})
	}
}

func TestVectorIndex_OutOfOrderInsertPanics(t *testing.T) {
	_, docs := people(t)
	ixr := NewVectorInteger[int32](Info{Name: "age", Type: TypeVector, Column: "age"}, document.FieldTypeInt32)

	require.NoError(t, ixr.Insert(0, docs[0]))
	assert.Equal(t, 1, ixr.Len())
	assert.Panics(t, func() { _ = ixr.Insert(2, docs[1]) })
	assert.Panics(t, func() { _ = ixr.Insert(0, docs[1]) })
}

func TestIntInterval_DoubleCoercion(t *testing.T) {
	tests := []struct {
		op      Operator
		d       float64
		in, out []int64
	}{
		{OpLessThan, 2.5, []int64{2, math.MinInt64}, []int64{3}},
		{OpLessThan, 3, []int64{2}, []int64{3}},
		{OpLessThanEqual, 2.5, []int64{2}, []int64{3}},
		{OpGreaterThan, 2.5, []int64{3}, []int64{2}},
		{OpGreaterThanEqual, 2.5, []int64{3}, []int64{2}},
		{OpGreaterThanEqual, -2.5, []int64{-2}, []int64{-3}},
		{OpLessThan, math.Inf(1), []int64{math.MaxInt64}, nil},
		{OpGreaterThan, math.Inf(-1), []int64{math.MinInt64}, nil},
		{OpGreaterThanEqual, -twoPow63, []int64{math.MinInt64}, nil},
		{OpEqual, -twoPow63, []int64{math.MinInt64}, []int64{0}},
		{OpEqual, twoPow63, nil, []int64{math.MaxInt64}},
		{OpGreaterThan, math.Inf(1), nil, []int64{math.MaxInt64}},
	}
	for _, tt := range tests {
		iv, err := intInterval(tt.op, Operand{Type: OperandDouble, Double: tt.d})
		require.NoError(t, err)
		for _, v := range tt.in {
			assert.True(t, iv.contains(v), "%s %g should contain %d", tt.op, tt.d, v)
		}
		for _, v := range tt.out {
			assert.False(t, iv.contains(v), "%s %g should not contain %d", tt.op, tt.d, v)
		}
	}
}

func TestInterval_Intersect(t *testing.T) {
	gt := compare(OpGreaterThan, 5)
	gte := compare(OpGreaterThanEqual, 5)
	lte := compare(OpLessThanEqual, 5)
	lt := compare(OpLessThan, 9)

	assert.True(t, gte.intersect(lte).contains(5))
	assert.True(t, gt.intersect(lte).empty)
	assert.True(t, gt.intersect(gte).contains(6))
	assert.False(t, gt.intersect(gte).contains(5))

	r := gt.intersect(lt)
	assert.False(t, r.contains(5))
	assert.True(t, r.contains(8))
	assert.False(t, r.contains(9))

	assert.True(t, everything[int]().intersect(nothing[int]()).empty)
}

func TestFormatReal(t *testing.T) {
	assert.Equal(t, "2.5", formatReal(2.5))
	assert.Equal(t, "3.0", formatReal(3))
	assert.Equal(t, "-0.125", formatReal(-0.125))
}
