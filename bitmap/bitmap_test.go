package bitmap

import (
	"bytes"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomSet(r *rand.Rand, n int, universe uint64) []uint64 {
	seen := make(map[uint64]struct{}, n)
	for len(seen) < n {
		seen[r.Uint64()%universe] = struct{}{}
	}
	out := make([]uint64, 0, n)
	for id := range seen {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func TestAndOrMatchSetAlgebra(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		a := randomSet(r, 200, 1000)
		b := randomSet(r, 300, 1000)

		inB := make(map[uint64]bool)
		for _, id := range b {
			inB[id] = true
		}
		var wantAnd []uint64
		for _, id := range a {
			if inB[id] {
				wantAnd = append(wantAnd, id)
			}
		}
		wantOr := slices.Compact(slices.Sorted(slices.Values(append(slices.Clone(a), b...))))

		ba, bb := Of(a...), Of(b...)
		assert.Equal(t, wantAnd, nilIfEmpty(And(ba, bb).ToArray()))
		assert.Equal(t, wantOr, Or(ba, bb).ToArray())

		// Inputs stay untouched.
		assert.Equal(t, a, ba.ToArray())
		assert.Equal(t, b, bb.ToArray())
	}
}

func nilIfEmpty(ids []uint64) []uint64 {
	if len(ids) == 0 {
		return nil
	}
	return ids
}

func TestEmptyInputs(t *testing.T) {
	assert.True(t, Or().IsEmpty())
	assert.True(t, And().IsEmpty())
	assert.Equal(t, []uint64{1, 2}, Or(Of(1, 2)).ToArray())
	assert.Equal(t, []uint64{1, 2}, And(Of(1, 2)).ToArray())
}

func TestNWay(t *testing.T) {
	a := Of(1, 2, 3, 4, 5)
	b := Of(2, 3, 4)
	c := Of(3, 4, 9)

	assert.Equal(t, []uint64{3, 4}, And(a, b, c).ToArray())
	assert.Equal(t, []uint64{1, 2, 3, 4, 5, 9}, Or(a, b, c).ToArray())
	assert.Equal(t, []uint64{1, 5}, AndNot(a, b).ToArray())
}

func TestAllAscending(t *testing.T) {
	b := Of(0, 5, 1<<40, 1<<40+1)
	var got []uint64
	for id := range b.All() {
		got = append(got, id)
	}
	assert.Equal(t, []uint64{0, 5, 1 << 40, 1<<40 + 1}, got)
	assert.True(t, slices.IsSorted(got))
}

func TestIterator(t *testing.T) {
	b := Of(0, 3, 7)

	begin, end := b.Begin(), b.End()
	assert.True(t, begin.Less(end))
	assert.True(t, begin.LessEqual(end))
	assert.False(t, begin.Equal(end))

	var got []uint64
	for it := b.Begin(); it.Valid(); it.Next() {
		got = append(got, it.Value())
	}
	assert.Equal(t, []uint64{0, 3, 7}, got)

	it := b.Begin()
	other := b.Begin()
	require.True(t, it.Next())
	assert.Equal(t, uint64(3), it.Value())
	assert.Equal(t, uint64(0), other.Value())
	assert.True(t, it.Greater(other))
	assert.True(t, it.GreaterEqual(other))

	it.Next()
	assert.False(t, it.Next())
	assert.True(t, it.Equal(end))
	assert.Panics(t, func() { it.Value() })

	empty := New()
	assert.True(t, empty.Begin().Equal(empty.End()))
}

func TestSerialization(t *testing.T) {
	b := Of(1, 100, 1<<33)

	var buf bytes.Buffer
	_, err := b.WriteTo(&buf)
	require.NoError(t, err)

	restored := New()
	_, err = restored.ReadFrom(&buf)
	require.NoError(t, err)
	assert.True(t, b.Equals(restored))

	data, err := b.MarshalBinary()
	require.NoError(t, err)
	var again Bitmap
	require.NoError(t, again.UnmarshalBinary(data))
	assert.Equal(t, b.ToArray(), again.ToArray())
}

func TestAddRange(t *testing.T) {
	b := New()
	b.AddRange(2, 5)
	b.AddRange(9, 9)
	assert.Equal(t, []uint64{2, 3, 4}, b.ToArray())
	assert.Equal(t, uint64(3), b.Cardinality())
	assert.True(t, b.Contains(4))
	assert.False(t, b.Contains(5))
}

func TestMax(t *testing.T) {
	_, ok := New().Max()
	assert.False(t, ok)

	id, ok := Of(3, 17, 1<<40).Max()
	require.True(t, ok)
	assert.Equal(t, uint64(1<<40), id)
}
