package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitPath(t *testing.T) {
	assert.Equal(t, []string{"a"}, SplitPath("a"))
	assert.Equal(t, []string{"a", "b", "c"}, SplitPath("a.b.c"))
}

func TestNullHelpers(t *testing.T) {
	assert.True(t, IsNullString("\x00\x00\x00\x00"))
	assert.False(t, IsNullString("\x00\x00\x00"))
	assert.False(t, IsNullString(""))
	assert.True(t, IsNullInt64(NullInt64))
	assert.True(t, IsNullDouble(NullDouble))
	assert.False(t, IsNullDouble(0))
}

func TestFieldType(t *testing.T) {
	for _, ft := range []FieldType{FieldTypeInt8, FieldTypeDouble, FieldTypeBlob, FieldTypeComplex} {
		parsed, err := ParseFieldType(ft.String())
		assert.NoError(t, err)
		assert.Equal(t, ft, parsed)
	}
	_, err := ParseFieldType("bogus")
	assert.ErrorIs(t, err, ErrInvalidSchema)

	assert.True(t, FieldTypeInt16.IsInteger())
	assert.False(t, FieldTypeFloat.IsInteger())
	assert.True(t, FieldTypeFloat.IsFloating())

	lo, hi := FieldTypeInt8.IntegerRange()
	assert.Equal(t, int64(-128), lo)
	assert.Equal(t, int64(127), hi)
}
