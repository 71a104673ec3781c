package document

import (
	"fmt"
	"math"
	"strings"
)

// Null sentinels.
const (
	NullString = "\x00\x00\x00\x00"
	NullInt32  = math.MinInt32
	NullInt64  = math.MinInt64
	// NullDouble is the smallest positive normal float64.
	NullDouble = 0x1p-1022
)

// IsNullString reports whether s is the null sentinel.
func IsNullString(s string) bool {
	return s == NullString
}

// IsNullInt64 reports whether v is the null sentinel.
func IsNullInt64(v int64) bool {
	return v == NullInt64
}

// IsNullDouble reports whether v is the null sentinel.
func IsNullDouble(v float64) bool {
	return v == NullDouble
}

// SplitPath splits a dotted field path into its tokens.
func SplitPath(path string) []string {
	return strings.Split(path, ".")
}

// Resolve walks every token but the last as a sub-document and returns the
// document holding the leaf together with the leaf name.
func Resolve(doc Document, tokens []string) (Document, string, error) {
	if len(tokens) == 0 {
		return nil, "", fmt.Errorf("%w: empty path", ErrFieldNotFound)
	}
	cur := doc
	for _, tok := range tokens[:len(tokens)-1] {
		sub, err := cur.SubDocument(tok)
		if err != nil {
			return nil, "", err
		}
		cur = sub
	}
	return cur, tokens[len(tokens)-1], nil
}
