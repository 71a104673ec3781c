package index

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
)

// interval is a set of keys bounded on either side. A zero interval holds
// every key.
type interval[T cmp.Ordered] struct {
	lo, hi       T
	hasLo, hasHi bool
	loInc, hiInc bool
	empty        bool
}

func everything[T cmp.Ordered]() interval[T] { return interval[T]{} }

func nothing[T cmp.Ordered]() interval[T] { return interval[T]{empty: true} }

// compare places v relative to an operator and returns the matching interval.
func compare[T cmp.Ordered](op Operator, v T) interval[T] {
	switch op {
	case OpEqual:
		return interval[T]{lo: v, hi: v, hasLo: true, hasHi: true, loInc: true, hiInc: true}
	case OpLessThan:
		return interval[T]{hi: v, hasHi: true}
	case OpLessThanEqual:
		return interval[T]{hi: v, hasHi: true, hiInc: true}
	case OpGreaterThan:
		return interval[T]{lo: v, hasLo: true}
	case OpGreaterThanEqual:
		return interval[T]{lo: v, hasLo: true, loInc: true}
	}
	return nothing[T]()
}

func (iv interval[T]) aboveLo(v T) bool {
	if !iv.hasLo {
		return true
	}
	if iv.loInc {
		return v >= iv.lo
	}
	return v > iv.lo
}

func (iv interval[T]) belowHi(v T) bool {
	if !iv.hasHi {
		return true
	}
	if iv.hiInc {
		return v <= iv.hi
	}
	return v < iv.hi
}

func (iv interval[T]) contains(v T) bool {
	return !iv.empty && iv.aboveLo(v) && iv.belowHi(v)
}

func (iv interval[T]) intersect(o interval[T]) interval[T] {
	if iv.empty || o.empty {
		return nothing[T]()
	}
	out := iv
	if o.hasLo {
		switch {
		case !out.hasLo || o.lo > out.lo:
			out.lo, out.hasLo, out.loInc = o.lo, true, o.loInc
		case o.lo == out.lo:
			out.loInc = out.loInc && o.loInc
		}
	}
	if o.hasHi {
		switch {
		case !out.hasHi || o.hi < out.hi:
			out.hi, out.hasHi, out.hiInc = o.hi, true, o.hiInc
		case o.hi == out.hi:
			out.hiInc = out.hiInc && o.hiInc
		}
	}
	if out.hasLo && out.hasHi {
		if out.lo > out.hi || (out.lo == out.hi && !(out.loInc && out.hiInc)) {
			return nothing[T]()
		}
	}
	return out
}

// belowText is the interval of a numeric column against a text or blob
// operand. Numbers sort before text and blobs.
func belowText[T cmp.Ordered](op Operator) interval[T] {
	if op == OpLessThan || op == OpLessThanEqual {
		return everything[T]()
	}
	return nothing[T]()
}

const twoPow63 = 9223372036854775808.0

// intInterval maps a constraint onto an integer column. Double operands are
// rounded so that the integer set matches the real-valued predicate.
func intInterval(op Operator, o Operand) (interval[int64], error) {
	if !op.Comparison() {
		return interval[int64]{}, ErrUnsupportedOperator
	}
	switch o.Type {
	case OperandInteger:
		return compare(op, o.Int), nil
	case OperandDouble:
		return doubleToIntInterval(op, o.Double), nil
	case OperandString, OperandBlob:
		return belowText[int64](op), nil
	}
	return interval[int64]{}, fmt.Errorf("%w: operand type %s", ErrInvalidArgument, o.Type)
}

func doubleToIntInterval(op Operator, d float64) interval[int64] {
	if math.IsNaN(d) {
		return nothing[int64]()
	}
	var r float64
	switch op {
	case OpEqual:
		if d != math.Trunc(d) || d >= twoPow63 || d < -twoPow63 {
			return nothing[int64]()
		}
		return compare(op, int64(d))
	case OpLessThan, OpGreaterThanEqual:
		r = math.Ceil(d)
	case OpLessThanEqual, OpGreaterThan:
		r = math.Floor(d)
	}
	upper := op == OpLessThan || op == OpLessThanEqual
	switch {
	case r >= twoPow63:
		if upper {
			return everything[int64]()
		}
		return nothing[int64]()
	case r < -twoPow63:
		if upper {
			return nothing[int64]()
		}
		return everything[int64]()
	}
	return compare(op, int64(r))
}

// floatInterval maps a constraint onto a floating point column.
func floatInterval(op Operator, o Operand) (interval[float64], error) {
	if !op.Comparison() {
		return interval[float64]{}, ErrUnsupportedOperator
	}
	switch o.Type {
	case OperandInteger:
		return compare(op, float64(o.Int)), nil
	case OperandDouble:
		if math.IsNaN(o.Double) {
			return nothing[float64](), nil
		}
		return compare(op, o.Double), nil
	case OperandString, OperandBlob:
		return belowText[float64](op), nil
	}
	return interval[float64]{}, fmt.Errorf("%w: operand type %s", ErrInvalidArgument, o.Type)
}

// textInterval maps a constraint onto a string column. Numeric operands
// compare as their text form.
func textInterval(op Operator, o Operand) (interval[string], error) {
	if !op.Comparison() {
		return interval[string]{}, ErrUnsupportedOperator
	}
	switch o.Type {
	case OperandString:
		return compare(op, o.Str), nil
	case OperandInteger:
		return compare(op, strconv.FormatInt(o.Int, 10)), nil
	case OperandDouble:
		return compare(op, formatReal(o.Double)), nil
	case OperandBlob:
		return belowText[string](op), nil
	}
	return interval[string]{}, fmt.Errorf("%w: operand type %s", ErrInvalidArgument, o.Type)
}

// formatReal renders a double the way SQLite casts REAL to TEXT.
func formatReal(d float64) string {
	s := strconv.FormatFloat(d, 'f', -1, 64)
	if d == math.Trunc(d) && !math.IsInf(d, 0) {
		s += ".0"
	}
	return s
}

// blobInterval maps a constraint onto a blob column. Blobs sort after every
// other operand type.
func blobInterval(op Operator, o Operand) (interval[string], error) {
	if !op.Comparison() {
		return interval[string]{}, ErrUnsupportedOperator
	}
	if o.Type == OperandBlob {
		return compare(op, string(o.Blob)), nil
	}
	if op == OpGreaterThan || op == OpGreaterThanEqual {
		return everything[string](), nil
	}
	return nothing[string](), nil
}

// rangeInterval intersects a lower and an upper bound constraint.
func rangeInterval[T cmp.Ordered](lower, upper Constraint, bound func(Operator, Operand) (interval[T], error)) (interval[T], error) {
	if lower.Op != OpGreaterThan && lower.Op != OpGreaterThanEqual {
		return interval[T]{}, fmt.Errorf("%w: lower bound operator %s", ErrInvalidArgument, lower.Op)
	}
	if upper.Op != OpLessThan && upper.Op != OpLessThanEqual {
		return interval[T]{}, fmt.Errorf("%w: upper bound operator %s", ErrInvalidArgument, upper.Op)
	}
	lo, err := bound(lower.Op, lower.Operand)
	if err != nil {
		return interval[T]{}, err
	}
	hi, err := bound(upper.Op, upper.Operand)
	if err != nil {
		return interval[T]{}, err
	}
	return lo.intersect(hi), nil
}
