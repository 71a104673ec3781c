package index

import (
	"fmt"
	"strconv"
)

// Operator is a comparison operator of a column predicate.
type Operator int32

const (
	OpEqual Operator = iota + 1
	OpLessThan
	OpLessThanEqual
	OpGreaterThan
	OpGreaterThanEqual
	OpMatch
	OpLike
	OpGlob
	OpRegexp
)

func (o Operator) String() string {
	switch o {
	case OpEqual:
		return "="
	case OpLessThan:
		return "<"
	case OpLessThanEqual:
		return "<="
	case OpGreaterThan:
		return ">"
	case OpGreaterThanEqual:
		return ">="
	case OpMatch:
		return "MATCH"
	case OpLike:
		return "LIKE"
	case OpGlob:
		return "GLOB"
	case OpRegexp:
		return "REGEXP"
	default:
		return "Operator(" + strconv.Itoa(int(o)) + ")"
	}
}

// Comparison reports whether o is one of =, <, <=, >, >=.
func (o Operator) Comparison() bool {
	return o >= OpEqual && o <= OpGreaterThanEqual
}

// OperandType is the SQL type of a constraint operand.
type OperandType int32

const (
	OperandInteger OperandType = iota + 1
	OperandDouble
	OperandString
	OperandBlob
)

func (t OperandType) String() string {
	switch t {
	case OperandInteger:
		return "INTEGER"
	case OperandDouble:
		return "DOUBLE"
	case OperandString:
		return "STRING"
	case OperandBlob:
		return "BLOB"
	default:
		return "OperandType(" + strconv.Itoa(int(t)) + ")"
	}
}

// Operand is the right-hand side of a constraint.
type Operand struct {
	Type   OperandType
	Int    int64
	Double float64
	Str    string
	Blob   []byte
}

// Constraint is a single column predicate supplied by the SQL layer.
type Constraint struct {
	Column  string
	Op      Operator
	Operand Operand
}

func (c Constraint) String() string {
	var v any
	switch c.Operand.Type {
	case OperandInteger:
		v = c.Operand.Int
	case OperandDouble:
		v = c.Operand.Double
	case OperandString:
		v = strconv.Quote(c.Operand.Str)
	case OperandBlob:
		v = fmt.Sprintf("x'%x'", c.Operand.Blob)
	}
	return fmt.Sprintf("%s %s %v", c.Column, c.Op, v)
}

// IntConstraint builds a constraint with an integer operand.
func IntConstraint(column string, op Operator, v int64) Constraint {
	return Constraint{Column: column, Op: op, Operand: Operand{Type: OperandInteger, Int: v}}
}

// DoubleConstraint builds a constraint with a double operand.
func DoubleConstraint(column string, op Operator, v float64) Constraint {
	return Constraint{Column: column, Op: op, Operand: Operand{Type: OperandDouble, Double: v}}
}

// StringConstraint builds a constraint with a string operand.
func StringConstraint(column string, op Operator, v string) Constraint {
	return Constraint{Column: column, Op: op, Operand: Operand{Type: OperandString, Str: v}}
}

// BlobConstraint builds a constraint with a blob operand.
func BlobConstraint(column string, op Operator, v []byte) Constraint {
	return Constraint{Column: column, Op: op, Operand: Operand{Type: OperandBlob, Blob: v}}
}
