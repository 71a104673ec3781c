package index

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for malformed index definitions and
	// constraints.
	ErrInvalidArgument = errors.New("index: invalid argument")
	// ErrUnsupportedOperator is returned when an indexer cannot evaluate an
	// operator.
	ErrUnsupportedOperator = errors.New("index: unsupported operator")
	// ErrNoIndex is returned when no indexer covers a constraint.
	ErrNoIndex = errors.New("index: no index for constraint")
	// ErrIndexExists is returned when an index name is already taken.
	ErrIndexExists = errors.New("index: index already exists")
)

// OperatorError reports an operator an indexer cannot evaluate.
type OperatorError struct {
	Index string
	Op    Operator
}

func (e *OperatorError) Error() string {
	return fmt.Sprintf("index %q: operator %s is not supported", e.Index, e.Op)
}

func (e *OperatorError) Unwrap() error { return ErrUnsupportedOperator }
