package catalog

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// Volatility classifies how a function's output depends on its input.
type Volatility int

const (
	// Immutable functions always return the same output for the same input.
	// The engine may cache, reorder or deduplicate calls.
	Immutable Volatility = iota
	// Stable functions return the same output for the same input within
	// a single query.
	Stable
	// Volatile functions may return a different output on every call.
	Volatile
)

// String returns the lower-case volatility name.
func (v Volatility) String() string {
	switch v {
	case Immutable:
		return "immutable"
	case Stable:
		return "stable"
	case Volatile:
		return "volatile"
	default:
		return fmt.Sprintf("volatility(%d)", int(v))
	}
}

// FunctionSignature describes scalar function types.
type FunctionSignature struct {
	// Parameters is list of parameter types (in order).
	// MUST have at least 1 parameter.
	Parameters []arrow.DataType

	// ReturnType is the function's return type.
	// MUST NOT be nil.
	ReturnType arrow.DataType

	// Variadic indicates if last parameter accepts multiple values.
	Variadic bool

	// Volatility is the determinism classification.
	// Zero value is Immutable.
	Volatility Volatility
}

// Equal reports whether two signatures declare the same types,
// variadic flag and volatility.
func (s FunctionSignature) Equal(other FunctionSignature) bool {
	if len(s.Parameters) != len(other.Parameters) ||
		s.Variadic != other.Variadic ||
		s.Volatility != other.Volatility {
		return false
	}
	for i := range s.Parameters {
		if !arrow.TypeEqual(s.Parameters[i], other.Parameters[i]) {
			return false
		}
	}
	if s.ReturnType == nil || other.ReturnType == nil {
		return s.ReturnType == nil && other.ReturnType == nil
	}
	return arrow.TypeEqual(s.ReturnType, other.ReturnType)
}
