package catalog

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
)

// ScalarFunction represents a user-defined scalar function.
// Callable from SQL once bound into an engine session.
// Implementations MUST be goroutine-safe: the engine may invoke
// Execute from several worker threads at once.
type ScalarFunction interface {
	// Name returns the function name as it appears in queries (e.g., "to_date").
	// Names are matched case-insensitively by the engine.
	// MUST return non-empty string.
	Name() string

	// Comment returns optional function documentation.
	// Returns empty string if no comment provided.
	Comment() string

	// Signature returns the function signature.
	// Defines parameter types, return type and volatility.
	Signature() FunctionSignature

	// Execute runs the function on an input batch and returns the result array.
	// Input columns match the parameter types from Signature, in order.
	// The returned array MUST have input.NumRows() elements and the
	// Signature return type. Caller MUST call Release() on the result.
	// On error no array is returned: a batch either succeeds as a whole
	// or fails as a whole.
	// Processes entire batch at once (vectorized execution).
	Execute(ctx context.Context, input arrow.RecordBatch) (arrow.Array, error)
}
