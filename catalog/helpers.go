package catalog

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// ValidateScalarFunction checks that fn declares a usable name and signature.
//
// Returns an error when:
//   - fn is nil
//   - Name() is empty
//   - Signature has no parameters or a nil parameter type
//   - Signature has a nil return type
//
// Example:
//
//	if err := catalog.ValidateScalarFunction(fn); err != nil {
//	    return fmt.Errorf("register %q: %w", fn.Name(), err)
//	}
func ValidateScalarFunction(fn ScalarFunction) error {
	if fn == nil {
		return fmt.Errorf("scalar function is nil")
	}
	if fn.Name() == "" {
		return fmt.Errorf("scalar function name cannot be empty")
	}

	sig := fn.Signature()
	if len(sig.Parameters) == 0 {
		return fmt.Errorf("scalar function %s has no parameters", fn.Name())
	}
	for i, p := range sig.Parameters {
		if p == nil {
			return fmt.Errorf("scalar function %s has nil type for parameter %d", fn.Name(), i)
		}
	}
	if sig.ReturnType == nil {
		return fmt.Errorf("scalar function %s has nil return type", fn.Name())
	}
	return nil
}

// InputSchema returns the Arrow schema of the batch passed to Execute
// for the given signature. Columns are named arg0, arg1, ...
func InputSchema(sig FunctionSignature) *arrow.Schema {
	fields := make([]arrow.Field, len(sig.Parameters))
	for i, p := range sig.Parameters {
		fields[i] = arrow.Field{Name: fmt.Sprintf("arg%d", i), Type: p, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}
