// Package recovery provides panic recovery for user-supplied callbacks
// invoked from query engine worker threads.
// Ensures a faulty scalar function fails its query instead of crashing the process.
package recovery

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// PanicError is returned when a wrapped function panics.
type PanicError struct {
	Operation string
	Value     any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s panicked: %v", e.Operation, e.Value)
}

// RecoverToError wraps a function call with panic recovery.
// If the function panics, converts the panic to a *PanicError.
//
// Example:
//
//	err := recovery.RecoverToError(logger, "register function", func() error {
//	    sig = fn.Signature()
//	    return nil
//	})
func RecoverToError(logger *slog.Logger, operation string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logPanic(logger, operation, r)
			err = &PanicError{Operation: operation, Value: r}
		}
	}()

	return fn()
}

// RecoverToValue wraps a function that returns a value and error.
// If the function panics, returns zero value and a *PanicError.
//
// Example:
//
//	out, err := recovery.RecoverToValue(logger, "to_date", func() (arrow.Array, error) {
//	    return fn.Execute(ctx, batch)
//	})
func RecoverToValue[T any](logger *slog.Logger, operation string, fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			logPanic(logger, operation, r)

			var zero T
			result = zero
			err = &PanicError{Operation: operation, Value: r}
		}
	}()

	return fn()
}

func logPanic(logger *slog.Logger, operation string, r any) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("Panic recovered",
		"operation", operation,
		"panic", r,
		"stack", string(debug.Stack()),
	)
}
