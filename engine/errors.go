package engine

import (
	"errors"
	"fmt"
)

// Standard errors returned by the engine package.
var (
	// ErrSignatureConflict indicates a function was re-registered with a
	// signature that differs from the one already bound under its name.
	ErrSignatureConflict = errors.New("function signature conflict")

	// ErrUnsupportedType indicates an Arrow type with no engine mapping.
	ErrUnsupportedType = errors.New("unsupported arrow type")

	// ErrSessionClosed indicates the session was used after Close.
	ErrSessionClosed = errors.New("session closed")
)

// DatasetRegistrationError is returned when a dataset cannot be registered
// as a table. Err holds the cause (missing file, malformed content, engine error).
type DatasetRegistrationError struct {
	Table string
	Path  string
	Err   error
}

func (e *DatasetRegistrationError) Error() string {
	return fmt.Sprintf("register dataset %q from %s: %v", e.Table, e.Path, e.Err)
}

func (e *DatasetRegistrationError) Unwrap() error {
	return e.Err
}

// QueryExecutionError is returned when the engine rejects or fails a query.
// Err is the engine error, unmodified.
type QueryExecutionError struct {
	SQL string
	Err error
}

func (e *QueryExecutionError) Error() string {
	return fmt.Sprintf("execute %q: %v", e.SQL, e.Err)
}

func (e *QueryExecutionError) Unwrap() error {
	return e.Err
}
