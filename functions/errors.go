package functions

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// ArityError is returned when a function receives the wrong number of
// argument arrays.
type ArityError struct {
	Function string
	Want     int
	Got      int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("%s was called with %d arguments, it requires %d", e.Function, e.Got, e.Want)
}

// ArgumentTypeError is returned when an argument array has a type the
// function cannot read.
type ArgumentTypeError struct {
	Function string
	Got      arrow.DataType
}

func (e *ArgumentTypeError) Error() string {
	return fmt.Sprintf("%s expects a string argument, got %s", e.Function, e.Got)
}

// NullValueError is returned when a required input value is null.
type NullValueError struct {
	Function string
	Index    int
}

func (e *NullValueError) Error() string {
	return fmt.Sprintf("%s: null value at row %d", e.Function, e.Index)
}

// ParseError is returned when an input value is not a valid timestamp.
// Err holds the underlying parse diagnostic.
type ParseError struct {
	Function string
	Index    int
	Value    string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: cannot parse %q at row %d: %v", e.Function, e.Value, e.Index, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
