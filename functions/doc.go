// Package functions provides scalar functions that can be bound into an
// engine session.
//
// ToDate converts RFC 3339 timestamp strings into Arrow date32 values
// (whole days since 1970-01-01). It follows the catalog.ScalarFunction
// contract: a batch either converts completely or fails with one typed
// error (ArityError, ArgumentTypeError, NullValueError, ParseError).
// The NullOnError policy relaxes this for null and unparseable rows.
package functions
