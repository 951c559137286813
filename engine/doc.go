// Package engine provides a query engine session over an embedded DuckDB
// database.
//
// A Session is the single handle through which datasets are registered,
// scalar functions are bound and SQL is executed. Results are returned as
// Arrow record batches.
//
// # Datasets
//
// RegisterJSON exposes a newline-delimited JSON file as a view. The schema
// is inferred from a sample of the file; temporal types DuckDB would detect
// are declared VARCHAR so timestamp text reaches SQL unchanged.
//
// # Scalar functions
//
// RegisterFunction binds a catalog.ScalarFunction as a DuckDB scalar UDF.
// Registering the same name again replaces the implementation (last writer
// wins) as long as the signature is unchanged. The implementation receives
// null inputs and decides its own null policy.
//
// # Memory Management
//
// Batches returned by Query are owned by the caller, who MUST call
// Release() on each of them.
package engine
