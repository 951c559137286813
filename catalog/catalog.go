// Package catalog defines the contract between the query engine and
// user-defined scalar functions.
//
// A ScalarFunction receives whole Arrow batches and returns one Arrow
// array per batch. Its FunctionSignature declares parameter and return
// types together with a Volatility classification the engine uses to
// decide whether calls may be cached or reordered.
//
// All interfaces are goroutine-safe and support context-based cancellation.
package catalog
