package engine

import (
	"context"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/duckdb/duckdb-go/v2"
	"github.com/goccy/go-json"
	"github.com/spf13/cast"

	"github.com/BubbaJoe/jsonquery/catalog"
	"github.com/BubbaJoe/jsonquery/internal/recovery"
)

// RegisterFunction binds fn as a SQL scalar function under fn.Name().
//
// The first registration of a name installs a DuckDB UDF that dispatches
// to the currently bound implementation. Registering the same name again
// replaces the implementation for all subsequent calls. The new function
// MUST declare the same signature; otherwise ErrSignatureConflict is
// returned and the previous binding stays in place.
func (s *Session) RegisterFunction(ctx context.Context, fn catalog.ScalarFunction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var (
		name string
		sig  catalog.FunctionSignature
	)
	err := recovery.RecoverToError(s.logger, "register function", func() error {
		if err := catalog.ValidateScalarFunction(fn); err != nil {
			return err
		}
		name = strings.ToLower(fn.Name())
		sig = fn.Signature()
		return nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	if existing, ok := s.funcs[name]; ok {
		if !existing.sig.Equal(sig) {
			return fmt.Errorf("%w: %s", ErrSignatureConflict, name)
		}
		existing.bind(fn)
		s.logger.Debug("Scalar function replaced", "function", name)
		return nil
	}

	udf, err := newScalarUDF(name, sig, fn, s.allocator, s.logger)
	if err != nil {
		return fmt.Errorf("register function %s: %w", name, err)
	}
	if err := duckdb.RegisterScalarUDF(s.conn, name, udf); err != nil {
		return fmt.Errorf("register function %s: %w", name, err)
	}
	s.funcs[name] = udf

	s.logger.Debug("Scalar function registered",
		"function", name,
		"parameters", len(sig.Parameters),
		"return_type", sig.ReturnType.String(),
		"volatility", sig.Volatility.String(),
	)
	return nil
}

// boundFunction holds the implementation a scalarUDF dispatches to.
type boundFunction struct {
	fn catalog.ScalarFunction
}

// scalarUDF adapts a catalog.ScalarFunction to DuckDB's scalar UDF
// interface. DuckDB calls it one row at a time; each row is passed to the
// implementation as a single-row batch.
type scalarUDF struct {
	name      string
	sig       catalog.FunctionSignature
	config    duckdb.ScalarFuncConfig
	schema    *arrow.Schema
	allocator memory.Allocator
	logger    *slog.Logger

	current atomic.Pointer[boundFunction]
}

func newScalarUDF(name string, sig catalog.FunctionSignature, fn catalog.ScalarFunction, allocator memory.Allocator, logger *slog.Logger) (*scalarUDF, error) {
	config, err := scalarFuncConfig(sig)
	if err != nil {
		return nil, err
	}

	u := &scalarUDF{
		name:      name,
		sig:       sig,
		config:    config,
		schema:    catalog.InputSchema(sig),
		allocator: allocator,
		logger:    logger,
	}
	u.bind(fn)
	return u, nil
}

func (u *scalarUDF) bind(fn catalog.ScalarFunction) {
	u.current.Store(&boundFunction{fn: fn})
}

// Config implements duckdb.ScalarFunc.
func (u *scalarUDF) Config() duckdb.ScalarFuncConfig {
	return u.config
}

// Executor implements duckdb.ScalarFunc.
func (u *scalarUDF) Executor() duckdb.ScalarFuncExecutor {
	return duckdb.ScalarFuncExecutor{RowContextExecutor: u.executeRow}
}

func (u *scalarUDF) executeRow(ctx context.Context, values []driver.Value) (any, error) {
	fn := u.current.Load().fn
	return recovery.RecoverToValue(u.logger, u.name, func() (any, error) {
		input, err := u.rowBatch(values)
		if err != nil {
			return nil, err
		}
		defer input.Release()

		res, err := fn.Execute(ctx, input)
		if err != nil {
			u.logger.Error("Function execution failed",
				"function", u.name,
				"error", err,
			)
			return nil, err
		}
		if res == nil {
			return nil, fmt.Errorf("%s returned nil array", u.name)
		}
		defer res.Release()

		if res.Len() != int(input.NumRows()) {
			return nil, fmt.Errorf("%s: output rows must match input rows, expected %d got %d",
				u.name, input.NumRows(), res.Len())
		}
		if !arrow.TypeEqual(res.DataType(), u.sig.ReturnType) {
			return nil, fmt.Errorf("%s: output array type mismatch: expected %s, got %s",
				u.name, u.sig.ReturnType, res.DataType())
		}
		return driverValue(res, 0)
	})
}

// rowBatch builds a one-row batch from engine values.
func (u *scalarUDF) rowBatch(values []driver.Value) (arrow.RecordBatch, error) {
	schema := u.schema
	if len(values) != schema.NumFields() {
		if !u.sig.Variadic {
			return nil, fmt.Errorf("%s: expected %d arguments, got %d", u.name, schema.NumFields(), len(values))
		}
		schema = variadicSchema(u.sig, len(values))
	}

	builder := array.NewRecordBuilder(u.allocator, schema)
	defer builder.Release()

	for i, v := range values {
		if err := appendValue(builder.Field(i), v); err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", u.name, i, err)
		}
	}
	return builder.NewRecordBatch(), nil
}

// variadicSchema repeats the last parameter type until n columns exist.
func variadicSchema(sig catalog.FunctionSignature, n int) *arrow.Schema {
	params := make([]arrow.DataType, n)
	fixed := len(sig.Parameters) - 1
	copy(params, sig.Parameters[:fixed])
	for i := fixed; i < n; i++ {
		params[i] = sig.Parameters[fixed]
	}
	return catalog.InputSchema(catalog.FunctionSignature{Parameters: params})
}

// scalarFuncConfig maps a function signature to DuckDB UDF configuration.
// Null inputs are always forwarded to the implementation.
func scalarFuncConfig(sig catalog.FunctionSignature) (duckdb.ScalarFuncConfig, error) {
	params := sig.Parameters
	var variadic duckdb.TypeInfo
	if sig.Variadic {
		info, err := typeInfo(params[len(params)-1])
		if err != nil {
			return duckdb.ScalarFuncConfig{}, err
		}
		variadic = info
		params = params[:len(params)-1]
	}

	inputs := make([]duckdb.TypeInfo, len(params))
	for i, p := range params {
		info, err := typeInfo(p)
		if err != nil {
			return duckdb.ScalarFuncConfig{}, fmt.Errorf("parameter %d: %w", i, err)
		}
		inputs[i] = info
	}

	result, err := typeInfo(sig.ReturnType)
	if err != nil {
		return duckdb.ScalarFuncConfig{}, fmt.Errorf("return type: %w", err)
	}

	return duckdb.ScalarFuncConfig{
		InputTypeInfos:      inputs,
		ResultTypeInfo:      result,
		VariadicTypeInfo:    variadic,
		Volatile:            sig.Volatility == catalog.Volatile,
		SpecialNullHandling: true,
	}, nil
}

// duckdbType maps an Arrow type to the DuckDB logical type.
func duckdbType(dt arrow.DataType) (duckdb.Type, error) {
	switch dt.ID() {
	case arrow.STRING, arrow.LARGE_STRING:
		return duckdb.TYPE_VARCHAR, nil
	case arrow.DATE32:
		return duckdb.TYPE_DATE, nil
	case arrow.INT32:
		return duckdb.TYPE_INTEGER, nil
	case arrow.INT64:
		return duckdb.TYPE_BIGINT, nil
	case arrow.FLOAT64:
		return duckdb.TYPE_DOUBLE, nil
	case arrow.BOOL:
		return duckdb.TYPE_BOOLEAN, nil
	default:
		return duckdb.TYPE_INVALID, fmt.Errorf("%w: %s", ErrUnsupportedType, dt)
	}
}

func typeInfo(dt arrow.DataType) (duckdb.TypeInfo, error) {
	t, err := duckdbType(dt)
	if err != nil {
		return nil, err
	}
	return duckdb.NewTypeInfo(t)
}

// appendValue appends one engine value to an Arrow builder.
func appendValue(b array.Builder, v driver.Value) error {
	if v == nil {
		b.AppendNull()
		return nil
	}

	switch b := b.(type) {
	case *array.StringBuilder:
		s, err := textValue(v)
		if err != nil {
			return err
		}
		b.Append(s)
	case *array.LargeStringBuilder:
		s, err := textValue(v)
		if err != nil {
			return err
		}
		b.Append(s)
	case *array.Date32Builder:
		t, err := cast.ToTimeE(v)
		if err != nil {
			return err
		}
		b.Append(arrow.Date32FromTime(t))
	case *array.TimestampBuilder:
		t, err := cast.ToTimeE(v)
		if err != nil {
			return err
		}
		ts, err := arrow.TimestampFromTime(t, b.Type().(*arrow.TimestampType).Unit)
		if err != nil {
			return err
		}
		b.Append(ts)
	case *array.Int32Builder:
		n, err := cast.ToInt32E(v)
		if err != nil {
			return err
		}
		b.Append(n)
	case *array.Int64Builder:
		n, err := cast.ToInt64E(v)
		if err != nil {
			return err
		}
		b.Append(n)
	case *array.Float64Builder:
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return err
		}
		b.Append(f)
	case *array.BooleanBuilder:
		ok, err := cast.ToBoolE(v)
		if err != nil {
			return err
		}
		b.Append(ok)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, b.Type())
	}
	return nil
}

// textValue renders an engine value as text. Nested values (lists,
// structs, maps) are encoded as JSON.
func textValue(v any) (string, error) {
	if s, err := cast.ToStringE(v); err == nil {
		return s, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("cannot convert %T to text: %w", v, err)
	}
	return string(data), nil
}

// driverValue returns element i of arr as a value DuckDB accepts.
func driverValue(arr arrow.Array, i int) (any, error) {
	if arr.IsNull(i) {
		return nil, nil
	}

	switch a := arr.(type) {
	case *array.Date32:
		return a.Value(i).ToTime(), nil
	case *array.String:
		return a.Value(i), nil
	case *array.LargeString:
		return a.Value(i), nil
	case *array.Int32:
		return a.Value(i), nil
	case *array.Int64:
		return a.Value(i), nil
	case *array.Float64:
		return a.Value(i), nil
	case *array.Boolean:
		return a.Value(i), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, arr.DataType())
	}
}
