package functions

import (
	"context"
	"log/slog"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/BubbaJoe/jsonquery/catalog"
)

// ToDateName is the SQL name ToDate registers under.
const ToDateName = "to_date"

const secondsPerDay = 86400

// ErrorPolicy selects how ToDate handles null and unparseable rows.
type ErrorPolicy int

const (
	// FailFast aborts the whole batch on the first null or unparseable row.
	FailFast ErrorPolicy = iota
	// NullOnError emits a null for null or unparseable rows and continues.
	NullOnError
)

// String returns the policy name as accepted by ParseErrorPolicy.
func (p ErrorPolicy) String() string {
	if p == NullOnError {
		return "null"
	}
	return "fail"
}

// ParseErrorPolicy parses "fail" or "null".
func ParseErrorPolicy(s string) (ErrorPolicy, bool) {
	switch s {
	case "fail", "":
		return FailFast, true
	case "null":
		return NullOnError, true
	}
	return FailFast, false
}

// Option configures ToDate.
type Option func(*ToDate)

// WithErrorPolicy sets the row error policy. Default is FailFast.
func WithErrorPolicy(p ErrorPolicy) Option {
	return func(f *ToDate) { f.policy = p }
}

// WithAllocator sets the allocator for output arrays.
// Default is memory.DefaultAllocator.
func WithAllocator(alloc memory.Allocator) Option {
	return func(f *ToDate) { f.alloc = alloc }
}

// WithLogger sets the logger used to report substituted rows.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(f *ToDate) { f.logger = logger }
}

// ToDate converts RFC 3339 timestamps to date32 day counts.
// It holds no mutable state and is safe for concurrent use.
type ToDate struct {
	policy ErrorPolicy
	alloc  memory.Allocator
	logger *slog.Logger
}

var _ catalog.ScalarFunction = (*ToDate)(nil)

// NewToDate creates the to_date function.
func NewToDate(opts ...Option) *ToDate {
	f := &ToDate{
		policy: FailFast,
		alloc:  memory.DefaultAllocator,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name implements catalog.ScalarFunction.
func (f *ToDate) Name() string {
	return ToDateName
}

// Comment implements catalog.ScalarFunction.
func (f *ToDate) Comment() string {
	return "Converts an RFC 3339 timestamp string to the date of its UTC instant"
}

// Signature implements catalog.ScalarFunction.
// Input: string column, Output: date32 column.
func (f *ToDate) Signature() catalog.FunctionSignature {
	return catalog.FunctionSignature{
		Parameters: []arrow.DataType{arrow.BinaryTypes.String},
		ReturnType: arrow.FixedWidthTypes.Date32,
		Volatility: catalog.Immutable,
	}
}

// Execute implements catalog.ScalarFunction.
func (f *ToDate) Execute(ctx context.Context, input arrow.RecordBatch) (arrow.Array, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := f.Invoke(input.Columns())
	if err != nil {
		return nil, err
	}
	return out, nil
}

// stringArray is satisfied by the Arrow text arrays ToDate accepts.
type stringArray interface {
	arrow.Array
	Value(i int) string
}

// Invoke converts the single text array in args to a date32 array of the
// same length. Under FailFast the result has no nulls; any null or
// unparseable element fails the whole call and no array is returned.
// Caller MUST call Release() on the result.
func (f *ToDate) Invoke(args []arrow.Array) (*array.Date32, error) {
	if len(args) != 1 {
		return nil, &ArityError{Function: ToDateName, Want: 1, Got: len(args)}
	}

	var input stringArray
	switch args[0].DataType().ID() {
	case arrow.STRING, arrow.LARGE_STRING, arrow.STRING_VIEW:
		input, _ = args[0].(stringArray)
	}
	if input == nil {
		return nil, &ArgumentTypeError{Function: ToDateName, Got: args[0].DataType()}
	}

	builder := array.NewDate32Builder(f.alloc)
	defer builder.Release()
	builder.Reserve(input.Len())

	for i := 0; i < input.Len(); i++ {
		if input.IsNull(i) {
			if f.policy == NullOnError {
				f.logger.Debug("Null input replaced with null date", "function", ToDateName, "row", i)
				builder.AppendNull()
				continue
			}
			return nil, &NullValueError{Function: ToDateName, Index: i}
		}

		value := input.Value(i)
		day, err := ParseDay(value)
		if err != nil {
			if f.policy == NullOnError {
				f.logger.Debug("Unparseable timestamp replaced with null date",
					"function", ToDateName,
					"row", i,
					"value", value,
					"error", err,
				)
				builder.AppendNull()
				continue
			}
			return nil, &ParseError{Function: ToDateName, Index: i, Value: value, Err: err}
		}
		builder.Append(day)
	}

	return builder.NewDate32Array(), nil
}

// ParseDay parses an RFC 3339 timestamp and returns the number of whole
// days between the Unix epoch and its instant. The sub-day remainder is
// discarded by integer division, so instants before the epoch truncate
// toward zero.
//
// A leap second (seconds field 60) is accepted and counted as the last
// second of its minute, so it falls on the same day.
func ParseDay(s string) (arrow.Date32, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		leap, ok := withoutLeapSecond(s)
		if !ok {
			return 0, err
		}
		if t, err = time.Parse(time.RFC3339, leap); err != nil {
			return 0, err
		}
	}
	return arrow.Date32(t.Unix() / secondsPerDay), nil
}

// withoutLeapSecond rewrites a seconds field of 60 to 59.
func withoutLeapSecond(s string) (string, bool) {
	// YYYY-MM-DDTHH:MM:SS
	if len(s) < 19 || s[16] != ':' || s[17:19] != "60" {
		return "", false
	}
	return s[:17] + "59" + s[19:], true
}
