package functions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newStringArray(t *testing.T, alloc memory.Allocator, values []string, valid []bool) *array.String {
	t.Helper()
	b := array.NewStringBuilder(alloc)
	defer b.Release()
	b.AppendValues(values, valid)
	return b.NewStringArray()
}

func dateValues(arr *array.Date32) []arrow.Date32 {
	out := make([]arrow.Date32, arr.Len())
	for i := range out {
		out[i] = arr.Value(i)
	}
	return out
}

func TestParseDay(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  arrow.Date32
	}{
		{name: "epoch", input: "1970-01-01T00:00:00+00:00", want: 0},
		{name: "next day", input: "1970-01-02T00:00:00+00:00", want: 1},
		{name: "last second of epoch day", input: "1970-01-01T23:59:59+00:00", want: 0},
		{name: "Z designator", input: "2024-01-15T10:00:00Z", want: 19737},
		{name: "positive offset", input: "2024-03-01T12:00:00+02:00", want: 19783},
		{name: "offset crosses into previous day", input: "2024-03-01T01:00:00+02:00", want: 19782},
		{name: "negative offset crosses into next day", input: "2024-02-29T23:00:00-02:00", want: 19783},
		{name: "fractional seconds", input: "2024-01-15T10:00:00.123456+00:00", want: 19737},
		{name: "before epoch truncates toward zero", input: "1969-12-31T12:00:00Z", want: 0},
		{name: "before epoch partial day", input: "1969-12-30T12:00:00Z", want: -1},
		{name: "before epoch whole days", input: "1969-12-30T00:00:00Z", want: -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDay(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDayLeapSecond(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  arrow.Date32
	}{
		{name: "end of 2016", input: "2016-12-31T23:59:60Z", want: 17166},
		{name: "fractional", input: "2016-12-31T23:59:60.5Z", want: 17166},
		{name: "with offset", input: "2017-01-01T05:29:60+05:30", want: 17166},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDay(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, s := range []string{"2016-12-31T23:59:61Z", "2016-12-31T23:60:00Z", "2016-12-31T24:59:60Z"} {
		_, err := ParseDay(s)
		assert.Error(t, err, s)
	}
}

func TestParseDayMatchesUnixDivision(t *testing.T) {
	instants := []time.Time{
		time.Date(2000, 2, 29, 23, 59, 59, 0, time.UTC),
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2038, 1, 19, 3, 14, 8, 0, time.UTC),
		time.Date(1901, 12, 13, 20, 45, 52, 0, time.UTC),
		time.Date(2024, 6, 30, 18, 30, 0, 0, time.FixedZone("IST", 5*3600+1800)),
	}
	for _, ts := range instants {
		s := ts.Format(time.RFC3339)
		got, err := ParseDay(s)
		require.NoError(t, err, s)
		assert.Equal(t, arrow.Date32(ts.Unix()/86400), got, s)
	}
}

func TestParseDayInvalid(t *testing.T) {
	inputs := []string{
		"",
		"not a date",
		"2024-01-15",
		"2024-01-15T10:00:00",
		"2024-01-15 10:00:00+00:00",
		"2024-02-30T00:00:00Z",
		"2024-13-01T00:00:00Z",
		"2024-01-15T25:00:00Z",
	}
	for _, s := range inputs {
		_, err := ParseDay(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestToDateInvoke(t *testing.T) {
	alloc := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer alloc.AssertSize(t, 0)

	input := newStringArray(t, alloc, []string{
		"1970-01-02T00:00:00+00:00",
		"1970-01-01T23:59:59+00:00",
		"2024-03-01T12:00:00+02:00",
	}, nil)
	defer input.Release()

	fn := NewToDate(WithAllocator(alloc))
	out, err := fn.Invoke([]arrow.Array{input})
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, input.Len(), out.Len())
	assert.Equal(t, 0, out.NullN())
	assert.Equal(t, []arrow.Date32{1, 0, 19783}, dateValues(out))
}

func TestToDateInvokeEmpty(t *testing.T) {
	input := newStringArray(t, memory.DefaultAllocator, nil, nil)
	defer input.Release()

	out, err := NewToDate().Invoke([]arrow.Array{input})
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, 0, out.Len())
}

func TestToDateArity(t *testing.T) {
	a := newStringArray(t, memory.DefaultAllocator, []string{"2024-01-15T10:00:00Z"}, nil)
	defer a.Release()

	tests := []struct {
		name string
		args []arrow.Array
		want int
	}{
		{name: "no arguments", args: nil, want: 0},
		{name: "two arguments", args: []arrow.Array{a, a}, want: 2},
		{name: "three arguments", args: []arrow.Array{a, a, a}, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NewToDate().Invoke(tt.args)
			assert.Nil(t, out)

			var arityErr *ArityError
			require.ErrorAs(t, err, &arityErr)
			assert.Equal(t, tt.want, arityErr.Got)
			assert.Equal(t, 1, arityErr.Want)
			assert.Contains(t, err.Error(), "to_date was called with")
		})
	}
}

func TestToDateArgumentType(t *testing.T) {
	b := array.NewInt64Builder(memory.DefaultAllocator)
	b.AppendValues([]int64{1, 2}, nil)
	ints := b.NewInt64Array()
	b.Release()
	defer ints.Release()

	out, err := NewToDate().Invoke([]arrow.Array{ints})
	assert.Nil(t, out)

	var typeErr *ArgumentTypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, arrow.INT64, typeErr.Got.ID())
}

func TestToDateLargeString(t *testing.T) {
	b := array.NewLargeStringBuilder(memory.DefaultAllocator)
	b.AppendValues([]string{"1970-01-03T00:00:00Z"}, nil)
	input := b.NewLargeStringArray()
	b.Release()
	defer input.Release()

	out, err := NewToDate().Invoke([]arrow.Array{input})
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, []arrow.Date32{2}, dateValues(out))
}

func TestToDateNullFailsWholeBatch(t *testing.T) {
	alloc := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer alloc.AssertSize(t, 0)

	input := newStringArray(t, alloc,
		[]string{"2024-01-15T10:00:00Z", "", "2024-01-16T10:00:00Z"},
		[]bool{true, false, true},
	)
	defer input.Release()

	out, err := NewToDate(WithAllocator(alloc)).Invoke([]arrow.Array{input})
	assert.Nil(t, out)

	var nullErr *NullValueError
	require.ErrorAs(t, err, &nullErr)
	assert.Equal(t, 1, nullErr.Index)
}

func TestToDateParseErrorAnyPosition(t *testing.T) {
	valid := "2024-01-15T10:00:00+00:00"
	bad := "2024-01-15T10:00:00"

	for pos := 0; pos < 3; pos++ {
		values := []string{valid, valid, valid}
		values[pos] = bad

		input := newStringArray(t, memory.DefaultAllocator, values, nil)
		out, err := NewToDate().Invoke([]arrow.Array{input})
		input.Release()

		assert.Nil(t, out)
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr, "position %d", pos)
		assert.Equal(t, bad, parseErr.Value)
		assert.Equal(t, pos, parseErr.Index)
		assert.NotNil(t, errors.Unwrap(parseErr))
		assert.Contains(t, err.Error(), bad)
	}
}

func TestToDateNullOnError(t *testing.T) {
	alloc := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer alloc.AssertSize(t, 0)

	input := newStringArray(t, alloc,
		[]string{"1970-01-02T00:00:00Z", "", "garbage", "1970-01-04T00:00:00Z"},
		[]bool{true, false, true, true},
	)
	defer input.Release()

	fn := NewToDate(WithAllocator(alloc), WithErrorPolicy(NullOnError))
	out, err := fn.Invoke([]arrow.Array{input})
	require.NoError(t, err)
	defer out.Release()

	require.Equal(t, 4, out.Len())
	assert.Equal(t, 2, out.NullN())
	assert.True(t, out.IsValid(0))
	assert.True(t, out.IsNull(1))
	assert.True(t, out.IsNull(2))
	assert.Equal(t, arrow.Date32(1), out.Value(0))
	assert.Equal(t, arrow.Date32(3), out.Value(3))

	// arity stays fatal regardless of policy
	_, err = fn.Invoke(nil)
	var arityErr *ArityError
	assert.ErrorAs(t, err, &arityErr)
}

func TestToDateDeterministic(t *testing.T) {
	input := newStringArray(t, memory.DefaultAllocator, []string{
		"2024-01-15T10:00:00+00:00",
		"1999-12-31T23:59:59-08:00",
	}, nil)
	defer input.Release()

	fn := NewToDate()
	first, err := fn.Invoke([]arrow.Array{input})
	require.NoError(t, err)
	defer first.Release()
	second, err := fn.Invoke([]arrow.Array{input})
	require.NoError(t, err)
	defer second.Release()

	assert.True(t, array.Equal(first, second))
}

func TestToDateConcurrentInvoke(t *testing.T) {
	fn := NewToDate()
	var eg errgroup.Group

	for i := 0; i < 16; i++ {
		day := i
		eg.Go(func() error {
			ts := time.Unix(int64(day)*86400+3600, 0).UTC().Format(time.RFC3339)
			b := array.NewStringBuilder(memory.DefaultAllocator)
			for j := 0; j < 100; j++ {
				b.Append(ts)
			}
			input := b.NewStringArray()
			b.Release()
			defer input.Release()

			out, err := fn.Invoke([]arrow.Array{input})
			if err != nil {
				return err
			}
			defer out.Release()
			for j := 0; j < out.Len(); j++ {
				if out.Value(j) != arrow.Date32(day) {
					return errors.New("unexpected day " + out.ValueStr(j))
				}
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())
}

func TestToDateExecute(t *testing.T) {
	fn := NewToDate()
	sig := fn.Signature()
	require.Len(t, sig.Parameters, 1)
	assert.Equal(t, arrow.STRING, sig.Parameters[0].ID())
	assert.Equal(t, arrow.DATE32, sig.ReturnType.ID())
	assert.Equal(t, "to_date", fn.Name())

	schema := arrow.NewSchema([]arrow.Field{{Name: "date", Type: arrow.BinaryTypes.String}}, nil)
	rb := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	rb.Field(0).(*array.StringBuilder).AppendValues([]string{"2024-01-15T10:00:00+00:00"}, nil)
	rec := rb.NewRecordBatch()
	rb.Release()
	defer rec.Release()

	res, err := fn.Execute(context.Background(), rec)
	require.NoError(t, err)
	defer res.Release()
	assert.Equal(t, []arrow.Date32{19737}, dateValues(res.(*array.Date32)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = fn.Execute(ctx, rec)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseErrorPolicy(t *testing.T) {
	p, ok := ParseErrorPolicy("null")
	assert.True(t, ok)
	assert.Equal(t, NullOnError, p)

	p, ok = ParseErrorPolicy("fail")
	assert.True(t, ok)
	assert.Equal(t, FailFast, p)

	_, ok = ParseErrorPolicy("skip")
	assert.False(t, ok)
}
