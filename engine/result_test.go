package engine

import (
	"context"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultType(t *testing.T) {
	tests := []struct {
		dbType string
		want   arrow.DataType
	}{
		{"BOOLEAN", arrow.FixedWidthTypes.Boolean},
		{"INTEGER", arrow.PrimitiveTypes.Int32},
		{"SMALLINT", arrow.PrimitiveTypes.Int32},
		{"BIGINT", arrow.PrimitiveTypes.Int64},
		{"UINTEGER", arrow.PrimitiveTypes.Int64},
		{"DOUBLE", arrow.PrimitiveTypes.Float64},
		{"DATE", arrow.FixedWidthTypes.Date32},
		{"TIMESTAMP", arrow.FixedWidthTypes.Timestamp_us},
		{"TIMESTAMPTZ", arrow.FixedWidthTypes.Timestamp_us},
		{"VARCHAR", arrow.BinaryTypes.String},
		{"UBIGINT", arrow.BinaryTypes.String},
		{"DECIMAL(18,3)", arrow.BinaryTypes.String},
		{"LIST", arrow.BinaryTypes.String},
		{"TIME", arrow.BinaryTypes.String},
	}
	for _, tt := range tests {
		assert.True(t, arrow.TypeEqual(tt.want, resultType(tt.dbType)), "%s: got %s", tt.dbType, resultType(tt.dbType))
	}
}

func TestQueryColumnTypes(t *testing.T) {
	alloc := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer alloc.AssertSize(t, 0)

	s, err := Open(context.Background(), Options{Allocator: alloc})
	require.NoError(t, err)
	defer s.Close()

	batches, err := s.Query(context.Background(), `SELECT
		true AS b,
		7::INTEGER AS i,
		9000000000::BIGINT AS l,
		1.5::DOUBLE AS f,
		DATE '2024-01-15' AS d,
		TIMESTAMP '2024-01-15 10:00:00' AS ts,
		'alice' AS s,
		[1, 2] AS list,
		NULL::VARCHAR AS n`)
	require.NoError(t, err)
	defer ReleaseBatches(batches)

	require.Len(t, batches, 1)
	rec := batches[0]
	require.EqualValues(t, 1, rec.NumRows())

	assert.True(t, rec.Column(0).(*array.Boolean).Value(0))
	assert.Equal(t, int32(7), rec.Column(1).(*array.Int32).Value(0))
	assert.Equal(t, int64(9000000000), rec.Column(2).(*array.Int64).Value(0))
	assert.Equal(t, 1.5, rec.Column(3).(*array.Float64).Value(0))
	assert.Equal(t, arrow.Date32(19737), rec.Column(4).(*array.Date32).Value(0))
	assert.Equal(t,
		arrow.Timestamp(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC).UnixMicro()),
		rec.Column(5).(*array.Timestamp).Value(0))
	assert.Equal(t, "alice", rec.Column(6).(*array.String).Value(0))
	assert.Equal(t, "[1,2]", rec.Column(7).(*array.String).Value(0))
	assert.True(t, rec.Column(8).IsNull(0))
}

func TestQueryBatchesAreBounded(t *testing.T) {
	s := openSession(t)

	batches, err := s.Query(context.Background(), "SELECT range AS n FROM range(5000)")
	require.NoError(t, err)
	defer ReleaseBatches(batches)

	var sizes []int64
	for _, b := range batches {
		sizes = append(sizes, b.NumRows())
	}
	assert.Equal(t, []int64{resultBatchSize, resultBatchSize, 5000 - 2*resultBatchSize}, sizes)
}

func TestQueryEmptyResultKeepsSchema(t *testing.T) {
	s := openSession(t)

	batches, err := s.Query(context.Background(), "SELECT 1::INTEGER AS a WHERE false")
	require.NoError(t, err)
	defer ReleaseBatches(batches)

	require.Len(t, batches, 1)
	assert.EqualValues(t, 0, batches[0].NumRows())
	assert.Equal(t, "a", batches[0].ColumnName(0))
}
