package engine

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// resultBatchSize is the maximum number of rows per result batch.
// It matches DuckDB's vector size.
const resultBatchSize = 2048

// resultSchema builds the Arrow schema of a query result.
func resultSchema(types []*sql.ColumnType) *arrow.Schema {
	fields := make([]arrow.Field, len(types))
	for i, ct := range types {
		fields[i] = arrow.Field{
			Name:     ct.Name(),
			Type:     resultType(ct.DatabaseTypeName()),
			Nullable: true,
		}
	}
	return arrow.NewSchema(fields, nil)
}

// resultType maps a DuckDB column type name to the Arrow type used in
// result batches. Types without a direct mapping are returned as text.
func resultType(dbType string) arrow.DataType {
	dbType = strings.ToUpper(dbType)
	switch dbType {
	case "BOOLEAN":
		return arrow.FixedWidthTypes.Boolean
	case "TINYINT", "SMALLINT", "INTEGER", "UTINYINT", "USMALLINT":
		return arrow.PrimitiveTypes.Int32
	case "BIGINT", "UINTEGER":
		return arrow.PrimitiveTypes.Int64
	case "FLOAT", "DOUBLE":
		return arrow.PrimitiveTypes.Float64
	case "DATE":
		return arrow.FixedWidthTypes.Date32
	}
	if strings.HasPrefix(dbType, "TIMESTAMP") {
		return arrow.FixedWidthTypes.Timestamp_us
	}
	return arrow.BinaryTypes.String
}

// collectBatches drains rows into record batches of at most
// resultBatchSize rows. A result without rows yields one empty batch so
// the schema is kept. Caller MUST call Release() on every returned batch.
func collectBatches(rows *sql.Rows, allocator memory.Allocator) ([]arrow.RecordBatch, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	schema := resultSchema(types)

	builder := array.NewRecordBuilder(allocator, schema)
	defer builder.Release()

	values := make([]any, len(types))
	ptrs := make([]any, len(types))
	for i := range values {
		ptrs[i] = &values[i]
	}

	var batches []arrow.RecordBatch
	pending := 0
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			ReleaseBatches(batches)
			return nil, err
		}
		for i, v := range values {
			if err := appendValue(builder.Field(i), v); err != nil {
				ReleaseBatches(batches)
				return nil, fmt.Errorf("column %s: %w", schema.Field(i).Name, err)
			}
		}
		pending++
		if pending == resultBatchSize {
			batches = append(batches, builder.NewRecordBatch())
			pending = 0
		}
	}
	if err := rows.Err(); err != nil {
		ReleaseBatches(batches)
		return nil, err
	}
	if pending > 0 || len(batches) == 0 {
		batches = append(batches, builder.NewRecordBatch())
	}
	return batches, nil
}
