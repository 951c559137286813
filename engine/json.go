package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cast"
)

// Default values for JSONOptions.
const (
	DefaultJSONFileExtension     = ".jsonl"
	DefaultSchemaInferMaxRecords = 1000
)

// Compression names accepted by JSONOptions.Compression.
const (
	CompressionAuto = "auto"
	CompressionNone = "none"
	CompressionGzip = "gzip"
	CompressionZstd = "zstd"
)

var compressionSuffixes = map[string]string{
	CompressionGzip: ".gz",
	CompressionZstd: ".zst",
}

// duckdbCompression maps compression names to DuckDB's FileCompressionType
// values accepted by read_json.
var duckdbCompression = map[string]string{
	CompressionAuto: "auto_detect",
	CompressionNone: "uncompressed",
	CompressionGzip: "gzip",
	CompressionZstd: "zstd",
}

// JSONOptions describes a newline-delimited JSON source.
type JSONOptions struct {
	// FileExtension the source path must end with (before any
	// compression suffix).
	// OPTIONAL: Defaults to ".jsonl".
	FileExtension string

	// SchemaInferMaxRecords is how many records are sampled to infer
	// column types.
	// OPTIONAL: Defaults to 1000. Negative samples the whole file.
	SchemaInferMaxRecords int

	// Compression of the source file: "auto", "none", "gzip" or "zstd".
	// OPTIONAL: Defaults to "auto" (detected from the file suffix).
	Compression string
}

func (o JSONOptions) withDefaults() JSONOptions {
	if o.FileExtension == "" {
		o.FileExtension = DefaultJSONFileExtension
	}
	if o.SchemaInferMaxRecords == 0 {
		o.SchemaInferMaxRecords = DefaultSchemaInferMaxRecords
	}
	if o.Compression == "" {
		o.Compression = CompressionAuto
	}
	return o
}

// acceptsPath reports whether path carries the expected extension for the
// configured compression.
func (o JSONOptions) acceptsPath(path string) bool {
	switch o.Compression {
	case CompressionAuto:
		if strings.HasSuffix(path, o.FileExtension) {
			return true
		}
		for _, suffix := range compressionSuffixes {
			if strings.HasSuffix(path, o.FileExtension+suffix) {
				return true
			}
		}
		return false
	case CompressionNone:
		return strings.HasSuffix(path, o.FileExtension)
	default:
		return strings.HasSuffix(path, o.FileExtension+compressionSuffixes[o.Compression])
	}
}

func (o JSONOptions) validate() error {
	switch o.Compression {
	case CompressionAuto, CompressionNone, CompressionGzip, CompressionZstd:
	default:
		return fmt.Errorf("unknown compression %q", o.Compression)
	}
	if !strings.HasPrefix(o.FileExtension, ".") {
		return fmt.Errorf("file extension %q must start with a dot", o.FileExtension)
	}
	return nil
}

// column is one inferred dataset column.
type column struct {
	Name string
	Type string
}

// RegisterJSON registers a newline-delimited JSON file as table name.
// The table is a view over the file; the file is never written.
// Registering an existing name replaces it.
//
// Returns *DatasetRegistrationError when the path has the wrong extension,
// cannot be read, or its content cannot be parsed as JSON records.
func (s *Session) RegisterJSON(ctx context.Context, name, path string, opts JSONOptions) error {
	opts = opts.withDefaults()
	regErr := func(err error) error {
		return &DatasetRegistrationError{Table: name, Path: path, Err: err}
	}

	if name == "" {
		return regErr(errors.New("table name cannot be empty"))
	}
	if err := opts.validate(); err != nil {
		return regErr(err)
	}
	if !opts.acceptsPath(path) {
		return regErr(fmt.Errorf("file does not have extension %s", opts.FileExtension))
	}
	info, err := os.Stat(path)
	if err != nil {
		return regErr(err)
	}
	if !info.Mode().IsRegular() {
		return regErr(fmt.Errorf("not a regular file"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return regErr(ErrSessionClosed)
	}

	columns, err := s.inferColumns(ctx, path, opts)
	if err != nil {
		return regErr(err)
	}
	if len(columns) == 0 {
		return regErr(errors.New("no columns found"))
	}

	stmt := fmt.Sprintf("CREATE OR REPLACE VIEW %s AS SELECT * FROM %s",
		quoteIdentifier(name), readJSONCall(path, opts, columns))
	if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
		return regErr(err)
	}
	s.tables[name] = path

	s.logger.Debug("JSON dataset registered",
		"table", name,
		"path", path,
		"columns", len(columns),
	)
	return nil
}

// inferColumns describes the reader output and re-declares temporal
// columns as VARCHAR.
func (s *Session) inferColumns(ctx context.Context, path string, opts JSONOptions) ([]column, error) {
	query := "DESCRIBE SELECT * FROM " + readJSONCall(path, opts, nil)
	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	nameIdx, typeIdx := -1, -1
	for i, n := range names {
		switch n {
		case "column_name":
			nameIdx = i
		case "column_type":
			typeIdx = i
		}
	}
	if nameIdx < 0 || typeIdx < 0 {
		return nil, fmt.Errorf("unexpected describe output columns %v", names)
	}

	var columns []column
	values := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		colName, err := cast.ToStringE(values[nameIdx])
		if err != nil {
			return nil, fmt.Errorf("column name: %w", err)
		}
		colType, err := cast.ToStringE(values[typeIdx])
		if err != nil {
			return nil, fmt.Errorf("column %s type: %w", colName, err)
		}
		if isTemporalType(colType) {
			colType = "VARCHAR"
		}
		columns = append(columns, column{Name: colName, Type: colType})
	}
	return columns, rows.Err()
}

// isTemporalType reports whether a DuckDB type name is a date, time or
// timestamp type.
func isTemporalType(typ string) bool {
	typ = strings.ToUpper(typ)
	return typ == "DATE" || strings.HasPrefix(typ, "TIME")
}

// readJSONCall renders a read_json table function call. With columns set,
// type detection is disabled and the given types are used.
func readJSONCall(path string, opts JSONOptions, columns []column) string {
	var sb strings.Builder
	sb.WriteString("read_json(")
	sb.WriteString(quoteLiteral(path))
	sb.WriteString(", format = 'newline_delimited'")
	sb.WriteString(", compression = ")
	sb.WriteString(quoteLiteral(duckdbCompression[opts.Compression]))

	if columns == nil {
		fmt.Fprintf(&sb, ", sample_size = %d", opts.SchemaInferMaxRecords)
	} else {
		sb.WriteString(", auto_detect = false, columns = {")
		for i, c := range columns {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(quoteLiteral(c.Name))
			sb.WriteString(": ")
			sb.WriteString(quoteLiteral(c.Type))
		}
		sb.WriteString("}")
	}
	sb.WriteString(")")
	return sb.String()
}

// quoteIdentifier returns a double-quoted DuckDB identifier.
func quoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// quoteLiteral returns a single-quoted SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
