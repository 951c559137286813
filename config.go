package jsonquery

import (
	"errors"
	"io"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/BubbaJoe/jsonquery/catalog"
	"github.com/BubbaJoe/jsonquery/functions"
)

// Defaults reproducing the reference run.
const (
	DefaultDatasetPath = "./data.jsonl"
	DefaultTableName   = "users"
)

// DefaultQueries are run when Config.Queries is empty.
var DefaultQueries = []string{
	`SELECT DISTINCT to_date("date") AS a FROM users`,
	`SELECT DISTINCT "date" FROM users`,
}

// Config contains configuration for a query workflow.
type Config struct {
	// DatasetPath is the newline-delimited JSON file to query.
	// REQUIRED: MUST be non-empty.
	DatasetPath string

	// TableName is the SQL name the dataset is registered under.
	// REQUIRED: MUST be non-empty.
	TableName string

	// FileExtension the dataset path must carry.
	// OPTIONAL: Defaults to ".jsonl".
	FileExtension string

	// Queries are executed in order after registration.
	// OPTIONAL: Uses DefaultQueries if empty.
	Queries []string

	// ErrorPolicy for to_date null and unparseable rows.
	// OPTIONAL: Zero value is functions.FailFast.
	ErrorPolicy functions.ErrorPolicy

	// Functions are registered after to_date, in order.
	// A function named "to_date" replaces the built-in one.
	// OPTIONAL.
	Functions []catalog.ScalarFunction

	// Output receives rendered results.
	// OPTIONAL: Uses io.Discard if nil.
	Output io.Writer

	// Allocator for Arrow memory management.
	// OPTIONAL: Uses memory.DefaultAllocator if nil.
	Allocator memory.Allocator

	// Logger for internal logging.
	// OPTIONAL: Uses slog.Default() if nil.
	// Note: If LogLevel is specified, a new logger will be created with that level.
	Logger *slog.Logger

	// LogLevel sets the logging level.
	// OPTIONAL: If nil, uses Info level.
	// If Logger is also provided, LogLevel is ignored (use pre-configured logger).
	LogLevel *slog.Level
}

// Standard errors returned by jsonquery package.
var (
	// ErrInvalidConfig indicates Config validation failed.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrOutOfOrder indicates a workflow step was called in the wrong state.
	ErrOutOfOrder = errors.New("workflow step out of order")
)
