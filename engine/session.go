package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/duckdb/duckdb-go/v2"
)

// Options configures a Session.
type Options struct {
	// Path is the DuckDB database file.
	// OPTIONAL: Empty string opens an in-memory database.
	Path string

	// Allocator for Arrow memory of result batches and of the batches
	// passed to scalar functions.
	// OPTIONAL: Uses memory.DefaultAllocator if nil.
	Allocator memory.Allocator

	// Logger for internal logging.
	// OPTIONAL: Uses slog.Default() if nil.
	Logger *slog.Logger
}

// Session is a query engine handle. It owns one DuckDB database and a
// single pinned connection, so every registered view and function is
// visible to every query issued through the session.
//
// Session methods are serialized; scalar functions bound into the session
// may still be invoked concurrently by DuckDB worker threads.
type Session struct {
	db   *sql.DB
	conn *sql.Conn

	allocator memory.Allocator
	logger    *slog.Logger

	mu     sync.Mutex
	funcs  map[string]*scalarUDF
	tables map[string]string
	closed bool
}

// Open creates a DuckDB database and returns a session bound to it.
// Caller MUST call Close() to release the database.
func Open(ctx context.Context, opts Options) (*Session, error) {
	allocator := opts.Allocator
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	connector, err := duckdb.NewConnector(opts.Path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	// db.Close closes the connector.
	db := sql.OpenDB(connector)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	logger.Debug("Query engine session opened", "path", opts.Path)

	return &Session{
		db:        db,
		conn:      conn,
		allocator: allocator,
		logger:    logger,
		funcs:     make(map[string]*scalarUDF),
		tables:    make(map[string]string),
	}, nil
}

// Close releases the connection and the database.
// Calling Close more than once is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	connErr := s.conn.Close()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	if connErr != nil {
		return fmt.Errorf("failed to close connection: %w", connErr)
	}
	s.logger.Debug("Query engine session closed")
	return nil
}

// Functions returns the names of registered scalar functions, sorted.
func (s *Session) Functions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.funcs))
	for name := range s.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tables returns the registered table names mapped to their source paths.
func (s *Session) Tables() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.tables))
	for name, path := range s.tables {
		out[name] = path
	}
	return out
}

// Query executes a SQL statement and collects the full result as Arrow
// record batches of at most 2048 rows. A result without rows is returned
// as one empty batch carrying the schema.
// Caller MUST call Release() on every returned batch.
func (s *Session) Query(ctx context.Context, query string) ([]arrow.RecordBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, &QueryExecutionError{SQL: query, Err: ErrSessionClosed}
	}

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, &QueryExecutionError{SQL: query, Err: err}
	}
	defer rows.Close()

	batches, err := collectBatches(rows, s.allocator)
	if err != nil {
		return nil, &QueryExecutionError{SQL: query, Err: err}
	}

	var n int64
	for _, b := range batches {
		n += b.NumRows()
	}
	s.logger.Debug("Query executed",
		"sql", query,
		"batches", len(batches),
		"rows", n,
	)
	return batches, nil
}

// ReleaseBatches releases every batch in the slice.
func ReleaseBatches(batches []arrow.RecordBatch) {
	for _, b := range batches {
		b.Release()
	}
}
