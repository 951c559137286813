package jsonquery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/BubbaJoe/jsonquery/catalog"
	"github.com/BubbaJoe/jsonquery/engine"
	"github.com/BubbaJoe/jsonquery/functions"
	"github.com/BubbaJoe/jsonquery/internal/render"
)

// Engine is the query engine a Workflow drives.
// *engine.Session implements it.
type Engine interface {
	RegisterJSON(ctx context.Context, name, path string, opts engine.JSONOptions) error
	RegisterFunction(ctx context.Context, fn catalog.ScalarFunction) error
	Query(ctx context.Context, sql string) ([]arrow.RecordBatch, error)
}

// State is a Workflow position.
type State int

const (
	Unregistered State = iota
	DatasetRegistered
	FunctionRegistered
	QueryExecuted
	Rendered
	// Failed is entered on the first error and never left.
	Failed
)

func (s State) String() string {
	switch s {
	case Unregistered:
		return "unregistered"
	case DatasetRegistered:
		return "dataset_registered"
	case FunctionRegistered:
		return "function_registered"
	case QueryExecuted:
		return "query_executed"
	case Rendered:
		return "rendered"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Workflow sequences dataset registration, function registration, query
// execution and rendering against one engine. Not goroutine-safe.
type Workflow struct {
	engine Engine
	config Config
	logger *slog.Logger
	state  State
	err    error
}

// NewWorkflow validates config and returns a workflow in the Unregistered
// state. The engine is not modified until RegisterDataset is called.
func NewWorkflow(eng Engine, config Config) (*Workflow, error) {
	if eng == nil {
		return nil, fmt.Errorf("%w: engine is required", ErrInvalidConfig)
	}
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if config.FileExtension == "" {
		config.FileExtension = engine.DefaultJSONFileExtension
	}
	if len(config.Queries) == 0 {
		config.Queries = DefaultQueries
	}
	if config.Output == nil {
		config.Output = io.Discard
	}
	if config.Allocator == nil {
		config.Allocator = memory.DefaultAllocator
	}

	return &Workflow{
		engine: eng,
		config: config,
		logger: newLogger(config),
		state:  Unregistered,
	}, nil
}

// validateConfig checks that required Config fields are valid.
func validateConfig(config Config) error {
	if config.DatasetPath == "" {
		return fmt.Errorf("dataset path is required")
	}
	if config.TableName == "" {
		return fmt.Errorf("table name is required")
	}
	for i, fn := range config.Functions {
		if err := catalog.ValidateScalarFunction(fn); err != nil {
			return fmt.Errorf("function %d: %w", i, err)
		}
	}
	return nil
}

func newLogger(config Config) *slog.Logger {
	if config.Logger != nil {
		return config.Logger
	}
	if config.LogLevel == nil {
		return slog.Default()
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: *config.LogLevel,
	})
	return slog.New(handler)
}

// State returns the current workflow state.
func (w *Workflow) State() State {
	return w.state
}

// Err returns the error that moved the workflow to Failed, if any.
func (w *Workflow) Err() error {
	return w.err
}

// enter checks the current state against the allowed ones.
func (w *Workflow) enter(step string, allowed ...State) error {
	if w.state == Failed {
		return fmt.Errorf("%w: %s after failure: %v", ErrOutOfOrder, step, w.err)
	}
	for _, s := range allowed {
		if w.state == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %s in state %s", ErrOutOfOrder, step, w.state)
}

func (w *Workflow) fail(err error) error {
	w.state = Failed
	w.err = err
	return err
}

// RegisterDataset registers the JSON dataset under Config.TableName.
// Moves Unregistered → DatasetRegistered.
func (w *Workflow) RegisterDataset(ctx context.Context) error {
	if err := w.enter("register dataset", Unregistered); err != nil {
		return err
	}

	opts := engine.JSONOptions{FileExtension: w.config.FileExtension}
	if err := w.engine.RegisterJSON(ctx, w.config.TableName, w.config.DatasetPath, opts); err != nil {
		return w.fail(err)
	}

	w.logger.Info("Dataset registered",
		"table", w.config.TableName,
		"path", w.config.DatasetPath,
	)
	w.state = DatasetRegistered
	return nil
}

// RegisterFunctions registers to_date followed by Config.Functions.
// Moves DatasetRegistered → FunctionRegistered.
func (w *Workflow) RegisterFunctions(ctx context.Context) error {
	if err := w.enter("register functions", DatasetRegistered); err != nil {
		return err
	}

	toDate := functions.NewToDate(
		functions.WithErrorPolicy(w.config.ErrorPolicy),
		functions.WithAllocator(w.config.Allocator),
		functions.WithLogger(w.logger),
	)
	fns := append([]catalog.ScalarFunction{toDate}, w.config.Functions...)
	for _, fn := range fns {
		if err := w.engine.RegisterFunction(ctx, fn); err != nil {
			return w.fail(err)
		}
		w.logger.Debug("Function registered", "function", fn.Name())
	}

	w.logger.Info("Functions registered",
		"count", len(fns),
		"to_date_policy", w.config.ErrorPolicy.String(),
	)
	w.state = FunctionRegistered
	return nil
}

// Execute runs one SQL statement and returns every result batch.
// Moves FunctionRegistered (or Rendered) → QueryExecuted.
// Caller passes the batches to Render, which releases them.
func (w *Workflow) Execute(ctx context.Context, sql string) ([]arrow.RecordBatch, error) {
	if err := w.enter("execute", FunctionRegistered, Rendered); err != nil {
		return nil, err
	}

	batches, err := w.engine.Query(ctx, sql)
	if err != nil {
		return nil, w.fail(err)
	}

	w.logger.Debug("Query completed", "sql", sql, "batches", len(batches))
	w.state = QueryExecuted
	return batches, nil
}

// Render writes batches to Config.Output as a text table followed by JSON
// rows, then releases them. Moves QueryExecuted → Rendered.
func (w *Workflow) Render(batches []arrow.RecordBatch) error {
	defer engine.ReleaseBatches(batches)

	if err := w.enter("render", QueryExecuted); err != nil {
		return err
	}

	out := w.config.Output
	if err := render.Table(out, batches); err != nil {
		return w.fail(fmt.Errorf("render table: %w", err))
	}
	if err := render.JSON(out, batches); err != nil {
		return w.fail(fmt.Errorf("render json: %w", err))
	}

	w.state = Rendered
	return nil
}

// Run performs every step in order, executing and rendering each
// configured query. It stops at the first error.
func (w *Workflow) Run(ctx context.Context) error {
	if err := w.RegisterDataset(ctx); err != nil {
		return err
	}
	if err := w.RegisterFunctions(ctx); err != nil {
		return err
	}

	for i, sql := range w.config.Queries {
		if i > 0 {
			if _, err := fmt.Fprintln(w.config.Output); err != nil {
				return w.fail(err)
			}
		}
		if _, err := fmt.Fprintf(w.config.Output, "-- %s\n", sql); err != nil {
			return w.fail(err)
		}

		batches, err := w.Execute(ctx, sql)
		if err != nil {
			return err
		}
		if err := w.Render(batches); err != nil {
			return err
		}
	}
	return nil
}
