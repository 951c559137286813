// Package jsonquery runs ad-hoc SQL over a newline-delimited JSON dataset
// with a to_date scalar function that turns RFC 3339 timestamps into dates.
//
// # Quick Start
//
//	ctx := context.Background()
//	session, err := engine.Open(ctx, engine.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Close()
//
//	wf, err := jsonquery.NewWorkflow(session, jsonquery.Config{
//	    DatasetPath: "./data.jsonl",
//	    TableName:   "users",
//	    Output:      os.Stdout,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := wf.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Workflow
//
// A Workflow moves forward through fixed states:
//
//	Unregistered → DatasetRegistered → FunctionRegistered → QueryExecuted → Rendered
//
// Each step runs once; after Rendered another query may be executed.
// Any error is terminal: nothing is retried and no partial result is kept.
//
// # Engine
//
// The engine.Session handle is created by the caller and passed in
// explicitly. The workflow never opens or closes it.
//
// # Logging
//
// The package uses log/slog. Set Config.Logger or Config.LogLevel;
// otherwise slog.Default() is used.
//
// # Memory Management
//
// Arrow uses manual reference counting. Batches returned by Execute are
// released by Render; callers that skip Render MUST call Release() on them.
package jsonquery
