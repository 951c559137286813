// Command jsonquery registers a newline-delimited JSON file as a table,
// binds the to_date function and prints the results of SQL queries.
//
// Without flags it queries ./data.jsonl as "users":
//
//	SELECT DISTINCT to_date("date") AS a FROM users
//	SELECT DISTINCT "date" FROM users
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/BubbaJoe/jsonquery"
	"github.com/BubbaJoe/jsonquery/engine"
	"github.com/BubbaJoe/jsonquery/functions"
)

// CLI is the command line surface.
type CLI struct {
	Data     string   `help:"Newline-delimited JSON dataset." default:"${default_data}"`
	Table    string   `help:"Table name the dataset is registered under." default:"${default_table}"`
	Ext      string   `help:"Required dataset file extension." default:".jsonl"`
	Query    []string `help:"SQL to run; repeatable. Defaults to the reference queries." short:"q" sep:"none"`
	OnError  string   `help:"to_date handling of null and unparseable rows." enum:"fail,null" default:"fail"`
	LogLevel string   `help:"Log level." enum:"debug,info,warn,error" default:"info"`
	DB       string   `help:"DuckDB database file. Empty for in-memory." name:"db"`
}

// Run executes the workflow.
func (c *CLI) Run() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	policy, ok := functions.ParseErrorPolicy(c.OnError)
	if !ok {
		return fmt.Errorf("unknown error policy %q", c.OnError)
	}

	ctx := context.Background()
	session, err := engine.Open(ctx, engine.Options{Path: c.DB, Logger: logger})
	if err != nil {
		return err
	}
	defer session.Close()

	wf, err := jsonquery.NewWorkflow(session, jsonquery.Config{
		DatasetPath:   c.Data,
		TableName:     c.Table,
		FileExtension: c.Ext,
		Queries:       c.Query,
		ErrorPolicy:   policy,
		Output:        os.Stdout,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	return wf.Run(ctx)
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("jsonquery"),
		kong.Description("Run SQL with to_date over a newline-delimited JSON file."),
		kong.UsageOnError(),
		kong.Vars{
			"default_data":  jsonquery.DefaultDatasetPath,
			"default_table": jsonquery.DefaultTableName,
		},
	)
	kctx.FatalIfErrorf(kctx.Run())
}
