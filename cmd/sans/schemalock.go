package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/sans-lang/sans/internal/canon"
	"github.com/sans-lang/sans/internal/schemainfer"
)

type schemaLockOptions struct {
	Out      string `long:"out" description:"Schema-lock output file" required:"true"`
	MaxRows  int    `long:"max-rows" description:"Row scan cap" default:"10000"`
	Help     bool   `long:"help" description:"Show this help"`
}

// runSchemaLock is the standalone entry point for generating a schema-lock
// file from one CSV, per SPEC_FULL.md's supplemented schema-lock feature
// (original_source/sans/sans/schema_infer.py).
func runSchemaLock(args []string) {
	var opts schemaLockOptions
	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "schema-lock SCRIPT.csv --out FILE [--max-rows N]"
	rest, err := parser.ParseArgs(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(50)
	}
	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}
	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "schema-lock requires exactly one CSV file argument")
		os.Exit(50)
	}

	f, err := os.Open(rest[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(50)
	}
	defer f.Close()

	res, err := schemainfer.Infer(f, opts.MaxRows)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(50)
	}

	cols := make([]any, len(res.Columns))
	for i, c := range res.Columns {
		cols[i] = map[string]any{"name": c.Name, "type": string(c.Type)}
	}
	lock := map[string]any{
		"columns":      cols,
		"rows_scanned": res.RowsScanned,
		"truncated":    res.Truncated,
	}

	if err := os.WriteFile(opts.Out, canon.Marshal(lock), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(50)
	}
}
