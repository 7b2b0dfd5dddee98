package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/sans-lang/sans/internal/canon"
	"github.com/sans-lang/sans/internal/ir"
	"github.com/sans-lang/sans/internal/lower"
	"github.com/sans-lang/sans/internal/schemainfer"
)

type emitIROptions struct {
	Out         string `long:"out" description:"Output sans.ir file" required:"true"`
	Cwd         string `long:"cwd" description:"Working directory for relative %include paths"`
	SchemaLock  string `long:"schema-lock" description:"Schema-lock file path; generated on demand if missing"`
	JSON        bool   `long:"json" description:"Pretty-print the emitted JSON to stdout as well"`
	Help        bool   `long:"help" description:"Show this help"`
}

// runEmitIR lowers SCRIPT to a canonical sans.ir file without executing it.
func runEmitIR(args []string) {
	var opts emitIROptions
	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "emit-ir SCRIPT --out FILE [--cwd DIR] [--schema-lock FILE] [--json]"
	rest, err := parser.ParseArgs(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(30)
	}
	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}
	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "emit-ir requires exactly one SCRIPT argument")
		os.Exit(30)
	}

	src, err := readScript(rest[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(50)
	}

	var includer lower.Includer
	if opts.Cwd != "" {
		includer = cwdIncluder(opts.Cwd)
	}

	result := lower.Lower(rest[0], src, includer)
	bag := result.Doc.Validate(false)
	if bucket, primary, _ := classifyBag(bag); primary != nil {
		fmt.Fprintln(os.Stderr, primary.Error())
		os.Exit(int(bucket))
	}

	if opts.SchemaLock != "" {
		if err := ensureSchemaLock(opts.SchemaLock, result.Doc); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(50)
		}
	}

	planBytes := canon.Marshal(result.Doc.ToCanonical())
	if err := os.WriteFile(opts.Out, planBytes, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(50)
	}

	if opts.JSON {
		var pretty map[string]any
		if err := json.Unmarshal(planBytes, &pretty); err == nil {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.Encode(pretty)
		}
	}
}

// cwdIncluder resolves a %include path relative to dir.
func cwdIncluder(dir string) lower.Includer {
	return func(path string) (string, error) {
		if len(path) > 0 && path[0] == '/' {
			buf, err := os.ReadFile(path)
			return string(buf), err
		}
		buf, err := os.ReadFile(dir + "/" + path)
		return string(buf), err
	}
}

// ensureSchemaLock generates path from doc's CSV datasources lacking pinned
// columns when the file does not already exist, per SPEC_FULL.md's
// generate-on-demand behavior for --schema-lock.
func ensureSchemaLock(path string, doc *ir.IRDoc) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	lock := map[string]any{}
	for name, d := range doc.Datasources {
		if len(d.Columns) > 0 || d.Kind != "csv" || d.Path == "" {
			continue
		}
		f, err := os.Open(d.Path)
		if err != nil {
			return err
		}
		res, err := schemainfer.Infer(f, schemainfer.DefaultMaxRows)
		f.Close()
		if err != nil {
			return err
		}
		cols := make([]any, len(res.Columns))
		for i, c := range res.Columns {
			cols[i] = map[string]any{"name": c.Name, "type": string(c.Type)}
		}
		lock[name] = map[string]any{
			"columns":      cols,
			"rows_scanned": res.RowsScanned,
			"truncated":    res.Truncated,
		}
	}

	return os.WriteFile(path, canon.Marshal(lock), 0o644)
}
