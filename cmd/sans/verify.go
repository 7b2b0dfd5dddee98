package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"

	"github.com/sans-lang/sans/internal/bundle"
)

type verifyOptions struct {
	Help bool `long:"help" description:"Show this help"`
}

// runVerify re-derives every artifact's hash and compares against
// report.json, accepting either a report.json path directly or a bundle
// directory containing one.
func runVerify(args []string) {
	var opts verifyOptions
	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "verify REPORT_OR_DIR"
	rest, err := parser.ParseArgs(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(int(bundle.ExitRuntimeFailure))
	}
	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}
	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "verify requires exactly one REPORT_OR_DIR argument")
		os.Exit(int(bundle.ExitRuntimeFailure))
	}

	target := rest[0]
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		target = filepath.Join(target, "report.json")
	}

	if err := bundle.Verify(target); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(int(bundle.ExitRuntimeFailure))
	}
	fmt.Println("ok")
	os.Exit(0)
}
