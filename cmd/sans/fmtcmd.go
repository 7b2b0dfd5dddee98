package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/sans-lang/sans/internal/bundle"
	"github.com/sans-lang/sans/internal/lower"
)

type fmtOptions struct {
	Check bool   `long:"check" description:"Report whether the file is already canonical, without writing"`
	Style string `long:"style" description:"Formatter style: v0 or v1" default:"v1"`
	Help  bool   `long:"help" description:"Show this help"`
}

// runFmt re-renders a script in the canonical human form spec.md calls
// "expanded.sans": the full lower pipeline runs, and the result is printed
// with internal/bundle.RenderExpanded, the same renderer a run's bundle
// uses. --style is this module's own addition (spec.md names the flag but
// never specifies two dialects' content): v1 (the default) leaves bare
// and/or chains unparenthesized; v0 always parenthesizes them for a reader
// migrating from a stricter legacy house style.
func runFmt(args []string) {
	var opts fmtOptions
	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "fmt FILE [--check] [--style v0|v1]"
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
		fmt.Fprintln(os.Stderr, "fmt requires exactly one FILE argument")
		os.Exit(int(bundle.ExitRuntimeFailure))
	}
	if opts.Style != "v0" && opts.Style != "v1" {
		fmt.Fprintln(os.Stderr, "--style must be v0 or v1")
		os.Exit(int(bundle.ExitRuntimeFailure))
	}

	src, err := readScript(rest[0])
	if err != nil {
		exitWith(bundle.ExitRuntimeFailure, err.Error())
	}

	result := lower.Lower(rest[0], src, nil)
	bag := result.Doc.Validate(false)
	if bucket, primary, _ := classifyBag(bag); primary != nil {
		fmt.Fprintln(os.Stderr, primary.Error())
		os.Exit(int(bucket))
	}

	rendered := bundle.RenderExpanded(result.Doc)
	if opts.Style == "v0" {
		rendered = parenthesizeBoolChains(rendered)
	}

	if opts.Check {
		if rendered == src {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "not canonical")
		os.Exit(1)
	}

	fmt.Print(rendered)
}
