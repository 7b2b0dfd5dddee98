package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/sans-lang/sans/internal/canon"
	"github.com/sans-lang/sans/internal/ir"
)

type irValidateOptions struct {
	Strict bool `long:"strict" description:"Escalate unreachable-step warnings to a refusal"`
	Help   bool `long:"help" description:"Show this help"`
}

func runIRValidate(args []string) {
	var opts irValidateOptions
	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "ir-validate [--strict] FILE"
	rest, err := parser.ParseArgs(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(31)
	}
	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}
	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "ir-validate requires exactly one FILE argument")
		os.Exit(31)
	}

	data, err := os.ReadFile(rest[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(31)
	}
	decoded, err := canon.DecodeObject(data)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(31)
	}
	doc, err := ir.FromCanonical(decoded)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(31)
	}

	bag := doc.Validate(opts.Strict)
	bucket, primary, warnings := classifyBag(bag)
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, w.Error())
	}
	if primary != nil {
		fmt.Fprintln(os.Stderr, primary.Error())
	}
	os.Exit(int(bucket))
}
