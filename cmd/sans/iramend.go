package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/sans-lang/sans/internal/amend"
	"github.com/sans-lang/sans/internal/canon"
)

type irAmendOptions struct {
	IR   string `long:"ir" description:"IR file to amend" required:"true"`
	Req  string `long:"req" description:"Amendment request JSON file" required:"true"`
	Out  string `long:"out" description:"Result envelope output file" required:"true"`
	Help bool   `long:"help" description:"Show this help"`
}

// runIRAmend applies a structured-patch amendment request to an IR document
// and writes the result envelope, per the amendment engine's own contract
// (ir_out present only on status "ok").
func runIRAmend(args []string) {
	var opts irAmendOptions
	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "ir-amend --ir FILE --req FILE --out FILE"
	_, err := parser.ParseArgs(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}

	irBytes, err := os.ReadFile(opts.IR)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	doc, err := canon.DecodeObject(irBytes)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	reqBytes, err := os.ReadFile(opts.Req)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	req, err := canon.DecodeObject(reqBytes)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	result := amend.Apply(doc, req)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := os.WriteFile(opts.Out, out, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if result.Status != "ok" {
		os.Exit(1)
	}
	os.Exit(0)
}
