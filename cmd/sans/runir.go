package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/sans-lang/sans/internal/bundle"
	"github.com/sans-lang/sans/internal/canon"
	"github.com/sans-lang/sans/internal/config"
	"github.com/sans-lang/sans/internal/engine"
	"github.com/sans-lang/sans/internal/ir"
)

type runIROptions struct {
	Out    string `long:"out" description:"Output directory for the bundle" required:"true"`
	Tables string `long:"tables" description:"NAME=PATH[,NAME=PATH...] table bindings"`
	Format string `long:"format" description:"Format for reading --tables bindings (csv|xpt); save steps use their own format param or path extension"`
	Config string `long:"config" description:"Optional engine-config YAML file"`
	Help   bool   `long:"help" description:"Show this help"`
}

// runRunIR executes a pre-lowered sans.ir file, skipping the front end
// entirely. Structurally the same pipeline as run.go from the point the
// script front end would have handed off an *ir.IRDoc.
func runRunIR(args []string) {
	var opts runIROptions
	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "run-ir IR_FILE --out DIR"
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
		fmt.Fprintln(os.Stderr, "run-ir requires exactly one IR_FILE argument")
		os.Exit(int(bundle.ExitRuntimeFailure))
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		exitWith(bundle.ExitRuntimeFailure, err.Error())
	}

	bindings, err := parseTableBindings(opts.Tables)
	if err != nil {
		exitWith(bundle.ExitRuntimeFailure, err.Error())
	}

	data, err := os.ReadFile(rest[0])
	if err != nil {
		exitWith(bundle.ExitRuntimeFailure, err.Error())
	}
	decoded, err := canon.DecodeObject(data)
	if err != nil {
		exitWith(bundle.ExitParseRefusal, err.Error())
	}
	doc, err := ir.FromCanonical(decoded)
	if err != nil {
		exitWith(bundle.ExitParseRefusal, err.Error())
	}

	bag := doc.Validate(true)
	req := bundle.Request{
		Doc:         doc,
		OutDir:      opts.Out,
		ExpandedSrc: "",
		EvidenceCfg: cfg.Evidence(),
	}

	if bucket, primary, warnings := classifyBag(bag); primary != nil {
		req.ExitBucket, req.PrimaryError, req.Warnings = bucket, primary, warnings
		if _, werr := bundle.Write(req); werr != nil {
			exitWith(bundle.ExitRuntimeFailure, werr.Error())
		}
		os.Exit(int(req.ExitBucket))
	} else {
		req.Warnings = warnings
	}

	eng := engine.New(newCompositeWriter(cfg))
	eng.LoopLimit, eng.NestingDepthCap = cfg.LoopLimit, cfg.NestingDepthCap
	if derr := bindTables(eng, doc, bindings, opts.Format); derr != nil {
		req.Eng = eng
		req.PrimaryError = derr
		req.ExitBucket = bundle.ExitRuntimeFailure
		bundle.Write(req)
		os.Exit(int(req.ExitBucket))
	}

	if derr := eng.Run(doc); derr != nil {
		req.Eng = eng
		req.PrimaryError = derr
		req.ExitBucket = bundle.ExitRuntimeFailure
		bundle.Write(req)
		os.Exit(int(req.ExitBucket))
	}

	req.Eng = eng
	if req.ExitBucket == 0 && len(req.Warnings) > 0 {
		req.ExitBucket = bundle.ExitWarningsOnly
	}
	if _, err := bundle.Write(req); err != nil {
		exitWith(bundle.ExitRuntimeFailure, err.Error())
	}
	os.Exit(int(req.ExitBucket))
}
