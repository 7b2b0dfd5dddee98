package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/sans-lang/sans/internal/bundle"
	"github.com/sans-lang/sans/internal/config"
	"github.com/sans-lang/sans/internal/lower"
)

type checkOptions struct {
	Out       string `long:"out" description:"Output directory for plan.ir.json and report.json" required:"true"`
	Tables    string `long:"tables" description:"Comma-separated table names the script is expected to bind (informational)"`
	LegacySAS bool   `long:"legacy-sas" description:"Treat the input as the legacy data-step dialect (no-op: the front end auto-detects)"`
	NoStrict  bool   `long:"no-strict" description:"Do not escalate unreachable-step warnings to a refusal"`
	Config    string `long:"config" description:"Optional engine-config YAML file"`
	Help      bool   `long:"help" description:"Show this help"`
}

func runCheck(args []string) {
	var opts checkOptions
	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "check SCRIPT --out DIR [--tables NAME,NAME] [--legacy-sas] [--no-strict]"
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
		fmt.Fprintln(os.Stderr, "check requires exactly one SCRIPT argument")
		os.Exit(int(bundle.ExitRuntimeFailure))
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		exitWith(bundle.ExitRuntimeFailure, err.Error())
	}

	src, err := readScript(rest[0])
	if err != nil {
		exitWith(bundle.ExitRuntimeFailure, err.Error())
	}

	result := lower.Lower(rest[0], src, nil)
	strict := !opts.NoStrict
	bag := result.Doc.Validate(strict)

	req := bundle.Request{
		Doc:         result.Doc,
		OutDir:      opts.Out,
		OriginalSrc: src,
		ExpandedSrc: result.Expanded,
		EvidenceCfg: cfg.Evidence(),
	}
	req.ExitBucket, req.PrimaryError, req.Warnings = classifyBag(bag)

	if _, err := bundle.Write(req); err != nil {
		exitWith(bundle.ExitRuntimeFailure, err.Error())
	}
	os.Exit(int(req.ExitBucket))
}
