package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"

	"github.com/sans-lang/sans/internal/bundle"
	"github.com/sans-lang/sans/internal/config"
	"github.com/sans-lang/sans/internal/csvio"
	"github.com/sans-lang/sans/internal/diag"
	"github.com/sans-lang/sans/internal/engine"
	"github.com/sans-lang/sans/internal/ir"
	"github.com/sans-lang/sans/internal/lower"
	"github.com/sans-lang/sans/internal/xpt"
)

type runOptions struct {
	Out       string `long:"out" description:"Output directory for the bundle" required:"true"`
	Tables    string `long:"tables" description:"NAME=PATH[,NAME=PATH...] table bindings"`
	Format    string `long:"format" description:"Format for reading --tables bindings (csv|xpt); save steps use their own format param or path extension"`
	LegacySAS bool   `long:"legacy-sas" description:"Treat the input as the legacy data-step dialect (no-op: the front end auto-detects)"`
	Config    string `long:"config" description:"Optional engine-config YAML file"`
	Help      bool   `long:"help" description:"Show this help"`
}

func runRun(args []string) {
	var opts runOptions
	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "run SCRIPT --out DIR --tables NAME=PATH[,NAME=PATH...] [--format csv|xpt]"
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
		fmt.Fprintln(os.Stderr, "run requires exactly one SCRIPT argument")
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

	src, err := readScript(rest[0])
	if err != nil {
		exitWith(bundle.ExitRuntimeFailure, err.Error())
	}

	result := lower.Lower(rest[0], src, nil)
	bag := result.Doc.Validate(true)

	req := bundle.Request{
		Doc:         result.Doc,
		OutDir:      opts.Out,
		OriginalSrc: src,
		ExpandedSrc: result.Expanded,
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
	if derr := bindTables(eng, result.Doc, bindings, opts.Format); derr != nil {
		req.Eng = eng
		req.PrimaryError = derr
		req.ExitBucket = bundle.ExitRuntimeFailure
		if _, werr := bundle.Write(req); werr != nil {
			exitWith(bundle.ExitRuntimeFailure, werr.Error())
		}
		os.Exit(int(req.ExitBucket))
	}

	if derr := eng.Run(result.Doc); derr != nil {
		req.Eng = eng
		req.PrimaryError = derr
		req.ExitBucket = bundle.ExitRuntimeFailure
		if _, werr := bundle.Write(req); werr != nil {
			exitWith(bundle.ExitRuntimeFailure, werr.Error())
		}
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

// bindTables reads each NAME=PATH binding into the engine, using the IR's
// declared datasource columns (if any) as the pinned schema for CSV, and
// refusing a duplicate binding for the same table name. Any table the IR
// itself declares a datasource for (spec.md §4.6's datasource(...) operator,
// or a bare inferred "csv" entry left by lowering) that the CLI did not bind
// is then resolved from doc.Datasources directly, so a pinned path or inline
// CSV text in the IR flows through without needing a --tables flag.
func bindTables(eng *engine.Engine, doc *ir.IRDoc, bindings []tableBinding, formatFlag string) *diag.Diagnostic {
	loc := diag.Loc{}
	bound := map[string]bool{}
	for _, b := range bindings {
		if bound[b.Name] {
			return diag.New(diag.ESansRuntimeDuplicateBinding, "duplicate table binding for "+b.Name, &loc)
		}
		bound[b.Name] = true

		var pinned []csvio.ColumnFact
		if decl, ok := doc.Datasources[b.Name]; ok {
			pinned = decl.Columns
		}

		switch strings.ToLower(formatForPath(formatFlag, b.Path)) {
		case "xpt":
			t, derr := xpt.ReadFile(b.Path, loc)
			if derr != nil {
				return derr
			}
			eng.Bind(b.Name, t)
		default:
			t, derr := csvio.ReadFile(b.Path, pinned, loc)
			if derr != nil {
				return derr
			}
			eng.Bind(b.Name, t)
		}
	}

	for name, decl := range doc.Datasources {
		if bound[name] {
			continue
		}
		switch decl.Kind {
		case "inline_csv":
			t, derr := csvio.ReadString(name, decl.InlineText, decl.Columns, loc)
			if derr != nil {
				return derr
			}
			eng.Bind(name, t)
		case "csv":
			if decl.Path == "" {
				continue
			}
			t, derr := csvio.ReadFile(decl.Path, decl.Columns, loc)
			if derr != nil {
				return derr
			}
			eng.Bind(name, t)
		}
	}
	return nil
}
