// Package lower drives the legacy-dialect front end end to end: macro
// pre-pass, statement segmentation, block grouping, and per-block dispatch
// to internal/sasparse, assembling the resulting steps into an ir.IRDoc.
// Dispatch-by-block-kind mirrors schema/parser.go's switch-on-statement-type
// shape, widened from one DDL statement to a whole data/proc block.
package lower

import (
	"strings"

	"github.com/sans-lang/sans/internal/diag"
	"github.com/sans-lang/sans/internal/ir"
	"github.com/sans-lang/sans/internal/macro"
	"github.com/sans-lang/sans/internal/sasparse"
	"github.com/sans-lang/sans/internal/stmtlex"
)

// Result carries the lowered IR plus any non-fatal warnings collected along
// the way (the first fatal refusal replaces doc with a single UnknownBlockStep
// sentinel per spec.md §7, and lowering stops at that block).
type Result struct {
	Doc      *ir.IRDoc
	Bag      *diag.Bag
	Expanded string // macro-expanded source, for the preprocessed.sans artifact
}

// Includer resolves %include paths; nil disables %include entirely.
type Includer = macro.Includer

// Lower runs the full legacy front end over src and returns an IR document.
// Non-fatal diagnostics from a block are added to Bag and the block
// contributes whatever steps it lowered. The first fatal diagnostic
// (SeverityFatal), from the macro pass or from any block, replaces the doc
// with a single UnknownBlockStep sentinel, so the returned doc is
// IsFatalSentinel() and carries nothing else.
func Lower(file, src string, includer Includer) Result {
	bag := &diag.Bag{}

	expander := macro.NewExpander(includer)
	expanded, derr := expander.Expand(file, src)
	if derr != nil {
		doc := ir.NewDoc()
		doc.Steps = []*ir.Step{{Unknown: &ir.UnknownBlockStep{
			Code: derr.Code, Message: derr.Message, Severity: string(diag.SeverityFatal),
			Loc: locOrZero(derr.Loc),
		}}}
		return Result{Doc: doc, Bag: bag, Expanded: expanded}
	}

	stmts := stmtlex.Segment(file, expanded)
	blocks := stmtlex.GroupBlocks(stmts)

	doc := ir.NewDoc()
	gen := &sasparse.IDGen{}

	for _, block := range blocks {
		steps, blockBag := lowerBlock(file, block, gen)
		for _, d := range blockBag.Items {
			if d.Severity == diag.SeverityFatal {
				doc.Steps = []*ir.Step{{Unknown: &ir.UnknownBlockStep{
					Code: d.Code, Message: d.Message, Severity: string(diag.SeverityFatal),
					Loc: locOrZero(d.Loc),
				}}}
				return Result{Doc: doc, Bag: bag, Expanded: expanded}
			}
			bag.Add(d)
		}
		doc.Steps = append(doc.Steps, steps...)
	}

	resolveExternalBindings(doc)
	return Result{Doc: doc, Bag: bag, Expanded: expanded}
}

// resolveExternalBindings finds every step input that no earlier step
// produces and records it as an external binding: doc.Tables so Validate
// doesn't refuse it as undeclared, and a bare "csv"-kind doc.Datasources
// entry (no path yet known; the legacy dialect has no datasource(...)
// declaration of its own) so CLI table binding and schema-lock generation
// have a name to key off of.
func resolveExternalBindings(doc *ir.IRDoc) {
	produced := map[string]bool{}
	for _, s := range doc.Steps {
		if s.Unknown != nil {
			continue
		}
		for _, in := range s.Inputs {
			if !produced[in] {
				doc.Tables[in] = true
				if _, ok := doc.Datasources[in]; !ok {
					doc.Datasources[in] = ir.DatasourceDecl{Kind: "csv"}
				}
			}
		}
		for _, out := range s.Outputs {
			produced[out] = true
		}
	}
}

func locOrZero(l *diag.Loc) diag.Loc {
	if l == nil {
		return diag.Loc{}
	}
	return *l
}

func lowerBlock(file string, b stmtlex.Block, gen *sasparse.IDGen) ([]*ir.Step, *diag.Bag) {
	switch b.Kind {
	case stmtlex.BlockData:
		return sasparse.LowerDataStep(file, b, gen)
	case stmtlex.BlockProc:
		return lowerProc(file, b, gen)
	default:
		bag := &diag.Bag{}
		word := ""
		if len(b.Statements) > 0 {
			fields := strings.Fields(b.Statements[0].Text)
			if len(fields) > 0 {
				word = strings.ToLower(fields[0])
			}
		}
		if word == "" {
			return nil, bag
		}
		l := b.Loc
		bag.Add(diag.New(diag.ESansParseUnsupportedStatement, "unsupported top-level statement: "+word, &l))
		return nil, bag
	}
}

func lowerProc(file string, b stmtlex.Block, gen *sasparse.IDGen) ([]*ir.Step, *diag.Bag) {
	bag := &diag.Bag{}
	fields := strings.Fields(b.Statements[0].Text)
	if len(fields) < 2 {
		l := b.Loc
		bag.Add(diag.New(diag.ESansParseUnsupportedProc, "malformed proc statement", &l))
		return nil, bag
	}
	name := strings.ToLower(fields[1])

	switch name {
	case "sort":
		step, sbag := sasparse.LowerProcSort(b, gen)
		return stepOrNil(step), mergeBag(bag, sbag)
	case "summary", "means":
		step, sbag := sasparse.LowerProcSummary(b, gen)
		return stepOrNil(step), mergeBag(bag, sbag)
	case "transpose":
		step, sbag := sasparse.LowerProcTranspose(b, gen)
		return stepOrNil(step), mergeBag(bag, sbag)
	case "format":
		step, sbag := sasparse.LowerProcFormat(b, gen)
		return stepOrNil(step), mergeBag(bag, sbag)
	case "sql":
		step, sbag := sasparse.LowerProcSQL(file, b, gen)
		return stepOrNil(step), mergeBag(bag, sbag)
	default:
		l := b.Loc
		bag.Add(diag.New(diag.ESansParseUnsupportedProc, "unsupported proc "+name, &l))
		return nil, bag
	}
}

func stepOrNil(s *ir.Step) []*ir.Step {
	if s == nil {
		return nil
	}
	return []*ir.Step{s}
}

func mergeBag(a, b *diag.Bag) *diag.Bag {
	a.Items = append(a.Items, b.Items...)
	return a
}
