package sasparse

import (
	"strings"

	"github.com/sans-lang/sans/internal/diag"
	"github.com/sans-lang/sans/internal/ir"
	"github.com/sans-lang/sans/internal/stmtlex"
)

var allowedStats = map[string]bool{
	"count": true, "mean": true, "sum": true, "min": true, "max": true, "n": true, "nmiss": true,
}

// LowerProcSummary lowers "proc summary/means data=IN; class a b; var x y;
// output out=OUT stat1= stat2=...; run;" into an aggregate step with
// canonical params {class, var, stats}. The stat set is read off the output
// statement's stat= keywords (the only part of proc summary/means syntax the
// engine consults; derived column naming is the engine's concern, not the
// lowering pass's).
func LowerProcSummary(b stmtlex.Block, gen *IDGen) (*ir.Step, *diag.Bag) {
	bag := &diag.Bag{}
	header := b.Statements[0]
	kvs, _ := parseHeaderKVs(header.Text, 2)
	in, ok := findKV(kvs, "data")
	if !ok {
		bag.Add(unsupportedStatement(header.Text, header.Loc))
		return nil, bag
	}

	var class, vr []string
	out := in
	statSet := map[string]bool{}

	for i := range b.Statements[1:] {
		s := &b.Statements[1+i]
		word := firstWord(s.Text)
		switch word {
		case "class":
			class = identList(strings.TrimSpace(s.Text[len("class"):]))
		case "var":
			vr = identList(strings.TrimSpace(s.Text[len("var"):]))
		case "output":
			oKvs, _ := parseHeaderKVs(s.Text, 1)
			if o, ok := findKV(oKvs, "out"); ok {
				out = o
			}
			for _, k := range oKvs {
				if allowedStats[k.Key] {
					statSet[k.Key] = true
				}
			}
		case "run":
		default:
			bag.Add(unsupportedStatement(s.Text, s.Loc))
		}
	}

	if len(statSet) == 0 {
		statSet["mean"] = true
	}
	var stats []any
	for _, s := range []string{"count", "mean", "sum", "min", "max", "n", "nmiss"} {
		if statSet[s] {
			stats = append(stats, s)
		}
	}

	return &ir.Step{
		ID: gen.Next(), Op: ir.OpAggregate, Inputs: []string{in}, Outputs: []string{out},
		Params: map[string]any{"class": stringsAny(class), "var": stringsAny(vr), "stats": stats},
		Loc:    b.Loc,
	}, bag
}
