package sasparse

import (
	"strings"

	"github.com/sans-lang/sans/internal/diag"
	"github.com/sans-lang/sans/internal/ir"
	"github.com/sans-lang/sans/internal/stmtlex"
)

// LowerProcTranspose lowers "proc transpose data=IN out=OUT; by g; id key;
// var val; run;" into a transpose step with canonical params {by, id, var}.
func LowerProcTranspose(b stmtlex.Block, gen *IDGen) (*ir.Step, *diag.Bag) {
	bag := &diag.Bag{}
	header := b.Statements[0]
	kvs, _ := parseHeaderKVs(header.Text, 2)
	in, ok := findKV(kvs, "data")
	if !ok {
		bag.Add(unsupportedStatement(header.Text, header.Loc))
		return nil, bag
	}
	out, ok := findKV(kvs, "out")
	if !ok {
		bag.Add(diag.New(diag.ESansParseUnsupportedStatement, "proc transpose requires out=", &header.Loc))
		return nil, bag
	}

	var by, id, vr []string
	for i := range b.Statements[1:] {
		s := &b.Statements[1+i]
		switch firstWord(s.Text) {
		case "by":
			by = identList(strings.TrimSpace(s.Text[len("by"):]))
		case "id":
			id = identList(strings.TrimSpace(s.Text[len("id"):]))
		case "var":
			vr = identList(strings.TrimSpace(s.Text[len("var"):]))
		case "run":
		default:
			bag.Add(unsupportedStatement(s.Text, s.Loc))
		}
	}
	if len(id) != 1 {
		bag.Add(diag.New(diag.ESansParseUnsupportedStatement, "proc transpose requires exactly one id variable", &header.Loc))
		return nil, bag
	}

	return &ir.Step{
		ID: gen.Next(), Op: ir.OpTranspose, Inputs: []string{in}, Outputs: []string{out},
		Params: map[string]any{"by": stringsAny(by), "id": id[0], "var": stringsAny(vr)},
		Loc:    b.Loc,
	}, bag
}
