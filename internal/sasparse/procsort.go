package sasparse

import (
	"strings"

	"github.com/sans-lang/sans/internal/diag"
	"github.com/sans-lang/sans/internal/ir"
	"github.com/sans-lang/sans/internal/stmtlex"
)

// LowerProcSort lowers "proc sort data=IN out=OUT [nodupkey]; by a descending b; run;"
// into a sort step with canonical params {by:[{col,desc}], nodupkey}.
func LowerProcSort(b stmtlex.Block, gen *IDGen) (*ir.Step, *diag.Bag) {
	bag := &diag.Bag{}
	header := b.Statements[0]
	kvs, bare := parseHeaderKVs(header.Text, 2)

	in, ok := findKV(kvs, "data")
	if !ok {
		bag.Add(unsupportedStatement(header.Text, header.Loc))
		return nil, bag
	}
	out, ok := findKV(kvs, "out")
	if !ok {
		out = in
	}
	nodupkey := false
	for _, w := range bare {
		if strings.EqualFold(w, "nodupkey") {
			nodupkey = true
		}
	}

	var byStmt *stmtlex.Statement
	for i := range b.Statements[1:] {
		s := &b.Statements[1+i]
		if firstWord(s.Text) == "by" {
			byStmt = s
			break
		}
	}
	if byStmt == nil {
		bag.Add(diag.New(diag.ESansParseUnsupportedStatement, "proc sort requires a by statement", &header.Loc))
		return nil, bag
	}

	// "descending" precedes the column name it modifies: "by x descending y;"
	// sorts x ascending, y descending.
	toks := identList(strings.TrimSpace(byStmt.Text[len("by"):]))
	var by []any
	for i := 0; i < len(toks); i++ {
		if strings.EqualFold(toks[i], "descending") {
			i++
			if i >= len(toks) {
				bag.Add(diag.New(diag.ESansParseUnsupportedStatement, "dangling 'descending' in by statement", &byStmt.Loc))
				break
			}
			by = append(by, map[string]any{"col": toks[i], "desc": true})
			continue
		}
		by = append(by, map[string]any{"col": toks[i], "desc": false})
	}

	return &ir.Step{
		ID: gen.Next(), Op: ir.OpSort, Inputs: []string{in}, Outputs: []string{out},
		Params: map[string]any{"by": by, "nodupkey": nodupkey},
		Loc:    b.Loc,
	}, bag
}
