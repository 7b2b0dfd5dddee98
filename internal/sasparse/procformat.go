package sasparse

import (
	"strings"

	"github.com/sans-lang/sans/internal/diag"
	"github.com/sans-lang/sans/internal/ir"
	"github.com/sans-lang/sans/internal/stmtlex"
)

// LowerProcFormat lowers "proc format; value FMTNAME 'a'='A' 'b'='B' other='?';
// run;" into a format step with canonical params {name, kind, mapping, other?}.
// Only exact-match value lists are supported (no range selectors like
// "low-5"); a range selector is SANS_PARSE_FORMAT_UNSUPPORTED_STATEMENT.
func LowerProcFormat(b stmtlex.Block, gen *IDGen) (*ir.Step, *diag.Bag) {
	bag := &diag.Bag{}

	var valueStmt *stmtlex.Statement
	for i := range b.Statements[1:] {
		s := &b.Statements[1+i]
		if firstWord(s.Text) == "value" {
			valueStmt = s
			break
		}
	}
	if valueStmt == nil {
		bag.Add(diag.New(diag.ESansParseFormatUnsupportedStmt, "proc format requires a value statement", &b.Loc))
		return nil, bag
	}

	toks := splitHeaderTokens(strings.TrimSpace(valueStmt.Text[len("value"):]))
	if len(toks) == 0 {
		bag.Add(diag.New(diag.ESansParseFormatUnsupportedStmt, "proc format value statement has no name", &valueStmt.Loc))
		return nil, bag
	}
	name := toks[0]
	rest := toks[1:]

	var mapping []any
	var other string
	for i := 0; i < len(rest); i++ {
		if rest[i] != "=" && i+2 < len(rest) && rest[i+1] == "=" {
			key := unquote(rest[i])
			if key == rest[i] && (strings.Contains(key, "-") || strings.Contains(key, "<")) {
				bag.Add(diag.New(diag.ESansParseFormatUnsupportedStmt,
					"range-selector format values are not supported: "+rest[i], &valueStmt.Loc))
				return nil, bag
			}
			val := unquote(rest[i+2])
			if strings.EqualFold(key, "other") {
				other = val
			} else {
				mapping = append(mapping, map[string]any{"key": key, "value": val})
			}
			i += 2
			continue
		}
		if strings.Contains(rest[i], "-") || strings.Contains(rest[i], "<") {
			bag.Add(diag.New(diag.ESansParseFormatUnsupportedStmt,
				"range-selector format values are not supported: "+rest[i], &valueStmt.Loc))
			return nil, bag
		}
	}

	params := map[string]any{"name": name, "kind": "string", "mapping": mapping}
	if other != "" {
		params["other"] = other
	}

	return &ir.Step{
		ID: gen.Next(), Op: ir.OpFormat, Inputs: []string{}, Outputs: []string{},
		Params: params, Loc: b.Loc,
	}, bag
}
