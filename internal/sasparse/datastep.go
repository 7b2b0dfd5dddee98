package sasparse

import (
	"fmt"
	"strings"

	"github.com/sans-lang/sans/internal/diag"
	"github.com/sans-lang/sans/internal/expr"
	"github.com/sans-lang/sans/internal/ir"
	"github.com/sans-lang/sans/internal/legacy"
	"github.com/sans-lang/sans/internal/stmtlex"
)

// LowerDataStep lowers a "data X; set Y; ...; run;" block into identity(Y→X)
// plus any interleaved compute/filter/rename/select/assert steps, per
// spec.md §4.4. Each intermediate statement rewires through a fresh
// synthetic table name so the final statement's output lands on X.
func LowerDataStep(file string, b stmtlex.Block, gen *IDGen) ([]*ir.Step, *diag.Bag) {
	bag := &diag.Bag{}
	header := b.Statements[0]
	headerFields := strings.Fields(header.Text)
	if len(headerFields) < 2 {
		bag.Add(unsupportedStatement(header.Text, header.Loc))
		return nil, bag
	}
	outName := headerFields[1]

	if len(b.Statements) < 2 || firstWord(b.Statements[1].Text) != "set" {
		bag.Add(unsupportedStatement(header.Text, header.Loc))
		return nil, bag
	}
	setFields := strings.Fields(b.Statements[1].Text)
	if len(setFields) != 2 {
		bag.Add(unsupportedStatement(b.Statements[1].Text, b.Statements[1].Loc))
		return nil, bag
	}
	srcName := setFields[1]

	cur := srcName
	var steps []*ir.Step
	body := b.Statements[2:]

	// Drop a trailing bare "run" statement; it carries no lowering content.
	if len(body) > 0 && firstWord(body[len(body)-1].Text) == "run" {
		body = body[:len(body)-1]
	}

	next := func() string { return fmt.Sprintf("%s__s%d", outName, len(steps)) }

	steps = append(steps, &ir.Step{
		ID: gen.Next(), Op: ir.OpIdentity, Inputs: []string{cur}, Outputs: []string{next()},
		Loc: header.Loc,
	})
	cur = steps[len(steps)-1].Outputs[0]

	for i := 0; i < len(body); i++ {
		s := body[i]
		word := firstWord(s.Text)

		if word == "do" {
			step, endIdx, derr := lowerDoLoop(file, body, i, cur, next(), gen)
			if derr != nil {
				bag.Add(derr)
				i = endIdx
				continue
			}
			steps = append(steps, step)
			cur = step.Outputs[0]
			i = endIdx
			continue
		}

		out := next()
		switch {
		case isAssignment(s.Text):
			target, rhs, ok := splitAssignment(s.Text)
			if !ok {
				bag.Add(unsupportedStatement(s.Text, s.Loc))
				continue
			}
			translated, derr := legacy.TranslatePredicate(rhs, file, false)
			if derr != nil {
				bag.Add(derr)
				continue
			}
			node, perr := expr.Parse(file, translated)
			if perr != nil {
				bag.Add(diag.New(diag.EBadExpr, "malformed compute expression: "+perr.Message, &s.Loc))
				continue
			}
			steps = append(steps, &ir.Step{
				ID: gen.Next(), Op: ir.OpCompute, Inputs: []string{cur}, Outputs: []string{out},
				Params: map[string]any{"assignments": []any{map[string]any{"target": target, "expr": expr.ToCanon(node)}}},
				Loc:    s.Loc,
			})
		case word == "output":
			// A bare output; outside any do-loop is a no-op: the data step
			// already emits exactly one row per input row by default.
			continue
		case word == "if" || word == "where":
			predText := strings.TrimSpace(s.Text[len(word):])
			node, derr := legacy.ParsePredicate(predText, file)
			if derr != nil {
				bag.Add(derr)
				continue
			}
			steps = append(steps, &ir.Step{
				ID: gen.Next(), Op: ir.OpFilter, Inputs: []string{cur}, Outputs: []string{out},
				Params: map[string]any{"expr": expr.ToCanon(node)},
				Loc:    s.Loc,
			})
		case word == "keep":
			cols := identList(strings.TrimSpace(s.Text[len(word):]))
			steps = append(steps, &ir.Step{
				ID: gen.Next(), Op: ir.OpSelect, Inputs: []string{cur}, Outputs: []string{out},
				Params: map[string]any{"columns": stringsAny(cols)},
				Loc:    s.Loc,
			})
		case word == "rename":
			mapping, derr := parseRenameMapping(strings.TrimSpace(s.Text[len(word):]), s.Loc)
			if derr != nil {
				bag.Add(derr)
				continue
			}
			steps = append(steps, &ir.Step{
				ID: gen.Next(), Op: ir.OpRename, Inputs: []string{cur}, Outputs: []string{out},
				Params: map[string]any{"mapping": mapping},
				Loc:    s.Loc,
			})
		case word == "assert":
			predText, message := splitAssertArgs(strings.TrimSpace(s.Text[len(word):]))
			node, derr := legacy.ParsePredicate(predText, file)
			if derr != nil {
				bag.Add(derr)
				continue
			}
			params := map[string]any{"expr": expr.ToCanon(node)}
			if message != "" {
				params["message"] = message
			}
			steps = append(steps, &ir.Step{
				ID: gen.Next(), Op: ir.OpAssert, Inputs: []string{cur}, Outputs: []string{out},
				Params: params, Loc: s.Loc,
			})
		default:
			bag.Add(unsupportedStatement(s.Text, s.Loc))
			continue
		}
		cur = steps[len(steps)-1].Outputs[0]
	}

	if cur != outName && len(steps) > 0 {
		steps[len(steps)-1].Outputs[0] = outName
		cur = outName
	}
	return steps, bag
}

func stringsAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// isAssignment reports whether text is "target = expr" with no leading
// keyword (if/where/keep/rename/assert/set/data all recognized separately).
func isAssignment(text string) bool {
	fields := strings.Fields(text)
	if len(fields) < 3 {
		return false
	}
	kw := strings.ToLower(fields[0])
	switch kw {
	case "if", "where", "keep", "rename", "assert", "set", "data", "run":
		return false
	}
	return fields[1] == "="
}

func splitAssignment(text string) (target, rhs string, ok bool) {
	idx := strings.Index(text, "=")
	if idx < 0 {
		return "", "", false
	}
	target = strings.TrimSpace(text[:idx])
	rhs = strings.TrimSpace(text[idx+1:])
	if target == "" || rhs == "" {
		return "", "", false
	}
	return target, rhs, true
}

func parseRenameMapping(text string, loc diag.Loc) ([]any, *diag.Diagnostic) {
	pairs := strings.Fields(text)
	seen := map[string]bool{}
	var mapping []any
	for _, p := range pairs {
		idx := strings.Index(p, "=")
		if idx <= 0 || idx == len(p)-1 {
			return nil, diag.New(diag.ESansParseUnsupportedStatement, fmt.Sprintf("malformed rename pair %q", p), &loc)
		}
		from, to := p[:idx], p[idx+1:]
		if seen[to] {
			l := loc
			return nil, diag.New(diag.ESansRuntimeDuplicateRename, fmt.Sprintf("rename target %q assigned more than once", to), &l)
		}
		seen[to] = true
		mapping = append(mapping, map[string]any{"from": from, "to": to})
	}
	return mapping, nil
}

func splitAssertArgs(text string) (predText, message string) {
	text = strings.TrimSuffix(strings.TrimSpace(text), ",")
	if idx := strings.LastIndex(text, ","); idx >= 0 {
		return strings.TrimSpace(text[:idx]), unquote(strings.TrimSpace(text[idx+1:]))
	}
	return text, ""
}

// lowerDoLoop lowers a "do [VAR = LO to HI [by STEP]];  ...; end;" block
// starting at body[start] into a single data_step step, per spec.md §4.5's
// control-flow lowering. A bare "do;" with no iteration header runs its
// body exactly once (lo=hi=step=1 under a synthetic "_" loop variable). It
// returns the index of the matching "end" statement so the caller can skip
// past the whole block; on a failure before the matching end is found it
// still returns a best-effort skip index so the outer loop makes progress.
func lowerDoLoop(file string, body []stmtlex.Statement, start int, input, output string, gen *IDGen) (*ir.Step, int, *diag.Diagnostic) {
	header := body[start]
	loopVar, lo, hi, step, derr := parseDoHeader(header.Text, header.Loc)
	if derr != nil {
		end := findMatchingEnd(body, start+1)
		return nil, end, derr
	}

	items, end, derr := lowerDoBody(file, body, start+1)
	if derr != nil {
		return nil, end, derr
	}

	return &ir.Step{
		ID: gen.Next(), Op: ir.OpDataStep, Inputs: []string{input}, Outputs: []string{output},
		Params: map[string]any{
			"var":  loopVar,
			"lo":   lo,
			"hi":   hi,
			"step": step,
			"body": items,
		},
		Loc: header.Loc,
	}, end, nil
}

// parseDoHeader parses a "do" header. "do;" alone (no iteration clause) is a
// single-pass block, represented as a synthetic "_" loop var over [1,1] step
// 1. "do VAR = LO to HI [by STEP];" requires LO, HI, and STEP to all be
// integer literals — spec.md §4.5 only accepts constant bounds, and the
// original implementation's own golden tests refuse a column- or scalar-
// valued bound at parse time rather than deferring it to execution. Any
// other "do" form (until/while, a non-literal bound, a zero step) refuses
// with the same unsupported-loop-bound code.
func parseDoHeader(text string, loc diag.Loc) (loopVar string, lo, hi, step int64, derr *diag.Diagnostic) {
	fields := strings.Fields(text)
	if len(fields) == 1 && strings.EqualFold(fields[0], "do") {
		return "_", 1, 1, 1, nil
	}
	if len(fields) < 5 || strings.ToLower(fields[0]) != "do" || fields[2] != "=" || !strings.EqualFold(fields[4], "to") {
		l := loc
		return "", 0, 0, 0, diag.New(diag.ESansParseLoopBoundUnsupported, "unsupported do-loop header: "+text, &l)
	}
	loopVar = fields[1]
	loVal, ok := parseIntLiteral(fields[3])
	if !ok {
		l := loc
		return "", 0, 0, 0, diag.New(diag.ESansParseLoopBoundUnsupported, "do-loop lower bound must be a constant: "+text, &l)
	}

	rest := fields[5:]
	if len(rest) == 0 {
		l := loc
		return "", 0, 0, 0, diag.New(diag.ESansParseLoopBoundUnsupported, "unsupported do-loop header: "+text, &l)
	}
	hiVal, ok := parseIntLiteral(rest[0])
	if !ok {
		l := loc
		return "", 0, 0, 0, diag.New(diag.ESansParseLoopBoundUnsupported, "do-loop upper bound must be a constant: "+text, &l)
	}

	stepVal := int64(1)
	switch {
	case len(rest) == 1:
		// no "by" clause, default step 1
	case len(rest) >= 3 && strings.EqualFold(rest[1], "by"):
		v, ok := parseIntLiteral(rest[2])
		if !ok || v == 0 {
			l := loc
			return "", 0, 0, 0, diag.New(diag.ESansParseLoopBoundUnsupported, "do-loop step must be a nonzero constant: "+text, &l)
		}
		stepVal = v
	default:
		l := loc
		return "", 0, 0, 0, diag.New(diag.ESansParseLoopBoundUnsupported, "unsupported do-loop header: "+text, &l)
	}
	return loopVar, loVal, hiVal, stepVal, nil
}

func parseIntLiteral(tok string) (int64, bool) {
	neg := false
	t := tok
	if strings.HasPrefix(t, "-") {
		neg = true
		t = t[1:]
	}
	if t == "" {
		return 0, false
	}
	var n int64
	for _, c := range t {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int64(c-'0')
	}
	if neg {
		n = -n
	}
	return n, true
}

// lowerDoBody lowers the statements of a do-loop body (assignments and
// nested do-loops only) starting at index from, up to and including its
// matching "end" statement. It returns the canonical body item list and the
// index of that "end" statement.
func lowerDoBody(file string, body []stmtlex.Statement, from int) ([]any, int, *diag.Diagnostic) {
	var items []any
	for i := from; i < len(body); i++ {
		s := body[i]
		word := firstWord(s.Text)
		switch {
		case word == "end":
			return items, i, nil
		case word == "do":
			loopVar, lo, hi, step, derr := parseDoHeader(s.Text, s.Loc)
			if derr != nil {
				return nil, findMatchingEnd(body, i+1), derr
			}
			nested, end, derr := lowerDoBody(file, body, i+1)
			if derr != nil {
				return nil, end, derr
			}
			items = append(items, map[string]any{
				"kind": "loop", "var": loopVar, "lo": lo, "hi": hi, "step": step, "body": nested,
			})
			i = end
		case word == "output":
			items = append(items, map[string]any{"kind": "output"})
		case isAssignment(s.Text):
			target, rhs, ok := splitAssignment(s.Text)
			if !ok {
				return nil, findMatchingEnd(body, i+1), unsupportedStatement(s.Text, s.Loc)
			}
			translated, derr := legacy.TranslatePredicate(rhs, file, false)
			if derr != nil {
				return nil, findMatchingEnd(body, i+1), derr
			}
			node, perr := expr.Parse(file, translated)
			if perr != nil {
				return nil, findMatchingEnd(body, i+1), diag.New(diag.EBadExpr, "malformed compute expression: "+perr.Message, &s.Loc)
			}
			items = append(items, map[string]any{"kind": "assign", "target": target, "expr": expr.ToCanon(node)})
		default:
			return nil, findMatchingEnd(body, i+1), unsupportedStatement(s.Text, s.Loc)
		}
	}
	loc := stmtLocOrZero(body, from)
	return nil, len(body) - 1, diag.New(diag.ESansParseUnsupportedStatement, "do-loop missing matching end", &loc)
}

// findMatchingEnd scans forward from "from" for the "end" statement closing
// the do-loop that started just before it, accounting for nested do blocks.
// Used only to choose a safe resynchronization point after a lowering error.
func findMatchingEnd(body []stmtlex.Statement, from int) int {
	depth := 0
	for i := from; i < len(body); i++ {
		switch firstWord(body[i].Text) {
		case "do":
			depth++
		case "end":
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return len(body) - 1
}

func stmtLocOrZero(body []stmtlex.Statement, i int) diag.Loc {
	if i >= 0 && i < len(body) {
		return body[i].Loc
	}
	return diag.Loc{}
}
