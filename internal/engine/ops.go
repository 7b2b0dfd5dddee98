package engine

import (
	"github.com/sans-lang/sans/internal/diag"
	"github.com/sans-lang/sans/internal/expr"
	"github.com/sans-lang/sans/internal/ir"
	"github.com/sans-lang/sans/internal/value"
)

func (e *Engine) execIdentity(s *ir.Step) *diag.Diagnostic {
	in, derr := e.input(s.Inputs[0], s.Loc)
	if derr != nil {
		return derr
	}
	e.Tables[s.Outputs[0]] = in.Clone()
	return nil
}

func (e *Engine) execCompute(s *ir.Step) *diag.Diagnostic {
	in, derr := e.input(s.Inputs[0], s.Loc)
	if derr != nil {
		return derr
	}
	assignmentsRaw, _ := s.Params["assignments"].([]any)
	type assignment struct {
		target string
		node   expr.Node
	}
	var assigns []assignment
	for _, a := range assignmentsRaw {
		m := a.(map[string]any)
		target, _ := m["target"].(string)
		exprMap, _ := m["expr"].(map[string]any)
		node, err := expr.FromCanon(exprMap)
		if err != nil {
			return errf(diag.EBadExpr, s.Loc, "compute: %s", err)
		}
		assigns = append(assigns, assignment{target: target, node: node})
	}

	out := in.Clone()
	targetIdx := map[string]int{}
	for i, c := range out.Columns {
		targetIdx[c] = i
	}
	for _, a := range assigns {
		if _, exists := targetIdx[a.target]; !exists {
			out.Columns = append(out.Columns, a.target)
			targetIdx[a.target] = len(out.Columns) - 1
			for i := range out.Rows {
				out.Rows[i] = append(out.Rows[i], value.Null())
			}
		}
	}

	for rowIdx := range out.Rows {
		ev := &Evaluator{Row: out.RowMap(rowIdx), Scalars: e.scalars, Formats: e.formats}
		for _, a := range assigns {
			v, derr := ev.Eval(a.node)
			if derr != nil {
				return derr
			}
			out.Rows[rowIdx][targetIdx[a.target]] = v
			ev.Row[a.target] = v
		}
	}

	e.Tables[s.Outputs[0]] = out
	return nil
}

func (e *Engine) execFilter(s *ir.Step) *diag.Diagnostic {
	in, derr := e.input(s.Inputs[0], s.Loc)
	if derr != nil {
		return derr
	}
	exprMap, _ := s.Params["expr"].(map[string]any)
	node, err := expr.FromCanon(exprMap)
	if err != nil {
		return errf(diag.EBadExpr, s.Loc, "filter: %s", err)
	}

	out := &Table{Columns: append([]string(nil), in.Columns...)}
	for i := range in.Rows {
		ev := &Evaluator{Row: in.RowMap(i), Scalars: e.scalars, Formats: e.formats}
		v, derr := ev.Eval(node)
		if derr != nil {
			return derr
		}
		if v.Truthy() {
			out.Rows = append(out.Rows, append([]value.Value(nil), in.Rows[i]...))
		}
	}
	e.Tables[s.Outputs[0]] = out
	return nil
}

func (e *Engine) execSelect(s *ir.Step) *diag.Diagnostic {
	in, derr := e.input(s.Inputs[0], s.Loc)
	if derr != nil {
		return derr
	}
	cols := paramStringSlice(s.Params, "columns")
	idxs := make([]int, len(cols))
	for i, c := range cols {
		idx := in.ColIndex(c)
		if idx < 0 {
			return errf(diag.ESansRuntimeMissingColumn, s.Loc, "select: missing column %q", c)
		}
		idxs[i] = idx
	}
	out := &Table{Columns: cols}
	for _, row := range in.Rows {
		newRow := make([]value.Value, len(idxs))
		for j, idx := range idxs {
			newRow[j] = row[idx]
		}
		out.Rows = append(out.Rows, newRow)
	}
	e.Tables[s.Outputs[0]] = out
	return nil
}

func (e *Engine) execRename(s *ir.Step) *diag.Diagnostic {
	in, derr := e.input(s.Inputs[0], s.Loc)
	if derr != nil {
		return derr
	}
	mappingRaw, _ := s.Params["mapping"].([]any)
	rename := map[string]string{}
	seenTargets := map[string]bool{}
	for _, m := range mappingRaw {
		entry := m.(map[string]any)
		from, _ := entry["from"].(string)
		to, _ := entry["to"].(string)
		if seenTargets[to] {
			return errf(diag.ESansRuntimeDuplicateRename, s.Loc, "rename target %q assigned more than once", to)
		}
		seenTargets[to] = true
		rename[from] = to
	}
	newCols := make([]string, len(in.Columns))
	for i, c := range in.Columns {
		if to, ok := rename[c]; ok {
			newCols[i] = to
		} else {
			newCols[i] = c
		}
	}
	out := &Table{Columns: newCols, Rows: in.Rows}
	e.Tables[s.Outputs[0]] = out
	return nil
}

func (e *Engine) execAssert(s *ir.Step) *diag.Diagnostic {
	in, derr := e.input(s.Inputs[0], s.Loc)
	if derr != nil {
		return derr
	}
	exprMap, _ := s.Params["expr"].(map[string]any)
	node, err := expr.FromCanon(exprMap)
	if err != nil {
		return errf(diag.EBadExpr, s.Loc, "assert: %s", err)
	}
	message, _ := s.Params["message"].(string)

	for i := range in.Rows {
		ev := &Evaluator{Row: in.RowMap(i), Scalars: e.scalars, Formats: e.formats}
		v, derr := ev.Eval(node)
		if derr != nil {
			return derr
		}
		if !v.Truthy() {
			msg := message
			if msg == "" {
				msg = "assertion failed"
			}
			return errf(diag.ESansRuntimeAssert, s.Loc, "%s (row %d)", msg, i)
		}
	}
	if len(s.Outputs) > 0 {
		e.Tables[s.Outputs[0]] = in
	}
	return nil
}

func (e *Engine) execLetScalar(s *ir.Step) *diag.Diagnostic {
	name, _ := s.Params["name"].(string)
	exprMap, _ := s.Params["expr"].(map[string]any)
	node, err := expr.FromCanon(exprMap)
	if err != nil {
		return errf(diag.EBadExpr, s.Loc, "let_scalar: %s", err)
	}
	ev := &Evaluator{Row: map[string]value.Value{}, Scalars: e.scalars, Formats: e.formats}
	v, derr := ev.Eval(node)
	if derr != nil {
		return derr
	}
	e.scalars[name] = v
	return nil
}

func (e *Engine) execFormat(s *ir.Step) *diag.Diagnostic {
	name, _ := s.Params["name"].(string)
	mapping, _ := s.Params["mapping"].([]any)
	other, hasOther := s.Params["other"].(string)
	e.formats[name] = newFormatDef(name, mapping, other, hasOther)
	return nil
}
