package engine

import (
	"github.com/sans-lang/sans/internal/diag"
	"github.com/sans-lang/sans/internal/expr"
	"github.com/sans-lang/sans/internal/ir"
	"github.com/sans-lang/sans/internal/value"
)

const (
	defaultLoopLimit       = 1000000
	defaultNestingDepthCap = 50
)

// dataStepLoop is one "do [VAR = LO to HI [by STEP]]; ...; end;" block: a
// bare "do;...end;" is represented with Var "_" and Lo=Hi=Step=1, so it runs
// its body exactly once through the same machinery as a bounded loop.
type dataStepLoop struct {
	Var  string
	Lo   int64
	Hi   int64
	Step int64
	Body []dataStepBodyItem
}

// dataStepBodyItem is one statement inside a do-loop body: an assignment, a
// nested do-loop, or an explicit output.
type dataStepBodyItem struct {
	kind string // "assign", "loop", or "output"

	target string
	node   expr.Node

	loop *dataStepLoop
}

func loopFromCanon(m map[string]any) dataStepLoop {
	loop := dataStepLoop{
		Var:  stringField(m, "var"),
		Lo:   intField(m, "lo"),
		Hi:   intField(m, "hi"),
		Step: intField(m, "step"),
	}
	body, _ := m["body"].([]any)
	loop.Body = make([]dataStepBodyItem, 0, len(body))
	for _, raw := range body {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		switch kind, _ := item["kind"].(string); kind {
		case "assign":
			exprMap, _ := item["expr"].(map[string]any)
			node, err := expr.FromCanon(exprMap)
			if err != nil {
				continue
			}
			loop.Body = append(loop.Body, dataStepBodyItem{kind: "assign", target: stringField(item, "target"), node: node})
		case "loop":
			nested := loopFromCanon(item)
			loop.Body = append(loop.Body, dataStepBodyItem{kind: "loop", loop: &nested})
		case "output":
			loop.Body = append(loop.Body, dataStepBodyItem{kind: "output"})
		}
	}
	return loop
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func intField(m map[string]any, key string) int64 {
	switch v := m[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// collectLoopColumns gathers every loop variable and assignment target
// appearing anywhere in loop (recursing into nested loops), in first-
// occurrence order, so the output table gains exactly the columns the loop
// can populate.
func collectLoopColumns(loop dataStepLoop, seen map[string]bool, order *[]string) {
	if !seen[loop.Var] {
		seen[loop.Var] = true
		*order = append(*order, loop.Var)
	}
	for _, item := range loop.Body {
		switch item.kind {
		case "assign":
			if !seen[item.target] {
				seen[item.target] = true
				*order = append(*order, item.target)
			}
		case "loop":
			collectLoopColumns(*item.loop, seen, order)
		}
	}
}

// execDataStep runs a do-loop data step, the lowering target for SAS-style
// "do i = LO to HI by STEP; ...; end;" control flow. Each input row is
// processed independently: absent any explicit "output" statement inside the
// loop, the row's final scope is emitted once (the DATA step's implicit
// bottom-of-step output); an explicit "output" call instead emits a row
// snapshot at that point, possibly several times per input row, and
// suppresses the implicit one.
func (e *Engine) execDataStep(s *ir.Step) *diag.Diagnostic {
	in, derr := e.input(s.Inputs[0], s.Loc)
	if derr != nil {
		return derr
	}

	loop := loopFromCanon(s.Params)

	loopCols := []string{}
	seen := map[string]bool{}
	for _, c := range in.Columns {
		seen[c] = true
	}
	collectLoopColumns(loop, seen, &loopCols)

	out := &Table{Columns: append(append([]string(nil), in.Columns...), loopCols...)}

	loopLimit := e.LoopLimit
	if loopLimit <= 0 {
		loopLimit = defaultLoopLimit
	}
	depthCap := e.NestingDepthCap
	if depthCap <= 0 {
		depthCap = defaultNestingDepthCap
	}

	for rowIdx := range in.Rows {
		scope := in.RowMap(rowIdx)
		for _, c := range loopCols {
			if _, ok := scope[c]; !ok {
				scope[c] = value.Null()
			}
		}

		var rows [][]value.Value
		iterations := 0
		outputted := false
		if derr := e.runDoLoop(loop, scope, 1, depthCap, &iterations, loopLimit, s.Loc, out.Columns, &rows, &outputted); derr != nil {
			return derr
		}
		if !outputted {
			rows = append(rows, snapshotRow(scope, out.Columns))
		}
		out.Rows = append(out.Rows, rows...)
	}

	e.Tables[s.Outputs[0]] = out
	return nil
}

func snapshotRow(scope map[string]value.Value, columns []string) []value.Value {
	row := make([]value.Value, len(columns))
	for i, c := range columns {
		row[i] = scope[c]
	}
	return row
}

// runDoLoop executes loop over scope in place, recursing into nested loops
// and appending a row snapshot to *rows on every explicit output. iterations
// accumulates the total iteration count across the whole row's nested-loop
// tree, checked against loopLimit on every increment; depth is checked
// against depthCap on every loop entry.
func (e *Engine) runDoLoop(
	loop dataStepLoop, scope map[string]value.Value, depth, depthCap int,
	iterations *int, loopLimit int, loc diag.Loc, columns []string, rows *[][]value.Value, outputted *bool,
) *diag.Diagnostic {
	if depth > depthCap {
		return errf(diag.ESansRuntimeControlDepth, loc, "do-loop nesting exceeds cap of %d", depthCap)
	}
	if loop.Step == 0 {
		return errf(diag.ESansParseLoopBoundUnsupported, loc, "do-loop step must not be zero")
	}

	for i := loop.Lo; (loop.Step > 0 && i <= loop.Hi) || (loop.Step < 0 && i >= loop.Hi); i += loop.Step {
		*iterations++
		if *iterations > loopLimit {
			return errf(diag.ESansRuntimeLoopLimit, loc, "do-loop exceeds iteration cap of %d", loopLimit)
		}
		scope[loop.Var] = value.Int(i)

		for _, item := range loop.Body {
			switch item.kind {
			case "assign":
				ev := &Evaluator{Row: scope, Scalars: e.scalars, Formats: e.formats}
				v, derr := ev.Eval(item.node)
				if derr != nil {
					return derr
				}
				scope[item.target] = v
			case "loop":
				if derr := e.runDoLoop(*item.loop, scope, depth+1, depthCap, iterations, loopLimit, loc, columns, rows, outputted); derr != nil {
					return derr
				}
			case "output":
				*rows = append(*rows, snapshotRow(scope, columns))
				*outputted = true
			}
		}
	}
	return nil
}
