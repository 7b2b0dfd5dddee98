package graphart

import (
	"sort"
	"strings"

	"github.com/sans-lang/sans/internal/expr"
	"github.com/sans-lang/sans/internal/ir"
)

// varEdge is one column-to-column lineage edge; Src/Dst are "v:<table>.<col>".
type varEdge struct {
	src, dst string
}

// BuildVars derives the variable-flow (column lineage) graph for doc: one
// edge per (source column, derived column) pair a step establishes. It is
// best-effort — steps whose column derivation cannot be determined
// statically (an aggregate stat's source var, a compute assignment's
// referenced columns) still produce edges; a step that truly cannot be
// attributed to a source column is simply skipped rather than refused,
// since the vars graph is diagnostic, not load-bearing for execution.
func BuildVars(doc *ir.IRDoc) *Graph {
	var edges []varEdge

	// knownCols tracks the statically-known column set per table as steps
	// are walked in order, seeded from declared datasource/table facts and
	// propagated forward through ops whose output schema is derivable from
	// the input's. A table absent from this map has unknown schema and
	// passthrough-style ops over it simply contribute no lineage edges.
	knownCols := map[string][]string{}
	for name, fact := range doc.TableFacts {
		if !fact.Known {
			continue
		}
		cols := make([]string, len(fact.Columns))
		for i, c := range fact.Columns {
			cols[i] = c.Name
		}
		knownCols[name] = cols
	}
	for name, ds := range doc.Datasources {
		if len(ds.Columns) == 0 {
			continue
		}
		cols := make([]string, len(ds.Columns))
		for i, c := range ds.Columns {
			cols[i] = c.Name
		}
		knownCols[name] = cols
	}

	for _, s := range doc.Steps {
		if s.Unknown != nil {
			continue
		}
		switch s.Op {
		case ir.OpIdentity, ir.OpFilter, ir.OpAssert, ir.OpSort:
			cols := inputCols(s, knownCols)
			edges = append(edges, passthroughEdges(s, cols)...)
			if len(s.Outputs) > 0 && cols != nil {
				knownCols[s.Outputs[0]] = cols
			}
		case ir.OpSelect:
			edges = append(edges, selectEdges(s)...)
			if len(s.Outputs) > 0 {
				knownCols[s.Outputs[0]] = paramStringSlice(s.Params, "columns")
			}
		case ir.OpRename:
			edges = append(edges, renameEdges(s)...)
			if len(s.Outputs) > 0 {
				if cols := inputCols(s, knownCols); cols != nil {
					knownCols[s.Outputs[0]] = renamedCols(s, cols)
				}
			}
		case ir.OpCompute:
			edges = append(edges, computeEdges(s)...)
		case ir.OpAggregate:
			edges = append(edges, aggregateEdges(s)...)
		case ir.OpTranspose:
			edges = append(edges, transposeEdges(s)...)
		case ir.OpSQLSelect:
			edges = append(edges, sqlSelectEdges(s)...)
		}
	}

	return buildVarGraph(edges)
}

func v(table, col string) string { return "v:" + table + "." + col }

func inputCols(s *ir.Step, knownCols map[string][]string) []string {
	if len(s.Inputs) == 0 {
		return nil
	}
	return knownCols[s.Inputs[0]]
}

func renamedCols(s *ir.Step, cols []string) []string {
	mappingRaw, _ := s.Params["mapping"].([]any)
	rename := map[string]string{}
	for _, m := range mappingRaw {
		entry, ok := m.(map[string]any)
		if !ok {
			continue
		}
		from, _ := entry["from"].(string)
		to, _ := entry["to"].(string)
		rename[from] = to
	}
	out := make([]string, len(cols))
	for i, c := range cols {
		if to, ok := rename[c]; ok {
			out[i] = to
		} else {
			out[i] = c
		}
	}
	return out
}

func passthroughEdges(s *ir.Step, cols []string) []varEdge {
	if len(s.Inputs) == 0 || len(s.Outputs) == 0 || len(cols) == 0 {
		return nil
	}
	in, out := s.Inputs[0], s.Outputs[0]
	var edges []varEdge
	for _, c := range cols {
		edges = append(edges, varEdge{v(in, c), v(out, c)})
	}
	return edges
}

func selectEdges(s *ir.Step) []varEdge {
	if len(s.Inputs) == 0 || len(s.Outputs) == 0 {
		return nil
	}
	in, out := s.Inputs[0], s.Outputs[0]
	cols := paramStringSlice(s.Params, "columns")
	var edges []varEdge
	for _, c := range cols {
		edges = append(edges, varEdge{v(in, c), v(out, c)})
	}
	return edges
}

func renameEdges(s *ir.Step) []varEdge {
	if len(s.Inputs) == 0 || len(s.Outputs) == 0 {
		return nil
	}
	in, out := s.Inputs[0], s.Outputs[0]
	mappingRaw, _ := s.Params["mapping"].([]any)
	var edges []varEdge
	for _, m := range mappingRaw {
		entry, ok := m.(map[string]any)
		if !ok {
			continue
		}
		from, _ := entry["from"].(string)
		to, _ := entry["to"].(string)
		edges = append(edges, varEdge{v(in, from), v(out, to)})
	}
	return edges
}

func computeEdges(s *ir.Step) []varEdge {
	if len(s.Inputs) == 0 || len(s.Outputs) == 0 {
		return nil
	}
	in, out := s.Inputs[0], s.Outputs[0]
	assignmentsRaw, _ := s.Params["assignments"].([]any)
	var edges []varEdge
	for _, a := range assignmentsRaw {
		m, ok := a.(map[string]any)
		if !ok {
			continue
		}
		target, _ := m["target"].(string)
		exprMap, _ := m["expr"].(map[string]any)
		node, err := expr.FromCanon(exprMap)
		if err != nil {
			continue
		}
		for _, src := range collectCols(node) {
			edges = append(edges, varEdge{v(in, src), v(out, target)})
		}
	}
	return edges
}

func aggregateEdges(s *ir.Step) []varEdge {
	if len(s.Inputs) == 0 || len(s.Outputs) == 0 {
		return nil
	}
	in, out := s.Inputs[0], s.Outputs[0]
	classCols := paramStringSlice(s.Params, "class")
	varCols := paramStringSlice(s.Params, "var")
	stats := paramStringSlice(s.Params, "stats")

	var edges []varEdge
	for _, c := range classCols {
		edges = append(edges, varEdge{v(in, c), v(out, c)})
	}
	for _, vc := range varCols {
		for _, st := range stats {
			edges = append(edges, varEdge{v(in, vc), v(out, vc+"_"+st)})
		}
	}
	return edges
}

func transposeEdges(s *ir.Step) []varEdge {
	if len(s.Inputs) == 0 || len(s.Outputs) == 0 {
		return nil
	}
	in, out := s.Inputs[0], s.Outputs[0]
	byCols := paramStringSlice(s.Params, "by")
	varCols := paramStringSlice(s.Params, "var")

	var edges []varEdge
	for _, c := range byCols {
		edges = append(edges, varEdge{v(in, c), v(out, c)})
	}
	for _, vc := range varCols {
		edges = append(edges, varEdge{v(in, vc), v(out, "*")})
	}
	return edges
}

func sqlSelectEdges(s *ir.Step) []varEdge {
	if len(s.Outputs) == 0 {
		return nil
	}
	out := s.Outputs[0]
	inputs := s.Inputs
	selectRaw, _ := s.Params["select"].([]any)

	resolve := func(colRef string) (string, string) {
		if dot := strings.LastIndex(colRef, "."); dot >= 0 {
			return colRef[:dot], colRef[dot+1:]
		}
		if len(inputs) == 1 {
			return inputs[0], colRef
		}
		return "", colRef
	}

	var edges []varEdge
	for _, item := range selectRaw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		isAgg, _ := m["is_agg"].(bool)
		var srcTable, srcCol, outName string
		if isAgg {
			fn, _ := m["agg_func"].(string)
			arg, _ := m["agg_arg"].(string)
			if alias, ok := m["alias"].(string); ok && alias != "" {
				outName = alias
			} else if arg == "*" {
				outName = fn + "_star"
			} else {
				outName = fn + "_" + arg
			}
			if arg != "*" {
				srcTable, srcCol = resolve(arg)
			}
		} else {
			col, _ := m["col"].(string)
			srcTable, srcCol = resolve(col)
			if alias, ok := m["alias"].(string); ok && alias != "" {
				outName = alias
			} else if dot := strings.LastIndex(col, "."); dot >= 0 {
				outName = col[dot+1:]
			} else {
				outName = col
			}
		}
		if srcTable == "" || srcCol == "" {
			continue
		}
		edges = append(edges, varEdge{v(srcTable, srcCol), v(out, outName)})
	}
	return edges
}

func collectCols(n expr.Node) []string {
	var out []string
	var walk func(expr.Node)
	walk = func(n expr.Node) {
		switch node := n.(type) {
		case *expr.Col:
			out = append(out, node.Name)
		case *expr.UnOp:
			walk(node.Arg)
		case *expr.BinOp:
			walk(node.LHS)
			walk(node.RHS)
		case *expr.BoolOp:
			for _, a := range node.Args {
				walk(a)
			}
		case *expr.Call:
			for _, a := range node.Args {
				walk(a)
			}
		}
	}
	walk(n)
	return out
}

func paramStringSlice(params map[string]any, key string) []string {
	raw, _ := params[key].([]any)
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func buildVarGraph(edges []varEdge) *Graph {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].src != edges[j].src {
			return edges[i].src < edges[j].src
		}
		return edges[i].dst < edges[j].dst
	})

	seen := map[string]bool{}
	nodeSet := map[string]bool{}
	var gEdges []Edge
	for _, e := range edges {
		key := e.src + "->" + e.dst
		if seen[key] {
			continue
		}
		seen[key] = true
		gEdges = append(gEdges, Edge{Src: e.src, Dst: e.dst, Kind: "flows_to"})
		nodeSet[e.src] = true
		nodeSet[e.dst] = true
	}

	var nodes []Node
	for id := range nodeSet {
		nodes = append(nodes, Node{ID: id, Kind: "var"})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	return &Graph{Nodes: nodes, Edges: gEdges}
}
