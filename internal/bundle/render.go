package bundle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sans-lang/sans/internal/expr"
	"github.com/sans-lang/sans/internal/ir"
)

// RenderExpanded renders doc's steps as the canonical human-readable form
// stored in expanded.sans. It is a pure function of the IR (no source
// positions, no original token spelling), so two lowerings of
// textually-different-but-semantically-equal scripts that happen to share
// wiring+params render identically — which is the only byte-stability
// requirement spec.md §8 places on this artifact (invariant 5, same script
// twice produces byte-identical expanded.sans). One line per step, in
// declared order, naming op/inputs/outputs/params explicitly rather than
// attempting to reconstruct proc/data-step concrete syntax.
func RenderExpanded(doc *ir.IRDoc) string {
	var sb strings.Builder
	sb.WriteString("# sans 0.1 (expanded)\n")

	names := sortedDatasourceNames(doc)
	for _, name := range names {
		d := doc.Datasources[name]
		switch d.Kind {
		case "inline_csv":
			fmt.Fprintf(&sb, "datasource %s = inline_csv(sha256=%s)\n", name, d.InlineSHA256)
		default:
			fmt.Fprintf(&sb, "datasource %s = %s(%q)\n", name, d.Kind, d.Path)
		}
	}

	for _, s := range doc.Steps {
		if s.Unknown != nil {
			fmt.Fprintf(&sb, "# unknown %s: %s\n", s.Unknown.Code, s.Unknown.Message)
			continue
		}
		fmt.Fprintf(&sb, "step %s %s(%s) -> (%s) %s\n",
			s.ID, s.Op, strings.Join(s.Inputs, ","), strings.Join(s.Outputs, ","),
			renderParams(s.Op, s.Params))
	}
	return sb.String()
}

func sortedDatasourceNames(doc *ir.IRDoc) []string {
	names := make([]string, 0, len(doc.Datasources))
	for n := range doc.Datasources {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func renderParams(op ir.Op, params map[string]any) string {
	switch op {
	case ir.OpCompute:
		assigns, _ := params["assignments"].([]any)
		var parts []string
		for _, a := range assigns {
			m, ok := a.(map[string]any)
			if !ok {
				continue
			}
			target, _ := m["target"].(string)
			exprMap, _ := m["expr"].(map[string]any)
			parts = append(parts, fmt.Sprintf("%s = %s", target, printExprMap(exprMap)))
		}
		return "{ " + strings.Join(parts, "; ") + " }"
	case ir.OpFilter, ir.OpAssert:
		exprMap, _ := params["expr"].(map[string]any)
		return "{ " + printExprMap(exprMap) + " }"
	case ir.OpSelect:
		cols := anyStrings(params["columns"])
		return "{ keep " + strings.Join(cols, ",") + " }"
	case ir.OpRename:
		mapping, _ := params["mapping"].([]any)
		var parts []string
		for _, r := range mapping {
			m, ok := r.(map[string]any)
			if !ok {
				continue
			}
			from, _ := m["from"].(string)
			to, _ := m["to"].(string)
			parts = append(parts, fmt.Sprintf("%s->%s", from, to))
		}
		return "{ rename " + strings.Join(parts, ",") + " }"
	case ir.OpSort:
		byRaw, _ := params["by"].([]any)
		var parts []string
		for _, b := range byRaw {
			m, ok := b.(map[string]any)
			if !ok {
				continue
			}
			col, _ := m["col"].(string)
			desc, _ := m["desc"].(bool)
			if desc {
				parts = append(parts, "descending "+col)
			} else {
				parts = append(parts, col)
			}
		}
		return "{ by " + strings.Join(parts, ",") + " }"
	case ir.OpAggregate:
		class := anyStrings(params["class"])
		vars := anyStrings(params["var"])
		stats := anyStrings(params["stats"])
		return fmt.Sprintf("{ class %s; var %s; stats %s }", strings.Join(class, ","), strings.Join(vars, ","), strings.Join(stats, ","))
	case ir.OpTranspose:
		by := anyStrings(params["by"])
		id, _ := params["id"].(string)
		vars := anyStrings(params["var"])
		return fmt.Sprintf("{ by %s; id %s; var %s }", strings.Join(by, ","), id, strings.Join(vars, ","))
	case ir.OpSave:
		path, _ := params["path"].(string)
		format, _ := params["format"].(string)
		return fmt.Sprintf("{ path=%q format=%s }", path, format)
	case ir.OpLetScalar:
		name, _ := params["name"].(string)
		exprMap, _ := params["expr"].(map[string]any)
		return fmt.Sprintf("{ %s = %s }", name, printExprMap(exprMap))
	case ir.OpFormat:
		name, _ := params["name"].(string)
		return fmt.Sprintf("{ name=%s }", name)
	default:
		return "{}"
	}
}

func printExprMap(m map[string]any) string {
	if m == nil {
		return ""
	}
	node, err := expr.FromCanon(m)
	if err != nil {
		return "<?>"
	}
	return expr.Print(node)
}

func anyStrings(v any) []string {
	raw, _ := v.([]any)
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
