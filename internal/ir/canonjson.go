package ir

import (
	"fmt"
	"sort"

	"github.com/sans-lang/sans/internal/diag"
	"github.com/sans-lang/sans/internal/value"
)

// ToCanonical renders the persisted sans.ir shape described in spec.md §6:
// {version, datasources, steps, tables?, table_facts?}. Execution-derived
// fields (transform_id, transform_class_id, step_id, loc) are never part of
// this shape.
func (d *IRDoc) ToCanonical() map[string]any {
	steps := make([]any, len(d.Steps))
	for i, s := range d.Steps {
		steps[i] = stepToCanonical(s)
	}

	out := map[string]any{
		"version":     d.Version,
		"datasources": datasourcesToCanonical(d.Datasources),
		"steps":       steps,
	}
	if len(d.Tables) > 0 {
		names := make([]string, 0, len(d.Tables))
		for t := range d.Tables {
			names = append(names, t)
		}
		sort.Strings(names)
		out["tables"] = stringsToAny(names)
	}
	if len(d.TableFacts) > 0 {
		facts := map[string]any{}
		for name, tf := range d.TableFacts {
			facts[name] = tableFactToCanonical(tf)
		}
		out["table_facts"] = facts
	}
	return out
}

// FromCanonical decodes the persisted sans.ir shape (as produced by a
// canon.DecodeObject-style JSON decode, so ints arrive as int64) back into a
// typed IRDoc. It is the dual of ToCanonical and used only by CLI entry
// points that read a standalone sans.ir file (run-ir, ir-validate)
// rather than re-running the front end.
func FromCanonical(m map[string]any) (*IRDoc, error) {
	doc := NewDoc()
	if v, ok := m["version"].(string); ok {
		doc.Version = v
	}

	dsRaw, _ := m["datasources"].(map[string]any)
	for name, raw := range dsRaw {
		dm, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("ir: datasource %q is not an object", name)
		}
		decl, err := datasourceFromCanonical(dm)
		if err != nil {
			return nil, fmt.Errorf("ir: datasource %q: %w", name, err)
		}
		doc.Datasources[name] = decl
	}

	if tablesRaw, ok := m["tables"].([]any); ok {
		for _, t := range tablesRaw {
			if s, ok := t.(string); ok {
				doc.Tables[s] = true
			}
		}
	}

	if factsRaw, ok := m["table_facts"].(map[string]any); ok {
		for name, raw := range factsRaw {
			fm, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("ir: table_facts %q is not an object", name)
			}
			known, _ := fm["known"].(bool)
			cols, err := columnsFromCanonical(fm["columns"])
			if err != nil {
				return nil, fmt.Errorf("ir: table_facts %q: %w", name, err)
			}
			doc.TableFacts[name] = TableFact{Known: known, Columns: cols}
		}
	}

	stepsRaw, _ := m["steps"].([]any)
	doc.Steps = make([]*Step, len(stepsRaw))
	for i, raw := range stepsRaw {
		sm, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("ir: step %d is not an object", i)
		}
		step, err := stepFromCanonical(sm)
		if err != nil {
			return nil, fmt.Errorf("ir: step %d: %w", i, err)
		}
		doc.Steps[i] = step
	}

	return doc, nil
}

func stepFromCanonical(m map[string]any) (*Step, error) {
	id, _ := m["id"].(string)
	op, _ := m["op"].(string)
	if op == "unknown_block" {
		um, _ := m["unknown"].(map[string]any)
		code, _ := um["code"].(string)
		msg, _ := um["message"].(string)
		sev, _ := um["severity"].(string)
		return &Step{ID: id, Unknown: &UnknownBlockStep{Code: diag.Code(code), Message: msg, Severity: sev}}, nil
	}
	params, _ := m["params"].(map[string]any)
	return &Step{
		ID:      id,
		Op:      Op(op),
		Inputs:  stringsFromAny(m["inputs"]),
		Outputs: stringsFromAny(m["outputs"]),
		Params:  params,
	}, nil
}

func datasourceFromCanonical(m map[string]any) (DatasourceDecl, error) {
	kind, _ := m["kind"].(string)
	path, _ := m["path"].(string)
	inlineText, _ := m["inline_text"].(string)
	inlineSHA, _ := m["inline_sha256"].(string)
	cols, err := columnsFromCanonical(m["columns"])
	if err != nil {
		return DatasourceDecl{}, err
	}
	return DatasourceDecl{Kind: kind, Path: path, InlineText: inlineText, InlineSHA256: inlineSHA, Columns: cols}, nil
}

func columnsFromCanonical(raw any) ([]ColumnFact, error) {
	list, _ := raw.([]any)
	out := make([]ColumnFact, 0, len(list))
	for _, item := range list {
		cm, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("column entry is not an object")
		}
		name, _ := cm["name"].(string)
		typ, _ := cm["type"].(string)
		out = append(out, ColumnFact{Name: name, Type: value.Type(typ)})
	}
	return out, nil
}

func stringsFromAny(raw any) []string {
	list, _ := raw.([]any)
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func stepToCanonical(s *Step) map[string]any {
	if s.Unknown != nil {
		return map[string]any{
			"id":       s.ID,
			"op":       "unknown_block",
			"inputs":   []any{},
			"outputs":  []any{},
			"params":   map[string]any{},
			"unknown":  map[string]any{"code": string(s.Unknown.Code), "message": s.Unknown.Message, "severity": s.Unknown.Severity},
		}
	}
	return map[string]any{
		"id":      s.ID,
		"op":      string(s.Op),
		"inputs":  stringsToAny(s.Inputs),
		"outputs": stringsToAny(s.Outputs),
		"params":  paramsOrEmpty(s.Params),
	}
}

func datasourcesToCanonical(ds map[string]DatasourceDecl) map[string]any {
	out := map[string]any{}
	for name, d := range ds {
		m := map[string]any{"kind": d.Kind}
		if d.Path != "" {
			m["path"] = d.Path
		}
		if d.InlineText != "" {
			m["inline_text"] = d.InlineText
		}
		if d.InlineSHA256 != "" {
			m["inline_sha256"] = d.InlineSHA256
		}
		if len(d.Columns) > 0 {
			m["columns"] = columnsToCanonical(d.Columns)
		}
		out[name] = m
	}
	return out
}

func tableFactToCanonical(tf TableFact) map[string]any {
	return map[string]any{
		"known":   tf.Known,
		"columns": columnsToCanonical(tf.Columns),
	}
}

func columnsToCanonical(cols []ColumnFact) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = map[string]any{"name": c.Name, "type": string(c.Type)}
	}
	return out
}
