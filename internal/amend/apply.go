package amend

import (
	"fmt"

	"github.com/sans-lang/sans/internal/canon"
)

// Apply validates req against doc's schema rules and, if valid, applies
// every op in order to a private copy of doc. doc and req must come from
// canon.DecodeObject (map[string]any/[]any/string/bool/int64 trees, never
// encoding/json's default float64-for-all-numbers decode), the same
// convention internal/bundle's Verify uses, since transformID hashes a
// step's params through canon.Marshal.
func Apply(doc map[string]any, req map[string]any) *Result {
	specs, refusals := validateRequest(req)
	if len(refusals) > 0 {
		return refused(refusals)
	}

	out := deepCopyJSON(doc).(map[string]any)
	var structural, assertions []DiffEntry

	for _, spec := range specs {
		entry, err := applyOp(out, spec)
		if err != nil {
			return refused([]Refusal{{Code: refusalCode, Message: fmt.Sprintf("op %q: %s", spec.opID, err)}})
		}
		if entry == nil {
			continue
		}
		if entry.isAssert {
			assertions = append(assertions, *entry)
		} else {
			structural = append(structural, *entry)
		}
	}

	if structural == nil {
		structural = []DiffEntry{}
	}
	if assertions == nil {
		assertions = []DiffEntry{}
	}

	return &Result{
		Status:         "ok",
		Diagnostics:    map[string]any{"refusals": []Refusal{}},
		DiffStructural: structural,
		DiffAssertions: assertions,
		IROut:          out,
	}
}

func applyOp(doc map[string]any, spec opSpec) (*DiffEntry, error) {
	switch spec.kind {
	case "set_params":
		return applySetParams(doc, spec)
	case "remove_step":
		return applyRemoveStep(doc, spec)
	case "add_step":
		return applyAddStep(doc, spec)
	case "rewire_inputs":
		return applyRewireInputs(doc, spec)
	}
	return nil, fmt.Errorf("unsupported kind %q", spec.kind)
}

func steps(doc map[string]any) []any {
	s, _ := doc["steps"].([]any)
	return s
}

// findStep locates the step matching selector by step_id or (failing that)
// by a recomputed transform_id, returning its index in doc["steps"].
func findStep(doc map[string]any, sel map[string]any) (int, map[string]any, bool) {
	list := steps(doc)
	if wantID, ok := sel["step_id"].(string); ok {
		for i, raw := range list {
			if s, ok := raw.(map[string]any); ok {
				if id, _ := s["id"].(string); id == wantID {
					return i, s, true
				}
			}
		}
		return -1, nil, false
	}
	if wantTxID, ok := sel["transform_id"].(string); ok {
		for i, raw := range list {
			if s, ok := raw.(map[string]any); ok {
				if transformID(s) == wantTxID {
					return i, s, true
				}
			}
		}
	}
	return -1, nil, false
}

// transformID mirrors ir.Step.TransformID()'s formula (sha256 of canonical
// {op, params}) over a step's raw map representation, so a selector's
// transform_id can match a step without round-tripping through the ir
// package's typed Step.
func transformID(step map[string]any) string {
	op, _ := step["op"].(string)
	params, _ := step["params"].(map[string]any)
	if params == nil {
		params = map[string]any{}
	}
	return canon.HashOf(map[string]any{"op": op, "params": params})
}

func isAssertStep(step map[string]any) bool {
	op, _ := step["op"].(string)
	return op == "assert"
}

func applySetParams(doc map[string]any, spec opSpec) (*DiffEntry, error) {
	_, step, ok := findStep(doc, spec.selector)
	if !ok {
		return nil, fmt.Errorf("no step matches selector")
	}
	path, _ := spec.selector["path"].(string)
	tokens, err := parsePointer(path)
	if err != nil {
		return nil, err
	}

	params, ok := step["params"].(map[string]any)
	if !ok {
		params = map[string]any{}
		step["params"] = params
	}

	newValue := spec.params["value"]

	fullTokens := append([]string{"params"}, tokens...)
	prior, existed := getPointer(step, fullTokens)
	if existed {
		if _, wasList := prior.([]any); wasList {
			if _, isList := newValue.([]any); !isList {
				return nil, fmt.Errorf("path %q currently holds a list; refusing to replace it with a non-list value", path)
			}
		}
	}

	if _, ok := setPointer(step, fullTokens, newValue); !ok {
		return nil, fmt.Errorf("path %q does not resolve within step params", path)
	}

	stepID, _ := step["id"].(string)
	return &DiffEntry{OpID: spec.opID, Kind: "set_params", StepID: stepID, Path: path, isAssert: isAssertStep(step)}, nil
}

func applyRemoveStep(doc map[string]any, spec opSpec) (*DiffEntry, error) {
	idx, step, ok := findStep(doc, spec.selector)
	if !ok {
		return nil, fmt.Errorf("no step matches selector")
	}
	list := steps(doc)
	doc["steps"] = append(append([]any{}, list[:idx]...), list[idx+1:]...)

	stepID, _ := step["id"].(string)
	return &DiffEntry{OpID: spec.opID, Kind: "remove_step", StepID: stepID, Detail: "removed", isAssert: isAssertStep(step)}, nil
}

func applyRewireInputs(doc map[string]any, spec opSpec) (*DiffEntry, error) {
	_, step, ok := findStep(doc, spec.selector)
	if !ok {
		return nil, fmt.Errorf("no step matches selector")
	}
	rawInputs, _ := spec.params["inputs"].([]any)
	inputs := make([]any, len(rawInputs))
	for i, in := range rawInputs {
		s, ok := in.(string)
		if !ok {
			return nil, fmt.Errorf("params.inputs must be a list of table names")
		}
		inputs[i] = s
	}
	step["inputs"] = inputs

	stepID, _ := step["id"].(string)
	return &DiffEntry{OpID: spec.opID, Kind: "rewire_inputs", StepID: stepID, Detail: "inputs rewired", isAssert: isAssertStep(step)}, nil
}

func applyAddStep(doc map[string]any, spec opSpec) (*DiffEntry, error) {
	newStep, ok := spec.params["step"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("params.step is required and must be an object")
	}
	newStepID, _ := newStep["id"].(string)

	list := steps(doc)
	insertAt := len(list)

	if before, ok := spec.selector["before_step_id"].(string); ok {
		for i, raw := range list {
			if s, ok := raw.(map[string]any); ok {
				if id, _ := s["id"].(string); id == before {
					insertAt = i
					break
				}
			}
		}
	} else if after, ok := spec.selector["after_step_id"].(string); ok {
		for i, raw := range list {
			if s, ok := raw.(map[string]any); ok {
				if id, _ := s["id"].(string); id == after {
					insertAt = i + 1
					break
				}
			}
		}
	} else if idx, ok := asInt(spec.selector["index"]); ok {
		if idx < 0 || idx > len(list) {
			return nil, fmt.Errorf("index %d out of range", idx)
		}
		insertAt = idx
	}

	out := make([]any, 0, len(list)+1)
	out = append(out, list[:insertAt]...)
	out = append(out, newStep)
	out = append(out, list[insertAt:]...)
	doc["steps"] = out

	return &DiffEntry{OpID: spec.opID, Kind: "add_step", StepID: newStepID, Detail: fmt.Sprintf("inserted at index %d", insertAt), isAssert: isAssertStep(newStep)}, nil
}

func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	}
	return 0, false
}
