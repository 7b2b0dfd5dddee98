package amend

import "fmt"

var topLevelKeys = map[string]bool{
	"format": true, "version": true, "contract_version": true,
	"policy": true, "ops": true,
}

var opKeys = map[string]bool{
	"op_id": true, "kind": true, "selector": true, "params": true,
}

var validKinds = map[string]bool{
	"set_params": true, "remove_step": true, "add_step": true, "rewire_inputs": true,
}

// opSpec is one request op after schema validation, ready to apply.
type opSpec struct {
	opID     string
	kind     string
	selector map[string]any
	params   map[string]any
}

// validateRequest checks every schema rule spec.md §4.10 lists. It returns
// the ops ready to apply only when refusals is empty; callers must check
// len(refusals) == 0 before using specs.
func validateRequest(req map[string]any) (specs []opSpec, refusals []Refusal) {
	add := func(format string, a ...any) {
		refusals = append(refusals, Refusal{Code: refusalCode, Message: fmt.Sprintf(format, a...)})
	}

	for k := range req {
		if !topLevelKeys[k] {
			add("unknown amendment request field %q", k)
		}
	}

	policy, _ := req["policy"].(map[string]any)
	allowDestructive, _ := policy["allow_destructive"].(bool)

	rawOps, _ := req["ops"].([]any)
	seenIDs := map[string]bool{}

	for i, raw := range rawOps {
		opMap, ok := raw.(map[string]any)
		if !ok {
			add("ops[%d] must be an object", i)
			continue
		}
		for k := range opMap {
			if !opKeys[k] {
				add("ops[%d]: unknown field %q", i, k)
			}
		}

		opID, _ := opMap["op_id"].(string)
		if opID == "" {
			add("ops[%d]: op_id is required", i)
			continue
		}
		if seenIDs[opID] {
			add("op_id %q is not unique within the request", opID)
			continue
		}
		seenIDs[opID] = true

		kind, _ := opMap["kind"].(string)
		if !validKinds[kind] {
			add("op %q: unsupported kind %q", opID, kind)
			continue
		}

		selector, _ := opMap["selector"].(map[string]any)
		if selector == nil {
			selector = map[string]any{}
		}
		params, _ := opMap["params"].(map[string]any)
		if params == nil {
			params = map[string]any{}
		}

		if ok := validateSelector(opID, kind, selector, add); !ok {
			continue
		}

		if (kind == "remove_step" || kind == "rewire_inputs") && !allowDestructive {
			add("op %q: destructive kind %q requires policy.allow_destructive=true", opID, kind)
			continue
		}

		specs = append(specs, opSpec{opID: opID, kind: kind, selector: selector, params: params})
	}

	return specs, refusals
}

func validateSelector(opID, kind string, sel map[string]any, add func(string, ...any)) bool {
	_, hasStepID := sel["step_id"]
	_, hasTransformID := sel["transform_id"]
	_, hasPath := sel["path"]
	_, hasAssertionID := sel["assertion_id"]

	switch kind {
	case "set_params":
		if !hasStepID && !hasTransformID {
			add("op %q: set_params.selector must include step_id or transform_id", opID)
			return false
		}
		pathVal, ok := sel["path"].(string)
		if !hasPath || !ok {
			add("op %q: set_params.selector must include a string path", opID)
			return false
		}
		if _, err := parsePointer(pathVal); err != nil {
			add("op %q: %s", opID, err)
			return false
		}
		return true

	case "rewire_inputs":
		if hasPath {
			add("op %q: rewire_inputs.selector must not include path", opID)
			return false
		}
		if hasAssertionID {
			add("op %q: rewire_inputs.selector must not include assertion_id", opID)
			return false
		}
		if !hasStepID && !hasTransformID {
			add("op %q: rewire_inputs.selector must include step_id or transform_id", opID)
			return false
		}
		return true

	case "remove_step":
		if !hasStepID && !hasTransformID {
			add("op %q: remove_step.selector must include step_id or transform_id", opID)
			return false
		}
		return true

	case "add_step":
		anchors := 0
		for _, k := range []string{"before_step_id", "after_step_id", "index"} {
			if _, ok := sel[k]; ok {
				anchors++
			}
		}
		if anchors != 1 {
			add("op %q: add_step.selector must specify exactly one anchor among before_step_id, after_step_id, index", opID)
			return false
		}
		return true
	}
	return true
}
