package amend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sans-lang/sans/internal/canon"
)

func baseIR() map[string]any {
	return map[string]any{
		"version":     "0.1",
		"datasources": map[string]any{"lb": map[string]any{"kind": "csv", "path": "lb.csv"}},
		"steps": []any{
			map[string]any{
				"id": "ds:lb", "op": "datasource",
				"inputs": []any{}, "outputs": []any{"__datasource__lb"},
				"params": map[string]any{"name": "lb", "kind": "csv", "path": "lb.csv"},
			},
			map[string]any{
				"id": "out:t1", "op": "identity",
				"inputs": []any{"__datasource__lb"}, "outputs": []any{"t1"},
				"params": map[string]any{},
			},
			map[string]any{
				"id": "out:t2", "op": "compute",
				"inputs": []any{"t1"}, "outputs": []any{"t2"},
				"params": map[string]any{"assignments": []any{
					map[string]any{"target": "x", "expr": map[string]any{"type": "lit", "value": int64(2)}},
				}},
			},
			map[string]any{
				"id": "out:t2:save", "op": "save",
				"inputs": []any{"t2"}, "outputs": []any{},
				"params": map[string]any{"path": "t2.csv"},
			},
		},
	}
}

func firstRefusalCode(t *testing.T, r *Result) string {
	t.Helper()
	refusals, ok := r.Diagnostics["refusals"].([]Refusal)
	require.True(t, ok)
	require.NotEmpty(t, refusals)
	return refusals[0].Code
}

func TestApplySetParamsSucceeds(t *testing.T) {
	req := map[string]any{
		"format": "sans.amendment_request", "version": int64(1), "contract_version": "0.1",
		"policy": map[string]any{},
		"ops": []any{
			map[string]any{
				"op_id": "op1", "kind": "set_params",
				"selector": map[string]any{"step_id": "out:t2", "path": "/assignments/0/expr/value"},
				"params":   map[string]any{"value": int64(7)},
			},
		},
	}

	result := Apply(baseIR(), req)
	require.Equal(t, "ok", result.Status)
	require.NotNil(t, result.IROut)

	steps := result.IROut["steps"].([]any)
	step := steps[2].(map[string]any)
	params := step["params"].(map[string]any)
	assigns := params["assignments"].([]any)
	assign0 := assigns[0].(map[string]any)
	expr := assign0["expr"].(map[string]any)
	assert.Equal(t, int64(7), expr["value"])
}

func TestApplyRejectsScalarForListPath(t *testing.T) {
	req := map[string]any{
		"format": "sans.amendment_request", "version": int64(1), "contract_version": "0.1",
		"policy": map[string]any{},
		"ops": []any{
			map[string]any{
				"op_id": "op1", "kind": "set_params",
				"selector": map[string]any{"step_id": "out:t2", "path": "/assignments"},
				"params":   map[string]any{"value": "not-a-list"},
			},
		},
	}

	result := Apply(baseIR(), req)
	assert.Equal(t, "refused", result.Status)
	assert.Nil(t, result.IROut)
	assert.Equal(t, refusalCode, firstRefusalCode(t, result))
}

func TestUnknownRequestFieldRefused(t *testing.T) {
	req := map[string]any{
		"format": "sans.amendment_request", "version": int64(1), "contract_version": "0.1",
		"policy": map[string]any{}, "ops": []any{}, "unknown": int64(1),
	}
	result := Apply(baseIR(), req)
	assert.Equal(t, "refused", result.Status)
	assert.Equal(t, refusalCode, firstRefusalCode(t, result))
}

func TestSetParamsMissingPathRefused(t *testing.T) {
	req := map[string]any{
		"format": "sans.amendment_request", "version": int64(1), "contract_version": "0.1",
		"policy": map[string]any{},
		"ops": []any{
			map[string]any{
				"op_id": "op1", "kind": "set_params",
				"selector": map[string]any{"step_id": "out:t1"},
				"params":   map[string]any{"value": int64(2)},
			},
		},
	}
	result := Apply(baseIR(), req)
	assert.Equal(t, "refused", result.Status)
	assert.Equal(t, refusalCode, firstRefusalCode(t, result))
}

func TestDuplicateOpIDRefused(t *testing.T) {
	req := map[string]any{
		"format": "sans.amendment_request", "version": int64(1), "contract_version": "0.1",
		"policy": map[string]any{"allow_destructive": true},
		"ops": []any{
			map[string]any{"op_id": "dup", "kind": "remove_step", "selector": map[string]any{"step_id": "out:t1"}, "params": map[string]any{}},
			map[string]any{"op_id": "dup", "kind": "remove_step", "selector": map[string]any{"step_id": "out:t2"}, "params": map[string]any{}},
		},
	}
	result := Apply(baseIR(), req)
	assert.Equal(t, "refused", result.Status)
	assert.Equal(t, refusalCode, firstRefusalCode(t, result))
}

func TestAddStepAnchorXorViolationRefused(t *testing.T) {
	req := map[string]any{
		"format": "sans.amendment_request", "version": int64(1), "contract_version": "0.1",
		"policy": map[string]any{},
		"ops": []any{
			map[string]any{
				"op_id": "op1", "kind": "add_step",
				"selector": map[string]any{"before_step_id": "out:t1", "index": int64(0)},
				"params": map[string]any{"step": map[string]any{
					"id": "new:1", "op": "identity", "inputs": []any{"t1"}, "outputs": []any{"t2"}, "params": map[string]any{},
				}},
			},
		},
	}
	result := Apply(baseIR(), req)
	assert.Equal(t, "refused", result.Status)
	assert.Equal(t, refusalCode, firstRefusalCode(t, result))
}

func TestSelectorPathInvalidEscapeRefused(t *testing.T) {
	req := map[string]any{
		"format": "sans.amendment_request", "version": int64(1), "contract_version": "0.1",
		"policy": map[string]any{},
		"ops": []any{
			map[string]any{
				"op_id": "op1", "kind": "set_params",
				"selector": map[string]any{"step_id": "out:t1", "path": "/~2"},
				"params":   map[string]any{"value": int64(2)},
			},
		},
	}
	result := Apply(baseIR(), req)
	assert.Equal(t, "refused", result.Status)
	assert.Equal(t, refusalCode, firstRefusalCode(t, result))
}

func TestSetParamsSelectorTableAloneRefused(t *testing.T) {
	req := map[string]any{
		"format": "sans.amendment_request", "version": int64(1), "contract_version": "0.1",
		"policy": map[string]any{},
		"ops": []any{
			map[string]any{
				"op_id": "op1", "kind": "set_params",
				"selector": map[string]any{"table": "t1", "path": "/"},
				"params":   map[string]any{"value": map[string]any{}},
			},
		},
	}
	result := Apply(baseIR(), req)
	assert.Equal(t, "refused", result.Status)
	assert.Equal(t, refusalCode, firstRefusalCode(t, result))
}

func TestRewireInputsSelectorPathRefused(t *testing.T) {
	req := map[string]any{
		"format": "sans.amendment_request", "version": int64(1), "contract_version": "0.1",
		"policy": map[string]any{"allow_destructive": true},
		"ops": []any{
			map[string]any{
				"op_id": "op1", "kind": "rewire_inputs",
				"selector": map[string]any{"step_id": "out:t1", "path": "/x"},
				"params":   map[string]any{"inputs": []any{"t1"}},
			},
		},
	}
	result := Apply(baseIR(), req)
	assert.Equal(t, "refused", result.Status)
	assert.Equal(t, refusalCode, firstRefusalCode(t, result))
}

func TestRewireInputsSelectorAssertionIDRefused(t *testing.T) {
	req := map[string]any{
		"format": "sans.amendment_request", "version": int64(1), "contract_version": "0.1",
		"policy": map[string]any{"allow_destructive": true},
		"ops": []any{
			map[string]any{
				"op_id": "op1", "kind": "rewire_inputs",
				"selector": map[string]any{"step_id": "out:t1", "assertion_id": "a1"},
				"params":   map[string]any{"inputs": []any{"t1"}},
			},
		},
	}
	result := Apply(baseIR(), req)
	assert.Equal(t, "refused", result.Status)
	assert.Equal(t, refusalCode, firstRefusalCode(t, result))
}

func TestRemoveStepSelectorTableOnlyRefused(t *testing.T) {
	req := map[string]any{
		"format": "sans.amendment_request", "version": int64(1), "contract_version": "0.1",
		"policy": map[string]any{"allow_destructive": true},
		"ops": []any{
			map[string]any{
				"op_id": "op1", "kind": "remove_step",
				"selector": map[string]any{"table": "t1"},
				"params":   map[string]any{},
			},
		},
	}
	result := Apply(baseIR(), req)
	assert.Equal(t, "refused", result.Status)
	assert.Equal(t, refusalCode, firstRefusalCode(t, result))
}

func TestRemoveStepWithoutPolicyRefused(t *testing.T) {
	req := map[string]any{
		"format": "sans.amendment_request", "version": int64(1), "contract_version": "0.1",
		"policy": map[string]any{},
		"ops": []any{
			map[string]any{
				"op_id": "op1", "kind": "remove_step",
				"selector": map[string]any{"step_id": "out:t1"},
				"params":   map[string]any{},
			},
		},
	}
	result := Apply(baseIR(), req)
	assert.Equal(t, "refused", result.Status)
}

func TestRemoveStepSucceedsWithPolicy(t *testing.T) {
	req := map[string]any{
		"format": "sans.amendment_request", "version": int64(1), "contract_version": "0.1",
		"policy": map[string]any{"allow_destructive": true},
		"ops": []any{
			map[string]any{
				"op_id": "op1", "kind": "remove_step",
				"selector": map[string]any{"step_id": "out:t1"},
				"params":   map[string]any{},
			},
		},
	}
	result := Apply(baseIR(), req)
	require.Equal(t, "ok", result.Status)
	steps := result.IROut["steps"].([]any)
	assert.Len(t, steps, 3)
	require.Len(t, result.DiffStructural, 1)
	assert.Equal(t, "remove_step", result.DiffStructural[0].Kind)
}

func TestAddStepByIndex(t *testing.T) {
	req := map[string]any{
		"format": "sans.amendment_request", "version": int64(1), "contract_version": "0.1",
		"policy": map[string]any{},
		"ops": []any{
			map[string]any{
				"op_id": "op1", "kind": "add_step",
				"selector": map[string]any{"index": int64(0)},
				"params": map[string]any{"step": map[string]any{
					"id": "new:0", "op": "identity", "inputs": []any{}, "outputs": []any{}, "params": map[string]any{},
				}},
			},
		},
	}
	result := Apply(baseIR(), req)
	require.Equal(t, "ok", result.Status)
	steps := result.IROut["steps"].([]any)
	require.Len(t, steps, 5)
	first := steps[0].(map[string]any)
	assert.Equal(t, "new:0", first["id"])
}

func TestApplySetParamsByTransformID(t *testing.T) {
	doc := baseIR()
	steps := doc["steps"].([]any)
	identityStep := steps[1].(map[string]any)
	txID := transformID(identityStep)

	// Round-trip the IR and request through canon.DecodeObject, the same
	// decode path cmd/sans uses for plan.ir.json and amendment request
	// files, to confirm transform_id selectors survive real JSON bytes.
	reqBytes := canon.Marshal(map[string]any{
		"format": "sans.amendment_request", "version": int64(1), "contract_version": "0.1",
		"policy": map[string]any{},
		"ops": []any{
			map[string]any{
				"op_id": "op1", "kind": "set_params",
				"selector": map[string]any{"transform_id": txID, "path": "/note"},
				"params":   map[string]any{"value": "patched"},
			},
		},
	})
	req, err := canon.DecodeObject(reqBytes)
	require.NoError(t, err)

	docBytes := canon.Marshal(doc)
	decodedDoc, err := canon.DecodeObject(docBytes)
	require.NoError(t, err)

	result := Apply(decodedDoc, req)
	require.Equal(t, "ok", result.Status)
	gotSteps := result.IROut["steps"].([]any)
	gotStep := gotSteps[1].(map[string]any)
	gotParams := gotStep["params"].(map[string]any)
	assert.Equal(t, "patched", gotParams["note"])
}

func TestRewireInputsSucceeds(t *testing.T) {
	req := map[string]any{
		"format": "sans.amendment_request", "version": int64(1), "contract_version": "0.1",
		"policy": map[string]any{"allow_destructive": true},
		"ops": []any{
			map[string]any{
				"op_id": "op1", "kind": "rewire_inputs",
				"selector": map[string]any{"step_id": "out:t2"},
				"params":   map[string]any{"inputs": []any{"other"}},
			},
		},
	}
	result := Apply(baseIR(), req)
	require.Equal(t, "ok", result.Status)
	steps := result.IROut["steps"].([]any)
	step := steps[2].(map[string]any)
	assert.Equal(t, []any{"other"}, step["inputs"])
}
