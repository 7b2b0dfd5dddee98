package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sans-lang/sans/internal/diag"
	"github.com/sans-lang/sans/internal/ir"
	"github.com/sans-lang/sans/internal/value"
)

func TestExecDataStep_BareDoRunsOnce(t *testing.T) {
	e := New(nil)
	e.Bind("in", tbl([]string{"a"}, []value.Value{value.Int(1)}))
	step := &ir.Step{
		ID: "s1", Op: ir.OpDataStep, Inputs: []string{"in"}, Outputs: []string{"out"},
		Params: map[string]any{
			"var": "_", "lo": int64(1), "hi": int64(1), "step": int64(1),
			"body": []any{
				map[string]any{"kind": "assign", "target": "a", "expr": mustParseExpr(t, "a + 1")},
			},
		},
	}
	derr := e.Run(&ir.IRDoc{Steps: []*ir.Step{step}})
	require.Nil(t, derr)
	out := e.Tables["out"]
	require.Len(t, out.Rows, 1)
	idx := out.ColIndex("a")
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "2", out.Rows[0][idx].Text())
}

func TestExecDataStep_LoopVarBecomesOutputColumn(t *testing.T) {
	e := New(nil)
	e.Bind("in", tbl([]string{"a"}, []value.Value{value.Int(10)}))
	step := &ir.Step{
		ID: "s1", Op: ir.OpDataStep, Inputs: []string{"in"}, Outputs: []string{"out"},
		Params: map[string]any{
			"var": "i", "lo": int64(1), "hi": int64(5), "step": int64(2),
			"body": []any{
				map[string]any{"kind": "output"},
			},
		},
	}
	derr := e.Run(&ir.IRDoc{Steps: []*ir.Step{step}})
	require.Nil(t, derr)
	out := e.Tables["out"]
	idx := out.ColIndex("i")
	require.GreaterOrEqual(t, idx, 0)
	require.Len(t, out.Rows, 3)
	var got []string
	for _, row := range out.Rows {
		got = append(got, row[idx].Text())
	}
	assert.Equal(t, []string{"1", "3", "5"}, got)
}

func TestExecDataStep_NoOutputEmitsOneFinalRow(t *testing.T) {
	e := New(nil)
	e.Bind("in", tbl([]string{"a"}, []value.Value{value.Int(0)}))
	step := &ir.Step{
		ID: "s1", Op: ir.OpDataStep, Inputs: []string{"in"}, Outputs: []string{"out"},
		Params: map[string]any{
			"var": "i", "lo": int64(1), "hi": int64(3), "step": int64(1),
			"body": []any{
				map[string]any{"kind": "assign", "target": "a", "expr": mustParseExpr(t, "a + i")},
			},
		},
	}
	derr := e.Run(&ir.IRDoc{Steps: []*ir.Step{step}})
	require.Nil(t, derr)
	out := e.Tables["out"]
	require.Len(t, out.Rows, 1)
	idx := out.ColIndex("a")
	assert.Equal(t, "6", out.Rows[0][idx].Text())
	iidx := out.ColIndex("i")
	assert.Equal(t, "3", out.Rows[0][iidx].Text())
}

func TestExecDataStep_NestedLoopsMultiplyOutputRows(t *testing.T) {
	e := New(nil)
	e.Bind("in", tbl([]string{"a"}, []value.Value{value.Int(0)}))
	step := &ir.Step{
		ID: "s1", Op: ir.OpDataStep, Inputs: []string{"in"}, Outputs: []string{"out"},
		Params: map[string]any{
			"var": "i", "lo": int64(1), "hi": int64(2), "step": int64(1),
			"body": []any{
				map[string]any{
					"kind": "loop", "var": "j", "lo": int64(1), "hi": int64(2), "step": int64(1),
					"body": []any{map[string]any{"kind": "output"}},
				},
			},
		},
	}
	derr := e.Run(&ir.IRDoc{Steps: []*ir.Step{step}})
	require.Nil(t, derr)
	out := e.Tables["out"]
	require.Len(t, out.Rows, 4)
	iidx, jidx := out.ColIndex("i"), out.ColIndex("j")
	var pairs [][2]string
	for _, row := range out.Rows {
		pairs = append(pairs, [2]string{row[iidx].Text(), row[jidx].Text()})
	}
	assert.Equal(t, [][2]string{{"1", "1"}, {"1", "2"}, {"2", "1"}, {"2", "2"}}, pairs)
}

func TestExecDataStep_LoopLimitExceeded(t *testing.T) {
	e := New(nil)
	e.LoopLimit = 5
	e.Bind("in", tbl([]string{"a"}, []value.Value{value.Int(0)}))
	step := &ir.Step{
		ID: "s1", Op: ir.OpDataStep, Inputs: []string{"in"}, Outputs: []string{"out"},
		Params: map[string]any{
			"var": "i", "lo": int64(1), "hi": int64(100), "step": int64(1),
			"body": []any{},
		},
	}
	derr := e.Run(&ir.IRDoc{Steps: []*ir.Step{step}})
	require.NotNil(t, derr)
	assert.Equal(t, diag.ESansRuntimeLoopLimit, derr.Code)
}

func TestExecDataStep_NestingDepthExceeded(t *testing.T) {
	e := New(nil)
	e.NestingDepthCap = 2
	e.Bind("in", tbl([]string{"a"}, []value.Value{value.Int(0)}))
	innermost := map[string]any{
		"kind": "loop", "var": "_", "lo": int64(1), "hi": int64(1), "step": int64(1),
		"body": []any{map[string]any{"kind": "output"}},
	}
	middle := map[string]any{
		"kind": "loop", "var": "_", "lo": int64(1), "hi": int64(1), "step": int64(1),
		"body": []any{innermost},
	}
	step := &ir.Step{
		ID: "s1", Op: ir.OpDataStep, Inputs: []string{"in"}, Outputs: []string{"out"},
		Params: map[string]any{
			"var": "_", "lo": int64(1), "hi": int64(1), "step": int64(1),
			"body": []any{middle},
		},
	}
	derr := e.Run(&ir.IRDoc{Steps: []*ir.Step{step}})
	require.NotNil(t, derr)
	assert.Equal(t, diag.ESansRuntimeControlDepth, derr.Code)
}

func TestExecDataStep_DefaultCapsMatchGoldenValues(t *testing.T) {
	e := New(nil)
	assert.Equal(t, 0, e.LoopLimit)
	assert.Equal(t, 0, e.NestingDepthCap)
	assert.Equal(t, 1000000, defaultLoopLimit)
	assert.Equal(t, 50, defaultNestingDepthCap)
}
