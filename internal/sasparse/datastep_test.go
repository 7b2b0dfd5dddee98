package sasparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sans-lang/sans/internal/diag"
	"github.com/sans-lang/sans/internal/ir"
	"github.com/sans-lang/sans/internal/stmtlex"
)

func lowerBlock(t *testing.T, src string) ([]*ir.Step, *diag.Bag) {
	t.Helper()
	stmts := stmtlex.Segment("test.sans", src)
	blocks := stmtlex.GroupBlocks(stmts)
	require.Len(t, blocks, 1)
	return LowerDataStep("test.sans", blocks[0], &IDGen{})
}

func TestLowerDataStep_BareDoRunsOnce(t *testing.T) {
	steps, bag := lowerBlock(t, `
		data out; set in;
			do;
				x = x + 1;
			end;
		run;
	`)
	require.Empty(t, bag.Items)
	require.Len(t, steps, 2)
	step := steps[1]
	assert.Equal(t, ir.OpDataStep, step.Op)
	assert.Equal(t, "_", step.Params["var"])
	assert.EqualValues(t, 1, step.Params["lo"])
	assert.EqualValues(t, 1, step.Params["hi"])
	assert.EqualValues(t, 1, step.Params["step"])
	body, ok := step.Params["body"].([]any)
	require.True(t, ok)
	require.Len(t, body, 1)
	item := body[0].(map[string]any)
	assert.Equal(t, "assign", item["kind"])
	assert.Equal(t, "x", item["target"])
}

func TestLowerDataStep_BoundedLoopWithStep(t *testing.T) {
	steps, bag := lowerBlock(t, `
		data out; set in;
			do i = 1 to 5 by 2;
				output;
			end;
		run;
	`)
	require.Empty(t, bag.Items)
	require.Len(t, steps, 2)
	step := steps[1]
	assert.Equal(t, "i", step.Params["var"])
	assert.EqualValues(t, 1, step.Params["lo"])
	assert.EqualValues(t, 5, step.Params["hi"])
	assert.EqualValues(t, 2, step.Params["step"])
	body := step.Params["body"].([]any)
	require.Len(t, body, 1)
	assert.Equal(t, "output", body[0].(map[string]any)["kind"])
}

func TestLowerDataStep_NestedLoops(t *testing.T) {
	steps, bag := lowerBlock(t, `
		data out; set in;
			do i = 1 to 2;
				do j = 1 to 2;
					output;
				end;
			end;
		run;
	`)
	require.Empty(t, bag.Items)
	require.Len(t, steps, 2)
	outer := steps[1].Params["body"].([]any)
	require.Len(t, outer, 1)
	inner := outer[0].(map[string]any)
	assert.Equal(t, "loop", inner["kind"])
	assert.Equal(t, "j", inner["var"])
	innerBody := inner["body"].([]any)
	require.Len(t, innerBody, 1)
	assert.Equal(t, "output", innerBody[0].(map[string]any)["kind"])
}

func TestLowerDataStep_NonLiteralBoundRefusedAtParseTime(t *testing.T) {
	steps, bag := lowerBlock(t, `
		data out; set in;
			do i = 1 to n;
				output;
			end;
		run;
	`)
	require.NotEmpty(t, bag.Items)
	assert.Equal(t, "SANS_PARSE_LOOP_BOUND_UNSUPPORTED", string(bag.Items[0].Code))
	// lowering still makes progress past the malformed block instead of
	// misreading "end;"/"run;" as further top-level statements.
	assert.Len(t, steps, 1)
}

func TestLowerDataStep_ZeroStepRefusedAtParseTime(t *testing.T) {
	_, bag := lowerBlock(t, `
		data out; set in;
			do i = 1 to 5 by 0;
				output;
			end;
		run;
	`)
	require.NotEmpty(t, bag.Items)
	assert.Equal(t, "SANS_PARSE_LOOP_BOUND_UNSUPPORTED", string(bag.Items[0].Code))
}

func TestLowerDataStep_TopLevelOutputIsNoOp(t *testing.T) {
	steps, bag := lowerBlock(t, `
		data out; set in;
			output;
			x = x + 1;
		run;
	`)
	require.Empty(t, bag.Items)
	// identity + one compute step; the bare "output;" contributes nothing.
	require.Len(t, steps, 2)
	assert.Equal(t, ir.OpCompute, steps[1].Op)
}
