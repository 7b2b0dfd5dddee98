package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stepOp(id string, op Op, inputs, outputs []string, params map[string]any) *Step {
	return &Step{ID: id, Op: op, Inputs: inputs, Outputs: outputs, Params: params}
}

func TestValidateRequiresAtLeastOneSave(t *testing.T) {
	doc := NewDoc()
	doc.Tables["in"] = true
	doc.Steps = []*Step{stepOp("s1", OpIdentity, []string{"in"}, []string{"out"}, nil)}
	bag := doc.Validate(false)
	require.True(t, bag.HasFatal())
}

func TestValidateAcceptsWellFormedDoc(t *testing.T) {
	doc := NewDoc()
	doc.Tables["in"] = true
	doc.Steps = []*Step{
		stepOp("s1", OpIdentity, []string{"in"}, []string{"mid"}, nil),
		stepOp("s2", OpSave, []string{"mid"}, nil, map[string]any{"path": "out.csv"}),
	}
	bag := doc.Validate(false)
	assert.False(t, bag.HasFatal())
}

func TestValidateRejectsDuplicateOutput(t *testing.T) {
	doc := NewDoc()
	doc.Tables["in"] = true
	doc.Steps = []*Step{
		stepOp("s1", OpIdentity, []string{"in"}, []string{"mid"}, nil),
		stepOp("s2", OpIdentity, []string{"in"}, []string{"mid"}, nil),
		stepOp("s3", OpSave, []string{"mid"}, nil, map[string]any{"path": "out.csv"}),
	}
	bag := doc.Validate(false)
	require.True(t, bag.HasFatal())
}

func TestValidateRejectsDuplicateSaveDestination(t *testing.T) {
	doc := NewDoc()
	doc.Tables["in"] = true
	doc.Steps = []*Step{
		stepOp("s1", OpIdentity, []string{"in"}, []string{"a"}, nil),
		stepOp("s2", OpIdentity, []string{"in"}, []string{"b"}, nil),
		stepOp("s3", OpSave, []string{"a"}, nil, map[string]any{"path": "out.csv"}),
		stepOp("s4", OpSave, []string{"b"}, nil, map[string]any{"path": "out.csv"}),
	}
	bag := doc.Validate(false)
	require.True(t, bag.HasFatal())
}

func TestValidateRejectsUndeclaredInput(t *testing.T) {
	doc := NewDoc()
	doc.Steps = []*Step{
		stepOp("s1", OpIdentity, []string{"nope"}, []string{"mid"}, nil),
		stepOp("s2", OpSave, []string{"mid"}, nil, map[string]any{"path": "out.csv"}),
	}
	bag := doc.Validate(false)
	found := false
	for _, d := range bag.Items {
		if string(d.Code) == "SANS_VALIDATE_UNDECLARED_INPUT" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidateDetectsCycle(t *testing.T) {
	doc := NewDoc()
	doc.Steps = []*Step{
		stepOp("s1", OpIdentity, []string{"b"}, []string{"a"}, nil),
		stepOp("s2", OpIdentity, []string{"a"}, []string{"b"}, nil),
		stepOp("s3", OpSave, []string{"a"}, nil, map[string]any{"path": "out.csv"}),
	}
	bag := doc.Validate(false)
	require.True(t, bag.HasFatal())
}

func TestValidateDanglingTableIsWarningUnlessStrict(t *testing.T) {
	doc := NewDoc()
	doc.Tables["in"] = true
	doc.Steps = []*Step{
		stepOp("s1", OpIdentity, []string{"in"}, []string{"kept"}, nil),
		stepOp("s2", OpIdentity, []string{"in"}, []string{"dangling"}, nil),
		stepOp("s3", OpSave, []string{"kept"}, nil, map[string]any{"path": "out.csv"}),
	}
	loose := doc.Validate(false)
	assert.False(t, loose.HasFatal())

	strict := doc.Validate(true)
	assert.True(t, strict.HasFatal())
}

func TestValidateIsIdempotentAndPure(t *testing.T) {
	doc := NewDoc()
	doc.Tables["in"] = true
	doc.Steps = []*Step{
		stepOp("s1", OpCompute, []string{"in"}, []string{"out"}, map[string]any{"assignments": []any{
			map[string]any{"target": "c", "expr": "a + b"},
		}}),
		stepOp("s2", OpSave, []string{"out"}, nil, map[string]any{"path": "out.csv"}),
	}
	before := doc.Steps[0].Params
	bag1 := doc.Validate(false)
	bag2 := doc.Validate(false)
	assert.Equal(t, len(bag1.Items), len(bag2.Items))
	assert.Equal(t, before, doc.Steps[0].Params)
}

func TestIsFatalSentinel(t *testing.T) {
	doc := NewDoc()
	doc.Steps = []*Step{{Unknown: &UnknownBlockStep{Code: "SANS_PARSE_MACRO_ERROR", Severity: "fatal"}}}
	assert.True(t, doc.IsFatalSentinel())

	doc2 := NewDoc()
	doc2.Steps = []*Step{{Unknown: &UnknownBlockStep{Code: "SANS_PARSE_UNSUPPORTED_STATEMENT", Severity: "warning"}}}
	assert.False(t, doc2.IsFatalSentinel())
}
