package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sans-lang/sans/internal/canon"
	"github.com/sans-lang/sans/internal/value"
)

func buildSampleDoc() *IRDoc {
	doc := NewDoc()
	doc.Datasources["in"] = DatasourceDecl{
		Kind: "csv",
		Path: "in.csv",
		Columns: []ColumnFact{
			{Name: "a", Type: value.TInt},
			{Name: "b", Type: value.TInt},
		},
	}
	doc.Tables["in"] = true
	doc.TableFacts["in"] = TableFact{Known: true, Columns: []ColumnFact{{Name: "a", Type: value.TInt}}}
	doc.Steps = []*Step{
		stepOp("s1", OpCompute, []string{"in"}, []string{"mid"}, map[string]any{
			"assignments": []any{map[string]any{"target": "c", "expr": "a + b"}},
		}),
		stepOp("s2", OpSave, []string{"mid"}, nil, map[string]any{"path": "out.csv"}),
	}
	return doc
}

func TestToCanonicalFromCanonicalRoundTrip(t *testing.T) {
	doc := buildSampleDoc()
	m := doc.ToCanonical()

	back, err := FromCanonical(m)
	require.NoError(t, err)

	assert.Equal(t, doc.Version, back.Version)
	require.Len(t, back.Steps, len(doc.Steps))
	for i, s := range doc.Steps {
		assert.Equal(t, s.ID, back.Steps[i].ID)
		assert.Equal(t, s.Op, back.Steps[i].Op)
		assert.Equal(t, s.Inputs, back.Steps[i].Inputs)
		assert.Equal(t, s.Outputs, back.Steps[i].Outputs)
	}
	require.Contains(t, back.Datasources, "in")
	assert.Equal(t, doc.Datasources["in"].Kind, back.Datasources["in"].Kind)
	assert.Equal(t, doc.Datasources["in"].Path, back.Datasources["in"].Path)
	require.Len(t, back.Datasources["in"].Columns, 2)
	assert.Equal(t, value.TInt, back.Datasources["in"].Columns[0].Type)
}

func TestFromCanonicalSurvivesJSONRoundTrip(t *testing.T) {
	doc := buildSampleDoc()
	raw := canon.Marshal(doc.ToCanonical())

	decoded, err := canon.DecodeObject(raw)
	require.NoError(t, err)

	back, err := FromCanonical(decoded)
	require.NoError(t, err)
	assert.Equal(t, len(doc.Steps), len(back.Steps))
	assert.Equal(t, doc.Steps[1].Params["path"], back.Steps[1].Params["path"])
}

func TestFromCanonicalPreservesUnknownBlockStep(t *testing.T) {
	doc := NewDoc()
	doc.Steps = []*Step{{ID: "s1", Unknown: &UnknownBlockStep{
		Code: "SANS_PARSE_UNSUPPORTED_PROC", Message: "nope", Severity: "fatal",
	}}}
	m := doc.ToCanonical()
	back, err := FromCanonical(m)
	require.NoError(t, err)
	require.NotNil(t, back.Steps[0].Unknown)
	assert.Equal(t, doc.Steps[0].Unknown.Code, back.Steps[0].Unknown.Code)
	assert.True(t, back.IsFatalSentinel())
}

func TestIdentitiesStableAcrossRoundTrip(t *testing.T) {
	doc := buildSampleDoc()
	m := doc.ToCanonical()
	back, err := FromCanonical(m)
	require.NoError(t, err)
	assert.Equal(t, doc.Steps[0].TransformID(), back.Steps[0].TransformID())
	assert.Equal(t, doc.Steps[0].StepID(), back.Steps[0].StepID())
}
