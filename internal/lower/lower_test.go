package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sans-lang/sans/internal/ir"
)

func TestLowerDataStep(t *testing.T) {
	res := Lower("t.sans", "data out; set in; x = a + 1; if x > 0; run;", nil)
	require.False(t, res.Doc.IsFatalSentinel())
	require.False(t, res.Bag.HasFatal())
	var ops []ir.Op
	for _, s := range res.Doc.Steps {
		ops = append(ops, s.Op)
	}
	assert.Contains(t, ops, ir.OpIdentity)
	assert.Contains(t, ops, ir.OpCompute)
	assert.Contains(t, ops, ir.OpFilter)
}

func TestLowerProcSort(t *testing.T) {
	res := Lower("t.sans", "proc sort data=in out=out; by x descending y; run;", nil)
	require.False(t, res.Bag.HasFatal())
	require.Len(t, res.Doc.Steps, 1)
	assert.Equal(t, ir.OpSort, res.Doc.Steps[0].Op)
}

func TestLowerUnsupportedProcIsSentinel(t *testing.T) {
	res := Lower("t.sans", "proc nonsense data=in; run;", nil)
	require.True(t, res.Doc.IsFatalSentinel())
	assert.Equal(t, "SANS_PARSE_UNSUPPORTED_PROC", string(res.Doc.Steps[0].Unknown.Code))
}

func TestLowerRecordsExternalBindingsSoValidatePasses(t *testing.T) {
	res := Lower("t.sans", "data out; set in; x = a + 1; run;", nil)
	require.False(t, res.Bag.HasFatal(), "%+v", res.Bag.Items)

	bag := res.Doc.Validate(false)
	for _, d := range bag.Items {
		assert.NotEqual(t, "SANS_VALIDATE_UNDECLARED_INPUT", string(d.Code))
	}

	assert.True(t, res.Doc.Tables["in"])
	decl, ok := res.Doc.Datasources["in"]
	require.True(t, ok)
	assert.Equal(t, "csv", decl.Kind)

	assert.False(t, res.Doc.Tables["out"], "a step-produced table is not an external binding")
}

func TestLowerProcSQLInnerJoin(t *testing.T) {
	src := "proc sql; create table out as select a.x, b.y from a inner join b on a.k = b.k where a.x > 1; quit;"
	res := Lower("t.sans", src, nil)
	require.False(t, res.Bag.HasFatal(), "%+v", res.Bag.Items)
	require.Len(t, res.Doc.Steps, 1)
	s := res.Doc.Steps[0]
	assert.Equal(t, ir.OpSQLSelect, s.Op)
	assert.Equal(t, []string{"a", "b"}, s.Inputs)
	assert.Equal(t, []string{"out"}, s.Outputs)
}
