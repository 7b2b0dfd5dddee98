package schemainfer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sans-lang/sans/internal/value"
)

func infer(t *testing.T, content string, maxRows int) Result {
	t.Helper()
	res, err := Infer(strings.NewReader(content), maxRows)
	require.NoError(t, err)
	return res
}

func TestInferBasicTypes(t *testing.T) {
	res := infer(t, "a,b,c,d\n1,1.5,hello,true\n2,2.5,world,false\n", DefaultMaxRows)
	require.Len(t, res.Columns, 4)
	assert.Equal(t, Column{Name: "a", Type: value.TInt}, res.Columns[0])
	assert.Equal(t, Column{Name: "b", Type: value.TDecimal}, res.Columns[1])
	assert.Equal(t, Column{Name: "c", Type: value.TString}, res.Columns[2])
	assert.Equal(t, Column{Name: "d", Type: value.TBool}, res.Columns[3])
	assert.Equal(t, 2, res.RowsScanned)
	assert.False(t, res.Truncated)
}

func TestInferLeadingZeroForcesString(t *testing.T) {
	res := infer(t, "code\n007\n042\n", DefaultMaxRows)
	assert.Equal(t, value.TString, res.Columns[0].Type)
}

func TestInferMixedIntAndDecimalIsDecimal(t *testing.T) {
	res := infer(t, "v\n1\n2.5\n", DefaultMaxRows)
	assert.Equal(t, value.TDecimal, res.Columns[0].Type)
}

func TestInferMixedNumericAndStringIsString(t *testing.T) {
	res := infer(t, "v\n1\nabc\n", DefaultMaxRows)
	assert.Equal(t, value.TString, res.Columns[0].Type)
}

func TestInferAllNullIsString(t *testing.T) {
	res := infer(t, "v\n\n\n", DefaultMaxRows)
	assert.Equal(t, value.TString, res.Columns[0].Type)
}

func TestInferTruncatesAtMaxRows(t *testing.T) {
	res := infer(t, "v\n1\n2\n3\n", 2)
	assert.Equal(t, 2, res.RowsScanned)
	assert.True(t, res.Truncated)
}

func TestInferEmptyInputReturnsZeroColumns(t *testing.T) {
	res := infer(t, "", DefaultMaxRows)
	assert.Empty(t, res.Columns)
}

func TestInferMissingTrailingFieldTreatedAsNull(t *testing.T) {
	res := infer(t, "a,b\n1,2\n3\n", DefaultMaxRows)
	assert.Equal(t, value.TInt, res.Columns[1].Type)
}
