package macro

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandLetAndSubstitution(t *testing.T) {
	e := NewExpander(nil)
	out, derr := e.Expand("t.sans", "%let N = 10;\ndata x; set y; keep a b; run;\n%let LIMIT = &N.;\nfilter c < &LIMIT;")
	require.Nil(t, derr)
	assert.Contains(t, out, "filter c < 10;")
}

func TestExpandUndefinedVar(t *testing.T) {
	e := NewExpander(nil)
	_, derr := e.Expand("t.sans", "keep &MISSING;")
	require.NotNil(t, derr)
	assert.Equal(t, "SANS_PARSE_MACRO_ERROR", string(derr.Code))
}

func TestExpandDoEndRefused(t *testing.T) {
	e := NewExpander(nil)
	_, derr := e.Expand("t.sans", "%do i = 1 %to 5; x = i; %end;")
	require.NotNil(t, derr)
	assert.Equal(t, "SANS_PARSE_MACRO_ERROR", string(derr.Code))
}

func TestExpandIfThenElse(t *testing.T) {
	e := NewExpander(nil)
	out, derr := e.Expand("t.sans", "%let MODE = 1;\n%if &MODE == 1 %then data a; set b; run; %else data a; set c; run;")
	require.Nil(t, derr)
	assert.Contains(t, out, "set b")
	assert.NotContains(t, out, "set c")
}

func TestExpandIfElseBranch(t *testing.T) {
	e := NewExpander(nil)
	out, derr := e.Expand("t.sans", "%let MODE = 0;\n%if &MODE == 1 %then data a; set b; run; %else data a; set c; run;")
	require.Nil(t, derr)
	assert.Contains(t, out, "set c")
}

func TestExpandIncludeCycle(t *testing.T) {
	e := NewExpander(func(path string) (string, error) {
		if path == "a.sans" {
			return `%include "b.sans";`, nil
		}
		return `%include "a.sans";`, nil
	})
	_, derr := e.Expand("a.sans", `%include "b.sans";`)
	require.NotNil(t, derr)
	assert.Equal(t, "SANS_PARSE_MACRO_ERROR", string(derr.Code))
}

func TestExpandIncludeMissingFile(t *testing.T) {
	e := NewExpander(func(path string) (string, error) {
		return "", errors.New("not found")
	})
	_, derr := e.Expand("t.sans", `%include "missing.sans";`)
	require.NotNil(t, derr)
	assert.True(t, strings.Contains(derr.Message, "missing.sans"))
}
