package stmtlex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentBasic(t *testing.T) {
	stmts := Segment("t.sans", "data out; set in; x = 1; run;")
	require.Len(t, stmts, 4)
	assert.Equal(t, "data out", stmts[0].Text)
	assert.Equal(t, "set in", stmts[1].Text)
	assert.Equal(t, "x = 1", stmts[2].Text)
}

func TestSegmentIgnoresSemicolonInString(t *testing.T) {
	stmts := Segment("t.sans", `x = "a;b"; run;`)
	require.Len(t, stmts, 2)
	assert.Equal(t, `x = "a;b"`, stmts[0].Text)
}

func TestSegmentBlockComment(t *testing.T) {
	stmts := Segment("t.sans", "x = 1; /* comment; with semi */ y = 2; run;")
	require.Len(t, stmts, 3)
	assert.Equal(t, "y = 2", stmts[1].Text)
}

func TestSegmentLineComment(t *testing.T) {
	stmts := Segment("t.sans", "* this is a comment; x = 1; run;")
	require.Len(t, stmts, 2)
	assert.Equal(t, "x = 1", stmts[0].Text)
}

func TestSegmentMissingTerminator(t *testing.T) {
	stmts := Segment("t.sans", "data out; set in")
	require.Len(t, stmts, 2)
	assert.False(t, stmts[1].Terminated)
}

func TestGroupBlocksDataProc(t *testing.T) {
	stmts := Segment("t.sans", "data out; set in; run; proc sort data=out; by x; run;")
	blocks := GroupBlocks(stmts)
	require.Len(t, blocks, 2)
	assert.Equal(t, BlockData, blocks[0].Kind)
	assert.Equal(t, BlockProc, blocks[1].Kind)
}

func TestGroupBlocksMissingRunTolerated(t *testing.T) {
	stmts := Segment("t.sans", "data out; set in; proc sort data=out; by x; run;")
	blocks := GroupBlocks(stmts)
	require.Len(t, blocks, 2)
	assert.Equal(t, BlockData, blocks[0].Kind)
	assert.Len(t, blocks[0].Statements, 2)
}
