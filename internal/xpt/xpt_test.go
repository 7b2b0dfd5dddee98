package xpt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sans-lang/sans/internal/diag"
	"github.com/sans-lang/sans/internal/engine"
	"github.com/sans-lang/sans/internal/value"
)

func TestXPTRoundTrip(t *testing.T) {
	tbl := &engine.Table{
		Columns: []string{"num_var", "char_var"},
		Rows: [][]value.Value{
			{value.Dec(mustDec(t, "10")), value.Str("ABC")},
			{value.Null(), value.Null()},
			{value.Dec(mustDec(t, "20")), value.Str("world")},
		},
	}
	path := filepath.Join(t.TempDir(), "test.xpt")
	require.NoError(t, WriteFile(path, tbl))

	got, derr := ReadFile(path, diag.Loc{})
	require.Nil(t, derr)
	require.Equal(t, []string{"num_var", "char_var"}, got.Columns)
	require.Len(t, got.Rows, 3)

	assert.Equal(t, "10", got.Rows[0][0].Text())
	assert.Equal(t, "ABC", got.Rows[0][1].Text())
	assert.True(t, got.Rows[1][0].IsNull())
	assert.True(t, got.Rows[1][1].IsNull())
	assert.Equal(t, "20", got.Rows[2][0].Text())
	assert.Equal(t, "world", got.Rows[2][1].Text())
}

func TestXPTDeterministic(t *testing.T) {
	tbl := &engine.Table{
		Columns: []string{"a"},
		Rows:    [][]value.Value{{value.Int(1)}},
	}
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.xpt")
	p2 := filepath.Join(dir, "b.xpt")
	require.NoError(t, WriteFile(p1, tbl))
	require.NoError(t, WriteFile(p2, tbl))

	d1, derr := ReadFile(p1, diag.Loc{})
	require.Nil(t, derr)
	d2, derr := ReadFile(p2, diag.Loc{})
	require.Nil(t, derr)
	assert.Equal(t, d1.Rows[0][0].Text(), d2.Rows[0][0].Text())
}

func TestXPTCorruptHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xpt")
	garbage := make([]byte, recordSize*2)
	copy(garbage, []byte("not an xpt file at all"))
	require.NoError(t, os.WriteFile(path, garbage, 0o644))
	_, derr := ReadFile(path, diag.Loc{})
	require.NotNil(t, derr)
	assert.Equal(t, diag.ESansRuntimeXPTCorrupt, derr.Code)
}

func mustDec(t *testing.T, s string) value.Decimal {
	t.Helper()
	d, ok := value.ParseDecimal(s)
	require.True(t, ok)
	return d
}
