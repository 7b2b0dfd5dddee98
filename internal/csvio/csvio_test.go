package csvio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sans-lang/sans/internal/diag"
	"github.com/sans-lang/sans/internal/value"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadFileUntyped(t *testing.T) {
	path := writeTempCSV(t, "a,b\n1,10\n2,\n")
	tbl, derr := ReadFile(path, nil, diag.Loc{})
	require.Nil(t, derr)
	assert.Equal(t, []string{"a", "b"}, tbl.Columns)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, value.KindString, tbl.Rows[0][0].Kind)
	assert.True(t, tbl.Rows[1][1].IsNull())
}

func TestReadFileTypedCoercion(t *testing.T) {
	path := writeTempCSV(t, "a,b\n1,10\n2,20\n")
	pinned := []ColumnFact{{Name: "a", Type: value.TInt}, {Name: "b", Type: value.TInt}}
	tbl, derr := ReadFile(path, pinned, diag.Loc{})
	require.Nil(t, derr)
	assert.Equal(t, value.KindInt, tbl.Rows[0][0].Kind)
	assert.Equal(t, "10", tbl.Rows[0][1].Text())
}

func TestReadFileSchemaMismatch(t *testing.T) {
	path := writeTempCSV(t, "a,b\n1,10\n")
	pinned := []ColumnFact{{Name: "a", Type: value.TInt}, {Name: "c", Type: value.TInt}}
	_, derr := ReadFile(path, pinned, diag.Loc{})
	require.NotNil(t, derr)
	assert.Equal(t, diag.ESansRuntimeDatasourceSchemaMismatch, derr.Code)
}

func TestReadFileCoerceFailure(t *testing.T) {
	path := writeTempCSV(t, "a\nx\n")
	pinned := []ColumnFact{{Name: "a", Type: value.TInt}}
	_, derr := ReadFile(path, pinned, diag.Loc{})
	require.NotNil(t, derr)
	assert.Equal(t, diag.ECSVCoerce, derr.Code)
	assert.Contains(t, derr.Message, "invalid_int")
}

func TestReadFileCRLFNormalized(t *testing.T) {
	path := writeTempCSV(t, "a,b\r\n1,2\r\n")
	tbl, derr := ReadFile(path, nil, diag.Loc{})
	require.Nil(t, derr)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "2", tbl.Rows[0][1].Text())
}

func TestReadStringUntyped(t *testing.T) {
	tbl, derr := ReadString("raw", "a,b\r\n1,\r\n", nil, diag.Loc{})
	require.Nil(t, derr)
	assert.Equal(t, []string{"a", "b"}, tbl.Columns)
	require.Len(t, tbl.Rows, 1)
	assert.True(t, tbl.Rows[0][1].IsNull())
}

func TestReadStringTypedCoercion(t *testing.T) {
	pinned := []ColumnFact{{Name: "a", Type: value.TInt}, {Name: "b", Type: value.TInt}}
	tbl, derr := ReadString("raw", "a,b\n1,2\n", pinned, diag.Loc{})
	require.Nil(t, derr)
	assert.Equal(t, value.KindInt, tbl.Rows[0][0].Kind)
}

func TestReadStringSchemaMismatch(t *testing.T) {
	pinned := []ColumnFact{{Name: "a", Type: value.TInt}, {Name: "c", Type: value.TInt}}
	_, derr := ReadString("raw", "a,b\n1,2\n", pinned, diag.Loc{})
	require.NotNil(t, derr)
	assert.Equal(t, diag.ESansRuntimeDatasourceSchemaMismatch, derr.Code)
}
