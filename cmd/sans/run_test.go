package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sans-lang/sans/internal/diag"
	"github.com/sans-lang/sans/internal/engine"
	"github.com/sans-lang/sans/internal/ir"
)

func TestBindTablesFallsBackToDatasourceCSVPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644))

	doc := ir.NewDoc()
	doc.Datasources["in"] = ir.DatasourceDecl{Kind: "csv", Path: path}

	eng := engine.New(nil)
	derr := bindTables(eng, doc, nil, "")
	require.Nil(t, derr)
	require.NotNil(t, eng.Tables["in"])
	assert.Equal(t, []string{"a", "b"}, eng.Tables["in"].Columns)
}

func TestBindTablesFallsBackToDatasourceInlineCSV(t *testing.T) {
	doc := ir.NewDoc()
	doc.Datasources["in"] = ir.DatasourceDecl{Kind: "inline_csv", InlineText: "a,b\n1,2\n"}

	eng := engine.New(nil)
	derr := bindTables(eng, doc, nil, "")
	require.Nil(t, derr)
	require.NotNil(t, eng.Tables["in"])
	assert.Equal(t, []string{"a", "b"}, eng.Tables["in"].Columns)
}

func TestBindTablesSkipsDatasourceWithNoPathWhenUnbound(t *testing.T) {
	doc := ir.NewDoc()
	doc.Datasources["in"] = ir.DatasourceDecl{Kind: "csv"}

	eng := engine.New(nil)
	derr := bindTables(eng, doc, nil, "")
	require.Nil(t, derr)
	assert.Nil(t, eng.Tables["in"])
}

func TestBindTablesCLIBindingTakesPrecedenceOverDatasource(t *testing.T) {
	dir := t.TempDir()
	clipath := filepath.Join(dir, "cli.csv")
	require.NoError(t, os.WriteFile(clipath, []byte("a\n9\n"), 0o644))

	doc := ir.NewDoc()
	doc.Datasources["in"] = ir.DatasourceDecl{Kind: "inline_csv", InlineText: "a\n1\n"}

	eng := engine.New(nil)
	bindings, err := parseTableBindings("in=" + clipath)
	require.NoError(t, err)
	derr := bindTables(eng, doc, bindings, "")
	require.Nil(t, derr)
	require.Len(t, eng.Tables["in"].Rows, 1)
	assert.Equal(t, "9", eng.Tables["in"].Rows[0][0].Text())
}

func TestBindTablesDuplicateBindingStillRefuses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(path, []byte("a\n1\n"), 0o644))

	doc := ir.NewDoc()
	eng := engine.New(nil)
	bindings := []tableBinding{{Name: "in", Path: path}, {Name: "in", Path: path}}
	derr := bindTables(eng, doc, bindings, "")
	require.NotNil(t, derr)
	assert.Equal(t, diag.ESansRuntimeDuplicateBinding, derr.Code)
}
