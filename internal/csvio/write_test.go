package csvio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sans-lang/sans/internal/engine"
	"github.com/sans-lang/sans/internal/value"
)

func TestWriterDeterministic(t *testing.T) {
	tbl := &engine.Table{
		Columns: []string{"a", "b"},
		Rows: [][]value.Value{
			{value.Int(2), value.Int(20)},
			{value.Int(3), value.Null()},
		},
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	w := Writer{}
	require.NoError(t, w.Write(path, "csv", tbl))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n2,20\n3,\n", string(got))

	got2Path := filepath.Join(dir, "out2.csv")
	require.NoError(t, w.Write(got2Path, "csv", tbl))
	got2, err := os.ReadFile(got2Path)
	require.NoError(t, err)
	assert.Equal(t, got, got2)
}
