package bundle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sans-lang/sans/internal/engine"
	"github.com/sans-lang/sans/internal/evidence"
	"github.com/sans-lang/sans/internal/expr"
	"github.com/sans-lang/sans/internal/ir"
	"github.com/sans-lang/sans/internal/value"
)

type noopWriter struct{}

func (noopWriter) Write(path, format string, t *engine.Table) error { return nil }

func mustCanon(t *testing.T, src string) map[string]any {
	t.Helper()
	node, derr := expr.Parse("t.sans", src)
	require.Nil(t, derr)
	return expr.ToCanon(node)
}

func TestWriteAndVerifyRoundTrip(t *testing.T) {
	dir := t.TempDir()

	doc := ir.NewDoc()
	doc.Tables["in"] = true
	s1 := &ir.Step{ID: "s1", Op: ir.OpCompute, Inputs: []string{"in"}, Outputs: []string{"mid"},
		Params: map[string]any{"assignments": []any{
			map[string]any{"target": "c", "expr": mustCanon(t, "a + b")},
		}}}
	s2 := &ir.Step{ID: "s2", Op: ir.OpFilter, Inputs: []string{"mid"}, Outputs: []string{"out"},
		Params: map[string]any{"expr": mustCanon(t, "c > 20")}}
	savePath := filepath.Join(dir, "out.csv")
	s3 := &ir.Step{ID: "s3", Op: ir.OpSave, Inputs: []string{"out"}, Outputs: nil,
		Params: map[string]any{"path": savePath, "format": "csv"}}
	doc.Steps = []*ir.Step{s1, s2, s3}

	eng := engine.New(noopWriter{})
	eng.Bind("in", &engine.Table{
		Columns: []string{"a", "b"},
		Rows: [][]value.Value{
			{value.Int(1), value.Int(10)},
			{value.Int(2), value.Int(20)},
		},
	})
	require.Nil(t, eng.Run(doc))
	require.NoError(t, os.WriteFile(savePath, []byte("a,b,c\n2,20,22\n"), 0o644))

	report, err := Write(Request{
		Doc:         doc,
		Eng:         eng,
		OutDir:      dir,
		ExitBucket:  ExitOK,
		EvidenceCfg: evidence.DefaultConfig(),
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", report["status"])

	for _, f := range []string{"plan.ir.json", "expanded.sans", "artifacts/graph.json", "artifacts/vars.graph.json", "artifacts/schema.evidence.json", "artifacts/runtime.evidence.json", "report.json"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, "expected %s to exist", f)
	}

	require.NoError(t, Verify(filepath.Join(dir, "report.json")))
}

func TestVerifyDetectsTamper(t *testing.T) {
	dir := t.TempDir()
	doc := ir.NewDoc()
	s := &ir.Step{ID: "s1", Op: ir.OpIdentity, Inputs: []string{"in"}, Outputs: []string{"out"}}
	doc.Steps = []*ir.Step{s}

	eng := engine.New(noopWriter{})
	eng.Bind("in", &engine.Table{Columns: []string{"a"}, Rows: [][]value.Value{{value.Int(1)}}})
	require.Nil(t, eng.Run(doc))

	_, err := Write(Request{Doc: doc, Eng: eng, OutDir: dir, ExitBucket: ExitOK, EvidenceCfg: evidence.DefaultConfig()})
	require.NoError(t, err)

	planPath := filepath.Join(dir, "plan.ir.json")
	require.NoError(t, os.WriteFile(planPath, []byte("tampered"), 0o644))

	err = Verify(filepath.Join(dir, "report.json"))
	assert.Error(t, err)
}
