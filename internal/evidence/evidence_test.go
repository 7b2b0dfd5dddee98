package evidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sans-lang/sans/internal/engine"
	"github.com/sans-lang/sans/internal/value"
)

func TestCollectTableEvidenceBasic(t *testing.T) {
	tbl := &engine.Table{
		Columns: []string{"id", "flag", "name"},
		Rows: [][]value.Value{
			{value.Int(1), value.Bool(true), value.Str("alpha")},
			{value.Int(2), value.Bool(true), value.Str("beta")},
			{value.Int(3), value.Null(), value.Str("alpha")},
		},
	}

	ev := CollectTableEvidence(tbl, DefaultConfig())
	assert.Equal(t, 3, ev["row_count"])
	cols, ok := ev["columns"].(map[string]any)
	require.True(t, ok)

	idCol := cols["id"].(map[string]any)
	assert.Equal(t, 0, idCol["null_count"])
	assert.Equal(t, 3, idCol["non_null_count"])
	assert.Equal(t, 3, idCol["unique_count"])

	flagCol := cols["flag"].(map[string]any)
	assert.Equal(t, 1, flagCol["null_count"])
	assert.Equal(t, 2, flagCol["non_null_count"])
	assert.Equal(t, 1, flagCol["unique_count"])
	_, hasConst := flagCol["constant_value"]
	assert.False(t, hasConst, "flag has a null so it is not constant")

	nameCol := cols["name"].(map[string]any)
	assert.Equal(t, 2, nameCol["unique_count"])
	top, ok := nameCol["top_values"].([]any)
	require.True(t, ok)
	require.Len(t, top, 2)
	first := top[0].(map[string]any)
	assert.Equal(t, 2, first["count"])
	assert.Equal(t, value.Str("alpha"), first["value"])
}

func TestCollectTableEvidenceConstantColumn(t *testing.T) {
	tbl := &engine.Table{
		Columns: []string{"c"},
		Rows: [][]value.Value{
			{value.Str("x")},
			{value.Str("x")},
			{value.Str("x")},
		},
	}
	ev := CollectTableEvidence(tbl, DefaultConfig())
	cols := ev["columns"].(map[string]any)
	c := cols["c"].(map[string]any)
	assert.Equal(t, value.Str("x"), c["constant_value"])
}

func TestCollectTableEvidenceUniqueOverflow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UniqueCap = 2
	rows := make([][]value.Value, 0, 5)
	for i := 0; i < 5; i++ {
		rows = append(rows, []value.Value{value.Int(int64(i))})
	}
	tbl := &engine.Table{Columns: []string{"v"}, Rows: rows}
	ev := CollectTableEvidence(tbl, cfg)
	cols := ev["columns"].(map[string]any)
	v := cols["v"].(map[string]any)
	assert.True(t, v["unique_count_capped"].(bool))
	assert.Equal(t, ">=3", v["unique_count"])
	_, hasTop := v["top_values"]
	assert.False(t, hasTop)
}

func TestSampleIndicesStride(t *testing.T) {
	indices, sampled, size, step := sampleIndices(1000, 100)
	assert.True(t, sampled)
	assert.Equal(t, 10, step)
	assert.LessOrEqual(t, len(indices), 1000)
	assert.Equal(t, size, len(indices))

	indices2, sampled2, size2, _ := sampleIndices(50, 100)
	assert.False(t, sampled2)
	assert.Equal(t, 50, size2)
	assert.Len(t, indices2, 50)
}

func TestCollectTableEvidenceSampled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleCap = 10
	rows := make([][]value.Value, 0, 100)
	for i := 0; i < 100; i++ {
		rows = append(rows, []value.Value{value.Int(int64(i))})
	}
	tbl := &engine.Table{Columns: []string{"v"}, Rows: rows}
	ev := CollectTableEvidence(tbl, cfg)
	sample, ok := ev["sample"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "stride", sample["strategy"])
	assert.Equal(t, 10, sample["cap"])
}
