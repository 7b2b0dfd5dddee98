// Package evidence collects per-column runtime statistics about a table —
// null/non-null/unique counts, a constant-value shortcut, and a top-K value
// histogram — for the `artifacts/runtime.evidence.json` bundle artifact.
// It is a direct port of evidence.py's accumulate-then-summarize
// _ColumnCollector, with Go's comparable-struct map keys standing in for
// Python's (type_tag, value) tuple keys.
package evidence

import (
	"fmt"
	"sort"

	"github.com/sans-lang/sans/internal/engine"
	"github.com/sans-lang/sans/internal/value"
)

// Config mirrors evidence.py's EvidenceConfig.
type Config struct {
	UniqueCap        int
	TopK             int
	IncludeTopValues bool
	SampleCap        int
}

func DefaultConfig() Config {
	return Config{UniqueCap: 2048, TopK: 5, IncludeTopValues: true, SampleCap: 100000}
}

type collKey struct {
	tag  string
	text string
}

func normalizeValue(v value.Value) (k collKey, out value.Value, typeTag, sortKey string) {
	switch v.Kind {
	case value.KindBool:
		s := "false"
		if v.B {
			s = "true"
		}
		return collKey{"bool", s}, v, "bool", s
	case value.KindInt:
		s := v.I.String()
		return collKey{"int", s}, v, "int", s
	case value.KindDecimal:
		s := v.D.String()
		return collKey{"decimal", s}, v, "decimal", s
	case value.KindString:
		return collKey{"string", v.S}, v, "string", v.S
	default:
		s := v.Text()
		return collKey{"unknown", s}, v, "unknown", s
	}
}

type valueInfo struct {
	value   value.Value
	sortKey string
}

type columnCollector struct {
	cfg            Config
	nullCount      int
	nonNullCount   int
	uniqueOverflow bool
	uniqueKeys     map[collKey]bool
	valueInfo      map[collKey]valueInfo
	counts         map[collKey]int
	countsEnabled  bool
	constantKey    *collKey
	constantValue  value.Value
	constantBroken bool
	typeTags       map[string]bool
}

func newColumnCollector(cfg Config) *columnCollector {
	return &columnCollector{
		cfg:           cfg,
		uniqueKeys:    map[collKey]bool{},
		valueInfo:     map[collKey]valueInfo{},
		counts:        map[collKey]int{},
		countsEnabled: cfg.IncludeTopValues && cfg.TopK > 0,
		typeTags:      map[string]bool{},
	}
}

func (c *columnCollector) observe(v value.Value) {
	if v.IsNull() {
		c.nullCount++
		return
	}
	c.nonNullCount++
	k, out, typeTag, sortKey := normalizeValue(v)
	c.typeTags[typeTag] = true

	if c.constantKey == nil {
		kk := k
		c.constantKey = &kk
		c.constantValue = out
	} else if *c.constantKey != k {
		c.constantBroken = true
	}

	if c.uniqueOverflow {
		return
	}
	if !c.uniqueKeys[k] {
		if len(c.uniqueKeys) >= c.cfg.UniqueCap {
			c.uniqueOverflow = true
			c.countsEnabled = false
			c.counts = nil
			return
		}
		c.uniqueKeys[k] = true
		c.valueInfo[k] = valueInfo{value: out, sortKey: sortKey}
	}
	if c.countsEnabled {
		c.counts[k]++
	}
}

func (c *columnCollector) toDict() map[string]any {
	var uniqueCount any
	uniqueIsInt := false
	if c.uniqueOverflow {
		uniqueCount = fmt.Sprintf(">=%d", c.cfg.UniqueCap+1)
	} else {
		uniqueCount = len(c.uniqueKeys)
		uniqueIsInt = true
	}
	out := map[string]any{
		"null_count":          c.nullCount,
		"non_null_count":      c.nonNullCount,
		"unique_count":        uniqueCount,
		"unique_count_capped": c.uniqueOverflow,
	}
	if uniqueIsInt && uniqueCount.(int) == 1 && c.nullCount == 0 && !c.constantBroken {
		out["constant_value"] = c.constantValue
	}

	if c.counts != nil {
		type item struct {
			count   int
			sortKey string
			tag     string
			value   value.Value
		}
		items := make([]item, 0, len(c.counts))
		for k, count := range c.counts {
			vi := c.valueInfo[k]
			items = append(items, item{count: count, sortKey: vi.sortKey, tag: k.tag, value: vi.value})
		}
		sort.Slice(items, func(i, j int) bool {
			if items[i].count != items[j].count {
				return items[i].count > items[j].count
			}
			if items[i].sortKey != items[j].sortKey {
				return items[i].sortKey < items[j].sortKey
			}
			return items[i].tag < items[j].tag
		})
		topk := c.cfg.TopK
		if topk > len(items) {
			topk = len(items)
		}
		if topk > 0 {
			var top []any
			for _, it := range items[:topk] {
				top = append(top, map[string]any{"value": it.value, "count": it.count})
			}
			out["top_values"] = top
		}
	}

	switch len(c.typeTags) {
	case 0:
		out["type_hint"] = "null"
	case 1:
		for t := range c.typeTags {
			out["type_hint"] = t
		}
	default:
		out["type_hint"] = "unknown"
	}
	return out
}

// sampleIndices mirrors evidence.py's _sample_indices: below the cap every
// row is visited; above it, a deterministic fixed stride is used so repeat
// runs sample the same rows.
func sampleIndices(rowCount, sampleCap int) (indices []int, sampled bool, sampleSize, step int) {
	if rowCount <= sampleCap {
		indices = make([]int, rowCount)
		for i := range indices {
			indices[i] = i
		}
		return indices, false, rowCount, 1
	}
	step = rowCount / sampleCap
	if step < 1 {
		step = 1
	}
	for i := 0; i < rowCount; i += step {
		indices = append(indices, i)
	}
	size := sampleCap
	if ceil := (rowCount + step - 1) / step; ceil < size {
		size = ceil
	}
	return indices, true, size, step
}

// CollectTableEvidence builds the evidence block for one table.
func CollectTableEvidence(t *engine.Table, cfg Config) map[string]any {
	rowCount := len(t.Rows)
	columns := t.Columns

	indices, sampled, sampleSize, step := sampleIndices(rowCount, cfg.SampleCap)
	collectors := make(map[string]*columnCollector, len(columns))
	for _, c := range columns {
		collectors[c] = newColumnCollector(cfg)
	}

	seen := 0
	for _, idx := range indices {
		if sampled && seen >= sampleSize {
			break
		}
		row := t.Rows[idx]
		for i, c := range columns {
			collectors[c].observe(row[i])
		}
		seen++
	}

	sortedCols := append([]string(nil), columns...)
	sort.Strings(sortedCols)
	columnsEvidence := map[string]any{}
	for _, c := range sortedCols {
		columnsEvidence[c] = collectors[c].toDict()
	}

	evidence := map[string]any{
		"row_count": rowCount,
		"columns":   columnsEvidence,
	}
	if sampled {
		evidence["sample"] = map[string]any{
			"strategy": "stride",
			"cap":      cfg.SampleCap,
			"size":     sampleSize,
			"step":     step,
		}
	}
	return evidence
}
