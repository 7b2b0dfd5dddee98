package graphart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sans-lang/sans/internal/expr"
	"github.com/sans-lang/sans/internal/ir"
)

func mustCanon(t *testing.T, src string) map[string]any {
	t.Helper()
	node, derr := expr.Parse("test.sans", src)
	require.Nil(t, derr)
	return expr.ToCanon(node)
}

func TestBuildGraphBipartite(t *testing.T) {
	doc := ir.NewDoc()
	doc.Tables["in"] = true
	s1 := &ir.Step{ID: "s1", Op: ir.OpFilter, Inputs: []string{"in"}, Outputs: []string{"mid"},
		Params: map[string]any{"expr": mustCanon(t, "x > 1")}}
	s2 := &ir.Step{ID: "s2", Op: ir.OpIdentity, Inputs: []string{"mid"}, Outputs: []string{"out"}}
	doc.Steps = []*ir.Step{s1, s2}

	g := Build(doc)
	require.NotEmpty(t, g.Nodes)
	require.Len(t, g.Edges, 4)

	var kinds []string
	for _, e := range g.Edges {
		kinds = append(kinds, e.Kind)
	}
	assert.Contains(t, kinds, "consumes")
	assert.Contains(t, kinds, "produces")

	for i := 1; i < len(g.Edges); i++ {
		prev, cur := g.Edges[i-1], g.Edges[i]
		less := prev.Src < cur.Src ||
			(prev.Src == cur.Src && prev.Dst < cur.Dst) ||
			(prev.Src == cur.Src && prev.Dst == cur.Dst && prev.Kind <= cur.Kind)
		assert.True(t, less, "edges must be sorted by (src,dst,kind)")
	}
}

func TestBuildGraphClassIDStableAcrossLiterals(t *testing.T) {
	mkDoc := func(lit string) *ir.IRDoc {
		doc := ir.NewDoc()
		doc.Tables["in"] = true
		s := &ir.Step{ID: "s1", Op: ir.OpCompute, Inputs: []string{"in"}, Outputs: []string{"out"},
			Params: map[string]any{"assignments": []any{
				map[string]any{"target": "x", "expr": mustCanon(t, lit)},
			}}}
		doc.Steps = []*ir.Step{s}
		return doc
	}

	g1 := Build(mkDoc("250"))
	g2 := Build(mkDoc("300"))

	var n1, n2 *Node
	for i := range g1.Nodes {
		if g1.Nodes[i].Kind == "step" {
			n1 = &g1.Nodes[i]
		}
	}
	for i := range g2.Nodes {
		if g2.Nodes[i].Kind == "step" {
			n2 = &g2.Nodes[i]
		}
	}
	require.NotNil(t, n1)
	require.NotNil(t, n2)
	assert.Equal(t, n1.TransformClassID, n2.TransformClassID)
	assert.NotEqual(t, n1.PayloadSHA256, n2.PayloadSHA256)
}

func TestBuildVarsRename(t *testing.T) {
	doc := ir.NewDoc()
	s := &ir.Step{ID: "s1", Op: ir.OpRename, Inputs: []string{"in"}, Outputs: []string{"out"},
		Params: map[string]any{"mapping": []any{
			map[string]any{"from": "A", "to": "A1"},
		}}}
	doc.Steps = []*ir.Step{s}

	g := BuildVars(doc)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "v:in.A", g.Edges[0].Src)
	assert.Equal(t, "v:out.A1", g.Edges[0].Dst)
}

func TestBuildVarsCompute(t *testing.T) {
	doc := ir.NewDoc()
	s := &ir.Step{ID: "s1", Op: ir.OpCompute, Inputs: []string{"in"}, Outputs: []string{"out"},
		Params: map[string]any{"assignments": []any{
			map[string]any{"target": "z", "expr": mustCanon(t, "a + b")},
		}}}
	doc.Steps = []*ir.Step{s}

	g := BuildVars(doc)
	var dsts, srcs []string
	for _, e := range g.Edges {
		srcs = append(srcs, e.Src)
		dsts = append(dsts, e.Dst)
	}
	assert.Contains(t, srcs, "v:in.a")
	assert.Contains(t, srcs, "v:in.b")
	assert.Contains(t, dsts, "v:out.z")
}
