// Package graphart builds the bipartite step/table dependency graph artifact
// (`artifacts/graph.json`). It is built entirely on internal/canon for
// hashing and serialization; a bipartite sorted-edge-list has no natural
// graph-library analogue anywhere in the retrieval pack, so there is nothing
// to wire a third-party dependency into here.
package graphart

import (
	"sort"

	"github.com/sans-lang/sans/internal/canon"
	"github.com/sans-lang/sans/internal/ir"
)

// Node is one step or table vertex in the dependency graph.
type Node struct {
	ID               string   `json:"id"`
	Kind             string   `json:"kind"` // "step" | "table"
	TransformClassID string   `json:"transform_class_id,omitempty"`
	PayloadSHA256    string   `json:"payload_sha256,omitempty"`
	Inputs           []string `json:"inputs,omitempty"`
	Outputs          []string `json:"outputs,omitempty"`
}

// Edge connects a table and a step. Kind is "consumes" (table -> step) or
// "produces" (step -> table).
type Edge struct {
	Src  string `json:"src"`
	Dst  string `json:"dst"`
	Kind string `json:"kind"`
}

// Graph is the full artifact: nodes and edges, both in a fixed sort order so
// the artifact is byte-stable across runs of the same IR.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Build walks doc's steps and derives the bipartite consumes/produces graph.
// Step nodes carry the literal-sensitive transform_id as payload_sha256 (so
// an edit to a literal constant changes the node's payload while
// transform_class_id stays the same for the same operator shape); table
// nodes carry a payload hash over their known static facts when present, else
// over the table's datasource kind and path when it has a datasource entry,
// or over just the table name otherwise.
func Build(doc *ir.IRDoc) *Graph {
	tableConsumers := map[string][]string{} // table -> step ids that read it
	tableProducers := map[string][]string{} // table -> step ids that write it

	var edges []Edge
	var stepNodes []Node

	for _, s := range doc.Steps {
		if s.Unknown != nil {
			continue
		}
		classID := s.TransformClassID()
		payload := s.TransformID()
		inputs := append([]string(nil), s.Inputs...)
		outputs := append([]string(nil), s.Outputs...)
		sort.Strings(inputs)
		sort.Strings(outputs)
		stepNodes = append(stepNodes, Node{
			ID:               s.ID,
			Kind:             "step",
			TransformClassID: classID,
			PayloadSHA256:    payload,
			Inputs:           inputs,
			Outputs:          outputs,
		})
		for _, in := range s.Inputs {
			tableConsumers[in] = append(tableConsumers[in], s.ID)
			edges = append(edges, Edge{Src: in, Dst: s.ID, Kind: "consumes"})
		}
		for _, out := range s.Outputs {
			tableProducers[out] = append(tableProducers[out], s.ID)
			edges = append(edges, Edge{Src: s.ID, Dst: out, Kind: "produces"})
		}
	}

	tableNames := map[string]bool{}
	for t := range tableConsumers {
		tableNames[t] = true
	}
	for t := range tableProducers {
		tableNames[t] = true
	}

	var tableNodes []Node
	for name := range tableNames {
		producers := append([]string(nil), tableProducers[name]...)
		consumers := append([]string(nil), tableConsumers[name]...)
		sort.Strings(producers)
		sort.Strings(consumers)
		tableNodes = append(tableNodes, Node{
			ID:            name,
			Kind:          "table",
			PayloadSHA256: tablePayload(name, doc),
			Inputs:        producers,
			Outputs:       consumers,
		})
	}

	nodes := append(stepNodes, tableNodes...)
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Kind != nodes[j].Kind {
			return nodes[i].Kind < nodes[j].Kind
		}
		return nodes[i].ID < nodes[j].ID
	})
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Src != edges[j].Src {
			return edges[i].Src < edges[j].Src
		}
		if edges[i].Dst != edges[j].Dst {
			return edges[i].Dst < edges[j].Dst
		}
		return edges[i].Kind < edges[j].Kind
	})

	return &Graph{Nodes: nodes, Edges: edges}
}

func tablePayload(name string, doc *ir.IRDoc) string {
	if fact, ok := doc.TableFacts[name]; ok && fact.Known {
		cols := make([]any, len(fact.Columns))
		for i, c := range fact.Columns {
			cols[i] = map[string]any{"name": c.Name, "type": string(c.Type)}
		}
		return canon.HashOf(map[string]any{"table": name, "columns": cols})
	}
	if ds, ok := doc.Datasources[name]; ok {
		return canon.HashOf(map[string]any{"table": name, "datasource_kind": ds.Kind, "path": ds.Path})
	}
	return canon.HashOf(map[string]any{"table": name})
}

// MarshalJSON renders g as canonical JSON bytes.
func (g *Graph) MarshalJSON() []byte {
	nodes := make([]any, len(g.Nodes))
	for i, n := range g.Nodes {
		m := map[string]any{"id": n.ID, "kind": n.Kind}
		if n.TransformClassID != "" {
			m["transform_class_id"] = n.TransformClassID
		}
		if n.PayloadSHA256 != "" {
			m["payload_sha256"] = n.PayloadSHA256
		}
		if len(n.Inputs) > 0 {
			m["inputs"] = stringsToAny(n.Inputs)
		}
		if len(n.Outputs) > 0 {
			m["outputs"] = stringsToAny(n.Outputs)
		}
		nodes[i] = m
	}
	edges := make([]any, len(g.Edges))
	for i, e := range g.Edges {
		edges[i] = map[string]any{"src": e.Src, "dst": e.Dst, "kind": e.Kind}
	}
	return canon.Marshal(map[string]any{"nodes": nodes, "edges": edges})
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
