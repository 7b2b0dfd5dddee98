// Package ir implements the intermediate representation: step algebra,
// structural validation, and content-addressed identity. The cycle/topology
// check in Validate generalizes schema/tsort.go's DFS three-color
// topological sort from DDL-object dependency edges to step input/output
// table edges.
package ir

import (
	"fmt"
	"sort"

	"github.com/sans-lang/sans/internal/diag"
	"github.com/sans-lang/sans/internal/value"
)

// Op is the closed set of step operators.
type Op string

const (
	OpDatasource Op = "datasource"
	OpIdentity   Op = "identity"
	OpCompute    Op = "compute"
	OpFilter     Op = "filter"
	OpSelect     Op = "select"
	OpRename     Op = "rename"
	OpSort       Op = "sort"
	OpAggregate  Op = "aggregate"
	OpSQLSelect  Op = "sql_select"
	OpFormat     Op = "format"
	OpTranspose  Op = "transpose"
	OpDataStep   Op = "data_step"
	OpSave       Op = "save"
	OpAssert     Op = "assert"
	OpLetScalar  Op = "let_scalar"
)

// UnknownBlockStep carries a compile-time refusal as an in-band step.
type UnknownBlockStep struct {
	Code     diag.Code `json:"code"`
	Message  string    `json:"message"`
	Severity string    `json:"severity"`
	Loc      diag.Loc  `json:"loc"`
}

// Step is a single IR operation. Unknown is non-nil for UnknownBlockStep
// sentinels; Op/Inputs/Outputs/Params are meaningless in that case.
type Step struct {
	ID      string
	Op      Op
	Inputs  []string
	Outputs []string
	Params  map[string]any
	Loc     diag.Loc
	Unknown *UnknownBlockStep
}

// ColumnFact describes one statically-known column.
type ColumnFact struct {
	Name string
	Type value.Type
}

// TableFact summarizes static facts about a table: its column set and types,
// when known.
type TableFact struct {
	Columns []ColumnFact
	Known   bool
}

// DatasourceDecl binds an external table name to a CSV source.
type DatasourceDecl struct {
	Kind         string // "csv" | "inline_csv"
	Path         string
	InlineText   string
	InlineSHA256 string
	Columns      []ColumnFact // optional pinned schema
}

// IRDoc is the full intermediate representation of one compiled script.
type IRDoc struct {
	Version     string
	Steps       []*Step
	Tables      map[string]bool // externally bound table names
	TableFacts  map[string]TableFact
	Datasources map[string]DatasourceDecl
}

func NewDoc() *IRDoc {
	return &IRDoc{
		Version:     "0.1",
		Tables:      map[string]bool{},
		TableFacts:  map[string]TableFact{},
		Datasources: map[string]DatasourceDecl{},
	}
}

// IsFatalSentinel reports whether doc is a single fatal UnknownBlockStep
// replacing the whole plan.
func (d *IRDoc) IsFatalSentinel() bool {
	return len(d.Steps) == 1 && d.Steps[0].Unknown != nil && d.Steps[0].Unknown.Severity == string(diag.SeverityFatal)
}

// Validate checks the structural invariants in spec.md §3. It never mutates
// any step's params. strict escalates unreachable-step warnings to a fatal
// refusal.
func (d *IRDoc) Validate(strict bool) *diag.Bag {
	bag := &diag.Bag{}

	if d.IsFatalSentinel() {
		s := d.Steps[0]
		bag.Add(&diag.Diagnostic{Code: s.Unknown.Code, Message: s.Unknown.Message, Loc: &s.Unknown.Loc, Severity: diag.SeverityFatal})
		return bag
	}

	produced := map[string]*Step{}
	savedDestinations := map[string]string{} // path -> step id
	anySave := false

	// First pass: duplicate-output and duplicate-save-destination checks.
	for _, s := range d.Steps {
		if s.Unknown != nil {
			sev := diag.SeverityWarning
			if s.Unknown.Severity == string(diag.SeverityFatal) {
				sev = diag.SeverityFatal
			}
			bag.Add(&diag.Diagnostic{Code: s.Unknown.Code, Message: s.Unknown.Message, Loc: &s.Unknown.Loc, Severity: sev})
			continue
		}
		for _, out := range s.Outputs {
			if prev, exists := produced[out]; exists {
				l := s.Loc
				bag.Add(diag.New(diag.ESansValidateDupOutput,
					fmt.Sprintf("table %q is produced by both step %q and step %q", out, prev.ID, s.ID), &l))
			} else {
				produced[out] = s
			}
		}
		if s.Op == OpSave {
			anySave = true
			if path, ok := s.Params["path"].(string); ok {
				if prevID, exists := savedDestinations[path]; exists {
					l := s.Loc
					bag.Add(diag.New(diag.ESansValidateDupSaveDest,
						fmt.Sprintf("save destination %q is written by both step %q and step %q", path, prevID, s.ID), &l))
				} else {
					savedDestinations[path] = s.ID
				}
			}
		}
	}

	if !anySave {
		bag.Add(diag.New(diag.ESansValidateNoSave, "a runnable IR document must contain at least one save step", nil))
	}

	// Second pass: input resolution + topological/cycle check via DFS
	// three-color marking, mirroring schema/tsort.go's topologicalSort.
	visited := map[string]int{} // 0=unvisited 1=visiting 2=visited
	byID := map[string]*Step{}
	order := map[string]int{}
	for i, s := range d.Steps {
		if s.Unknown == nil {
			byID[s.ID] = s
			order[s.ID] = i
		}
	}

	var visit func(id string) bool
	visit = func(id string) bool {
		switch visited[id] {
		case 2:
			return true
		case 1:
			return false
		}
		visited[id] = 1
		s := byID[id]
		for _, in := range s.Inputs {
			if producer, ok := produced[in]; ok {
				if order[producer.ID] >= order[id] {
					l := s.Loc
					bag.Add(diag.New(diag.ESansValidateCycle,
						fmt.Sprintf("step %q consumes table %q before it is produced (not in topological order)", id, in), &l))
					return false
				}
				if !visit(producer.ID) {
					return false
				}
			} else if !d.Tables[in] {
				l := s.Loc
				bag.Add(diag.New(diag.ESansValidateUndeclared,
					fmt.Sprintf("table %q is neither an external binding nor produced by an earlier step", in), &l))
			}
		}
		visited[id] = 2
		return true
	}
	for _, s := range d.Steps {
		if s.Unknown == nil {
			visit(s.ID)
		}
	}

	// Dangling tables: produced but never consumed and never saved.
	consumed := map[string]bool{}
	savedInputs := map[string]bool{}
	for _, s := range d.Steps {
		if s.Unknown != nil {
			continue
		}
		for _, in := range s.Inputs {
			consumed[in] = true
		}
		if s.Op == OpSave {
			for _, in := range s.Inputs {
				savedInputs[in] = true
			}
		}
	}
	var dangling []string
	for name := range produced {
		if !consumed[name] && !savedInputs[name] {
			dangling = append(dangling, name)
		}
	}
	sort.Strings(dangling)
	for _, name := range dangling {
		sev := diag.SeverityWarning
		if strict {
			sev = diag.SeverityFatal
		}
		code := diag.ESansValidateUnreachable
		bag.Add(&diag.Diagnostic{Code: code, Message: fmt.Sprintf("table %q is produced but never consumed or saved", name), Severity: sev})
	}

	return bag
}
