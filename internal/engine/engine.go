package engine

import (
	"fmt"
	"sort"

	"github.com/sans-lang/sans/internal/diag"
	"github.com/sans-lang/sans/internal/ir"
	"github.com/sans-lang/sans/internal/value"
)

// Engine owns every intermediate table produced during one run, plus the
// scalar and format registries compute/filter/put() consult. Step dispatch
// iterates in declared order and aborts on the first operator failure,
// mirroring database/database.go's RunDDLs.
type Engine struct {
	Tables     map[string]*Table
	scalars    map[string]value.Value
	formats    map[string]*FormatDef
	SaveWriter SaveWriter

	// LoopLimit and NestingDepthCap bound data_step do-loop execution
	// (SANS_RUNTIME_LOOP_LIMIT, SANS_RUNTIME_CONTROL_DEPTH). Zero means
	// "use the engine's built-in default," matching config.Default().
	LoopLimit       int
	NestingDepthCap int
}

// SaveWriter persists a save step's materialized table to its destination.
// internal/csvio and internal/xpt implement this for CSV/XPT formats
// respectively; the engine never opens a file handle itself.
type SaveWriter interface {
	Write(path, format string, t *Table) error
}

func New(saveWriter SaveWriter) *Engine {
	return &Engine{
		Tables:     map[string]*Table{},
		formats:    map[string]*FormatDef{},
		scalars:    map[string]value.Value{},
		SaveWriter: saveWriter,
	}
}

// Bind registers an externally-loaded table (e.g. from a datasource) under
// name, making it available as a step input.
func (e *Engine) Bind(name string, t *Table) {
	e.Tables[name] = t
}

// Run executes every non-sentinel step of doc in order. It returns on the
// first failing step.
func (e *Engine) Run(doc *ir.IRDoc) *diag.Diagnostic {
	for _, step := range doc.Steps {
		if step.Unknown != nil {
			continue // structural validation already classified severity
		}
		if derr := e.runStep(step); derr != nil {
			return derr
		}
	}
	return nil
}

func (e *Engine) input(name string, loc diag.Loc) (*Table, *diag.Diagnostic) {
	t, ok := e.Tables[name]
	if !ok {
		return nil, diag.New(diag.ESansRuntimeInputNotFound, "input table not found: "+name, &loc)
	}
	return t, nil
}

func (e *Engine) runStep(s *ir.Step) *diag.Diagnostic {
	switch s.Op {
	case ir.OpIdentity:
		return e.execIdentity(s)
	case ir.OpCompute:
		return e.execCompute(s)
	case ir.OpFilter:
		return e.execFilter(s)
	case ir.OpSelect:
		return e.execSelect(s)
	case ir.OpRename:
		return e.execRename(s)
	case ir.OpSort:
		return e.execSort(s)
	case ir.OpAggregate:
		return e.execAggregate(s)
	case ir.OpSQLSelect:
		return e.execSQLSelect(s)
	case ir.OpFormat:
		return e.execFormat(s)
	case ir.OpTranspose:
		return e.execTranspose(s)
	case ir.OpSave:
		return e.execSave(s)
	case ir.OpAssert:
		return e.execAssert(s)
	case ir.OpLetScalar:
		return e.execLetScalar(s)
	case ir.OpDataStep:
		return e.execDataStep(s)
	default:
		l := s.Loc
		return diag.New(diag.ESansCapUnsupported, "unsupported operator: "+string(s.Op), &l)
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func paramStringSlice(params map[string]any, key string) []string {
	raw, _ := params[key].([]any)
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func errf(code diag.Code, loc diag.Loc, format string, args ...any) *diag.Diagnostic {
	return diag.New(code, fmt.Sprintf(format, args...), &loc)
}
