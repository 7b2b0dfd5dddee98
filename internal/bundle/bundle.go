// Package bundle assembles a run's byte-stable artifact set (plan.ir.json,
// expanded.sans, preprocessed.sans, the evidence/graph artifacts, save
// outputs, and a self-hashed report.json) and re-verifies one previously
// written. It is grounded on sqldef.go's Run orchestration shape (produce
// output, then a final apply-or-report step) generalized from "apply DDL,
// report what changed" to "execute steps, report what was produced."
package bundle

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/sans-lang/sans/internal/canon"
	"github.com/sans-lang/sans/internal/diag"
	"github.com/sans-lang/sans/internal/engine"
	"github.com/sans-lang/sans/internal/evidence"
	"github.com/sans-lang/sans/internal/graphart"
	"github.com/sans-lang/sans/internal/ir"
)

// EngineVersion is stamped into every report.json's engine.version field.
const EngineVersion = "0.1.0"

// ExitBucket is the uniform exit-code taxonomy spec.md §4.9 defines.
type ExitBucket int

const (
	ExitOK               ExitBucket = 0
	ExitAmendRefusal     ExitBucket = 1
	ExitWarningsOnly     ExitBucket = 10
	ExitParseRefusal     ExitBucket = 30
	ExitValidateRefusal  ExitBucket = 31
	ExitRuntimeFailure   ExitBucket = 50
)

// Request carries everything Write needs to assemble one run's bundle.
type Request struct {
	Doc           *ir.IRDoc
	Eng           *engine.Engine // nil for a check-only run (no execution happened)
	OutDir        string
	OriginalSrc   string // original script text, for preprocessed.sans detection
	ExpandedSrc   string // macro-expanded source (lower.Result.Expanded)
	PrimaryError  *diag.Diagnostic
	Warnings      []*diag.Diagnostic
	ExitBucket    ExitBucket
	EvidenceCfg   evidence.Config
}

// fileEntry is one {path, sha256} pair in report.json's outputs/artifacts lists.
type fileEntry struct {
	path string
	sum  string
}

// Write assembles and writes every artifact req describes under req.OutDir,
// returning the canonical report document.
func Write(req Request) (map[string]any, error) {
	if err := os.MkdirAll(req.OutDir, 0o755); err != nil {
		return nil, err
	}

	var artifacts []fileEntry
	var outputs []fileEntry

	planPath := filepath.Join(req.OutDir, "plan.ir.json")
	planBytes := canon.Marshal(req.Doc.ToCanonical())
	if err := writeAndTrack(planPath, planBytes, &artifacts); err != nil {
		return nil, err
	}

	expandedPath := filepath.Join(req.OutDir, "expanded.sans")
	if err := writeAndTrack(expandedPath, []byte(RenderExpanded(req.Doc)), &artifacts); err != nil {
		return nil, err
	}

	if req.ExpandedSrc != "" && req.ExpandedSrc != req.OriginalSrc {
		prePath := filepath.Join(req.OutDir, "preprocessed.sans")
		if err := writeAndTrack(prePath, []byte(req.ExpandedSrc), &artifacts); err != nil {
			return nil, err
		}
	}

	artifactsDir := filepath.Join(req.OutDir, "artifacts")
	if err := os.MkdirAll(artifactsDir, 0o755); err != nil {
		return nil, err
	}

	graph := graphart.Build(req.Doc)
	if err := writeAndTrack(filepath.Join(artifactsDir, "graph.json"), graph.MarshalJSON(), &artifacts); err != nil {
		return nil, err
	}

	varsGraph := graphart.BuildVars(req.Doc)
	if err := writeAndTrack(filepath.Join(artifactsDir, "vars.graph.json"), varsGraph.MarshalJSON(), &artifacts); err != nil {
		return nil, err
	}

	schemaEv := schemaEvidence(req.Doc)
	if err := writeAndTrack(filepath.Join(artifactsDir, "schema.evidence.json"), canon.Marshal(schemaEv), &artifacts); err != nil {
		return nil, err
	}

	if req.Eng != nil {
		runtimeEv := runtimeEvidence(req.Eng, req.EvidenceCfg)
		if err := writeAndTrack(filepath.Join(artifactsDir, "runtime.evidence.json"), canon.Marshal(runtimeEv), &artifacts); err != nil {
			return nil, err
		}
		outputs = saveStepOutputs(req.Doc)
	}

	report := buildReport(req, outputs, artifacts)
	reportPath := filepath.Join(req.OutDir, "report.json")
	reportBytes, err := selfHashedJSON(report)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(reportPath, reportBytes, 0o644); err != nil {
		return nil, err
	}

	return report, nil
}

func writeAndTrack(path string, data []byte, artifacts *[]fileEntry) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	*artifacts = append(*artifacts, fileEntry{path: path, sum: canon.SHA256Hex(data)})
	return nil
}

func runtimeEvidence(eng *engine.Engine, cfg evidence.Config) map[string]any {
	if cfg == (evidence.Config{}) {
		cfg = evidence.DefaultConfig()
	}
	tableNames := make([]string, 0, len(eng.Tables))
	for name := range eng.Tables {
		tableNames = append(tableNames, name)
	}
	sort.Strings(tableNames)

	tables := map[string]any{}
	for _, name := range tableNames {
		tables[name] = evidence.CollectTableEvidence(eng.Tables[name], cfg)
	}
	return map[string]any{"tables": tables}
}

func schemaEvidence(doc *ir.IRDoc) map[string]any {
	names := make([]string, 0, len(doc.Datasources))
	for name := range doc.Datasources {
		names = append(names, name)
	}
	sort.Strings(names)

	out := map[string]any{}
	for _, name := range names {
		d := doc.Datasources[name]
		cols := make([]any, len(d.Columns))
		for i, c := range d.Columns {
			cols[i] = c.Name
		}
		out[name] = map[string]any{"kind": d.Kind, "columns": cols}
	}
	return map[string]any{"datasources": out}
}

// saveStepOutputs walks doc's save steps to report which files an execution
// wrote. The engine itself never tracks this (the SaveWriter owns the file
// handle); the bundle derives it statically from the IR since every save
// step's destination is a literal param.
func saveStepOutputs(doc *ir.IRDoc) []fileEntry {
	var out []fileEntry
	for _, s := range doc.Steps {
		if s.Unknown != nil || s.Op != ir.OpSave {
			continue
		}
		path, _ := s.Params["path"].(string)
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		out = append(out, fileEntry{path: path, sum: canon.SHA256Hex(data)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
	return out
}

func buildReport(req Request, outputs, artifacts []fileEntry) map[string]any {
	report := map[string]any{
		"status":           statusFor(req),
		"exit_code_bucket": int(req.ExitBucket),
		"engine":           map[string]any{"version": EngineVersion},
		"inputs":           stringsToAny(inputNames(req.Doc)),
		"outputs":          entriesToAny(outputs),
		"artifacts":        entriesToAny(artifacts),
		"runtime": map[string]any{
			"run_id": uuid.New().String(),
		},
		"self_sha256": nil,
	}
	if req.PrimaryError != nil {
		report["primary_error"] = map[string]any{
			"code":    string(req.PrimaryError.Code),
			"message": req.PrimaryError.Message,
		}
	}
	return report
}

func statusFor(req Request) string {
	if req.PrimaryError != nil {
		return "failed"
	}
	return "ok"
}

func inputNames(doc *ir.IRDoc) []string {
	names := make([]string, 0, len(doc.Datasources))
	for name := range doc.Datasources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func entriesToAny(entries []fileEntry) []any {
	out := make([]any, len(entries))
	for i, e := range entries {
		out[i] = map[string]any{"path": e.path, "sha256": e.sum}
	}
	return out
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// selfHashedJSON implements spec.md §4.9's self-hash procedure: serialize
// with self_sha256 set to the sentinel nil, hash those canonical bytes, then
// write the hash back into the same field and re-serialize.
func selfHashedJSON(report map[string]any) ([]byte, error) {
	report["self_sha256"] = nil
	sentinelBytes := canon.Marshal(report)
	sum := canon.SHA256Hex(sentinelBytes)
	report["self_sha256"] = sum
	return canon.Marshal(report), nil
}

// Verify reads the report.json at reportPath, re-derives the hash of every
// file it lists and compares against the recorded digests, including the
// report's own self-hash. It returns nil only if every digest matches. A
// bundle directory is not accepted here; the caller resolves it to its
// report.json first.
func Verify(reportPath string) error {
	data, err := os.ReadFile(reportPath)
	if err != nil {
		return err
	}
	report, err := canon.DecodeObject(data)
	if err != nil {
		return err
	}

	recordedSelf, _ := report["self_sha256"].(string)
	check := map[string]any{}
	for k, val := range report {
		check[k] = val
	}
	check["self_sha256"] = nil
	recomputed := canon.SHA256Hex(canon.Marshal(check))
	if recomputed != recordedSelf {
		return fmt.Errorf("report self-hash mismatch: recorded %s, recomputed %s", recordedSelf, recomputed)
	}

	for _, section := range []string{"outputs", "artifacts"} {
		items, _ := report[section].([]any)
		for _, it := range items {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			path, _ := m["path"].(string)
			wantSum, _ := m["sha256"].(string)
			gotBytes, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("%s: cannot read %q: %w", section, path, err)
			}
			gotSum := canon.SHA256Hex(gotBytes)
			if gotSum != wantSum {
				return fmt.Errorf("%s: %q hash mismatch: recorded %s, recomputed %s", section, path, wantSum, gotSum)
			}
		}
	}
	return nil
}

