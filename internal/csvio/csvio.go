// Package csvio implements the CSV datasource reader and save writer from
// spec.md §4.7: RFC-4180 quoting via the standard library's encoding/csv (no
// ecosystem CSV library in the retrieval pack improves on it), CRLF/CR
// normalization before tokenization, and a typed-coercion diagnostic report
// grounded on evidence.py's accumulate-then-summarize collector idiom.
package csvio

import (
	"encoding/csv"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/sans-lang/sans/internal/diag"
	"github.com/sans-lang/sans/internal/engine"
	"github.com/sans-lang/sans/internal/ir"
	"github.com/sans-lang/sans/internal/value"
)

// maxCoercionSamples caps how many failing rows a single coercion failure
// reports, mirroring evidence.py's sample cap idiom at a much smaller K.
const maxCoercionSamples = 5

// ColumnFact re-exports ir.ColumnFact for readability at call sites.
type ColumnFact = ir.ColumnFact

type coercionFailure struct {
	reason  string
	samples []sampleRow
	count   int
}

type sampleRow struct {
	row int
	raw string
}

// ReadFile loads a CSV table. When pinned is non-empty it is the
// datasource's declared column/type list: the header is checked against it
// (SANS_RUNTIME_DATASOURCE_SCHEMA_MISMATCH on mismatch) and every cell is
// coerced to its declared type (E_CSV_COERCE on any failure, across the
// whole column, not just the first bad row). Without a pinned schema every
// column is read as STRING and empty tokens become NULL.
func ReadFile(path string, pinned []ColumnFact, loc diag.Loc) (*engine.Table, *diag.Diagnostic) {
	f, err := os.Open(path)
	if err != nil {
		return nil, diag.New(diag.ESansRuntimeInputNotFound, fmt.Sprintf("cannot open %q: %s", path, err), &loc)
	}
	defer f.Close()

	raw, err := readAllNormalized(f)
	if err != nil {
		return nil, diag.New(diag.ESansRuntimeInputNotFound, fmt.Sprintf("cannot read %q: %s", path, err), &loc)
	}
	return readCSV(path, raw, pinned, loc)
}

// ReadString loads a CSV table from an inline_csv datasource's already-
// decoded text (spec.md §3/§4.6) rather than a file on disk. source labels
// the datasource by name in any diagnostic raised, mirroring ReadFile's use
// of the file path for the same purpose.
func ReadString(source, text string, pinned []ColumnFact, loc diag.Loc) (*engine.Table, *diag.Diagnostic) {
	raw := strings.ReplaceAll(strings.ReplaceAll(text, "\r\n", "\n"), "\r", "\n")
	return readCSV(source, raw, pinned, loc)
}

func readCSV(source, raw string, pinned []ColumnFact, loc diag.Loc) (*engine.Table, *diag.Diagnostic) {
	r := csv.NewReader(strings.NewReader(raw))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, diag.New(diag.ECSVCoerce, fmt.Sprintf("malformed CSV in %q: %s", source, err), &loc)
	}
	if len(records) == 0 {
		return nil, diag.New(diag.ESansRuntimeInputNotFound, fmt.Sprintf("%q has no header row", source), &loc)
	}
	header := records[0]
	rows := records[1:]

	if len(pinned) > 0 {
		if derr := checkHeader(header, pinned, source, loc); derr != nil {
			return nil, derr
		}
		return readTyped(header, rows, pinned, source, loc)
	}
	return readUntyped(header, rows), nil
}

func checkHeader(header []string, pinned []ColumnFact, path string, loc diag.Loc) *diag.Diagnostic {
	if len(header) != len(pinned) {
		return diag.New(diag.ESansRuntimeDatasourceSchemaMismatch,
			fmt.Sprintf("%q: header has %d columns, expected %d", path, len(header), len(pinned)), &loc)
	}
	for i, c := range pinned {
		if header[i] != c.Name {
			return diag.New(diag.ESansRuntimeDatasourceSchemaMismatch,
				fmt.Sprintf("%q: column %d is %q, expected %q", path, i, header[i], c.Name), &loc)
		}
	}
	return nil
}

func readUntyped(header []string, rows [][]string) *engine.Table {
	t := engine.NewTable(header)
	for _, rec := range rows {
		row := make([]value.Value, len(header))
		for i := range header {
			if i < len(rec) && rec[i] != "" {
				row[i] = value.Str(rec[i])
			} else {
				row[i] = value.Null()
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func readTyped(header []string, rows [][]string, pinned []ColumnFact, path string, loc diag.Loc) (*engine.Table, *diag.Diagnostic) {
	t := engine.NewTable(header)
	failures := map[string]*coercionFailure{}

	for rowIdx, rec := range rows {
		row := make([]value.Value, len(header))
		for i, col := range pinned {
			raw := ""
			if i < len(rec) {
				raw = rec[i]
			}
			if strings.TrimSpace(raw) == "" {
				row[i] = value.Null()
				continue
			}
			v, reason, ok := coerce(raw, col.Type)
			if !ok {
				f := failures[col.Name]
				if f == nil {
					f = &coercionFailure{reason: reason}
					failures[col.Name] = f
				}
				f.count++
				if len(f.samples) < maxCoercionSamples {
					f.samples = append(f.samples, sampleRow{row: rowIdx + 2, raw: raw}) // +2: 1-indexed, header consumes row 1
				}
				continue
			}
			row[i] = v
		}
		t.Rows = append(t.Rows, row)
	}

	if len(failures) > 0 {
		return nil, coercionDiagnostic(path, header, pinned, failures, loc)
	}
	return t, nil
}

func coercionDiagnostic(path string, header []string, pinned []ColumnFact, failures map[string]*coercionFailure, loc diag.Loc) *diag.Diagnostic {
	var parts []string
	for _, col := range pinned {
		f, ok := failures[col.Name]
		if !ok {
			continue
		}
		var samples []string
		for _, s := range f.samples {
			samples = append(samples, fmt.Sprintf("row %d=%q", s.row, s.raw))
		}
		parts = append(parts, fmt.Sprintf("column %q (%s, %d failures): %s [%s]",
			col.Name, f.reason, f.count, col.Type, strings.Join(samples, ", ")))
	}
	return diag.New(diag.ECSVCoerce, fmt.Sprintf("%q: typed coercion failed: %s", path, strings.Join(parts, "; ")), &loc)
}

func coerce(raw string, t value.Type) (value.Value, string, bool) {
	switch t {
	case value.TInt:
		d, ok := value.ParseDecimal(raw)
		if !ok || d.Exponent != 0 {
			return value.Value{}, "invalid_int", false
		}
		coeff := new(big.Int).Set(d.Coefficient)
		if d.Negative {
			coeff.Neg(coeff)
		}
		return value.IntFromBig(coeff), "", true
	case value.TDecimal:
		d, ok := value.ParseDecimal(raw)
		if !ok {
			return value.Value{}, "invalid_decimal", false
		}
		return value.Dec(d), "", true
	case value.TBool:
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "true", "1":
			return value.Bool(true), "", true
		case "false", "0":
			return value.Bool(false), "", true
		default:
			return value.Value{}, "invalid_bool", false
		}
	default:
		return value.Str(raw), "", true
	}
}

// readAllNormalized reads f and rewrites CRLF/CR line endings to LF before
// any CSV tokenization happens, per spec.md §4.7.
func readAllNormalized(f *os.File) (string, error) {
	buf := make([]byte, 0, 64*1024)
	chunk := make([]byte, 32*1024)
	for {
		n, err := f.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			break
		}
	}
	s := string(buf)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return s, nil
}
