// Package schemainfer implements deterministic CSV schema inference for
// schema-lock generation only. It is a line-for-line port of
// original_source/sans/sans/schema_infer.py's monotonic column-type
// inference: scan up to a row cap, classify each token into a per-row kind,
// then fold each column's kinds into a single type by a fixed precedence
// (string > decimal > int > bool; a column with no non-null token is string).
// It is never consulted during a
// normal run — only by `emit-ir --schema-lock` when the lock file doesn't
// exist yet, and by the standalone `schema-lock` subcommand.
package schemainfer

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/sans-lang/sans/internal/value"
)

// DefaultMaxRows is the row-scan cap applied when no explicit limit is given.
const DefaultMaxRows = 10000

// Column is one inferred {name, type} pair, in header order.
type Column struct {
	Name string
	Type value.Type
}

// Result carries the inferred columns plus how much of the input was
// actually scanned.
type Result struct {
	Columns     []Column
	RowsScanned int
	Truncated   bool
}

type tokenKind int

const (
	kindNull tokenKind = iota
	kindString
	kindDecimal
	kindInt
	kindBool
)

// Infer scans r (a CSV reader positioned at the start of the input,
// including its header row) up to maxRows data rows and infers one type per
// column. A non-positive maxRows is clamped to zero (header only).
func Infer(r io.Reader, maxRows int) (Result, error) {
	if maxRows < 0 {
		maxRows = 0
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, err
	}
	if len(header) == 0 {
		return Result{}, nil
	}

	names := make([]string, len(header))
	for i, h := range header {
		trimmed := strings.TrimSpace(h)
		if trimmed == "" {
			trimmed = "_col" + strconv.Itoa(i)
		}
		names[i] = trimmed
	}

	kinds := make([][]tokenKind, len(names))
	rowsScanned := 0
	truncated := false
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, err
		}
		if rowsScanned >= maxRows {
			truncated = true
			break
		}
		for i := range names {
			token := ""
			if i < len(row) {
				token = row[i]
			}
			kinds[i] = append(kinds[i], tokenKindOf(token))
		}
		rowsScanned++
	}

	cols := make([]Column, len(names))
	for i, name := range names {
		cols[i] = Column{Name: name, Type: inferColumnType(kinds[i])}
	}
	return Result{Columns: cols, RowsScanned: rowsScanned, Truncated: truncated}, nil
}

func tokenKindOf(s string) tokenKind {
	t := strings.TrimSpace(s)
	if t == "" {
		return kindNull
	}
	lower := strings.ToLower(t)
	if lower == "true" || lower == "false" {
		return kindBool
	}
	if tokenRequiresString(t) {
		return kindString
	}
	if strings.ContainsAny(t, ".eE") {
		if _, ok := value.ParseDecimal(t); ok {
			return kindDecimal
		}
		return kindString
	}
	if _, err := strconv.ParseInt(t, 10, 64); err == nil {
		return kindInt
	}
	if _, ok := value.ParseDecimal(t); ok {
		return kindDecimal
	}
	return kindString
}

// tokenRequiresString flags leading-zero integer-looking tokens (and their
// negated form) as string, matching _token_requires_string's rule and
// spec.md §3's "leading-zero integer-looking tokens are STRING" invariant.
func tokenRequiresString(t string) bool {
	if isAllDigits(t) && len(t) > 1 && t[0] == '0' {
		return true
	}
	if strings.HasPrefix(t, "-") {
		rest := t[1:]
		if isAllDigits(rest) && len(rest) > 1 && rest[0] == '0' {
			return true
		}
	}
	return false
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// inferColumnType folds kinds per _infer_column_type's monotonic precedence:
// any string -> string; else any decimal -> decimal; else any int -> int;
// else all-bool -> bool; else (all null) -> string.
func inferColumnType(kinds []tokenKind) value.Type {
	sawString, sawDecimal, sawInt, sawBool, sawAny := false, false, false, false, false
	for _, k := range kinds {
		switch k {
		case kindNull:
			continue
		case kindString:
			sawString, sawAny = true, true
		case kindDecimal:
			sawDecimal, sawAny = true, true
		case kindInt:
			sawInt, sawAny = true, true
		case kindBool:
			sawBool, sawAny = true, true
		}
	}
	if !sawAny {
		return value.TString
	}
	if sawString {
		return value.TString
	}
	if sawDecimal {
		return value.TDecimal
	}
	if sawInt {
		return value.TInt
	}
	if sawBool {
		return value.TBool
	}
	return value.TString
}
