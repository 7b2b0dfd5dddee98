// Package diag holds source locations, error codes, and refusal objects shared
// by every front-end, validation, and runtime stage.
package diag

import "fmt"

// Loc is a source location span. A zero Loc means "no location" (e.g. a
// refusal produced before any file was read).
type Loc struct {
	File      string `json:"file"`
	LineStart int    `json:"line_start"`
	LineEnd   int    `json:"line_end"`
}

// Severity classifies a Diagnostic.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityFatal   Severity = "fatal"
)

// Code namespaces, per spec:
//
//	SANS_PARSE_*    front-end
//	SANS_VALIDATE_* IR structure
//	SANS_CAP_*      unsupported capabilities
//	SANS_RUNTIME_*  execution
//	E_TYPE*         type inference
//	E_CSV_COERCE, E_BAD_EXPR, E_LEGACY_EXPR,
//	E_AMEND_VALIDATION_SCHEMA, E_UNDECLARED_SOURCE
type Code string

const (
	ESansParseSQLDetected             Code = "SANS_PARSE_SQL_DETECTED"
	ESansParseSQLUnsupportedForm      Code = "SANS_PARSE_SQL_UNSUPPORTED_FORM"
	ESansParseUnsupportedStatement    Code = "SANS_PARSE_UNSUPPORTED_STATEMENT"
	ESansParseUnsupportedProc         Code = "SANS_PARSE_UNSUPPORTED_PROC"
	ESansParseFormatUnsupportedStmt   Code = "SANS_PARSE_FORMAT_UNSUPPORTED_STATEMENT"
	ESansParseLoopBoundUnsupported    Code = "SANS_PARSE_LOOP_BOUND_UNSUPPORTED"
	ESansParseMacroError              Code = "SANS_PARSE_MACRO_ERROR"

	ESansValidateCycle        Code = "SANS_VALIDATE_CYCLE"
	ESansValidateDupOutput    Code = "SANS_VALIDATE_DUPLICATE_OUTPUT"
	ESansValidateUndeclared   Code = "SANS_VALIDATE_UNDECLARED_INPUT"
	ESansValidateNoSave       Code = "SANS_VALIDATE_NO_SAVE"
	ESansValidateUnreachable  Code = "SANS_VALIDATE_UNREACHABLE_STEP"
	ESansValidateDupSaveDest  Code = "SANS_VALIDATE_DUPLICATE_SAVE_DESTINATION"

	ESansCapUnsupported Code = "SANS_CAP_UNSUPPORTED"

	ESansRuntimeInputNotFound          Code = "SANS_RUNTIME_INPUT_NOT_FOUND"
	ESansRuntimeDatasourceSchemaMismatch Code = "SANS_RUNTIME_DATASOURCE_SCHEMA_MISMATCH"
	ESansRuntimeType                   Code = "SANS_RUNTIME_TYPE"
	ESansRuntimeDivideByZero           Code = "SANS_RUNTIME_DIVIDE_BY_ZERO"
	ESansRuntimeUnsupportedExprNode    Code = "SANS_RUNTIME_UNSUPPORTED_EXPR_NODE"
	ESansRuntimeAssert                 Code = "SANS_RUNTIME_ASSERT"
	ESansRuntimeSQLAmbiguousColumn     Code = "SANS_RUNTIME_SQL_AMBIGUOUS_COLUMN"
	ESansRuntimeFormatUndefined        Code = "SANS_RUNTIME_FORMAT_UNDEFINED"
	ESansRuntimeInformatUnsupported    Code = "SANS_RUNTIME_INFORMAT_UNSUPPORTED"
	ESansRuntimeLoopLimit              Code = "SANS_RUNTIME_LOOP_LIMIT"
	ESansRuntimeControlDepth           Code = "SANS_RUNTIME_CONTROL_DEPTH"
	ESansRuntimeMissingColumn          Code = "SANS_RUNTIME_MISSING_COLUMN"
	ESansRuntimeDuplicateRename        Code = "SANS_RUNTIME_DUPLICATE_RENAME"
	ESansRuntimeXPTCharWidth           Code = "SANS_RUNTIME_XPT_CHAR_WIDTH"
	ESansRuntimeXPTCorrupt             Code = "SANS_RUNTIME_XPT_CORRUPT"
	ESansRuntimeDuplicateBinding       Code = "SANS_RUNTIME_DUPLICATE_BINDING"
	ESansRuntimeSaveIOError            Code = "SANS_RUNTIME_SAVE_IO_ERROR"

	ETypeUnknown Code = "E_TYPE_UNKNOWN"

	ECSVCoerce              Code = "E_CSV_COERCE"
	EBadExpr                Code = "E_BAD_EXPR"
	ELegacyExpr             Code = "E_LEGACY_EXPR"
	EAmendValidationSchema  Code = "E_AMEND_VALIDATION_SCHEMA"
)

// Diagnostic is the single error/warning shape used across every stage.
type Diagnostic struct {
	Code     Code     `json:"code"`
	Message  string   `json:"message"`
	Loc      *Loc     `json:"loc,omitempty"`
	Severity Severity `json:"severity"`
}

func (d *Diagnostic) Error() string {
	if d.Loc != nil {
		return fmt.Sprintf("%s: %s (%s:%d-%d)", d.Code, d.Message, d.Loc.File, d.Loc.LineStart, d.Loc.LineEnd)
	}
	return fmt.Sprintf("%s: %s", d.Code, d.Message)
}

// New builds a fatal Diagnostic.
func New(code Code, message string, loc *Loc) *Diagnostic {
	return &Diagnostic{Code: code, Message: message, Loc: loc, Severity: SeverityFatal}
}

// Warn builds a warning Diagnostic.
func Warn(code Code, message string, loc *Loc) *Diagnostic {
	return &Diagnostic{Code: code, Message: message, Loc: loc, Severity: SeverityWarning}
}

// Bag accumulates diagnostics produced across a pass. It never aborts the
// pass by itself; callers decide when a fatal entry should stop processing.
type Bag struct {
	Items []*Diagnostic
}

func (b *Bag) Add(d *Diagnostic) {
	b.Items = append(b.Items, d)
}

func (b *Bag) HasFatal() bool {
	for _, d := range b.Items {
		if d.Severity == SeverityFatal {
			return true
		}
	}
	return false
}

func (b *Bag) Warnings() []*Diagnostic {
	var out []*Diagnostic
	for _, d := range b.Items {
		if d.Severity == SeverityWarning {
			out = append(out, d)
		}
	}
	return out
}
