// Package amend implements the structured-patch IR amendment engine:
// validate an amendment request against the schema rules spec.md §4.10
// lists, then apply it to a copy of the IR document. There is no direct
// teacher analogue (sqldef has no patch engine); the shape is grounded on
// schema/generator.go's general "diff desired against current, validate each
// requested change, refuse destructive ones unless explicitly enabled" idiom,
// with `policy.allow_destructive` playing the role of
// database/database.go's RunDDLs `options.SkipDrop` gate.
package amend

import "github.com/sans-lang/sans/internal/diag"

// Refusal is one schema-validation failure. Every refusal in this package
// carries the same code; the message distinguishes cases.
type Refusal struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DiffEntry records one applied change for the diff_structural/diff_assertions
// report sections.
type DiffEntry struct {
	OpID   string `json:"op_id"`
	Kind   string `json:"kind"`
	StepID string `json:"step_id,omitempty"`
	Path   string `json:"path,omitempty"`
	Detail string `json:"detail,omitempty"`

	isAssert bool // classifies this entry into diff_assertions vs diff_structural
}

// Result is the amendment engine's uniform response shape. IROut is omitted
// entirely (not just null) on refusal, matching the amendment contract:
// a refused request never leaks a half-applied IR document.
type Result struct {
	Status         string         `json:"status"`
	Diagnostics    map[string]any `json:"diagnostics"`
	DiffStructural []DiffEntry    `json:"diff_structural"`
	DiffAssertions []DiffEntry    `json:"diff_assertions"`
	IROut          map[string]any `json:"ir_out,omitempty"`
}

const refusalCode = string(diag.EAmendValidationSchema)

func refused(refusals []Refusal) *Result {
	return &Result{
		Status:         "refused",
		Diagnostics:    map[string]any{"refusals": refusals},
		DiffStructural: []DiffEntry{},
		DiffAssertions: []DiffEntry{},
	}
}
