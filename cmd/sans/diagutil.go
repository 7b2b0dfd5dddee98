package main

import (
	"strings"

	"github.com/sans-lang/sans/internal/bundle"
	"github.com/sans-lang/sans/internal/diag"
)

// classifyBag maps a validation bag to the uniform exit-code taxonomy
// spec.md §4.9 defines: the first fatal diagnostic becomes primaryError and
// decides parse-vs-validate refusal by its code namespace; otherwise any
// warnings bump the bucket to warnings-only.
func classifyBag(bag *diag.Bag) (bundle.ExitBucket, *diag.Diagnostic, []*diag.Diagnostic) {
	var warnings []*diag.Diagnostic
	for _, d := range bag.Items {
		if d.Severity == diag.SeverityFatal {
			return exitBucketForCode(d.Code), d, warnings
		}
		warnings = append(warnings, d)
	}
	if len(warnings) > 0 {
		return bundle.ExitWarningsOnly, nil, warnings
	}
	return bundle.ExitOK, nil, nil
}

func exitBucketForCode(code diag.Code) bundle.ExitBucket {
	if strings.HasPrefix(string(code), "SANS_PARSE_") {
		return bundle.ExitParseRefusal
	}
	return bundle.ExitValidateRefusal
}
