package main

import (
	"regexp"
	"strings"
)

// boolChainLine matches a rendered step line's trailing `{ ... }` params
// block, capturing its interior.
var boolChainLine = regexp.MustCompile(`^(.*\{ )(.+)( \})\n?$`)

// parenthesizeBoolChains implements fmt's --style v0: it wraps the `{ ... }`
// params block of any rendered line (whatever the step's op) containing a
// bare `and`/`or` word in one extra pair of parentheses, for a reader migrating from a house style that always
// parenthesizes boolean chains. v1 (the default) leaves such chains bare.
// This is a line-oriented postprocessing of internal/bundle.RenderExpanded's
// already-canonical output, not a second expression printer.
func parenthesizeBoolChains(rendered string) string {
	lines := strings.Split(rendered, "\n")
	for i, line := range lines {
		m := boolChainLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		inner := m[2]
		if !containsBoolWord(inner) {
			continue
		}
		lines[i] = m[1] + "(" + inner + ")" + m[3]
	}
	return strings.Join(lines, "\n")
}

var boolWord = regexp.MustCompile(`\b(and|or)\b`)

func containsBoolWord(s string) bool {
	return boolWord.MatchString(s)
}
