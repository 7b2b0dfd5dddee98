// Package legacy implements the pre-processor that rewrites legacy-dialect
// operator tokens into the strict expression contract, ported from
// original_source/sans/sans/legacy/expr.py (word-op rewrite, ^=/~= rewrite,
// bare '=' rewrite, '<>' refusal, and a post-rewrite re-scan that refuses if
// any legacy token text remains outside a string).
package legacy

import (
	"regexp"
	"sort"
	"strings"

	"github.com/sans-lang/sans/internal/diag"
	"github.com/sans-lang/sans/internal/expr"
)

var wordOps = map[string]string{
	"eq": "==", "ne": "!=", "lt": "<", "le": "<=", "gt": ">", "ge": ">=",
}

var wordOpRE = regexp.MustCompile(`(?i)\b(eq|ne|lt|le|gt|ge)\b`)

// singleEqRE matches a bare '=' not preceded by <,>,=,!,^,~ and not followed
// by '=' (so it skips over ==, !=, <=, >=, ^=, ~=).
var singleEqRE = regexp.MustCompile(`[^<>=!^~]=(?:[^=]|$)`)
var unsupportedOpRE = regexp.MustCompile(`<>`)
var wordOpOrSymbolRE = regexp.MustCompile(`(?i)\b(eq|ne|lt|le|gt|ge)\b|\^=|~=|<>`)

type segment struct {
	text     string
	isString bool
}

// splitStringSegments scans text into a sequence of string/non-string
// segments without interpreting '#' comments (legacy translation runs before
// comment stripping).
func splitStringSegments(text string) ([]segment, *diag.Diagnostic) {
	var segs []segment
	var buf strings.Builder
	inSingle, inDouble, escape := false, false, false
	flush := func(isString bool) {
		if buf.Len() > 0 {
			segs = append(segs, segment{text: buf.String(), isString: isString})
			buf.Reset()
		}
	}
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if inSingle {
			buf.WriteByte(ch)
			if escape {
				escape = false
			} else if ch == '\\' {
				escape = true
			} else if ch == '\'' {
				inSingle = false
				flush(true)
			}
			continue
		}
		if inDouble {
			buf.WriteByte(ch)
			if escape {
				escape = false
			} else if ch == '\\' {
				escape = true
			} else if ch == '"' {
				inDouble = false
				flush(true)
			}
			continue
		}
		switch ch {
		case '\'':
			flush(false)
			inSingle = true
			buf.WriteByte(ch)
		case '"':
			flush(false)
			inDouble = true
			buf.WriteByte(ch)
		default:
			buf.WriteByte(ch)
		}
	}
	if inSingle || inDouble {
		return nil, diag.New(diag.ELegacyExpr, "unterminated string literal in legacy expression", nil)
	}
	flush(false)
	return segs, nil
}

func translateSegment(text string) (string, *diag.Diagnostic) {
	if unsupportedOpRE.MatchString(text) {
		return "", diag.New(diag.ELegacyExpr, "unsupported legacy operator '<>' in expression", nil)
	}
	translated := wordOpRE.ReplaceAllStringFunc(text, func(m string) string {
		return wordOps[strings.ToLower(m)]
	})
	translated = strings.ReplaceAll(translated, "^=", "!=")
	translated = strings.ReplaceAll(translated, "~=", "!=")
	translated = rewriteSingleEq(translated)
	return translated, nil
}

// rewriteSingleEq rewrites a bare '=' to '==', being careful not to touch a
// '=' that is already part of a multi-character operator. It scans byte by
// byte rather than relying on regex overlap handling, because consecutive
// bare '=' occurrences (e.g. "a=b=c") must each be rewritten.
func rewriteSingleEq(text string) string {
	var sb strings.Builder
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if ch != '=' {
			sb.WriteByte(ch)
			continue
		}
		prev := byte(0)
		if i > 0 {
			prev = text[i-1]
		}
		next := byte(0)
		if i+1 < len(text) {
			next = text[i+1]
		}
		if prev == '<' || prev == '>' || prev == '=' || prev == '!' || prev == '^' || prev == '~' {
			sb.WriteByte(ch)
			continue
		}
		if next == '=' {
			sb.WriteByte(ch)
			continue
		}
		sb.WriteString("==")
	}
	return sb.String()
}

// FindLegacyTokens returns every legacy token found outside string segments.
func FindLegacyTokens(text string) []string {
	segs, err := splitStringSegments(text)
	if err != nil {
		return nil
	}
	var tokens []string
	for _, s := range segs {
		if s.isString {
			continue
		}
		for _, m := range wordOpOrSymbolRE.FindAllString(s.text, -1) {
			tokens = append(tokens, strings.ToLower(m))
		}
		for _, m := range findBareEq(s.text) {
			tokens = append(tokens, m)
		}
	}
	return tokens
}

func findBareEq(text string) []string {
	var out []string
	for i := 0; i < len(text); i++ {
		if text[i] != '=' {
			continue
		}
		prev := byte(0)
		if i > 0 {
			prev = text[i-1]
		}
		next := byte(0)
		if i+1 < len(text) {
			next = text[i+1]
		}
		if prev == '<' || prev == '>' || prev == '=' || prev == '!' || prev == '^' || prev == '~' {
			continue
		}
		if next == '=' {
			continue
		}
		out = append(out, "=")
	}
	return out
}

// TranslatePredicate rewrites legacy operator tokens to the strict contract,
// preserving quoted-string segments byte-for-byte, then re-scans the result
// to confirm no legacy token remains outside a string. When validate is true
// it also parses the translated text with the strict expression parser.
func TranslatePredicate(text, file string, validate bool) (string, *diag.Diagnostic) {
	segs, derr := splitStringSegments(text)
	if derr != nil {
		return "", derr
	}
	var out strings.Builder
	for _, s := range segs {
		if s.isString {
			out.WriteString(s.text)
			continue
		}
		t, err := translateSegment(s.text)
		if err != nil {
			return "", err
		}
		out.WriteString(t)
	}
	translated := out.String()

	remaining := FindLegacyTokens(translated)
	if len(remaining) > 0 {
		set := map[string]bool{}
		for _, r := range remaining {
			set[r] = true
		}
		var uniq []string
		for r := range set {
			uniq = append(uniq, r)
		}
		sort.Strings(uniq)
		return "", diag.New(diag.ELegacyExpr, "unsupported legacy tokens in expression: "+strings.Join(uniq, ", "), nil)
	}

	if validate {
		if _, perr := expr.Parse(file, translated); perr != nil {
			return "", diag.New(diag.ELegacyExpr, "malformed legacy expression: "+perr.Message, nil)
		}
	}
	return translated, nil
}

// ParsePredicate translates then parses a legacy predicate into an AST.
func ParsePredicate(text, file string) (expr.Node, *diag.Diagnostic) {
	translated, err := TranslatePredicate(text, file, false)
	if err != nil {
		return nil, err
	}
	n, perr := expr.Parse(file, translated)
	if perr != nil {
		return nil, diag.New(diag.ELegacyExpr, "malformed legacy expression: "+perr.Message, nil)
	}
	return n, nil
}
