// Package sasparse lowers legacy-dialect statement blocks (internal/stmtlex
// output) into IR steps. Each proc*.go file covers one proc family; the
// overall dispatch-by-keyword shape mirrors schema/parser.go's ParseDDL
// switch-on-statement-type style, widened from one DDL statement to a whole
// data/proc block.
package sasparse

import (
	"fmt"
	"strings"

	"github.com/sans-lang/sans/internal/diag"
	"github.com/sans-lang/sans/internal/stmtlex"
)

// kv is one header key=value pair, e.g. "data=IN" in "proc sort data=IN out=OUT;".
type kv struct {
	Key   string
	Value string
}

// splitHeaderTokens tokenizes a header statement's words after the leading
// keyword(s), recognizing bare identifiers and key=value pairs. Values may be
// quoted.
func splitHeaderTokens(text string) []string {
	var toks []string
	var buf strings.Builder
	inQuote := byte(0)
	flush := func() {
		if buf.Len() > 0 {
			toks = append(toks, buf.String())
			buf.Reset()
		}
	}
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if inQuote != 0 {
			buf.WriteByte(ch)
			if ch == inQuote {
				inQuote = 0
			}
			continue
		}
		switch {
		case ch == '\'' || ch == '"':
			inQuote = ch
			buf.WriteByte(ch)
		case ch == ' ' || ch == '\t' || ch == '\n':
			flush()
		case ch == '=':
			flush()
			toks = append(toks, "=")
		default:
			buf.WriteByte(ch)
		}
	}
	flush()
	return toks
}

// parseHeaderKVs walks tokens (as produced by splitHeaderTokens, skipping the
// first skip tokens which are the statement keyword(s)) and collects
// key=value pairs and bare identifiers.
func parseHeaderKVs(text string, skip int) (kvs []kv, bare []string) {
	toks := splitHeaderTokens(text)
	if skip > len(toks) {
		skip = len(toks)
	}
	toks = toks[skip:]
	for i := 0; i < len(toks); i++ {
		if i+2 < len(toks) && toks[i+1] == "=" {
			kvs = append(kvs, kv{Key: strings.ToLower(toks[i]), Value: unquote(toks[i+2])})
			i += 2
			continue
		}
		bare = append(bare, toks[i])
	}
	return kvs, bare
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func findKV(kvs []kv, key string) (string, bool) {
	for _, k := range kvs {
		if k.Key == key {
			return k.Value, true
		}
	}
	return "", false
}

func identList(text string) []string {
	return strings.Fields(text)
}

func unsupportedProc(name string, b stmtlex.Block) *diag.Diagnostic {
	l := b.Loc
	return diag.New(diag.ESansParseUnsupportedProc, fmt.Sprintf("unsupported proc %q", name), &l)
}

func unsupportedStatement(text string, loc diag.Loc) *diag.Diagnostic {
	l := loc
	return diag.New(diag.ESansParseUnsupportedStatement, fmt.Sprintf("unsupported statement: %q", text), &l)
}

// IDGen hands out stable, increasing step ids ("step_0", "step_1", ...) in
// lowering order.
type IDGen struct{ n int }

func (g *IDGen) Next() string {
	id := fmt.Sprintf("step_%d", g.n)
	g.n++
	return id
}

// procName returns the lowercase proc keyword from a proc block's header
// statement ("proc sort data=in;" -> "sort").
func procName(b stmtlex.Block) string {
	fields := strings.Fields(b.Statements[0].Text)
	if len(fields) < 2 {
		return ""
	}
	return strings.ToLower(fields[1])
}
