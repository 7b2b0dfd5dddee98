package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Print renders a canonical textual form of n such that
// Parse(file, Print(n)) produces an AST equal to n (the round-trip law in
// spec.md §8). Every sub-expression is fully parenthesized except bare
// literals, columns, and calls, so printed precedence never depends on the
// table above.
func Print(n Node) string {
	var sb strings.Builder
	print1(&sb, n)
	return sb.String()
}

func print1(sb *strings.Builder, n Node) {
	switch v := n.(type) {
	case *Lit:
		switch v.Kind {
		case LitInt:
			sb.WriteString(v.Text)
		case LitDecimal:
			sb.WriteString(v.Text)
		case LitString:
			sb.WriteString(quoteString(v.Text))
		case LitBool:
			sb.WriteString(strconv.FormatBool(v.Bool))
		case LitNull:
			sb.WriteString("null")
		}
	case *Col:
		sb.WriteString(v.Name)
	case *UnOp:
		sb.WriteString("(")
		sb.WriteString(v.Op)
		sb.WriteString(" ")
		print1(sb, v.Arg)
		sb.WriteString(")")
	case *BinOp:
		sb.WriteString("(")
		print1(sb, v.LHS)
		sb.WriteString(" ")
		sb.WriteString(v.Op)
		sb.WriteString(" ")
		print1(sb, v.RHS)
		sb.WriteString(")")
	case *BoolOp:
		sb.WriteString("(")
		for i, a := range v.Args {
			if i > 0 {
				sb.WriteString(" ")
				sb.WriteString(v.Op)
				sb.WriteString(" ")
			}
			print1(sb, a)
		}
		sb.WriteString(")")
	case *Call:
		sb.WriteString(v.Name)
		sb.WriteString("(")
		for i, a := range v.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			print1(sb, a)
		}
		sb.WriteString(")")
	default:
		panic(fmt.Sprintf("expr: unknown node %T", n))
	}
}

func quoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'':
			sb.WriteString("\\'")
		case '\\':
			sb.WriteString("\\\\")
		case '\n':
			sb.WriteString("\\n")
		case '\t':
			sb.WriteString("\\t")
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}
