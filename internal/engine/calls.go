package engine

import (
	"strings"

	"github.com/sans-lang/sans/internal/diag"
	"github.com/sans-lang/sans/internal/expr"
	"github.com/sans-lang/sans/internal/value"
)

func (e *Evaluator) evalCall(c *expr.Call) (value.Value, *diag.Diagnostic) {
	loc := c.Loc()
	switch c.Name {
	case "coalesce":
		for _, a := range c.Args {
			v, derr := e.Eval(a)
			if derr != nil {
				return value.Value{}, derr
			}
			if !v.IsNull() {
				return v, nil
			}
		}
		return value.Null(), nil

	case "if":
		if len(c.Args) != 3 {
			return value.Value{}, diag.New(diag.ESansRuntimeUnsupportedExprNode, "if() takes exactly 3 arguments", &loc)
		}
		cond, derr := e.Eval(c.Args[0])
		if derr != nil {
			return value.Value{}, derr
		}
		if cond.Kind != value.KindBool {
			return value.Value{}, diag.New(diag.ESansRuntimeType, "if() condition must be boolean", &loc)
		}
		if cond.B {
			return e.Eval(c.Args[1])
		}
		return e.Eval(c.Args[2])

	case "put":
		if len(c.Args) != 2 {
			return value.Value{}, diag.New(diag.ESansRuntimeUnsupportedExprNode, "put() takes exactly 2 arguments", &loc)
		}
		v, derr := e.Eval(c.Args[0])
		if derr != nil {
			return value.Value{}, derr
		}
		fmtName, derr := e.literalName(c.Args[1], &loc)
		if derr != nil {
			return value.Value{}, derr
		}
		f, ok := e.Formats[fmtName]
		if !ok {
			return value.Value{}, diag.New(diag.ESansRuntimeFormatUndefined, "undefined format: "+fmtName, &loc)
		}
		s, ok := f.Put(v)
		if !ok {
			return value.Value{}, diag.New(diag.ESansRuntimeFormatUndefined, "value has no mapping in format "+fmtName, &loc)
		}
		return value.Str(s), nil

	case "input":
		if len(c.Args) != 2 {
			return value.Value{}, diag.New(diag.ESansRuntimeUnsupportedExprNode, "input() takes exactly 2 arguments", &loc)
		}
		v, derr := e.Eval(c.Args[0])
		if derr != nil {
			return value.Value{}, derr
		}
		informat, derr := e.literalName(c.Args[1], &loc)
		if derr != nil {
			return value.Value{}, derr
		}
		if !strings.EqualFold(informat, "best") {
			return value.Value{}, diag.New(diag.ESansRuntimeInformatUnsupported, "unsupported informat: "+informat, &loc)
		}
		text := strings.TrimSpace(v.Text())
		if text == "" {
			return value.Null(), nil
		}
		d, ok := value.ParseDecimal(text)
		if !ok {
			return value.Value{}, diag.New(diag.ESansRuntimeType, "input(): not a numeric literal: "+text, &loc)
		}
		return value.Dec(d), nil
	}
	return value.Value{}, diag.New(diag.ESansRuntimeUnsupportedExprNode, "unsupported function: "+c.Name, &loc)
}

// literalName extracts a format/informat name from a string literal argument
// (the only supported shape; spec.md's "$fmt." dollar-sigil notation is
// carried as a quoted string at this layer, not a separate token kind).
func (e *Evaluator) literalName(n expr.Node, loc *diag.Loc) (string, *diag.Diagnostic) {
	lit, ok := n.(*expr.Lit)
	if !ok || lit.Kind != expr.LitString {
		return "", diag.New(diag.ESansRuntimeUnsupportedExprNode, "expected a quoted format/informat name", loc)
	}
	return lit.Text, nil
}
