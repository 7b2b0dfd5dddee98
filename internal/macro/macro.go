// Package macro implements the legacy-mode macro pre-pass: %let assignment,
// &NAME / &NAME. substitution, %include textual inclusion (cycle-guarded,
// mirroring schema/tsort.go's visited-set guard against DDL dependency
// cycles), and line-level %if ... %then ... %else ... expansion. %do ... %end
// is refused outright.
package macro

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sans-lang/sans/internal/diag"
	"github.com/sans-lang/sans/internal/expr"
	"github.com/sans-lang/sans/internal/legacy"
	"github.com/sans-lang/sans/internal/value"
)

// Includer resolves an %include path to source text.
type Includer func(path string) (string, error)

var (
	reLet     = regexp.MustCompile(`^\s*%let\s+([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.*?)\s*;\s*$`)
	reInclude = regexp.MustCompile(`^\s*%include\s+(['"])(.*?)['"]\s*;\s*$`)
	reIf      = regexp.MustCompile(`(?i)^\s*%if\s+(.+?)\s+%then\s+(.+?)(?:\s+%else\s+(.+?))?\s*;\s*$`)
	reDoEnd   = regexp.MustCompile(`(?i)%do\b|%end\b`)
	reVarRef  = regexp.MustCompile(`&([A-Za-z_][A-Za-z0-9_]*)(\.)?`)
)

// Expander holds macro variable bindings across an expansion run.
type Expander struct {
	vars     map[string]string
	includer Includer
}

func NewExpander(includer Includer) *Expander {
	return &Expander{vars: map[string]string{}, includer: includer}
}

// Expand runs the macro pre-pass over src (the named file, for Loc/errors),
// returning the fully expanded text. stack carries include-chain paths
// currently open, to detect %include cycles.
func (e *Expander) Expand(file, src string) (string, *diag.Diagnostic) {
	return e.expand(file, src, map[string]bool{file: true})
}

func (e *Expander) expand(file, src string, stack map[string]bool) (string, *diag.Diagnostic) {
	lines := strings.Split(src, "\n")
	var out []string

	for lineNo, raw := range lines {
		loc := &diag.Loc{File: file, LineStart: lineNo + 1, LineEnd: lineNo + 1}

		if reDoEnd.MatchString(raw) {
			return "", diag.New(diag.ESansParseMacroError, "%do/%end macro blocks are not supported", loc)
		}

		if m := reLet.FindStringSubmatch(raw); m != nil {
			val, derr := e.substitute(m[2], loc)
			if derr != nil {
				return "", derr
			}
			e.vars[m[1]] = val
			out = append(out, "")
			continue
		}

		if m := reInclude.FindStringSubmatch(raw); m != nil {
			path := m[2]
			if stack[path] {
				return "", diag.New(diag.ESansParseMacroError, fmt.Sprintf("%%include cycle detected at %q", path), loc)
			}
			if e.includer == nil {
				return "", diag.New(diag.ESansParseMacroError, fmt.Sprintf("%%include %q: no includer configured", path), loc)
			}
			text, err := e.includer(path)
			if err != nil {
				return "", diag.New(diag.ESansParseMacroError, fmt.Sprintf("%%include %q: %s", path, err), loc)
			}
			childStack := map[string]bool{}
			for k := range stack {
				childStack[k] = true
			}
			childStack[path] = true
			expanded, derr := e.expand(path, text, childStack)
			if derr != nil {
				return "", derr
			}
			out = append(out, expanded)
			continue
		}

		if m := reIf.FindStringSubmatch(raw); m != nil {
			cond, derr := e.substitute(m[1], loc)
			if derr != nil {
				return "", derr
			}
			truthy, derr := evalConstCondition(cond, file)
			if derr != nil {
				return "", derr
			}
			branch := m[3] // %else branch, may be empty
			if truthy {
				branch = m[2]
			}
			expandedBranch, derr := e.substitute(branch, loc)
			if derr != nil {
				return "", derr
			}
			out = append(out, expandedBranch+";")
			continue
		}

		substituted, derr := e.substitute(raw, loc)
		if derr != nil {
			return "", derr
		}
		out = append(out, substituted)
	}

	return strings.Join(out, "\n"), nil
}

// substitute rewrites every &NAME / &NAME. reference in text using the
// current variable bindings. A reference to an undefined name is a refusal.
func (e *Expander) substitute(text string, loc *diag.Loc) (string, *diag.Diagnostic) {
	var derr *diag.Diagnostic
	result := reVarRef.ReplaceAllStringFunc(text, func(m string) string {
		if derr != nil {
			return m
		}
		sub := reVarRef.FindStringSubmatch(m)
		name := sub[1]
		val, ok := e.vars[name]
		if !ok {
			derr = diag.New(diag.ESansParseMacroError, fmt.Sprintf("undefined macro variable &%s", name), loc)
			return m
		}
		return val
	})
	if derr != nil {
		return "", derr
	}
	return result, nil
}

// evalConstCondition parses cond (after macro substitution) as a strict
// expression and evaluates it against no row context: only literals,
// comparisons, and the and/or/not connectives are legal, since macro
// variables have already been substituted as literal text. Arithmetic
// operators, unary '-', and a bare column reference in a %if condition are
// refusals.
func evalConstCondition(cond, file string) (bool, *diag.Diagnostic) {
	n, derr := legacy.ParsePredicate(cond, file)
	if derr != nil {
		return false, diag.New(diag.ESansParseMacroError, "malformed %if condition: "+derr.Message, nil)
	}
	v, derr := evalConst(n)
	if derr != nil {
		return false, derr
	}
	return v.Truthy(), nil
}

func evalConst(n expr.Node) (value.Value, *diag.Diagnostic) {
	switch v := n.(type) {
	case *expr.Lit:
		return litValue(v), nil
	case *expr.Col:
		l := v.Loc()
		return value.Value{}, diag.New(diag.ESansParseMacroError, fmt.Sprintf("%%if condition references undefined name %q", v.Name), &l)
	case *expr.UnOp:
		arg, derr := evalConst(v.Arg)
		if derr != nil {
			return value.Value{}, derr
		}
		switch v.Op {
		case "not":
			return value.Bool(!arg.Truthy()), nil
		case "-":
			return value.Value{}, diag.New(diag.ESansParseMacroError, "unary '-' is not supported in %if conditions", nil)
		}
	case *expr.BinOp:
		lhs, derr := evalConst(v.LHS)
		if derr != nil {
			return value.Value{}, derr
		}
		rhs, derr := evalConst(v.RHS)
		if derr != nil {
			return value.Value{}, derr
		}
		return evalCompare(v.Op, lhs, rhs)
	case *expr.BoolOp:
		result := v.Op == "and"
		for _, a := range v.Args {
			av, derr := evalConst(a)
			if derr != nil {
				return value.Value{}, derr
			}
			if v.Op == "and" {
				result = result && av.Truthy()
			} else {
				result = result || av.Truthy()
			}
		}
		return value.Bool(result), nil
	}
	return value.Value{}, diag.New(diag.ESansParseMacroError, "unsupported expression shape in %if condition", nil)
}

func litValue(v *expr.Lit) value.Value {
	switch v.Kind {
	case expr.LitInt:
		d, _ := value.ParseDecimal(v.Text)
		return value.IntFromBig(d.Coefficient)
	case expr.LitDecimal:
		d, _ := value.ParseDecimal(v.Text)
		return value.Dec(d)
	case expr.LitString:
		return value.Str(v.Text)
	case expr.LitBool:
		return value.Bool(v.Bool)
	default:
		return value.Null()
	}
}

func evalCompare(op string, a, b value.Value) (value.Value, *diag.Diagnostic) {
	switch op {
	case "==":
		return value.Bool(value.Equal(a, b)), nil
	case "!=":
		return value.Bool(!value.Equal(a, b)), nil
	case "<", "<=", ">", ">=":
		cmp, ok := value.Compare(a, b)
		if !ok {
			return value.Value{}, diag.New(diag.ESansParseMacroError, fmt.Sprintf("operands are not comparable with %q in %%if condition", op), nil)
		}
		switch op {
		case "<":
			return value.Bool(cmp < 0), nil
		case "<=":
			return value.Bool(cmp <= 0), nil
		case ">":
			return value.Bool(cmp > 0), nil
		default:
			return value.Bool(cmp >= 0), nil
		}
	case "+", "-", "*", "/":
		return value.Value{}, diag.New(diag.ESansParseMacroError, fmt.Sprintf("arithmetic operator %q is not supported in %%if conditions", op), nil)
	}
	return value.Value{}, diag.New(diag.ESansParseMacroError, fmt.Sprintf("unknown operator %q", op), nil)
}
