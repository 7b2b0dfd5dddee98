package engine

import (
	"math/big"
	"strings"

	"github.com/sans-lang/sans/internal/diag"
	"github.com/sans-lang/sans/internal/expr"
	"github.com/sans-lang/sans/internal/value"
)

// Evaluator binds per-row column values, engine-wide scalars (let_scalar),
// and registered formats for compute/filter/assert/sql_select expression
// evaluation.
type Evaluator struct {
	Row     map[string]value.Value
	Scalars map[string]value.Value
	Formats map[string]*FormatDef
}

func (e *Evaluator) lookupCol(name string) (value.Value, bool) {
	if v, ok := e.Row[name]; ok {
		return v, true
	}
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		if v, ok := e.Row[name[idx+1:]]; ok {
			return v, true
		}
	}
	return value.Value{}, false
}

// Eval evaluates n against the current row, returning SANS_RUNTIME_* failure
// diagnostics for division by zero and unsupported expression nodes.
func (e *Evaluator) Eval(n expr.Node) (value.Value, *diag.Diagnostic) {
	loc := n.Loc()
	switch v := n.(type) {
	case *expr.Lit:
		return litValue(v), nil
	case *expr.Col:
		if val, ok := e.lookupCol(v.Name); ok {
			return val, nil
		}
		if val, ok := e.Scalars[v.Name]; ok {
			return val, nil
		}
		return value.Value{}, diag.New(diag.ESansRuntimeMissingColumn, "column or variable not found: "+v.Name, &loc)
	case *expr.UnOp:
		arg, derr := e.Eval(v.Arg)
		if derr != nil {
			return value.Value{}, derr
		}
		switch v.Op {
		case "not":
			return value.Bool(!arg.Truthy()), nil
		case "-":
			if arg.IsNull() {
				return value.Null(), nil
			}
			switch arg.Kind {
			case value.KindInt:
				return value.IntFromBig(new(big.Int).Neg(arg.I)), nil
			case value.KindDecimal:
				zero := value.DecimalFromBigInt(big.NewInt(0))
				return value.Dec(zero.Sub(arg.D)), nil
			default:
				return value.Value{}, diag.New(diag.ESansRuntimeType, "unary '-' requires a numeric operand", &loc)
			}
		}
		return value.Value{}, diag.New(diag.ESansRuntimeUnsupportedExprNode, "unsupported unary operator: "+v.Op, &loc)
	case *expr.BinOp:
		return e.evalBinOp(v)
	case *expr.BoolOp:
		return e.evalBoolOp(v)
	case *expr.Call:
		return e.evalCall(v)
	default:
		return value.Value{}, diag.New(diag.ESansRuntimeUnsupportedExprNode, "unsupported expression node", &loc)
	}
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

func (e *Evaluator) evalBinOp(v *expr.BinOp) (value.Value, *diag.Diagnostic) {
	loc := v.Loc()
	lhs, derr := e.Eval(v.LHS)
	if derr != nil {
		return value.Value{}, derr
	}
	rhs, derr := e.Eval(v.RHS)
	if derr != nil {
		return value.Value{}, derr
	}

	switch v.Op {
	case "==":
		return value.Bool(value.Equal(lhs, rhs)), nil
	case "!=":
		return value.Bool(!value.Equal(lhs, rhs)), nil
	case "<", "<=", ">", ">=":
		if lhs.IsNull() || rhs.IsNull() {
			return value.Null(), nil
		}
		cmp, ok := value.Compare(lhs, rhs)
		if !ok {
			return value.Value{}, diag.New(diag.ESansRuntimeType, "incompatible types in comparison", &loc)
		}
		switch v.Op {
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
		return e.evalArith(v.Op, lhs, rhs, loc)
	}
	return value.Value{}, diag.New(diag.ESansRuntimeUnsupportedExprNode, "unsupported binary operator: "+v.Op, &loc)
}

func (e *Evaluator) evalArith(op string, lhs, rhs value.Value, loc diag.Loc) (value.Value, *diag.Diagnostic) {
	if lhs.IsNull() || rhs.IsNull() {
		return value.Null(), nil
	}
	if !isNumericKind(lhs.Kind) || !isNumericKind(rhs.Kind) {
		return value.Value{}, diag.New(diag.ESansRuntimeType, "arithmetic requires numeric operands", &loc)
	}
	bothInt := lhs.Kind == value.KindInt && rhs.Kind == value.KindInt
	if bothInt {
		switch op {
		case "+":
			return value.IntFromBig(new(big.Int).Add(lhs.I, rhs.I)), nil
		case "-":
			return value.IntFromBig(new(big.Int).Sub(lhs.I, rhs.I)), nil
		case "*":
			return value.IntFromBig(new(big.Int).Mul(lhs.I, rhs.I)), nil
		}
	}
	a, b := toDecimal(lhs), toDecimal(rhs)
	switch op {
	case "+":
		return value.Dec(a.Add(b)), nil
	case "-":
		return value.Dec(a.Sub(b)), nil
	case "*":
		return value.Dec(a.Mul(b)), nil
	case "/":
		if b.IsZero() {
			return value.Value{}, diag.New(diag.ESansRuntimeDivideByZero, "division by zero", &loc)
		}
		q, ok := a.DivExact(b, 16)
		if !ok {
			return value.Value{}, diag.New(diag.ESansRuntimeDivideByZero, "division by zero", &loc)
		}
		return value.Dec(q), nil
	}
	return value.Value{}, diag.New(diag.ESansRuntimeUnsupportedExprNode, "unsupported arithmetic operator: "+op, &loc)
}

func (e *Evaluator) evalBoolOp(v *expr.BoolOp) (value.Value, *diag.Diagnostic) {
	loc := v.Loc()
	if v.Op == "and" {
		for _, a := range v.Args {
			r, derr := e.Eval(a)
			if derr != nil {
				return value.Value{}, derr
			}
			if r.Kind != value.KindBool {
				return value.Value{}, diag.New(diag.ESansRuntimeType, "'and' requires boolean operands", &loc)
			}
			if !r.B {
				return value.Bool(false), nil
			}
		}
		return value.Bool(true), nil
	}
	for _, a := range v.Args {
		r, derr := e.Eval(a)
		if derr != nil {
			return value.Value{}, derr
		}
		if r.Kind != value.KindBool {
			return value.Value{}, diag.New(diag.ESansRuntimeType, "'or' requires boolean operands", &loc)
		}
		if r.B {
			return value.Bool(true), nil
		}
	}
	return value.Bool(false), nil
}

func isNumericKind(k value.Kind) bool { return k == value.KindInt || k == value.KindDecimal }

func toDecimal(v value.Value) value.Decimal {
	if v.Kind == value.KindDecimal {
		return v.D
	}
	return value.DecimalFromBigInt(v.I)
}
