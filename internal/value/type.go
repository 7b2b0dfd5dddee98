package value

import (
	"fmt"

	"github.com/sans-lang/sans/internal/diag"
)

// Type is one of the six tags in the lattice described by spec.md §3.
type Type string

const (
	TNull    Type = "null"
	TBool    Type = "bool"
	TInt     Type = "int"
	TDecimal Type = "decimal"
	TString  Type = "string"
	TUnknown Type = "unknown"
)

func TypeOf(v Value) Type {
	switch v.Kind {
	case KindNull:
		return TNull
	case KindBool:
		return TBool
	case KindInt:
		return TInt
	case KindDecimal:
		return TDecimal
	case KindString:
		return TString
	default:
		return TUnknown
	}
}

// UnifyContext selects which NULL-absorption rule applies.
type UnifyContext int

const (
	// ContextAssignment: NULL unifies with anything (assignment/if-branch).
	ContextAssignment UnifyContext = iota
	// ContextStrict: NULL must match NULL exactly (used for comparisons that
	// don't tolerate absorption).
	ContextStrict
)

// Unify computes a⊔b under the rules in spec.md §3:
//
//	INT⊔DECIMAL = DECIMAL
//	NULL⊔T = T for any T, in assignment/if-branch context
//	UNKNOWN is propagated and, by the caller, rejected with E_TYPE_UNKNOWN.
func Unify(a, b Type, ctx UnifyContext) (Type, *diag.Diagnostic) {
	if a == TUnknown || b == TUnknown {
		return TUnknown, diag.New(diag.ETypeUnknown, "cannot unify with an UNKNOWN type", nil)
	}
	if a == b {
		return a, nil
	}
	if ctx == ContextAssignment {
		if a == TNull {
			return b, nil
		}
		if b == TNull {
			return a, nil
		}
	}
	if (a == TInt && b == TDecimal) || (a == TDecimal && b == TInt) {
		return TDecimal, nil
	}
	return TUnknown, diag.New(diag.ESansRuntimeType, fmt.Sprintf("cannot unify types %s and %s", a, b), nil)
}

func IsNumeric(t Type) bool { return t == TInt || t == TDecimal }
