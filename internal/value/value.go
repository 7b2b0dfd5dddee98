// Package value implements the script language's value model: a closed set
// of value kinds (NULL, BOOL, INT, DECIMAL, STRING) plus the type lattice and
// unification rules used by type inference.
package value

import "math/big"

type Kind string

const (
	KindNull    Kind = "null"
	KindBool    Kind = "bool"
	KindInt     Kind = "int"
	KindDecimal Kind = "decimal"
	KindString  Kind = "string"
	KindUnknown Kind = "unknown"
)

// Value is exactly one of NULL, BOOL, INT, DECIMAL, STRING. The zero Value is
// NULL.
type Value struct {
	Kind Kind
	B    bool
	I    *big.Int
	D    Decimal
	S    string
}

func Null() Value                 { return Value{Kind: KindNull} }
func Bool(b bool) Value           { return Value{Kind: KindBool, B: b} }
func Int(i int64) Value           { return Value{Kind: KindInt, I: big.NewInt(i)} }
func IntFromBig(i *big.Int) Value { return Value{Kind: KindInt, I: i} }
func Dec(d Decimal) Value         { return Value{Kind: KindDecimal, D: d} }
func Str(s string) Value          { return Value{Kind: KindString, S: s} }

func (v Value) IsNull() bool { return v.Kind == KindNull }

// Truthy implements filter/assert semantics: NULL is false, BOOL is itself;
// other kinds are not valid predicate results and are the caller's concern.
func (v Value) Truthy() bool {
	if v.Kind == KindBool {
		return v.B
	}
	return false
}

// Text renders a value for CSV output / string coercion. NULL renders as "".
func (v Value) Text() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindBool:
		if v.B {
			return "true"
		}
		return "false"
	case KindInt:
		return v.I.String()
	case KindDecimal:
		return v.D.String()
	case KindString:
		return v.S
	default:
		return ""
	}
}

// Equal implements value equality for ==/!= and grouping keys. INT and
// DECIMAL compare numerically across kinds; NULL equals only NULL.
func Equal(a, b Value) bool {
	if a.Kind == KindNull || b.Kind == KindNull {
		return a.Kind == KindNull && b.Kind == KindNull
	}
	if isNumeric(a.Kind) && isNumeric(b.Kind) {
		return toDecimal(a).Cmp(toDecimal(b)) == 0
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindBool:
		return a.B == b.B
	case KindString:
		return a.S == b.S
	}
	return false
}

// Compare orders a and b for </<=/>/>= and for sort steps. NULL sorts before
// everything else (including other NULLs, where it is the tie). Cross-kind
// comparison is only defined for the numeric pair INT/DECIMAL; any other
// kind mismatch reports ok=false.
func Compare(a, b Value) (cmp int, ok bool) {
	if a.Kind == KindNull && b.Kind == KindNull {
		return 0, true
	}
	if a.Kind == KindNull {
		return -1, true
	}
	if b.Kind == KindNull {
		return 1, true
	}
	if isNumeric(a.Kind) && isNumeric(b.Kind) {
		return toDecimal(a).Cmp(toDecimal(b)), true
	}
	if a.Kind != b.Kind {
		return 0, false
	}
	switch a.Kind {
	case KindString:
		switch {
		case a.S < b.S:
			return -1, true
		case a.S > b.S:
			return 1, true
		default:
			return 0, true
		}
	case KindBool:
		switch {
		case a.B == b.B:
			return 0, true
		case !a.B && b.B:
			return -1, true
		default:
			return 1, true
		}
	}
	return 0, false
}

func isNumeric(k Kind) bool { return k == KindInt || k == KindDecimal }

func toDecimal(v Value) Decimal {
	if v.Kind == KindDecimal {
		return v.D
	}
	return DecimalFromBigInt(v.I)
}

// GroupKey returns a comparable key usable as a Go map key for grouping/
// dedup purposes (aggregate class tuples, nodupkey, unique evidence sets).
func GroupKey(v Value) any {
	switch v.Kind {
	case KindNull:
		return "\x00null"
	case KindBool:
		return v.B
	case KindInt:
		return "\x01i:" + DecimalFromBigInt(v.I).String()
	case KindDecimal:
		return "\x01i:" + v.D.String()
	case KindString:
		return "\x02s:" + v.S
	default:
		return "\x03u:" + v.Text()
	}
}
