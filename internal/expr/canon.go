package expr

// ToCanon renders an expression node as a canonical-JSON-ready structure
// (map[string]any / []any / scalars), used to hash a step's full params
// (transform_id). Its param_shape (transform_class_id) is derived from this
// same shape generically by canon.ShapeDeep, which recognizes the
// {"node":"lit",...} tag produced here and collapses it to a type tag.
func ToCanon(n Node) map[string]any {
	switch v := n.(type) {
	case *Lit:
		m := map[string]any{"node": "lit", "kind": litKindName(v.Kind)}
		switch v.Kind {
		case LitBool:
			m["bool"] = v.Bool
		case LitNull:
			// no payload
		default:
			m["text"] = v.Text
		}
		return m
	case *Col:
		return map[string]any{"node": "col", "name": v.Name}
	case *UnOp:
		return map[string]any{"node": "un_op", "op": v.Op, "arg": ToCanon(v.Arg)}
	case *BinOp:
		return map[string]any{"node": "bin_op", "op": v.Op, "lhs": ToCanon(v.LHS), "rhs": ToCanon(v.RHS)}
	case *BoolOp:
		args := make([]any, len(v.Args))
		for i, a := range v.Args {
			args[i] = ToCanon(a)
		}
		return map[string]any{"node": "bool_op", "op": v.Op, "args": args}
	case *Call:
		args := make([]any, len(v.Args))
		for i, a := range v.Args {
			args[i] = ToCanon(a)
		}
		return map[string]any{"node": "call", "name": v.Name, "args": args}
	default:
		panic("expr: unknown node in ToCanon")
	}
}

func litKindName(k LitKind) string {
	switch k {
	case LitInt:
		return "int"
	case LitDecimal:
		return "decimal"
	case LitString:
		return "string"
	case LitBool:
		return "bool"
	case LitNull:
		return "null"
	default:
		return "unknown"
	}
}
