package expr

import "fmt"

// FromCanon reconstructs an expression AST from the canonical map produced by
// ToCanon. Steps persist expressions in this canonical shape (inside IR
// params); the engine rebuilds the AST from it at execution time. Locations
// are not preserved across the round trip since canonical params carry none.
func FromCanon(c map[string]any) (Node, error) {
	kind, _ := c["node"].(string)
	switch kind {
	case "lit":
		return litFromCanon(c)
	case "col":
		name, _ := c["name"].(string)
		return NewCol(base{}.L, name), nil
	case "un_op":
		op, _ := c["op"].(string)
		argMap, ok := c["arg"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expr: un_op missing arg")
		}
		arg, err := FromCanon(argMap)
		if err != nil {
			return nil, err
		}
		return NewUnOp(base{}.L, op, arg), nil
	case "bin_op":
		op, _ := c["op"].(string)
		lhsMap, lok := c["lhs"].(map[string]any)
		rhsMap, rok := c["rhs"].(map[string]any)
		if !lok || !rok {
			return nil, fmt.Errorf("expr: bin_op missing lhs/rhs")
		}
		lhs, err := FromCanon(lhsMap)
		if err != nil {
			return nil, err
		}
		rhs, err := FromCanon(rhsMap)
		if err != nil {
			return nil, err
		}
		return NewBinOp(base{}.L, op, lhs, rhs), nil
	case "bool_op":
		op, _ := c["op"].(string)
		argsAny, _ := c["args"].([]any)
		args := make([]Node, 0, len(argsAny))
		for _, a := range argsAny {
			am, ok := a.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("expr: bool_op arg shape")
			}
			n, err := FromCanon(am)
			if err != nil {
				return nil, err
			}
			args = append(args, n)
		}
		return &BoolOp{Op: op, Args: args}, nil
	case "call":
		name, _ := c["name"].(string)
		argsAny, _ := c["args"].([]any)
		args := make([]Node, 0, len(argsAny))
		for _, a := range argsAny {
			am, ok := a.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("expr: call arg shape")
			}
			n, err := FromCanon(am)
			if err != nil {
				return nil, err
			}
			args = append(args, n)
		}
		return NewCall(base{}.L, name, args), nil
	default:
		return nil, fmt.Errorf("expr: unknown canonical node kind %q", kind)
	}
}

func litFromCanon(c map[string]any) (Node, error) {
	kind, _ := c["kind"].(string)
	switch kind {
	case "int":
		text, _ := c["text"].(string)
		return NewLitInt(base{}.L, text), nil
	case "decimal":
		text, _ := c["text"].(string)
		return NewLitDecimal(base{}.L, text), nil
	case "string":
		text, _ := c["text"].(string)
		return NewLitString(base{}.L, text), nil
	case "bool":
		b, _ := c["bool"].(bool)
		return NewLitBool(base{}.L, b), nil
	case "null":
		return NewLitNull(base{}.L), nil
	default:
		return nil, fmt.Errorf("expr: unknown literal kind %q", kind)
	}
}
