package expr

import (
	"fmt"
	"strings"

	"github.com/sans-lang/sans/internal/diag"
	"github.com/sans-lang/sans/internal/token"
)

// Parser implements the strict-contract precedence-climbing expression
// parser described in spec.md §4.1:
//
//	or  <  and  <  not  <  {!=,<,<=,==,>,>=}  <  {+,-}  <  {*,/}
//
// (lowest to highest binding power).
type Parser struct {
	file string
	tok  *token.Tokenizer
	cur  token.Token
}

func NewParser(file, src string) *Parser {
	p := &Parser{file: file, tok: token.New(src)}
	p.cur = p.tok.Next()
	return p
}

// Parse parses a full expression and requires EOF afterward.
func Parse(file, src string) (Node, *diag.Diagnostic) {
	p := NewParser(file, src)
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur.Kind != token.EOF {
		return nil, p.errf(diag.EBadExpr, "unexpected trailing input %q", p.cur.Text)
	}
	return n, nil
}

func (p *Parser) loc(line int) diag.Loc {
	return diag.Loc{File: p.file, LineStart: line, LineEnd: line}
}

func (p *Parser) errf(code diag.Code, format string, args ...any) *diag.Diagnostic {
	l := p.loc(p.cur.Line)
	return diag.New(code, fmt.Sprintf(format, args...), &l)
}

func (p *Parser) advance() { p.cur = p.tok.Next() }

func (p *Parser) parseExpr() (Node, *diag.Diagnostic) {
	return p.parseOr()
}

func (p *Parser) parseOr() (Node, *diag.Diagnostic) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	args := []Node{first}
	line := p.cur.Line
	for p.cur.Kind == token.KEYWORD && p.cur.Text == "or" {
		p.advance()
		rhs, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		args = append(args, rhs)
	}
	if len(args) == 1 {
		return first, nil
	}
	return &BoolOp{base: base{p.loc(line)}, Op: "or", Args: args}, nil
}

func (p *Parser) parseAnd() (Node, *diag.Diagnostic) {
	first, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	args := []Node{first}
	line := p.cur.Line
	for p.cur.Kind == token.KEYWORD && p.cur.Text == "and" {
		p.advance()
		rhs, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		args = append(args, rhs)
	}
	if len(args) == 1 {
		return first, nil
	}
	return &BoolOp{base: base{p.loc(line)}, Op: "and", Args: args}, nil
}

func (p *Parser) parseNot() (Node, *diag.Diagnostic) {
	if p.cur.Kind == token.KEYWORD && p.cur.Text == "not" {
		line := p.cur.Line
		p.advance()
		arg, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &UnOp{base: base{p.loc(line)}, Op: "not", Arg: arg}, nil
	}
	return p.parseComparison()
}

var compareOps = map[token.Kind]string{
	token.EQ: "==", token.NE: "!=", token.LT: "<", token.LE: "<=", token.GT: ">", token.GE: ">=",
}

func (p *Parser) parseComparison() (Node, *diag.Diagnostic) {
	lhs, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if op, ok := compareOps[p.cur.Kind]; ok {
		line := p.cur.Line
		p.advance()
		rhs, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &BinOp{base: base{p.loc(line)}, Op: op, LHS: lhs, RHS: rhs}, nil
	}
	if p.cur.Kind == token.ASSIGN {
		return nil, p.errf(diag.EBadExpr, "'=' is not a valid comparison operator; use '==' inside an expression")
	}
	return lhs, nil
}

func (p *Parser) parseAdditive() (Node, *diag.Diagnostic) {
	lhs, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == token.PLUS || p.cur.Kind == token.MINUS {
		op := "+"
		if p.cur.Kind == token.MINUS {
			op = "-"
		}
		line := p.cur.Line
		p.advance()
		rhs, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		lhs = &BinOp{base: base{p.loc(line)}, Op: op, LHS: lhs, RHS: rhs}
	}
	return lhs, nil
}

func (p *Parser) parseMultiplicative() (Node, *diag.Diagnostic) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == token.STAR || p.cur.Kind == token.SLASH {
		op := "*"
		if p.cur.Kind == token.SLASH {
			op = "/"
		}
		line := p.cur.Line
		p.advance()
		rhs, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		lhs = &BinOp{base: base{p.loc(line)}, Op: op, LHS: lhs, RHS: rhs}
	}
	return lhs, nil
}

func (p *Parser) parseUnary() (Node, *diag.Diagnostic) {
	if p.cur.Kind == token.MINUS {
		line := p.cur.Line
		p.advance()
		arg, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnOp{base: base{p.loc(line)}, Op: "-", Arg: arg}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Node, *diag.Diagnostic) {
	line := p.cur.Line
	switch p.cur.Kind {
	case token.INTLIT:
		text := p.cur.Text
		p.advance()
		return NewLitInt(p.loc(line), text), nil
	case token.DECLIT:
		text := p.cur.Text
		p.advance()
		return NewLitDecimal(p.loc(line), text), nil
	case token.STRLIT:
		text := p.cur.Text
		p.advance()
		return NewLitString(p.loc(line), text), nil
	case token.LPAREN:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.cur.Kind != token.RPAREN {
			return nil, p.errf(diag.EBadExpr, "expected ')'")
		}
		p.advance()
		return inner, nil
	case token.IDENT:
		name := p.cur.Text
		switch strings.ToLower(name) {
		case "true":
			p.advance()
			return NewLitBool(p.loc(line), true), nil
		case "false":
			p.advance()
			return NewLitBool(p.loc(line), false), nil
		case "null":
			p.advance()
			return NewLitNull(p.loc(line)), nil
		}
		p.advance()
		if p.cur.Kind == token.LPAREN {
			if !WhitelistedFuncs[strings.ToLower(name)] {
				return nil, p.errf(diag.EBadExpr, "unknown function %q", name)
			}
			p.advance()
			var args []Node
			if p.cur.Kind != token.RPAREN {
				for {
					arg, err := p.parseExpr()
					if err != nil {
						return nil, err
					}
					args = append(args, arg)
					if p.cur.Kind == token.COMMA {
						p.advance()
						continue
					}
					break
				}
			}
			if p.cur.Kind != token.RPAREN {
				return nil, p.errf(diag.EBadExpr, "expected ')' after call arguments")
			}
			p.advance()
			return NewCall(p.loc(line), strings.ToLower(name), args), nil
		}
		return NewCol(p.loc(line), name), nil
	case token.ERROR:
		return nil, p.errf(diag.EBadExpr, "%s", p.cur.Text)
	default:
		return nil, p.errf(diag.EBadExpr, "unexpected token %q", p.cur.Text)
	}
}
