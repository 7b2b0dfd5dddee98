// Package expr implements the strict-contract expression grammar: AST node
// variants, a precedence-climbing parser, and a canonical printer satisfying
// the round-trip law parse(print(parse(S))) == parse(S).
package expr

import "github.com/sans-lang/sans/internal/diag"

// Node is the expression AST sum type.
type Node interface {
	Loc() diag.Loc
	isNode()
}

type base struct {
	L diag.Loc
}

func (b base) Loc() diag.Loc { return b.L }
func (base) isNode()         {}

// LitKind distinguishes literal value shapes at the AST level, before
// evaluation binds them to value.Value.
type LitKind int

const (
	LitInt LitKind = iota
	LitDecimal
	LitString
	LitBool
	LitNull
)

type Lit struct {
	base
	Kind LitKind
	Text string // normalized literal text (digits, or unescaped string body)
	Bool bool
}

type Col struct {
	base
	Name string // may be dotted: first.x, t.c
}

type UnOp struct {
	base
	Op  string // "not" | "-"
	Arg Node
}

type BinOp struct {
	base
	Op       string // one of {+,-,*,/,==,!=,<,<=,>,>=}
	LHS, RHS Node
}

// BoolOp is n-ary: same-op chains of `and`/`or` are flattened left-associatively
// at parse time.
type BoolOp struct {
	base
	Op   string // "and" | "or"
	Args []Node
}

// Call is a whitelisted function call: coalesce, if, put, input.
type Call struct {
	base
	Name string
	Args []Node
}

func NewLitInt(l diag.Loc, text string) *Lit      { return &Lit{base: base{l}, Kind: LitInt, Text: text} }
func NewLitDecimal(l diag.Loc, text string) *Lit   { return &Lit{base: base{l}, Kind: LitDecimal, Text: text} }
func NewLitString(l diag.Loc, text string) *Lit    { return &Lit{base: base{l}, Kind: LitString, Text: text} }
func NewLitBool(l diag.Loc, b bool) *Lit           { return &Lit{base: base{l}, Kind: LitBool, Bool: b} }
func NewLitNull(l diag.Loc) *Lit                   { return &Lit{base: base{l}, Kind: LitNull} }
func NewCol(l diag.Loc, name string) *Col          { return &Col{base: base{l}, Name: name} }
func NewUnOp(l diag.Loc, op string, arg Node) *UnOp { return &UnOp{base: base{l}, Op: op, Arg: arg} }
func NewBinOp(l diag.Loc, op string, lhs, rhs Node) *BinOp {
	return &BinOp{base: base{l}, Op: op, LHS: lhs, RHS: rhs}
}
func NewCall(l diag.Loc, name string, args []Node) *Call {
	return &Call{base: base{l}, Name: name, Args: args}
}

// WhitelistedFuncs is the closed set of callable function names.
var WhitelistedFuncs = map[string]bool{
	"coalesce": true,
	"if":       true,
	"put":      true,
	"input":    true,
}
