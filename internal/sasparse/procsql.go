package sasparse

import (
	"fmt"
	"regexp"
	"strings"

	pgquery "github.com/pganalyze/pg_query_go/v2"

	"github.com/sans-lang/sans/internal/diag"
	"github.com/sans-lang/sans/internal/expr"
	"github.com/sans-lang/sans/internal/ir"
	"github.com/sans-lang/sans/internal/legacy"
	"github.com/sans-lang/sans/internal/stmtlex"
)

var reCreateTableAs = regexp.MustCompile(`(?is)^create\s+table\s+([A-Za-z_][A-Za-z0-9_]*)\s+as\s+(.*)$`)

var aggregateFuncs = map[string]bool{"count": true, "sum": true, "avg": true, "min": true, "max": true}

// LowerProcSQL lowers "proc sql; create table OUT as select ...; quit;" into
// a sql_select step. It is grounded on database/postgres/parser.go's pgquery
// node-walking idiom: a switch over *pgquery.Node_* variants with an
// explicit "unhandled shape -> refusal" posture rather than a best-effort
// fallback. Unlike that file's single-table FROM handling, explicit join
// chains are walked here, since spec.md requires every join be typed.
func LowerProcSQL(file string, b stmtlex.Block, gen *IDGen) (*ir.Step, *diag.Bag) {
	bag := &diag.Bag{}

	var sqlStmt *stmtlex.Statement
	for i := range b.Statements[1:] {
		s := &b.Statements[1+i]
		w := firstWord(s.Text)
		if w == "quit" || w == "run" {
			continue
		}
		if sqlStmt != nil {
			bag.Add(diag.New(diag.ESansParseSQLUnsupportedForm,
				"proc sql supports exactly one create-table-as/select statement per block", &s.Loc))
			return nil, bag
		}
		sqlStmt = s
	}
	if sqlStmt == nil {
		bag.Add(diag.New(diag.ESansParseSQLUnsupportedForm, "proc sql block has no select statement", &b.Loc))
		return nil, bag
	}

	text := sqlStmt.Text
	out := ""
	if m := reCreateTableAs.FindStringSubmatch(text); m != nil {
		out = m[1]
		text = m[2]
	} else if strings.HasPrefix(strings.ToLower(strings.TrimSpace(text)), "select") {
		out = "_sql_result"
	} else {
		bag.Add(diag.New(diag.ESansParseSQLUnsupportedForm, "unsupported proc sql form: "+text, &sqlStmt.Loc))
		return nil, bag
	}

	result, err := pgquery.Parse(text)
	if err != nil {
		bag.Add(diag.New(diag.ESansParseSQLDetected, "proc sql statement failed to parse as SQL: "+err.Error(), &sqlStmt.Loc))
		return nil, bag
	}
	if len(result.Stmts) != 1 {
		bag.Add(diag.New(diag.ESansParseSQLUnsupportedForm, "expected exactly one SQL statement", &sqlStmt.Loc))
		return nil, bag
	}

	selectNode, ok := result.Stmts[0].Stmt.Node.(*pgquery.Node_SelectStmt)
	if !ok {
		bag.Add(diag.New(diag.ESansParseSQLUnsupportedForm, "only SELECT statements are supported in proc sql", &sqlStmt.Loc))
		return nil, bag
	}
	stmt := selectNode.SelectStmt

	unhandled := stmt.IntoClause != nil ||
		stmt.WindowClause != nil ||
		stmt.SortClause != nil ||
		stmt.ValuesLists != nil ||
		stmt.LimitOffset != nil ||
		stmt.LimitCount != nil ||
		stmt.LockingClause != nil ||
		stmt.WithClause != nil ||
		stmt.Op != pgquery.SetOperation_SETOP_NONE ||
		stmt.All ||
		stmt.Larg != nil ||
		stmt.Rarg != nil
	if unhandled {
		bag.Add(diag.New(diag.ESansParseSQLUnsupportedForm, "unsupported SELECT shape in proc sql", &sqlStmt.Loc))
		return nil, bag
	}
	if len(stmt.FromClause) != 1 {
		bag.Add(diag.New(diag.ESansParseSQLUnsupportedForm, "proc sql requires exactly one FROM entry (a base table plus explicit joins)", &sqlStmt.Loc))
		return nil, bag
	}

	selectCols, derr := parseTargetList(stmt.TargetList, sqlStmt.Loc, file)
	if derr != nil {
		bag.Add(derr)
		return nil, bag
	}

	base, joins, derr := flattenFrom(stmt.FromClause[0], sqlStmt.Loc, file)
	if derr != nil {
		bag.Add(derr)
		return nil, bag
	}

	params := map[string]any{"select": selectCols, "from": base, "joins": joins}

	if stmt.WhereClause != nil {
		whereAST, derr := sqlCondToAST(stmt.WhereClause, sqlStmt.Loc, file)
		if derr != nil {
			bag.Add(derr)
			return nil, bag
		}
		params["where"] = expr.ToCanon(whereAST)
	}

	if len(stmt.GroupClause) > 0 {
		groupBy, derr := parseGroupClause(stmt.GroupClause, sqlStmt.Loc)
		if derr != nil {
			bag.Add(derr)
			return nil, bag
		}
		if derr := checkGroupByCoversSelected(selectCols, groupBy, sqlStmt.Loc); derr != nil {
			bag.Add(derr)
			return nil, bag
		}
		params["group_by"] = stringsAny(groupBy)
	}

	inputs := []string{base}
	for _, j := range joins {
		inputs = append(inputs, j.(map[string]any)["table"].(string))
	}

	return &ir.Step{
		ID: gen.Next(), Op: ir.OpSQLSelect, Inputs: inputs, Outputs: []string{out},
		Params: params, Loc: sqlStmt.Loc,
	}, bag
}

func parseTargetList(targets []*pgquery.Node, loc diag.Loc, file string) ([]any, *diag.Diagnostic) {
	var cols []any
	for _, t := range targets {
		res, ok := t.Node.(*pgquery.Node_ResTarget)
		if !ok {
			return nil, diag.New(diag.ESansParseSQLUnsupportedForm, "unsupported select-list entry", &loc)
		}
		item, derr := sqlValToItem(res.ResTarget.Val, loc, file)
		if derr != nil {
			return nil, derr
		}
		if res.ResTarget.Name != "" {
			item["alias"] = res.ResTarget.Name
		}
		cols = append(cols, item)
	}
	return cols, nil
}

func sqlValToItem(n *pgquery.Node, loc diag.Loc, file string) (map[string]any, *diag.Diagnostic) {
	if fn, ok := n.Node.(*pgquery.Node_FuncCall); ok {
		call := fn.FuncCall
		name := strings.ToLower(lastFuncNamePart(call.Funcname))
		if !aggregateFuncs[name] {
			return nil, diag.New(diag.ESansParseSQLUnsupportedForm, "unsupported function in proc sql select list: "+name, &loc)
		}
		arg := "*"
		if !call.AggStar {
			if len(call.Args) != 1 {
				return nil, diag.New(diag.ESansParseSQLUnsupportedForm, "aggregate functions take exactly one argument", &loc)
			}
			colRef, ok := call.Args[0].Node.(*pgquery.Node_ColumnRef)
			if !ok {
				return nil, diag.New(diag.ESansParseSQLUnsupportedForm, "aggregate argument must be a column reference", &loc)
			}
			arg = columnRefText(colRef.ColumnRef)
		}
		return map[string]any{"is_agg": true, "agg_func": name, "agg_arg": arg}, nil
	}
	colRef, ok := n.Node.(*pgquery.Node_ColumnRef)
	if !ok {
		return nil, diag.New(diag.ESansParseSQLUnsupportedForm, "unsupported select-list expression", &loc)
	}
	return map[string]any{"is_agg": false, "col": columnRefText(colRef.ColumnRef)}, nil
}

func lastFuncNamePart(nodes []*pgquery.Node) string {
	if len(nodes) == 0 {
		return ""
	}
	s, ok := nodes[len(nodes)-1].Node.(*pgquery.Node_String_)
	if !ok {
		return ""
	}
	return s.String_.Str
}

func columnRefText(ref *pgquery.ColumnRef) string {
	var parts []string
	for _, f := range ref.Fields {
		switch v := f.Node.(type) {
		case *pgquery.Node_String_:
			parts = append(parts, v.String_.Str)
		case *pgquery.Node_AStar:
			parts = append(parts, "*")
		}
	}
	return strings.Join(parts, ".")
}

var joinTypeNames = map[pgquery.JoinType]string{
	pgquery.JoinType_JOIN_INNER: "inner",
	pgquery.JoinType_JOIN_LEFT:  "left",
	pgquery.JoinType_JOIN_RIGHT: "right",
	pgquery.JoinType_JOIN_FULL:  "full",
}

// flattenFrom walks a left-deep JoinExpr tree into a base table name plus an
// ordered list of typed joins, refusing natural joins, USING-clause joins,
// and any join whose right side is not a plain table reference.
func flattenFrom(n *pgquery.Node, loc diag.Loc, file string) (string, []any, *diag.Diagnostic) {
	switch v := n.Node.(type) {
	case *pgquery.Node_RangeVar:
		return rangeVarName(v.RangeVar), nil, nil
	case *pgquery.Node_JoinExpr:
		je := v.JoinExpr
		if je.IsNatural {
			return "", nil, diag.New(diag.ESansParseSQLUnsupportedForm, "natural joins are not supported; all joins must be explicitly typed", &loc)
		}
		if je.UsingClause != nil {
			return "", nil, diag.New(diag.ESansParseSQLUnsupportedForm, "USING-clause joins are not supported; use an explicit ON condition", &loc)
		}
		kind, ok := joinTypeNames[je.Jointype]
		if !ok {
			return "", nil, diag.New(diag.ESansParseSQLUnsupportedForm, "unsupported join type", &loc)
		}
		base, joins, derr := flattenFrom(je.Larg, loc, file)
		if derr != nil {
			return "", nil, derr
		}
		rv, ok := je.Rarg.Node.(*pgquery.Node_RangeVar)
		if !ok {
			return "", nil, diag.New(diag.ESansParseSQLUnsupportedForm, "join right-hand side must be a plain table reference", &loc)
		}
		if je.Quals == nil {
			return "", nil, diag.New(diag.ESansParseSQLUnsupportedForm, "joins must carry an explicit ON condition", &loc)
		}
		onAST, derr := sqlCondToAST(je.Quals, loc, file)
		if derr != nil {
			return "", nil, derr
		}
		joins = append(joins, map[string]any{
			"table": rangeVarName(rv.RangeVar),
			"type":  kind,
			"on":    expr.ToCanon(onAST),
		})
		return base, joins, nil
	default:
		return "", nil, diag.New(diag.ESansParseSQLUnsupportedForm, "unsupported FROM-clause entry (sub-selects are not supported)", &loc)
	}
}

func rangeVarName(rv *pgquery.RangeVar) string {
	if rv.Schemaname != "" {
		return rv.Schemaname + "." + rv.Relname
	}
	return rv.Relname
}

// sqlCondToAST renders a pgquery boolean/comparison expression tree to our
// strict-contract text and parses it, reusing the legacy translator for the
// bare '=' -> '==' and word-operator rewrites SQL text shares with the
// legacy dialect.
func sqlCondToAST(n *pgquery.Node, loc diag.Loc, file string) (expr.Node, *diag.Diagnostic) {
	text, derr := sqlExprText(n, loc)
	if derr != nil {
		return nil, derr
	}
	node, derr := legacy.ParsePredicate(text, file)
	if derr != nil {
		return nil, derr
	}
	return node, nil
}

func sqlExprText(n *pgquery.Node, loc diag.Loc) (string, *diag.Diagnostic) {
	switch v := n.Node.(type) {
	case *pgquery.Node_ColumnRef:
		return columnRefText(v.ColumnRef), nil
	case *pgquery.Node_AConst:
		return aConstText(v.AConst), nil
	case *pgquery.Node_AExpr:
		return aExprText(v.AExpr, loc)
	case *pgquery.Node_BoolExpr:
		return boolExprText(v.BoolExpr, loc)
	default:
		return "", diag.New(diag.ESansParseSQLUnsupportedForm, "unsupported expression shape in proc sql condition", &loc)
	}
}

func aConstText(c *pgquery.A_Const) string {
	switch v := c.Val.Node.(type) {
	case *pgquery.Node_Integer:
		return fmt.Sprintf("%d", v.Integer.Ival)
	case *pgquery.Node_Float:
		return v.Float.Str
	case *pgquery.Node_String_:
		return "'" + strings.ReplaceAll(v.String_.Str, "'", "\\'") + "'"
	default:
		return "null"
	}
}

var sqlOpMap = map[string]string{"=": "=", "<>": "!=", "!=": "!=", "<": "<", "<=": "<=", ">": ">", ">=": ">=",
	"+": "+", "-": "-", "*": "*", "/": "/"}

func aExprText(a *pgquery.A_Expr, loc diag.Loc) (string, *diag.Diagnostic) {
	if a.Kind != pgquery.A_Expr_Kind_AEXPR_OP || len(a.Name) != 1 {
		return "", diag.New(diag.ESansParseSQLUnsupportedForm, "unsupported operator expression shape in proc sql condition", &loc)
	}
	opNode, ok := a.Name[0].Node.(*pgquery.Node_String_)
	if !ok {
		return "", diag.New(diag.ESansParseSQLUnsupportedForm, "unsupported operator shape in proc sql condition", &loc)
	}
	op, ok := sqlOpMap[opNode.String_.Str]
	if !ok {
		return "", diag.New(diag.ESansParseSQLUnsupportedForm, "unsupported operator in proc sql condition: "+opNode.String_.Str, &loc)
	}
	lhs, derr := sqlExprText(a.Lexpr, loc)
	if derr != nil {
		return "", derr
	}
	rhs, derr := sqlExprText(a.Rexpr, loc)
	if derr != nil {
		return "", derr
	}
	return "(" + lhs + " " + op + " " + rhs + ")", nil
}

func boolExprText(b *pgquery.BoolExpr, loc diag.Loc) (string, *diag.Diagnostic) {
	var op string
	switch b.Boolop {
	case pgquery.BoolExprType_AND_EXPR:
		op = "and"
	case pgquery.BoolExprType_OR_EXPR:
		op = "or"
	case pgquery.BoolExprType_NOT_EXPR:
		arg, derr := sqlExprText(b.Args[0], loc)
		if derr != nil {
			return "", derr
		}
		return "(not " + arg + ")", nil
	default:
		return "", diag.New(diag.ESansParseSQLUnsupportedForm, "unsupported boolean expression in proc sql condition", &loc)
	}
	var parts []string
	for _, a := range b.Args {
		t, derr := sqlExprText(a, loc)
		if derr != nil {
			return "", derr
		}
		parts = append(parts, t)
	}
	return "(" + strings.Join(parts, " "+op+" ") + ")", nil
}

func parseGroupClause(nodes []*pgquery.Node, loc diag.Loc) ([]string, *diag.Diagnostic) {
	var cols []string
	for _, n := range nodes {
		ref, ok := n.Node.(*pgquery.Node_ColumnRef)
		if !ok {
			return nil, diag.New(diag.ESansParseSQLUnsupportedForm, "group by entries must be plain column references", &loc)
		}
		cols = append(cols, columnRefText(ref.ColumnRef))
	}
	return cols, nil
}

// checkGroupByCoversSelected enforces that every non-aggregated selected
// column appears in the group-by list.
func checkGroupByCoversSelected(selectCols []any, groupBy []string, loc diag.Loc) *diag.Diagnostic {
	inGroup := map[string]bool{}
	for _, g := range groupBy {
		inGroup[g] = true
	}
	for _, c := range selectCols {
		m := c.(map[string]any)
		if m["is_agg"] == true {
			continue
		}
		col, _ := m["col"].(string)
		if !inGroup[col] {
			return diag.New(diag.ESansParseSQLUnsupportedForm,
				fmt.Sprintf("selected column %q is neither aggregated nor present in the group-by list", col), &loc)
		}
	}
	return nil
}
