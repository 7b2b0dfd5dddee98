package engine

import (
	"math/big"
	"sort"
	"strings"

	"github.com/sans-lang/sans/internal/diag"
	"github.com/sans-lang/sans/internal/expr"
	"github.com/sans-lang/sans/internal/ir"
	"github.com/sans-lang/sans/internal/value"
)

func groupKeyText(key []value.Value) string {
	parts := make([]string, len(key))
	for i, v := range key {
		parts[i] = string(v.Kind) + ":" + v.Text()
	}
	return strings.Join(parts, "\x1f")
}

func (e *Engine) execSort(s *ir.Step) *diag.Diagnostic {
	in, derr := e.input(s.Inputs[0], s.Loc)
	if derr != nil {
		return derr
	}
	byRaw, _ := s.Params["by"].([]any)
	type byKey struct {
		idx  int
		name string
		desc bool
	}
	var keys []byKey
	for _, b := range byRaw {
		m := b.(map[string]any)
		col, _ := m["col"].(string)
		desc, _ := m["desc"].(bool)
		idx := in.ColIndex(col)
		if idx < 0 {
			return errf(diag.ESansRuntimeMissingColumn, s.Loc, "sort: missing by column %q", col)
		}
		keys = append(keys, byKey{idx: idx, name: col, desc: desc})
	}
	nodupkey, _ := s.Params["nodupkey"].(bool)

	rows := append([][]value.Value(nil), in.Rows...)
	var sortErr *diag.Diagnostic
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			cmp, ok := value.Compare(rows[i][k.idx], rows[j][k.idx])
			if !ok {
				if sortErr == nil {
					sortErr = errf(diag.ESansRuntimeType, s.Loc,
						"sort: incompatible types in by column %q: %s vs %s", k.name, rows[i][k.idx].Kind, rows[j][k.idx].Kind)
				}
				return false
			}
			if cmp == 0 {
				continue
			}
			if k.desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	if sortErr != nil {
		return sortErr
	}

	if nodupkey && len(keys) > 0 {
		deduped := rows[:0:0]
		for i, row := range rows {
			if i == 0 {
				deduped = append(deduped, row)
				continue
			}
			dup := true
			for _, k := range keys {
				cmp, ok := value.Compare(row[k.idx], deduped[len(deduped)-1][k.idx])
				if !ok || cmp != 0 {
					dup = false
					break
				}
			}
			if !dup {
				deduped = append(deduped, row)
			}
		}
		rows = deduped
	}

	e.Tables[s.Outputs[0]] = &Table{Columns: append([]string(nil), in.Columns...), Rows: rows}
	return nil
}

func computeStat(stat string, vals []value.Value, nmiss int) value.Value {
	switch stat {
	case "n", "count":
		return value.Int(int64(len(vals)))
	case "nmiss":
		return value.Int(int64(nmiss))
	case "sum", "mean":
		if len(vals) == 0 {
			return value.Null()
		}
		sum := value.DecimalFromBigInt(big.NewInt(0))
		for _, v := range vals {
			sum = sum.Add(toDecimal(v))
		}
		if stat == "sum" {
			return value.Dec(sum)
		}
		mean, ok := sum.DivExact(value.DecimalFromBigInt(big.NewInt(int64(len(vals)))), 16)
		if !ok {
			return value.Null()
		}
		return value.Dec(mean)
	case "min", "max":
		if len(vals) == 0 {
			return value.Null()
		}
		best := vals[0]
		for _, v := range vals[1:] {
			cmp, ok := value.Compare(v, best)
			if !ok {
				continue
			}
			if (stat == "min" && cmp < 0) || (stat == "max" && cmp > 0) {
				best = v
			}
		}
		return best
	}
	return value.Null()
}

func (e *Engine) execAggregate(s *ir.Step) *diag.Diagnostic {
	in, derr := e.input(s.Inputs[0], s.Loc)
	if derr != nil {
		return derr
	}
	classCols := paramStringSlice(s.Params, "class")
	varCols := paramStringSlice(s.Params, "var")
	stats := paramStringSlice(s.Params, "stats")

	classIdx := make([]int, len(classCols))
	for i, c := range classCols {
		idx := in.ColIndex(c)
		if idx < 0 {
			return errf(diag.ESansRuntimeMissingColumn, s.Loc, "aggregate: missing class column %q", c)
		}
		classIdx[i] = idx
	}
	for _, c := range varCols {
		if in.ColIndex(c) < 0 {
			return errf(diag.ESansRuntimeMissingColumn, s.Loc, "aggregate: missing var column %q", c)
		}
	}

	type group struct {
		key    []value.Value
		values map[string][]value.Value
		nmiss  map[string]int
	}
	var order []string
	groups := map[string]*group{}

	for _, row := range in.Rows {
		key := make([]value.Value, len(classIdx))
		for i, idx := range classIdx {
			key[i] = row[idx]
		}
		kt := groupKeyText(key)
		g, ok := groups[kt]
		if !ok {
			g = &group{key: key, values: map[string][]value.Value{}, nmiss: map[string]int{}}
			groups[kt] = g
			order = append(order, kt)
		}
		for _, vc := range varCols {
			v := row[in.ColIndex(vc)]
			if v.IsNull() {
				g.nmiss[vc]++
			} else {
				g.values[vc] = append(g.values[vc], v)
			}
		}
	}

	outCols := append([]string(nil), classCols...)
	for _, vc := range varCols {
		for _, st := range stats {
			outCols = append(outCols, vc+"_"+st)
		}
	}

	out := &Table{Columns: outCols}
	for _, kt := range order {
		g := groups[kt]
		row := append([]value.Value(nil), g.key...)
		for _, vc := range varCols {
			for _, st := range stats {
				row = append(row, computeStat(st, g.values[vc], g.nmiss[vc]))
			}
		}
		out.Rows = append(out.Rows, row)
	}
	e.Tables[s.Outputs[0]] = out
	return nil
}

func (e *Engine) execTranspose(s *ir.Step) *diag.Diagnostic {
	in, derr := e.input(s.Inputs[0], s.Loc)
	if derr != nil {
		return derr
	}
	byCols := paramStringSlice(s.Params, "by")
	idCol, _ := s.Params["id"].(string)
	varCols := paramStringSlice(s.Params, "var")

	byIdx := make([]int, len(byCols))
	for i, c := range byCols {
		idx := in.ColIndex(c)
		if idx < 0 {
			return errf(diag.ESansRuntimeMissingColumn, s.Loc, "transpose: missing by column %q", c)
		}
		byIdx[i] = idx
	}
	idIdx := in.ColIndex(idCol)
	if idIdx < 0 {
		return errf(diag.ESansRuntimeMissingColumn, s.Loc, "transpose: missing id column %q", idCol)
	}
	if len(varCols) == 0 {
		return errf(diag.ESansRuntimeMissingColumn, s.Loc, "transpose: requires at least one var column")
	}

	type group struct {
		key  []value.Value
		vals map[string]value.Value
	}
	var groupOrder []string
	groups := map[string]*group{}
	var idOrder []string
	seenID := map[string]bool{}

	multiVar := len(varCols) > 1
	for _, row := range in.Rows {
		key := make([]value.Value, len(byIdx))
		for i, idx := range byIdx {
			key[i] = row[idx]
		}
		kt := groupKeyText(key)
		g, ok := groups[kt]
		if !ok {
			g = &group{key: key, vals: map[string]value.Value{}}
			groups[kt] = g
			groupOrder = append(groupOrder, kt)
		}
		idVal := row[idIdx].Text()
		if !seenID[idVal] {
			seenID[idVal] = true
			idOrder = append(idOrder, idVal)
		}
		for _, vc := range varCols {
			colName := idVal
			if multiVar {
				colName = vc + "_" + idVal
			}
			g.vals[colName] = row[in.ColIndex(vc)]
		}
	}

	outCols := append([]string(nil), byCols...)
	var valCols []string
	if multiVar {
		for _, vc := range varCols {
			for _, idv := range idOrder {
				valCols = append(valCols, vc+"_"+idv)
			}
		}
	} else {
		valCols = append(valCols, idOrder...)
	}
	outCols = append(outCols, valCols...)

	out := &Table{Columns: outCols}
	for _, kt := range groupOrder {
		g := groups[kt]
		row := append([]value.Value(nil), g.key...)
		for _, c := range valCols {
			if v, ok := g.vals[c]; ok {
				row = append(row, v)
			} else {
				row = append(row, value.Null())
			}
		}
		out.Rows = append(out.Rows, row)
	}
	e.Tables[s.Outputs[0]] = out
	return nil
}

func (e *Engine) execSave(s *ir.Step) *diag.Diagnostic {
	in, derr := e.input(s.Inputs[0], s.Loc)
	if derr != nil {
		return derr
	}
	path, _ := s.Params["path"].(string)
	format, _ := s.Params["format"].(string)
	if e.SaveWriter == nil {
		return errf(diag.ESansCapUnsupported, s.Loc, "save: no writer configured for format %q", format)
	}
	if err := e.SaveWriter.Write(path, format, in); err != nil {
		return errf(diag.ESansRuntimeSaveIOError, s.Loc, "save: %s", err)
	}
	return nil
}

func rowWithPrefix(t *Table, rowIdx int, tableName string) map[string]value.Value {
	row := t.Rows[rowIdx]
	m := make(map[string]value.Value, len(t.Columns)*2)
	for i, c := range t.Columns {
		m[c] = row[i]
		if tableName != "" {
			m[tableName+"."+c] = row[i]
		}
	}
	return m
}

func nullRow(t *Table, tableName string) map[string]value.Value {
	m := make(map[string]value.Value, len(t.Columns)*2)
	for _, c := range t.Columns {
		m[c] = value.Null()
		if tableName != "" {
			m[tableName+"."+c] = value.Null()
		}
	}
	return m
}

// checkAmbiguousColumn refuses a bare (unqualified) select/group-by column
// that names a column present in more than one joined table: rowWithPrefix's
// bare-key merge silently lets the later table's value win, which would
// otherwise project whichever table happened to be joined last instead of
// reporting the ambiguity.
func checkAmbiguousColumn(col string, tableColumns map[string][]string, loc diag.Loc) *diag.Diagnostic {
	count := 0
	for _, cols := range tableColumns {
		for _, c := range cols {
			if c == col {
				count++
				break
			}
		}
	}
	if count > 1 {
		return errf(diag.ESansRuntimeSQLAmbiguousColumn, loc, "sql_select: ambiguous column %q present in more than one table", col)
	}
	return nil
}

func mergeRows(a, b map[string]value.Value) map[string]value.Value {
	m := make(map[string]value.Value, len(a)+len(b))
	for k, v := range a {
		m[k] = v
	}
	for k, v := range b {
		m[k] = v
	}
	return m
}

// execSQLSelect evaluates a proc sql select as a left-deep nested-loop join
// over its typed join list, followed by an optional WHERE filter, an
// optional GROUP BY aggregation, and the projected select list.
func (e *Engine) execSQLSelect(s *ir.Step) *diag.Diagnostic {
	baseName, _ := s.Params["from"].(string)
	base, derr := e.input(baseName, s.Loc)
	if derr != nil {
		return derr
	}

	rows := make([]map[string]value.Value, len(base.Rows))
	for i := range base.Rows {
		rows[i] = rowWithPrefix(base, i, baseName)
	}

	tableColumns := map[string][]string{baseName: base.Columns}

	joinsRaw, _ := s.Params["joins"].([]any)
	for _, jr := range joinsRaw {
		jm := jr.(map[string]any)
		tableName, _ := jm["table"].(string)
		joinType, _ := jm["type"].(string)
		onMap, _ := jm["on"].(map[string]any)
		onNode, err := expr.FromCanon(onMap)
		if err != nil {
			return errf(diag.EBadExpr, s.Loc, "sql_select join condition: %s", err)
		}
		right, derr := e.input(tableName, s.Loc)
		if derr != nil {
			return derr
		}
		tableColumns[tableName] = right.Columns

		rightMatched := make([]bool, len(right.Rows))
		var next []map[string]value.Value
		for _, lrow := range rows {
			matchedAny := false
			for ri := range right.Rows {
				merged := mergeRows(lrow, rowWithPrefix(right, ri, tableName))
				ev := &Evaluator{Row: merged, Scalars: e.scalars, Formats: e.formats}
				v, derr := ev.Eval(onNode)
				if derr != nil {
					return derr
				}
				if v.Truthy() {
					next = append(next, merged)
					matchedAny = true
					rightMatched[ri] = true
				}
			}
			if !matchedAny && (joinType == "left" || joinType == "full") {
				next = append(next, mergeRows(lrow, nullRow(right, tableName)))
			}
		}
		if joinType == "right" || joinType == "full" {
			for ri := range right.Rows {
				if !rightMatched[ri] {
					next = append(next, mergeRows(nullRow(base, baseName), rowWithPrefix(right, ri, tableName)))
				}
			}
		}
		rows = next
	}

	if whereMap, ok := s.Params["where"].(map[string]any); ok {
		whereNode, err := expr.FromCanon(whereMap)
		if err != nil {
			return errf(diag.EBadExpr, s.Loc, "sql_select where: %s", err)
		}
		var kept []map[string]value.Value
		for _, r := range rows {
			ev := &Evaluator{Row: r, Scalars: e.scalars, Formats: e.formats}
			v, derr := ev.Eval(whereNode)
			if derr != nil {
				return derr
			}
			if v.Truthy() {
				kept = append(kept, r)
			}
		}
		rows = kept
	}

	selectRaw, _ := s.Params["select"].([]any)
	groupBy := paramStringSlice(s.Params, "group_by")

	for _, it := range selectRaw {
		col, _ := it.(map[string]any)["col"].(string)
		if col == "" || strings.Contains(col, ".") {
			continue
		}
		if derr := checkAmbiguousColumn(col, tableColumns, s.Loc); derr != nil {
			return derr
		}
	}
	for _, g := range groupBy {
		if strings.Contains(g, ".") {
			continue
		}
		if derr := checkAmbiguousColumn(g, tableColumns, s.Loc); derr != nil {
			return derr
		}
	}

	outName := func(item map[string]any) string {
		if alias, ok := item["alias"].(string); ok && alias != "" {
			return alias
		}
		if item["is_agg"] == true {
			arg, _ := item["agg_arg"].(string)
			fn, _ := item["agg_func"].(string)
			if arg == "*" {
				return fn + "_star"
			}
			return fn + "_" + strings.ReplaceAll(arg, ".", "_")
		}
		col, _ := item["col"].(string)
		if idx := strings.LastIndex(col, "."); idx >= 0 {
			return col[idx+1:]
		}
		return col
	}

	hasAgg := false
	for _, it := range selectRaw {
		if it.(map[string]any)["is_agg"] == true {
			hasAgg = true
		}
	}

	var outCols []string
	for _, it := range selectRaw {
		outCols = append(outCols, outName(it.(map[string]any)))
	}
	out := &Table{Columns: outCols}

	if len(groupBy) == 0 && !hasAgg {
		for _, r := range rows {
			var outRow []value.Value
			for _, it := range selectRaw {
				col, _ := it.(map[string]any)["col"].(string)
				v, ok := r[col]
				if !ok {
					return errf(diag.ESansRuntimeMissingColumn, s.Loc, "sql_select: missing column %q", col)
				}
				outRow = append(outRow, v)
			}
			out.Rows = append(out.Rows, outRow)
		}
		e.Tables[s.Outputs[0]] = out
		return nil
	}

	groupKeyFor := func(r map[string]value.Value) []value.Value {
		key := make([]value.Value, len(groupBy))
		for i, g := range groupBy {
			key[i] = r[g]
		}
		return key
	}

	var order []string
	memberRows := map[string][]map[string]value.Value{}
	groupKeys := map[string][]value.Value{}
	for _, r := range rows {
		key := groupKeyFor(r)
		kt := groupKeyText(key)
		if _, ok := groupKeys[kt]; !ok {
			order = append(order, kt)
			groupKeys[kt] = key
		}
		memberRows[kt] = append(memberRows[kt], r)
	}
	if len(rows) == 0 && len(groupBy) == 0 {
		// An aggregate with no GROUP BY over zero rows still yields one row
		// (e.g. count(*) = 0).
		order = append(order, "")
		memberRows[""] = nil
		groupKeys[""] = nil
	}

	for _, kt := range order {
		members := memberRows[kt]
		var outRow []value.Value
		for _, it := range selectRaw {
			m := it.(map[string]any)
			if m["is_agg"] == true {
				fn, _ := m["agg_func"].(string)
				arg, _ := m["agg_arg"].(string)
				var vals []value.Value
				for _, mr := range members {
					if arg == "*" {
						vals = append(vals, value.Int(1))
						continue
					}
					if v, ok := mr[arg]; ok && !v.IsNull() {
						vals = append(vals, v)
					}
				}
				stat := map[string]string{"count": "count", "sum": "sum", "avg": "mean", "min": "min", "max": "max"}[fn]
				if fn == "count" && arg != "*" && len(vals) == 0 {
					outRow = append(outRow, value.Null())
					continue
				}
				outRow = append(outRow, computeStat(stat, vals, 0))
				continue
			}
			col, _ := m["col"].(string)
			if len(members) > 0 {
				outRow = append(outRow, members[0][col])
			} else {
				outRow = append(outRow, value.Null())
			}
		}
		out.Rows = append(out.Rows, outRow)
	}

	e.Tables[s.Outputs[0]] = out
	return nil
}
