package postgres

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"liftkeeper/internal/domain/gateway"
)

// statement - SQL и его аргументы.
type statement struct {
	sql  string
	args []any
}

type builder struct {
	args []any
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, normalize(v))
	return "$" + strconv.Itoa(len(b.args))
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

var operators = map[gateway.Op]string{
	gateway.OpEq:  "=",
	gateway.OpNeq: "<>",
	gateway.OpGt:  ">",
	gateway.OpGte: ">=",
	gateway.OpLt:  "<",
	gateway.OpLte: "<=",
}

func (b *builder) where(f gateway.Filter) string {
	if len(f.Conditions) == 0 {
		return ""
	}
	parts := make([]string, 0, len(f.Conditions))
	for _, c := range f.Conditions {
		col := ident(c.Column)
		if c.Value == nil {
			switch c.Op {
			case gateway.OpEq:
				parts = append(parts, col+" IS NULL")
				continue
			case gateway.OpNeq:
				parts = append(parts, col+" IS NOT NULL")
				continue
			}
		}
		parts = append(parts, col+" "+operators[c.Op]+" "+b.arg(c.Value))
	}
	return " WHERE " + strings.Join(parts, " AND ")
}

func checkRow(row gateway.Row) ([]string, error) {
	if len(row) == 0 {
		return nil, fmt.Errorf("%w: empty row", gateway.ErrInvalidRow)
	}
	cols := make([]string, 0, len(row))
	for col := range row {
		if !gateway.ValidColumn(col) {
			return nil, fmt.Errorf("%w: column %q", gateway.ErrInvalidRow, col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols, nil
}

func buildSelect(table string, f gateway.Filter) (statement, error) {
	if err := f.Validate(); err != nil {
		return statement{}, err
	}
	var b builder
	sql := "SELECT * FROM " + ident(table) + b.where(f)
	if len(f.OrderBy) > 0 {
		orders := make([]string, 0, len(f.OrderBy))
		for _, o := range f.OrderBy {
			dir := " ASC"
			if o.Desc {
				dir = " DESC"
			}
			orders = append(orders, ident(o.Column)+dir)
		}
		sql += " ORDER BY " + strings.Join(orders, ", ")
	}
	if f.Limit > 0 {
		sql += " LIMIT " + strconv.Itoa(f.Limit)
	}
	return statement{sql: sql, args: b.args}, nil
}

func buildInsert(table string, row gateway.Row) (statement, error) {
	cols, err := checkRow(row)
	if err != nil {
		return statement{}, err
	}
	var b builder
	names := make([]string, len(cols))
	values := make([]string, len(cols))
	for i, col := range cols {
		names[i] = ident(col)
		values[i] = b.arg(row[col])
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		ident(table), strings.Join(names, ", "), strings.Join(values, ", "))
	return statement{sql: sql, args: b.args}, nil
}

// buildUpsert строит INSERT ... ON CONFLICT. Если в строке есть updated_at,
// существующая строка с более поздней отметкой не перезаписывается.
func buildUpsert(table string, row gateway.Row, conflictKey []string) (statement, error) {
	if len(conflictKey) == 0 {
		return statement{}, fmt.Errorf("%w: upsert needs a conflict key", gateway.ErrInvalidRow)
	}
	ins, err := buildInsert(table, row)
	if err != nil {
		return statement{}, err
	}

	key := make(map[string]bool, len(conflictKey))
	keyCols := make([]string, 0, len(conflictKey))
	for _, k := range conflictKey {
		if !gateway.ValidColumn(k) {
			return statement{}, fmt.Errorf("%w: conflict column %q", gateway.ErrInvalidRow, k)
		}
		if _, ok := row[k]; !ok {
			return statement{}, fmt.Errorf("%w: conflict column %q missing from row", gateway.ErrInvalidRow, k)
		}
		key[k] = true
		keyCols = append(keyCols, ident(k))
	}

	cols, _ := checkRow(row)
	var sets []string
	for _, col := range cols {
		if !key[col] {
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", ident(col), ident(col)))
		}
	}

	sql := ins.sql + " ON CONFLICT (" + strings.Join(keyCols, ", ") + ")"
	if len(sets) == 0 {
		return statement{sql: sql + " DO NOTHING", args: ins.args}, nil
	}
	sql += " DO UPDATE SET " + strings.Join(sets, ", ")
	if _, ok := row["updated_at"]; ok {
		sql += fmt.Sprintf(" WHERE %s.%s IS NULL OR %s.%s <= EXCLUDED.%s",
			ident(table), ident("updated_at"), ident(table), ident("updated_at"), ident("updated_at"))
	}
	return statement{sql: sql, args: ins.args}, nil
}

func buildUpdate(table string, patch gateway.Row, f gateway.Filter) (statement, error) {
	if err := f.Validate(); err != nil {
		return statement{}, err
	}
	if len(f.Conditions) == 0 {
		return statement{}, fmt.Errorf("%w: update without conditions", gateway.ErrInvalidFilter)
	}
	cols, err := checkRow(patch)
	if err != nil {
		return statement{}, err
	}

	var b builder
	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = ident(col) + " = " + b.arg(patch[col])
	}
	sql := "UPDATE " + ident(table) + " SET " + strings.Join(sets, ", ") + b.where(f)
	return statement{sql: sql, args: b.args}, nil
}

func buildDelete(table string, f gateway.Filter) (statement, error) {
	if err := f.Validate(); err != nil {
		return statement{}, err
	}
	if len(f.Conditions) == 0 {
		return statement{}, fmt.Errorf("%w: delete without conditions", gateway.ErrInvalidFilter)
	}
	var b builder
	sql := "DELETE FROM " + ident(table) + b.where(f)
	return statement{sql: sql, args: b.args}, nil
}

// normalize приводит значения, пришедшие из JSON, к виду, понятному драйверу:
// целые float64 становятся int64, массивы и объекты - JSON-текстом для jsonb.
func normalize(v any) any {
	switch x := v.(type) {
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int64(x)
		}
		return x
	case []any, map[string]any, []string, gateway.Row, gateway.Filter, []gateway.Condition:
		data, err := json.Marshal(x)
		if err != nil {
			return nil
		}
		return string(data)
	}
	return v
}
