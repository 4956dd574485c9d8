package gateway

import (
	"fmt"
	"strings"
	"time"
)

// Op - оператор сравнения в условии фильтра.
type Op string

const (
	OpEq  Op = "eq"
	OpNeq Op = "neq"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
)

// Valid проверяет, что оператор поддерживается.
func (o Op) Valid() bool {
	switch o {
	case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte:
		return true
	}
	return false
}

// Condition - одно условие вида column <op> value.
type Condition struct {
	Column string `json:"column"`
	Op     Op     `json:"op"`
	Value  any    `json:"value"`
}

// Order - сортировка по колонке.
type Order struct {
	Column string `json:"column"`
	Desc   bool   `json:"desc,omitempty"`
}

// Filter объединяет условия через AND.
type Filter struct {
	Conditions []Condition `json:"conditions,omitempty"`
	OrderBy    []Order     `json:"order_by,omitempty"`
	Limit      int         `json:"limit,omitempty"`
}

// Where строит фильтр из условий.
func Where(conds ...Condition) Filter {
	return Filter{Conditions: conds}
}

// All - пустой фильтр, подходит всем строкам.
func All() Filter {
	return Filter{}
}

func Eq(column string, value any) Condition  { return Condition{Column: column, Op: OpEq, Value: value} }
func Neq(column string, value any) Condition { return Condition{Column: column, Op: OpNeq, Value: value} }
func Gt(column string, value any) Condition  { return Condition{Column: column, Op: OpGt, Value: value} }
func Gte(column string, value any) Condition { return Condition{Column: column, Op: OpGte, Value: value} }
func Lt(column string, value any) Condition  { return Condition{Column: column, Op: OpLt, Value: value} }
func Lte(column string, value any) Condition { return Condition{Column: column, Op: OpLte, Value: value} }

// OrderAsc добавляет сортировку по возрастанию.
func (f Filter) OrderAsc(column string) Filter {
	f.OrderBy = append(append([]Order(nil), f.OrderBy...), Order{Column: column})
	return f
}

// OrderDesc добавляет сортировку по убыванию.
func (f Filter) OrderDesc(column string) Filter {
	f.OrderBy = append(append([]Order(nil), f.OrderBy...), Order{Column: column, Desc: true})
	return f
}

// WithLimit ограничивает количество строк.
func (f Filter) WithLimit(n int) Filter {
	f.Limit = n
	return f
}

// Validate проверяет имена колонок и операторы.
func (f Filter) Validate() error {
	for _, c := range f.Conditions {
		if !validIdent(c.Column) {
			return fmt.Errorf("%w: column %q", ErrInvalidFilter, c.Column)
		}
		if !c.Op.Valid() {
			return fmt.Errorf("%w: operator %q", ErrInvalidFilter, c.Op)
		}
	}
	for _, o := range f.OrderBy {
		if !validIdent(o.Column) {
			return fmt.Errorf("%w: order column %q", ErrInvalidFilter, o.Column)
		}
	}
	if f.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidFilter)
	}
	return nil
}

// Matches применяет фильтр к строке в памяти.
func (f Filter) Matches(row Row) bool {
	for _, c := range f.Conditions {
		cmp, ok := Compare(row[c.Column], c.Value)
		switch c.Op {
		case OpEq:
			if !ok || cmp != 0 {
				return false
			}
		case OpNeq:
			if ok && cmp == 0 {
				return false
			}
		case OpGt:
			if !ok || cmp <= 0 {
				return false
			}
		case OpGte:
			if !ok || cmp < 0 {
				return false
			}
		case OpLt:
			if !ok || cmp >= 0 {
				return false
			}
		case OpLte:
			if !ok || cmp > 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Compare сравнивает два значения колонок. ok=false, если значения несравнимы.
func Compare(a, b any) (int, bool) {
	if a == nil || b == nil {
		if a == nil && b == nil {
			return 0, true
		}
		return 0, false
	}

	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			}
			return 0, true
		}
	}

	if at, aok := toTime(a); aok {
		if bt, bok := toTime(b); bok {
			return at.Compare(bt), true
		}
	}

	if ab, aok := a.(bool); aok {
		if bb, bok := b.(bool); bok {
			if ab == bb {
				return 0, true
			}
			if !ab {
				return -1, true
			}
			return 1, true
		}
	}

	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b)), true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	}
	return time.Time{}, false
}

func validIdent(s string) bool {
	if s == "" || len(s) > 63 {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// ValidColumn проверяет имя колонки.
func ValidColumn(s string) bool {
	return validIdent(s)
}
