// Package querybuilder renders the small set of Postgres statements the repositories need,
// with $n placeholders numbered in argument order.
package querybuilder

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type binder struct {
	args []any
}

func (b *binder) bind(value any) string {
	b.args = append(b.args, value)
	return "$" + strconv.Itoa(len(b.args))
}

// expand replaces each '?' in expr with the next bound argument.
func (b *binder) expand(expr string, values []any) (string, error) {
	var out strings.Builder
	next := 0
	for i := 0; i < len(expr); i++ {
		if expr[i] != '?' {
			out.WriteByte(expr[i])
			continue
		}
		if next >= len(values) {
			return "", fmt.Errorf("expression %q has more placeholders than args", expr)
		}
		out.WriteString(b.bind(values[next]))
		next++
	}
	if next != len(values) {
		return "", fmt.Errorf("expression %q has %d unused args", expr, len(values)-next)
	}
	return out.String(), nil
}

type Condition interface {
	render(b *binder) (string, error)
}

type conditionFunc func(b *binder) (string, error)

func (f conditionFunc) render(b *binder) (string, error) { return f(b) }

func Eq(column string, value any) Condition {
	return conditionFunc(func(b *binder) (string, error) {
		return column + " = " + b.bind(value), nil
	})
}

func IsNull(column string) Condition {
	return conditionFunc(func(*binder) (string, error) {
		return column + " IS NULL", nil
	})
}

// In renders a never-true predicate for an empty list.
func In[T any](column string, values []T) Condition {
	return conditionFunc(func(b *binder) (string, error) {
		if len(values) == 0 {
			return "1=0", nil
		}
		parts := make([]string, 0, len(values))
		for _, v := range values {
			parts = append(parts, b.bind(v))
		}
		return column + " IN (" + strings.Join(parts, ", ") + ")", nil
	})
}

// Expr is a raw predicate using '?' for its arguments.
func Expr(expr string, args ...any) Condition {
	return conditionFunc(func(b *binder) (string, error) {
		return b.expand(expr, args)
	})
}

func renderWhere(buf *strings.Builder, b *binder, conditions []Condition) error {
	for i, c := range conditions {
		if i == 0 {
			buf.WriteString(" WHERE ")
		} else {
			buf.WriteString(" AND ")
		}
		sql, err := c.render(b)
		if err != nil {
			return err
		}
		buf.WriteString(sql)
	}
	return nil
}

type SelectBuilder struct {
	columns []string
	table   string
	where   []Condition
	orderBy []string
	limit   int
}

func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: columns}
}

func (s *SelectBuilder) From(table string) *SelectBuilder {
	s.table = table
	return s
}

func (s *SelectBuilder) Where(conditions ...Condition) *SelectBuilder {
	s.where = append(s.where, conditions...)
	return s
}

func (s *SelectBuilder) OrderBy(terms ...string) *SelectBuilder {
	s.orderBy = append(s.orderBy, terms...)
	return s
}

func (s *SelectBuilder) Limit(n int) *SelectBuilder {
	s.limit = n
	return s
}

func (s *SelectBuilder) ToSQL() (string, []any, error) {
	if len(s.columns) == 0 {
		return "", nil, errors.New("select columns are required")
	}
	if strings.TrimSpace(s.table) == "" {
		return "", nil, errors.New("select table is required")
	}

	var (
		buf strings.Builder
		b   binder
	)
	fmt.Fprintf(&buf, "SELECT %s FROM %s", strings.Join(s.columns, ", "), s.table)
	if err := renderWhere(&buf, &b, s.where); err != nil {
		return "", nil, err
	}
	if len(s.orderBy) > 0 {
		buf.WriteString(" ORDER BY " + strings.Join(s.orderBy, ", "))
	}
	if s.limit > 0 {
		buf.WriteString(" LIMIT " + strconv.Itoa(s.limit))
	}
	return buf.String(), b.args, nil
}

type InsertBuilder struct {
	table      string
	columns    []string
	rows       [][]any
	conflict   []string
	updateCols []string
	returning  []string
}

func InsertInto(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

func (i *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	i.columns = columns
	return i
}

func (i *InsertBuilder) Values(values ...any) *InsertBuilder {
	i.rows = append(i.rows, values)
	return i
}

func (i *InsertBuilder) OnConflict(target ...string) *InsertBuilder {
	i.conflict = target
	return i
}

// DoUpdate overwrites the named columns from EXCLUDED on conflict.
func (i *InsertBuilder) DoUpdate(columns ...string) *InsertBuilder {
	i.updateCols = columns
	return i
}

func (i *InsertBuilder) Returning(columns ...string) *InsertBuilder {
	i.returning = columns
	return i
}

func (i *InsertBuilder) ToSQL() (string, []any, error) {
	switch {
	case strings.TrimSpace(i.table) == "":
		return "", nil, errors.New("insert table is required")
	case len(i.columns) == 0:
		return "", nil, errors.New("insert columns are required")
	case len(i.rows) == 0:
		return "", nil, errors.New("insert values are required")
	}

	var (
		buf strings.Builder
		b   binder
	)
	fmt.Fprintf(&buf, "INSERT INTO %s (%s) VALUES ", i.table, strings.Join(i.columns, ", "))
	for r, row := range i.rows {
		if len(row) != len(i.columns) {
			return "", nil, fmt.Errorf("insert row %d has %d values, expected %d", r, len(row), len(i.columns))
		}
		if r > 0 {
			buf.WriteString(", ")
		}
		placeholders := make([]string, len(row))
		for c, v := range row {
			placeholders[c] = b.bind(v)
		}
		buf.WriteString("(" + strings.Join(placeholders, ", ") + ")")
	}

	if len(i.conflict) > 0 {
		buf.WriteString(" ON CONFLICT (" + strings.Join(i.conflict, ", ") + ")")
		switch {
		case len(i.updateCols) > 0:
			sets := make([]string, len(i.updateCols))
			for n, col := range i.updateCols {
				sets[n] = col + " = EXCLUDED." + col
			}
			buf.WriteString(" DO UPDATE SET " + strings.Join(sets, ", "))
		default:
			return "", nil, errors.New("on conflict requires DoUpdate")
		}
	}
	if len(i.returning) > 0 {
		buf.WriteString(" RETURNING " + strings.Join(i.returning, ", "))
	}
	return buf.String(), b.args, nil
}

type assignment struct {
	column string
	value  any
	expr   string
	args   []any
	isExpr bool
}

type UpdateBuilder struct {
	table string
	sets  []assignment
	where []Condition
}

func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

func (u *UpdateBuilder) Set(column string, value any) *UpdateBuilder {
	u.sets = append(u.sets, assignment{column: column, value: value})
	return u
}

// SetExpr assigns a raw expression, e.g. SetExpr("updated_at", "NOW()").
func (u *UpdateBuilder) SetExpr(column, expr string, args ...any) *UpdateBuilder {
	u.sets = append(u.sets, assignment{column: column, expr: expr, args: args, isExpr: true})
	return u
}

func (u *UpdateBuilder) Where(conditions ...Condition) *UpdateBuilder {
	u.where = append(u.where, conditions...)
	return u
}

func (u *UpdateBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(u.table) == "" {
		return "", nil, errors.New("update table is required")
	}
	if len(u.sets) == 0 {
		return "", nil, errors.New("update sets are required")
	}

	var (
		buf strings.Builder
		b   binder
	)
	buf.WriteString("UPDATE " + u.table + " SET ")
	for n, set := range u.sets {
		if n > 0 {
			buf.WriteString(", ")
		}
		rhs := ""
		if set.isExpr {
			expanded, err := b.expand(set.expr, set.args)
			if err != nil {
				return "", nil, err
			}
			rhs = expanded
		} else {
			rhs = b.bind(set.value)
		}
		buf.WriteString(set.column + " = " + rhs)
	}
	if err := renderWhere(&buf, &b, u.where); err != nil {
		return "", nil, err
	}
	return buf.String(), b.args, nil
}
