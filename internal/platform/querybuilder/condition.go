package querybuilder

import (
	"strconv"
	"strings"
)

// writer accumulates SQL text and the positional args bound into it.
type writer struct {
	strings.Builder
	args []any
}

// bind appends v and writes its $n placeholder.
func (w *writer) bind(v any) {
	w.args = append(w.args, v)
	w.WriteByte('$')
	w.WriteString(strconv.Itoa(len(w.args)))
}

// expr writes sql with each '?' bound to the next arg. A '?' without a
// matching arg is written as is.
func (w *writer) expr(sql string, args []any) {
	next := 0
	for i := 0; i < len(sql); i++ {
		if sql[i] == '?' && next < len(args) {
			w.bind(args[next])
			next++
			continue
		}
		w.WriteByte(sql[i])
	}
}

func (w *writer) list(keyword string, parts []string) {
	if len(parts) == 0 {
		return
	}
	w.WriteByte(' ')
	w.WriteString(keyword)
	w.WriteByte(' ')
	w.WriteString(strings.Join(parts, ", "))
}

func (w *writer) where(conditions []Condition) {
	for i, c := range conditions {
		if i == 0 {
			w.WriteString(" WHERE ")
		} else {
			w.WriteString(" AND ")
		}
		c.writeSQL(w)
	}
}

func (w *writer) suffix(sql string) {
	if sql == "" {
		return
	}
	w.WriteByte(' ')
	w.WriteString(sql)
}

// Condition is one predicate of a WHERE or JOIN ... ON clause.
type Condition interface {
	writeSQL(w *writer)
}

type conditionFunc func(w *writer)

func (f conditionFunc) writeSQL(w *writer) { f(w) }

func Eq(column string, value any) Condition {
	return conditionFunc(func(w *writer) {
		w.WriteString(column)
		w.WriteString(" = ")
		w.bind(value)
	})
}

func IsNull(column string) Condition {
	return Expr(column + " IS NULL")
}

func IsNotNull(column string) Condition {
	return Expr(column + " IS NOT NULL")
}

// Expr is a raw predicate. Each '?' binds the next of args, so casts like
// "guid = ANY(?::uuid[])" keep working.
func Expr(sql string, args ...any) Condition {
	return conditionFunc(func(w *writer) {
		w.expr(sql, args)
	})
}
