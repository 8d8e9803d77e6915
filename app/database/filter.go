package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

type operator int

const (
	opEq operator = iota
	opLessThan
	opLike
	opContains
	opIn
	opIsNull
)

// Predicate is one condition of a Filter.
type Predicate struct {
	Column string
	op     operator
	value  any
}

// Filter is a conjunction of predicates.
type Filter []Predicate

func Eq(column string, value any) Predicate {
	return Predicate{Column: column, op: opEq, value: value}
}

func LessThan(column string, value any) Predicate {
	return Predicate{Column: column, op: opLessThan, value: value}
}

// Like matches column against a SQL LIKE pattern.
func Like(column, pattern string) Predicate {
	return Predicate{Column: column, op: opLike, value: pattern}
}

// Contains matches rows whose column contains substr literally.
func Contains(column, substr string) Predicate {
	return Predicate{Column: column, op: opContains, value: likeEscaper.Replace(substr)}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func In(column string, values ...string) Predicate {
	return Predicate{Column: column, op: opIn, value: values}
}

func IsNull(column string) Predicate {
	return Predicate{Column: column, op: opIsNull}
}

// buildSelect appends the filter, order and limit to base. Columns outside
// allowed are rejected.
func buildSelect(base string, f Filter, allowed map[string]bool, orderBy string, limit int) (string, []any, error) {
	var clauses []string
	var args []any

	for _, p := range f {
		if !allowed[p.Column] {
			return "", nil, fmt.Errorf("unsupported filter column %q", p.Column)
		}

		switch p.op {
		case opEq:
			clauses = append(clauses, p.Column+" = ?")
			args = append(args, bindValue(p.value))
		case opLessThan:
			clauses = append(clauses, p.Column+" < ?")
			args = append(args, bindValue(p.value))
		case opLike:
			clauses = append(clauses, p.Column+" LIKE ?")
			args = append(args, p.value)
		case opContains:
			clauses = append(clauses, p.Column+` LIKE ? ESCAPE '\'`)
			args = append(args, "%"+p.value.(string)+"%")
		case opIn:
			values := p.value.([]string)
			if len(values) == 0 {
				clauses = append(clauses, "1 = 0")
				continue
			}
			clauses = append(clauses, p.Column+" IN (?)")
			args = append(args, values)
		case opIsNull:
			clauses = append(clauses, p.Column+" IS NULL")
		}
	}

	query := base
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	if orderBy != "" {
		query += " ORDER BY " + orderBy
	}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, fmt.Errorf("failed to expand filter: %w", err)
	}

	return query, args, nil
}

func bindValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return dbTime(t)
	}
	return v
}
