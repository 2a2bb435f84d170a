package postgres

import (
	"fmt"
	"strings"
)

// Operator is a comparison operator usable in a filter criterion.
type Operator string

const (
	OpEqual          Operator = "="
	OpGreater        Operator = ">"
	OpGreaterOrEqual Operator = ">="
	OpLess           Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpIn             Operator = "IN"
)

// Criterion is one field comparison. A set of criteria is AND-ed together.
// Value carries the operand for scalar operators; Values carries the list
// for OpIn and must not be empty.
type Criterion struct {
	Field  string
	Op     Operator
	Value  any
	Values []any
}

// Eq builds an equality criterion.
func Eq(field string, value any) Criterion {
	return Criterion{Field: field, Op: OpEqual, Value: value}
}

// Gte builds a greater-or-equal criterion.
func Gte(field string, value any) Criterion {
	return Criterion{Field: field, Op: OpGreaterOrEqual, Value: value}
}

// Lt builds a less-than criterion.
func Lt(field string, value any) Criterion {
	return Criterion{Field: field, Op: OpLess, Value: value}
}

// In builds a membership criterion.
func In(field string, values ...any) Criterion {
	return Criterion{Field: field, Op: OpIn, Values: values}
}

// BuildPredicate renders criteria as a parameterized WHERE clause using $n
// placeholders. Values are always bound, never inlined into the SQL text.
// Empty criteria yield the always-true predicate with no arguments.
func BuildPredicate(criteria []Criterion, columns map[string]struct{}) (string, []any, error) {
	if len(criteria) == 0 {
		return "TRUE", nil, nil
	}

	var clause strings.Builder
	args := make([]any, 0, len(criteria))

	for i, criterion := range criteria {
		if _, ok := columns[criterion.Field]; !ok {
			return "", nil, fmt.Errorf("column %q: %w", criterion.Field, ErrInvalidFilterField)
		}
		if i > 0 {
			clause.WriteString(" AND ")
		}

		switch criterion.Op {
		case OpEqual, OpGreater, OpGreaterOrEqual, OpLess, OpLessOrEqual:
			args = append(args, criterion.Value)
			fmt.Fprintf(&clause, "%s %s $%d", criterion.Field, criterion.Op, len(args))
		case OpIn:
			if len(criterion.Values) == 0 {
				return "", nil, fmt.Errorf("column %q: empty IN list: %w", criterion.Field, ErrInvalidFilterValue)
			}
			placeholders := make([]string, 0, len(criterion.Values))
			for _, value := range criterion.Values {
				args = append(args, value)
				placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
			}
			fmt.Fprintf(&clause, "%s IN (%s)", criterion.Field, strings.Join(placeholders, ", "))
		default:
			return "", nil, fmt.Errorf("operator %q: %w", criterion.Op, ErrInvalidFilterField)
		}
	}

	return clause.String(), args, nil
}
