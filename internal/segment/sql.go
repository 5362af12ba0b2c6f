package segment

import (
	"fmt"
	"strings"

	"github.com/xenocrm/crm-backend/internal/rules"
)

// Column maps a rule field to a SQL column. Numeric tells the renderer the
// column type so a mistyped operand renders as FALSE instead of a cast error,
// mirroring the in-memory comparator.
type Column struct {
	Name    string
	Numeric bool
}

// WhereClause renders the compiled fold as a parenthesized left-associative
// SQL predicate with positional placeholders. Each fold step wraps the
// accumulated clause, so ((c0 AND c1) OR c2) keeps exactly the evaluation
// order of Match. A match-everything query returns an empty clause.
func (q *Query) WhereClause(cols map[string]Column) (string, []any) {
	if len(q.steps) == 0 {
		return "", nil
	}

	var args []any
	clause := q.steps[0].cmp.sql(cols, &args)
	for _, s := range q.steps[1:] {
		conn := "OR"
		if s.connector == rules.ConnAnd {
			conn = "AND"
		}
		clause = fmt.Sprintf("(%s %s %s)", clause, conn, s.cmp.sql(cols, &args))
	}
	return clause, args
}

// sql renders one comparator, appending its operand to args. Comparisons that
// cannot match (unknown field, type mismatch) render as the FALSE literal.
func (c comparator) sql(cols map[string]Column, args *[]any) string {
	col, ok := cols[c.field]
	if !ok {
		return "FALSE"
	}

	if col.Numeric {
		n, ok := c.value.Number()
		if !ok {
			return "FALSE"
		}
		*args = append(*args, n)
	} else {
		if c.value.IsNumber() {
			return "FALSE"
		}
		*args = append(*args, c.value.Text())
	}

	return fmt.Sprintf("%s %s $%d", col.Name, sqlOperator(c.op), len(*args))
}

func sqlOperator(op rules.Operator) string {
	// Validated at compile time; "=" maps onto itself and the two range
	// symbols are already SQL.
	return strings.TrimSpace(string(op))
}
