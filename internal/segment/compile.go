// Package segment compiles audience filter rules into a single predicate.
//
// A RuleSet is folded left to right into one boolean test:
// ((r0 c1 r1) c2 r2) ... where the connector is read from the rule it joins.
// The compiled query can evaluate records in memory or render the identical
// fold as a SQL WHERE clause for the postgres store.
package segment

import (
	"fmt"

	"github.com/xenocrm/crm-backend/internal/rules"
)

// Mode selects how the compiler treats a rule with an unrecognised operator.
type Mode int

const (
	// ModeStrict rejects the whole rule set, naming the offending rule.
	// Used by the filter-preview path.
	ModeStrict Mode = iota

	// ModeSkipUnknown drops the rule and keeps folding. This preserves the
	// legacy deliver path, where campaigns stored before operator validation
	// existed must keep replaying.
	ModeSkipUnknown
)

// Record is a read view over one customer record. Field returns the value of
// a named field (float64 for numeric fields, string otherwise) and whether
// the field exists in the schema.
type Record interface {
	Field(name string) (any, bool)
}

// step is one fold step: a compiled comparator plus the connector that joins
// it to the accumulated result.
type step struct {
	connector rules.Connector
	cmp       comparator
}

// Query is a compiled, immutable predicate over customer records. A Query
// with no steps matches every record.
type Query struct {
	steps []step
}

// Compile validates and folds a rule set into a Query. In ModeStrict an
// unknown operator fails compilation with the rule index; in ModeSkipUnknown
// the rule contributes nothing. An empty rule set compiles to a
// match-everything query.
func Compile(rs rules.RuleSet, mode Mode) (*Query, error) {
	q := &Query{steps: make([]step, 0, len(rs))}

	for i, r := range rs {
		if !rules.KnownOperator(r.Operator) {
			if mode == ModeSkipUnknown {
				continue
			}
			return nil, fmt.Errorf("%w: rule[%d] operator %q is not one of >, <, =", rules.ErrUnknownOperator, i, r.Operator)
		}
		if mode == ModeStrict {
			if r.Field == "" {
				return nil, fmt.Errorf("%w: rule[%d] has no field", rules.ErrEmptyField, i)
			}
			if !r.Value.IsSet() {
				return nil, fmt.Errorf("%w: rule[%d] value must not be null", rules.ErrNullValue, i)
			}
		}

		conn := rules.ConnOr
		if r.Connector == rules.ConnAnd {
			conn = rules.ConnAnd
		}
		q.steps = append(q.steps, step{
			connector: conn,
			cmp:       comparator{field: r.Field, op: r.Operator, value: r.Value},
		})
	}

	return q, nil
}

// MatchAll reports whether the query matches every record, i.e. it compiled
// from zero effective rules.
func (q *Query) MatchAll() bool {
	return len(q.steps) == 0
}

// Match evaluates the compiled left fold against one record. The connector of
// each step joins the step's comparator with the result accumulated so far;
// the first step's connector is ignored.
func (q *Query) Match(r Record) bool {
	if len(q.steps) == 0 {
		return true
	}

	result := q.steps[0].cmp.eval(r)
	for _, s := range q.steps[1:] {
		if s.connector == rules.ConnAnd {
			result = result && s.cmp.eval(r)
		} else {
			result = result || s.cmp.eval(r)
		}
	}
	return result
}
