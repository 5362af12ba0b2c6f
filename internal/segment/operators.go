package segment

import "github.com/xenocrm/crm-backend/internal/rules"

// comparator is a single-field comparison compiled from one rule.
type comparator struct {
	field string
	op    rules.Operator
	value rules.Value
}

// eval applies the comparator to one record. A comparator never errors at
// evaluation time: an unknown field or a type mismatch between the field and
// the operand simply does not match, the same way a document query against a
// field of the wrong type matches nothing.
func (c comparator) eval(r Record) bool {
	fv, ok := r.Field(c.field)
	if !ok {
		return false
	}

	switch fv := fv.(type) {
	case float64:
		n, ok := c.value.Number()
		if !ok {
			return false
		}
		return compareFloat(c.op, fv, n)
	case string:
		if c.value.IsNumber() {
			return false
		}
		return compareString(c.op, fv, c.value.Text())
	default:
		return false
	}
}

func compareFloat(op rules.Operator, field, operand float64) bool {
	switch op {
	case rules.OpGt:
		return field > operand
	case rules.OpLt:
		return field < operand
	case rules.OpEq:
		return field == operand
	default:
		return false
	}
}

// compareString orders strings lexicographically, which is what the document
// store did for the last-seen markers stored as ISO-8601 strings.
func compareString(op rules.Operator, field, operand string) bool {
	switch op {
	case rules.OpGt:
		return field > operand
	case rules.OpLt:
		return field < operand
	case rules.OpEq:
		return field == operand
	default:
		return false
	}
}
