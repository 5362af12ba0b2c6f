package rules

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Validate.
var (
	ErrEmptyField      = errors.New("empty field")
	ErrUnknownOperator = errors.New("unknown operator")
	ErrNullValue       = errors.New("null value")
)

// validOperators is the set of recognised comparison operators.
var validOperators = map[Operator]struct{}{
	OpGt: {},
	OpLt: {},
	OpEq: {},
}

// KnownOperator reports whether op is one of the supported comparison symbols.
func KnownOperator(op Operator) bool {
	_, ok := validOperators[op]
	return ok
}

// Validate performs strict validation of a rule set. It is a pure function:
// it never mutates rs and has no side effects. The first invalid rule aborts
// validation and its index is reported in the error.
func Validate(rs RuleSet) error {
	for i, r := range rs {
		if err := validateRule(i, r); err != nil {
			return err
		}
	}
	return nil
}

func validateRule(i int, r Rule) error {
	if r.Field == "" {
		return fmt.Errorf("%w: rule[%d] has no field", ErrEmptyField, i)
	}
	if !KnownOperator(r.Operator) {
		return fmt.Errorf("%w: rule[%d] operator %q is not one of >, <, =", ErrUnknownOperator, i, r.Operator)
	}
	if !r.Value.IsSet() {
		return fmt.Errorf("%w: rule[%d] value must not be null", ErrNullValue, i)
	}
	// Connectors are deliberately not validated: anything that is not AND
	// joins with OR, matching how stored campaigns have always replayed.
	return nil
}
