package rules

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Operator represents a comparison operator used in audience filter rules.
type Operator string

// Supported filter operators (the wire symbols sent by the campaign builder).
const (
	OpGt Operator = ">"
	OpLt Operator = "<"
	OpEq Operator = "="
)

// Connector describes how a rule joins the result accumulated from the rules
// before it. The connector on the first rule of a set is ignored.
type Connector string

const (
	ConnAnd Connector = "AND"
	ConnOr  Connector = "OR"
)

type valueKind int

const (
	kindUnset valueKind = iota
	kindNumber
	kindString
)

// Value is the comparison operand of a rule, resolved to a concrete type once
// at decode time. Raw values that parse as base-10 floats become numbers;
// everything else stays a string.
type Value struct {
	kind valueKind
	num  float64
	str  string
}

// NumberValue returns a numeric Value.
func NumberValue(f float64) Value {
	return Value{kind: kindNumber, num: f}
}

// StringValue returns a string Value.
func StringValue(s string) Value {
	return Value{kind: kindString, str: s}
}

// CoerceValue resolves a raw JSON value into a tagged Value. Numbers stay
// numbers; strings are parsed as base-10 floats and kept as strings when the
// parse fails.
func CoerceValue(raw any) Value {
	switch v := raw.(type) {
	case float64:
		return NumberValue(v)
	case int:
		return NumberValue(float64(v))
	case int64:
		return NumberValue(float64(v))
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return NumberValue(f)
		}
		return StringValue(v.String())
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return NumberValue(f)
		}
		return StringValue(v)
	default:
		return Value{}
	}
}

// IsSet reports whether the value carries an operand. A rule decoded from
// JSON null (or a missing value key) has an unset Value.
func (v Value) IsSet() bool {
	return v.kind != kindUnset
}

// Number returns the numeric operand and whether the value is numeric.
func (v Value) Number() (float64, bool) {
	return v.num, v.kind == kindNumber
}

// IsNumber reports whether the value is numeric.
func (v Value) IsNumber() bool {
	return v.kind == kindNumber
}

// Text returns the operand as a string. Numeric values are formatted with the
// shortest representation that round-trips.
func (v Value) Text() string {
	if v.kind == kindNumber {
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	}
	return v.str
}

// Rule is a single audience filter condition.
type Rule struct {
	Field     string
	Operator  Operator
	Value     Value
	Connector Connector
}

// RuleSet is an ordered list of rules. Order matters: rules are combined by a
// left fold, so ((r0 c1 r1) c2 r2), not a fully parenthesized expression.
type RuleSet []Rule

// ruleWire is the JSON shape produced by the campaign builder frontend.
type ruleWire struct {
	Field     string `json:"field"`
	Operator  string `json:"operator"`
	Value     any    `json:"value"`
	Condition string `json:"condition"`
}

// UnmarshalJSON decodes the wire shape and resolves the value type once, so
// comparisons never re-inspect raw JSON.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var w ruleWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Field = w.Field
	r.Operator = Operator(w.Operator)
	r.Value = CoerceValue(w.Value)
	r.Connector = Connector(strings.ToUpper(strings.TrimSpace(w.Condition)))
	return nil
}

// MarshalJSON writes the wire shape back out. Numeric values are emitted as
// JSON numbers, everything else as strings.
func (r Rule) MarshalJSON() ([]byte, error) {
	w := ruleWire{
		Field:     r.Field,
		Operator:  string(r.Operator),
		Condition: string(r.Connector),
	}
	if n, ok := r.Value.Number(); ok {
		w.Value = n
	} else if r.Value.IsSet() {
		w.Value = r.Value.Text()
	}
	return json.Marshal(w)
}
