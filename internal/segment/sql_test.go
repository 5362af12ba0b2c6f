package segment

import (
	"reflect"
	"testing"

	"github.com/xenocrm/crm-backend/internal/rules"
)

var testColumns = map[string]Column{
	"totalSpend": {Name: "total_spend", Numeric: true},
	"visits":     {Name: "visits", Numeric: true},
	"email":      {Name: "email"},
}

func TestWhereClause_EmptyQuery(t *testing.T) {
	q := mustCompile(t, rules.RuleSet{}, ModeStrict)
	clause, args := q.WhereClause(testColumns)
	if clause != "" || args != nil {
		t.Fatalf("WhereClause = %q %v, want empty", clause, args)
	}
}

func TestWhereClause_SingleRule(t *testing.T) {
	rs := rules.RuleSet{
		{Field: "totalSpend", Operator: rules.OpGt, Value: rules.NumberValue(1000)},
	}
	clause, args := mustCompile(t, rs, ModeStrict).WhereClause(testColumns)
	if clause != "total_spend > $1" {
		t.Fatalf("clause = %q", clause)
	}
	if !reflect.DeepEqual(args, []any{float64(1000)}) {
		t.Fatalf("args = %v", args)
	}
}

func TestWhereClause_PreservesFoldParenthesization(t *testing.T) {
	rs := rules.RuleSet{
		{Field: "totalSpend", Operator: rules.OpGt, Value: rules.NumberValue(1000)},
		{Field: "visits", Operator: rules.OpLt, Value: rules.NumberValue(3), Connector: rules.ConnOr},
		{Field: "email", Operator: rules.OpEq, Value: rules.StringValue("a@b.c"), Connector: rules.ConnAnd},
	}
	clause, args := mustCompile(t, rs, ModeStrict).WhereClause(testColumns)

	want := "((total_spend > $1 OR visits < $2) AND email = $3)"
	if clause != want {
		t.Fatalf("clause = %q, want %q", clause, want)
	}
	if !reflect.DeepEqual(args, []any{float64(1000), float64(3), "a@b.c"}) {
		t.Fatalf("args = %v", args)
	}
}

func TestWhereClause_UnmatchableRendersFalse(t *testing.T) {
	tests := []struct {
		name string
		rule rules.Rule
	}{
		{
			name: "unknown field",
			rule: rules.Rule{Field: "loyaltyTier", Operator: rules.OpGt, Value: rules.NumberValue(1)},
		},
		{
			name: "string operand on numeric column",
			rule: rules.Rule{Field: "visits", Operator: rules.OpEq, Value: rules.StringValue("many")},
		},
		{
			name: "numeric operand on text column",
			rule: rules.Rule{Field: "email", Operator: rules.OpEq, Value: rules.NumberValue(5)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := mustCompile(t, rules.RuleSet{tt.rule}, ModeStrict)
			clause, args := q.WhereClause(testColumns)
			if clause != "FALSE" {
				t.Fatalf("clause = %q, want FALSE", clause)
			}
			if len(args) != 0 {
				t.Fatalf("args = %v, want none", args)
			}
		})
	}
}

func TestWhereClause_PlaceholdersSkipFalseSteps(t *testing.T) {
	rs := rules.RuleSet{
		{Field: "loyaltyTier", Operator: rules.OpGt, Value: rules.NumberValue(1)},
		{Field: "visits", Operator: rules.OpGt, Value: rules.NumberValue(2), Connector: rules.ConnOr},
	}
	clause, args := mustCompile(t, rs, ModeStrict).WhereClause(testColumns)
	if clause != "(FALSE OR visits > $1)" {
		t.Fatalf("clause = %q", clause)
	}
	if !reflect.DeepEqual(args, []any{float64(2)}) {
		t.Fatalf("args = %v", args)
	}
}
