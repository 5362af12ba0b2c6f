package audience

import (
	"context"
	"errors"
	"testing"

	"github.com/xenocrm/crm-backend/internal/rules"
	"github.com/xenocrm/crm-backend/internal/segment"
	"github.com/xenocrm/crm-backend/internal/store"
)

var errReaderDown = errors.New("reader down")

// failingReader simulates a store outage.
type failingReader struct{}

func (failingReader) CountCustomers(ctx context.Context, q *segment.Query) (int64, error) {
	return 0, errReaderDown
}

func (failingReader) FindCustomers(ctx context.Context, q *segment.Query) ([]store.Customer, error) {
	return nil, errReaderDown
}

func newPopulatedStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	m := store.NewMemoryStore()
	ctx := context.Background()
	for _, c := range []store.Customer{
		{Name: "Ada", Email: "ada@example.com", TotalSpend: 1500},
		{Name: "Grace", Email: "grace@example.com", TotalSpend: 500},
		{Name: "Edsger", Email: "edsger@example.com", TotalSpend: 2000},
	} {
		if _, err := m.CreateCustomer(ctx, c); err != nil {
			t.Fatalf("CreateCustomer failed: %v", err)
		}
	}
	return m
}

func TestEvaluator_CountAndSelectAgree(t *testing.T) {
	e := New(newPopulatedStore(t))
	ctx := context.Background()

	q, err := segment.Compile(rules.RuleSet{
		{Field: "totalSpend", Operator: rules.OpGt, Value: rules.NumberValue(1000)},
	}, segment.ModeStrict)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	n, err := e.Count(ctx, q)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("Count = %d, want 2", n)
	}

	selected, err := e.Select(ctx, q)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if int64(len(selected)) != n {
		t.Fatalf("Select returned %d customers, Count said %d", len(selected), n)
	}
}

func TestEvaluator_StoreErrorPropagates(t *testing.T) {
	e := New(failingReader{})
	ctx := context.Background()

	q, _ := segment.Compile(nil, segment.ModeStrict)

	if _, err := e.Count(ctx, q); !errors.Is(err, errReaderDown) {
		t.Fatalf("Count error = %v, want errReaderDown", err)
	}
	if _, err := e.Select(ctx, q); !errors.Is(err, errReaderDown) {
		t.Fatalf("Select error = %v, want errReaderDown", err)
	}
}
