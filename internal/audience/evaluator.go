// Package audience applies compiled segment queries to the customer store.
package audience

import (
	"context"

	"github.com/xenocrm/crm-backend/internal/segment"
	"github.com/xenocrm/crm-backend/internal/store"
)

// CustomerReader is the read-only slice of the store the evaluator needs.
type CustomerReader interface {
	CountCustomers(ctx context.Context, q *segment.Query) (int64, error)
	FindCustomers(ctx context.Context, q *segment.Query) ([]store.Customer, error)
}

// Evaluator answers audience questions against a customer store. It has no
// side effects; store errors propagate to the caller and are never replaced
// by a zero count.
type Evaluator struct {
	customers CustomerReader
}

// New creates an Evaluator over the given reader.
func New(customers CustomerReader) *Evaluator {
	return &Evaluator{customers: customers}
}

// Count returns the number of customers the query matches. Used by the
// filter-preview endpoint.
func (e *Evaluator) Count(ctx context.Context, q *segment.Query) (int64, error) {
	return e.customers.CountCustomers(ctx, q)
}

// Select materializes the matching customers. Used only by the delivery path;
// result size is bounded by practical campaign sizes, not paginated.
func (e *Evaluator) Select(ctx context.Context, q *segment.Query) ([]store.Customer, error) {
	return e.customers.FindCustomers(ctx, q)
}
