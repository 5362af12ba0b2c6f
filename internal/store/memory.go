package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xenocrm/crm-backend/internal/segment"
)

// MemoryStore is an in-memory implementation of the Store interface, using
// slices guarded by an RWMutex. Slices keep insertion order, so FindCustomers
// returns records in the order they were created. Suitable for development,
// testing, or single-instance deployments.
type MemoryStore struct {
	mu        sync.RWMutex
	customers []Customer
	orders    []Order
	campaigns []Campaign
	logs      []CommunicationLog
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// CreateCustomer persists a customer, assigning a UUID when the ID is empty.
func (m *MemoryStore) CreateCustomer(ctx context.Context, c Customer) (Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	m.customers = append(m.customers, c)
	return c, nil
}

// CountCustomers counts the customers matching the compiled query.
func (m *MemoryStore) CountCustomers(ctx context.Context, q *segment.Query) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, c := range m.customers {
		if q.Match(c) {
			n++
		}
	}
	return n, nil
}

// FindCustomers returns the customers matching the compiled query in
// insertion order.
func (m *MemoryStore) FindCustomers(ctx context.Context, q *segment.Query) ([]Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Customer
	for _, c := range m.customers {
		if q.Match(c) {
			result = append(result, c)
		}
	}
	return result, nil
}

// CreateOrder persists an order, assigning a UUID when the ID is empty.
func (m *MemoryStore) CreateOrder(ctx context.Context, o Order) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	m.orders = append(m.orders, o)
	return o, nil
}

// CreateCampaign persists a campaign, assigning ID and creation time when
// unset.
func (m *MemoryStore) CreateCampaign(ctx context.Context, c Campaign) (Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	m.campaigns = append(m.campaigns, c)
	return c, nil
}

// ListCampaigns returns all campaigns, newest first.
func (m *MemoryStore) ListCampaigns(ctx context.Context) ([]Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Campaign, len(m.campaigns))
	for i, c := range m.campaigns {
		result[len(m.campaigns)-1-i] = c
	}
	return result, nil
}

// AppendLog appends one log entry, assigning a UUID when the ID is empty.
func (m *MemoryStore) AppendLog(ctx context.Context, entry CommunicationLog) (CommunicationLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	m.logs = append(m.logs, entry)
	return entry, nil
}

// LogsByCampaign returns every entry recorded for the campaign, in append
// order.
func (m *MemoryStore) LogsByCampaign(ctx context.Context, campaignID string) ([]CommunicationLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []CommunicationLog
	for _, entry := range m.logs {
		if entry.CampaignID == campaignID {
			result = append(result, entry)
		}
	}
	return result, nil
}

// Close is a no-op for MemoryStore as there are no resources to release.
func (m *MemoryStore) Close() error {
	return nil
}
