package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/xenocrm/crm-backend/internal/segment"
)

// Store defines the persistence operations used by the API and the delivery
// pipeline. Implementations must be safe for concurrent use.
type Store interface {
	// CreateCustomer persists a customer, assigning an ID when empty.
	CreateCustomer(ctx context.Context, c Customer) (Customer, error)

	// CountCustomers returns the number of customers matching the query.
	CountCustomers(ctx context.Context, q *segment.Query) (int64, error)

	// FindCustomers materializes the customers matching the query. There is
	// no pagination; callers are bounded by practical campaign sizes.
	FindCustomers(ctx context.Context, q *segment.Query) ([]Customer, error)

	// CreateOrder persists an order, assigning an ID when empty.
	CreateOrder(ctx context.Context, o Order) (Order, error)

	// CreateCampaign persists a campaign, assigning ID and creation time.
	CreateCampaign(ctx context.Context, c Campaign) (Campaign, error)

	// ListCampaigns returns all campaigns, newest first.
	ListCampaigns(ctx context.Context) ([]Campaign, error)

	// AppendLog appends one communication log entry, assigning an ID when
	// empty. Entries are never updated or deleted.
	AppendLog(ctx context.Context, entry CommunicationLog) (CommunicationLog, error)

	// LogsByCampaign returns every log entry recorded for a campaign.
	LogsByCampaign(ctx context.Context, campaignID string) ([]CommunicationLog, error)

	// Close releases any resources held by the store.
	Close() error
}

// Delivery outcome statuses recorded in the communication log.
const (
	StatusSent   = "SENT"
	StatusFailed = "FAILED"
)

// Customer is one CRM customer record, the schema audience rules are
// evaluated against.
type Customer struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Phone      string  `json:"phone,omitempty"`
	TotalSpend float64 `json:"totalSpend"`
	Visits     int     `json:"visits"`
	LastSeen   string  `json:"lastSeen,omitempty"`
}

// Field implements segment.Record. Numeric fields surface as float64 so the
// compiled comparators see one numeric type.
func (c Customer) Field(name string) (any, bool) {
	switch name {
	case "name":
		return c.Name, true
	case "email":
		return c.Email, true
	case "phone":
		return c.Phone, true
	case "totalSpend":
		return c.TotalSpend, true
	case "visits":
		return float64(c.Visits), true
	case "lastSeen":
		return c.LastSeen, true
	}
	return nil, false
}

// Order is one purchase attributed to a customer.
type Order struct {
	ID         string   `json:"orderId"`
	CustomerID string   `json:"customerId"`
	Amount     float64  `json:"amount"`
	Items      []string `json:"items,omitempty"`
	OrderDate  string   `json:"orderDate,omitempty"`
}

// Campaign is immutable once created. Rules keeps the submitted rule array
// verbatim for audit and replay; AudienceSize is the count snapshot taken at
// creation time and never re-derived.
type Campaign struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Rules        json.RawMessage `json:"rules"`
	AudienceSize int64           `json:"audienceSize"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// CommunicationLog is the durable record of one delivery attempt.
type CommunicationLog struct {
	ID         string    `json:"id"`
	CampaignID string    `json:"campaignId"`
	CustomerID string    `json:"customerId"`
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}
