package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenocrm/crm-backend/internal/segment"
)

// customerColumns maps rule fields onto the customers table for WHERE-clause
// rendering. The mapping is the only place the postgres store knows about
// rule field names.
var customerColumns = map[string]segment.Column{
	"name":       {Name: "name"},
	"email":      {Name: "email"},
	"phone":      {Name: "phone"},
	"lastSeen":   {Name: "last_seen"},
	"totalSpend": {Name: "total_spend", Numeric: true},
	"visits":     {Name: "visits", Numeric: true},
}

// schema is applied on startup. Append-only tables carry no update triggers.
const schema = `
CREATE TABLE IF NOT EXISTS customers (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    email       TEXT NOT NULL,
    phone       TEXT,
    total_spend DOUBLE PRECISION NOT NULL DEFAULT 0,
    visits      INTEGER NOT NULL DEFAULT 0,
    last_seen   TEXT
);

CREATE TABLE IF NOT EXISTS orders (
    id          TEXT PRIMARY KEY,
    customer_id TEXT NOT NULL,
    amount      DOUBLE PRECISION NOT NULL,
    items       TEXT[],
    order_date  TEXT
);

CREATE TABLE IF NOT EXISTS campaigns (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    rules         JSONB NOT NULL DEFAULT '[]',
    audience_size BIGINT NOT NULL DEFAULT 0,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS communication_log (
    id          TEXT PRIMARY KEY,
    campaign_id TEXT NOT NULL,
    customer_id TEXT NOT NULL,
    status      TEXT NOT NULL,
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS communication_log_campaign_idx
    ON communication_log (campaign_id);
`

// PostgresStore is a PostgreSQL implementation of the Store interface backed
// by a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed store and applies the schema.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// CreateCustomer inserts a customer, assigning a UUID when the ID is empty.
func (p *PostgresStore) CreateCustomer(ctx context.Context, c Customer) (Customer, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO customers (id, name, email, phone, total_spend, visits, last_seen)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.Name, c.Email, nullableText(c.Phone), c.TotalSpend, c.Visits, nullableText(c.LastSeen))
	if err != nil {
		return Customer{}, fmt.Errorf("insert customer: %w", err)
	}
	return c, nil
}

// CountCustomers counts customers matching the query, pushing the fold down
// to SQL.
func (p *PostgresStore) CountCustomers(ctx context.Context, q *segment.Query) (int64, error) {
	sql := `SELECT count(*) FROM customers`
	clause, args := q.WhereClause(customerColumns)
	if clause != "" {
		sql += ` WHERE ` + clause
	}

	var n int64
	if err := p.pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	return n, nil
}

// FindCustomers materializes customers matching the query. Row order is
// whatever the planner produces; callers must not rely on it.
func (p *PostgresStore) FindCustomers(ctx context.Context, q *segment.Query) ([]Customer, error) {
	sql := `SELECT id, name, email, phone, total_spend, visits, last_seen FROM customers`
	clause, args := q.WhereClause(customerColumns)
	if clause != "" {
		sql += ` WHERE ` + clause
	}

	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("find customers: %w", err)
	}
	defer rows.Close()

	var result []Customer
	for rows.Next() {
		var (
			c               Customer
			phone, lastSeen pgtype.Text
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &phone, &c.TotalSpend, &c.Visits, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		c.Phone = phone.String
		c.LastSeen = lastSeen.String
		result = append(result, c)
	}
	return result, rows.Err()
}

// CreateOrder inserts an order, assigning a UUID when the ID is empty.
func (p *PostgresStore) CreateOrder(ctx context.Context, o Order) (Order, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO orders (id, customer_id, amount, items, order_date)
		 VALUES ($1, $2, $3, $4, $5)`,
		o.ID, o.CustomerID, o.Amount, o.Items, nullableText(o.OrderDate))
	if err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}
	return o, nil
}

// CreateCampaign inserts a campaign, assigning ID and creation time when
// unset. The submitted rules JSON goes in verbatim.
func (p *PostgresStore) CreateCampaign(ctx context.Context, c Campaign) (Campaign, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	rulesJSON := []byte(c.Rules)
	if len(rulesJSON) == 0 {
		rulesJSON = []byte("[]")
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO campaigns (id, name, rules, audience_size, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Name, rulesJSON, c.AudienceSize, c.CreatedAt)
	if err != nil {
		return Campaign{}, fmt.Errorf("insert campaign: %w", err)
	}
	return c, nil
}

// ListCampaigns returns all campaigns, newest first.
func (p *PostgresStore) ListCampaigns(ctx context.Context) ([]Campaign, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, name, rules, audience_size, created_at
		 FROM campaigns ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var result []Campaign
	for rows.Next() {
		var (
			c         Campaign
			rulesJSON []byte
		)
		if err := rows.Scan(&c.ID, &c.Name, &rulesJSON, &c.AudienceSize, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		c.Rules = rulesJSON
		result = append(result, c)
	}
	return result, rows.Err()
}

// AppendLog appends one communication log entry.
func (p *PostgresStore) AppendLog(ctx context.Context, entry CommunicationLog) (CommunicationLog, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO communication_log (id, campaign_id, customer_id, status, recorded_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, entry.CampaignID, entry.CustomerID, entry.Status, entry.Timestamp)
	if err != nil {
		return CommunicationLog{}, fmt.Errorf("append log: %w", err)
	}
	return entry, nil
}

// LogsByCampaign returns every entry recorded for the campaign, in append
// order.
func (p *PostgresStore) LogsByCampaign(ctx context.Context, campaignID string) ([]CommunicationLog, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, campaign_id, customer_id, status, recorded_at
		 FROM communication_log WHERE campaign_id = $1 ORDER BY recorded_at`,
		campaignID)
	if err != nil {
		return nil, fmt.Errorf("logs by campaign: %w", err)
	}
	defer rows.Close()

	var result []CommunicationLog
	for rows.Next() {
		var entry CommunicationLog
		if err := rows.Scan(&entry.ID, &entry.CampaignID, &entry.CustomerID, &entry.Status, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

// Close closes the underlying connection pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

func nullableText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
