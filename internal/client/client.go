package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/xenocrm/crm-backend/internal/delivery"
	"github.com/xenocrm/crm-backend/internal/rules"
	"github.com/xenocrm/crm-backend/internal/store"
)

// Client is an HTTP client for the CRM API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateCustomer creates a customer record.
func (c *Client) CreateCustomer(ctx context.Context, customer store.Customer) (store.Customer, error) {
	var created store.Customer
	err := c.do(ctx, http.MethodPost, "/api/customers", customer, &created)
	return created, err
}

// CreateOrder creates an order record.
func (c *Client) CreateOrder(ctx context.Context, order store.Order) (store.Order, error) {
	var created store.Order
	err := c.do(ctx, http.MethodPost, "/api/orders", order, &created)
	return created, err
}

// PreviewFilter counts the customers matching a rule set.
func (c *Client) PreviewFilter(ctx context.Context, rs rules.RuleSet) (int64, error) {
	var resp struct {
		Count int64 `json:"count"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/customers/filter", rs, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// CreateCampaign stores a campaign with its rule set and audience snapshot.
func (c *Client) CreateCampaign(ctx context.Context, name string, ruleSet json.RawMessage, audienceSize int64) (store.Campaign, error) {
	body := map[string]any{
		"name":         name,
		"rules":        ruleSet,
		"audienceSize": audienceSize,
	}
	var created store.Campaign
	err := c.do(ctx, http.MethodPost, "/api/campaigns", body, &created)
	return created, err
}

// ListCampaigns returns all campaigns.
func (c *Client) ListCampaigns(ctx context.Context) ([]store.Campaign, error) {
	var campaigns []store.Campaign
	err := c.do(ctx, http.MethodGet, "/api/campaigns", nil, &campaigns)
	return campaigns, err
}

// CampaignStats returns the sent/failed partition for a campaign.
func (c *Client) CampaignStats(ctx context.Context, campaignID string) (delivery.Stats, error) {
	var stats delivery.Stats
	err := c.do(ctx, http.MethodGet, "/api/campaigns/stats/"+campaignID, nil, &stats)
	return stats, err
}

// DeliverCampaign triggers a delivery batch for a campaign.
func (c *Client) DeliverCampaign(ctx context.Context, campaignID string, rs rules.RuleSet) (delivery.BatchResult, error) {
	body := map[string]any{
		"campaignId": campaignID,
		"rules":      rs,
	}
	var result delivery.BatchResult
	err := c.do(ctx, http.MethodPost, "/api/campaigns/deliver", body, &result)
	return result, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
