package delivery

// Event is one delivery outcome in flight between the simulator (or an
// external receipt) and the communication log. It is the message, not the
// durable record.
type Event struct {
	CampaignID string `json:"campaignId"`
	CustomerID string `json:"customerId"`
	Status     string `json:"status"`
}
