package delivery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xenocrm/crm-backend/internal/store"
)

// LogStore is the slice of the store the communication log needs.
type LogStore interface {
	AppendLog(ctx context.Context, entry store.CommunicationLog) (store.CommunicationLog, error)
	LogsByCampaign(ctx context.Context, campaignID string) ([]store.CommunicationLog, error)
}

// Log writes delivery outcomes to the append-only communication log and
// aggregates them into campaign statistics. The log enforces no foreign keys:
// a receipt for an unknown campaign or customer is still recorded.
type Log struct {
	logs LogStore
}

// NewLog creates a Log over the given store.
func NewLog(logs LogStore) *Log {
	return &Log{logs: logs}
}

// Record appends one delivery outcome with a server-assigned timestamp.
func (l *Log) Record(ctx context.Context, ev Event) (store.CommunicationLog, error) {
	entry := store.CommunicationLog{
		CampaignID: ev.CampaignID,
		CustomerID: ev.CustomerID,
		Status:     ev.Status,
		Timestamp:  time.Now().UTC(),
	}
	recorded, err := l.logs.AppendLog(ctx, entry)
	if err != nil {
		return store.CommunicationLog{}, fmt.Errorf("record delivery outcome: %w", err)
	}
	return recorded, nil
}

// Stats is the sent/failed partition of a campaign's log entries.
type Stats struct {
	Sent   int64 `json:"sent"`
	Failed int64 `json:"failed"`
}

// StatsFor scans the campaign's log entries and partitions them by status.
// Matching is case-insensitive; any status that is neither SENT nor FAILED
// contributes to neither counter.
func (l *Log) StatsFor(ctx context.Context, campaignID string) (Stats, error) {
	entries, err := l.logs.LogsByCampaign(ctx, campaignID)
	if err != nil {
		return Stats{}, fmt.Errorf("campaign stats: %w", err)
	}

	var stats Stats
	for _, entry := range entries {
		switch strings.ToUpper(entry.Status) {
		case store.StatusSent:
			stats.Sent++
		case store.StatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}
