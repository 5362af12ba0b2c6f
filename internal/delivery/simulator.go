package delivery

import (
	"math/rand"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/xenocrm/crm-backend/internal/store"
	"github.com/xenocrm/crm-backend/internal/telemetry"
)

// EventSink receives the delivery event emitted for every simulated send.
type EventSink interface {
	Dispatch(Event)
}

// Simulator produces a synthetic SENT/FAILED outcome per recipient. It is not
// a transport: a draw below the success rate is SENT, everything else FAILED,
// and a FAILED outcome is terminal for that recipient in that run.
//
// The random source is injected so batches can be made reproducible; see
// BatchSeed.
type Simulator struct {
	mu          sync.Mutex
	rng         *rand.Rand
	successRate float64
	sink        EventSink
}

// NewSimulator creates a Simulator drawing from rng. Every Send emits exactly
// one event to sink.
func NewSimulator(sink EventSink, rng *rand.Rand, successRate float64) *Simulator {
	return &Simulator{rng: rng, successRate: successRate, sink: sink}
}

// Send simulates one delivery attempt and returns the outcome status. A
// FAILED status is a valid result, not an error.
func (s *Simulator) Send(campaignID, customerID string) string {
	s.mu.Lock()
	draw := s.rng.Float64()
	s.mu.Unlock()

	status := store.StatusFailed
	if draw < s.successRate {
		status = store.StatusSent
	}
	telemetry.DeliveriesTotal.WithLabelValues(status).Inc()

	s.sink.Dispatch(Event{CampaignID: campaignID, CustomerID: customerID, Status: status})
	return status
}

// BatchSeed derives a deterministic seed for one campaign batch from the
// campaign ID and the configured salt. The same salt and campaign always
// replay the same outcome sequence.
func BatchSeed(campaignID, salt string) int64 {
	return int64(xxhash.Sum64String(salt + ":" + campaignID))
}
