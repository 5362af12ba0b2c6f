package delivery

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/xenocrm/crm-backend/internal/audience"
	"github.com/xenocrm/crm-backend/internal/segment"
	"github.com/xenocrm/crm-backend/internal/store"
)

// Sender simulates one delivery and returns the outcome status.
type Sender interface {
	Send(campaignID, customerID string) string
}

// SenderFactory builds the sender for one campaign batch. Wiring a fresh
// simulator seeded from the campaign ID (see BatchSeed) makes a batch
// reproducible; sharing one simulator across batches is equally valid.
type SenderFactory func(campaignID string) Sender

// BatchResult summarizes one delivery batch. Sent+Failed can be less than
// Recipients when the batch deadline expires mid-run.
type BatchResult struct {
	Recipients int   `json:"recipients"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
}

// Runner executes campaign delivery batches: select the audience, then one
// simulate-and-log operation per recipient on a bounded worker pool. No
// ordering is guaranteed between recipients, and no transaction spans the
// select-simulate-log sequence; a deadline mid-batch leaves a partial log
// with no rollback.
type Runner struct {
	audience *audience.Evaluator
	senders  SenderFactory
	logger   *zap.Logger
	workers  int
	timeout  time.Duration
}

// NewRunner creates a Runner with the given worker bound and per-batch
// deadline.
func NewRunner(aud *audience.Evaluator, senders SenderFactory, logger *zap.Logger, workers int, timeout time.Duration) *Runner {
	return &Runner{
		audience: aud,
		senders:  senders,
		logger:   logger,
		workers:  workers,
		timeout:  timeout,
	}
}

// Deliver selects the audience for q and simulates one delivery per
// recipient. The returned result reflects the outcomes produced before the
// deadline; a store failure during selection aborts the batch before any
// send.
func (r *Runner) Deliver(ctx context.Context, campaignID string, q *segment.Query) (BatchResult, error) {
	recipients, err := r.audience.Select(ctx, q)
	if err != nil {
		return BatchResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	sender := r.senders(campaignID)

	var sent, failed int64
	jobs := make(chan store.Customer)

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				if sender.Send(campaignID, c.ID) == store.StatusSent {
					atomic.AddInt64(&sent, 1)
				} else {
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}

feed:
	for _, c := range recipients {
		select {
		case jobs <- c:
		case <-ctx.Done():
			r.logger.Warn("delivery batch deadline expired",
				zap.String("campaignId", campaignID),
				zap.Int("recipients", len(recipients)))
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	result := BatchResult{
		Recipients: len(recipients),
		Sent:       atomic.LoadInt64(&sent),
		Failed:     atomic.LoadInt64(&failed),
	}
	r.logger.Info("delivery batch finished",
		zap.String("campaignId", campaignID),
		zap.Int("recipients", result.Recipients),
		zap.Int64("sent", result.Sent),
		zap.Int64("failed", result.Failed))
	return result, nil
}
