package delivery

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/xenocrm/crm-backend/internal/telemetry"
)

// Dispatcher is the explicit queue between the simulator and the log writer.
// It replaces in-process fire-and-forget event publishing with a buffered
// channel and a single worker, so the consumption contract is visible:
// events are written in dispatch order, and Close drains the queue before
// returning.
type Dispatcher struct {
	log    *Log
	logger *zap.Logger
	queue  chan Event
	done   chan struct{}
	closed int32 // atomic flag to prevent double-close
}

// NewDispatcher creates a dispatcher writing through log. queueSize bounds
// the number of in-flight events; Dispatch drops when the buffer is full.
func NewDispatcher(log *Log, logger *zap.Logger, queueSize int) *Dispatcher {
	return &Dispatcher{
		log:    log,
		logger: logger,
		queue:  make(chan Event, queueSize),
		done:   make(chan struct{}),
	}
}

// Start begins consuming events from the queue.
func (d *Dispatcher) Start() {
	go d.worker()
}

// Close gracefully shuts down the dispatcher, draining pending events. Safe
// to call multiple times.
func (d *Dispatcher) Close() error {
	if !atomic.CompareAndSwapInt32(&d.closed, 0, 1) {
		return nil
	}
	close(d.queue)
	<-d.done
	return nil
}

// Dispatch queues an event for logging without blocking the caller. When the
// queue is full the event is dropped and counted; the log is best-effort,
// not guaranteed at-least-once.
func (d *Dispatcher) Dispatch(ev Event) {
	select {
	case d.queue <- ev:
	default:
		telemetry.QueueDropped.Inc()
		d.logger.Warn("delivery event queue full, dropping event",
			zap.String("campaignId", ev.CampaignID),
			zap.String("customerId", ev.CustomerID),
			zap.String("status", ev.Status))
	}
}

func (d *Dispatcher) worker() {
	defer close(d.done)

	for ev := range d.queue {
		if _, err := d.log.Record(context.Background(), ev); err != nil {
			// A lost write is not retried; the store owns retry policy.
			d.logger.Error("failed to record delivery event",
				zap.String("campaignId", ev.CampaignID),
				zap.String("customerId", ev.CustomerID),
				zap.Error(err))
		}
	}
}
