package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sensor-platform/alert-engine/internal/logger"
	"github.com/sensor-platform/alert-engine/internal/models"
	"github.com/sensor-platform/alert-engine/internal/observability/metrics"
)

// RecordStore persists per-channel delivery outcomes.
type RecordStore interface {
	Save(ctx context.Context, record *models.NotificationRecord) error
}

// Dispatcher fans alert fires out to notification channels. Each channel is
// tracked independently: one channel failing never blocks or rolls back the
// others, and nothing on the dispatch path blocks evaluation.
type Dispatcher struct {
	channels    map[string]Channel
	records     RecordStore
	queue       chan models.NotificationRequest
	maxAttempts int
	backoff     time.Duration

	// Delivered keys live in two generations so the cache stays bounded over
	// the process lifetime. Replays land close to the original delivery, so
	// keys older than two generations are safe to forget.
	mu            sync.RWMutex
	delivered     map[string]struct{}
	deliveredPrev map[string]struct{}
	degraded      map[string]bool

	stopCh chan struct{}
	wg     sync.WaitGroup
	workers int
}

// NewDispatcher creates a dispatcher with the given retry policy.
func NewDispatcher(records RecordStore, maxAttempts int, backoff time.Duration, workers, queueSize int) *Dispatcher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 100
	}

	return &Dispatcher{
		channels:      make(map[string]Channel),
		records:       records,
		queue:         make(chan models.NotificationRequest, queueSize),
		maxAttempts:   maxAttempts,
		backoff:       backoff,
		delivered:     make(map[string]struct{}),
		deliveredPrev: make(map[string]struct{}),
		degraded:      make(map[string]bool),
		stopCh:        make(chan struct{}),
		workers:       workers,
	}
}

// Register adds a channel. Not safe to call after Start.
func (d *Dispatcher) Register(ch Channel) {
	d.channels[ch.Name()] = ch
	logger.Info().Str("channel", ch.Name()).Msg("Notification channel registered")
}

// Submit enqueues a request. Fire-and-forget: a full queue drops the request
// with a warning rather than stalling the caller.
func (d *Dispatcher) Submit(req models.NotificationRequest) {
	select {
	case d.queue <- req:
	default:
		metrics.ObserveDispatch(req.Channel, "dropped")
		logger.Warn().
			Str("channel", req.Channel).
			Str("key", req.IdempotencyKey()).
			Msg("Dispatch queue full, request dropped")
	}
}

// Start launches the delivery workers.
func (d *Dispatcher) Start(ctx context.Context) {
	logger.Info().Int("workers", d.workers).Msg("Starting notification dispatcher")
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case req := <-d.queue:
			d.deliver(ctx, req)
		case <-d.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop shuts the workers down. Queued requests are abandoned.
func (d *Dispatcher) Stop() {
	close(d.stopCh)
	d.wg.Wait()
}

// IsDegraded reports whether a channel exhausted its retries on its most
// recent delivery.
func (d *Dispatcher) IsDegraded(channel string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.degraded[channel]
}

// deliver sends one request through its channel with bounded retries.
// (alert_instance_id, fire_sequence, channel) is the idempotency key: a key
// already delivered is never sent again.
func (d *Dispatcher) deliver(ctx context.Context, req models.NotificationRequest) {
	key := req.IdempotencyKey()

	d.mu.RLock()
	_, seen := d.delivered[key]
	if !seen {
		_, seen = d.deliveredPrev[key]
	}
	d.mu.RUnlock()
	if seen {
		metrics.ObserveDispatch(req.Channel, "duplicate")
		logger.Debug().Str("key", key).Msg("Duplicate dispatch suppressed")
		return
	}

	ch, ok := d.channels[req.Channel]
	if !ok {
		metrics.ObserveDispatch(req.Channel, "failed")
		logger.Error().Str("channel", req.Channel).Msg("No such notification channel")
		d.record(ctx, req, models.DeliveryFailed, 0, fmt.Sprintf("unknown channel %s", req.Channel))
		return
	}

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if err := ch.Send(ctx, req); err != nil {
			lastErr = err
			logger.Warn().
				Str("channel", req.Channel).
				Str("key", key).
				Int("attempt", attempt).
				Int("max_attempts", d.maxAttempts).
				Err(err).
				Msg("Channel send failed")
			if attempt < d.maxAttempts {
				select {
				case <-time.After(d.backoff * time.Duration(attempt)):
				case <-ctx.Done():
					return
				case <-d.stopCh:
					return
				}
			}
			continue
		}

		d.markDelivered(key)
		d.mu.Lock()
		d.degraded[req.Channel] = false
		d.mu.Unlock()

		metrics.ObserveDispatch(req.Channel, "delivered")
		metrics.ObserveDispatchLatency(req.Channel, time.Since(start).Seconds())
		metrics.SetChannelDegraded(req.Channel, false)
		d.record(ctx, req, models.DeliveryDelivered, attempt, "")
		return
	}

	// Retries exhausted: mark the channel degraded and surface the failure to
	// the audit log. The evaluation pipeline is unaffected.
	d.mu.Lock()
	d.degraded[req.Channel] = true
	d.mu.Unlock()

	dispatchErr := &DispatchError{Channel: req.Channel, Attempts: d.maxAttempts, Err: lastErr}
	metrics.ObserveDispatch(req.Channel, "failed")
	metrics.SetChannelDegraded(req.Channel, true)
	logger.Error().
		Str("channel", req.Channel).
		Str("key", key).
		Err(dispatchErr).
		Msg("Notification channel degraded")
	d.record(ctx, req, models.DeliveryFailed, d.maxAttempts, dispatchErr.Error())
}

// deliveredCacheLimit caps each generation of the delivered-key cache.
const deliveredCacheLimit = 4096

func (d *Dispatcher) markDelivered(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.delivered[key] = struct{}{}
	if len(d.delivered) >= deliveredCacheLimit {
		d.deliveredPrev = d.delivered
		d.delivered = make(map[string]struct{}, deliveredCacheLimit)
	}
}

func (d *Dispatcher) record(ctx context.Context, req models.NotificationRequest, status string, attempts int, lastErr string) {
	if d.records == nil {
		return
	}

	record := &models.NotificationRecord{
		AlertInstanceID: req.AlertInstanceID,
		FireSequence:    req.FireSequence,
		Channel:         req.Channel,
		Status:          status,
		Attempts:        attempts,
		LastError:       lastErr,
	}
	if err := d.records.Save(ctx, record); err != nil {
		logger.Error().Err(err).Msg("Failed to persist notification record")
	}
}
