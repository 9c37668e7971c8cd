package processor

import (
	"context"
	"sync"
	"time"

	"github.com/sensor-platform/alert-engine/internal/logger"
	"github.com/sensor-platform/alert-engine/internal/models"
)

// AlertEvent is published on every fire and resolution.
type AlertEvent struct {
	Type      models.AlertEventType
	Instance  *models.AlertInstance
	Rule      *models.SensorRule
	Payload   models.AlertPayload
	Timestamp time.Time
}

// AlertObserver receives alert events (Observer pattern).
type AlertObserver interface {
	OnAlertEvent(ctx context.Context, event *AlertEvent) error
}

// EventBus distributes alert events to observers. Publish never blocks the
// evaluation path: a full channel drops the event with a warning.
type EventBus struct {
	observers []AlertObserver
	eventChan chan *AlertEvent
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

func NewEventBus() *EventBus {
	return &EventBus{
		observers: make([]AlertObserver, 0),
		eventChan: make(chan *AlertEvent, 200),
		stopCh:    make(chan struct{}),
	}
}

// Subscribe adds an observer. Not safe to call after Start.
func (eb *EventBus) Subscribe(observer AlertObserver) {
	eb.observers = append(eb.observers, observer)
	logger.Info().Msg("Observer subscribed to event bus")
}

// Publish sends an event to all observers
func (eb *EventBus) Publish(event *AlertEvent) {
	select {
	case eb.eventChan <- event:
	default:
		logger.Warn().Msg("Event bus channel full, dropping event")
	}
}

// Start begins processing events
func (eb *EventBus) Start(ctx context.Context) {
	logger.Info().Msg("Starting Alert Event Bus")

	eb.wg.Add(1)
	go eb.dispatcher(ctx)
}

func (eb *EventBus) dispatcher(ctx context.Context) {
	defer eb.wg.Done()

	for {
		select {
		case event := <-eb.eventChan:
			eb.notifyObservers(ctx, event)

		case <-eb.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// notifyObservers sends event to all observers in parallel
func (eb *EventBus) notifyObservers(ctx context.Context, event *AlertEvent) {
	for _, observer := range eb.observers {
		go func(obs AlertObserver) {
			ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			if err := obs.OnAlertEvent(ctx, event); err != nil {
				logger.Error().Err(err).Msg("Observer notification failed")
			}
		}(observer)
	}
}

func (eb *EventBus) Stop() {
	close(eb.stopCh)
	eb.wg.Wait()
}
