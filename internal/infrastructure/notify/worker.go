package notify

import (
	"context"

	domevent "github.com/freshfields/bulkorder/internal/domain/event"
	domorder "github.com/freshfields/bulkorder/internal/domain/order"
	"github.com/freshfields/bulkorder/internal/observability"
)

// Worker subscribes to order lifecycle events and records them. This is the
// attachment point for buyer notifications; an email sender would replace
// the log calls.
type Worker struct {
	subscriber domevent.Subscriber
	log        observability.Logger
}

func New(subscriber domevent.Subscriber, logger observability.Logger) *Worker {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Worker{
		subscriber: subscriber,
		log:        logger.With(observability.F("component", "notify_worker")),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil {
		return
	}
	w.subscriber.Subscribe(domorder.PlacedEvent{}.EventName(), w.handlePlaced)
	w.subscriber.Subscribe(domorder.StatusChangedEvent{}.EventName(), w.handleStatusChanged)
	w.subscriber.Subscribe(domorder.CancelledEvent{}.EventName(), w.handleCancelled)
}

func (w *Worker) handlePlaced(ctx context.Context, e domevent.Event) error {
	_ = ctx
	evt, ok := e.(domorder.PlacedEvent)
	if !ok {
		return nil
	}
	w.log.Info("order_placed_notification",
		observability.F("order_id", evt.OrderID),
		observability.F("buyer", evt.BuyerName),
		observability.F("lines", evt.LineCount),
		observability.F("total", evt.Total),
	)
	return nil
}

func (w *Worker) handleStatusChanged(ctx context.Context, e domevent.Event) error {
	_ = ctx
	evt, ok := e.(domorder.StatusChangedEvent)
	if !ok {
		return nil
	}
	w.log.Info("order_status_notification",
		observability.F("order_id", evt.OrderID),
		observability.F("from", string(evt.From)),
		observability.F("to", string(evt.To)),
	)
	return nil
}

func (w *Worker) handleCancelled(ctx context.Context, e domevent.Event) error {
	_ = ctx
	evt, ok := e.(domorder.CancelledEvent)
	if !ok {
		return nil
	}
	w.log.Info("order_cancelled_notification",
		observability.F("order_id", evt.OrderID),
	)
	return nil
}
