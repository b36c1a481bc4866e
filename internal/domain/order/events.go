package order

import "time"

// PlacedEvent is emitted after an order is durably created. Notification
// hooks (e.g. a future email sender) subscribe to it.
type PlacedEvent struct {
	OrderID    string
	BuyerName  string
	LineCount  int
	Total      string
	OccurredAt time.Time
}

func (PlacedEvent) EventName() string { return "order.placed" }

func NewPlacedEvent(o *Order) PlacedEvent {
	return PlacedEvent{
		OrderID:    o.ID,
		BuyerName:  o.BuyerName,
		LineCount:  len(o.Items),
		Total:      o.Total().StringFixed(2),
		OccurredAt: time.Now().UTC(),
	}
}

// StatusChangedEvent is emitted after a successful status write.
type StatusChangedEvent struct {
	OrderID    string
	From       Status
	To         Status
	OccurredAt time.Time
}

func (StatusChangedEvent) EventName() string { return "order.status_changed" }

func NewStatusChangedEvent(orderID string, from, to Status) StatusChangedEvent {
	return StatusChangedEvent{
		OrderID:    orderID,
		From:       from,
		To:         to,
		OccurredAt: time.Now().UTC(),
	}
}

// CancelledEvent is emitted after an order is cancelled and its stock
// released.
type CancelledEvent struct {
	OrderID    string
	OccurredAt time.Time
}

func (CancelledEvent) EventName() string { return "order.cancelled" }

func NewCancelledEvent(orderID string) CancelledEvent {
	return CancelledEvent{OrderID: orderID, OccurredAt: time.Now().UTC()}
}
