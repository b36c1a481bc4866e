package order

import "context"

// Repository persists order aggregates. Orders are immutable once written
// except for their status.
type Repository interface {
	// Create fails with ErrConflict when the id already exists.
	Create(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context) ([]*Order, error)
	// UpdateStatus is the only mutation allowed after creation; it touches
	// neither items, buyer fields, nor timestamps. The write is conditional:
	// it fails with ErrConflict when the stored status is no longer from, so
	// a transition validated against a stale read can never land.
	UpdateStatus(ctx context.Context, id string, from, to Status) (*Order, error)
}
