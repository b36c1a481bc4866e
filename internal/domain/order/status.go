package order

import "fmt"

// Status is the order lifecycle state. Values serialize as the literal
// strings below.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

// transitions holds the legal forward edges of the lifecycle. Direct
// fulfillment (PENDING -> DELIVERED) is permitted; nothing leaves a
// terminal state.
var transitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusDelivered, StatusCancelled},
	StatusInProgress: {StatusDelivered},
	StatusDelivered:  nil,
	StatusCancelled:  nil,
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// ValidateTransition checks whether current may move to requested.
// Re-requesting the current status is an idempotent no-op success.
// Pure function; callers persist the new status only after it passes.
func ValidateTransition(current, requested Status) error {
	if !current.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, current)
	}
	if !requested.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, requested)
	}
	if current == requested {
		return nil
	}
	for _, next := range transitions[current] {
		if next == requested {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, requested)
}
