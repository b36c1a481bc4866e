package order

import "errors"

var (
	ErrNotFound          = errors.New("order: not found")
	ErrConflict          = errors.New("order: id already exists")
	ErrNoItems           = errors.New("order: at least one item is required")
	ErrInvalidQuantity   = errors.New("order: quantity must be greater than zero")
	ErrBuyerNameRequired = errors.New("order: buyer name is required")
	ErrContactRequired   = errors.New("order: contact number is required")
	ErrAddressRequired   = errors.New("order: delivery address is required")
	ErrUnknownStatus     = errors.New("order: unknown status")
	ErrInvalidTransition = errors.New("order: invalid status transition")
)
