package catalog

import "errors"

var (
	ErrNotFound          = errors.New("catalog: product not found")
	ErrConflict          = errors.New("catalog: product already exists")
	ErrNameRequired      = errors.New("catalog: product name is required")
	ErrInvalidPrice      = errors.New("catalog: price must be zero or greater")
	ErrInvalidStock      = errors.New("catalog: stock must be zero or greater")
	ErrInsufficientStock = errors.New("catalog: insufficient stock")
)
