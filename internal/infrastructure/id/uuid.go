package id

import "github.com/google/uuid"

// UUIDGenerator issues collision-resistant ids for orders, items, and
// products.
type UUIDGenerator struct{}

func NewUUIDGenerator() UUIDGenerator { return UUIDGenerator{} }

func (UUIDGenerator) NewID() string { return uuid.NewString() }
