package order

// IDGenerator issues unique ids for orders and their items.
type IDGenerator interface {
	NewID() string
}
