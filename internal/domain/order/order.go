package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Item is one order line. UnitPrice is the catalog price snapshotted at
// placement time; later price edits never change historical totals.
type Item struct {
	ID        string
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// LineTotal is quantity times the snapshotted unit price.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is the placement aggregate. Items and buyer fields are fixed at
// creation; only Status changes afterwards, gated by ValidateTransition.
type Order struct {
	ID              string
	BuyerName       string
	ContactNumber   string
	DeliveryAddress string
	Status          Status
	Items           []Item
	CreatedAt       time.Time
}

// New builds a PENDING order after validating buyer fields and lines.
func New(id, buyerName, contactNumber, deliveryAddress string, items []Item) (*Order, error) {
	if strings.TrimSpace(buyerName) == "" {
		return nil, ErrBuyerNameRequired
	}
	if strings.TrimSpace(contactNumber) == "" {
		return nil, ErrContactRequired
	}
	if strings.TrimSpace(deliveryAddress) == "" {
		return nil, ErrAddressRequired
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %s", ErrInvalidQuantity, item.ProductID)
		}
	}

	return &Order{
		ID:              id,
		BuyerName:       buyerName,
		ContactNumber:   contactNumber,
		DeliveryAddress: deliveryAddress,
		Status:          StatusPending,
		Items:           append([]Item(nil), items...),
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// Total is derived from the lines on every call, never stored.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Clone returns a deep copy so repositories can hand out snapshots.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]Item(nil), o.Items...)
	return &clone
}
