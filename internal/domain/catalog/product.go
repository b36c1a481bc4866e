package catalog

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Stock is mutated exclusively through
// Repository.AdjustStock; price and display fields are admin-editable.
type Product struct {
	ID          string
	Name        string
	Description string
	Category    string
	Unit        string
	Price       decimal.Decimal
	Stock       int
	Retired     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewProduct validates admin-supplied fields and builds a product with the
// given id. Stock and price must be non-negative, name must be non-empty.
func NewProduct(id, name, description, category, unit string, price decimal.Decimal, stock int) (*Product, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrNameRequired
	}
	if price.IsNegative() {
		return nil, ErrInvalidPrice
	}
	if stock < 0 {
		return nil, ErrInvalidStock
	}

	now := time.Now().UTC()
	return &Product{
		ID:          id,
		Name:        name,
		Description: description,
		Category:    category,
		Unit:        unit,
		Price:       price,
		Stock:       stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Update applies only the supplied fields. Stock is deliberately not part of
// the patch; it changes only through AdjustStock.
type Update struct {
	Name        *string
	Description *string
	Category    *string
	Unit        *string
	Price       *decimal.Decimal
	Retired     *bool
}

// Apply mutates the product with the patch after validating it.
func (p *Product) Apply(u Update) error {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return ErrNameRequired
	}
	if u.Price != nil && u.Price.IsNegative() {
		return ErrInvalidPrice
	}

	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.Unit != nil {
		p.Unit = *u.Unit
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Retired != nil {
		p.Retired = *u.Retired
	}
	p.touch()
	return nil
}

func (p *Product) touch() {
	p.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy so stores can hand out snapshots.
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
