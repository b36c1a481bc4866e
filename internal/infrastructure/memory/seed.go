package memory

import (
	"context"

	domain "github.com/freshfields/bulkorder/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

type seedRow struct {
	id, name, description, category, unit string
	price                                 string
	stock                                 int
}

var seedRows = []seedRow{
	{"1", "Fresh Red Tomatoes", "Vine-ripened, juicy red tomatoes perfect for salads and cooking.", "Vegetables", "kg", "2.99", 500},
	{"2", "Premium Russet Potatoes", "High-quality russet potatoes, perfect for baking, mashing, or frying.", "Vegetables", "kg", "1.99", 1000},
	{"3", "Sweet Yellow Onions", "Fresh, crisp yellow onions with a mild, sweet flavor.", "Vegetables", "kg", "1.49", 750},
	{"4", "Organic Carrots", "Sweet and crunchy organic carrots, rich in vitamins.", "Vegetables", "kg", "2.49", 800},
	{"5", "Red Apples", "Sweet and crispy red apples, great for snacking or baking.", "Fruits", "kg", "4.99", 400},
	{"6", "Fresh Strawberries", "Sweet and juicy strawberries, perfect for desserts.", "Fruits", "kg", "5.99", 200},
	{"7", "Organic Herbs Mix", "Fresh mixed herbs including basil, parsley, and cilantro.", "Herbs", "bunch", "4.99", 150},
}

// Seed loads the built-in produce catalog. Intended for local and demo
// setups where no durable store is configured.
func Seed(ctx context.Context, repo *CatalogRepository) error {
	for _, row := range seedRows {
		product, err := domain.NewProduct(
			row.id, row.name, row.description, row.category, row.unit,
			decimal.RequireFromString(row.price), row.stock,
		)
		if err != nil {
			return err
		}
		if err := repo.Create(ctx, product); err != nil {
			return err
		}
	}
	return nil
}
