package catalog

import "context"

// Repository is the catalog storage contract. AdjustStock is the only
// sanctioned way to change stock; implementations must make the
// check-and-apply atomic so concurrent adjustments never drive stock
// negative or lose an update.
type Repository interface {
	Get(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context) ([]*Product, error)
	Create(ctx context.Context, product *Product) error
	Update(ctx context.Context, id string, patch Update) (*Product, error)

	// AdjustStock applies delta (negative to reserve, positive to release)
	// and returns the resulting stock. A delta that would take stock below
	// zero fails with ErrInsufficientStock and leaves stock unchanged.
	AdjustStock(ctx context.Context, id string, delta int) (int, error)
}
