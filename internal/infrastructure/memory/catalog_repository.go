package memory

import (
	"context"
	"sort"
	"sync"

	domain "github.com/freshfields/bulkorder/internal/domain/catalog"
)

// CatalogRepository keeps products in a mutex-guarded map. AdjustStock
// performs its check-and-apply under the write lock, so the stock invariant
// holds under concurrent callers.
type CatalogRepository struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{
		products: make(map[string]*domain.Product),
	}
}

func (r *CatalogRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return product.Clone(), nil
}

func (r *CatalogRepository) List(ctx context.Context) ([]*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p.Clone())
	}
	// stable display order for callers
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *CatalogRepository) Create(ctx context.Context, product *domain.Product) error {
	_ = ctx
	if product == nil || product.ID == "" {
		return domain.ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.products[product.ID]; exists {
		return domain.ErrConflict
	}

	r.products[product.ID] = product.Clone()
	return nil
}

func (r *CatalogRepository) Update(ctx context.Context, id string, patch domain.Update) (*domain.Product, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	updated := product.Clone()
	if err := updated.Apply(patch); err != nil {
		return nil, err
	}
	// stock is owned by AdjustStock; a racing adjustment wins
	updated.Stock = product.Stock
	r.products[id] = updated
	return updated.Clone(), nil
}

func (r *CatalogRepository) AdjustStock(ctx context.Context, id string, delta int) (int, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if product.Stock+delta < 0 {
		return 0, domain.ErrInsufficientStock
	}
	product.Stock += delta
	return product.Stock, nil
}
