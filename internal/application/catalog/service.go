package catalog

import (
	"context"

	domain "github.com/freshfields/bulkorder/internal/domain/catalog"
	"github.com/freshfields/bulkorder/internal/observability"
	"github.com/freshfields/bulkorder/internal/observability/logctx"
	"github.com/shopspring/decimal"
)

// IDGenerator issues unique product ids.
type IDGenerator interface {
	NewID() string
}

// Service is the admin-facing catalog surface. It exposes no direct stock
// mutation; stock moves only through order placement and cancellation.
type Service struct {
	repo  domain.Repository
	idGen IDGenerator
	log   observability.Logger
}

func NewService(repo domain.Repository, idGen IDGenerator, tel observability.Observability) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Service{
		repo:  repo,
		idGen: idGen,
		log:   tel.Logger().With(observability.F("service", "catalog-service")),
	}
}

type CreateProductInput struct {
	Name        string
	Description string
	Category    string
	Unit        string
	Price       decimal.Decimal
	Stock       int
}

func (s *Service) Create(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	product, err := domain.NewProduct(
		s.idGen.NewID(),
		input.Name, input.Description, input.Category, input.Unit,
		input.Price, input.Stock,
	)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}

	logctx.FromOr(ctx, s.log).Info("product_created",
		observability.F("product_id", product.ID),
		observability.F("name", product.Name),
	)
	return product, nil
}

func (s *Service) Update(ctx context.Context, id string, patch domain.Update) (*domain.Product, error) {
	product, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	logctx.FromOr(ctx, s.log).Info("product_updated",
		observability.F("product_id", product.ID),
	)
	return product, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.Get(ctx, id)
}

// List returns the catalog. When includeRetired is false, soft-retired
// products are filtered out (the buyer-facing view).
func (s *Service) List(ctx context.Context, includeRetired bool) ([]*domain.Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if includeRetired {
		return products, nil
	}
	visible := products[:0]
	for _, p := range products {
		if !p.Retired {
			visible = append(visible, p)
		}
	}
	return visible, nil
}
