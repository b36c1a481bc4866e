package catalog

import (
	"context"
	"fmt"
	"testing"

	domain "github.com/freshfields/bulkorder/internal/domain/catalog"
	"github.com/freshfields/bulkorder/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seqIDGen struct{ n int }

func (g *seqIDGen) NewID() string {
	g.n++
	return fmt.Sprintf("p-%d", g.n)
}

func newTestService() (*Service, *memory.CatalogRepository) {
	repo := memory.NewCatalogRepository()
	return NewService(repo, &seqIDGen{}, nil), repo
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	service, repo := newTestService()

	created, err := service.Create(ctx, CreateProductInput{
		Name:  "Fresh Red Tomatoes",
		Unit:  "kg",
		Price: decimal.RequireFromString("2.99"),
		Stock: 500,
	})
	require.NoError(t, err)
	assert.Equal(t, "p-1", created.ID)

	stored, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fresh Red Tomatoes", stored.Name)
	assert.Equal(t, 500, stored.Stock)
}

func TestService_Create_Invalid(t *testing.T) {
	service, _ := newTestService()

	_, err := service.Create(context.Background(), CreateProductInput{
		Name:  "",
		Price: decimal.RequireFromString("2.99"),
	})
	assert.ErrorIs(t, err, domain.ErrNameRequired)
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	created, err := service.Create(ctx, CreateProductInput{
		Name:  "Tomatoes",
		Price: decimal.RequireFromString("2.99"),
		Stock: 500,
	})
	require.NoError(t, err)

	newPrice := decimal.RequireFromString("3.49")
	updated, err := service.Update(ctx, created.ID, domain.Update{Price: &newPrice})
	require.NoError(t, err)
	assert.Equal(t, "3.49", updated.Price.StringFixed(2))
	assert.Equal(t, 500, updated.Stock)
}

func TestService_Update_NotFound(t *testing.T) {
	service, _ := newTestService()

	newPrice := decimal.RequireFromString("3.49")
	_, err := service.Update(context.Background(), "ghost", domain.Update{Price: &newPrice})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_List_FiltersRetired(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	active, err := service.Create(ctx, CreateProductInput{
		Name: "Tomatoes", Price: decimal.RequireFromString("2.99"), Stock: 500,
	})
	require.NoError(t, err)
	gone, err := service.Create(ctx, CreateProductInput{
		Name: "Rhubarb", Price: decimal.RequireFromString("4.25"), Stock: 30,
	})
	require.NoError(t, err)

	retired := true
	_, err = service.Update(ctx, gone.ID, domain.Update{Retired: &retired})
	require.NoError(t, err)

	buyerView, err := service.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, buyerView, 1)
	assert.Equal(t, active.ID, buyerView[0].ID)

	adminView, err := service.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, adminView, 2)
}
