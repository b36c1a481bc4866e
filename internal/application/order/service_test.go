package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	appinv "github.com/freshfields/bulkorder/internal/application/inventory"
	domcatalog "github.com/freshfields/bulkorder/internal/domain/catalog"
	domain "github.com/freshfields/bulkorder/internal/domain/order"
	"github.com/freshfields/bulkorder/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seqIDGen struct{ n int }

func (g *seqIDGen) NewID() string {
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

type fixture struct {
	service *Service
	catalog *memory.CatalogRepository
	orders  *memory.OrderRepository
}

func newFixture(t *testing.T, stocks map[string]string) *fixture {
	t.Helper()
	ctx := context.Background()
	catalogRepo := memory.NewCatalogRepository()
	for id, spec := range stocks {
		var price string
		var stock int
		_, err := fmt.Sscanf(spec, "%s %d", &price, &stock)
		require.NoError(t, err)
		p, err := domcatalog.NewProduct(id, "Product "+id, "", "Vegetables", "kg",
			decimal.RequireFromString(price), stock)
		require.NoError(t, err)
		require.NoError(t, catalogRepo.Create(ctx, p))
	}

	orderRepo := memory.NewOrderRepository()
	guard := appinv.NewGuard(catalogRepo, time.Second, nil)
	service := NewService(orderRepo, catalogRepo, guard, &seqIDGen{}, nil, nil)
	return &fixture{service: service, catalog: catalogRepo, orders: orderRepo}
}

func (f *fixture) stockOf(t *testing.T, id string) int {
	t.Helper()
	p, err := f.catalog.Get(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func validInput(lines ...LineInput) PlaceOrderInput {
	return PlaceOrderInput{
		BuyerName:       "Alice Farmer",
		ContactNumber:   "555-0101",
		DeliveryAddress: "1 Market St",
		Lines:           lines,
	}
}

func TestPlaceOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]string{"p1": "2.99 500"})

	placed, err := f.service.PlaceOrder(ctx, validInput(LineInput{ProductID: "p1", Quantity: 10}))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, placed.Status)
	require.Len(t, placed.Items, 1)
	assert.Equal(t, 10, placed.Items[0].Quantity)
	assert.Equal(t, "2.99", placed.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "29.90", placed.Total().StringFixed(2))
	assert.Equal(t, 490, f.stockOf(t, "p1"))

	// the aggregate is durable
	stored, err := f.orders.Get(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, "29.90", stored.Total().StringFixed(2))
}

func TestPlaceOrder_EmptyLines(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.service.PlaceOrder(context.Background(), validInput())
	assert.ErrorIs(t, err, domain.ErrNoItems)
}

func TestPlaceOrder_NonPositiveQuantity(t *testing.T) {
	f := newFixture(t, map[string]string{"p1": "2.99 500"})

	_, err := f.service.PlaceOrder(context.Background(),
		validInput(LineInput{ProductID: "p1", Quantity: 0}))
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = f.service.PlaceOrder(context.Background(),
		validInput(LineInput{ProductID: "p1", Quantity: -3}))
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	assert.Equal(t, 500, f.stockOf(t, "p1"))
}

func TestPlaceOrder_UnknownProduct(t *testing.T) {
	f := newFixture(t, map[string]string{"p1": "2.99 500"})

	_, err := f.service.PlaceOrder(context.Background(),
		validInput(LineInput{ProductID: "ghost", Quantity: 1}))
	assert.ErrorIs(t, err, domcatalog.ErrNotFound)
}

func TestPlaceOrder_RetiredProduct(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]string{"p1": "2.99 500"})

	retired := true
	_, err := f.catalog.Update(ctx, "p1", domcatalog.Update{Retired: &retired})
	require.NoError(t, err)

	_, err = f.service.PlaceOrder(ctx, validInput(LineInput{ProductID: "p1", Quantity: 1}))
	assert.ErrorIs(t, err, domcatalog.ErrNotFound)
	assert.Equal(t, 500, f.stockOf(t, "p1"))
}

func TestPlaceOrder_SecondLineFailureReleasesFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]string{"p1": "2.99 500", "p2": "1.49 2"})

	_, err := f.service.PlaceOrder(ctx, validInput(
		LineInput{ProductID: "p1", Quantity: 10},
		LineInput{ProductID: "p2", Quantity: 5},
	))
	require.ErrorIs(t, err, domcatalog.ErrInsufficientStock)

	// the first line's debit was rolled back and no order record exists
	assert.Equal(t, 500, f.stockOf(t, "p1"))
	assert.Equal(t, 2, f.stockOf(t, "p2"))
	orders, listErr := f.orders.List(ctx)
	require.NoError(t, listErr)
	assert.Empty(t, orders)
}

func TestPlaceOrder_PriceEditDoesNotChangeHistoricalTotal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]string{"p1": "2.99 500"})

	placed, err := f.service.PlaceOrder(ctx, validInput(LineInput{ProductID: "p1", Quantity: 10}))
	require.NoError(t, err)

	newPrice := decimal.RequireFromString("9.99")
	_, err = f.catalog.Update(ctx, "p1", domcatalog.Update{Price: &newPrice})
	require.NoError(t, err)

	stored, err := f.service.Get(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, "29.90", stored.Total().StringFixed(2))
}

type failingOrderRepo struct {
	domain.Repository
}

func (failingOrderRepo) Create(context.Context, *domain.Order) error {
	return errors.New("disk full")
}

func TestPlaceOrder_PersistenceFailureReleasesStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]string{"p1": "2.99 500"})

	guard := appinv.NewGuard(f.catalog, time.Second, nil)
	service := NewService(failingOrderRepo{}, f.catalog, guard, &seqIDGen{}, nil, nil)

	_, err := service.PlaceOrder(ctx, validInput(LineInput{ProductID: "p1", Quantity: 10}))
	require.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, 500, f.stockOf(t, "p1"))
}

func TestUpdateStatus_FullLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]string{"p1": "2.99 500"})

	placed, err := f.service.PlaceOrder(ctx, validInput(LineInput{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)

	updated, err := f.service.UpdateStatus(ctx, placed.ID, domain.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, updated.Status)

	updated, err = f.service.UpdateStatus(ctx, placed.ID, domain.StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, updated.Status)
}

func TestUpdateStatus_DeliveredIsTerminal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]string{"p1": "2.99 500"})

	placed, err := f.service.PlaceOrder(ctx, validInput(LineInput{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)

	_, err = f.service.UpdateStatus(ctx, placed.ID, domain.StatusDelivered)
	require.NoError(t, err)

	for _, next := range []domain.Status{domain.StatusPending, domain.StatusInProgress} {
		_, err := f.service.UpdateStatus(ctx, placed.ID, next)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition, "DELIVERED -> %s", next)
	}
}

func TestUpdateStatus_SameStatusIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]string{"p1": "2.99 500"})

	placed, err := f.service.PlaceOrder(ctx, validInput(LineInput{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)

	same, err := f.service.UpdateStatus(ctx, placed.ID, domain.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, same.Status)
}

func TestUpdateStatus_NotFound(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.service.UpdateStatus(context.Background(), "ghost", domain.StatusDelivered)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancelOrder_ReleasesStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]string{"p1": "2.99 500", "p2": "1.49 20"})

	placed, err := f.service.PlaceOrder(ctx, validInput(
		LineInput{ProductID: "p1", Quantity: 10},
		LineInput{ProductID: "p2", Quantity: 5},
	))
	require.NoError(t, err)
	require.Equal(t, 490, f.stockOf(t, "p1"))
	require.Equal(t, 15, f.stockOf(t, "p2"))

	cancelled, err := f.service.CancelOrder(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.Equal(t, 500, f.stockOf(t, "p1"))
	assert.Equal(t, 20, f.stockOf(t, "p2"))
}

func TestCancelOrder_OnlyFromPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]string{"p1": "2.99 500"})

	placed, err := f.service.PlaceOrder(ctx, validInput(LineInput{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)

	_, err = f.service.UpdateStatus(ctx, placed.ID, domain.StatusInProgress)
	require.NoError(t, err)

	_, err = f.service.CancelOrder(ctx, placed.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, 499, f.stockOf(t, "p1"))
}

func TestCancelOrder_ViaUpdateStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]string{"p1": "2.99 500"})

	placed, err := f.service.PlaceOrder(ctx, validInput(LineInput{ProductID: "p1", Quantity: 10}))
	require.NoError(t, err)

	cancelled, err := f.service.UpdateStatus(ctx, placed.ID, domain.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.Equal(t, 500, f.stockOf(t, "p1"))
}

// rendezvousRepo holds the first two Get callers at a barrier so both
// observe the same status before either writes. Later reads pass through.
type rendezvousRepo struct {
	domain.Repository

	mu      sync.Mutex
	arrived int
	barrier chan struct{}
}

func newRendezvousRepo(inner domain.Repository) *rendezvousRepo {
	return &rendezvousRepo{Repository: inner, barrier: make(chan struct{})}
}

func (r *rendezvousRepo) Get(ctx context.Context, id string) (*domain.Order, error) {
	o, err := r.Repository.Get(ctx, id)

	r.mu.Lock()
	if r.arrived < 2 {
		r.arrived++
		if r.arrived == 2 {
			close(r.barrier)
		}
		r.mu.Unlock()
		<-r.barrier
	} else {
		r.mu.Unlock()
	}
	return o, err
}

func TestCancelOrder_ConcurrentCancelReleasesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]string{"p1": "2.99 500"})

	placed, err := f.service.PlaceOrder(ctx, validInput(LineInput{ProductID: "p1", Quantity: 10}))
	require.NoError(t, err)
	require.Equal(t, 490, f.stockOf(t, "p1"))

	guard := appinv.NewGuard(f.catalog, time.Second, nil)
	racing := NewService(newRendezvousRepo(f.orders), f.catalog, guard, &seqIDGen{}, nil, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := racing.CancelOrder(ctx, placed.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	// both callers observed PENDING; one flips the status, the other sees
	// the cancelled order and succeeds idempotently
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 500, f.stockOf(t, "p1"))

	got, err := f.orders.Get(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)
}

func TestUpdateStatus_ConcurrentWriteCannotLeaveTerminal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]string{"p1": "2.99 500"})

	placed, err := f.service.PlaceOrder(ctx, validInput(LineInput{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)

	guard := appinv.NewGuard(f.catalog, time.Second, nil)
	racing := NewService(newRendezvousRepo(f.orders), f.catalog, guard, &seqIDGen{}, nil, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, requested := range []domain.Status{domain.StatusDelivered, domain.StatusInProgress} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := racing.UpdateStatus(ctx, placed.ID, requested)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	// both validated against PENDING; whichever lands second must be
	// re-checked against the fresh status, so DELIVERED is never overwritten
	for err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		}
	}
	got, err := f.orders.Get(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, got.Status)
}

func TestListOrders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]string{"p1": "2.99 500"})

	_, err := f.service.PlaceOrder(ctx, validInput(LineInput{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)
	_, err = f.service.PlaceOrder(ctx, validInput(LineInput{ProductID: "p1", Quantity: 2}))
	require.NoError(t, err)

	orders, err := f.service.List(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}
