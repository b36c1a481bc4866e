package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	domcatalog "github.com/freshfields/bulkorder/internal/domain/catalog"
	"github.com/freshfields/bulkorder/internal/observability"
	"golang.org/x/sync/semaphore"
)

var (
	ErrTimeout         = errors.New("inventory: reservation wait exceeded")
	ErrInvalidQuantity = errors.New("inventory: quantity must be greater than zero")
)

// Reservation is the token for a successful atomic stock decrement. Release
// it to restore the stock, e.g. after a downstream failure or on order
// cancellation.
type Reservation struct {
	ProductID string
	Quantity  int
}

// Line is one reservation request within an order.
type Line struct {
	ProductID string
	Quantity  int
}

// Guard serializes stock check-and-decrement per product so that two
// concurrent reservations can never both observe stock sufficient for a
// combined quantity exceeding what is available. Different products are
// independent and reserve in parallel.
type Guard struct {
	catalog     domcatalog.Repository
	reserveWait time.Duration

	mu    sync.Mutex
	locks map[string]*semaphore.Weighted

	log          observability.Logger
	reservations observability.Counter
}

func NewGuard(catalog domcatalog.Repository, reserveWait time.Duration, tel observability.Observability) *Guard {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Guard{
		catalog:      catalog,
		reserveWait:  reserveWait,
		locks:        make(map[string]*semaphore.Weighted),
		log:          tel.Logger().With(observability.F("component", "inventory_guard")),
		reservations: tel.Metrics().Counter(observability.MStockReservations),
	}
}

// Reserve decrements the product's stock by quantity, waiting at most the
// configured bound for the product's turn. On success exactly one caller
// observed and consumed the stock; losers get ErrInsufficientStock, never a
// stale read.
func (g *Guard) Reserve(ctx context.Context, productID string, quantity int) (Reservation, error) {
	if quantity <= 0 {
		return Reservation{}, fmt.Errorf("%w: product %s", ErrInvalidQuantity, productID)
	}

	lock := g.lockFor(productID)
	waitCtx, cancel := context.WithTimeout(ctx, g.reserveWait)
	defer cancel()

	if err := lock.Acquire(waitCtx, 1); err != nil {
		g.count("timeout")
		if ctx.Err() != nil {
			return Reservation{}, ctx.Err()
		}
		return Reservation{}, fmt.Errorf("%w: product %s", ErrTimeout, productID)
	}
	defer lock.Release(1)

	if _, err := g.catalog.AdjustStock(ctx, productID, -quantity); err != nil {
		switch {
		case errors.Is(err, domcatalog.ErrInsufficientStock):
			g.count("insufficient_stock")
		case errors.Is(err, domcatalog.ErrNotFound):
			g.count("not_found")
		default:
			g.count("error")
		}
		return Reservation{}, err
	}

	g.count("success")
	return Reservation{ProductID: productID, Quantity: quantity}, nil
}

// ReserveAll reserves every line, acquiring products in ascending id order
// so overlapping multi-line orders cannot deadlock. If any line fails, all
// prior reservations are released before the error is returned; no partial
// inventory debit survives.
func (g *Guard) ReserveAll(ctx context.Context, lines []Line) ([]Reservation, error) {
	sorted := append([]Line(nil), lines...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	reserved := make([]Reservation, 0, len(sorted))
	for _, line := range sorted {
		if err := ctx.Err(); err != nil {
			g.ReleaseAll(ctx, reserved)
			return nil, err
		}
		res, err := g.Reserve(ctx, line.ProductID, line.Quantity)
		if err != nil {
			g.ReleaseAll(ctx, reserved)
			return nil, err
		}
		reserved = append(reserved, res)
	}
	return reserved, nil
}

// Release restores the reserved quantity.
func (g *Guard) Release(ctx context.Context, res Reservation) error {
	if res.Quantity <= 0 {
		return nil
	}
	_, err := g.catalog.AdjustStock(ctx, res.ProductID, res.Quantity)
	return err
}

// ReleaseAll restores every reservation, continuing past individual
// failures so one bad release cannot leak the rest. Runs even when the
// caller's context is already canceled.
func (g *Guard) ReleaseAll(ctx context.Context, reservations []Reservation) {
	ctx = context.WithoutCancel(ctx)
	for _, res := range reservations {
		if err := g.Release(ctx, res); err != nil {
			g.log.Error("stock_release_failed",
				observability.F("product_id", res.ProductID),
				observability.F("quantity", res.Quantity),
				observability.F("error", err),
			)
		}
	}
}

func (g *Guard) lockFor(productID string) *semaphore.Weighted {
	g.mu.Lock()
	defer g.mu.Unlock()
	lock, ok := g.locks[productID]
	if !ok {
		lock = semaphore.NewWeighted(1)
		g.locks[productID] = lock
	}
	return lock
}

func (g *Guard) count(outcome string) {
	g.reservations.Add(1, observability.L("outcome", outcome))
}
