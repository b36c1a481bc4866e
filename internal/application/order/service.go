package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	appinv "github.com/freshfields/bulkorder/internal/application/inventory"
	domcatalog "github.com/freshfields/bulkorder/internal/domain/catalog"
	domevent "github.com/freshfields/bulkorder/internal/domain/event"
	domain "github.com/freshfields/bulkorder/internal/domain/order"
	"github.com/freshfields/bulkorder/internal/observability"
	"github.com/freshfields/bulkorder/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	ucPlaceOrder   = "order.place"
	ucUpdateStatus = "order.update_status"
	ucCancelOrder  = "order.cancel"
	spanPrefix     = "UC."
	publishTimeout = 300 * time.Millisecond
)

// ErrPersistence marks storage failures surfaced to callers after
// compensating actions (stock release) have run.
var ErrPersistence = errors.New("order: persistence failure")

// Service orchestrates order placement and the fulfillment lifecycle.
type Service struct {
	orders    domain.Repository
	catalog   domcatalog.Repository
	guard     *appinv.Guard
	idGen     IDGenerator
	publisher domevent.Publisher
	tel       observability.Observability

	log          observability.Logger
	reqCounter   observability.Counter
	durHistogram observability.Histogram
}

func NewService(
	orders domain.Repository,
	catalog domcatalog.Repository,
	guard *appinv.Guard,
	idGen IDGenerator,
	publisher domevent.Publisher,
	tel observability.Observability,
) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Service{
		orders:       orders,
		catalog:      catalog,
		guard:        guard,
		idGen:        idGen,
		publisher:    publisher,
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", "order-service")),
		reqCounter:   tel.Metrics().Counter(observability.MUsecaseRequests),
		durHistogram: tel.Metrics().Histogram(observability.MUsecaseDuration),
	}
}

type LineInput struct {
	ProductID string
	Quantity  int
}

type PlaceOrderInput struct {
	BuyerName       string
	ContactNumber   string
	DeliveryAddress string
	Lines           []LineInput
}

// PlaceOrder validates the request, snapshots current catalog prices,
// reserves every line's stock, and persists the aggregate. Either the whole
// order is placed with all lines reserved, or none are: any failure after a
// partial reservation releases what was taken before the error surfaces.
func (s *Service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (_ *domain.Order, err error) {
	logger := logctx.FromOr(ctx, s.log).With(observability.F("use_case", ucPlaceOrder))

	ctx, span := s.tel.Tracer().Start(ctx, spanPrefix+"PlaceOrder",
		attribute.String("use_case", ucPlaceOrder),
		attribute.Int("order.lines", len(input.Lines)),
	)
	done := s.instrument(ucPlaceOrder)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		done(err)
	}()

	if len(input.Lines) == 0 {
		return nil, domain.ErrNoItems
	}
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %s", domain.ErrInvalidQuantity, line.ProductID)
		}
	}

	// snapshot prices before reserving; a racing price edit affects either
	// all of this order or none of it, never a later recomputation
	items := make([]domain.Item, 0, len(input.Lines))
	for _, line := range input.Lines {
		product, getErr := s.catalog.Get(ctx, line.ProductID)
		if getErr != nil {
			return nil, fmt.Errorf("product %s: %w", line.ProductID, getErr)
		}
		if product.Retired {
			return nil, fmt.Errorf("product %s: %w", line.ProductID, domcatalog.ErrNotFound)
		}
		items = append(items, domain.Item{
			ID:        s.idGen.NewID(),
			ProductID: product.ID,
			Quantity:  line.Quantity,
			UnitPrice: product.Price,
		})
	}

	lines := make([]appinv.Line, len(input.Lines))
	for i, line := range input.Lines {
		lines[i] = appinv.Line{ProductID: line.ProductID, Quantity: line.Quantity}
	}
	reserved, err := s.guard.ReserveAll(ctx, lines)
	if err != nil {
		return nil, err
	}

	entity, err := domain.New(
		s.idGen.NewID(),
		input.BuyerName, input.ContactNumber, input.DeliveryAddress,
		items,
	)
	if err != nil {
		s.guard.ReleaseAll(ctx, reserved)
		return nil, err
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		s.guard.ReleaseAll(ctx, reserved)
		return nil, ctxErr
	}

	if createErr := s.orders.Create(ctx, entity); createErr != nil {
		s.guard.ReleaseAll(ctx, reserved)
		logger.Error("order_create_failed",
			observability.F("order_id", entity.ID),
			observability.F("error", createErr),
		)
		return nil, fmt.Errorf("%w: %w", ErrPersistence, createErr)
	}

	span.SetAttributes(attribute.String("order.id", entity.ID))
	s.publish(ctx, domain.NewPlacedEvent(entity))

	logger.Info("order_placed",
		observability.F("order_id", entity.ID),
		observability.F("lines", len(entity.Items)),
		observability.F("total", entity.Total().StringFixed(2)),
	)
	return entity, nil
}

// UpdateStatus moves an order to the requested status after the transition
// validator accepts it. Requesting the current status is an idempotent
// no-op. CANCELLED is routed through CancelOrder so the stock release runs.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, requested domain.Status) (_ *domain.Order, err error) {
	if requested == domain.StatusCancelled {
		return s.CancelOrder(ctx, orderID)
	}

	logger := logctx.FromOr(ctx, s.log).With(observability.F("use_case", ucUpdateStatus))

	ctx, span := s.tel.Tracer().Start(ctx, spanPrefix+"UpdateOrderStatus",
		attribute.String("use_case", ucUpdateStatus),
		attribute.String("order.id", orderID),
		attribute.String("order.requested_status", string(requested)),
	)
	done := s.instrument(ucUpdateStatus)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		done(err)
	}()

	// read-validate-write loop: the conditional write fails when a
	// concurrent update lands between the read and the write, and the next
	// iteration re-validates against the fresh status. Terminates because
	// statuses only move forward.
	for {
		current, err := s.orders.Get(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if err := domain.ValidateTransition(current.Status, requested); err != nil {
			return nil, err
		}
		if current.Status == requested {
			return current, nil
		}

		updated, err := s.orders.UpdateStatus(ctx, orderID, current.Status, requested)
		if errors.Is(err, domain.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
		}

		s.publish(ctx, domain.NewStatusChangedEvent(orderID, current.Status, requested))

		logger.Info("order_status_updated",
			observability.F("order_id", orderID),
			observability.F("from", string(current.Status)),
			observability.F("to", string(requested)),
		)
		return updated, nil
	}
}

// CancelOrder cancels a PENDING order and returns every line's stock to the
// catalog. Cancelling an already cancelled order is an idempotent no-op.
func (s *Service) CancelOrder(ctx context.Context, orderID string) (_ *domain.Order, err error) {
	logger := logctx.FromOr(ctx, s.log).With(observability.F("use_case", ucCancelOrder))

	ctx, span := s.tel.Tracer().Start(ctx, spanPrefix+"CancelOrder",
		attribute.String("use_case", ucCancelOrder),
		attribute.String("order.id", orderID),
	)
	done := s.instrument(ucCancelOrder)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		done(err)
	}()

	for {
		current, err := s.orders.Get(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if err := domain.ValidateTransition(current.Status, domain.StatusCancelled); err != nil {
			return nil, err
		}
		if current.Status == domain.StatusCancelled {
			return current, nil
		}

		updated, err := s.orders.UpdateStatus(ctx, orderID, current.Status, domain.StatusCancelled)
		if errors.Is(err, domain.ErrConflict) {
			// lost the race; re-read and decide against the fresh status
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
		}

		// only the caller whose conditional write flipped the status gets
		// here, so concurrent cancels cannot release the same lines twice
		reservations := make([]appinv.Reservation, len(current.Items))
		for i, item := range current.Items {
			reservations[i] = appinv.Reservation{ProductID: item.ProductID, Quantity: item.Quantity}
		}
		s.guard.ReleaseAll(ctx, reservations)

		s.publish(ctx, domain.NewCancelledEvent(orderID))

		logger.Info("order_cancelled",
			observability.F("order_id", orderID),
			observability.F("lines", len(current.Items)),
		)
		return updated, nil
	}
}

func (s *Service) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, domain.ErrNotFound
	}
	return s.orders.Get(ctx, orderID)
}

func (s *Service) List(ctx context.Context) ([]*domain.Order, error) {
	return s.orders.List(ctx)
}

// publish sends an event with a short timeout; delivery failures are logged
// and never fail the use case.
func (s *Service) publish(ctx context.Context, e domevent.Event) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, e); err != nil {
		s.log.Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err),
		)
	}
}

// instrument records the RED metrics for one use-case invocation; call the
// returned func once the outcome is known.
func (s *Service) instrument(useCase string) func(error) {
	start := time.Now()
	return func(err error) {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		s.reqCounter.Add(1,
			observability.L("use_case", useCase),
			observability.L("outcome", outcome),
		)
		s.durHistogram.Observe(time.Since(start).Seconds(),
			observability.L("use_case", useCase),
		)
	}
}
