package httppresentation

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	appcatalog "github.com/freshfields/bulkorder/internal/application/catalog"
	appinv "github.com/freshfields/bulkorder/internal/application/inventory"
	apporder "github.com/freshfields/bulkorder/internal/application/order"
	domcatalog "github.com/freshfields/bulkorder/internal/domain/catalog"
	domorder "github.com/freshfields/bulkorder/internal/domain/order"
	"github.com/freshfields/bulkorder/internal/observability"
	"github.com/shopspring/decimal"
)

const componentHTTPHandler = "http_server"

// Handler exposes the order and catalog services over REST. It maps typed
// domain errors onto transport status codes; nothing below it knows about
// HTTP.
type Handler struct {
	orders  *apporder.Service
	catalog *appcatalog.Service
	log     observability.Logger
}

func NewHandler(orders *apporder.Service, catalog *appcatalog.Service, logger observability.Logger) *Handler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Handler{
		orders:  orders,
		catalog: catalog,
		log:     logger.With(observability.F("component", componentHTTPHandler)),
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	handle := func(pattern string, fn http.HandlerFunc) {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			markRoute(r)
			fn(w, r)
		})
	}

	handle("GET /health", h.handleHealth)

	handle("GET /products", h.handleListProducts)
	handle("POST /products", h.handleCreateProduct)
	handle("PATCH /products/{id}", h.handleUpdateProduct)

	handle("POST /orders", h.handlePlaceOrder)
	handle("GET /orders", h.handleListOrders)
	handle("GET /orders/{id}", h.handleGetOrder)
	handle("PATCH /orders/{id}/status", h.handleUpdateOrderStatus)
	handle("POST /orders/{id}/cancel", h.handleCancelOrder)

	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

/* ---------- products ---------- */

type productResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Unit        string `json:"unit"`
	Price       string `json:"price"`
	Stock       int    `json:"stock"`
	Retired     bool   `json:"retired"`
}

func toProductResponse(p *domcatalog.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Unit:        p.Unit,
		Price:       p.Price.StringFixed(2),
		Stock:       p.Stock,
		Retired:     p.Retired,
	}
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	includeRetired := r.URL.Query().Get("all") == "1"
	products, err := h.catalog.List(r.Context(), includeRetired)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

type createProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Unit        string          `json:"unit"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	product, err := h.catalog.Create(r.Context(), appcatalog.CreateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Unit:        req.Unit,
		Price:       req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(product))
}

type updateProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	Unit        *string          `json:"unit"`
	Price       *decimal.Decimal `json:"price"`
	Retired     *bool            `json:"retired"`
}

func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req updateProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	product, err := h.catalog.Update(r.Context(), r.PathValue("id"), domcatalog.Update{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Unit:        req.Unit,
		Price:       req.Price,
		Retired:     req.Retired,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

/* ---------- orders ---------- */

type orderItemResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	LineTotal string `json:"lineTotal"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	BuyerName       string              `json:"buyerName"`
	ContactNumber   string              `json:"contactNumber"`
	DeliveryAddress string              `json:"deliveryAddress"`
	Status          domorder.Status     `json:"status"`
	Items           []orderItemResponse `json:"items"`
	Total           string              `json:"total"`
	CreatedAt       time.Time           `json:"createdAt"`
}

func toOrderResponse(o *domorder.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			LineTotal: item.LineTotal().StringFixed(2),
		})
	}
	return orderResponse{
		ID:              o.ID,
		BuyerName:       o.BuyerName,
		ContactNumber:   o.ContactNumber,
		DeliveryAddress: o.DeliveryAddress,
		Status:          o.Status,
		Items:           items,
		Total:           o.Total().StringFixed(2),
		CreatedAt:       o.CreatedAt,
	}
}

type placeOrderRequest struct {
	BuyerName       string `json:"buyerName"`
	ContactNumber   string `json:"contactNumber"`
	DeliveryAddress string `json:"deliveryAddress"`
	Items           []struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
}

func (h *Handler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	lines := make([]apporder.LineInput, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, apporder.LineInput{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	order, err := h.orders.PlaceOrder(r.Context(), apporder.PlaceOrderInput{
		BuyerName:       req.BuyerName,
		ContactNumber:   req.ContactNumber,
		DeliveryAddress: req.DeliveryAddress,
		Lines:           lines,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

type updateStatusRequest struct {
	Status domorder.Status `json:"status"`
}

func (h *Handler) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.CancelOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

/* ---------- plumbing ---------- */

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domcatalog.ErrNotFound),
		errors.Is(err, domorder.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domcatalog.ErrInsufficientStock),
		errors.Is(err, domcatalog.ErrConflict),
		errors.Is(err, domorder.ErrConflict):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, domorder.ErrNoItems),
		errors.Is(err, domorder.ErrInvalidQuantity),
		errors.Is(err, domorder.ErrBuyerNameRequired),
		errors.Is(err, domorder.ErrContactRequired),
		errors.Is(err, domorder.ErrAddressRequired),
		errors.Is(err, domorder.ErrUnknownStatus),
		errors.Is(err, domorder.ErrInvalidTransition),
		errors.Is(err, domcatalog.ErrNameRequired),
		errors.Is(err, domcatalog.ErrInvalidPrice),
		errors.Is(err, domcatalog.ErrInvalidStock),
		errors.Is(err, appinv.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, appinv.ErrTimeout):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		h.log.Error("request_failed", observability.F("error", err))
		writeError(w, http.StatusInternalServerError, err)
	}
}
