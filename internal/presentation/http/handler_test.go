package httppresentation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appcatalog "github.com/freshfields/bulkorder/internal/application/catalog"
	appinv "github.com/freshfields/bulkorder/internal/application/inventory"
	apporder "github.com/freshfields/bulkorder/internal/application/order"
	domcatalog "github.com/freshfields/bulkorder/internal/domain/catalog"
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

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()

	catalogRepo := memory.NewCatalogRepository()
	p, err := domcatalog.NewProduct("1", "Fresh Red Tomatoes", "vine-ripened", "Vegetables", "kg",
		decimal.RequireFromString("2.99"), 500)
	require.NoError(t, err)
	require.NoError(t, catalogRepo.Create(ctx, p))

	guard := appinv.NewGuard(catalogRepo, time.Second, nil)
	orderService := apporder.NewService(memory.NewOrderRepository(), catalogRepo, guard, &seqIDGen{}, nil, nil)
	catalogService := appcatalog.NewService(catalogRepo, &seqIDGen{}, nil)

	return NewHandler(orderService, catalogService, nil).Router()
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Body.String(), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

const placeOrderBody = `{
	"buyerName": "Alice Farmer",
	"contactNumber": "555-0101",
	"deliveryAddress": "1 Market St",
	"items": [{"productId": "1", "quantity": 10}]
}`

func TestHandler_PlaceOrder(t *testing.T) {
	router := newTestRouter(t)

	rec, body := doJSON(t, router, http.MethodPost, "/orders", placeOrderBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, "PENDING", body["status"])
	assert.Equal(t, "29.90", body["total"])
	items, ok := body["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "2.99", item["unitPrice"])
	assert.Equal(t, "29.90", item["lineTotal"])

	// stock was debited
	rec, _ = doJSON(t, router, http.MethodGet, "/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var products []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 1)
	assert.EqualValues(t, 490, products[0]["stock"])
}

func TestHandler_PlaceOrder_InsufficientStock(t *testing.T) {
	router := newTestRouter(t)

	rec, body := doJSON(t, router, http.MethodPost, "/orders", `{
		"buyerName": "Alice Farmer",
		"contactNumber": "555-0101",
		"deliveryAddress": "1 Market St",
		"items": [{"productId": "1", "quantity": 501}]
	}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, body["error"], "insufficient")
}

func TestHandler_PlaceOrder_BadInput(t *testing.T) {
	router := newTestRouter(t)

	// malformed JSON
	rec, _ := doJSON(t, router, http.MethodPost, "/orders", `{"buyerName":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// unknown field is rejected
	rec, _ = doJSON(t, router, http.MethodPost, "/orders", `{"buyer": "x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// missing buyer name
	rec, _ = doJSON(t, router, http.MethodPost, "/orders", `{
		"buyerName": "",
		"contactNumber": "555-0101",
		"deliveryAddress": "1 Market St",
		"items": [{"productId": "1", "quantity": 1}]
	}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// zero quantity
	rec, _ = doJSON(t, router, http.MethodPost, "/orders", `{
		"buyerName": "Alice Farmer",
		"contactNumber": "555-0101",
		"deliveryAddress": "1 Market St",
		"items": [{"productId": "1", "quantity": 0}]
	}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_PlaceOrder_UnknownProduct(t *testing.T) {
	router := newTestRouter(t)

	rec, _ := doJSON(t, router, http.MethodPost, "/orders", `{
		"buyerName": "Alice Farmer",
		"contactNumber": "555-0101",
		"deliveryAddress": "1 Market St",
		"items": [{"productId": "ghost", "quantity": 1}]
	}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_OrderLifecycle(t *testing.T) {
	router := newTestRouter(t)

	rec, body := doJSON(t, router, http.MethodPost, "/orders", placeOrderBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	orderID := body["id"].(string)

	rec, body = doJSON(t, router, http.MethodPatch, "/orders/"+orderID+"/status",
		`{"status": "IN_PROGRESS"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "IN_PROGRESS", body["status"])

	rec, body = doJSON(t, router, http.MethodPatch, "/orders/"+orderID+"/status",
		`{"status": "DELIVERED"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DELIVERED", body["status"])

	// delivered orders cannot move back
	rec, _ = doJSON(t, router, http.MethodPatch, "/orders/"+orderID+"/status",
		`{"status": "PENDING"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, router, http.MethodPatch, "/orders/"+orderID+"/status",
		`{"status": "SHIPPED"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_CancelOrder(t *testing.T) {
	router := newTestRouter(t)

	rec, body := doJSON(t, router, http.MethodPost, "/orders", placeOrderBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	orderID := body["id"].(string)

	rec, body = doJSON(t, router, http.MethodPost, "/orders/"+orderID+"/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CANCELLED", body["status"])

	// stock returned
	rec, _ = doJSON(t, router, http.MethodGet, "/products", "")
	var products []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	assert.EqualValues(t, 500, products[0]["stock"])
}

func TestHandler_GetOrder_NotFound(t *testing.T) {
	router := newTestRouter(t)

	rec, _ := doJSON(t, router, http.MethodGet, "/orders/ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_ProductCRUD(t *testing.T) {
	router := newTestRouter(t)

	rec, body := doJSON(t, router, http.MethodPost, "/products", `{
		"name": "Sweet Corn",
		"category": "Vegetables",
		"unit": "dozen",
		"price": "4.99",
		"stock": 80
	}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	productID := body["id"].(string)
	assert.Equal(t, "4.99", body["price"])

	rec, body = doJSON(t, router, http.MethodPatch, "/products/"+productID, `{"price": "5.49"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5.49", body["price"])
	assert.EqualValues(t, 80, body["stock"])

	// retire hides the product from the buyer view
	rec, _ = doJSON(t, router, http.MethodPatch, "/products/"+productID, `{"retired": true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, router, http.MethodGet, "/products", "")
	var products []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	for _, p := range products {
		assert.NotEqual(t, productID, p["id"])
	}

	rec, _ = doJSON(t, router, http.MethodGet, "/products?all=1", "")
	products = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	assert.Len(t, products, 2)
}

func TestHandler_Health(t *testing.T) {
	router := newTestRouter(t)

	rec, _ := doJSON(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
