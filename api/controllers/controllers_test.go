package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/api/middleware"
	cartsvc "github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/checkout"
	"github.com/angelmondragon/storefront/internal/orders"
	productsvc "github.com/angelmondragon/storefront/internal/products"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/pagination"
	"github.com/angelmondragon/storefront/pkg/types"
)

const testSession = "sess-1234567890abcdef"

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type stubCartService struct {
	view      *cartsvc.View
	err       error
	lastQty   int
	lastID    uuid.UUID
	lastCall  string
	sessionID string
}

func (s *stubCartService) record(call, sessionID string, id uuid.UUID, qty int) (*cartsvc.View, error) {
	s.lastCall, s.sessionID, s.lastID, s.lastQty = call, sessionID, id, qty
	return s.view, s.err
}

func (s *stubCartService) Get(_ context.Context, sessionID string) (*cartsvc.View, error) {
	return s.record("get", sessionID, uuid.Nil, 0)
}

func (s *stubCartService) Add(_ context.Context, sessionID string, id uuid.UUID, qty int) (*cartsvc.View, error) {
	return s.record("add", sessionID, id, qty)
}

func (s *stubCartService) UpdateQuantity(_ context.Context, sessionID string, id uuid.UUID, qty int) (*cartsvc.View, error) {
	return s.record("update", sessionID, id, qty)
}

func (s *stubCartService) Remove(_ context.Context, sessionID string, id uuid.UUID) (*cartsvc.View, error) {
	return s.record("remove", sessionID, id, 0)
}

func (s *stubCartService) Clear(_ context.Context, sessionID string) (*cartsvc.View, error) {
	return s.record("clear", sessionID, uuid.Nil, 0)
}

type stubProductService struct {
	lastFilter productsvc.ListFilter
	product    *productsvc.ProductDTO
	err        error
}

func (s *stubProductService) ListCategories(context.Context) ([]productsvc.CategoryDTO, error) {
	return []productsvc.CategoryDTO{{ID: uuid.New(), Slug: "tea", Name: "Tea"}}, nil
}

func (s *stubProductService) ListProducts(_ context.Context, filter productsvc.ListFilter) (*pagination.Page[productsvc.ProductDTO], error) {
	s.lastFilter = filter
	return &pagination.Page[productsvc.ProductDTO]{Items: []productsvc.ProductDTO{}}, nil
}

func (s *stubProductService) GetProduct(context.Context, uuid.UUID) (*productsvc.ProductDTO, error) {
	return s.product, s.err
}

type stubSubmitter struct {
	result  *checkout.SubmitResult
	err     error
	payment checkout.PaymentInput
	userID  *uuid.UUID
}

func (s *stubSubmitter) Submit(_ context.Context, _ string, userID *uuid.UUID, payment checkout.PaymentInput) (*checkout.SubmitResult, error) {
	s.payment, s.userID = payment, userID
	return s.result, s.err
}

type stubFlow struct {
	details checkout.ShippingDetails
	err     error
}

func (s *stubFlow) Start(context.Context, string, *uuid.UUID) (*checkout.StartResult, error) {
	return &checkout.StartResult{State: enums.CheckoutStateAwaitingShipping}, s.err
}

func (s *stubFlow) SubmitShipping(_ context.Context, _ string, _ *uuid.UUID, details checkout.ShippingDetails) (*checkout.Attempt, error) {
	s.details = details
	if s.err != nil {
		return nil, s.err
	}
	return &checkout.Attempt{State: enums.CheckoutStateAwaitingPayment, Shipping: &details}, nil
}

type stubOrders struct {
	lastUser uuid.UUID
	order    *orders.OrderDTO
	err      error
}

func (s *stubOrders) ListOrders(_ context.Context, userID uuid.UUID, _ pagination.Params) (*pagination.Page[orders.OrderSummary], error) {
	s.lastUser = userID
	return &pagination.Page[orders.OrderSummary]{Items: []orders.OrderSummary{}}, nil
}

func (s *stubOrders) GetOrder(_ context.Context, userID, _ uuid.UUID) (*orders.OrderDTO, error) {
	s.lastUser = userID
	return s.order, s.err
}

func withSession(req *http.Request) *http.Request {
	return req.WithContext(middleware.WithSessionID(req.Context(), testSession))
}

func decodeEnvelope(t *testing.T, resp *httptest.ResponseRecorder, data any) []types.Notification {
	t.Helper()
	envelope := struct {
		Data          any                  `json:"data"`
		Notifications []types.Notification `json:"notifications"`
	}{Data: data}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope.Notifications
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return envelope.Error.Code
}

func TestHealthReadyReportsDownDependency(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	up := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	resp := httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"db": up, "redis": down})(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"db": up, "redis": up})(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get("X-Storefront-Env") != "dev" {
		t.Fatal("expected env header")
	}
}

func TestCartAddItemStatusAndNotifications(t *testing.T) {
	productID := uuid.New()
	view := &cartsvc.View{
		Lines: []cartsvc.LineView{{
			Product:  cartsvc.Product{ID: productID, Name: "Mug", Price: decimal.NewFromInt(100), Stock: 5},
			Quantity: 1,
		}},
		TotalItems:    1,
		TotalPrice:    decimal.NewFromInt(100),
		Notifications: []types.Notification{{Level: enums.NotificationSuccess, Message: "Mug added to cart"}},
	}
	svc := &stubCartService{view: view}
	handler := CartAddItem(svc, nil)

	body := `{"product_id":"` + productID.String() + `"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for a new line got %d", resp.Code)
	}
	if svc.lastQty != 0 || svc.lastID != productID || svc.sessionID != testSession {
		t.Fatalf("unexpected service call %+v", svc)
	}
	var got cartsvc.View
	notes := decodeEnvelope(t, resp, &got)
	if len(notes) != 1 || notes[0].Message != "Mug added to cart" {
		t.Fatalf("unexpected notifications %+v", notes)
	}
	if got.TotalItems != 1 {
		t.Fatalf("unexpected cart %+v", got)
	}

	view.Lines[0].Quantity = 3
	body = `{"product_id":"` + productID.String() + `","quantity":2}`
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for an increased line got %d", resp.Code)
	}
}

func TestCartAddItemRejectsBadPayload(t *testing.T) {
	handler := CartAddItem(&stubCartService{}, nil)

	cases := map[string]string{
		"missing product":  `{"quantity":1}`,
		"negative":         `{"product_id":"` + uuid.NewString() + `","quantity":-2}`,
		"unknown field":    `{"product_id":"` + uuid.NewString() + `","price":1}`,
		"malformed":        `{"product_id":`,
		"not a uuid value": `{"product_id":"mug"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))))
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d", resp.Code)
			}
		})
	}
}

func TestCartUpdateItemSurfacesStockRejection(t *testing.T) {
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeStockLimitExceeded, "cannot have 6 of Mug in your cart, only 5 in stock")}
	r := chi.NewRouter()
	r.Patch("/api/v1/cart/items/{productId}", CartUpdateItem(svc, nil))

	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/cart/items/"+uuid.NewString(), strings.NewReader(`{"quantity":6}`))
	r.ServeHTTP(resp, withSession(req))

	if resp.Code != pkgerrors.MetadataFor(pkgerrors.CodeStockLimitExceeded).HTTPStatus {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if code := errorCode(t, resp); code != string(pkgerrors.CodeStockLimitExceeded) {
		t.Fatalf("unexpected code %s", code)
	}
	if svc.lastQty != 6 || svc.lastCall != "update" {
		t.Fatalf("unexpected service call %+v", svc)
	}
}

func TestCartRemoveItemParsesPath(t *testing.T) {
	svc := &stubCartService{view: &cartsvc.View{Lines: []cartsvc.LineView{}}}
	r := chi.NewRouter()
	r.Delete("/api/v1/cart/items/{productId}", CartRemoveItem(svc, nil))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, withSession(httptest.NewRequest(http.MethodDelete, "/api/v1/cart/items/not-a-uuid", nil)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}

	id := uuid.New()
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, withSession(httptest.NewRequest(http.MethodDelete, "/api/v1/cart/items/"+id.String(), nil)))
	if resp.Code != http.StatusOK || svc.lastID != id {
		t.Fatalf("expected removal of %s, got %d %+v", id, resp.Code, svc)
	}
}

func TestCartRequiresSession(t *testing.T) {
	resp := httptest.NewRecorder()
	CartGet(&stubCartService{}, nil)(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestListProductsBuildsFilter(t *testing.T) {
	svc := &stubProductService{}
	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?category=tea&q=%20green%20&limit=10&cursor=abc", nil)
	ListProducts(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastFilter.CategorySlug != "tea" || svc.lastFilter.Query != "green" {
		t.Fatalf("unexpected filter %+v", svc.lastFilter)
	}
	if svc.lastFilter.Pagination.Limit != 10 || svc.lastFilter.Pagination.Cursor != "abc" {
		t.Fatalf("unexpected pagination %+v", svc.lastFilter.Pagination)
	}

	resp = httptest.NewRecorder()
	ListProducts(svc, nil)(resp, httptest.NewRequest(http.MethodGet, "/api/v1/products?limit=500", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized limit got %d", resp.Code)
	}
}

func TestGetProductNotFound(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/v1/products/{productId}", GetProduct(&stubProductService{err: pkgerrors.New(pkgerrors.CodeNotFound, "product not found")}, nil))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/products/"+uuid.NewString(), nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestCheckoutShippingPassesDetails(t *testing.T) {
	flow := &stubFlow{}
	body := `{"name":"Asha Rao","email":"asha@example.com","phone":"9876543210","address":"12 MG Road","city":"Pune","postal_code":"411001","save_to_profile":true}`
	resp := httptest.NewRecorder()
	CheckoutShipping(flow, nil)(resp, withSession(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/shipping", strings.NewReader(body))))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if flow.details.City != "Pune" || !flow.details.SaveToProfile {
		t.Fatalf("unexpected details %+v", flow.details)
	}
	var got shippingResponse
	decodeEnvelope(t, resp, &got)
	if got.State != enums.CheckoutStateAwaitingPayment {
		t.Fatalf("unexpected state %s", got.State)
	}
}

func TestCheckoutStartEmptyCartRedirects(t *testing.T) {
	flow := &stubFlow{err: pkgerrors.New(pkgerrors.CodeCartEmpty, "your cart is empty").WithRedirect("/products")}
	resp := httptest.NewRecorder()
	CheckoutStart(flow, nil)(resp, withSession(httptest.NewRequest(http.MethodGet, "/api/v1/checkout", nil)))

	if resp.Code != pkgerrors.MetadataFor(pkgerrors.CodeCartEmpty).HTTPStatus {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	details, _ := envelope.Error.Details.(map[string]any)
	if details["redirect"] != "/products" {
		t.Fatalf("expected redirect detail, got %+v", envelope.Error.Details)
	}
}

func TestCheckoutPaymentStatus(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	submitter := &stubSubmitter{result: &checkout.SubmitResult{OrderID: &orderID, Redirect: "/orders/" + orderID.String() + "/confirmation"}}

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/payment", strings.NewReader(`{"method":"upi","upi":{"vpa":"asha@okbank"}}`)))
	req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	resp := httptest.NewRecorder()
	CheckoutPayment(submitter, nil)(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if submitter.userID == nil || *submitter.userID != userID {
		t.Fatalf("expected user forwarded, got %v", submitter.userID)
	}
	if submitter.payment.Method != enums.PaymentMethodUPI || submitter.payment.UPI == nil {
		t.Fatalf("unexpected payment %+v", submitter.payment)
	}

	submitter.result = &checkout.SubmitResult{Redirect: "/products", Guest: true}
	resp = httptest.NewRecorder()
	CheckoutPayment(submitter, nil)(resp, withSession(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/payment", strings.NewReader(`{"method":"cod"}`))))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for a guest submission got %d", resp.Code)
	}
}

func TestCheckoutPaymentHidesSubmissionCause(t *testing.T) {
	cause := errors.New("pq: connection reset by peer")
	submitter := &stubSubmitter{err: pkgerrors.Wrap(pkgerrors.CodeOrderSubmission, cause, "order could not be placed")}
	resp := httptest.NewRecorder()
	CheckoutPayment(submitter, nil)(resp, withSession(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/payment", strings.NewReader(`{"method":"cod"}`))))

	if resp.Code != pkgerrors.MetadataFor(pkgerrors.CodeOrderSubmission).HTTPStatus {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), "connection reset") {
		t.Fatalf("cause leaked: %s", resp.Body.String())
	}
}

func TestOrdersRequireUser(t *testing.T) {
	resp := httptest.NewRecorder()
	OrdersList(&stubOrders{}, nil)(resp, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestOrderDetailForUser(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	svc := &stubOrders{order: &orders.OrderDTO{ID: orderID, Status: enums.OrderStatusPending}}
	r := chi.NewRouter()
	r.Get("/api/v1/orders/{orderId}", OrderDetail(svc, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastUser != userID {
		t.Fatalf("expected lookup scoped to user, got %s", svc.lastUser)
	}
	var got orders.OrderDTO
	decodeEnvelope(t, resp, &got)
	if got.ID != orderID {
		t.Fatalf("unexpected order %s", got.ID)
	}
}
