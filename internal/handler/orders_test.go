package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/homecook/storefront/internal/apperr"
	"github.com/homecook/storefront/internal/auth"
	"github.com/homecook/storefront/internal/enum"
	"github.com/homecook/storefront/internal/handler"
	"github.com/homecook/storefront/internal/lifecycle"
	"github.com/homecook/storefront/internal/middleware"
	"github.com/homecook/storefront/internal/order"
	"github.com/homecook/storefront/internal/service"
	"github.com/homecook/storefront/internal/view"
	"github.com/shopspring/decimal"
)

const testJWTSecret = "test-secret"

var (
	customerSubject = auth.Subject{UserID: "u-1", Email: "sam@example.com", Name: "Sam", Role: enum.RoleUser, Upstream: "id-token"}
	chefSubject     = auth.Subject{UserID: "chef-1", Email: "rahima@example.com", Name: "Rahima", Role: enum.RoleChef, Upstream: "id-token"}
	adminSubject    = auth.Subject{UserID: "a-1", Email: "root@example.com", Name: "Root", Role: enum.RoleAdmin, Upstream: "id-token"}
)

// --- Mock OrderServicer ---

type mockOrderService struct {
	placeOrderFn     func(ctx context.Context, a lifecycle.Actor, in order.PlaceOrderInput) (*order.Order, error)
	placementFn      func(ctx context.Context, a lifecycle.Actor, mealID string, in order.PlaceOrderInput) (*view.Placement, error)
	transitionFn     func(ctx context.Context, a lifecycle.Actor, orderID, action string) (*order.Order, error)
	orderFn          func(ctx context.Context, a lifecycle.Actor, orderID string) (*view.OrderCard, error)
	chefQueueFn      func(ctx context.Context, a lifecycle.Actor) ([]view.OrderCard, error)
	customerOrdersFn func(ctx context.Context, a lifecycle.Actor) ([]view.OrderCard, error)
	paymentsFn       func(ctx context.Context, a lifecycle.Actor) ([]order.Payment, error)
}

func (m *mockOrderService) PlaceOrder(ctx context.Context, a lifecycle.Actor, in order.PlaceOrderInput) (*order.Order, error) {
	return m.placeOrderFn(ctx, a, in)
}
func (m *mockOrderService) Placement(ctx context.Context, a lifecycle.Actor, mealID string, in order.PlaceOrderInput) (*view.Placement, error) {
	return m.placementFn(ctx, a, mealID, in)
}
func (m *mockOrderService) Transition(ctx context.Context, a lifecycle.Actor, orderID, action string) (*order.Order, error) {
	return m.transitionFn(ctx, a, orderID, action)
}
func (m *mockOrderService) Order(ctx context.Context, a lifecycle.Actor, orderID string) (*view.OrderCard, error) {
	return m.orderFn(ctx, a, orderID)
}
func (m *mockOrderService) ChefQueue(ctx context.Context, a lifecycle.Actor) ([]view.OrderCard, error) {
	return m.chefQueueFn(ctx, a)
}
func (m *mockOrderService) CustomerOrders(ctx context.Context, a lifecycle.Actor) ([]view.OrderCard, error) {
	return m.customerOrdersFn(ctx, a)
}
func (m *mockOrderService) Payments(ctx context.Context, a lifecycle.Actor) ([]order.Payment, error) {
	return m.paymentsFn(ctx, a)
}

// --- Helpers ---

func setupOrderRouter(svc handler.OrderServicer) *chi.Mux {
	h := handler.NewOrderHandler(svc)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/orders", h.RegisterRoutes)
	return r
}

func doAuthRequest(t *testing.T, router http.Handler, method, path string, body interface{}, sub *auth.Subject) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	if sub != nil {
		token, err := auth.GenerateToken(testJWTSecret, *sub)
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&m); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return m
}

func testOrder(status string) order.Order {
	return order.Order{
		ID: "o1", MealID: "m1", MealName: "Biryani", UnitPrice: decimal.NewFromInt(10), Quantity: 3,
		ChefID: "chef-1", CustomerEmail: customerSubject.Email, OrderStatus: status, PaymentStatus: enum.PaymentStatusUnpaid,
	}
}

// --- Tests ---

func TestOrders_RequiresSignIn(t *testing.T) {
	router := setupOrderRouter(&mockOrderService{})

	rr := doAuthRequest(t, router, "GET", "/orders/mine", nil, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
	body := decodeBody(t, rr)
	if body["from"] != "/orders/mine" {
		t.Errorf("from: got %v, want /orders/mine", body["from"])
	}
}

func TestOrders_Create(t *testing.T) {
	var gotActor lifecycle.Actor
	svc := &mockOrderService{
		placeOrderFn: func(ctx context.Context, a lifecycle.Actor, in order.PlaceOrderInput) (*order.Order, error) {
			gotActor = a
			o := testOrder(enum.OrderStatusPending)
			o.Quantity = in.Quantity
			return &o, nil
		},
	}
	router := setupOrderRouter(svc)

	rr := doAuthRequest(t, router, "POST", "/orders", map[string]interface{}{
		"mealId": "m1", "quantity": 3, "deliveryAddress": "12 Lake Rd",
	}, &customerSubject)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, http.StatusCreated, rr.Body.String())
	}
	if gotActor.Email != customerSubject.Email {
		t.Errorf("actor email: got %q, want %q", gotActor.Email, customerSubject.Email)
	}
	body := decodeBody(t, rr)
	if body["totalPrice"] != float64(30) {
		t.Errorf("totalPrice: got %v, want 30", body["totalPrice"])
	}
}

func TestOrders_CreateValidationError(t *testing.T) {
	svc := &mockOrderService{
		placeOrderFn: func(ctx context.Context, a lifecycle.Actor, in order.PlaceOrderInput) (*order.Order, error) {
			return nil, in.Validate()
		},
	}
	router := setupOrderRouter(svc)

	rr := doAuthRequest(t, router, "POST", "/orders", map[string]interface{}{
		"mealId": "m1", "quantity": 2, "deliveryAddress": "",
	}, &customerSubject)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	body := decodeBody(t, rr)
	if body["field"] != "deliveryAddress" {
		t.Errorf("field: got %v, want deliveryAddress", body["field"])
	}
}

func TestOrders_UpdateStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"accepted", nil, http.StatusOK},
		{"invalid transition", apperr.ErrInvalidTransition, http.StatusConflict},
		{"forbidden", apperr.ErrForbidden, http.StatusForbidden},
		{"not found", apperr.ErrNotFound, http.StatusNotFound},
		{"backend down", apperr.ErrNetwork, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockOrderService{
				transitionFn: func(ctx context.Context, a lifecycle.Actor, orderID, action string) (*order.Order, error) {
					if orderID != "o1" || action != enum.ActionAccept {
						t.Errorf("got order %q action %q", orderID, action)
					}
					if tt.err != nil {
						return nil, tt.err
					}
					o := testOrder(enum.OrderStatusAccepted)
					return &o, nil
				},
			}
			router := setupOrderRouter(svc)

			rr := doAuthRequest(t, router, "PATCH", "/orders/o1/status", map[string]string{"action": "accept"}, &chefSubject)
			if rr.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", rr.Code, tt.wantStatus)
			}
		})
	}
}

func TestOrders_UpdateStatusNetworkErrorIsRetryable(t *testing.T) {
	svc := &mockOrderService{
		transitionFn: func(ctx context.Context, a lifecycle.Actor, orderID, action string) (*order.Order, error) {
			return nil, apperr.ErrNetwork
		},
	}
	rr := doAuthRequest(t, setupOrderRouter(svc), "PATCH", "/orders/o1/status", map[string]string{"action": "deliver"}, &chefSubject)

	body := decodeBody(t, rr)
	if body["retryable"] != true {
		t.Errorf("retryable: got %v, want true", body["retryable"])
	}
}

func TestOrders_UpdateStatusStaleReturnsFreshOrder(t *testing.T) {
	svc := &mockOrderService{
		transitionFn: func(ctx context.Context, a lifecycle.Actor, orderID, action string) (*order.Order, error) {
			return nil, &service.StaleOrderError{Order: testOrder(enum.OrderStatusCancelled), Err: apperr.ErrConflict}
		},
	}
	rr := doAuthRequest(t, setupOrderRouter(svc), "PATCH", "/orders/o1/status", map[string]string{"action": "accept"}, &chefSubject)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
	var body struct {
		Order order.Order `json:"order"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Order.OrderStatus != enum.OrderStatusCancelled {
		t.Errorf("order status: got %s, want cancelled", body.Order.OrderStatus)
	}
}

func TestOrders_MineDegradesToEmptyList(t *testing.T) {
	svc := &mockOrderService{
		customerOrdersFn: func(ctx context.Context, a lifecycle.Actor) ([]view.OrderCard, error) {
			return nil, errors.Join(errors.New("list orders"), apperr.ErrNetwork)
		},
	}
	rr := doAuthRequest(t, setupOrderRouter(svc), "GET", "/orders/mine", nil, &customerSubject)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	body := decodeBody(t, rr)
	if body["empty"] != true || body["retryable"] != true {
		t.Errorf("body: got %v", body)
	}
}

func TestOrders_QueueForbiddenForCustomer(t *testing.T) {
	svc := &mockOrderService{
		chefQueueFn: func(ctx context.Context, a lifecycle.Actor) ([]view.OrderCard, error) {
			return nil, apperr.ErrForbidden
		},
	}
	rr := doAuthRequest(t, setupOrderRouter(svc), "GET", "/orders/queue", nil, &customerSubject)
	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestOrders_Preview(t *testing.T) {
	svc := &mockOrderService{
		placementFn: func(ctx context.Context, a lifecycle.Actor, mealID string, in order.PlaceOrderInput) (*view.Placement, error) {
			return &view.Placement{Quantity: in.Quantity, TotalPrice: decimal.NewFromInt(int64(10 * in.Quantity))}, nil
		},
	}
	rr := doAuthRequest(t, setupOrderRouter(svc), "POST", "/orders/preview", map[string]interface{}{
		"mealId": "m1", "quantity": 4, "deliveryAddress": "x",
	}, &customerSubject)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	body := decodeBody(t, rr)
	if body["totalPrice"] != float64(40) {
		t.Errorf("totalPrice: got %v, want 40", body["totalPrice"])
	}
}

func TestLifecycle_Public(t *testing.T) {
	h := handler.NewOrderHandler(&mockOrderService{})
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Optional(testJWTSecret))
		h.RegisterPublicRoutes(r)
	})

	rr := doAuthRequest(t, r, "GET", "/lifecycle", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	body := decodeBody(t, rr)
	transitions, _ := body["transitions"].([]interface{})
	if len(transitions) != 3 {
		t.Errorf("transitions: got %d, want 3", len(transitions))
	}
	terminal, _ := body["terminal"].([]interface{})
	if len(terminal) != 2 {
		t.Errorf("terminal: got %v, want [cancelled delivered]", terminal)
	}
}
