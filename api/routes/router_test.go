package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/internal/users"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubSessions struct{}

func (stubSessions) HasSession(context.Context, string) (bool, error) { return true, nil }

type memoryIdempotency struct{ data map[string]string }

func (m *memoryIdempotency) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", goredis.Nil
}

func (m *memoryIdempotency) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryIdempotency) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *memoryIdempotency) IdempotencyKey(scope, id string) string { return scope + "|" + id }

func (m *memoryIdempotency) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

type allowAll struct{}

func (allowAll) FixedWindowAllow(context.Context, string, int64, time.Duration) (bool, int64, error) {
	return true, 1, nil
}

type stubCatalog struct{ catalog.Service }

func (stubCatalog) ListProducts(_ context.Context, input catalog.ListProductsInput) (*catalog.ProductListResult, error) {
	return &catalog.ProductListResult{
		Items:      []catalog.ProductDTO{},
		Pagination: types.NewPageMeta(input.Page.Number, input.Page.Limit, 0),
	}, nil
}

type stubOrders struct {
	orders.Service
	submits int
}

func (s *stubOrders) SubmitOrder(_ context.Context, input orders.SubmitOrderInput) (*orders.OrderConfirmation, error) {
	s.submits++
	return &orders.OrderConfirmation{
		OrderID:       uuid.New(),
		OrderNumber:   "ORD-20260314-000001",
		TotalAmount:   185000,
		PaymentMethod: input.PaymentMethod.Method,
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusPending,
	}, nil
}

func (s *stubOrders) ListOrders(_ context.Context, _ orders.AdminOrderFilters, page pagination.Page) (*orders.AdminOrderList, error) {
	return &orders.AdminOrderList{Orders: []orders.OrderDTO{}, Pagination: types.NewPageMeta(page.Number, page.Limit, 0)}, nil
}

type stubPayments struct{}

func (stubPayments) HandleNotification(_ context.Context, n payments.Notification) (*payments.Result, error) {
	return &payments.Result{OrderNumber: n.OrderID, PaymentStatus: enums.PaymentStatusPaid, Outcome: payments.OutcomeProcessed}, nil
}

type stubUsers struct{ users.Service }

func (stubUsers) List(_ context.Context, page pagination.Page) (*users.UserList, error) {
	return &users.UserList{}, nil
}

type stubAuth struct{ auth.Service }

var testCfg = &config.Config{
	App:       config.AppConfig{Env: "dev"},
	JWT:       config.JWTConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 60},
	RateLimit: config.RateLimitConfig{Window: time.Minute, OrderLimit: 10, WebhookLimit: 100, LoginWindow: time.Minute, LoginLimit: 5},
}

func newTestRouter(t *testing.T, ordersSvc *stubOrders, ready map[string]controllers.Pinger) http.Handler {
	t.Helper()
	return NewRouter(Dependencies{
		Config:      testCfg,
		Logger:      logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Catalog:     stubCatalog{},
		Orders:      ordersSvc,
		Payments:    stubPayments{},
		Users:       stubUsers{},
		Auth:        stubAuth{},
		Sessions:    stubSessions{},
		Idempotency: &memoryIdempotency{data: map[string]string{}},
		Limiter:     allowAll{},
		Ready:       ready,
	})
}

func adminToken(t *testing.T, role enums.UserRole) string {
	t.Helper()
	token, _, err := pkgAuth.MintAccessToken(testCfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

const orderBody = `{"customerInfo":{"name":"Dewi","email":"dewi@example.com","phone":"0811"},` +
	`"shippingAddress":{"name":"Dewi","phone":"0811","address":"Jl. Merdeka 1","city":"Bandung","province":"Jawa Barat","postalCode":"40111"},` +
	`"paymentMethod":{"method":"BANK_TRANSFER"},"items":[{"productId":"6f1c2a52-43a5-4c1e-9d0f-1b2c3d4e5f60","quantity":1}]}`

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t, &stubOrders{}, map[string]controllers.Pinger{"db": stubPinger{}, "redis": stubPinger{}})

	for _, path := range []string{"/health/live", "/health/ready"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestHealthReadyReportsFailedDependency(t *testing.T) {
	router := newTestRouter(t, &stubOrders{}, map[string]controllers.Pinger{"db": stubPinger{}, "redis": stubPinger{err: errors.New("down")}})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"redis":"down"`) {
		t.Fatalf("expected redis check in body, got %s", resp.Body.String())
	}
}

func TestSubmitOrderRequiresIdempotencyKey(t *testing.T) {
	svc := &stubOrders{}
	router := newTestRouter(t, svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(orderBody))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.submits != 0 {
		t.Fatalf("order service must not be called without a key")
	}
}

func TestSubmitOrderReplaysWithSameKey(t *testing.T) {
	svc := &stubOrders{}
	router := newTestRouter(t, svc, nil)

	var bodies []string
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(orderBody))
		req.Header.Set("Idempotency-Key", "checkout-1")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201 got %d: %s", i, resp.Code, resp.Body.String())
		}
		bodies = append(bodies, resp.Body.String())
	}

	if svc.submits != 1 {
		t.Fatalf("expected a single submission, got %d", svc.submits)
	}
	if bodies[0] != bodies[1] {
		t.Fatalf("replayed body differs:\n%s\n%s", bodies[0], bodies[1])
	}

	var envelope struct {
		Success bool                     `json:"success"`
		Data    orders.OrderConfirmation `json:"data"`
	}
	if err := json.Unmarshal([]byte(bodies[0]), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !envelope.Success || envelope.Data.OrderNumber != "ORD-20260314-000001" {
		t.Fatalf("unexpected confirmation %+v", envelope)
	}
}

func TestSubmitOrderRejectsUnknownFields(t *testing.T) {
	svc := &stubOrders{}
	router := newTestRouter(t, svc, nil)

	body := strings.Replace(orderBody, `"items"`, `"coupon":"FREE","items"`, 1)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req.Header.Set("Idempotency-Key", "checkout-unknown")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestProductListQueryValidation(t *testing.T) {
	router := newTestRouter(t, &stubOrders{}, nil)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/products?limit=500", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized limit, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/products?sort=price_asc&minPrice=1000&inStock=true", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestPaymentWebhookAcceptsUnknownFields(t *testing.T) {
	router := newTestRouter(t, &stubOrders{}, nil)

	body := `{"order_id":"ORD-20260314-000001","transaction_id":"tx-1","transaction_status":"settlement","status_code":"200","gross_amount":"185000.00","signature_key":"sig","currency":"IDR"}`
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", strings.NewReader(body)))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), `"outcome":"processed"`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t, &stubOrders{}, nil)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders?status=pending", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, enums.UserRoleStaff))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for staff order list got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestUserManagementRequiresAdminRole(t *testing.T) {
	router := newTestRouter(t, &stubOrders{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/users", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, enums.UserRoleStaff))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/v1/users", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}
