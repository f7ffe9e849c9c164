package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"beverageHub/business/seed"
	"beverageHub/domain"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockUserService struct {
	UserService
	loginFn    func(email, password string) (string, domain.User, error)
	registerFn func(input domain.RegisterInput) (string, domain.User, error)
	updateFn   func(id uint, input domain.UpdateUserInput) (domain.User, error)
}

func (m *mockUserService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (string, domain.User, error) {
	return m.loginFn(email, password)
}

func (m *mockUserService) Register(ctx context.Context, input domain.RegisterInput, ipAddress, userAgent string) (string, domain.User, error) {
	return m.registerFn(input)
}

func (m *mockUserService) UpdateUser(ctx context.Context, id uint, input domain.UpdateUserInput) (domain.User, error) {
	return m.updateFn(id, input)
}

type mockTopUpService struct {
	topUpFn  func(userID uint, amount float64, phone string) (domain.TopUp, error)
	statusFn func(userID uint, checkoutRequestID string) (domain.PaymentStatus, error)
}

func (m *mockTopUpService) TopUp(ctx context.Context, userID uint, amount float64, phone string) (domain.TopUp, error) {
	return m.topUpFn(userID, amount, phone)
}

func (m *mockTopUpService) TopUpStatus(ctx context.Context, userID uint, checkoutRequestID string) (domain.PaymentStatus, error) {
	return m.statusFn(userID, checkoutRequestID)
}

func (m *mockTopUpService) ConfigStatus() domain.MpesaConfigStatus {
	return domain.MpesaConfigStatus{Environment: "sandbox"}
}

type mockCheckoutService struct {
	initiateFn func(userID, orderID uint, phone string) (domain.CheckoutPayment, error)
}

func (m *mockCheckoutService) InitiateCheckoutPayment(ctx context.Context, userID, orderID uint, phone string) (domain.CheckoutPayment, error) {
	return m.initiateFn(userID, orderID, phone)
}

func (m *mockCheckoutService) OrderPaymentStatus(ctx context.Context, userID, orderID uint) (domain.PaymentStatus, error) {
	return domain.PaymentStatus{Status: domain.PaymentPending}, nil
}

type mockOrdersService struct {
	OrdersService
	createFn func(input domain.CreateOrderInput) (domain.Order, *domain.CheckoutPayment, error)
}

func (m *mockOrdersService) CreateOrder(ctx context.Context, input domain.CreateOrderInput) (domain.Order, *domain.CheckoutPayment, error) {
	return m.createFn(input)
}

type mockProductService struct {
	ProductService
	listFn func(filter domain.ProductFilter) (domain.ProductPage, error)
}

func (m *mockProductService) GetAllProducts(ctx context.Context, filter domain.ProductFilter) (domain.ProductPage, error) {
	return m.listFn(filter)
}

type mockWebhookService struct {
	bodies [][]byte
}

func (m *mockWebhookService) HandleCallback(ctx context.Context, body []byte) domain.WebhookAck {
	m.bodies = append(m.bodies, body)
	return domain.WebhookAck{ResultCode: 0, ResultDesc: "Accepted"}
}

func (m *mockWebhookService) HandleTimeout(ctx context.Context, body []byte) domain.WebhookAck {
	return domain.WebhookAck{ResultCode: 0, ResultDesc: "Timeout received"}
}

// the concrete service is handed to NewSeedHandler by the server
var _ SeedService = (*seed.SeedService)(nil)

type mockSeedService struct {
	calls int
}

func (m *mockSeedService) SeedProducts(ctx context.Context) (seed.Result, error) {
	m.calls++
	return seed.Result{Created: 8}, nil
}

type staticStatus bool

func (s staticStatus) Connected() bool    { return bool(s) }
func (s staticStatus) IsConfigured() bool { return bool(s) }

// as simulates the auth middleware.
func as(userID uint, role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", userID)
			c.Set("role", role)
			return next(c)
		}
	}
}

func doJSON(e *echo.Echo, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{domain.NewError(domain.ErrValidation, "bad"), http.StatusBadRequest},
		{domain.NewError(domain.ErrInvalidCredentials, "Invalid credentials"), http.StatusBadRequest},
		{domain.NewError(domain.ErrConflict, "exists"), http.StatusBadRequest},
		{domain.NewError(domain.ErrInsufficientBalance, "low"), http.StatusBadRequest},
		{domain.NewError(domain.ErrGateway, "down"), http.StatusBadRequest},
		{domain.NewError(domain.ErrUnauthorized, "no"), http.StatusUnauthorized},
		{domain.NewError(domain.ErrForbidden, "no"), http.StatusForbidden},
		{domain.NewError(domain.ErrNotFound, "missing"), http.StatusNotFound},
		{domain.NewError(domain.ErrPaymentNotConfigured, "off"), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		status, _ := errorStatus(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
	}
}

func TestWriteErrorHandsUnknownErrorsToEcho(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	boom := errors.New("connection reset")
	assert.Same(t, boom, writeError(c, boom))
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := &mockUserService{loginFn: func(email, password string) (string, domain.User, error) {
		return "", domain.User{}, domain.NewError(domain.ErrInvalidCredentials, "Invalid credentials")
	}}
	e := echo.New()
	e.POST("/api/auth/login", NewUserHandler(svc).Login)

	rec, body := doJSON(e, http.MethodPost, "/api/auth/login", `{"email":"nobody@example.com","password":"Secret1"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Invalid credentials", body["message"])
}

func TestRegisterValidatesBeforeService(t *testing.T) {
	called := false
	svc := &mockUserService{registerFn: func(input domain.RegisterInput) (string, domain.User, error) {
		called = true
		return "token", domain.User{ID: 1, Name: input.Name}, nil
	}}
	e := echo.New()
	e.POST("/api/auth/register", NewUserHandler(svc).Register)

	rec, body := doJSON(e, http.MethodPost, "/api/auth/register", `{"name":"Jane","email":"jane@example.com","phone":"12345","password":"Secret1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["message"], "Kenyan phone")
	assert.False(t, called)

	rec, body = doJSON(e, http.MethodPost, "/api/auth/register", `{"name":"Jane","email":"jane@example.com","phone":"0712345678","password":"Secret1"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "token", body["token"])
	assert.True(t, called)
}

func TestUpdateUserRoleRequiresAdmin(t *testing.T) {
	svc := &mockUserService{updateFn: func(id uint, input domain.UpdateUserInput) (domain.User, error) {
		return domain.User{ID: id, Role: input.Role}, nil
	}}
	h := NewUserHandler(svc)

	e := echo.New()
	e.PUT("/customer/:id", h.UpdateUser, as(5, domain.RoleCustomer))
	e.PUT("/admin/:id", h.UpdateUser, as(1, domain.RoleAdmin))

	rec, _ := doJSON(e, http.MethodPut, "/customer/5", `{"role":"admin"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = doJSON(e, http.MethodPut, "/admin/5", `{"role":"admin"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTopUp(t *testing.T) {
	var calls int
	svc := &mockTopUpService{
		topUpFn: func(userID uint, amount float64, phone string) (domain.TopUp, error) {
			calls++
			return domain.TopUp{Amount: amount, CheckoutRequestID: "ws_CO_1"}, nil
		},
		statusFn: func(userID uint, checkoutRequestID string) (domain.PaymentStatus, error) {
			return domain.PaymentStatus{}, domain.NewError(domain.ErrNotFound, "Transaction not found")
		},
	}
	e := echo.New()
	h := NewWalletHandler(nil, svc)
	e.POST("/api/wallet/topup", h.TopUp, as(3, domain.RoleCustomer))
	e.GET("/api/wallet/payment-status/:checkoutRequestId", h.TopUpStatus, as(3, domain.RoleCustomer))

	for _, amount := range []string{"0", "70001", "-5"} {
		rec, _ := doJSON(e, http.MethodPost, "/api/wallet/topup", `{"amount":`+amount+`,"phoneNumber":"0712345678"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, amount)
	}
	assert.Zero(t, calls)

	rec, body := doJSON(e, http.MethodPost, "/api/wallet/topup", `{"amount":50000,"phoneNumber":"0712345678"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "ws_CO_1", body["topup"].(map[string]any)["checkout_request_id"])

	rec, _ = doJSON(e, http.MethodGet, "/api/wallet/payment-status/ws_CO_404", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckoutNotConfigured(t *testing.T) {
	svc := &mockCheckoutService{initiateFn: func(userID, orderID uint, phone string) (domain.CheckoutPayment, error) {
		return domain.CheckoutPayment{}, domain.NewError(domain.ErrPaymentNotConfigured, "M-Pesa payment is not configured")
	}}
	e := echo.New()
	e.POST("/api/checkout/mpesa-payment", NewCheckoutHandler(svc).InitiateMpesaPayment, as(3, domain.RoleCustomer))

	rec, body := doJSON(e, http.MethodPost, "/api/checkout/mpesa-payment", `{"orderId":9,"phoneNumber":"+254712345678"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "M-Pesa payment is not configured", body["message"])
}

func TestCreateOrderPassesLinesAndPayment(t *testing.T) {
	var got domain.CreateOrderInput
	svc := &mockOrdersService{createFn: func(input domain.CreateOrderInput) (domain.Order, *domain.CheckoutPayment, error) {
		got = input
		return domain.Order{ID: 4, OrderNumber: "ORD-0000000A"}, &domain.CheckoutPayment{OrderID: 4, CheckoutRequestID: "ws_CO_4"}, nil
	}}
	e := echo.New()
	e.POST("/api/orders", NewOrdersHandler(svc).CreateOrder, as(3, domain.RoleCustomer))

	payload := `{
		"items":[{"product_id":1,"variation_id":11,"quantity":2}],
		"delivery_address":{"street":"Moi Ave","city":"Nairobi","county":"Nairobi","phone_number":"0712345678"},
		"payment_method":"mpesa",
		"mpesa_number":"0712345678"
	}`
	rec, body := doJSON(e, http.MethodPost, "/api/orders", payload)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, uint(3), got.UserID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, uint(11), got.Items[0].VariationID)
	assert.Equal(t, "ws_CO_4", body["payment"].(map[string]any)["checkout_request_id"])

	rec, _ = doJSON(e, http.MethodPost, "/api/orders", `{"items":[],"payment_method":"cash"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAllProductsReadsQuery(t *testing.T) {
	var got domain.ProductFilter
	svc := &mockProductService{listFn: func(filter domain.ProductFilter) (domain.ProductPage, error) {
		got = filter
		return domain.ProductPage{Products: []domain.Product{}}, nil
	}}
	e := echo.New()
	e.GET("/api/products", NewProductHandler(svc).GetAllProducts)

	rec, body := doJSON(e, http.MethodGet, "/api/products?category=soda&search=cola&page=2&limit=5&sortBy=basePrice&sortOrder=asc", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ProductFilter{Category: "soda", Search: "cola", Page: 2, Limit: 5, SortBy: "basePrice", SortOrder: "asc"}, got)
	assert.Contains(t, body, "pagination")
}

func TestWebhookAlwaysAcknowledges(t *testing.T) {
	svc := &mockWebhookService{}
	h := NewMpesaWebhookHandler(svc)
	e := echo.New()
	e.POST("/api/mpesa/callback", h.HandleCallback)
	e.POST("/api/mpesa/timeout", h.HandleTimeout)

	for _, payload := range []string{`not json`, `{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_1","ResultCode":0}}}`} {
		rec, body := doJSON(e, http.MethodPost, "/api/mpesa/callback", payload)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 0, body["ResultCode"])
	}
	require.Len(t, svc.bodies, 2)
	assert.Equal(t, "not json", string(svc.bodies[0]))

	rec, body := doJSON(e, http.MethodPost, "/api/mpesa/timeout", `{}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Timeout received", body["ResultDesc"])
}

func TestHealth(t *testing.T) {
	e := echo.New()
	e.GET("/api/health", NewHealthHandler("test", staticStatus(true), staticStatus(false)).Health)

	rec, body := doJSON(e, http.MethodGet, "/api/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "connected", body["database"])
	assert.Equal(t, false, body["mpesa_configured"])
	assert.Equal(t, "test", body["environment"])
}

func TestSeedDisabledInProduction(t *testing.T) {
	svc := &mockSeedService{}
	e := echo.New()
	e.POST("/prod", NewSeedHandler(svc, true).SeedProducts)
	e.POST("/dev", NewSeedHandler(svc, false).SeedProducts)

	rec, _ := doJSON(e, http.MethodPost, "/prod", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, svc.calls)

	rec, body := doJSON(e, http.MethodPost, "/dev", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 8, body["created"])
}
