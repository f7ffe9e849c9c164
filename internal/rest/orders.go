package rest

import (
	"context"
	"net/http"
	"time"

	"beverageHub/domain"
	"beverageHub/pkg/logger"
	jsonres "beverageHub/pkg/response"
	"beverageHub/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	OrdersHandler struct {
		validate       *validator.Validate
		ordersService  OrdersService
		timeout        time.Duration
		paymentTimeout time.Duration
	}

	OrdersService interface {
		CreateOrder(ctx context.Context, input domain.CreateOrderInput) (domain.Order, *domain.CheckoutPayment, error)
		GetOrders(ctx context.Context, userID uint, page, limit int) (domain.OrderPage, error)
		GetOrder(ctx context.Context, userID uint, role string, orderID uint) (domain.Order, error)
		UpdateOrderStatus(ctx context.Context, orderID uint, status string) (domain.Order, error)
	}

	CreateOrderRequest struct {
		Items           []domain.OrderLine     `json:"items" validate:"required,min=1,dive"`
		DeliveryAddress domain.DeliveryAddress `json:"delivery_address"`
		PaymentMethod   string                 `json:"payment_method" validate:"required,oneof=mpesa card wallet"`
		MpesaNumber     string                 `json:"mpesa_number" validate:"omitempty,ke_phone"`
		Notes           string                 `json:"notes" validate:"max=500"`
	}

	UpdateOrderStatusRequest struct {
		Status string `json:"status" validate:"required,oneof=pending confirmed preparing out_for_delivery delivered cancelled"`
	}
)

func NewOrdersHandler(ordersService OrdersService) *OrdersHandler {
	return &OrdersHandler{
		validate:       utils.NewValidator(),
		ordersService:  ordersService,
		timeout:        10 * time.Second,
		paymentTimeout: paymentTimeout,
	}
}

func (h *OrdersHandler) CreateOrder(c echo.Context) error {
	userID, _, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	var request CreateOrderRequest
	if err := c.Bind(&request); err != nil {
		logger.Error("Invalid request body", err)
		return badRequest(c, "Invalid request body")
	}

	if err := h.validate.Struct(&request); err != nil {
		logger.Warn("Failed order validation", err)
		return badRequest(c, validationMessage(err))
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if request.PaymentMethod == domain.PaymentMethodMpesa && request.MpesaNumber != "" {
		// the STK push starts inside CreateOrder
		ctx, cancel = paymentContext(c, h.paymentTimeout)
	} else {
		ctx, cancel = context.WithTimeout(c.Request().Context(), h.timeout)
	}
	defer cancel()

	order, checkout, err := h.ordersService.CreateOrder(ctx, domain.CreateOrderInput{
		UserID:          userID,
		Items:           request.Items,
		DeliveryAddress: request.DeliveryAddress,
		PaymentMethod:   request.PaymentMethod,
		MpesaNumber:     request.MpesaNumber,
		Notes:           request.Notes,
	})
	if err != nil {
		logger.Error("Failed to create order", err)
		return writeError(c, err)
	}

	data := map[string]interface{}{"order": order}
	if checkout != nil {
		data["payment"] = checkout
	}

	return c.JSON(http.StatusCreated, jsonres.Success("Order created successfully", data))
}

func (h *OrdersHandler) GetOrders(c echo.Context) error {
	userID, _, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	page, err := h.ordersService.GetOrders(ctx, userID, queryInt(c, "page", 1), queryInt(c, "limit", 10))
	if err != nil {
		logger.Error("Failed to get orders", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, jsonres.Success("Orders retrieved successfully", map[string]interface{}{
		"orders":     page.Orders,
		"pagination": page.Pagination,
	}))
}

func (h *OrdersHandler) GetOrder(c echo.Context) error {
	userID, role, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	orderID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid order ID")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	order, err := h.ordersService.GetOrder(ctx, userID, role, orderID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, jsonres.Success("Order retrieved successfully", map[string]interface{}{
		"order": order,
	}))
}

func (h *OrdersHandler) UpdateOrderStatus(c echo.Context) error {
	orderID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid order ID")
	}

	var request UpdateOrderStatusRequest
	if err := c.Bind(&request); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validate.Struct(&request); err != nil {
		return badRequest(c, validationMessage(err))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	order, err := h.ordersService.UpdateOrderStatus(ctx, orderID, request.Status)
	if err != nil {
		logger.Error("Failed to update order status", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, jsonres.Success("Order status updated", map[string]interface{}{
		"order": order,
	}))
}
