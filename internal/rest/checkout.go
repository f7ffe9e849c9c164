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
	CheckoutHandler struct {
		validate        *validator.Validate
		checkoutService CheckoutService
		timeout         time.Duration
		paymentTimeout  time.Duration
	}

	CheckoutService interface {
		InitiateCheckoutPayment(ctx context.Context, userID, orderID uint, phone string) (domain.CheckoutPayment, error)
		OrderPaymentStatus(ctx context.Context, userID, orderID uint) (domain.PaymentStatus, error)
	}

	CheckoutRequest struct {
		OrderID     uint   `json:"orderId" validate:"required"`
		PhoneNumber string `json:"phoneNumber" validate:"required,ke_phone"`
	}
)

func NewCheckoutHandler(checkoutService CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		validate:        utils.NewValidator(),
		checkoutService: checkoutService,
		timeout:         10 * time.Second,
		paymentTimeout:  paymentTimeout,
	}
}

func (h *CheckoutHandler) InitiateMpesaPayment(c echo.Context) error {
	userID, _, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	var request CheckoutRequest
	if err := c.Bind(&request); err != nil {
		logger.Error("Invalid request body", err)
		return badRequest(c, "Invalid request body")
	}

	if err := h.validate.Struct(&request); err != nil {
		return badRequest(c, validationMessage(err))
	}

	ctx, cancel := paymentContext(c, h.paymentTimeout)
	defer cancel()

	payment, err := h.checkoutService.InitiateCheckoutPayment(ctx, userID, request.OrderID, request.PhoneNumber)
	if err != nil {
		logger.Error("Failed to initiate checkout payment", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, jsonres.Success("STK Push sent. Complete the payment on your phone.", map[string]interface{}{
		"payment": payment,
	}))
}

func (h *CheckoutHandler) OrderPaymentStatus(c echo.Context) error {
	userID, _, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	orderID, ok := paramID(c, "orderId")
	if !ok {
		return badRequest(c, "Invalid order ID")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	status, err := h.checkoutService.OrderPaymentStatus(ctx, userID, orderID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, jsonres.Success("Payment status retrieved", map[string]interface{}{
		"payment": status,
	}))
}
