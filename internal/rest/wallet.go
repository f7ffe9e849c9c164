package rest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"beverageHub/domain"
	"beverageHub/pkg/logger"
	jsonres "beverageHub/pkg/response"
	"beverageHub/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	WalletHandler struct {
		validate       *validator.Validate
		walletService  WalletService
		paymentService TopUpService
		timeout        time.Duration
		paymentTimeout time.Duration
	}

	WalletService interface {
		GetWallet(ctx context.Context, userID uint) (domain.Wallet, error)
		GetTransactions(ctx context.Context, userID uint, page, limit int) (domain.TransactionPage, error)
	}

	TopUpService interface {
		TopUp(ctx context.Context, userID uint, amount float64, phone string) (domain.TopUp, error)
		TopUpStatus(ctx context.Context, userID uint, checkoutRequestID string) (domain.PaymentStatus, error)
		ConfigStatus() domain.MpesaConfigStatus
	}

	TopUpRequest struct {
		Amount      float64 `json:"amount" validate:"required,gte=1,lte=70000"`
		PhoneNumber string  `json:"phoneNumber" validate:"required,ke_phone"`
	}
)

func NewWalletHandler(walletService WalletService, paymentService TopUpService) *WalletHandler {
	return &WalletHandler{
		validate:       utils.NewValidator(),
		walletService:  walletService,
		paymentService: paymentService,
		timeout:        10 * time.Second,
		paymentTimeout: paymentTimeout,
	}
}

func (h *WalletHandler) GetWallet(c echo.Context) error {
	userID, _, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	wallet, err := h.walletService.GetWallet(ctx, userID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, jsonres.Success("Wallet retrieved successfully", map[string]interface{}{
		"balance":  wallet.Balance,
		"currency": wallet.Currency,
	}))
}

func (h *WalletHandler) GetTransactions(c echo.Context) error {
	userID, _, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	page, err := h.walletService.GetTransactions(ctx, userID, queryInt(c, "page", 1), queryInt(c, "limit", 20))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, jsonres.Success("Transactions retrieved successfully", map[string]interface{}{
		"transactions": page.Transactions,
		"pagination":   page.Pagination,
	}))
}

func (h *WalletHandler) TopUp(c echo.Context) error {
	userID, _, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	var request TopUpRequest
	if err := c.Bind(&request); err != nil {
		logger.Error("Invalid request body", err)
		return badRequest(c, "Invalid request body")
	}

	if err := h.validate.Struct(&request); err != nil {
		logger.Warn("Failed top-up validation", err)
		return badRequest(c, validationMessage(err))
	}

	ctx, cancel := paymentContext(c, h.paymentTimeout)
	defer cancel()

	topUp, err := h.paymentService.TopUp(ctx, userID, request.Amount, request.PhoneNumber)
	if err != nil {
		logger.Error("Failed to initiate wallet top-up", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, jsonres.Success("STK Push sent. Complete the payment on your phone.", map[string]interface{}{
		"topup": topUp,
	}))
}

func (h *WalletHandler) TopUpStatus(c echo.Context) error {
	userID, _, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	checkoutRequestID := strings.TrimSpace(c.Param("checkoutRequestId"))
	if checkoutRequestID == "" {
		return badRequest(c, "Checkout request ID is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	status, err := h.paymentService.TopUpStatus(ctx, userID, checkoutRequestID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, jsonres.Success("Payment status retrieved", map[string]interface{}{
		"payment": status,
	}))
}

func (h *WalletHandler) MpesaConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, jsonres.Success("M-Pesa configuration status", map[string]interface{}{
		"mpesa": h.paymentService.ConfigStatus(),
	}))
}
