package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"beverageHub/domain"
	"beverageHub/pkg/logger"
	"beverageHub/pkg/metrics"
	"beverageHub/pkg/utils"

	"github.com/google/uuid"
)

type OrdersRepository interface {
	FindByID(ctx context.Context, id uint) (domain.Order, error)
	AttachMpesaRequest(ctx context.Context, orderID uint, details domain.MpesaDetails) error
	SettlePayment(ctx context.Context, settlement domain.PaymentSettlement) (domain.Order, bool, error)
}

type WalletRepository interface {
	CreateTransaction(ctx context.Context, tx *domain.WalletTransaction) error
	FindTransactionByCheckoutID(ctx context.Context, checkoutRequestID string) (domain.WalletTransaction, error)
	SettleTransaction(ctx context.Context, settlement domain.PaymentSettlement) (domain.WalletTransaction, bool, error)
}

// Gateway is the M-Pesa client.
type Gateway interface {
	IsConfigured() bool
	ConfigStatus() domain.MpesaConfigStatus
	InitiateSTKPush(ctx context.Context, phone string, amount float64, accountReference, transactionDesc string) (domain.STKPushResponse, error)
	QuerySTKPushStatus(ctx context.Context, checkoutRequestID string) (domain.STKQueryResponse, error)
	HandleCallback(body []byte) domain.CallbackResult
}

type EventPublisher interface {
	PublishPaymentCompleted(ctx context.Context, event domain.PaymentCompletedEvent) error
}

type PaymentsService struct {
	orderRepo  OrdersRepository
	walletRepo WalletRepository
	gateway    Gateway
	publisher  EventPublisher
	now        func() time.Time
}

// NewPaymentsService wires payment reconciliation. publisher may be nil.
func NewPaymentsService(orderRepo OrdersRepository, walletRepo WalletRepository, gateway Gateway, publisher EventPublisher) *PaymentsService {
	return &PaymentsService{
		orderRepo:  orderRepo,
		walletRepo: walletRepo,
		gateway:    gateway,
		publisher:  publisher,
		now:        time.Now,
	}
}

var (
	errOrderNotFound       = domain.NewError(domain.ErrNotFound, "Order not found")
	errTransactionNotFound = domain.NewError(domain.ErrNotFound, "Transaction not found")
	errNotConfigured       = domain.NewError(domain.ErrPaymentNotConfigured, "M-Pesa payment is not configured")
	errPromptPending       = domain.NewError(domain.ErrConflict, "A payment prompt for this order is still pending")
)

func (s *PaymentsService) ConfigStatus() domain.MpesaConfigStatus {
	return s.gateway.ConfigStatus()
}

// TopUp starts an STK push for amount and records a pending credit once the
// gateway has accepted it.
func (s *PaymentsService) TopUp(ctx context.Context, userID uint, amount float64, phone string) (domain.TopUp, error) {
	phone = utils.NormalizePhone(phone)
	if !utils.IsValidMsisdn(phone) {
		return domain.TopUp{}, domain.NewError(domain.ErrValidation, "Invalid phone number format. Use 254XXXXXXXXX")
	}

	if amount < domain.MpesaMinAmount || amount > domain.MpesaMaxAmount {
		return domain.TopUp{}, domain.NewError(domain.ErrValidation,
			fmt.Sprintf("Amount must be between %d and %d", domain.MpesaMinAmount, domain.MpesaMaxAmount))
	}

	if !s.gateway.IsConfigured() {
		return domain.TopUp{}, errNotConfigured
	}

	reference := uuid.NewString()
	ack, err := s.gateway.InitiateSTKPush(ctx, phone, amount, fmt.Sprintf("WALLET%d", userID), "Wallet top-up")
	if err != nil {
		logger.Error("Failed to initiate wallet top-up", "user_id", userID, "error", err)
		return domain.TopUp{}, err
	}

	checkoutID := ack.CheckoutRequestID
	tx := domain.WalletTransaction{
		UserID:            userID,
		Type:              domain.TransactionCredit,
		Amount:            amount,
		Description:       "Wallet top-up via M-Pesa",
		Status:            domain.PaymentPending,
		Reference:         reference,
		CheckoutRequestID: &checkoutID,
		MerchantRequestID: ack.MerchantRequestID,
		PhoneNumber:       phone,
	}

	if err := s.walletRepo.CreateTransaction(ctx, &tx); err != nil {
		logger.Error("Failed to record pending top-up", "checkout_request_id", checkoutID, "error", err)
		return domain.TopUp{}, err
	}

	logger.Info("Wallet top-up initiated", "user_id", userID, "amount", amount, "checkout_request_id", checkoutID)

	return domain.TopUp{
		TransactionID:     tx.ID,
		Reference:         reference,
		Amount:            amount,
		CheckoutRequestID: checkoutID,
		MerchantRequestID: ack.MerchantRequestID,
		CustomerMessage:   ack.CustomerMessage,
	}, nil
}

// TopUpStatus reports a top-up's status, asking the gateway when it is
// still pending. A failing query leaves the status as it is.
func (s *PaymentsService) TopUpStatus(ctx context.Context, userID uint, checkoutRequestID string) (domain.PaymentStatus, error) {
	tx, err := s.walletRepo.FindTransactionByCheckoutID(ctx, checkoutRequestID)
	if err != nil {
		return domain.PaymentStatus{}, err
	}

	if tx.UserID != userID {
		return domain.PaymentStatus{}, errTransactionNotFound
	}

	if tx.Status == domain.PaymentPending && s.gateway.IsConfigured() {
		if settlement, ok := s.querySettlement(ctx, checkoutRequestID, tx.Amount); ok {
			if settled, applied, err := s.walletRepo.SettleTransaction(ctx, settlement); err != nil {
				logger.Error("Failed to settle top-up from status query", err)
			} else {
				s.afterWalletSettlement(ctx, settled, applied)
				tx = settled
			}
		}
	}

	return walletStatus(tx), nil
}

// InitiateCheckoutPayment starts an STK push for an unpaid order owned by userID.
func (s *PaymentsService) InitiateCheckoutPayment(ctx context.Context, userID, orderID uint, phone string) (domain.CheckoutPayment, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return domain.CheckoutPayment{}, err
	}

	if order.UserID != userID {
		return domain.CheckoutPayment{}, domain.NewError(domain.ErrForbidden, "You are not allowed to pay for this order")
	}

	if order.PaymentStatus == domain.PaymentCompleted {
		return domain.CheckoutPayment{}, domain.NewError(domain.ErrConflict, "Order is already paid")
	}

	if order.OrderStatus == domain.OrderCancelled {
		return domain.CheckoutPayment{}, domain.NewError(domain.ErrConflict, "Order has been cancelled")
	}

	if order.AwaitingMpesaPrompt(s.now()) {
		return domain.CheckoutPayment{}, errPromptPending
	}

	if !s.gateway.IsConfigured() {
		return domain.CheckoutPayment{}, errNotConfigured
	}

	if strings.TrimSpace(phone) == "" {
		phone = order.DeliveryAddress.PhoneNumber
	}
	phone = utils.NormalizePhone(phone)

	ack, err := s.gateway.InitiateSTKPush(ctx, phone, order.FinalAmount, order.OrderNumber, "Order payment")
	if err != nil {
		logger.Error("Failed to initiate order payment", "order_id", orderID, "error", err)
		return domain.CheckoutPayment{}, err
	}

	checkoutID := ack.CheckoutRequestID
	initiatedAt := s.now()
	err = s.orderRepo.AttachMpesaRequest(ctx, orderID, domain.MpesaDetails{
		CheckoutRequestID: &checkoutID,
		MerchantRequestID: ack.MerchantRequestID,
		PhoneNumber:       phone,
		Amount:            order.FinalAmount,
		InitiatedAt:       &initiatedAt,
	})
	if err != nil {
		logger.Error("Failed to attach checkout request to order", "order_id", orderID, "error", err)
		return domain.CheckoutPayment{}, err
	}

	logger.Info("Order payment initiated", "order_id", orderID, "checkout_request_id", checkoutID)

	return domain.CheckoutPayment{
		OrderID:           order.ID,
		OrderNumber:       order.OrderNumber,
		Amount:            order.FinalAmount,
		CheckoutRequestID: checkoutID,
		MerchantRequestID: ack.MerchantRequestID,
		CustomerMessage:   ack.CustomerMessage,
	}, nil
}

// OrderPaymentStatus reports an order's payment status, asking the gateway
// when it is still pending. A failing query leaves the status as it is.
func (s *PaymentsService) OrderPaymentStatus(ctx context.Context, userID, orderID uint) (domain.PaymentStatus, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return domain.PaymentStatus{}, err
	}

	if order.UserID != userID {
		return domain.PaymentStatus{}, domain.NewError(domain.ErrForbidden, "You are not allowed to view this order")
	}

	checkoutID := order.MpesaDetails.CheckoutRequestID
	if order.PaymentStatus == domain.PaymentPending && checkoutID != nil && s.gateway.IsConfigured() {
		if settlement, ok := s.querySettlement(ctx, *checkoutID, order.FinalAmount); ok {
			if settled, applied, err := s.orderRepo.SettlePayment(ctx, settlement); err != nil {
				logger.Error("Failed to settle order payment from status query", err)
			} else {
				s.afterOrderSettlement(ctx, settled, applied)
				order = settled
			}
		}
	}

	return orderStatus(order), nil
}

// querySettlement asks the gateway for a terminal outcome. ok is false while
// the payment is still pending or the query failed.
func (s *PaymentsService) querySettlement(ctx context.Context, checkoutRequestID string, amount float64) (domain.PaymentSettlement, bool) {
	res, err := s.gateway.QuerySTKPushStatus(ctx, checkoutRequestID)
	if err != nil {
		logger.Warn("STK status query failed, keeping current status", "checkout_request_id", checkoutRequestID, "error", err)
		return domain.PaymentSettlement{}, false
	}

	status := domain.QueryPaymentStatus(res.ResultCode)
	if status == domain.PaymentPending {
		return domain.PaymentSettlement{}, false
	}

	return domain.PaymentSettlement{
		CheckoutRequestID: checkoutRequestID,
		Success:           status == domain.PaymentCompleted,
		Amount:            amount,
		ResultCode:        res.ResultCode,
		ResultDesc:        res.ResultDesc,
		SettledAt:         s.now(),
	}, true
}

// HandleCallback applies a gateway callback to the order or wallet
// transaction it belongs to. It never fails: the gateway must always be
// acknowledged.
func (s *PaymentsService) HandleCallback(ctx context.Context, body []byte) domain.WebhookAck {
	ack := domain.WebhookAck{ResultCode: 0, ResultDesc: "Accepted"}

	result := s.gateway.HandleCallback(body)
	if result.CheckoutRequestID == "" {
		logger.Warn("Ignoring M-Pesa callback without checkout request id", "result_code", result.ResultCode, "result_desc", result.ResultDesc)
		metrics.PaymentCallbacksIgnored.Inc()
		return ack
	}

	settlement := domain.PaymentSettlement{
		CheckoutRequestID:  result.CheckoutRequestID,
		Success:            result.Success,
		Amount:             result.Amount,
		MpesaReceiptNumber: result.MpesaReceiptNumber,
		TransactionDate:    result.TransactionDate,
		PhoneNumber:        result.PhoneNumber,
		ResultCode:         result.ResultCode,
		ResultDesc:         result.ResultDesc,
		Payload:            body,
		SettledAt:          s.now(),
	}

	order, applied, err := s.orderRepo.SettlePayment(ctx, settlement)
	if err == nil {
		s.afterOrderSettlement(ctx, order, applied)
		return ack
	}
	if !errors.Is(err, domain.ErrNotFound) {
		logger.Error("Failed to apply M-Pesa callback to order", "checkout_request_id", result.CheckoutRequestID, "error", err)
		return ack
	}

	tx, applied, err := s.walletRepo.SettleTransaction(ctx, settlement)
	if err == nil {
		s.afterWalletSettlement(ctx, tx, applied)
		return ack
	}
	if errors.Is(err, domain.ErrNotFound) {
		logger.Warn("M-Pesa callback matched no order or transaction", "checkout_request_id", result.CheckoutRequestID)
		metrics.PaymentCallbacksIgnored.Inc()
		return ack
	}

	logger.Error("Failed to apply M-Pesa callback to wallet", "checkout_request_id", result.CheckoutRequestID, "error", err)
	return ack
}

// HandleTimeout acknowledges the gateway's queue-timeout notification. The
// record stays pending until a callback or status query resolves it.
func (s *PaymentsService) HandleTimeout(ctx context.Context, body []byte) domain.WebhookAck {
	logger.Warn("M-Pesa request timed out", "payload", string(body))
	return domain.WebhookAck{ResultCode: 0, ResultDesc: "Timeout received"}
}

func (s *PaymentsService) afterOrderSettlement(ctx context.Context, order domain.Order, applied bool) {
	if !applied {
		logger.Info("Order payment already settled", "order_id", order.ID, "payment_status", order.PaymentStatus)
		metrics.PaymentCallbacksIgnored.Inc()
		return
	}

	metrics.PaymentSettlements.WithLabelValues(domain.SettlementSourceOrder, order.PaymentStatus).Inc()
	logger.Info("Order payment settled", "order_id", order.ID, "payment_status", order.PaymentStatus)

	if order.PaymentStatus != domain.PaymentCompleted {
		return
	}

	s.publish(ctx, domain.PaymentCompletedEvent{
		Source:             domain.SettlementSourceOrder,
		UserID:             order.UserID,
		OrderID:            order.ID,
		OrderNumber:        order.OrderNumber,
		Amount:             order.FinalAmount,
		MpesaReceiptNumber: order.MpesaDetails.MpesaReceiptNumber,
		CompletedAt:        s.now(),
	})
}

func (s *PaymentsService) afterWalletSettlement(ctx context.Context, tx domain.WalletTransaction, applied bool) {
	if !applied {
		logger.Info("Wallet transaction already settled", "transaction_id", tx.ID, "status", tx.Status)
		metrics.PaymentCallbacksIgnored.Inc()
		return
	}

	metrics.PaymentSettlements.WithLabelValues(domain.SettlementSourceWallet, tx.Status).Inc()
	logger.Info("Wallet transaction settled", "transaction_id", tx.ID, "status", tx.Status)

	if tx.Status != domain.PaymentCompleted {
		return
	}

	metrics.WalletCreditedAmount.Add(tx.Amount)
	s.publish(ctx, domain.PaymentCompletedEvent{
		Source:             domain.SettlementSourceWallet,
		UserID:             tx.UserID,
		TransactionID:      tx.ID,
		Amount:             tx.Amount,
		MpesaReceiptNumber: tx.ReceiptNumber,
		CompletedAt:        s.now(),
	})
}

func (s *PaymentsService) publish(ctx context.Context, event domain.PaymentCompletedEvent) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.PublishPaymentCompleted(ctx, event); err != nil {
		logger.Warn("Failed to publish payment.completed", "source", event.Source, "error", err)
	}
}

func walletStatus(tx domain.WalletTransaction) domain.PaymentStatus {
	var checkoutID string
	if tx.CheckoutRequestID != nil {
		checkoutID = *tx.CheckoutRequestID
	}

	return domain.PaymentStatus{
		CheckoutRequestID:  checkoutID,
		Status:             tx.Status,
		Amount:             tx.Amount,
		MpesaReceiptNumber: tx.ReceiptNumber,
		ResultDesc:         tx.ResultDesc,
		CompletedAt:        tx.CompletedAt,
	}
}

func orderStatus(order domain.Order) domain.PaymentStatus {
	var checkoutID string
	if order.MpesaDetails.CheckoutRequestID != nil {
		checkoutID = *order.MpesaDetails.CheckoutRequestID
	}

	return domain.PaymentStatus{
		CheckoutRequestID:  checkoutID,
		Status:             order.PaymentStatus,
		Amount:             order.FinalAmount,
		MpesaReceiptNumber: order.MpesaDetails.MpesaReceiptNumber,
		ResultDesc:         order.MpesaDetails.FailureReason,
		CompletedAt:        order.MpesaDetails.CompletedAt,
	}
}
