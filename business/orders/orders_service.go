package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"beverageHub/domain"
	"beverageHub/pkg/logger"
	"beverageHub/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrdersRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	CreatePaidWithWallet(ctx context.Context, order *domain.Order, debit *domain.WalletTransaction) error
	FindByID(ctx context.Context, id uint) (domain.Order, error)
	ListByUser(ctx context.Context, userID uint, page domain.Pagination) ([]domain.Order, int64, error)
	UpdateStatus(ctx context.Context, id uint, from, to string) error
	Delete(ctx context.Context, id uint) error
}

type ProductRepository interface {
	FindByID(ctx context.Context, id uint) (domain.Product, error)
}

// PaymentInitiator starts an STK push for an existing order.
type PaymentInitiator interface {
	InitiateCheckoutPayment(ctx context.Context, userID, orderID uint, phone string) (domain.CheckoutPayment, error)
}

type OrdersService struct {
	orderRepo    OrdersRepository
	productsRepo ProductRepository
	payments     PaymentInitiator
}

func NewOrdersService(orderRepo OrdersRepository, productsRepo ProductRepository, payments PaymentInitiator) *OrdersService {
	return &OrdersService{
		orderRepo:    orderRepo,
		productsRepo: productsRepo,
		payments:     payments,
	}
}

var (
	errOrderNotFound  = domain.NewError(domain.ErrNotFound, "Order not found")
	deliveryFee       = decimal.NewFromFloat(domain.DeliveryFee)
	estimatedDelivery = 2 * time.Hour
)

// CreateOrder prices the requested lines from the catalog and settles the
// order according to its payment method. For M-Pesa with a number the STK
// push starts immediately and the order is removed if it cannot start.
func (s *OrdersService) CreateOrder(ctx context.Context, input domain.CreateOrderInput) (domain.Order, *domain.CheckoutPayment, error) {
	switch input.PaymentMethod {
	case domain.PaymentMethodMpesa, domain.PaymentMethodCard, domain.PaymentMethodWallet:
	default:
		return domain.Order{}, nil, domain.NewError(domain.ErrValidation, "Invalid payment method")
	}

	if len(input.Items) == 0 {
		return domain.Order{}, nil, domain.NewError(domain.ErrValidation, "Order must contain at least one item")
	}

	address := input.DeliveryAddress
	address.PhoneNumber = utils.NormalizePhone(address.PhoneNumber)
	if !utils.IsValidMsisdn(address.PhoneNumber) {
		return domain.Order{}, nil, domain.NewError(domain.ErrValidation, "Valid delivery phone number required (254XXXXXXXXX)")
	}
	if strings.TrimSpace(address.Street) == "" || strings.TrimSpace(address.City) == "" || strings.TrimSpace(address.County) == "" {
		return domain.Order{}, nil, domain.NewError(domain.ErrValidation, "Delivery street, city and county are required")
	}

	items, subtotal, err := s.priceItems(ctx, input.Items)
	if err != nil {
		return domain.Order{}, nil, err
	}

	now := time.Now()
	eta := now.Add(estimatedDelivery)
	order := domain.Order{
		OrderNumber:           newOrderNumber(),
		UserID:                input.UserID,
		Items:                 items,
		TotalAmount:           subtotal.InexactFloat64(),
		DeliveryFee:           deliveryFee.InexactFloat64(),
		FinalAmount:           subtotal.Add(deliveryFee).Round(2).InexactFloat64(),
		DeliveryAddress:       address,
		PaymentMethod:         input.PaymentMethod,
		PaymentStatus:         domain.PaymentPending,
		OrderStatus:           domain.OrderPending,
		EstimatedDeliveryTime: &eta,
		Notes:                 strings.TrimSpace(input.Notes),
	}

	switch input.PaymentMethod {
	case domain.PaymentMethodWallet:
		order.PaymentStatus = domain.PaymentCompleted
		order.OrderStatus = domain.OrderConfirmed
		order.PaidAt = &now

		debit := domain.WalletTransaction{
			UserID:      input.UserID,
			Type:        domain.TransactionDebit,
			Amount:      order.FinalAmount,
			Description: "Payment for order " + order.OrderNumber,
			Status:      domain.PaymentCompleted,
			Reference:   uuid.NewString(),
			CompletedAt: &now,
		}

		if err := s.orderRepo.CreatePaidWithWallet(ctx, &order, &debit); err != nil {
			logger.Warn("Wallet order rejected", "user_id", input.UserID, "error", err)
			return domain.Order{}, nil, err
		}

		logger.Info("Order paid from wallet", "order_id", order.ID, "amount", order.FinalAmount)
		return order, nil, nil

	case domain.PaymentMethodCard:
		// card processing is a placeholder; the order is accepted as paid
		order.PaymentStatus = domain.PaymentCompleted
		order.OrderStatus = domain.OrderConfirmed
		order.PaidAt = &now
	}

	if err := s.orderRepo.Create(ctx, &order); err != nil {
		logger.Error("Failed to create order", err)
		return domain.Order{}, nil, err
	}

	if input.PaymentMethod != domain.PaymentMethodMpesa || strings.TrimSpace(input.MpesaNumber) == "" {
		return order, nil, nil
	}

	checkout, err := s.payments.InitiateCheckoutPayment(ctx, input.UserID, order.ID, input.MpesaNumber)
	if err != nil {
		logger.Warn("M-Pesa initiation failed, removing order", "order_id", order.ID, "error", err)
		if delErr := s.orderRepo.Delete(ctx, order.ID); delErr != nil {
			logger.Error("Failed to remove order after M-Pesa failure", delErr)
		}
		return domain.Order{}, nil, err
	}

	order, err = s.orderRepo.FindByID(ctx, order.ID)
	if err != nil {
		return domain.Order{}, nil, err
	}

	return order, &checkout, nil
}

func (s *OrdersService) priceItems(ctx context.Context, lines []domain.OrderLine) ([]domain.OrderItem, decimal.Decimal, error) {
	items := make([]domain.OrderItem, 0, len(lines))
	subtotal := decimal.Zero
	products := map[uint]domain.Product{}

	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, decimal.Zero, domain.NewError(domain.ErrValidation, "Quantity must be at least 1")
		}
		if (line.VariationID == 0) == (line.PacketID == 0) {
			return nil, decimal.Zero, domain.NewError(domain.ErrValidation, "Each item needs exactly one of variation_id or packet_id")
		}

		product, ok := products[line.ProductID]
		if !ok {
			p, err := s.productsRepo.FindByID(ctx, line.ProductID)
			if err != nil {
				return nil, decimal.Zero, err
			}
			if !p.IsActive {
				return nil, decimal.Zero, domain.NewError(domain.ErrNotFound, "Product not found")
			}
			product = p
			products[line.ProductID] = p
		}

		var (
			label string
			price decimal.Decimal
		)
		if line.VariationID != 0 {
			v, ok := product.FindVariation(line.VariationID)
			if !ok {
				return nil, decimal.Zero, domain.NewError(domain.ErrValidation, fmt.Sprintf("Variation not available for %s", product.Name))
			}
			label, price = v.Size, decimal.NewFromFloat(v.Price)
		} else {
			pk, ok := product.FindPacket(line.PacketID)
			if !ok {
				return nil, decimal.Zero, domain.NewError(domain.ErrValidation, fmt.Sprintf("Packet not available for %s", product.Name))
			}
			label, price = fmt.Sprintf("%s (%s)", pk.PacketType, pk.Size), decimal.NewFromFloat(pk.PricePerPacket)
		}

		lineTotal := price.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
		subtotal = subtotal.Add(lineTotal)

		items = append(items, domain.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Variation:   label,
			Quantity:    line.Quantity,
			Price:       price.Round(2).InexactFloat64(),
			LineTotal:   lineTotal.InexactFloat64(),
		})
	}

	return items, subtotal.Round(2), nil
}

func (s *OrdersService) GetOrders(ctx context.Context, userID uint, page, limit int) (domain.OrderPage, error) {
	p := domain.Pagination{Page: page, Limit: limit}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 || p.Limit > 100 {
		p.Limit = 10
	}

	orders, total, err := s.orderRepo.ListByUser(ctx, userID, p)
	if err != nil {
		logger.Error("Failed to list orders", err)
		return domain.OrderPage{}, err
	}

	if orders == nil {
		orders = []domain.Order{}
	}

	var out domain.OrderPage
	out.Orders = orders
	out.Pagination.CurrentPage = p.Page
	out.Pagination.TotalPages = p.TotalPages(total)
	out.Pagination.TotalOrders = total

	return out, nil
}

// GetOrder returns the order if userID owns it. Admins may read any order.
func (s *OrdersService) GetOrder(ctx context.Context, userID uint, role string, orderID uint) (domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}

	if order.UserID != userID && role != domain.RoleAdmin {
		return domain.Order{}, errOrderNotFound
	}

	return order, nil
}

// UpdateOrderStatus moves an order forward along its lifecycle or cancels it.
func (s *OrdersService) UpdateOrderStatus(ctx context.Context, orderID uint, status string) (domain.Order, error) {
	if !domain.IsValidOrderStatus(status) {
		return domain.Order{}, domain.NewError(domain.ErrValidation, "Invalid order status")
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}

	if !domain.CanTransitionOrder(order.OrderStatus, status) {
		return domain.Order{}, domain.NewError(domain.ErrConflict,
			fmt.Sprintf("Cannot change order status from %s to %s", order.OrderStatus, status))
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, order.OrderStatus, status); err != nil {
		logger.Error("Failed to update order status", err)
		return domain.Order{}, err
	}

	logger.Info("Order status updated", "order_id", orderID, "from", order.OrderStatus, "to", status)

	return s.orderRepo.FindByID(ctx, orderID)
}

// newOrderNumber fits the gateway's 12-character account reference.
func newOrderNumber() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "ORD-" + id[:8]
}
