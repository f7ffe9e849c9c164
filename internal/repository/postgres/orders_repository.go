package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"beverageHub/domain"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrdersRepository struct {
	DB *gorm.DB
}

func NewOrdersRepository(db *gorm.DB) *OrdersRepository {
	return &OrdersRepository{
		DB: db,
	}
}

var errOrderNotFound = domain.NewError(domain.ErrNotFound, "Order not found")

func (r *OrdersRepository) Create(ctx context.Context, order *domain.Order) error {
	if err := r.DB.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	return nil
}

// CreatePaidWithWallet debits the user's wallet and stores the order and the
// debit transaction atomically. Nothing is written when the balance is short.
func (r *OrdersRepository) CreatePaidWithWallet(ctx context.Context, order *domain.Order, debit *domain.WalletTransaction) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.User{}).
			Where("id = ? AND wallet_balance >= ?", order.UserID, order.FinalAmount).
			Update("wallet_balance", gorm.Expr("wallet_balance - ?", order.FinalAmount))
		if res.Error != nil {
			return fmt.Errorf("debit wallet: %w", res.Error)
		}

		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&domain.User{}).Where("id = ?", order.UserID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return errUserNotFound
			}
			return domain.NewError(domain.ErrInsufficientBalance, "Insufficient wallet balance")
		}

		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		debit.UserID = order.UserID
		debit.Amount = order.FinalAmount
		if err := tx.Create(debit).Error; err != nil {
			return fmt.Errorf("create wallet debit: %w", err)
		}

		return nil
	})
}

func (r *OrdersRepository) FindByID(ctx context.Context, id uint) (domain.Order, error) {
	var order domain.Order

	err := r.DB.WithContext(ctx).Preload("Items").First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Order{}, errOrderNotFound
		}
		return domain.Order{}, err
	}

	return order, nil
}

// ListByUser returns a user's orders, newest first.
func (r *OrdersRepository) ListByUser(ctx context.Context, userID uint, page domain.Pagination) ([]domain.Order, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	var (
		orders []domain.Order
		total  int64
	)

	q := r.DB.WithContext(ctx).Model(&domain.Order{}).Where("user_id = ?", userID).Session(&gorm.Session{})

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	err := q.Preload("Items").
		Order("created_at DESC").
		Order("id DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	return orders, total, nil
}

// UpdateStatus moves the order from one status to another. It fails with a
// conflict when the order is no longer in the expected status.
func (r *OrdersRepository) UpdateStatus(ctx context.Context, id uint, from, to string) error {
	res := r.DB.WithContext(ctx).Model(&domain.Order{}).
		Where("id = ? AND order_status = ?", id, from).
		Update("order_status", to)
	if err := res.Error; err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	if res.RowsAffected == 0 {
		return domain.NewError(domain.ErrConflict, "Order status changed, please retry")
	}

	return nil
}

func (r *OrdersRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&domain.OrderItem{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&domain.Order{}, id)
		if err := res.Error; err != nil {
			return err
		}

		if res.RowsAffected == 0 {
			return errOrderNotFound
		}

		return nil
	})
}

// AttachMpesaRequest records a new STK push against an unpaid order and puts
// its payment back to pending. It refuses while an earlier push is pending
// and younger than domain.MpesaPromptWindow, so that push's callback still
// resolves to the order.
func (r *OrdersRepository) AttachMpesaRequest(ctx context.Context, orderID uint, details domain.MpesaDetails) error {
	initiatedAt := time.Now()
	if details.InitiatedAt != nil {
		initiatedAt = *details.InitiatedAt
	}

	res := r.DB.WithContext(ctx).Model(&domain.Order{}).
		Where("id = ? AND payment_status <> ?", orderID, domain.PaymentCompleted).
		Where("NOT (payment_status = ? AND mpesa_checkout_request_id IS NOT NULL AND mpesa_initiated_at IS NOT NULL AND mpesa_initiated_at > ?)",
			domain.PaymentPending, initiatedAt.Add(-domain.MpesaPromptWindow)).
		Updates(map[string]any{
			"payment_status":            domain.PaymentPending,
			"mpesa_checkout_request_id": details.CheckoutRequestID,
			"mpesa_merchant_request_id": details.MerchantRequestID,
			"mpesa_phone_number":        details.PhoneNumber,
			"mpesa_amount":              details.Amount,
			"mpesa_initiated_at":        details.InitiatedAt,
			"mpesa_failure_reason":      "",
		})
	if err := res.Error; err != nil {
		return fmt.Errorf("attach mpesa request: %w", err)
	}

	if res.RowsAffected == 0 {
		return domain.NewError(domain.ErrConflict, "Order is already paid or awaiting a payment prompt")
	}

	return nil
}

// SettlePayment moves the order's payment out of pending. applied is false
// when the payment had already been settled, in which case nothing changes.
func (r *OrdersRepository) SettlePayment(ctx context.Context, s domain.PaymentSettlement) (domain.Order, bool, error) {
	var (
		order   domain.Order
		applied bool
	)

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("mpesa_checkout_request_id = ?", s.CheckoutRequestID).
			First(&order).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errOrderNotFound
			}
			return err
		}

		if order.PaymentStatus != domain.PaymentPending {
			return nil
		}

		updates := map[string]any{}
		if s.Success {
			updates["payment_status"] = domain.PaymentCompleted
			updates["paid_at"] = s.SettledAt
			updates["mpesa_receipt_number"] = s.MpesaReceiptNumber
			updates["mpesa_transaction_date"] = s.TransactionDate
			updates["mpesa_completed_at"] = s.SettledAt
			if s.PhoneNumber != "" {
				updates["mpesa_phone_number"] = s.PhoneNumber
			}
			if order.OrderStatus == domain.OrderPending {
				updates["order_status"] = domain.OrderConfirmed
			}
		} else {
			updates["payment_status"] = domain.PaymentFailed
			updates["mpesa_failure_reason"] = s.ResultDesc
		}
		if len(s.Payload) > 0 {
			updates["callback_payload"] = datatypes.JSON(s.Payload)
		}

		res := tx.Model(&domain.Order{}).
			Where("id = ? AND payment_status = ?", order.ID, domain.PaymentPending).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("settle order payment: %w", res.Error)
		}
		applied = res.RowsAffected == 1

		return nil
	})
	if err != nil {
		return domain.Order{}, false, err
	}

	if applied {
		order, err = r.FindByID(ctx, order.ID)
		if err != nil {
			return domain.Order{}, false, err
		}
	}

	return order, applied, nil
}
