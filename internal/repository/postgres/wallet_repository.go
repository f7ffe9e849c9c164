package postgres

import (
	"context"
	"errors"
	"fmt"

	"beverageHub/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WalletRepository struct {
	DB *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{
		DB: db,
	}
}

var errTransactionNotFound = domain.NewError(domain.ErrNotFound, "Transaction not found")

func (r *WalletRepository) GetBalance(ctx context.Context, userID uint) (float64, error) {
	var user domain.User

	err := r.DB.WithContext(ctx).Select("id", "wallet_balance").First(&user, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, errUserNotFound
		}
		return 0, err
	}

	return user.WalletBalance, nil
}

// ListTransactions returns a user's wallet transactions, newest first.
func (r *WalletRepository) ListTransactions(ctx context.Context, userID uint, page domain.Pagination) ([]domain.WalletTransaction, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	var (
		txs   []domain.WalletTransaction
		total int64
	)

	q := r.DB.WithContext(ctx).Model(&domain.WalletTransaction{}).Where("user_id = ?", userID).Session(&gorm.Session{})

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count wallet transactions: %w", err)
	}

	err := q.Order("created_at DESC").
		Order("id DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&txs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list wallet transactions: %w", err)
	}

	return txs, total, nil
}

func (r *WalletRepository) CreateTransaction(ctx context.Context, tx *domain.WalletTransaction) error {
	if err := r.DB.WithContext(ctx).Create(tx).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewError(domain.ErrConflict, "Transaction already recorded")
		}
		return fmt.Errorf("create wallet transaction: %w", err)
	}

	return nil
}

func (r *WalletRepository) FindTransactionByCheckoutID(ctx context.Context, checkoutRequestID string) (domain.WalletTransaction, error) {
	var tx domain.WalletTransaction

	err := r.DB.WithContext(ctx).Where("checkout_request_id = ?", checkoutRequestID).First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.WalletTransaction{}, errTransactionNotFound
		}
		return domain.WalletTransaction{}, err
	}

	return tx, nil
}

// SettleTransaction moves a pending top-up to completed or failed. A
// completed top-up credits the stored amount to the owner's wallet in the
// same transaction. applied is false when the top-up was already settled.
func (r *WalletRepository) SettleTransaction(ctx context.Context, s domain.PaymentSettlement) (domain.WalletTransaction, bool, error) {
	var (
		wtx     domain.WalletTransaction
		applied bool
	)

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("checkout_request_id = ?", s.CheckoutRequestID).
			First(&wtx).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errTransactionNotFound
			}
			return err
		}

		if wtx.Status != domain.PaymentPending {
			return nil
		}

		status := domain.PaymentFailed
		if s.Success {
			status = domain.PaymentCompleted
		}

		updates := map[string]any{
			"status":      status,
			"result_code": s.ResultCode,
			"result_desc": s.ResultDesc,
		}
		if s.Success {
			updates["receipt_number"] = s.MpesaReceiptNumber
			updates["transaction_date"] = s.TransactionDate
			updates["completed_at"] = s.SettledAt
			if s.PhoneNumber != "" {
				updates["phone_number"] = s.PhoneNumber
			}
		}

		res := tx.Model(&domain.WalletTransaction{}).
			Where("id = ? AND status = ?", wtx.ID, domain.PaymentPending).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("settle wallet transaction: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		if s.Success {
			credit := tx.Model(&domain.User{}).
				Where("id = ?", wtx.UserID).
				Update("wallet_balance", gorm.Expr("wallet_balance + ?", wtx.Amount))
			if credit.Error != nil {
				return fmt.Errorf("credit wallet: %w", credit.Error)
			}
			if credit.RowsAffected == 0 {
				return errUserNotFound
			}
		}

		applied = true
		return tx.First(&wtx, wtx.ID).Error
	})
	if err != nil {
		return domain.WalletTransaction{}, false, err
	}

	return wtx, applied, nil
}
