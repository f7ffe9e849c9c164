package wallet

import (
	"context"

	"beverageHub/domain"
	"beverageHub/pkg/logger"
)

type WalletRepository interface {
	GetBalance(ctx context.Context, userID uint) (float64, error)
	ListTransactions(ctx context.Context, userID uint, page domain.Pagination) ([]domain.WalletTransaction, int64, error)
}

type walletService struct {
	walletRepo WalletRepository
}

func NewWalletService(walletRepo WalletRepository) *walletService {
	return &walletService{
		walletRepo: walletRepo,
	}
}

func (s *walletService) GetWallet(ctx context.Context, userID uint) (domain.Wallet, error) {
	balance, err := s.walletRepo.GetBalance(ctx, userID)
	if err != nil {
		logger.Error("Failed to get wallet balance", err)
		return domain.Wallet{}, err
	}

	return domain.Wallet{UserID: userID, Balance: balance, Currency: domain.Currency}, nil
}

// GetTransactions pages through the user's transactions, newest first.
// page must be >= 1 and limit within [1, 100].
func (s *walletService) GetTransactions(ctx context.Context, userID uint, page, limit int) (domain.TransactionPage, error) {
	if page < 1 {
		return domain.TransactionPage{}, domain.NewError(domain.ErrValidation, "Page must be a positive integer")
	}
	if limit < 1 || limit > 100 {
		return domain.TransactionPage{}, domain.NewError(domain.ErrValidation, "Limit must be between 1 and 100")
	}

	p := domain.Pagination{Page: page, Limit: limit}
	txs, total, err := s.walletRepo.ListTransactions(ctx, userID, p)
	if err != nil {
		logger.Error("Failed to list wallet transactions", err)
		return domain.TransactionPage{}, err
	}

	var out domain.TransactionPage
	out.Transactions = make([]domain.WalletTransactionView, 0, len(txs))
	for _, tx := range txs {
		out.Transactions = append(out.Transactions, tx.View())
	}
	out.Pagination.CurrentPage = page
	out.Pagination.TotalPages = p.TotalPages(total)
	out.Pagination.TotalTransactions = total
	out.Pagination.HasMore = int64(p.Offset()+len(txs)) < total

	return out, nil
}
