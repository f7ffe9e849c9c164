package domain

import "time"

const (
	TransactionCredit = "credit"
	TransactionDebit  = "debit"

	Currency = "KES"
)

// WalletTransaction is a single credit or debit against a user's wallet.
// Gateway columns are only populated for M-Pesa top-ups.
type WalletTransaction struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	UserID            uint       `gorm:"column:user_id;not null;index:idx_wallet_tx_user_created,priority:1" json:"user_id"`
	Type              string     `gorm:"column:type;type:varchar(10);not null" json:"type"`
	Amount            float64    `gorm:"column:amount;type:numeric(14,2);not null" json:"amount"`
	Description       string     `gorm:"column:description" json:"description"`
	Status            string     `gorm:"column:status;type:varchar(12);not null;default:pending" json:"status"`
	Reference         string     `gorm:"column:reference;uniqueIndex" json:"reference"`
	CheckoutRequestID *string    `gorm:"column:checkout_request_id;uniqueIndex" json:"checkout_request_id,omitempty"`
	MerchantRequestID string     `gorm:"column:merchant_request_id" json:"merchant_request_id,omitempty"`
	ReceiptNumber     string     `gorm:"column:receipt_number" json:"receipt_number,omitempty"`
	TransactionDate   string     `gorm:"column:transaction_date" json:"transaction_date,omitempty"`
	PhoneNumber       string     `gorm:"column:phone_number" json:"phone_number,omitempty"`
	ResultCode        string     `gorm:"column:result_code" json:"result_code,omitempty"`
	ResultDesc        string     `gorm:"column:result_desc" json:"result_desc,omitempty"`
	CompletedAt       *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt         time.Time  `gorm:"index:idx_wallet_tx_user_created,priority:2" json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}

// Wallet is the read model returned by the wallet endpoints.
type Wallet struct {
	UserID   uint    `json:"user_id"`
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
}

type Pagination struct {
	Page  int
	Limit int
}

// Offset converts a 1-based page into a row offset.
func (p Pagination) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// TotalPages is ceil(total/limit).
func (p Pagination) TotalPages(total int64) int {
	if p.Limit <= 0 {
		return 0
	}
	return int((total + int64(p.Limit) - 1) / int64(p.Limit))
}

// WalletTransactionView is a transaction without gateway metadata.
type WalletTransactionView struct {
	ID          uint      `json:"id"`
	Type        string    `json:"type"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Reference   string    `json:"reference"`
	CreatedAt   time.Time `json:"created_at"`
}

func (t WalletTransaction) View() WalletTransactionView {
	return WalletTransactionView{
		ID:          t.ID,
		Type:        t.Type,
		Amount:      t.Amount,
		Description: t.Description,
		Status:      t.Status,
		Reference:   t.Reference,
		CreatedAt:   t.CreatedAt,
	}
}

type TransactionPage struct {
	Transactions []WalletTransactionView `json:"transactions"`
	Pagination   struct {
		CurrentPage       int   `json:"currentPage"`
		TotalPages        int   `json:"totalPages"`
		TotalTransactions int64 `json:"totalTransactions"`
		HasMore           bool  `json:"hasMore"`
	} `json:"pagination"`
}
