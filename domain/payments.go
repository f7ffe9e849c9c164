package domain

import "time"

// PaymentStatus is what the poll endpoints return.
type PaymentStatus struct {
	CheckoutRequestID  string     `json:"checkout_request_id"`
	Status             string     `json:"status"`
	Amount             float64    `json:"amount"`
	MpesaReceiptNumber string     `json:"mpesa_receipt_number,omitempty"`
	ResultDesc         string     `json:"result_desc,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// TopUp is the acknowledgement returned when a wallet top-up is initiated.
type TopUp struct {
	TransactionID     uint    `json:"transaction_id"`
	Reference         string  `json:"reference"`
	Amount            float64 `json:"amount"`
	CheckoutRequestID string  `json:"checkout_request_id"`
	MerchantRequestID string  `json:"merchant_request_id"`
	CustomerMessage   string  `json:"customer_message"`
}

// CheckoutPayment is the acknowledgement returned when an order STK push starts.
type CheckoutPayment struct {
	OrderID           uint    `json:"order_id"`
	OrderNumber       string  `json:"order_number"`
	Amount            float64 `json:"amount"`
	CheckoutRequestID string  `json:"checkout_request_id"`
	MerchantRequestID string  `json:"merchant_request_id"`
	CustomerMessage   string  `json:"customer_message"`
}

// PaymentSettlement describes a terminal update applied to a pending record.
type PaymentSettlement struct {
	CheckoutRequestID  string
	Success            bool
	Amount             float64
	MpesaReceiptNumber string
	TransactionDate    string
	PhoneNumber        string
	ResultCode         string
	ResultDesc         string
	Payload            []byte
	SettledAt          time.Time
}

// PaymentCompletedEvent is published after a settlement is applied.
type PaymentCompletedEvent struct {
	Source             string    `json:"source"`
	UserID             uint      `json:"user_id"`
	OrderID            uint      `json:"order_id,omitempty"`
	OrderNumber        string    `json:"order_number,omitempty"`
	TransactionID      uint      `json:"transaction_id,omitempty"`
	Amount             float64   `json:"amount"`
	MpesaReceiptNumber string    `json:"mpesa_receipt_number"`
	CompletedAt        time.Time `json:"completed_at"`
}

const (
	SettlementSourceOrder  = "order"
	SettlementSourceWallet = "wallet"
)
