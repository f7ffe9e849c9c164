package domain

import (
	"time"

	"gorm.io/datatypes"
)

const (
	PaymentMethodMpesa  = "mpesa"
	PaymentMethodCard   = "card"
	PaymentMethodWallet = "wallet"

	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"

	OrderPending        = "pending"
	OrderConfirmed      = "confirmed"
	OrderPreparing      = "preparing"
	OrderOutForDelivery = "out_for_delivery"
	OrderDelivered      = "delivered"
	OrderCancelled      = "cancelled"

	DeliveryFee = 60.0
)

var orderLifecycle = map[string]int{
	OrderPending:        0,
	OrderConfirmed:      1,
	OrderPreparing:      2,
	OrderOutForDelivery: 3,
	OrderDelivered:      4,
}

func IsValidOrderStatus(status string) bool {
	_, ok := orderLifecycle[status]
	return ok || status == OrderCancelled
}

// CanTransitionOrder reports whether an order may move from one status to
// another. Delivered and cancelled orders never change.
func CanTransitionOrder(from, to string) bool {
	if from == OrderDelivered || from == OrderCancelled {
		return false
	}
	if to == OrderCancelled {
		return true
	}
	fromIdx, ok := orderLifecycle[from]
	if !ok {
		return false
	}
	toIdx, ok := orderLifecycle[to]
	if !ok {
		return false
	}
	return toIdx > fromIdx
}

type DeliveryAddress struct {
	Street      string `gorm:"column:street" json:"street" validate:"required"`
	City        string `gorm:"column:city" json:"city" validate:"required"`
	County      string `gorm:"column:county" json:"county" validate:"required"`
	PostalCode  string `gorm:"column:postal_code" json:"postal_code"`
	PhoneNumber string `gorm:"column:phone_number" json:"phone_number" validate:"required"`
}

type MpesaDetails struct {
	CheckoutRequestID  *string    `gorm:"column:checkout_request_id;uniqueIndex" json:"checkout_request_id,omitempty"`
	MerchantRequestID  string     `gorm:"column:merchant_request_id" json:"merchant_request_id,omitempty"`
	MpesaReceiptNumber string     `gorm:"column:receipt_number" json:"mpesa_receipt_number,omitempty"`
	TransactionDate    string     `gorm:"column:transaction_date" json:"transaction_date,omitempty"`
	PhoneNumber        string     `gorm:"column:phone_number" json:"phone_number,omitempty"`
	Amount             float64    `gorm:"column:amount;type:numeric(14,2)" json:"amount,omitempty"`
	InitiatedAt        *time.Time `gorm:"column:initiated_at" json:"initiated_at,omitempty"`
	CompletedAt        *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	FailureReason      string     `gorm:"column:failure_reason" json:"failure_reason,omitempty"`
}

type Order struct {
	ID                    uint            `gorm:"primaryKey" json:"id"`
	OrderNumber           string          `gorm:"column:order_number;uniqueIndex;not null" json:"order_number"`
	UserID                uint            `gorm:"column:user_id;not null;index:idx_orders_user_created,priority:1" json:"user_id"`
	Items                 []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	TotalAmount           float64         `gorm:"column:total_amount;type:numeric(14,2);not null" json:"total_amount"`
	DeliveryFee           float64         `gorm:"column:delivery_fee;type:numeric(14,2);default:60" json:"delivery_fee"`
	FinalAmount           float64         `gorm:"column:final_amount;type:numeric(14,2);not null" json:"final_amount"`
	DeliveryAddress       DeliveryAddress `gorm:"embedded;embeddedPrefix:delivery_" json:"delivery_address"`
	PaymentMethod         string          `gorm:"column:payment_method;type:varchar(10);not null" json:"payment_method"`
	PaymentStatus         string          `gorm:"column:payment_status;type:varchar(12);default:pending" json:"payment_status"`
	PaidAt                *time.Time      `gorm:"column:paid_at" json:"paid_at,omitempty"`
	MpesaDetails          MpesaDetails    `gorm:"embedded;embeddedPrefix:mpesa_" json:"mpesa_details"`
	CallbackPayload       datatypes.JSON  `gorm:"column:callback_payload" json:"-"`
	OrderStatus           string          `gorm:"column:order_status;type:varchar(20);default:pending;index:idx_orders_status_created,priority:1" json:"order_status"`
	EstimatedDeliveryTime *time.Time      `gorm:"column:estimated_delivery_time" json:"estimated_delivery_time,omitempty"`
	Notes                 string          `gorm:"column:notes" json:"notes,omitempty"`
	CreatedAt             time.Time       `gorm:"index:idx_orders_user_created,priority:2;index:idx_orders_status_created,priority:2" json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

// AwaitingMpesaPrompt reports whether an STK push for the order is still
// pending and recent enough that its callback may yet arrive.
func (o Order) AwaitingMpesaPrompt(now time.Time) bool {
	if o.PaymentStatus != PaymentPending || o.MpesaDetails.CheckoutRequestID == nil || o.MpesaDetails.InitiatedAt == nil {
		return false
	}
	return now.Sub(*o.MpesaDetails.InitiatedAt) < MpesaPromptWindow
}

type OrderItem struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	OrderID     uint    `gorm:"column:order_id;not null;index" json:"order_id"`
	ProductID   uint    `gorm:"column:product_id;not null" json:"product_id"`
	ProductName string  `gorm:"column:product_name" json:"product_name"`
	Variation   string  `gorm:"column:variation" json:"variation"`
	Quantity    int     `gorm:"column:quantity;not null" json:"quantity"`
	Price       float64 `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	LineTotal   float64 `gorm:"column:line_total;type:numeric(14,2);not null" json:"line_total"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// OrderLine is a requested line before pricing. Exactly one of VariationID
// and PacketID is expected.
type OrderLine struct {
	ProductID   uint `json:"product_id" validate:"required"`
	VariationID uint `json:"variation_id"`
	PacketID    uint `json:"packet_id"`
	Quantity    int  `json:"quantity" validate:"required,min=1"`
}

type CreateOrderInput struct {
	UserID          uint
	Items           []OrderLine
	DeliveryAddress DeliveryAddress
	PaymentMethod   string
	MpesaNumber     string
	Notes           string
}

type OrderPage struct {
	Orders     []Order `json:"orders"`
	Pagination struct {
		CurrentPage int   `json:"currentPage"`
		TotalPages  int   `json:"totalPages"`
		TotalOrders int64 `json:"totalOrders"`
	} `json:"pagination"`
}
