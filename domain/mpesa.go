package domain

import (
	"encoding/json"
	"time"
)

const (
	MpesaMinAmount = 1
	MpesaMaxAmount = 70000

	MpesaResultSuccess     = "0"
	MpesaResultAwaitingPIN = "1037"
	MpesaResultProcessing  = "4999"
	MpesaErrProcessing     = "500.001.1001"
	MpesaCallbackError     = "CALLBACK_ERROR"
)

// Gateway HTTP timeouts. An STK push needs a token fetch followed by the push.
const (
	MpesaAuthTimeout = 30 * time.Second
	MpesaSTKTimeout  = 60 * time.Second
)

// MpesaPromptWindow is how long a pending STK push blocks a new one for the
// same order. A callback for the earlier prompt can still arrive inside it.
const MpesaPromptWindow = 2 * time.Minute

type STKPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type STKQueryRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

type STKQueryResponse struct {
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResultCode          string `json:"ResultCode"`
	ResultDesc          string `json:"ResultDesc"`
}

// MpesaErrorResponse is the body Daraja returns on 4xx/5xx.
type MpesaErrorResponse struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

type STKCallbackBody struct {
	Body struct {
		StkCallback STKCallback `json:"stkCallback"`
	} `json:"Body"`
}

type STKCallback struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResultCode        int    `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	CallbackMetadata  *struct {
		Item []CallbackItem `json:"Item"`
	} `json:"CallbackMetadata,omitempty"`
}

type CallbackItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value,omitempty"`
}

// CallbackResult is the normalized outcome of a gateway callback.
type CallbackResult struct {
	Success            bool    `json:"success"`
	CheckoutRequestID  string  `json:"checkout_request_id"`
	MerchantRequestID  string  `json:"merchant_request_id"`
	Amount             float64 `json:"amount,omitempty"`
	MpesaReceiptNumber string  `json:"mpesa_receipt_number,omitempty"`
	TransactionDate    string  `json:"transaction_date,omitempty"`
	PhoneNumber        string  `json:"phone_number,omitempty"`
	ResultCode         string  `json:"result_code"`
	ResultDesc         string  `json:"result_desc"`
}

type MpesaConfigStatus struct {
	Configured     bool   `json:"configured"`
	Environment    string `json:"environment"`
	HasConsumerKey bool   `json:"has_consumer_key"`
	HasSecret      bool   `json:"has_consumer_secret"`
	HasShortcode   bool   `json:"has_shortcode"`
	HasPasskey     bool   `json:"has_passkey"`
	CallbackURL    string `json:"callback_url"`
}

// WebhookAck is the body every gateway webhook answers with.
type WebhookAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// QueryPaymentStatus maps an STK query result code to a payment status.
func QueryPaymentStatus(resultCode string) string {
	switch resultCode {
	case MpesaResultSuccess:
		return PaymentCompleted
	case MpesaResultAwaitingPIN, MpesaResultProcessing, MpesaErrProcessing, "":
		return PaymentPending
	default:
		return PaymentFailed
	}
}
