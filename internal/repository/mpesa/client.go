package mpesa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"beverageHub/domain"
	"beverageHub/pkg/config"
	"beverageHub/pkg/logger"
	"beverageHub/pkg/metrics"
	"beverageHub/pkg/utils"

	"github.com/pobyzaarif/goshortcute"
)

const (
	productionURL = "https://api.safaricom.co.ke"
	sandboxURL    = "https://sandbox.safaricom.co.ke"

	transactionType = "CustomerPayBillOnline"

	maxAccountReference = 12
	maxTransactionDesc  = 13

	tokenSafetyMargin = 60 * time.Second
)

var eat = time.FixedZone("EAT", 3*60*60)

// TokenCache stores the OAuth access token between requests.
type TokenCache interface {
	GetAccessToken(ctx context.Context) (string, error)
	SetAccessToken(ctx context.Context, token string, ttl time.Duration) error
}

type Client struct {
	cfg        config.MpesaConfig
	baseURL    string
	authClient *http.Client
	stkClient  *http.Client
	cache      TokenCache
	now        func() time.Time
}

// NewClient builds a Daraja client. cache may be nil.
func NewClient(cfg config.MpesaConfig, cache TokenCache) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = sandboxURL
		if strings.EqualFold(cfg.Environment, "production") {
			baseURL = productionURL
		}
	}

	return &Client{
		cfg:        cfg,
		baseURL:    strings.TrimRight(baseURL, "/"),
		authClient: &http.Client{Timeout: domain.MpesaAuthTimeout},
		stkClient:  &http.Client{Timeout: domain.MpesaSTKTimeout},
		cache:      cache,
		now:        time.Now,
	}
}

func (c *Client) IsConfigured() bool {
	return c.cfg.ConsumerKey != "" && c.cfg.ConsumerSecret != "" && c.cfg.Shortcode != "" && c.cfg.Passkey != ""
}

func (c *Client) ConfigStatus() domain.MpesaConfigStatus {
	return domain.MpesaConfigStatus{
		Configured:     c.IsConfigured(),
		Environment:    c.cfg.Environment,
		HasConsumerKey: c.cfg.ConsumerKey != "",
		HasSecret:      c.cfg.ConsumerSecret != "",
		HasShortcode:   c.cfg.Shortcode != "",
		HasPasskey:     c.cfg.Passkey != "",
		CallbackURL:    c.callbackURL(),
	}
}

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   json.Number `json:"expires_in"`
}

func (c *Client) GetAccessToken(ctx context.Context) (string, error) {
	if c.cfg.ConsumerKey == "" || c.cfg.ConsumerSecret == "" {
		return "", domain.NewError(domain.ErrAuthentication, "M-Pesa credentials are not configured")
	}

	if c.cache != nil {
		if token, err := c.cache.GetAccessToken(ctx); err == nil && token != "" {
			return token, nil
		}
	}

	start := time.Now()
	defer func() {
		metrics.GatewayLatency.WithLabelValues("token").Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.Header.Add("Authorization", "Basic "+goshortcute.StringtoBase64Encode(c.cfg.ConsumerKey+":"+c.cfg.ConsumerSecret))

	res, err := c.authClient.Do(req)
	if err != nil {
		metrics.GatewayRequests.WithLabelValues("token", "error").Inc()
		logger.Error("Failed to get M-Pesa access token", err)
		return "", domain.NewError(domain.ErrAuthentication, "Failed to authenticate with M-Pesa")
	}
	defer res.Body.Close()

	var body tokenResponse
	if res.StatusCode != http.StatusOK || json.NewDecoder(res.Body).Decode(&body) != nil || body.AccessToken == "" {
		metrics.GatewayRequests.WithLabelValues("token", "error").Inc()
		logger.Error("M-Pesa access token rejected", "status", res.StatusCode)
		return "", domain.NewError(domain.ErrAuthentication, "Failed to authenticate with M-Pesa")
	}
	metrics.GatewayRequests.WithLabelValues("token", "ok").Inc()

	if c.cache != nil {
		if secs, err := body.ExpiresIn.Int64(); err == nil {
			if ttl := time.Duration(secs)*time.Second - tokenSafetyMargin; ttl > 0 {
				if err := c.cache.SetAccessToken(ctx, body.AccessToken, ttl); err != nil {
					logger.Warn("Failed to cache M-Pesa access token", err)
				}
			}
		}
	}

	return body.AccessToken, nil
}

// InitiateSTKPush asks the gateway to prompt the customer's phone for a PIN.
// Phone and amount are validated before any network call.
func (c *Client) InitiateSTKPush(ctx context.Context, phone string, amount float64, accountReference, transactionDesc string) (domain.STKPushResponse, error) {
	if !utils.IsValidMsisdn(phone) {
		return domain.STKPushResponse{}, domain.NewError(domain.ErrValidation, "Invalid phone number format. Use 254XXXXXXXXX")
	}

	if amount < domain.MpesaMinAmount || amount > domain.MpesaMaxAmount {
		return domain.STKPushResponse{}, domain.NewError(domain.ErrValidation,
			fmt.Sprintf("Amount must be between %d and %d", domain.MpesaMinAmount, domain.MpesaMaxAmount))
	}

	if !c.IsConfigured() {
		return domain.STKPushResponse{}, domain.NewError(domain.ErrPaymentNotConfigured, "M-Pesa payment is not configured")
	}

	token, err := c.GetAccessToken(ctx)
	if err != nil {
		return domain.STKPushResponse{}, err
	}

	timestamp := c.timestamp()
	payload := domain.STKPushRequest{
		BusinessShortCode: c.cfg.Shortcode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		TransactionType:   transactionType,
		Amount:            int64(math.Round(amount)),
		PartyA:            phone,
		PartyB:            c.cfg.Shortcode,
		PhoneNumber:       phone,
		CallBackURL:       c.callbackURL(),
		AccountReference:  truncate(accountReference, maxAccountReference),
		TransactionDesc:   truncate(transactionDesc, maxTransactionDesc),
	}

	var ack domain.STKPushResponse
	if err := c.post(ctx, c.stkClient, "stkpush", "/mpesa/stkpush/v1/processrequest", token, payload, &ack); err != nil {
		return domain.STKPushResponse{}, err
	}

	if ack.ResponseCode != domain.MpesaResultSuccess {
		msg := ack.ResponseDescription
		if msg == "" {
			msg = "STK push was not accepted"
		}
		return domain.STKPushResponse{}, domain.NewError(domain.ErrGateway, msg)
	}

	logger.Info("STK push initiated", "checkout_request_id", ack.CheckoutRequestID, "reference", payload.AccountReference)
	return ack, nil
}

// QuerySTKPushStatus asks the gateway for the outcome of a push. A request
// the gateway is still processing comes back with ResultCode 500.001.1001.
func (c *Client) QuerySTKPushStatus(ctx context.Context, checkoutRequestID string) (domain.STKQueryResponse, error) {
	if !c.IsConfigured() {
		return domain.STKQueryResponse{}, domain.NewError(domain.ErrPaymentNotConfigured, "M-Pesa payment is not configured")
	}

	token, err := c.GetAccessToken(ctx)
	if err != nil {
		return domain.STKQueryResponse{}, err
	}

	timestamp := c.timestamp()
	payload := domain.STKQueryRequest{
		BusinessShortCode: c.cfg.Shortcode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		CheckoutRequestID: checkoutRequestID,
	}

	var res domain.STKQueryResponse
	err = c.post(ctx, c.authClient, "stkquery", "/mpesa/stkpushquery/v1/query", token, payload, &res)
	if err != nil {
		var gwErr *gatewayError
		if errors.As(err, &gwErr) && gwErr.code == domain.MpesaErrProcessing {
			return domain.STKQueryResponse{
				CheckoutRequestID: checkoutRequestID,
				ResultCode:        domain.MpesaErrProcessing,
				ResultDesc:        gwErr.message,
			}, nil
		}
		return domain.STKQueryResponse{}, err
	}

	return res, nil
}

// HandleCallback normalizes a gateway callback body. It never fails; a
// malformed payload becomes a failed result tagged CALLBACK_ERROR.
func (c *Client) HandleCallback(body []byte) domain.CallbackResult {
	var payload domain.STKCallbackBody
	if err := json.Unmarshal(body, &payload); err != nil {
		logger.Error("Failed to parse M-Pesa callback", err)
		return domain.CallbackResult{ResultCode: domain.MpesaCallbackError, ResultDesc: "Invalid callback payload"}
	}

	cb := payload.Body.StkCallback
	result := domain.CallbackResult{
		CheckoutRequestID: cb.CheckoutRequestID,
		MerchantRequestID: cb.MerchantRequestID,
		ResultCode:        strconv.Itoa(cb.ResultCode),
		ResultDesc:        cb.ResultDesc,
	}

	if cb.CheckoutRequestID == "" {
		result.ResultCode = domain.MpesaCallbackError
		result.ResultDesc = "Callback is missing CheckoutRequestID"
		return result
	}

	if cb.ResultCode != 0 {
		return result
	}

	if cb.CallbackMetadata != nil {
		for _, item := range cb.CallbackMetadata.Item {
			value := rawValue(item.Value)
			switch item.Name {
			case "Amount":
				result.Amount, _ = strconv.ParseFloat(value, 64)
			case "MpesaReceiptNumber":
				result.MpesaReceiptNumber = value
			case "TransactionDate":
				result.TransactionDate = value
			case "PhoneNumber":
				result.PhoneNumber = value
			}
		}
	}

	if result.Amount <= 0 || result.MpesaReceiptNumber == "" {
		result.ResultCode = domain.MpesaCallbackError
		result.ResultDesc = "Callback metadata is missing amount or receipt number"
		return result
	}

	result.Success = true
	return result
}

type gatewayError struct {
	status  int
	code    string
	message string
}

func (e *gatewayError) Error() string {
	return e.message
}

func (e *gatewayError) Unwrap() error {
	return domain.ErrGateway
}

func (c *Client) post(ctx context.Context, client *http.Client, operation, path, token string, payload, out interface{}) error {
	start := time.Now()
	defer func() {
		metrics.GatewayLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	payloadByte, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal json payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payloadByte))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Authorization", "Bearer "+token)

	res, err := client.Do(req)
	if err != nil {
		metrics.GatewayRequests.WithLabelValues(operation, "error").Inc()
		logger.Error("M-Pesa request failed", "operation", operation, "error", err)
		return domain.NewError(domain.ErrGateway, "Failed to reach M-Pesa")
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		metrics.GatewayRequests.WithLabelValues(operation, "error").Inc()
		return fmt.Errorf("failed to read M-Pesa response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		metrics.GatewayRequests.WithLabelValues(operation, "rejected").Inc()
		var gw domain.MpesaErrorResponse
		_ = json.Unmarshal(body, &gw)
		msg := gw.ErrorMessage
		if msg == "" {
			msg = fmt.Sprintf("M-Pesa returned status %d", res.StatusCode)
		}
		logger.Warn("M-Pesa rejected request", "operation", operation, "status", res.StatusCode, "code", gw.ErrorCode)
		return &gatewayError{status: res.StatusCode, code: gw.ErrorCode, message: msg}
	}

	if err := json.Unmarshal(body, out); err != nil {
		metrics.GatewayRequests.WithLabelValues(operation, "error").Inc()
		return domain.NewError(domain.ErrGateway, "Invalid response from M-Pesa")
	}
	metrics.GatewayRequests.WithLabelValues(operation, "ok").Inc()

	return nil
}

func (c *Client) timestamp() string {
	return c.now().In(eat).Format("20060102150405")
}

func (c *Client) password(timestamp string) string {
	return goshortcute.StringtoBase64Encode(c.cfg.Shortcode + c.cfg.Passkey + timestamp)
}

func (c *Client) callbackURL() string {
	if c.cfg.CallbackURL == "" {
		return ""
	}
	return c.cfg.CallbackURL + "/mpesa/callback"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// rawValue renders a metadata value that may be a JSON string or number.
func rawValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err == nil {
		return n.String()
	}
	return strings.TrimSpace(string(raw))
}
