package mpesa

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"beverageHub/domain"
	"beverageHub/pkg/config"

	"github.com/pobyzaarif/goshortcute"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDaraja struct {
	calls     atomic.Int32
	mu        sync.Mutex
	lastPush  domain.STKPushRequest
	queryCode string
	queryErr  string
}

func (f *fakeDaraja) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-123", "expires_in": "3599"})
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		f.mu.Lock()
		_ = json.NewDecoder(r.Body).Decode(&f.lastPush)
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(domain.STKPushResponse{
			MerchantRequestID:   "m-1",
			CheckoutRequestID:   "ws_CO_1",
			ResponseCode:        "0",
			ResponseDescription: "Success. Request accepted for processing",
			CustomerMessage:     "Success. Request accepted for processing",
		})
	})
	mux.HandleFunc("/mpesa/stkpushquery/v1/query", func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		if f.queryErr != "" {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(domain.MpesaErrorResponse{ErrorCode: f.queryErr, ErrorMessage: "The transaction is being processed"})
			return
		}
		_ = json.NewEncoder(w).Encode(domain.STKQueryResponse{ResponseCode: "0", ResultCode: f.queryCode, ResultDesc: "done"})
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeDaraja) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	c := NewClient(config.MpesaConfig{
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		Shortcode:      "174379",
		Passkey:        "passkey",
		CallbackURL:    "https://shop.example.com/api",
		BaseURL:        srv.URL,
	}, nil)
	c.now = func() time.Time { return time.Date(2025, 1, 2, 9, 4, 5, 0, time.UTC) }
	return c
}

func TestInitiateSTKPush(t *testing.T) {
	f := &fakeDaraja{}
	c := newTestClient(t, f)

	ack, err := c.InitiateSTKPush(context.Background(), "254712345678", 499.6, "ORDER-ABCDEFGHIJKLMN", "Beverage order payment")
	require.NoError(t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, "ws_CO_1", ack.CheckoutRequestID)
	assert.Equal(t, int64(500), f.lastPush.Amount)
	assert.Equal(t, "20250102120405", f.lastPush.Timestamp)
	assert.Equal(t, goshortcute.StringtoBase64Encode("174379passkey20250102120405"), f.lastPush.Password)
	assert.Equal(t, "CustomerPayBillOnline", f.lastPush.TransactionType)
	assert.Equal(t, "ORDER-ABCDEF", f.lastPush.AccountReference)
	assert.Equal(t, "Beverage orde", f.lastPush.TransactionDesc)
	assert.Equal(t, "https://shop.example.com/api/mpesa/callback", f.lastPush.CallBackURL)
	assert.Equal(t, "254712345678", f.lastPush.PartyA)
}

func TestInitiateSTKPushValidatesBeforeCalling(t *testing.T) {
	f := &fakeDaraja{}
	c := newTestClient(t, f)

	for _, amount := range []float64{0, 0.5, 70000.01, 100000} {
		_, err := c.InitiateSTKPush(context.Background(), "254712345678", amount, "ref", "desc")
		assert.True(t, errors.Is(err, domain.ErrValidation), "amount %v", amount)
	}

	_, err := c.InitiateSTKPush(context.Background(), "0712345678", 100, "ref", "desc")
	assert.True(t, errors.Is(err, domain.ErrValidation))

	assert.Equal(t, int32(0), f.calls.Load())
}

func TestInitiateSTKPushNotConfigured(t *testing.T) {
	c := NewClient(config.MpesaConfig{}, nil)

	_, err := c.InitiateSTKPush(context.Background(), "254712345678", 100, "ref", "desc")
	assert.True(t, errors.Is(err, domain.ErrPaymentNotConfigured))
	assert.False(t, c.ConfigStatus().Configured)
}

func TestGetAccessTokenWithoutCredentials(t *testing.T) {
	c := NewClient(config.MpesaConfig{Shortcode: "174379"}, nil)

	_, err := c.GetAccessToken(context.Background())
	assert.True(t, errors.Is(err, domain.ErrAuthentication))
}

type memoryTokenCache struct {
	token string
	ttl   time.Duration
}

func (m *memoryTokenCache) GetAccessToken(ctx context.Context) (string, error) {
	if m.token == "" {
		return "", errors.New("miss")
	}
	return m.token, nil
}

func (m *memoryTokenCache) SetAccessToken(ctx context.Context, token string, ttl time.Duration) error {
	m.token, m.ttl = token, ttl
	return nil
}

func TestGetAccessTokenUsesCache(t *testing.T) {
	f := &fakeDaraja{}
	c := newTestClient(t, f)
	cache := &memoryTokenCache{}
	c.cache = cache

	for i := 0; i < 3; i++ {
		token, err := c.GetAccessToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok-123", token)
	}

	assert.Equal(t, int32(1), f.calls.Load())
	assert.Equal(t, 3539*time.Second, cache.ttl)
}

func TestQuerySTKPushStatus(t *testing.T) {
	t.Run("result code passes through", func(t *testing.T) {
		c := newTestClient(t, &fakeDaraja{queryCode: "1032"})

		res, err := c.QuerySTKPushStatus(context.Background(), "ws_CO_1")
		require.NoError(t, err)
		assert.Equal(t, "1032", res.ResultCode)
		assert.Equal(t, domain.PaymentFailed, domain.QueryPaymentStatus(res.ResultCode))
	})

	t.Run("still processing", func(t *testing.T) {
		c := newTestClient(t, &fakeDaraja{queryErr: domain.MpesaErrProcessing})

		res, err := c.QuerySTKPushStatus(context.Background(), "ws_CO_1")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentPending, domain.QueryPaymentStatus(res.ResultCode))
	})

	t.Run("other gateway error", func(t *testing.T) {
		c := newTestClient(t, &fakeDaraja{queryErr: "400.002.02"})

		_, err := c.QuerySTKPushStatus(context.Background(), "ws_CO_1")
		assert.True(t, errors.Is(err, domain.ErrGateway))
	})
}

func TestHandleCallback(t *testing.T) {
	c := NewClient(config.MpesaConfig{}, nil)

	t.Run("success", func(t *testing.T) {
		body := `{"Body":{"stkCallback":{"MerchantRequestID":"m-1","CheckoutRequestID":"ws_CO_1","ResultCode":0,"ResultDesc":"The service request is processed successfully.",
			"CallbackMetadata":{"Item":[{"Name":"Amount","Value":500},{"Name":"MpesaReceiptNumber","Value":"ABC123"},{"Name":"Balance"},{"Name":"TransactionDate","Value":20250102120405},{"Name":"PhoneNumber","Value":254712345678}]}}}}`

		res := c.HandleCallback([]byte(body))
		assert.True(t, res.Success)
		assert.Equal(t, "ws_CO_1", res.CheckoutRequestID)
		assert.Equal(t, 500.0, res.Amount)
		assert.Equal(t, "ABC123", res.MpesaReceiptNumber)
		assert.Equal(t, "20250102120405", res.TransactionDate)
		assert.Equal(t, "254712345678", res.PhoneNumber)
	})

	t.Run("cancelled by user", func(t *testing.T) {
		body := `{"Body":{"stkCallback":{"MerchantRequestID":"m-1","CheckoutRequestID":"ws_CO_1","ResultCode":1032,"ResultDesc":"Request cancelled by user"}}}`

		res := c.HandleCallback([]byte(body))
		assert.False(t, res.Success)
		assert.Equal(t, "1032", res.ResultCode)
		assert.Equal(t, "Request cancelled by user", res.ResultDesc)
	})

	t.Run("missing receipt", func(t *testing.T) {
		body := `{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_1","ResultCode":0,"CallbackMetadata":{"Item":[{"Name":"Amount","Value":500}]}}}}`

		res := c.HandleCallback([]byte(body))
		assert.False(t, res.Success)
		assert.Equal(t, domain.MpesaCallbackError, res.ResultCode)
	})

	t.Run("malformed", func(t *testing.T) {
		res := c.HandleCallback([]byte(`not json`))
		assert.False(t, res.Success)
		assert.Equal(t, domain.MpesaCallbackError, res.ResultCode)
	})
}
