package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"beverageHub/domain"
	"beverageHub/internal/repository/mpesa"
	"beverageHub/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrders struct {
	mu     sync.Mutex
	orders map[uint]domain.Order
}

func (f *fakeOrders) FindByID(ctx context.Context, id uint) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return domain.Order{}, errOrderNotFound
	}
	return o, nil
}

func (f *fakeOrders) AttachMpesaRequest(ctx context.Context, orderID uint, details domain.MpesaDetails) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.orders[orderID]
	o.MpesaDetails = details
	o.PaymentStatus = domain.PaymentPending
	f.orders[orderID] = o
	return nil
}

func (f *fakeOrders) SettlePayment(ctx context.Context, s domain.PaymentSettlement) (domain.Order, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, o := range f.orders {
		if o.MpesaDetails.CheckoutRequestID == nil || *o.MpesaDetails.CheckoutRequestID != s.CheckoutRequestID {
			continue
		}
		if o.PaymentStatus != domain.PaymentPending {
			return o, false, nil
		}
		if s.Success {
			o.PaymentStatus = domain.PaymentCompleted
			o.OrderStatus = domain.OrderConfirmed
			o.PaidAt = &s.SettledAt
			o.MpesaDetails.MpesaReceiptNumber = s.MpesaReceiptNumber
		} else {
			o.PaymentStatus = domain.PaymentFailed
			o.MpesaDetails.FailureReason = s.ResultDesc
		}
		f.orders[id] = o
		return o, true, nil
	}
	return domain.Order{}, false, errOrderNotFound
}

type fakeWallet struct {
	mu       sync.Mutex
	txs      []domain.WalletTransaction
	balances map[uint]float64
}

func (f *fakeWallet) CreateTransaction(ctx context.Context, tx *domain.WalletTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx.ID = uint(len(f.txs) + 1)
	f.txs = append(f.txs, *tx)
	return nil
}

func (f *fakeWallet) FindTransactionByCheckoutID(ctx context.Context, checkoutRequestID string) (domain.WalletTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tx := range f.txs {
		if tx.CheckoutRequestID != nil && *tx.CheckoutRequestID == checkoutRequestID {
			return tx, nil
		}
	}
	return domain.WalletTransaction{}, errTransactionNotFound
}

func (f *fakeWallet) SettleTransaction(ctx context.Context, s domain.PaymentSettlement) (domain.WalletTransaction, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, tx := range f.txs {
		if tx.CheckoutRequestID == nil || *tx.CheckoutRequestID != s.CheckoutRequestID {
			continue
		}
		if tx.Status != domain.PaymentPending {
			return tx, false, nil
		}
		if s.Success {
			tx.Status = domain.PaymentCompleted
			tx.ReceiptNumber = s.MpesaReceiptNumber
			f.balances[tx.UserID] += tx.Amount
		} else {
			tx.Status = domain.PaymentFailed
		}
		tx.ResultDesc = s.ResultDesc
		f.txs[i] = tx
		return tx, true, nil
	}
	return domain.WalletTransaction{}, false, errTransactionNotFound
}

type fakeGateway struct {
	mu         sync.Mutex
	configured bool
	pushes     int
	queryCode  string
	queryErr   error
	parser     *mpesa.Client
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{configured: true, queryCode: domain.MpesaErrProcessing, parser: mpesa.NewClient(config.MpesaConfig{}, nil)}
}

func (g *fakeGateway) IsConfigured() bool { return g.configured }

func (g *fakeGateway) ConfigStatus() domain.MpesaConfigStatus {
	return domain.MpesaConfigStatus{Configured: g.configured}
}

func (g *fakeGateway) InitiateSTKPush(ctx context.Context, phone string, amount float64, ref, desc string) (domain.STKPushResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if amount < domain.MpesaMinAmount || amount > domain.MpesaMaxAmount {
		return domain.STKPushResponse{}, domain.NewError(domain.ErrValidation, "bad amount")
	}
	g.pushes++
	return domain.STKPushResponse{
		MerchantRequestID: fmt.Sprintf("m-%d", g.pushes),
		CheckoutRequestID: fmt.Sprintf("ws_CO_%d", g.pushes),
		ResponseCode:      "0",
		CustomerMessage:   "Success. Request accepted for processing",
	}, nil
}

func (g *fakeGateway) QuerySTKPushStatus(ctx context.Context, id string) (domain.STKQueryResponse, error) {
	if g.queryErr != nil {
		return domain.STKQueryResponse{}, g.queryErr
	}
	return domain.STKQueryResponse{CheckoutRequestID: id, ResultCode: g.queryCode, ResultDesc: "query result"}, nil
}

func (g *fakeGateway) HandleCallback(body []byte) domain.CallbackResult {
	return g.parser.HandleCallback(body)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.PaymentCompletedEvent
}

func (p *fakePublisher) PublishPaymentCompleted(ctx context.Context, event domain.PaymentCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

type fixture struct {
	svc       *PaymentsService
	orders    *fakeOrders
	wallet    *fakeWallet
	gateway   *fakeGateway
	publisher *fakePublisher
}

func newFixture() *fixture {
	f := &fixture{
		orders:    &fakeOrders{orders: map[uint]domain.Order{}},
		wallet:    &fakeWallet{balances: map[uint]float64{}},
		gateway:   newFakeGateway(),
		publisher: &fakePublisher{},
	}
	f.svc = NewPaymentsService(f.orders, f.wallet, f.gateway, f.publisher)
	f.svc.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }
	return f
}

func successCallback(checkoutID string, amount int, receipt string) []byte {
	return []byte(fmt.Sprintf(`{"Body":{"stkCallback":{"MerchantRequestID":"m-1","CheckoutRequestID":%q,"ResultCode":0,"ResultDesc":"The service request is processed successfully.","CallbackMetadata":{"Item":[{"Name":"Amount","Value":%d},{"Name":"MpesaReceiptNumber","Value":%q},{"Name":"TransactionDate","Value":20250301100000},{"Name":"PhoneNumber","Value":254712345678}]}}}}`, checkoutID, amount, receipt))
}

func failedCallback(checkoutID string) []byte {
	return []byte(fmt.Sprintf(`{"Body":{"stkCallback":{"MerchantRequestID":"m-1","CheckoutRequestID":%q,"ResultCode":1032,"ResultDesc":"Request cancelled by user"}}}`, checkoutID))
}

func TestTopUpRecordsPendingTransaction(t *testing.T) {
	f := newFixture()

	res, err := f.svc.TopUp(context.Background(), 1, 50000, "0712345678")
	require.NoError(t, err)

	assert.Equal(t, "ws_CO_1", res.CheckoutRequestID)
	require.Len(t, f.wallet.txs, 1)
	tx := f.wallet.txs[0]
	assert.Equal(t, domain.PaymentPending, tx.Status)
	assert.Equal(t, domain.TransactionCredit, tx.Type)
	assert.Equal(t, 50000.0, tx.Amount)
	require.NotNil(t, tx.CheckoutRequestID)
	assert.Equal(t, "ws_CO_1", *tx.CheckoutRequestID)
	assert.Equal(t, "254712345678", tx.PhoneNumber)
	assert.NotEmpty(t, tx.Reference)
}

func TestTopUpRejectsBeforeGateway(t *testing.T) {
	f := newFixture()

	_, err := f.svc.TopUp(context.Background(), 1, 70001, "254712345678")
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = f.svc.TopUp(context.Background(), 1, 100, "12")
	assert.True(t, errors.Is(err, domain.ErrValidation))

	f.gateway.configured = false
	_, err = f.svc.TopUp(context.Background(), 1, 100, "254712345678")
	assert.True(t, errors.Is(err, domain.ErrPaymentNotConfigured))

	assert.Equal(t, 0, f.gateway.pushes)
	assert.Empty(t, f.wallet.txs)
}

func TestDuplicateCallbackCreditsOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.TopUp(ctx, 1, 500, "254712345678")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		ack := f.svc.HandleCallback(ctx, successCallback("ws_CO_1", 500, "ABC123"))
		assert.Equal(t, 0, ack.ResultCode)
	}

	assert.Equal(t, 500.0, f.wallet.balances[1])
	assert.Equal(t, domain.PaymentCompleted, f.wallet.txs[0].Status)
	assert.Equal(t, "ABC123", f.wallet.txs[0].ReceiptNumber)
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, domain.SettlementSourceWallet, f.publisher.events[0].Source)
}

func TestCallbackAndPollRace(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.gateway.queryCode = domain.MpesaResultSuccess

	_, err := f.svc.TopUp(ctx, 1, 500, "254712345678")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.svc.HandleCallback(ctx, successCallback("ws_CO_1", 500, "ABC123"))
		}()
		go func() {
			defer wg.Done()
			_, _ = f.svc.TopUpStatus(ctx, 1, "ws_CO_1")
		}()
	}
	wg.Wait()

	assert.Equal(t, 500.0, f.wallet.balances[1])
	assert.Len(t, f.publisher.events, 1)
}

func TestFailedCallbackDoesNotCredit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.TopUp(ctx, 1, 500, "254712345678")
	require.NoError(t, err)

	f.svc.HandleCallback(ctx, failedCallback("ws_CO_1"))

	status, err := f.svc.TopUpStatus(ctx, 1, "ws_CO_1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentFailed, status.Status)
	assert.Equal(t, "Request cancelled by user", status.ResultDesc)
	assert.Zero(t, f.wallet.balances[1])
	assert.Empty(t, f.publisher.events)
}

func TestCallbackAlwaysAcknowledges(t *testing.T) {
	f := newFixture()

	assert.Equal(t, 0, f.svc.HandleCallback(context.Background(), []byte("garbage")).ResultCode)
	assert.Equal(t, 0, f.svc.HandleCallback(context.Background(), successCallback("ws_CO_unknown", 10, "X")).ResultCode)
	assert.Equal(t, 0, f.svc.HandleTimeout(context.Background(), []byte(`{}`)).ResultCode)
}

func TestTopUpStatusOwnership(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.TopUp(ctx, 1, 500, "254712345678")
	require.NoError(t, err)

	_, err = f.svc.TopUpStatus(ctx, 2, "ws_CO_1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	status, err := f.svc.TopUpStatus(ctx, 1, "ws_CO_1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, status.Status)
}

func pendingOrder(f *fixture, id, userID uint, amount float64) {
	f.orders.orders[id] = domain.Order{
		ID:              id,
		OrderNumber:     fmt.Sprintf("ORD-%08d", id),
		UserID:          userID,
		FinalAmount:     amount,
		PaymentMethod:   domain.PaymentMethodMpesa,
		PaymentStatus:   domain.PaymentPending,
		OrderStatus:     domain.OrderPending,
		DeliveryAddress: domain.DeliveryAddress{PhoneNumber: "254712345678"},
	}
}

func TestCheckoutPaymentFlow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	pendingOrder(f, 10, 1, 560)

	res, err := f.svc.InitiateCheckoutPayment(ctx, 1, 10, "")
	require.NoError(t, err)
	assert.Equal(t, "ws_CO_1", res.CheckoutRequestID)
	assert.Equal(t, 560.0, res.Amount)

	f.svc.HandleCallback(ctx, successCallback("ws_CO_1", 560, "QWE987"))

	status, err := f.svc.OrderPaymentStatus(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCompleted, status.Status)
	assert.Equal(t, "QWE987", status.MpesaReceiptNumber)
	assert.Equal(t, domain.OrderConfirmed, f.orders.orders[10].OrderStatus)
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, uint(10), f.publisher.events[0].OrderID)

	_, err = f.svc.InitiateCheckoutPayment(ctx, 1, 10, "")
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestCheckoutPaymentRejections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	pendingOrder(f, 10, 1, 560)

	_, err := f.svc.InitiateCheckoutPayment(ctx, 2, 10, "")
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	_, err = f.svc.InitiateCheckoutPayment(ctx, 1, 99, "")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	f.gateway.configured = false
	_, err = f.svc.InitiateCheckoutPayment(ctx, 1, 10, "")
	assert.True(t, errors.Is(err, domain.ErrPaymentNotConfigured))
}

func TestCheckoutPaymentReinitiation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	pendingOrder(f, 10, 1, 560)
	start := f.svc.now()

	first, err := f.svc.InitiateCheckoutPayment(ctx, 1, 10, "")
	require.NoError(t, err)

	f.svc.now = func() time.Time { return start.Add(30 * time.Second) }
	_, err = f.svc.InitiateCheckoutPayment(ctx, 1, 10, "")
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.Equal(t, 1, f.gateway.pushes)

	t.Run("earlier prompt still settles the order", func(t *testing.T) {
		f.svc.HandleCallback(ctx, successCallback(first.CheckoutRequestID, 560, "QKR1"))
		assert.Equal(t, domain.PaymentCompleted, f.orders.orders[10].PaymentStatus)
	})

	t.Run("stale prompt can be replaced", func(t *testing.T) {
		pendingOrder(f, 11, 1, 560)
		f.svc.now = func() time.Time { return start }
		stale, err := f.svc.InitiateCheckoutPayment(ctx, 1, 11, "")
		require.NoError(t, err)

		f.svc.now = func() time.Time { return start.Add(domain.MpesaPromptWindow) }
		fresh, err := f.svc.InitiateCheckoutPayment(ctx, 1, 11, "")
		require.NoError(t, err)
		assert.NotEqual(t, stale.CheckoutRequestID, fresh.CheckoutRequestID)
	})

	t.Run("failed prompt can be retried at once", func(t *testing.T) {
		pendingOrder(f, 12, 1, 560)
		f.svc.now = func() time.Time { return start }
		res, err := f.svc.InitiateCheckoutPayment(ctx, 1, 12, "")
		require.NoError(t, err)

		f.svc.HandleCallback(ctx, failedCallback(res.CheckoutRequestID))
		require.Equal(t, domain.PaymentFailed, f.orders.orders[12].PaymentStatus)

		_, err = f.svc.InitiateCheckoutPayment(ctx, 1, 12, "")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentPending, f.orders.orders[12].PaymentStatus)
	})
}

func TestOrderPaymentStatusQuery(t *testing.T) {
	t.Run("query failure keeps pending", func(t *testing.T) {
		f := newFixture()
		ctx := context.Background()
		pendingOrder(f, 10, 1, 560)
		_, err := f.svc.InitiateCheckoutPayment(ctx, 1, 10, "")
		require.NoError(t, err)

		f.gateway.queryErr = domain.NewError(domain.ErrGateway, "gateway down")
		status, err := f.svc.OrderPaymentStatus(ctx, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentPending, status.Status)
	})

	t.Run("still processing keeps pending", func(t *testing.T) {
		f := newFixture()
		ctx := context.Background()
		pendingOrder(f, 10, 1, 560)
		_, err := f.svc.InitiateCheckoutPayment(ctx, 1, 10, "")
		require.NoError(t, err)

		status, err := f.svc.OrderPaymentStatus(ctx, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentPending, status.Status)
	})

	t.Run("customer still entering PIN keeps the order payable", func(t *testing.T) {
		f := newFixture()
		ctx := context.Background()
		pendingOrder(f, 10, 1, 560)
		res, err := f.svc.InitiateCheckoutPayment(ctx, 1, 10, "")
		require.NoError(t, err)

		f.gateway.queryCode = domain.MpesaResultAwaitingPIN
		status, err := f.svc.OrderPaymentStatus(ctx, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentPending, status.Status)

		f.svc.HandleCallback(ctx, successCallback(res.CheckoutRequestID, 560, "QKX1037"))
		assert.Equal(t, domain.PaymentCompleted, f.orders.orders[10].PaymentStatus)
		assert.Equal(t, domain.OrderConfirmed, f.orders.orders[10].OrderStatus)
	})

	t.Run("non-zero result fails the order payment", func(t *testing.T) {
		f := newFixture()
		ctx := context.Background()
		pendingOrder(f, 10, 1, 560)
		_, err := f.svc.InitiateCheckoutPayment(ctx, 1, 10, "")
		require.NoError(t, err)

		f.gateway.queryCode = "1032"
		status, err := f.svc.OrderPaymentStatus(ctx, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentFailed, status.Status)
		assert.Equal(t, domain.OrderPending, f.orders.orders[10].OrderStatus)
	})
}
