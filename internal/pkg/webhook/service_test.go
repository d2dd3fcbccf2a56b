package webhook

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PayFox/app/models"
)

// fakeRepo is an in-memory Repository for exercising the service without a
// database. Transactions are keyed by (order_id, reference) like the real
// unique index.
type fakeRepo struct {
	orders       map[string]*models.Order // by local order ID
	transactions map[string]*models.Transaction
	logs         map[uint]*models.WebhookLog
	nextLogID    uint
	nextTxnID    uint
	config       models.DeveloperConfig

	saveOrderErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		orders:       make(map[string]*models.Order),
		transactions: make(map[string]*models.Transaction),
		logs:         make(map[uint]*models.WebhookLog),
	}
}

func txnKey(orderID, reference string) string {
	return orderID + "|" + reference
}

func (f *fakeRepo) addOrder(o *models.Order) *models.Order {
	f.orders[o.ID] = o
	return o
}

func (f *fakeRepo) GetOrderByProviderOrderID(providerOrderID string) (*models.Order, error) {
	for _, o := range f.orders {
		if o.RazorpayOrderID == providerOrderID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetOrderByProviderPaymentID(providerPaymentID string) (*models.Order, error) {
	for _, o := range f.orders {
		if o.RazorpayPaymentID == providerPaymentID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) SaveOrder(order *models.Order) error {
	if f.saveOrderErr != nil {
		return f.saveOrderErr
	}
	cp := *order
	f.orders[order.ID] = &cp
	return nil
}

func (f *fakeRepo) UpsertTransaction(txn *models.Transaction) (bool, error) {
	key := txnKey(txn.OrderID, txn.Reference)
	if existing, ok := f.transactions[key]; ok {
		existing.Status = txn.Status
		existing.PayloadJSON = txn.PayloadJSON
		existing.AmountCents = txn.AmountCents
		existing.Kind = txn.Kind
		*txn = *existing
		return false, nil
	}
	f.nextTxnID++
	txn.ID = f.nextTxnID
	cp := *txn
	f.transactions[key] = &cp
	return true, nil
}

func (f *fakeRepo) CreateTransactionIfAbsent(txn *models.Transaction) (bool, error) {
	key := txnKey(txn.OrderID, txn.Reference)
	if existing, ok := f.transactions[key]; ok {
		*txn = *existing
		return false, nil
	}
	f.nextTxnID++
	txn.ID = f.nextTxnID
	cp := *txn
	f.transactions[key] = &cp
	return true, nil
}

func (f *fakeRepo) CreateWebhookLog(entry *models.WebhookLog) error {
	f.nextLogID++
	entry.ID = f.nextLogID
	cp := *entry
	f.logs[entry.ID] = &cp
	return nil
}

func (f *fakeRepo) GetWebhookLog(id uint) (*models.WebhookLog, error) {
	entry, ok := f.logs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *entry
	return &cp, nil
}

func (f *fakeRepo) ListWebhookLogs(offset, limit int) ([]models.WebhookLog, error) {
	entries := make([]models.WebhookLog, 0, len(f.logs))
	for _, e := range f.logs {
		entries = append(entries, *e)
	}
	return entries, nil
}

func (f *fakeRepo) BumpReplayCount(id uint) error {
	entry, ok := f.logs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	entry.ReplayCount++
	return nil
}

func (f *fakeRepo) GetDeveloperConfig() (*models.DeveloperConfig, error) {
	cp := f.config
	return &cp, nil
}

func (f *fakeRepo) SaveDeveloperConfig(cfg *models.DeveloperConfig) error {
	f.config = *cfg
	return nil
}

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	paymentSuccess       int
	webhookFailures      int
	verificationFailures int
	lastOrder            *models.Order
}

func (n *recordingNotifier) NotifyPaymentSuccess(order *models.Order, txn *models.Transaction) {
	n.paymentSuccess++
	n.lastOrder = order
}

func (n *recordingNotifier) NotifyWebhookFailure(entry *models.WebhookLog, processErr error) {
	n.webhookFailures++
}

func (n *recordingNotifier) NotifyVerificationFailure(entry *models.WebhookLog) {
	n.verificationFailures++
}

type panickyNotifier struct{ recordingNotifier }

func (n *panickyNotifier) NotifyPaymentSuccess(order *models.Order, txn *models.Transaction) {
	panic("smtp exploded")
}

func paymentPayload(event, orderID, paymentID, status string, amount int64) []byte {
	return []byte(fmt.Sprintf(`{
		"event": %q,
		"payload": {"payment": {"entity": {
			"id": %q, "order_id": %q, "status": %q, "amount": %d
		}}}
	}`, event, paymentID, orderID, status, amount))
}

func refundPayload(refundID, paymentID, status string, amount int64) []byte {
	return []byte(fmt.Sprintf(`{
		"event": "refund.processed",
		"payload": {"refund": {"entity": {
			"id": %q, "payment_id": %q, "status": %q, "amount": %d
		}}}
	}`, refundID, paymentID, status, amount))
}

func orderPaidPayload(providerOrderID string, amount int64) []byte {
	return []byte(fmt.Sprintf(`{
		"event": "order.paid",
		"payload": {"order": {"entity": {"id": %q, "amount": %d}}}
	}`, providerOrderID, amount))
}

func newTestService(t *testing.T) (*Service, *fakeRepo, *recordingNotifier) {
	t.Helper()
	repo := newFakeRepo()
	notifier := &recordingNotifier{}
	return NewService(repo, notifier), repo, notifier
}

func recordTestDelivery(t *testing.T, svc *Service, payload []byte, verified bool) *models.WebhookLog {
	t.Helper()
	entry, err := svc.RecordDelivery(context.Background(), payload, []byte(`{}`), "sig", verified)
	require.NoError(t, err)
	return entry
}

func TestProcessEvent_PaymentCaptured(t *testing.T) {
	svc, repo, notifier := newTestService(t)
	repo.addOrder(&models.Order{
		ID:               "ord-1",
		Status:           models.OrderStatusPending,
		TotalAmountCents: 1500,
		RazorpayOrderID:  "order_123",
	})

	payload := paymentPayload("payment.captured", "order_123", "pay_123", "captured", 1500)
	entry := recordTestDelivery(t, svc, payload, true)

	require.NoError(t, svc.ProcessEvent(context.Background(), payload, entry, false))

	order := repo.orders["ord-1"]
	assert.Equal(t, models.OrderStatusPaid, order.Status)
	assert.Equal(t, "pay_123", order.RazorpayPaymentID)
	assert.Equal(t, "sig", order.RazorpaySignature)

	txn, ok := repo.transactions[txnKey("ord-1", "pay_123")]
	require.True(t, ok, "expected a transaction keyed by the payment id")
	assert.Equal(t, models.TransactionStatusSuccess, txn.Status)
	assert.Equal(t, models.TransactionKindPayment, txn.Kind)
	assert.Equal(t, int64(1500), txn.AmountCents)
	assert.Equal(t, 1, notifier.paymentSuccess)
}

func TestProcessEvent_PaymentAuthorized(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.addOrder(&models.Order{ID: "ord-1", Status: models.OrderStatusPending, RazorpayOrderID: "order_123"})

	payload := paymentPayload("payment.authorized", "order_123", "pay_1", "authorized", 900)
	entry := recordTestDelivery(t, svc, payload, true)

	require.NoError(t, svc.ProcessEvent(context.Background(), payload, entry, false))
	assert.Equal(t, models.OrderStatusPaid, repo.orders["ord-1"].Status)
}

func TestProcessEvent_PaymentFailed(t *testing.T) {
	svc, repo, notifier := newTestService(t)
	repo.addOrder(&models.Order{ID: "ord-1", Status: models.OrderStatusPending, RazorpayOrderID: "order_123"})

	payload := paymentPayload("payment.failed", "order_123", "pay_1", "failed", 900)
	entry := recordTestDelivery(t, svc, payload, true)

	require.NoError(t, svc.ProcessEvent(context.Background(), payload, entry, false))
	assert.Equal(t, models.OrderStatusFailed, repo.orders["ord-1"].Status)
	txn := repo.transactions[txnKey("ord-1", "pay_1")]
	require.NotNil(t, txn)
	assert.Equal(t, models.TransactionStatusFailed, txn.Status)
	assert.Zero(t, notifier.paymentSuccess, "failed payments must not trigger success notifications")
}

func TestProcessEvent_PaymentUnknownStatusKeepsOrderStatus(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.addOrder(&models.Order{ID: "ord-1", Status: models.OrderStatusPaid, RazorpayOrderID: "order_123"})

	payload := paymentPayload("payment.dispute", "order_123", "pay_1", "disputed", 900)
	entry := recordTestDelivery(t, svc, payload, true)

	require.NoError(t, svc.ProcessEvent(context.Background(), payload, entry, false))
	assert.Equal(t, models.OrderStatusPaid, repo.orders["ord-1"].Status)
	txn := repo.transactions[txnKey("ord-1", "pay_1")]
	require.NotNil(t, txn)
	assert.Equal(t, models.TransactionStatusPending, txn.Status)
}

func TestProcessEvent_DuplicateDeliveryIsIdempotent(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.addOrder(&models.Order{ID: "ord-1", Status: models.OrderStatusPending, RazorpayOrderID: "order_123"})

	payload := paymentPayload("payment.captured", "order_123", "pay_123", "captured", 1500)
	first := recordTestDelivery(t, svc, payload, true)
	second := recordTestDelivery(t, svc, payload, true)

	require.NoError(t, svc.ProcessEvent(context.Background(), payload, first, false))
	require.NoError(t, svc.ProcessEvent(context.Background(), payload, second, false))

	assert.Len(t, repo.transactions, 1, "duplicate delivery must not create a second transaction")
	assert.Equal(t, models.OrderStatusPaid, repo.orders["ord-1"].Status)
}

func TestProcessEvent_PaymentWithoutOrderID(t *testing.T) {
	svc, repo, _ := newTestService(t)

	payload := paymentPayload("payment.captured", "", "pay_1", "captured", 100)
	entry := recordTestDelivery(t, svc, payload, true)

	require.NoError(t, svc.ProcessEvent(context.Background(), payload, entry, false))
	assert.Empty(t, repo.transactions)
}

func TestProcessEvent_PaymentOrderNotFound(t *testing.T) {
	svc, repo, _ := newTestService(t)

	payload := paymentPayload("payment.captured", "order_missing", "pay_1", "captured", 100)
	entry := recordTestDelivery(t, svc, payload, true)

	require.NoError(t, svc.ProcessEvent(context.Background(), payload, entry, false))
	assert.Empty(t, repo.transactions)
}

func TestProcessEvent_PaymentWithoutPaymentID(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.addOrder(&models.Order{ID: "ord-1", Status: models.OrderStatusPending, RazorpayOrderID: "order_123"})

	payload := paymentPayload("payment.captured", "order_123", "", "captured", 100)
	entry := recordTestDelivery(t, svc, payload, true)

	require.NoError(t, svc.ProcessEvent(context.Background(), payload, entry, false))

	reference := fmt.Sprintf("log-%d", entry.ID)
	txn, ok := repo.transactions[txnKey("ord-1", reference)]
	require.True(t, ok, "expected transaction keyed by the log fallback reference")
	assert.Equal(t, models.TransactionStatusSuccess, txn.Status)
}

func TestProcessEvent_RefundProcessed(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.addOrder(&models.Order{
		ID:                "ord-1",
		Status:            models.OrderStatusPaid,
		RazorpayOrderID:   "order_123",
		RazorpayPaymentID: "pay_123",
	})

	payload := refundPayload("rfnd_1", "pay_123", "processed", 500)
	entry := recordTestDelivery(t, svc, payload, true)

	require.NoError(t, svc.ProcessEvent(context.Background(), payload, entry, false))

	txn, ok := repo.transactions[txnKey("ord-1", "rfnd_1")]
	require.True(t, ok)
	assert.Equal(t, models.TransactionKindRefund, txn.Kind)
	assert.Equal(t, models.TransactionStatusSuccess, txn.Status)
	assert.Equal(t, int64(500), txn.AmountCents)
	// Refunds never touch the order status.
	assert.Equal(t, models.OrderStatusPaid, repo.orders["ord-1"].Status)
}

func TestProcessEvent_RefundUnknownPayment(t *testing.T) {
	svc, repo, _ := newTestService(t)

	payload := refundPayload("rfnd_1", "pay_missing", "processed", 500)
	entry := recordTestDelivery(t, svc, payload, true)

	require.NoError(t, svc.ProcessEvent(context.Background(), payload, entry, false))
	assert.Empty(t, repo.transactions)
}

func TestProcessEvent_RefundCreatedIsPending(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.addOrder(&models.Order{ID: "ord-1", RazorpayOrderID: "order_123", RazorpayPaymentID: "pay_123", Status: models.OrderStatusPaid})

	payload := refundPayload("rfnd_1", "pay_123", "created", 500)
	entry := recordTestDelivery(t, svc, payload, true)

	require.NoError(t, svc.ProcessEvent(context.Background(), payload, entry, false))
	txn := repo.transactions[txnKey("ord-1", "rfnd_1")]
	require.NotNil(t, txn)
	assert.Equal(t, models.TransactionStatusPending, txn.Status)
}

func TestProcessEvent_OrderPaid(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.addOrder(&models.Order{ID: "ord-1", Status: models.OrderStatusPending, RazorpayOrderID: "order_123"})

	payload := orderPaidPayload("order_123", 1500)
	entry := recordTestDelivery(t, svc, payload, true)

	require.NoError(t, svc.ProcessEvent(context.Background(), payload, entry, false))
	assert.Equal(t, models.OrderStatusPaid, repo.orders["ord-1"].Status)

	txn, ok := repo.transactions[txnKey("ord-1", "order-order_123")]
	require.True(t, ok)
	assert.Equal(t, models.TransactionKindOrderPaid, txn.Kind)
	assert.Equal(t, models.TransactionStatusSuccess, txn.Status)
}

func TestProcessEvent_OrderPaidNeverOverwrites(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.addOrder(&models.Order{ID: "ord-1", Status: models.OrderStatusPending, RazorpayOrderID: "order_123"})
	repo.transactions[txnKey("ord-1", "order-order_123")] = &models.Transaction{
		ID:          42,
		OrderID:     "ord-1",
		Reference:   "order-order_123",
		AmountCents: 999,
		Status:      models.TransactionStatusSuccess,
	}

	payload := orderPaidPayload("order_123", 1500)
	entry := recordTestDelivery(t, svc, payload, true)

	require.NoError(t, svc.ProcessEvent(context.Background(), payload, entry, false))
	txn := repo.transactions[txnKey("ord-1", "order-order_123")]
	assert.Equal(t, int64(999), txn.AmountCents, "order.paid must not overwrite an existing row")
}

func TestProcessEvent_UnknownEventIsIgnored(t *testing.T) {
	svc, repo, _ := newTestService(t)

	payload := []byte(`{"event":"subscription.activated","payload":{}}`)
	entry := recordTestDelivery(t, svc, payload, true)

	require.NoError(t, svc.ProcessEvent(context.Background(), payload, entry, false))
	assert.Empty(t, repo.transactions)
}

func TestProcessEvent_InvalidPayloadStillBumpsReplay(t *testing.T) {
	svc, repo, _ := newTestService(t)

	payload := []byte(`{broken`)
	entry := &models.WebhookLog{PayloadJSON: string(payload), Verified: true}
	require.NoError(t, repo.CreateWebhookLog(entry))

	err := svc.ProcessEvent(context.Background(), payload, entry, true)
	require.Error(t, err)
	assert.Equal(t, uint(1), repo.logs[entry.ID].ReplayCount,
		"replay counter records the attempt even when the handler fails")
}

func TestProcessEvent_SaveOrderFailureSurfaces(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.addOrder(&models.Order{ID: "ord-1", Status: models.OrderStatusPending, RazorpayOrderID: "order_123"})
	repo.saveOrderErr = errors.New("db gone")

	payload := paymentPayload("payment.captured", "order_123", "pay_1", "captured", 100)
	entry := recordTestDelivery(t, svc, payload, true)

	require.Error(t, svc.ProcessEvent(context.Background(), payload, entry, false))
}

func TestProcessEvent_NotifierPanicIsSwallowed(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &panickyNotifier{})
	repo.addOrder(&models.Order{ID: "ord-1", Status: models.OrderStatusPending, RazorpayOrderID: "order_123"})

	payload := paymentPayload("payment.captured", "order_123", "pay_1", "captured", 100)
	entry := recordTestDelivery(t, svc, payload, true)

	require.NoError(t, svc.ProcessEvent(context.Background(), payload, entry, false),
		"a panicking notifier must not fail the ledger mutation")
	assert.Equal(t, models.OrderStatusPaid, repo.orders["ord-1"].Status)
}

func TestReplay(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.addOrder(&models.Order{ID: "ord-1", Status: models.OrderStatusPending, RazorpayOrderID: "order_123"})

	payload := paymentPayload("payment.captured", "order_123", "pay_1", "captured", 100)
	entry := recordTestDelivery(t, svc, payload, true)
	require.NoError(t, svc.ProcessEvent(context.Background(), payload, entry, false))

	// A later manual correction is undone by replaying the delivery.
	repo.orders["ord-1"].Status = models.OrderStatusPending

	replayed, err := svc.Replay(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(1), replayed.ReplayCount)
	assert.Equal(t, models.OrderStatusPaid, repo.orders["ord-1"].Status)
	assert.Len(t, repo.transactions, 1, "replay converges onto the same transaction row")
	assert.Equal(t, uint(1), repo.logs[entry.ID].ReplayCount)
}

func TestReplay_UnverifiedRejected(t *testing.T) {
	svc, repo, _ := newTestService(t)

	payload := paymentPayload("payment.captured", "order_123", "pay_1", "captured", 100)
	entry := recordTestDelivery(t, svc, payload, false)

	_, err := svc.Replay(context.Background(), entry.ID)
	require.ErrorIs(t, err, ErrNotVerified)
	assert.Equal(t, uint(0), repo.logs[entry.ID].ReplayCount)
}

func TestReplay_MissingLog(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Replay(context.Background(), 404)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestReplayMany_ContinuesPastFailures(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.addOrder(&models.Order{ID: "ord-1", Status: models.OrderStatusPending, RazorpayOrderID: "order_123"})

	good := recordTestDelivery(t, svc, paymentPayload("payment.captured", "order_123", "pay_1", "captured", 100), true)
	unverified := recordTestDelivery(t, svc, paymentPayload("payment.captured", "order_123", "pay_2", "captured", 100), false)
	broken := &models.WebhookLog{PayloadJSON: `{broken`, Verified: true}
	require.NoError(t, repo.CreateWebhookLog(broken))

	submitted, results := svc.ReplayMany(context.Background(), []uint{good.ID, unverified.ID, 404, broken.ID})

	assert.Equal(t, 2, submitted, "verified entries count even when their handler fails")
	require.Len(t, results, 4)

	assert.True(t, results[0].Replayed)
	assert.Empty(t, results[0].Error)

	assert.False(t, results[1].Replayed)
	assert.Equal(t, ErrNotVerified.Error(), results[1].Error)

	assert.False(t, results[2].Replayed)
	assert.Equal(t, "log entry not found", results[2].Error)

	assert.True(t, results[3].Replayed)
	assert.NotEmpty(t, results[3].Error)
}

func TestRecordDelivery(t *testing.T) {
	svc, repo, _ := newTestService(t)

	entry, err := svc.RecordDelivery(context.Background(), []byte(`{"event":"x"}`), []byte(`{"Host":"h"}`), "  sig  ", true)
	require.NoError(t, err)
	assert.NotZero(t, entry.ID)
	assert.Equal(t, models.ProviderRazorpay, entry.Provider)
	assert.Equal(t, "sig", entry.SignatureHeader)
	assert.True(t, entry.Verified)

	stored := repo.logs[entry.ID]
	require.NotNil(t, stored)
	assert.Equal(t, `{"event":"x"}`, stored.PayloadJSON)
}

func TestWebhookSecretUsesDeveloperConfig(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.config = models.DeveloperConfig{WebhookSecret: "row-secret"}

	secret, err := svc.WebhookSecret(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "row-secret", secret)
}

func TestUpdateDeveloperConfig(t *testing.T) {
	svc, repo, _ := newTestService(t)

	cfg, err := svc.UpdateDeveloperConfig(context.Background(), "  whsec  ", " rzp_id ", " rzp_secret ")
	require.NoError(t, err)
	assert.Equal(t, "whsec", cfg.WebhookSecret)
	assert.Equal(t, "rzp_id", cfg.RazorpayKeyID)
	assert.Equal(t, "rzp_secret", cfg.RazorpayKeySecret)
	assert.Equal(t, "whsec", repo.config.WebhookSecret)
}
