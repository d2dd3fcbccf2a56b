package webhook

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// ErrNotVerified is returned when a replay is requested for a log entry
// whose signature never verified. Unverified deliveries are not replayable.
var ErrNotVerified = errors.New("webhook log entry is not verified")

// Service routes verified provider events to their handlers and applies
// them to the order/transaction ledger idempotently.
type Service struct {
	repo     Repository
	notifier Notifier
}

// NewService creates a webhook service from an injected repository and
// notification port.
func NewService(repo Repository, notifier Notifier) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Service{repo: repo, notifier: notifier}
}

// NewServiceFromDB creates a webhook service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, notifier Notifier) *Service {
	return NewService(NewRepository(db), notifier)
}

// WebhookSecret resolves the verification secret for the current request
// through the developer-config fallback chain.
func (s *Service) WebhookSecret(ctx context.Context) (string, error) {
	_ = ctx
	cfg, err := s.repo.GetDeveloperConfig()
	if err != nil {
		return "", err
	}
	return ResolveWebhookSecret(cfg), nil
}

// RecordDelivery persists an inbound delivery to the audit log. It runs
// before any handler so a later processing failure can always be replayed.
func (s *Service) RecordDelivery(ctx context.Context, payload, headersJSON []byte, signatureHeader string, verified bool) (*models.WebhookLog, error) {
	_ = ctx
	entry := &models.WebhookLog{
		Provider:        models.ProviderRazorpay,
		PayloadJSON:     string(payload),
		HeadersJSON:     string(headersJSON),
		SignatureHeader: strings.TrimSpace(signatureHeader),
		Verified:        verified,
	}
	if err := s.repo.CreateWebhookLog(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// ProcessEvent dispatches a delivery payload to the matching event-family
// handler. Unknown event types are logged and ignored so future provider
// events never break ingestion. When replay is true the log entry's replay
// counter is bumped after the handler returns, success or not.
func (s *Service) ProcessEvent(ctx context.Context, payload []byte, entry *models.WebhookLog, replay bool) error {
	_ = ctx
	var procErr error

	ev, err := ParseEnvelope(payload)
	if err != nil {
		procErr = fmt.Errorf("parse event payload: %w", err)
	} else {
		class, _ := ClassifyEvent(ev.Event)
		switch class {
		case EventPayment:
			procErr = s.handlePaymentEvent(ev, entry, payload)
		case EventRefund:
			procErr = s.handleRefundEvent(ev, entry, payload)
		case EventOrderPaid:
			procErr = s.handleOrderPaidEvent(ev, entry, payload)
		default:
			log.Warnf("[Webhook] Unhandled event type %q (log_id=%d)", ev.Event, entry.ID)
		}
	}

	if replay {
		if err := s.repo.BumpReplayCount(entry.ID); err != nil {
			log.Errorf("[Webhook] Failed to bump replay count for log %d: %v", entry.ID, err)
		} else {
			entry.ReplayCount++
			log.Infof("[Webhook] Log %d replayed (total replays: %d)", entry.ID, entry.ReplayCount)
		}
	}
	return procErr
}

func (s *Service) handlePaymentEvent(ev *Envelope, entry *models.WebhookLog, raw []byte) error {
	p := ev.Payload.Payment.Entity
	if p.OrderID == "" {
		log.Warnf("[Webhook] Payment event %q carries no order_id (log_id=%d)", ev.Event, entry.ID)
		return nil
	}

	order, err := s.repo.GetOrderByProviderOrderID(p.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("[Webhook] No order for razorpay_order_id %q (log_id=%d)", p.OrderID, entry.ID)
			return nil
		}
		return err
	}

	oldStatus := order.Status
	txnStatus := models.TransactionStatusPending
	switch p.Status {
	case "captured", "authorized":
		order.Status = models.OrderStatusPaid
		txnStatus = models.TransactionStatusSuccess
	case "failed":
		order.Status = models.OrderStatusFailed
		txnStatus = models.TransactionStatusFailed
	case "pending":
		order.Status = models.OrderStatusPending
	default:
		// The order keeps its prior status for statuses we do not know.
		log.Warnf("[Webhook] Unknown payment status %q for order %s", p.Status, order.ID)
	}

	if p.ID != "" {
		order.RazorpayPaymentID = p.ID
	}
	if entry.SignatureHeader != "" {
		order.RazorpaySignature = entry.SignatureHeader
	}
	if err := s.repo.SaveOrder(order); err != nil {
		return fmt.Errorf("save order %s: %w", order.ID, err)
	}
	if oldStatus != order.Status {
		log.Infof("[Webhook] Order %s status changed: %s -> %s", order.ID, oldStatus, order.Status)
	}

	reference := p.ID
	if reference == "" {
		reference = fmt.Sprintf("log-%d", entry.ID)
	}
	txn := &models.Transaction{
		OrderID:     order.ID,
		Provider:    models.ProviderRazorpay,
		Kind:        models.TransactionKindPayment,
		AmountCents: p.Amount,
		Status:      txnStatus,
		PayloadJSON: string(raw),
		Reference:   reference,
	}
	created, err := s.repo.UpsertTransaction(txn)
	if err != nil {
		return fmt.Errorf("upsert transaction %q for order %s: %w", reference, order.ID, err)
	}
	if created {
		log.Infof("[Webhook] Created transaction %d for order %s", txn.ID, order.ID)
	} else {
		log.Infof("[Webhook] Updated existing transaction %d for order %s", txn.ID, order.ID)
	}

	if txnStatus == models.TransactionStatusSuccess && order.IsPaid() {
		s.safeNotifyPaymentSuccess(order, txn)
	}
	return nil
}

func (s *Service) handleRefundEvent(ev *Envelope, entry *models.WebhookLog, raw []byte) error {
	r := ev.Payload.Refund.Entity
	if r.PaymentID == "" {
		log.Warnf("[Webhook] Refund event %q carries no payment_id (log_id=%d)", ev.Event, entry.ID)
		return nil
	}

	// Refunds are keyed by payment, not by provider order id.
	order, err := s.repo.GetOrderByProviderPaymentID(r.PaymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("[Webhook] No order for payment_id %q (log_id=%d)", r.PaymentID, entry.ID)
			return nil
		}
		return err
	}

	txnStatus := models.TransactionStatusPending
	if r.Status == "processed" {
		txnStatus = models.TransactionStatusSuccess
	}

	reference := r.ID
	if reference == "" {
		reference = fmt.Sprintf("refund-log-%d", entry.ID)
	}
	// Refund amounts are stored positive; the kind column carries the context.
	txn := &models.Transaction{
		OrderID:     order.ID,
		Provider:    models.ProviderRazorpay,
		Kind:        models.TransactionKindRefund,
		AmountCents: r.Amount,
		Status:      txnStatus,
		PayloadJSON: string(raw),
		Reference:   reference,
	}
	created, err := s.repo.UpsertTransaction(txn)
	if err != nil {
		return fmt.Errorf("upsert refund transaction %q for order %s: %w", reference, order.ID, err)
	}
	if created {
		log.Infof("[Webhook] Created refund transaction %d for order %s", txn.ID, order.ID)
	} else {
		log.Infof("[Webhook] Updated refund transaction %d for order %s", txn.ID, order.ID)
	}
	return nil
}

func (s *Service) handleOrderPaidEvent(ev *Envelope, entry *models.WebhookLog, raw []byte) error {
	o := ev.Payload.Order.Entity
	if o.ID == "" {
		log.Warnf("[Webhook] order.paid event carries no order id (log_id=%d)", entry.ID)
		return nil
	}

	order, err := s.repo.GetOrderByProviderOrderID(o.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("[Webhook] No order for razorpay_order_id %q (log_id=%d)", o.ID, entry.ID)
			return nil
		}
		return err
	}

	oldStatus := order.Status
	order.Status = models.OrderStatusPaid
	if err := s.repo.SaveOrder(order); err != nil {
		return fmt.Errorf("save order %s: %w", order.ID, err)
	}
	log.Infof("[Webhook] Order %s marked paid via order.paid (was: %s)", order.ID, oldStatus)

	// order.paid is corroborating evidence, not authoritative amount data:
	// an existing payment transaction is never overwritten by it.
	txn := &models.Transaction{
		OrderID:     order.ID,
		Provider:    models.ProviderRazorpay,
		Kind:        models.TransactionKindOrderPaid,
		AmountCents: o.Amount,
		Status:      models.TransactionStatusSuccess,
		PayloadJSON: string(raw),
		Reference:   fmt.Sprintf("order-%s", o.ID),
	}
	created, err := s.repo.CreateTransactionIfAbsent(txn)
	if err != nil {
		return fmt.Errorf("create order.paid transaction for order %s: %w", order.ID, err)
	}
	if created {
		log.Infof("[Webhook] Created transaction %d from order.paid event", txn.ID)
	}
	return nil
}

// Replay re-runs a previously verified log entry against current ledger
// state. Unverified entries are rejected.
func (s *Service) Replay(ctx context.Context, logID uint) (*models.WebhookLog, error) {
	entry, err := s.repo.GetWebhookLog(logID)
	if err != nil {
		return nil, err
	}
	if !entry.Verified {
		return nil, ErrNotVerified
	}
	if err := s.ProcessEvent(ctx, []byte(entry.PayloadJSON), entry, true); err != nil {
		return entry, err
	}
	return entry, nil
}

// ReplayResult reports the outcome of one entry in a bulk replay.
type ReplayResult struct {
	LogID    uint   `json:"log_id"`
	Replayed bool   `json:"replayed"`
	Error    string `json:"error,omitempty"`
}

// ReplayMany replays each entry independently and continues past individual
// failures. It returns the number of entries actually submitted to the
// router (unverified or missing entries are skipped, not submitted).
func (s *Service) ReplayMany(ctx context.Context, logIDs []uint) (int, []ReplayResult) {
	submitted := 0
	results := make([]ReplayResult, 0, len(logIDs))

	for _, id := range logIDs {
		_, err := s.Replay(ctx, id)
		switch {
		case err == nil:
			submitted++
			results = append(results, ReplayResult{LogID: id, Replayed: true})
		case errors.Is(err, ErrNotVerified):
			results = append(results, ReplayResult{LogID: id, Error: ErrNotVerified.Error()})
		case errors.Is(err, gorm.ErrRecordNotFound):
			results = append(results, ReplayResult{LogID: id, Error: "log entry not found"})
		default:
			// Submitted but the handler failed; the batch continues.
			submitted++
			results = append(results, ReplayResult{LogID: id, Replayed: true, Error: err.Error()})
			log.Errorf("[Webhook] Bulk replay of log %d failed: %v", id, err)
		}
	}
	return submitted, results
}

// GetLog returns one audit log entry.
func (s *Service) GetLog(ctx context.Context, logID uint) (*models.WebhookLog, error) {
	_ = ctx
	return s.repo.GetWebhookLog(logID)
}

// ListLogs returns recent audit log entries, newest first.
func (s *Service) ListLogs(ctx context.Context, offset, limit int) ([]models.WebhookLog, error) {
	_ = ctx
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListWebhookLogs(offset, limit)
}

// DeveloperConfig returns the operator secret overrides.
func (s *Service) DeveloperConfig(ctx context.Context) (*models.DeveloperConfig, error) {
	_ = ctx
	return s.repo.GetDeveloperConfig()
}

// UpdateDeveloperConfig replaces the operator secret overrides.
func (s *Service) UpdateDeveloperConfig(ctx context.Context, webhookSecret, keyID, keySecret string) (*models.DeveloperConfig, error) {
	_ = ctx
	cfg, err := s.repo.GetDeveloperConfig()
	if err != nil {
		return nil, err
	}
	cfg.WebhookSecret = strings.TrimSpace(webhookSecret)
	cfg.RazorpayKeyID = strings.TrimSpace(keyID)
	cfg.RazorpayKeySecret = strings.TrimSpace(keySecret)
	if err := s.repo.SaveDeveloperConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NotifyWebhookFailure forwards a processing failure to the notification
// port, swallowing anything the notifier throws.
func (s *Service) NotifyWebhookFailure(entry *models.WebhookLog, processErr error) {
	defer s.recoverNotifier("webhook failure")
	s.notifier.NotifyWebhookFailure(entry, processErr)
}

// NotifyVerificationFailure forwards a signature failure to the
// notification port, swallowing anything the notifier throws.
func (s *Service) NotifyVerificationFailure(entry *models.WebhookLog) {
	defer s.recoverNotifier("verification failure")
	s.notifier.NotifyVerificationFailure(entry)
}

func (s *Service) safeNotifyPaymentSuccess(order *models.Order, txn *models.Transaction) {
	defer s.recoverNotifier("payment success")
	s.notifier.NotifyPaymentSuccess(order, txn)
}

func (s *Service) recoverNotifier(kind string) {
	if r := recover(); r != nil {
		log.Errorf("[Webhook] Notifier panicked sending %s notification: %v", kind, r)
	}
}
