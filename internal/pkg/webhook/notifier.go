package webhook

import "github.com/ManuelReschke/PayFox/app/models"

// Notifier is the outbound notification port. Implementations are best
// effort: callers ignore failures and never roll back ledger state because
// of them.
type Notifier interface {
	NotifyPaymentSuccess(order *models.Order, txn *models.Transaction)
	NotifyWebhookFailure(entry *models.WebhookLog, processErr error)
	NotifyVerificationFailure(entry *models.WebhookLog)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) NotifyPaymentSuccess(*models.Order, *models.Transaction) {}
func (NopNotifier) NotifyWebhookFailure(*models.WebhookLog, error)          {}
func (NopNotifier) NotifyVerificationFailure(*models.WebhookLog)            {}
