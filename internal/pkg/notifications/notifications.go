package notifications

import (
	"fmt"
	"strings"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/internal/pkg/env"
	"github.com/ManuelReschke/PayFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/PayFox/internal/pkg/mail"
	"github.com/gofiber/fiber/v2/log"
)

// MailNotifier implements the webhook notification port. Emails are handed
// to the background queue so delivery latency never stalls webhook
// responses; when the queue is unavailable it falls back to a direct
// synchronous send. Failures are logged and swallowed either way.
type MailNotifier struct {
	queue *jobqueue.Queue
}

// NewMailNotifier creates a notifier that dispatches through the given
// queue. A nil queue means every send is synchronous.
func NewMailNotifier(queue *jobqueue.Queue) *MailNotifier {
	return &MailNotifier{queue: queue}
}

// NotifyPaymentSuccess emails the customer a payment confirmation and the
// admin a payment notice.
func (n *MailNotifier) NotifyPaymentSuccess(order *models.Order, txn *models.Transaction) {
	if order == nil || txn == nil {
		return
	}

	if to := strings.TrimSpace(order.CustomerEmail); to != "" {
		subject := fmt.Sprintf("Payment Confirmation - Order #%s", order.ID)
		body := fmt.Sprintf(
			"Hello,\r\n\r\n"+
				"we have received your payment for order %s.\r\n\r\n"+
				"Amount: %s\r\n"+
				"Payment reference: %s\r\n\r\n"+
				"Thank you for your purchase!\r\n",
			order.ID, formatAmount(txn.AmountCents), txn.Reference,
		)
		n.send(to, subject, body)
	}

	if admin := adminEmail(); admin != "" {
		subject := fmt.Sprintf("[PayFox] New Payment Received - Order #%s", order.ID)
		body := fmt.Sprintf(
			"New payment received:\r\n\r\n"+
				"Order: %s\r\n"+
				"Customer: %s\r\n"+
				"Amount: %s\r\n"+
				"Payment reference: %s\r\n"+
				"Order status: %s\r\n",
			order.ID, order.CustomerEmail, formatAmount(txn.AmountCents), txn.Reference, order.Status,
		)
		n.send(admin, subject, body)
	}
}

// NotifyWebhookFailure alerts the admin that a verified delivery failed in
// processing and is waiting for a replay.
func (n *MailNotifier) NotifyWebhookFailure(entry *models.WebhookLog, processErr error) {
	admin := adminEmail()
	if admin == "" || entry == nil {
		return
	}

	errMsg := "unknown error"
	if processErr != nil {
		errMsg = processErr.Error()
	}
	subject := fmt.Sprintf("[PayFox] Webhook Processing Failed - %s", entry.Provider)
	body := fmt.Sprintf(
		"Webhook processing failed:\r\n\r\n"+
			"Provider: %s\r\n"+
			"Received: %s\r\n"+
			"Verified: %t\r\n"+
			"Error: %s\r\n\r\n"+
			"Webhook log ID: %d (replayable via the inspector)\r\n\r\n"+
			"Payload:\r\n%s\r\n",
		entry.Provider, entry.ReceivedAt.Format("2006-01-02 15:04:05"), entry.Verified,
		errMsg, entry.ID, entry.PayloadJSON,
	)
	n.send(admin, subject, body)
}

// NotifyVerificationFailure alerts the admin that a delivery failed
// signature verification. It may be a misconfigured secret or a spoofed
// webhook.
func (n *MailNotifier) NotifyVerificationFailure(entry *models.WebhookLog) {
	admin := adminEmail()
	if admin == "" || entry == nil {
		return
	}

	sig := entry.SignatureHeader
	if len(sig) > 20 {
		sig = sig[:20] + "..."
	}
	subject := fmt.Sprintf("[PayFox] Webhook Verification Failed - %s", entry.Provider)
	body := fmt.Sprintf(
		"Webhook signature verification failed:\r\n\r\n"+
			"Provider: %s\r\n"+
			"Received: %s\r\n"+
			"Signature: %s\r\n\r\n"+
			"This could indicate:\r\n"+
			"1. An incorrect webhook secret configured\r\n"+
			"2. A potential security threat (spoofed webhook)\r\n\r\n"+
			"Webhook log ID: %d\r\n",
		entry.Provider, entry.ReceivedAt.Format("2006-01-02 15:04:05"), sig, entry.ID,
	)
	n.send(admin, subject, body)
}

func (n *MailNotifier) send(to, subject, body string) {
	if n.queue != nil {
		payload := jobqueue.EmailJobPayload{To: to, Subject: subject, Body: body}
		if _, err := n.queue.EnqueueJob(jobqueue.JobTypeEmailNotification, payload.ToMap()); err == nil {
			return
		} else {
			log.Warnf("[Notifications] Enqueue failed, sending directly: %v", err)
		}
	}
	if err := mail.SendMail(to, subject, body); err != nil {
		log.Errorf("[Notifications] Failed to send mail to %s: %v", to, err)
	}
}

func adminEmail() string {
	return strings.TrimSpace(env.GetEnv("ADMIN_EMAIL", ""))
}

func formatAmount(cents int64) string {
	return fmt.Sprintf("%.2f INR", float64(cents)/100)
}
