package controllers

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/ManuelReschke/PayFox/internal/pkg/webhook"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// WebhookResponse is the body of every answered delivery. The endpoint
// returns HTTP 200 for everything after the audit row exists, verification
// and processing failures included, so the provider never enters a retry
// storm over transient internal errors. Persistent problems reach operators
// through the notification port instead.
type WebhookResponse struct {
	Received  bool   `json:"received"`
	Verified  bool   `json:"verified"`
	Processed bool   `json:"processed"`
	Error     string `json:"error,omitempty"`
}

// HandleRazorpayWebhook returns the inbound delivery handler bound to svc.
func HandleRazorpayWebhook(svc *webhook.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rawBody := append([]byte(nil), c.BodyRaw()...)
		if len(rawBody) == 0 || !json.Valid(rawBody) {
			// Nothing to record: an unparsable body is rejected before logging.
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}

		signature := strings.TrimSpace(c.Get(webhook.SignatureHeader))
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		secret, err := svc.WebhookSecret(ctx)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "secret_resolution_failed"})
		}
		if secret == "" {
			log.Error("[Webhook] No webhook secret configured")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook secret not configured"})
		}

		verified := webhook.VerifySignature(rawBody, signature, secret)

		headersJSON, _ := json.Marshal(c.GetReqHeaders())
		entry, err := svc.RecordDelivery(ctx, rawBody, headersJSON, signature, verified)
		if err != nil {
			// No audit row exists, so a provider retry is welcome here.
			log.Errorf("[Webhook] Failed to persist delivery: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
		}

		log.Infof("[Webhook] Delivery recorded (verified=%t, log_id=%d)", verified, entry.ID)

		if !verified {
			log.Warnf("[Webhook] Signature verification failed for log %d", entry.ID)
			svc.NotifyVerificationFailure(entry)
			return c.JSON(WebhookResponse{Received: true})
		}

		if err := svc.ProcessEvent(ctx, rawBody, entry, false); err != nil {
			log.Errorf("[Webhook] Error processing log %d: %v", entry.ID, err)
			svc.NotifyWebhookFailure(entry, err)
			return c.JSON(WebhookResponse{Received: true, Verified: true, Error: err.Error()})
		}

		return c.JSON(WebhookResponse{Received: true, Verified: true, Processed: true})
	}
}
