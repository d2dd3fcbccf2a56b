package webhook

import (
	"strings"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/internal/pkg/env"
)

// ResolveWebhookSecret picks the secret used to verify inbound deliveries.
// Priority: developer-config override, then the deployment-wide
// WEBHOOK_SECRET, then the Razorpay API key secret. First non-empty wins.
// cfg may be nil when no developer config row exists yet.
func ResolveWebhookSecret(cfg *models.DeveloperConfig) string {
	if cfg != nil {
		if s := strings.TrimSpace(cfg.WebhookSecret); s != "" {
			return s
		}
	}
	if s := strings.TrimSpace(env.GetEnv("WEBHOOK_SECRET", "")); s != "" {
		return s
	}
	_, keySecret := ResolveRazorpayKeys(cfg)
	return keySecret
}

// ResolveRazorpayKeys returns the API key pair, preferring developer-config
// overrides over the environment.
func ResolveRazorpayKeys(cfg *models.DeveloperConfig) (keyID, keySecret string) {
	if cfg != nil {
		keyID = strings.TrimSpace(cfg.RazorpayKeyID)
		keySecret = strings.TrimSpace(cfg.RazorpayKeySecret)
	}
	if keyID == "" {
		keyID = strings.TrimSpace(env.GetEnv("RAZORPAY_KEY_ID", ""))
	}
	if keySecret == "" {
		keySecret = strings.TrimSpace(env.GetEnv("RAZORPAY_KEY_SECRET", ""))
	}
	return keyID, keySecret
}
