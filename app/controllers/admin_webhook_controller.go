package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/ManuelReschke/PayFox/internal/pkg/webhook"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// The webhook inspector: operators list logged deliveries, inspect one and
// re-drive state by replaying verified entries against the live ledger.

// HandleWebhookLogList returns recent log entries, newest first.
func HandleWebhookLogList(svc *webhook.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := adminContext()
		defer cancel()

		entries, err := svc.ListLogs(ctx, c.QueryInt("offset", 0), c.QueryInt("limit", 50))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "log_list_failed"})
		}
		return c.JSON(fiber.Map{"logs": entries})
	}
}

// HandleWebhookLogDetail returns one log entry.
func HandleWebhookLogDetail(svc *webhook.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid log id"})
		}

		ctx, cancel := adminContext()
		defer cancel()

		entry, err := svc.GetLog(ctx, uint(id))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "log entry not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "log_lookup_failed"})
		}
		return c.JSON(entry)
	}
}

// HandleWebhookReplay replays one verified log entry against current state.
func HandleWebhookReplay(svc *webhook.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid log id"})
		}

		ctx, cancel := adminContext()
		defer cancel()

		entry, err := svc.Replay(ctx, uint(id))
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "log entry not found"})
		case errors.Is(err, webhook.ErrNotVerified):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": webhook.ErrNotVerified.Error()})
		case err != nil:
			// Submitted but the handler failed; the bump already happened.
			return c.JSON(fiber.Map{"replayed": true, "replay_count": entry.ReplayCount, "error": err.Error()})
		}
		return c.JSON(fiber.Map{"replayed": true, "replay_count": entry.ReplayCount})
	}
}

type bulkReplayRequest struct {
	IDs []uint `json:"ids" validate:"required,min=1,dive,gt=0"`
}

// HandleWebhookBulkReplay replays many entries, continuing past failures.
func HandleWebhookBulkReplay(svc *webhook.Service) fiber.Handler {
	validate := validator.New()
	return func(c *fiber.Ctx) error {
		var req bulkReplayRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if err := validate.Struct(req); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
		}

		ctx, cancel := adminContext()
		defer cancel()

		submitted, results := svc.ReplayMany(ctx, req.IDs)
		return c.JSON(fiber.Map{"submitted": submitted, "results": results})
	}
}

type developerConfigRequest struct {
	WebhookSecret     string `json:"webhook_secret" validate:"max=255"`
	RazorpayKeyID     string `json:"razorpay_key_id" validate:"max=255"`
	RazorpayKeySecret string `json:"razorpay_key_secret" validate:"max=255"`
}

// HandleDeveloperConfigShow returns the operator secret overrides.
func HandleDeveloperConfigShow(svc *webhook.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := adminContext()
		defer cancel()

		cfg, err := svc.DeveloperConfig(ctx)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "config_lookup_failed"})
		}
		return c.JSON(cfg)
	}
}

// HandleDeveloperConfigUpdate replaces the operator secret overrides.
func HandleDeveloperConfigUpdate(svc *webhook.Service) fiber.Handler {
	validate := validator.New()
	return func(c *fiber.Ctx) error {
		var req developerConfigRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if err := validate.Struct(req); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
		}

		ctx, cancel := adminContext()
		defer cancel()

		cfg, err := svc.UpdateDeveloperConfig(ctx, req.WebhookSecret, req.RazorpayKeyID, req.RazorpayKeySecret)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "config_update_failed"})
		}
		return c.JSON(cfg)
	}
}

func adminContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
