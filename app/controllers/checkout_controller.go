package controllers

import (
	"context"
	"time"

	"github.com/ManuelReschke/PayFox/internal/pkg/checkout"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

type createOrderRequest struct {
	AmountCents   int64             `json:"amount_cents" validate:"required,gt=0"`
	CustomerEmail string            `json:"customer_email" validate:"required,email"`
	Notes         map[string]string `json:"notes" validate:"omitempty,max=16"`
}

// HandleCreateOrder creates a local order plus its provider order and hands
// back what client-side payment collection needs. The provider order id is
// persisted before the response, so webhook deliveries can always resolve
// the order.
func HandleCreateOrder(svc *checkout.Service) fiber.Handler {
	validate := validator.New()
	return func(c *fiber.Ctx) error {
		var req createOrderRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if err := validate.Struct(req); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
		}

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		order, providerOrder, err := svc.CreateOrder(ctx, req.AmountCents, req.CustomerEmail, req.Notes)
		if err != nil {
			log.Errorf("[Checkout] Order creation failed: %v", err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "order_creation_failed"})
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"order":          order,
			"provider_order": providerOrder,
		})
	}
}
