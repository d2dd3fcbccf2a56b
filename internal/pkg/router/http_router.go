package router

import (
	"time"

	"github.com/ManuelReschke/PayFox/app/controllers"
	"github.com/ManuelReschke/PayFox/internal/pkg/cache"
	"github.com/ManuelReschke/PayFox/internal/pkg/database"
	"github.com/ManuelReschke/PayFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/PayFox/internal/pkg/notifications"
	"github.com/ManuelReschke/PayFox/internal/pkg/webhook"

	"github.com/gofiber/fiber/v2"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	notifier := notifications.NewMailNotifier(jobqueue.GetManager().GetQueue())
	svc := webhook.NewServiceFromDB(database.GetDB(), notifier)

	// Inbound provider deliveries
	app.Post("/webhooks/razorpay", controllers.HandleRazorpayWebhook(svc))

	app.Get("/health", handleHealth)

	h.registerAdminRoutes(app, svc)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

// handleHealth reports whether the database and cache are reachable. The
// cache degrades notification dispatch only, so it never fails the check.
func handleHealth(c *fiber.Ctx) error {
	dbOK := false
	if db := database.GetDB(); db != nil {
		if sqlDB, err := db.DB(); err == nil {
			dbOK = sqlDB.Ping() == nil
		}
	}

	status := fiber.StatusOK
	if !dbOK {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{
		"database": dbOK,
		"cache":    cache.Healthy(2 * time.Second),
	})
}
