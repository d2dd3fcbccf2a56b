package router

import (
	"github.com/ManuelReschke/PayFox/app/controllers"
	"github.com/ManuelReschke/PayFox/internal/pkg/env"
	"github.com/ManuelReschke/PayFox/internal/pkg/webhook"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
)

// registerAdminRoutes installs the operator surface: the webhook inspector
// (list, detail, single and bulk replay) and the developer config editor.
func (h HttpRouter) registerAdminRoutes(app *fiber.App, svc *webhook.Service) {
	admin := app.Group("/admin", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("ADMIN_USER", "admin"): env.GetEnv("ADMIN_PASSWORD", "admin"),
		},
	}))

	admin.Get("/webhooks", controllers.HandleWebhookLogList(svc))
	admin.Post("/webhooks/replay", controllers.HandleWebhookBulkReplay(svc))
	admin.Get("/webhooks/:id", controllers.HandleWebhookLogDetail(svc))
	admin.Post("/webhooks/:id/replay", controllers.HandleWebhookReplay(svc))

	admin.Get("/developer-config", controllers.HandleDeveloperConfigShow(svc))
	admin.Put("/developer-config", controllers.HandleDeveloperConfigUpdate(svc))
}
