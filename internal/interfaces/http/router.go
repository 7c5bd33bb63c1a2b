package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jhoicas/stripe-erp-sync/internal/application/dto"
	"github.com/jhoicas/stripe-erp-sync/internal/application/webhook"
	"github.com/jhoicas/stripe-erp-sync/internal/infrastructure/metrics"
	"github.com/jhoicas/stripe-erp-sync/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AppName        string
	Logger         *logger.Logger
	ProcessWebhook *webhook.ProcessWebhookUseCase
}

// Router registra las rutas del servicio.
func Router(app *fiber.App, deps RouterDeps) {
	app.Use(RequestID())
	app.Use(CorrelationMiddleware(deps.Logger))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(dto.HealthResponse{Status: "ok", Service: deps.AppName})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// Webhook del proveedor (público, autenticado por firma)
	webhookHandler := NewWebhookHandler(deps.ProcessWebhook)
	app.Post("/webhook", webhookHandler.Receive)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "ruta no encontrada"})
	})
}
