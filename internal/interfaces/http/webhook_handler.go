package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stripe-erp-sync/internal/application/dto"
	"github.com/jhoicas/stripe-erp-sync/internal/application/webhook"
	"github.com/jhoicas/stripe-erp-sync/internal/domain"
)

// HeaderStripeSignature header con la firma del proveedor.
const HeaderStripeSignature = "Stripe-Signature"

// WebhookHandler punto de entrada de los webhooks del proveedor (público; autenticado por firma).
type WebhookHandler struct {
	uc *webhook.ProcessWebhookUseCase
}

// NewWebhookHandler construye el handler.
func NewWebhookHandler(uc *webhook.ProcessWebhookUseCase) *WebhookHandler {
	return &WebhookHandler{uc: uc}
}

// Receive verifica y despacha el evento de forma síncrona.
// POST /webhook
// 400 solo si la firma no verifica; cualquier otro caso responde 200 {"status":"received"}.
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	// c.Body() solo es válido durante el handler.
	payload := append([]byte(nil), c.Body()...)
	signature := c.Get(HeaderStripeSignature)

	if _, err := h.uc.Handle(c.UserContext(), payload, signature); errors.Is(err, domain.ErrInvalidSignature) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.WebhookErrorResponse{Error: err.Error()})
	}
	return c.Status(fiber.StatusOK).JSON(dto.WebhookAck{Status: "received"})
}
