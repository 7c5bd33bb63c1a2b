package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/jhoicas/stripe-erp-sync/pkg/logger"
)

// Locals key para el correlation id de la petición.
const LocalCorrelationID = "correlation_id"

// HeaderRequestID header por el que llega (o se devuelve) el correlation id.
const HeaderRequestID = fiber.HeaderXRequestID

// RequestID asigna un correlation id (uuid) si la petición no trae X-Request-ID.
func RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     HeaderRequestID,
		Generator:  uuid.NewString,
		ContextKey: LocalCorrelationID,
	})
}

// CorrelationMiddleware guarda en el UserContext un sublogger con el correlation id.
// Debe ir después de RequestID.
func CorrelationMiddleware(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := log.WithCorrelation(c.UserContext(), GetCorrelationID(c))
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// GetCorrelationID devuelve el correlation id del contexto (después de RequestID).
func GetCorrelationID(c *fiber.Ctx) string {
	v := c.Locals(LocalCorrelationID)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
