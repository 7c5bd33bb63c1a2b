package ports

import (
	"context"

	"github.com/jhoicas/stripe-erp-sync/internal/domain/entity"
)

// SignatureVerifier valida la firma del webhook y devuelve el evento ya tipado.
// Cualquier fallo (header ausente, HMAC incorrecto, timestamp vencido, JSON roto)
// debe envolver domain.ErrInvalidSignature.
type SignatureVerifier interface {
	Verify(payload []byte, signature string) (*entity.WebhookEvent, error)
}

// CustomerDirectory consulta de solo lectura al proveedor para la resolución secundaria de email.
type CustomerDirectory interface {
	// LookupEmail devuelve el email del cliente del proveedor; "" si no tiene.
	LookupEmail(ctx context.Context, customerID string) (string, error)
}

// ERPClient puerto de salida hacia el API de recursos del ERP.
// Todas las operaciones son seguras para uso concurrente.
type ERPClient interface {
	// ResolveCustomer busca el cliente por email exacto y lo crea si no existe.
	// Devuelve domain.ErrErpUnavailable si no se obtiene un ID utilizable.
	// Un fallo de transporte en la búsqueda también devuelve ErrErpUnavailable, sin intentar crear.
	ResolveCustomer(ctx context.Context, email string) (string, error)
	CreateInvoice(ctx context.Context, invoice entity.InvoiceRecord) error
	CreateSubscription(ctx context.Context, sub entity.SubscriptionRecord) error
	// CancelSubscription devuelve domain.ErrNotFound si el ERP no tiene la suscripción.
	CancelSubscription(ctx context.Context, providerSubscriptionID string) error
}

// EventLedger registro opcional de eventos ya procesados (idempotencia por ID de evento).
type EventLedger interface {
	// Claim registra el evento y devuelve false si ya estaba registrado.
	Claim(ctx context.Context, eventID, eventType string) (bool, error)
	// Release borra el registro para que una reentrega vuelva a despacharse.
	Release(ctx context.Context, eventID string) error
}
