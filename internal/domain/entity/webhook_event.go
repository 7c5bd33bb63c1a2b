package entity

import "time"

// EventKind variantes de evento que el servicio sabe sincronizar.
type EventKind int

const (
	EventUnhandled EventKind = iota
	EventInvoicePaid
	EventCustomerCreated
	EventSubscriptionCreated
	EventSubscriptionDeleted
	EventInvoicePaymentFailed
)

var eventKindByType = map[string]EventKind{
	"invoice.paid":                  EventInvoicePaid,
	"customer.created":              EventCustomerCreated,
	"customer.subscription.created": EventSubscriptionCreated,
	"customer.subscription.deleted": EventSubscriptionDeleted,
	"invoice.payment_failed":        EventInvoicePaymentFailed,
}

// ParseEventKind mapea el tipo de evento del proveedor a su variante.
// Cualquier tipo no listado es EventUnhandled.
func ParseEventKind(eventType string) EventKind {
	if k, ok := eventKindByType[eventType]; ok {
		return k
	}
	return EventUnhandled
}

func (k EventKind) String() string {
	switch k {
	case EventInvoicePaid:
		return "invoice_paid"
	case EventCustomerCreated:
		return "customer_created"
	case EventSubscriptionCreated:
		return "subscription_created"
	case EventSubscriptionDeleted:
		return "subscription_deleted"
	case EventInvoicePaymentFailed:
		return "invoice_payment_failed"
	default:
		return "unhandled"
	}
}

// WebhookEvent evento verificado. Según Kind solo uno de los payloads está presente;
// EventUnhandled no lleva payload.
type WebhookEvent struct {
	ID         string
	Type       string
	Kind       EventKind
	Created    time.Time
	VerifiedAt time.Time

	Invoice      *InvoicePayload      // invoice.paid, invoice.payment_failed
	Customer     *CustomerPayload     // customer.created
	Subscription *SubscriptionPayload // customer.subscription.*
}

// InvoicePayload campos extraídos de un objeto invoice.
type InvoicePayload struct {
	ID            string
	CustomerEmail string
	CustomerID    string
	Currency      string
	AmountPaid    int64 // unidades menores
}

// CustomerPayload campos extraídos de un objeto customer.
type CustomerPayload struct {
	ID    string
	Email string
}

// SubscriptionPayload campos extraídos de un objeto subscription.
// CustomerEmail solo viene si el cliente está expandido en el evento.
type SubscriptionPayload struct {
	ID            string
	CustomerID    string
	CustomerEmail string
	Status        string
}
