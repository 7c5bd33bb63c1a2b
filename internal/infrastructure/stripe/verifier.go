package stripe

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	stripego "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/jhoicas/stripe-erp-sync/internal/application/ports"
	"github.com/jhoicas/stripe-erp-sync/internal/domain"
	"github.com/jhoicas/stripe-erp-sync/internal/domain/entity"
)

var _ ports.SignatureVerifier = (*Verifier)(nil)

// Verifier valida el header Stripe-Signature con el secreto del endpoint y
// convierte el evento en un entity.WebhookEvent tipado.
type Verifier struct {
	secret    string
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier construye el verificador. tolerance 0 usa la de Stripe (5 min).
func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &Verifier{secret: secret, tolerance: tolerance, now: time.Now}
}

// WithClock reemplaza el reloj usado para VerifiedAt (tests).
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.now = now
	return v
}

// Verify falla cerrado: cualquier problema de firma o de formato devuelve domain.ErrInvalidSignature.
func (v *Verifier) Verify(payload []byte, signature string) (*entity.WebhookEvent, error) {
	if strings.TrimSpace(signature) == "" {
		return nil, fmt.Errorf("%w: header Stripe-Signature ausente", domain.ErrInvalidSignature)
	}
	if v.secret == "" {
		return nil, fmt.Errorf("%w: secreto de webhook no configurado", domain.ErrInvalidSignature)
	}

	ev, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}

	out, err := toWebhookEvent(&ev)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}
	out.VerifiedAt = v.now().UTC()
	return out, nil
}

func toWebhookEvent(ev *stripego.Event) (*entity.WebhookEvent, error) {
	out := &entity.WebhookEvent{
		ID:      ev.ID,
		Type:    string(ev.Type),
		Kind:    entity.ParseEventKind(string(ev.Type)),
		Created: time.Unix(ev.Created, 0).UTC(),
	}
	if out.Kind == entity.EventUnhandled {
		return out, nil
	}
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		return nil, errors.New("evento sin data.object")
	}

	switch out.Kind {
	case entity.EventInvoicePaid, entity.EventInvoicePaymentFailed:
		var inv stripego.Invoice
		if err := json.Unmarshal(ev.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("deserializar invoice: %w", err)
		}
		out.Invoice = &entity.InvoicePayload{
			ID:            inv.ID,
			CustomerEmail: inv.CustomerEmail,
			CustomerID:    customerID(inv.Customer),
			Currency:      string(inv.Currency),
			AmountPaid:    inv.AmountPaid,
		}
	case entity.EventCustomerCreated:
		var c stripego.Customer
		if err := json.Unmarshal(ev.Data.Raw, &c); err != nil {
			return nil, fmt.Errorf("deserializar customer: %w", err)
		}
		out.Customer = &entity.CustomerPayload{ID: c.ID, Email: c.Email}
	case entity.EventSubscriptionCreated, entity.EventSubscriptionDeleted:
		var s stripego.Subscription
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("deserializar subscription: %w", err)
		}
		out.Subscription = &entity.SubscriptionPayload{
			ID:            s.ID,
			CustomerID:    customerID(s.Customer),
			CustomerEmail: customerEmail(s.Customer),
			Status:        string(s.Status),
		}
	}
	return out, nil
}

// customerID soporta el campo customer como ID ("cus_...") o como objeto expandido.
func customerID(c *stripego.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

func customerEmail(c *stripego.Customer) string {
	if c == nil {
		return ""
	}
	return c.Email
}
