package webhook

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/stripe-erp-sync/internal/application/ports"
	"github.com/jhoicas/stripe-erp-sync/internal/domain"
	"github.com/jhoicas/stripe-erp-sync/internal/domain/entity"
)

// Outcome resultado de despachar un evento. Ninguno produce respuesta no exitosa.
type Outcome string

const (
	OutcomeSynced   Outcome = "synced"   // efecto aplicado en el ERP
	OutcomeSkipped  Outcome = "skipped"  // datos incompletos o suscripción inexistente
	OutcomeFailed   Outcome = "failed"   // el ERP falló; queda en logs
	OutcomeObserved Outcome = "observed" // solo observabilidad, sin mutación
	OutcomeIgnored  Outcome = "ignored"  // tipo de evento no manejado
)

// DispatchConfig parámetros fijos del mapeo evento -> ERP.
type DispatchConfig struct {
	InvoiceDueDays   int
	SubscriptionPlan string
}

// Dispatcher traduce cada evento verificado a operaciones idempotentes del ERP.
// No guarda estado entre peticiones.
type Dispatcher struct {
	erp       ports.ERPClient
	customers ports.CustomerDirectory
	cfg       DispatchConfig
}

// NewDispatcher construye el despachador.
func NewDispatcher(erp ports.ERPClient, customers ports.CustomerDirectory, cfg DispatchConfig) *Dispatcher {
	return &Dispatcher{erp: erp, customers: customers, cfg: cfg}
}

// Dispatch ejecuta la acción correspondiente a ev.Kind.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *entity.WebhookEvent) Outcome {
	switch ev.Kind {
	case entity.EventInvoicePaid:
		return d.invoicePaid(ctx, ev)
	case entity.EventCustomerCreated:
		return d.customerCreated(ctx, ev)
	case entity.EventSubscriptionCreated:
		return d.subscriptionCreated(ctx, ev)
	case entity.EventSubscriptionDeleted:
		return d.subscriptionDeleted(ctx, ev)
	case entity.EventInvoicePaymentFailed:
		return d.invoicePaymentFailed(ctx, ev)
	case entity.EventUnhandled:
		zerolog.Ctx(ctx).Debug().Str("event_type", ev.Type).Msg("tipo de evento no manejado, se confirma sin acción")
		return OutcomeIgnored
	default:
		return OutcomeIgnored
	}
}

func (d *Dispatcher) invoicePaid(ctx context.Context, ev *entity.WebhookEvent) Outcome {
	log := zerolog.Ctx(ctx)
	inv := ev.Invoice
	if inv == nil {
		return d.skip(ctx, ev, domain.ErrMissingEmail)
	}

	email, err := d.resolveEmail(ctx, inv.CustomerEmail, inv.CustomerID)
	if err != nil {
		return d.skip(ctx, ev, err)
	}

	customerID, err := d.erp.ResolveCustomer(ctx, email)
	if err != nil {
		return d.fail(ctx, ev, "resolver cliente ERP", err)
	}

	record := entity.InvoiceRecord{
		ProviderInvoiceID: inv.ID,
		CustomerID:        customerID,
		CustomerEmail:     email,
		Amount:            entity.AmountFromMinor(inv.AmountPaid),
		Currency:          inv.Currency,
		DueDate:           ev.VerifiedAt.AddDate(0, 0, d.cfg.InvoiceDueDays),
	}
	if err := d.erp.CreateInvoice(ctx, record); err != nil {
		return d.fail(ctx, ev, "crear factura ERP", err)
	}

	log.Info().
		Str("invoice_id", inv.ID).
		Str("erp_customer", customerID).
		Str("amount", record.Amount.StringFixed(2)).
		Msg("factura sincronizada")
	return OutcomeSynced
}

func (d *Dispatcher) customerCreated(ctx context.Context, ev *entity.WebhookEvent) Outcome {
	if ev.Customer == nil || normalizeEmail(ev.Customer.Email) == "" {
		return d.skip(ctx, ev, domain.ErrMissingEmail)
	}

	customerID, err := d.erp.ResolveCustomer(ctx, normalizeEmail(ev.Customer.Email))
	if err != nil {
		return d.fail(ctx, ev, "resolver cliente ERP", err)
	}
	zerolog.Ctx(ctx).Info().Str("erp_customer", customerID).Msg("cliente sincronizado")
	return OutcomeSynced
}

func (d *Dispatcher) subscriptionCreated(ctx context.Context, ev *entity.WebhookEvent) Outcome {
	sub := ev.Subscription
	if sub == nil {
		return d.skip(ctx, ev, domain.ErrMissingEmail)
	}

	email, err := d.resolveEmail(ctx, sub.CustomerEmail, sub.CustomerID)
	if err != nil {
		return d.skip(ctx, ev, err)
	}

	customerID, err := d.erp.ResolveCustomer(ctx, email)
	if err != nil {
		return d.fail(ctx, ev, "resolver cliente ERP", err)
	}

	record := entity.SubscriptionRecord{
		ProviderSubscriptionID: sub.ID,
		CustomerID:             customerID,
		CustomerEmail:          email,
		Status:                 entity.ParseSubscriptionStatus(sub.Status),
		Plan:                   d.cfg.SubscriptionPlan,
	}
	if err := d.erp.CreateSubscription(ctx, record); err != nil {
		return d.fail(ctx, ev, "crear suscripción ERP", err)
	}

	zerolog.Ctx(ctx).Info().
		Str("subscription_id", sub.ID).
		Str("erp_customer", customerID).
		Str("status", string(record.Status)).
		Msg("suscripción sincronizada")
	return OutcomeSynced
}

func (d *Dispatcher) subscriptionDeleted(ctx context.Context, ev *entity.WebhookEvent) Outcome {
	log := zerolog.Ctx(ctx)
	if ev.Subscription == nil || ev.Subscription.ID == "" {
		log.Info().Str("event_id", ev.ID).Msg("evento de cancelación sin ID de suscripción")
		return OutcomeSkipped
	}

	err := d.erp.CancelSubscription(ctx, ev.Subscription.ID)
	switch {
	case err == nil:
		log.Info().Str("subscription_id", ev.Subscription.ID).Msg("suscripción cancelada en ERP")
		return OutcomeSynced
	case errors.Is(err, domain.ErrNotFound):
		log.Info().Str("subscription_id", ev.Subscription.ID).Msg("suscripción inexistente en ERP, nada que cancelar")
		return OutcomeSkipped
	default:
		return d.fail(ctx, ev, "cancelar suscripción ERP", err)
	}
}

func (d *Dispatcher) invoicePaymentFailed(ctx context.Context, ev *entity.WebhookEvent) Outcome {
	e := zerolog.Ctx(ctx).Warn().Str("event_id", ev.ID)
	if ev.Invoice != nil {
		e = e.Str("invoice_id", ev.Invoice.ID).
			Str("customer_email", ev.Invoice.CustomerEmail).
			Str("customer_id", ev.Invoice.CustomerID)
	}
	e.Msg("pago de factura fallido")
	return OutcomeObserved
}

// resolveEmail usa el email directo y, si falta, lo consulta al proveedor por ID de cliente.
// Sin email resoluble devuelve domain.ErrMissingEmail.
func (d *Dispatcher) resolveEmail(ctx context.Context, direct, customerID string) (string, error) {
	if email := normalizeEmail(direct); email != "" {
		return email, nil
	}
	if customerID == "" || d.customers == nil {
		return "", domain.ErrMissingEmail
	}

	start := time.Now()
	email, err := d.customers.LookupEmail(ctx, customerID)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).
			Str("customer_id", customerID).
			Dur("elapsed", time.Since(start)).
			Msg("no se pudo consultar el cliente en el proveedor")
		return "", domain.ErrMissingEmail
	}
	if email = normalizeEmail(email); email == "" {
		return "", domain.ErrMissingEmail
	}
	return email, nil
}

func (d *Dispatcher) skip(ctx context.Context, ev *entity.WebhookEvent, reason error) Outcome {
	zerolog.Ctx(ctx).Info().
		Str("event_id", ev.ID).
		Str("event_type", ev.Type).
		Str("reason", reason.Error()).
		Msg("evento confirmado sin efectos en ERP")
	return OutcomeSkipped
}

func (d *Dispatcher) fail(ctx context.Context, ev *entity.WebhookEvent, step string, err error) Outcome {
	zerolog.Ctx(ctx).Error().Err(err).
		Str("event_id", ev.ID).
		Str("event_type", ev.Type).
		Str("step", step).
		Msg("sincronización con ERP fallida")
	return OutcomeFailed
}

func normalizeEmail(s string) string {
	return strings.TrimSpace(s)
}
