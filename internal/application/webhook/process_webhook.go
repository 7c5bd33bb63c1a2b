package webhook

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jhoicas/stripe-erp-sync/internal/application/dto"
	"github.com/jhoicas/stripe-erp-sync/internal/application/ports"
	"github.com/jhoicas/stripe-erp-sync/internal/domain"
	"github.com/jhoicas/stripe-erp-sync/internal/infrastructure/metrics"
)

// NopLedger desactiva la deduplicación: todo evento se considera nuevo.
type NopLedger struct{}

// Claim siempre acepta el evento.
func (NopLedger) Claim(context.Context, string, string) (bool, error) { return true, nil }

// Release no hace nada.
func (NopLedger) Release(context.Context, string) error { return nil }

// ProcessWebhookUseCase orquesta Verifier -> Ledger -> Dispatcher para una petición.
type ProcessWebhookUseCase struct {
	verifier   ports.SignatureVerifier
	ledger     ports.EventLedger
	dispatcher *Dispatcher
}

// NewProcessWebhookUseCase construye el caso de uso. ledger nil equivale a NopLedger.
func NewProcessWebhookUseCase(verifier ports.SignatureVerifier, ledger ports.EventLedger, dispatcher *Dispatcher) *ProcessWebhookUseCase {
	if ledger == nil {
		ledger = NopLedger{}
	}
	return &ProcessWebhookUseCase{verifier: verifier, ledger: ledger, dispatcher: dispatcher}
}

// Handle verifica y despacha el evento de forma síncrona.
// Solo devuelve error (envolviendo domain.ErrInvalidSignature) si la firma no verifica;
// cualquier fallo posterior queda en logs y el evento se confirma igualmente.
func (uc *ProcessWebhookUseCase) Handle(ctx context.Context, payload []byte, signature string) (*dto.WebhookResult, error) {
	log := zerolog.Ctx(ctx)

	ev, err := uc.verifier.Verify(payload, signature)
	if err != nil {
		metrics.RecordSignatureFailure()
		log.Warn().Err(err).Int("payload_bytes", len(payload)).Msg("webhook rechazado")
		if !errors.Is(err, domain.ErrInvalidSignature) {
			err = fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
		}
		return nil, err
	}

	// Sublogger con los datos del evento para todo lo que cuelga de esta petición.
	evLog := log.With().Str("event_id", ev.ID).Str("event_type", ev.Type).Logger()
	ctx = evLog.WithContext(ctx)

	result := &dto.WebhookResult{
		EventID:   ev.ID,
		EventType: ev.Type,
		Kind:      ev.Kind.String(),
	}

	fresh, err := uc.ledger.Claim(ctx, ev.ID, ev.Type)
	if err != nil {
		evLog.Warn().Err(err).Msg("registro de eventos no disponible, se procesa sin deduplicar")
		fresh = true
	}
	if !fresh {
		evLog.Info().Msg("evento duplicado, se confirma sin despachar")
		result.Duplicate = true
		result.Outcome = "duplicate"
		metrics.RecordWebhookEvent(result.Kind, result.Outcome)
		return result, nil
	}

	outcome := uc.dispatcher.Dispatch(ctx, ev)
	result.Outcome = string(outcome)

	// Un fallo del ERP no deja el evento marcado: la reentrega manual debe despacharse.
	if outcome == OutcomeFailed {
		if err := uc.ledger.Release(ctx, ev.ID); err != nil {
			evLog.Warn().Err(err).Msg("no se pudo liberar el evento en el registro")
		}
	}
	metrics.RecordWebhookEvent(result.Kind, result.Outcome)

	evLog.Info().Str("outcome", result.Outcome).Msg("webhook procesado")
	return result, nil
}
