package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	webhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stripe_erp_webhook_events_total",
			Help: "Eventos de webhook verificados, por variante y resultado",
		},
		[]string{"kind", "outcome"},
	)

	signatureFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stripe_erp_webhook_signature_failures_total",
			Help: "Peticiones rechazadas por firma inválida",
		},
	)

	erpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stripe_erp_erp_requests_total",
			Help: "Llamadas al API del ERP, por operación y resultado",
		},
		[]string{"operation", "result"},
	)

	erpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stripe_erp_erp_request_duration_seconds",
			Help:    "Latencia de las llamadas al API del ERP",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		},
		[]string{"operation"},
	)
)

// RecordWebhookEvent cuenta un evento verificado.
func RecordWebhookEvent(kind, outcome string) {
	webhookEventsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordSignatureFailure cuenta una petición rechazada en la verificación.
func RecordSignatureFailure() {
	signatureFailuresTotal.Inc()
}

// ObserveERPRequest registra una llamada al ERP. result: ok, http_error, transport_error.
func ObserveERPRequest(operation, result string, duration time.Duration) {
	erpRequestsTotal.WithLabelValues(operation, result).Inc()
	erpRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Handler expone el registro por defecto en formato Prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}
