package dto

// WebhookAck cuerpo de respuesta para todo evento verificado.
type WebhookAck struct {
	Status string `json:"status"`
}

// WebhookErrorResponse cuerpo de respuesta cuando la firma no verifica.
type WebhookErrorResponse struct {
	Error string `json:"error"`
}

// WebhookResult resultado interno del procesamiento (logs, métricas, tests).
type WebhookResult struct {
	EventID   string
	EventType string
	Kind      string
	Outcome   string
	Duplicate bool
}
