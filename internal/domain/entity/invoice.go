package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceRecord factura de venta a registrar en el ERP a partir de un invoice.paid.
type InvoiceRecord struct {
	ProviderInvoiceID string // ID de Stripe (in_...), va en remarks para trazabilidad
	CustomerID        string // ID del cliente en el ERP
	CustomerEmail     string
	Amount            decimal.Decimal // unidades monetarias (no centavos)
	Currency          string
	DueDate           time.Time
}

// AmountFromMinor convierte un monto en unidades menores (centavos) a unidades monetarias.
// 1999 -> 19.99
func AmountFromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
