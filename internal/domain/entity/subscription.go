package entity

import "strings"

// SubscriptionStatus estado de una suscripción tal como lo entiende el ERP.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "Active"
	SubscriptionTrialling SubscriptionStatus = "Trialling"
	SubscriptionPastDue   SubscriptionStatus = "Past Due Date"
	SubscriptionUnpaid    SubscriptionStatus = "Unpaid"
	SubscriptionCancelled SubscriptionStatus = "Cancelled"
)

// ParseSubscriptionStatus traduce el estado del proveedor (active, trialing, ...) al del ERP.
// Vacío o desconocido se considera activo.
func ParseSubscriptionStatus(s string) SubscriptionStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trialing":
		return SubscriptionTrialling
	case "past_due":
		return SubscriptionPastDue
	case "unpaid":
		return SubscriptionUnpaid
	case "canceled", "cancelled":
		return SubscriptionCancelled
	default:
		return SubscriptionActive
	}
}

// SubscriptionRecord suscripción a registrar en el ERP.
type SubscriptionRecord struct {
	ProviderSubscriptionID string // sub_... ; es la única clave conocida por quien cancela
	CustomerID             string
	CustomerEmail          string
	Status                 SubscriptionStatus
	Plan                   string
}
