package entity

// CustomerRef referencia a un cliente: el email es la clave única en el ERP.
// ERPID queda vacío hasta que se resuelve (get-or-create).
type CustomerRef struct {
	Email string
	ERPID string
}

// Resolved indica si el cliente ya tiene identificador en el ERP.
func (c CustomerRef) Resolved() bool {
	return c.ERPID != ""
}
