package domain

import "errors"

// Errores de dominio (sin dependencias externas).
// Solo ErrInvalidSignature llega al proveedor como respuesta no exitosa.
var (
	ErrInvalidSignature    = errors.New("firma de webhook inválida")
	ErrMissingEmail        = errors.New("el evento no tiene email resoluble")
	ErrUnparseableResponse = errors.New("respuesta del ERP no interpretable")
	ErrErpUnavailable      = errors.New("ERP no disponible")
	ErrNotFound            = errors.New("recurso no encontrado")
)
