package stripe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	stripego "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/jhoicas/stripe-erp-sync/internal/application/ports"
)

var _ ports.CustomerDirectory = (*CustomerDirectory)(nil)

// CustomerDirectory consulta clientes en el API de Stripe (solo lectura).
type CustomerDirectory struct {
	api *client.API
}

// DirectoryConfig opciones del cliente de Stripe.
type DirectoryConfig struct {
	SecretKey         string
	Timeout           time.Duration
	MaxNetworkRetries int64
	URL               string // vacío = api.stripe.com; se sobrescribe en tests
}

// NewCustomerDirectory construye el adaptador con su propio backend (sin estado global de stripe-go).
func NewCustomerDirectory(cfg DirectoryConfig) *CustomerDirectory {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	backendCfg := &stripego.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripego.Int64(cfg.MaxNetworkRetries),
		LeveledLogger:     &stripego.LeveledLogger{Level: stripego.LevelError},
	}
	if cfg.URL != "" {
		backendCfg.URL = stripego.String(cfg.URL)
	}
	backend := stripego.GetBackendWithConfig(stripego.APIBackend, backendCfg)

	return &CustomerDirectory{
		api: client.New(cfg.SecretKey, &stripego.Backends{API: backend}),
	}
}

// LookupEmail devuelve el email del cliente; "" si no tiene o fue eliminado.
func (d *CustomerDirectory) LookupEmail(ctx context.Context, customerID string) (string, error) {
	params := &stripego.CustomerParams{}
	params.Context = ctx

	c, err := d.api.Customers.Get(customerID, params)
	if err != nil {
		return "", fmt.Errorf("stripe: obtener cliente %s: %w", customerID, err)
	}
	if c == nil || c.Deleted {
		return "", nil
	}
	return c.Email, nil
}
