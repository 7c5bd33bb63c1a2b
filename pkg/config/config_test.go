package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stripe-erp-sync/pkg/config"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	t.Setenv("ERP_BASE_URL", "https://erp.example.com/")
	t.Setenv("ERP_API_KEY", "key")
	t.Setenv("ERP_API_SECRET", "secret")
}

func TestLoad_ValoresPorDefecto(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.HTTP.Port)
	assert.Equal(t, "0.0.0.0:5000", cfg.HTTP.Addr())
	assert.Equal(t, "https://erp.example.com", cfg.ERP.BaseURL, "la barra final debe recortarse")
	assert.Equal(t, 7, cfg.ERP.InvoiceDueDays)
	assert.Equal(t, 15*time.Second, cfg.ERP.Timeout)
	assert.Equal(t, 300*time.Second, cfg.Stripe.Tolerance)
	assert.Equal(t, 15*time.Second, cfg.Stripe.Timeout)
	assert.Equal(t, config.LedgerNone, cfg.Ledger.Driver)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_SobrescribeDesdeEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HTTP_PORT", "8081")
	t.Setenv("ERP_INVOICE_DUE_DAYS", "30")
	t.Setenv("LEDGER_DRIVER", "Redis")
	t.Setenv("LEDGER_TTL_HOURS", "1")
	t.Setenv("STRIPE_TIMEOUT_SECONDS", "4")
	t.Setenv("ERP_TIMEOUT_SECONDS", "30")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.HTTP.Port)
	assert.Equal(t, 30, cfg.ERP.InvoiceDueDays)
	assert.Equal(t, config.LedgerRedis, cfg.Ledger.Driver)
	assert.Equal(t, time.Hour, cfg.Ledger.TTL)
	assert.Equal(t, 4*time.Second, cfg.Stripe.Timeout)
	assert.Equal(t, 30*time.Second, cfg.ERP.Timeout, "los timeouts de Stripe y del ERP son independientes")
}

func TestValidate_FaltanObligatorios(t *testing.T) {
	cfg := &config.Config{Ledger: config.LedgerConfig{Driver: config.LedgerNone}}

	err := cfg.Validate()
	require.Error(t, err)
	for _, key := range []string{"STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET", "ERP_BASE_URL", "ERP_API_KEY", "ERP_API_SECRET"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestValidate_DriverDesconocido(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LEDGER_DRIVER", "mongo")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.ErrorContains(t, cfg.Validate(), "LEDGER_DRIVER")
}

func TestDBConfig_DSNEscapaPassword(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss/word", DBName: "x", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss%2Fword@db:5432/x?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://override"
	assert.Equal(t, "postgres://override", c.ConnectionString())
}
