package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Drivers admitidos para el registro de idempotencia de eventos.
const (
	LedgerNone     = "none"
	LedgerPostgres = "postgres"
	LedgerRedis    = "redis"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
// Se construye una sola vez en el arranque y se inyecta; no hay estado global.
type Config struct {
	App    AppConfig
	HTTP   HTTPConfig
	Stripe StripeConfig
	ERP    ERPConfig
	Ledger LedgerConfig
	DB     DBConfig
	Redis  RedisConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StripeConfig credenciales del proveedor de pagos.
type StripeConfig struct {
	SecretKey         string        // para consultar clientes (búsqueda secundaria de email)
	WebhookSecret     string        // secreto de firma del endpoint (whsec_...)
	Tolerance         time.Duration // antigüedad máxima aceptada del timestamp firmado
	Timeout           time.Duration // timeout HTTP del API de Stripe
	MaxNetworkRetries int64
}

// ERPConfig configuración del cliente REST del ERP.
type ERPConfig struct {
	BaseURL          string
	APIKey           string
	APISecret        string
	Timeout          time.Duration
	InvoiceItemName  string // nombre de la línea única de la factura de venta
	SubscriptionPlan string // plan ERP fijo asociado a las suscripciones
	InvoiceDueDays   int    // vencimiento = verificación + N días
}

// LedgerConfig registro opcional de eventos procesados (deduplicación por ID de evento).
type LedgerConfig struct {
	Driver string // none, postgres, redis
	TTL    time.Duration
}

// DBConfig configuración de PostgreSQL (solo si LEDGER_DRIVER=postgres).
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// RedisConfig configuración de Redis (solo si LEDGER_DRIVER=redis).
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. No valida: ver Validate.
func Load() (*Config, error) {
	v := viper.New()

	// Opcional: archivo de configuración (.env o config.env)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "stripe-erp-sync"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 5000),
		},
		Stripe: StripeConfig{
			SecretKey:         getString(v, "STRIPE_SECRET_KEY", ""),
			WebhookSecret:     getString(v, "STRIPE_WEBHOOK_SECRET", ""),
			Tolerance:         time.Duration(getInt(v, "STRIPE_WEBHOOK_TOLERANCE_SECONDS", 300)) * time.Second,
			Timeout:           time.Duration(getInt(v, "STRIPE_TIMEOUT_SECONDS", 15)) * time.Second,
			MaxNetworkRetries: int64(getInt(v, "STRIPE_MAX_NETWORK_RETRIES", 2)),
		},
		ERP: ERPConfig{
			BaseURL:          strings.TrimRight(getString(v, "ERP_BASE_URL", ""), "/"),
			APIKey:           getString(v, "ERP_API_KEY", ""),
			APISecret:        getString(v, "ERP_API_SECRET", ""),
			Timeout:          time.Duration(getInt(v, "ERP_TIMEOUT_SECONDS", 15)) * time.Second,
			InvoiceItemName:  getString(v, "ERP_INVOICE_ITEM_NAME", "Stripe Subscription"),
			SubscriptionPlan: getString(v, "ERP_SUBSCRIPTION_PLAN", "Stripe Plan"),
			InvoiceDueDays:   getInt(v, "ERP_INVOICE_DUE_DAYS", 7),
		},
		Ledger: LedgerConfig{
			Driver: strings.ToLower(getString(v, "LEDGER_DRIVER", LedgerNone)),
			TTL:    time.Duration(getInt(v, "LEDGER_TTL_HOURS", 72)) * time.Hour,
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "stripe_erp_sync"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getString(v, "REDIS_ADDR", "localhost:6379"),
			Password: getString(v, "REDIS_PASSWORD", ""),
			DB:       getInt(v, "REDIS_DB", 0),
		},
	}

	return cfg, nil
}

// Validate comprueba los valores obligatorios. Un error aquí es un fallo de arranque.
func (c *Config) Validate() error {
	required := []struct {
		key, value string
	}{
		{"STRIPE_SECRET_KEY", c.Stripe.SecretKey},
		{"STRIPE_WEBHOOK_SECRET", c.Stripe.WebhookSecret},
		{"ERP_BASE_URL", c.ERP.BaseURL},
		{"ERP_API_KEY", c.ERP.APIKey},
		{"ERP_API_SECRET", c.ERP.APISecret},
	}
	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("configuración incompleta, faltan: %s", strings.Join(missing, ", "))
	}

	if _, err := url.ParseRequestURI(c.ERP.BaseURL); err != nil {
		return fmt.Errorf("ERP_BASE_URL inválida: %w", err)
	}

	switch c.Ledger.Driver {
	case LedgerNone, LedgerPostgres, LedgerRedis:
	default:
		return fmt.Errorf("LEDGER_DRIVER desconocido %q (usar none, postgres o redis)", c.Ledger.Driver)
	}
	if c.ERP.InvoiceDueDays < 0 {
		return fmt.Errorf("ERP_INVOICE_DUE_DAYS no puede ser negativo")
	}
	return nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}
