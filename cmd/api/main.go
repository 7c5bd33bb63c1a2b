package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/stripe-erp-sync/internal/application/ports"
	"github.com/jhoicas/stripe-erp-sync/internal/application/webhook"
	"github.com/jhoicas/stripe-erp-sync/internal/infrastructure/erp"
	"github.com/jhoicas/stripe-erp-sync/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/stripe-erp-sync/internal/infrastructure/redis"
	infrastripe "github.com/jhoicas/stripe-erp-sync/internal/infrastructure/stripe"
	httpRouter "github.com/jhoicas/stripe-erp-sync/internal/interfaces/http"
	"github.com/jhoicas/stripe-erp-sync/pkg/config"
	"github.com/jhoicas/stripe-erp-sync/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	if err := cfg.Validate(); err != nil {
		panic(err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("ledger", cfg.Ledger.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	ledger, closeLedger := buildLedger(ctx, cfg, log)
	defer closeLedger()

	verifier := infrastripe.NewVerifier(cfg.Stripe.WebhookSecret, cfg.Stripe.Tolerance)
	directory := infrastripe.NewCustomerDirectory(infrastripe.DirectoryConfig{
		SecretKey:         cfg.Stripe.SecretKey,
		Timeout:           cfg.Stripe.Timeout,
		MaxNetworkRetries: cfg.Stripe.MaxNetworkRetries,
	})
	erpClient := erp.NewClient(erp.Config{
		BaseURL:         cfg.ERP.BaseURL,
		APIKey:          cfg.ERP.APIKey,
		APISecret:       cfg.ERP.APISecret,
		Timeout:         cfg.ERP.Timeout,
		InvoiceItemName: cfg.ERP.InvoiceItemName,
	})

	dispatcher := webhook.NewDispatcher(erpClient, directory, webhook.DispatchConfig{
		InvoiceDueDays:   cfg.ERP.InvoiceDueDays,
		SubscriptionPlan: cfg.ERP.SubscriptionPlan,
	})
	processWebhookUC := webhook.NewProcessWebhookUseCase(verifier, ledger, dispatcher)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 60,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Stripe ERP Sync",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		AppName:        cfg.App.Name,
		Logger:         log,
		ProcessWebhook: processWebhookUC,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// buildLedger selecciona el registro de eventos según LEDGER_DRIVER.
// Con "none" devuelve nil y el caso de uso procesa todas las entregas.
func buildLedger(ctx context.Context, cfg *config.Config, log *logger.Logger) (ports.EventLedger, func()) {
	switch cfg.Ledger.Driver {
	case config.LedgerPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		repo := postgres.NewEventLedgerRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("crear tabla de eventos")
		}
		if n, err := repo.Purge(ctx, cfg.Ledger.TTL); err != nil {
			log.Warn().Err(err).Msg("purga de eventos antiguos")
		} else if n > 0 {
			log.Info().Int64("eliminados", n).Msg("eventos antiguos purgados")
		}
		return repo, pool.Close

	case config.LedgerRedis:
		client, err := infraredis.Connect(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		return infraredis.NewEventLedger(client, cfg.Ledger.TTL), func() { _ = client.Close() }

	default:
		return nil, func() {}
	}
}
