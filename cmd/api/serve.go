package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"

	"github.com/jhoicas/stock-transfer-api/docs"
	"github.com/jhoicas/stock-transfer-api/internal/application/audit"
	"github.com/jhoicas/stock-transfer-api/internal/application/auth"
	"github.com/jhoicas/stock-transfer-api/internal/application/inventory"
	"github.com/jhoicas/stock-transfer-api/internal/application/usecase"
	infrapdf "github.com/jhoicas/stock-transfer-api/internal/infrastructure/pdf"
	"github.com/jhoicas/stock-transfer-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/stock-transfer-api/internal/interfaces/http"
	"github.com/jhoicas/stock-transfer-api/pkg/config"
	"github.com/jhoicas/stock-transfer-api/pkg/logger"
	"github.com/jhoicas/stock-transfer-api/pkg/telemetry"
)

const swaggerFile = "./docs/swagger.json"

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cargar configuración: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuración inválida: %w", err)
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("version", version).
		Msg("iniciando aplicación")

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry, version)
	if err != nil {
		return fmt.Errorf("inicializar telemetría: %w", err)
	}

	if cfg.DB.RunMigrations {
		if err := postgres.Migrate(cfg.DB.ConnectionString(), log.Component("migrate")); err != nil {
			return fmt.Errorf("migrar base de datos: %w", err)
		}
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	defer pool.Close()

	// Auditoría: un solo worker en segundo plano, drenado en el apagado.
	auditSink := audit.NewSink(
		postgres.NewAuditRepository(pool),
		cfg.Audit.Buffer,
		cfg.Audit.WriteTimeout,
		log.Component("audit"),
	)
	auditSink.Start()

	txRunner := postgres.NewTxRunner(pool, cfg.Transfer.LockTimeout)
	transferUC := inventory.NewTransferUseCase(txRunner, auditSink, cfg.Transfer.Timeout, log.Component("inventory"))
	stockQueryUC := inventory.NewStockQueryUseCase(
		postgres.NewStockRepository(pool),
		postgres.NewTransferRepository(pool),
		infrapdf.NewStockReportGenerator("Reporte de stock por sede"),
	)
	receiptUC := inventory.NewReceiptUseCase(txRunner, auditSink, log.Component("inventory"))
	productUC := usecase.NewProductUseCase(postgres.NewProductRepository(pool))
	locationUC := usecase.NewLocationUseCase(postgres.NewLocationRepository(pool))
	authUC := auth.NewAuthUseCase(
		postgres.NewUserRepository(pool),
		postgres.NewRefreshTokenRepository(pool),
		auditSink,
		jwtConfig(cfg),
		log.Component("auth"),
	)

	app := httpRouter.NewServer(httpRouter.ServerConfig{
		AppName:        cfg.App.Name,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	}, log.Component("http"))

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "Stock Transfer API",
		}))
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		Gate:      auth.NewGate(cfg.JWT.AccessSecret),
		AuthUC:    authUC,
		Transfers: transferUC,
		Queries:   stockQueryUC,
		Receipts:  receiptUC,
		Products:  productUC,
		Locations: locationUC,
		Cookie:    httpRouter.DefaultRefreshCookie(cfg.HTTP.CookieSecure),
		Ping:      pool.Ping,
		OpenAPI:   docs.SwaggerInfo.ReadDoc,
		Log:       log.Component("http"),
	})

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- app.Listen(cfg.HTTP.Addr())
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	case err := <-listenErr:
		log.Error().Err(err).Msg("servidor HTTP finalizado")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	// Después del servidor: ya no llegan entradas nuevas y se drena la cola.
	if err := auditSink.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("auditoría sin drenar por completo")
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("apagado de telemetría")
	}

	log.Info().Msg("aplicación detenida")
	return nil
}
