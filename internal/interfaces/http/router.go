package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-transfer-api/internal/application/dto"
	"github.com/jhoicas/stock-transfer-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Gate      Authorizer
	AuthUC    AuthService
	Transfers TransferService
	Queries   StockQueries
	Receipts  ReceiptService
	Products  ProductService
	Locations LocationService
	Cookie    CookieConfig
	// Ping verifica la base de datos en /health; nil = sin chequeo.
	Ping func(ctx context.Context) error
	// OpenAPI devuelve el documento OpenAPI servido en /api/v1/openapi.json; nil = no se expone.
	OpenAPI func() string
	Log     zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", healthHandler(deps.Ping))

	api := app.Group("/api/v1")

	if deps.OpenAPI != nil {
		api.Get("/openapi.json", func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
			return c.SendString(deps.OpenAPI())
		})
	}

	requireAuth := AuthMiddleware(deps.Gate)

	// Auth: login/refresh/logout públicos (usan la cookie), /me protegido
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC, deps.Cookie, deps.Log)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/refresh", authHandler.Refresh)
	authGroup.Post("/logout", authHandler.Logout)
	authGroup.Get("/me", requireAuth, RequireRole(), authHandler.Me)

	// Catálogo (protegido): lectura para cualquier rol, altas restringidas.
	products := api.Group("/products", requireAuth)
	productHandler := NewProductHandler(deps.Products, deps.Log)
	products.Get("/", RequireRole(), productHandler.List)
	products.Post("/", RequireRole(entity.RoleAdmin, entity.RoleManager), productHandler.Create)

	locations := api.Group("/locations", requireAuth)
	locationHandler := NewLocationHandler(deps.Locations, deps.Log)
	locations.Get("/", RequireRole(), locationHandler.List)
	locations.Post("/", RequireRole(entity.RoleAdmin), locationHandler.Create)

	// Stock (protegido). Traslados, entradas, historial y reporte solo admin/manager.
	stock := api.Group("/stock", requireAuth)
	stockHandler := NewStockHandler(deps.Transfers, deps.Queries, deps.Log)
	transferRoles := RequireRole(entity.TransferRoles...)
	stock.Get("/", RequireRole(), stockHandler.List)
	stock.Get("/summary", RequireRole(), stockHandler.Summary)
	stock.Post("/transfer", transferRoles, stockHandler.Transfer)
	stock.Post("/receipt", transferRoles, NewInventoryHandler(deps.Receipts, deps.Log).Receive)
	stock.Get("/transfers", transferRoles, stockHandler.Transfers)
	stock.Get("/report.pdf", transferRoles, stockHandler.Report)
}

func healthHandler(ping func(ctx context.Context) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "DB_UNAVAILABLE", Message: "base de datos no disponible"})
			}
		}
		return c.JSON(dto.HealthResponse{Status: "ok"})
	}
}
