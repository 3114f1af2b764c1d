package http

import (
	"slices"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
)

// ServerConfig opciones de la app Fiber.
type ServerConfig struct {
	AppName        string
	AllowedOrigins []string
}

// NewServer crea la app Fiber con recover, request id, access log y CORS con credenciales.
func NewServer(cfg ServerConfig, log zerolog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: ErrorHandler(log),
		// Los valores de headers y cookies terminan en entradas de auditoría que se escriben
		// después de responder; sin Immutable apuntan a buffers que fasthttp reutiliza.
		Immutable: true,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(AccessLog(log))

	if len(cfg.AllowedOrigins) > 0 {
		// Con credenciales el origen debe ser explícito; "*" desactiva las cookies cross-site.
		wildcard := slices.Contains(cfg.AllowedOrigins, "*")
		app.Use(cors.New(cors.Config{
			AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
			AllowCredentials: !wildcard,
			AllowMethods:     "GET,POST,OPTIONS",
			AllowHeaders:     "Origin, Content-Type, Accept, Authorization, " + HeaderIdempotencyKey,
		}))
	}
	return app
}
