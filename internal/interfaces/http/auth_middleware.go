package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-transfer-api/internal/application/dto"
	"github.com/jhoicas/stock-transfer-api/internal/domain"
	"github.com/jhoicas/stock-transfer-api/internal/domain/entity"
)

// Locals keys para los claims del token en Fiber.
const (
	LocalClaims = "claims"
	LocalUserID = "user_id"
	LocalRole   = "role"
)

// Authorizer lo implementa auth.Gate.
type Authorizer interface {
	Authorize(authorizationHeader string, roles ...string) (*entity.AccessClaims, error)
}

// AuthMiddleware valida el Bearer Token y deja los claims en c.Locals.
func AuthMiddleware(gate Authorizer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := gate.Authorize(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			status, body := mapError(err)
			return c.Status(status).JSON(body)
		}
		c.Locals(LocalClaims, claims)
		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalRole, claims.Role)
		return c.Next()
	}
}

// RequireRole exige que el rol del token esté entre roles. Debe ir DESPUÉS de AuthMiddleware.
//   - 401 si no hay claims o el token no trae rol.
//   - 403 si el rol no está permitido; el handler nunca se ejecuta.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := GetClaims(c)
		if claims == nil {
			status, body := mapError(domain.NewAuthError(domain.AuthMissingToken))
			return c.Status(status).JSON(body)
		}
		if claims.Role == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_ROLE", Message: "el token no incluye rol"})
		}
		if len(roles) > 0 && !claims.HasRole(roles...) {
			status, body := mapError(domain.NewAuthError(domain.AuthForbidden))
			return c.Status(status).JSON(body)
		}
		return c.Next()
	}
}

// GetClaims devuelve los claims del contexto (después del middleware de auth).
func GetClaims(c *fiber.Ctx) *entity.AccessClaims {
	claims, _ := c.Locals(LocalClaims).(*entity.AccessClaims)
	return claims
}

// GetUserID devuelve el UserID del contexto; 0 si no hay token.
func GetUserID(c *fiber.Ctx) int64 {
	id, _ := c.Locals(LocalUserID).(int64)
	return id
}

// GetRole devuelve el rol del contexto.
func GetRole(c *fiber.Ctx) string {
	role, _ := c.Locals(LocalRole).(string)
	return role
}

func requestOrigin(c *fiber.Ctx) entity.RequestOrigin {
	return entity.RequestOrigin{IP: c.IP(), UserAgent: c.Get(fiber.HeaderUserAgent)}
}
