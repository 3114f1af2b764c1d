package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-transfer-api/internal/application/auth"
	"github.com/jhoicas/stock-transfer-api/internal/application/dto"
	"github.com/jhoicas/stock-transfer-api/internal/domain/entity"
)

// AuthService lo implementa auth.AuthUseCase.
type AuthService interface {
	Login(ctx context.Context, in dto.LoginRequest, origin entity.RequestOrigin) (*auth.TokenPair, error)
	Refresh(ctx context.Context, presented string) (*auth.TokenPair, error)
	Logout(ctx context.Context, presented string, origin entity.RequestOrigin) error
}

// CookieConfig cookie del refresh token: HttpOnly, SameSite=Strict, limitada a Path.
type CookieConfig struct {
	Name   string
	Path   string
	Secure bool
}

// DefaultRefreshCookie valores de la cookie para la API v1.
func DefaultRefreshCookie(secure bool) CookieConfig {
	return CookieConfig{Name: "refresh_token", Path: "/api/v1/auth", Secure: secure}
}

// AuthHandler maneja login, refresh, logout y /me.
type AuthHandler struct {
	uc     AuthService
	cookie CookieConfig
	log    zerolog.Logger
}

// NewAuthHandler construye el handler de auth.
func NewAuthHandler(uc AuthService, cookie CookieConfig, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{uc: uc, cookie: cookie, log: log}
}

// Login godoc
// @Summary      Iniciar sesión
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.LoginRequest  true  "email, password"
// @Success      200   {object}  dto.TokenResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in dto.LoginRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	pair, err := h.uc.Login(c.UserContext(), in, requestOrigin(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	h.setRefreshCookie(c, pair.RefreshToken, pair.RefreshExpiresAt)
	return c.JSON(dto.TokenResponse{AccessToken: pair.AccessToken})
}

// Refresh godoc
// @Summary      Renovar access token con la cookie refresh_token
// @Tags         auth
// @Produce      json
// @Success      200   {object}  dto.TokenResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	pair, err := h.uc.Refresh(c.UserContext(), c.Cookies(h.cookie.Name))
	if err != nil {
		status, _ := mapError(err)
		if status == fiber.StatusUnauthorized || status == fiber.StatusForbidden {
			h.clearRefreshCookie(c)
		}
		return writeError(c, h.log, err)
	}
	if pair.RefreshToken != "" {
		h.setRefreshCookie(c, pair.RefreshToken, pair.RefreshExpiresAt)
	}
	return c.JSON(dto.TokenResponse{AccessToken: pair.AccessToken})
}

// Logout godoc
// @Summary      Cerrar sesión (invalida el refresh token)
// @Tags         auth
// @Produce      json
// @Success      200   {object}  dto.MessageResponse
// @Router       /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.uc.Logout(c.UserContext(), c.Cookies(h.cookie.Name), requestOrigin(c)); err != nil {
		return writeError(c, h.log, err)
	}
	h.clearRefreshCookie(c)
	return c.JSON(dto.MessageResponse{Message: "Logged out"})
}

// Me godoc
// @Summary      Claims del access token
// @Tags         auth
// @Security     Bearer
// @Produce      json
// @Success      200   {object}  dto.MeResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	claims := GetClaims(c)
	if claims == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	return c.JSON(dto.MeResponse{ID: claims.UserID, Role: claims.Role, Exp: claims.ExpiresAt.Unix()})
}

func (h *AuthHandler) setRefreshCookie(c *fiber.Ctx, value string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    value,
		Path:     h.cookie.Path,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     h.cookie.Path,
		Expires:  time.Now().Add(-24 * time.Hour),
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}
