package auth

import (
	"strings"

	"github.com/jhoicas/stock-transfer-api/internal/domain"
	"github.com/jhoicas/stock-transfer-api/internal/domain/entity"
	"github.com/jhoicas/stock-transfer-api/pkg/jwt"
)

// Gate verifica el access token presentado y el rol. Sin estado: solo firma, expiración y claims.
type Gate struct {
	secret string
}

// NewGate construye el gate con el secreto de los access tokens.
func NewGate(accessSecret string) *Gate {
	return &Gate{secret: accessSecret}
}

// Authorize valida el header Authorization ("Bearer <token>"). Si roles no está vacío,
// el rol del token debe estar entre ellos.
func (g *Gate) Authorize(authorizationHeader string, roles ...string) (*entity.AccessClaims, error) {
	token, ok := bearerToken(authorizationHeader)
	if !ok {
		return nil, domain.NewAuthError(domain.AuthMissingToken)
	}
	claims, err := jwt.ParseAccess(g.secret, token)
	if err != nil {
		return nil, domain.NewAuthError(domain.AuthInvalidOrExpired)
	}

	ac := &entity.AccessClaims{UserID: claims.UserID, Role: claims.Role}
	if claims.ExpiresAt != nil {
		ac.ExpiresAt = claims.ExpiresAt.Time
	}
	if len(roles) > 0 && !ac.HasRole(roles...) {
		return ac, domain.NewAuthError(domain.AuthForbidden)
	}
	return ac, nil
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

